package wgsl

import "github.com/gogpu/wgslc/diag"

// Handles index into the Program's arenas. Nodes reference their children
// by handle instead of by pointer, so cloning a Program is a bulk copy of
// the arena slices and every handle stays valid in the clone.
type (
	// ExprHandle indexes Program.exprs.
	ExprHandle uint32
	// StmtHandle indexes Program.stmts.
	StmtHandle uint32
	// TypeHandle indexes Program.typeExprs.
	TypeHandle uint32
)

// Sentinel handles for absent children (no initializer, no return type...).
const (
	NoExpr ExprHandle = ^ExprHandle(0)
	NoStmt StmtHandle = ^StmtHandle(0)
	NoType TypeHandle = ^TypeHandle(0)
)

// Program is a parsed WGSL module (translation unit). Expressions,
// statements, and type expressions live in append-only arenas owned by
// the Program; declarations reference them by handle.
//
// A Program is immutable after parsing except through Clone, which
// produces an independent deep copy. Sem is nil until the Program has
// been resolved.
type Program struct {
	Enables              []Enable
	DiagnosticDirectives []DiagnosticDirective
	Structs              []*StructDecl
	Functions            []*FunctionDecl
	GlobalVars           []*VarDecl
	Constants            []*ConstDecl
	Overrides            []*OverrideDecl
	Aliases              []*AliasDecl
	ConstAsserts         []ConstAssert

	// Diagnostics accumulated while producing this Program. A Program
	// with error diagnostics is still traversable up to the point each
	// error was recorded.
	Diagnostics diag.List

	// Sem holds resolution results; nil until Resolve succeeds.
	Sem *SemInfo

	exprs     []Expr
	stmts     []Stmt
	typeExprs []TypeDecl
}

// NewProgram returns an empty Program with preallocated arenas.
func NewProgram() *Program {
	return &Program{
		exprs:     make([]Expr, 0, 64),
		stmts:     make([]Stmt, 0, 32),
		typeExprs: make([]TypeDecl, 0, 16),
	}
}

// IsValid reports whether the Program carries no error diagnostics and
// every declaration is structurally complete. Callers use it as the
// sanity gate after parsing and after each transform.
func (p *Program) IsValid() bool {
	return !p.Diagnostics.HasErrors() && p.StructurallyValid()
}

// AddExpr appends an expression to the arena and returns its handle.
func (p *Program) AddExpr(e Expr) ExprHandle {
	p.exprs = append(p.exprs, e)
	return ExprHandle(len(p.exprs) - 1)
}

// AddStmt appends a statement to the arena and returns its handle.
func (p *Program) AddStmt(s Stmt) StmtHandle {
	p.stmts = append(p.stmts, s)
	return StmtHandle(len(p.stmts) - 1)
}

// AddType appends a type expression to the arena and returns its handle.
func (p *Program) AddType(t TypeDecl) TypeHandle {
	p.typeExprs = append(p.typeExprs, t)
	return TypeHandle(len(p.typeExprs) - 1)
}

// Expr returns the expression for a handle. The handle must be valid.
func (p *Program) Expr(h ExprHandle) Expr { return p.exprs[h] }

// Stmt returns the statement for a handle. The handle must be valid.
func (p *Program) Stmt(h StmtHandle) Stmt { return p.stmts[h] }

// TypeExpr returns the type expression for a handle. The handle must be valid.
func (p *Program) TypeExpr(h TypeHandle) TypeDecl { return p.typeExprs[h] }

// ExprCount returns the number of expressions in the arena.
func (p *Program) ExprCount() int { return len(p.exprs) }

// StmtCount returns the number of statements in the arena.
func (p *Program) StmtCount() int { return len(p.stmts) }

// TypeCount returns the number of type expressions in the arena.
func (p *Program) TypeCount() int { return len(p.typeExprs) }

// Enable represents an enable directive.
type Enable struct {
	Extensions []string
	Span       diag.Span
}

// DiagnosticDirective represents a diagnostic directive.
type DiagnosticDirective struct {
	Severity string
	Rule     string
	Span     diag.Span
}

// ConstAssert represents a module-scope const_assert directive.
type ConstAssert struct {
	Expr ExprHandle
	Span diag.Span
}

// Node is the base interface for all AST nodes.
type Node interface {
	Pos() diag.Span
}

// Stmt is the interface for statements stored in the statement arena.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is the interface for expressions stored in the expression arena.
type Expr interface {
	Node
	exprNode()
}

// TypeDecl is the interface for type expressions stored in the type arena.
type TypeDecl interface {
	Node
	typeNode()
}

// Declarations

// StructDecl represents a struct declaration.
type StructDecl struct {
	Name    string
	Members []*StructMember
	Span    diag.Span
}

func (s *StructDecl) Pos() diag.Span { return s.Span }

// StructMember represents a struct member.
type StructMember struct {
	Name       string
	Type       TypeHandle
	Attributes []Attribute
	Span       diag.Span
}

// FunctionDecl represents a function declaration.
type FunctionDecl struct {
	Name        string
	Params      []*Parameter
	ReturnType  TypeHandle // NoType when the function returns nothing
	ReturnAttrs []Attribute
	Attributes  []Attribute
	Body        StmtHandle // a *BlockStmt
	Span        diag.Span
}

func (f *FunctionDecl) Pos() diag.Span { return f.Span }

// Stage returns the shader stage attribute on the function, or "" for a
// plain helper function.
func (f *FunctionDecl) Stage() string {
	for _, attr := range f.Attributes {
		if st, ok := attr.(*AttrStage); ok {
			return st.Stage
		}
	}
	return ""
}

// Parameter represents a function parameter.
type Parameter struct {
	Name       string
	Type       TypeHandle
	Attributes []Attribute
	Span       diag.Span
}

// VarDecl represents a module-scope variable declaration.
type VarDecl struct {
	Name         string
	Type         TypeHandle // NoType when inferred from Init
	Init         ExprHandle // NoExpr when absent
	AddressSpace string     // function, private, workgroup, uniform, storage
	AccessMode   string     // read, write, read_write
	Attributes   []Attribute
	Span         diag.Span
}

func (v *VarDecl) Pos() diag.Span { return v.Span }

// Group returns the @group attribute value, or false when absent.
func (v *VarDecl) Group() (uint32, bool) {
	for _, attr := range v.Attributes {
		if g, ok := attr.(*AttrGroup); ok {
			return g.Value, true
		}
	}
	return 0, false
}

// Binding returns the @binding attribute value, or false when absent.
func (v *VarDecl) Binding() (uint32, bool) {
	for _, attr := range v.Attributes {
		if b, ok := attr.(*AttrBinding); ok {
			return b.Value, true
		}
	}
	return 0, false
}

// ConstDecl represents a module-scope const declaration.
type ConstDecl struct {
	Name string
	Type TypeHandle
	Init ExprHandle
	Span diag.Span
}

func (c *ConstDecl) Pos() diag.Span { return c.Span }

// OverrideDecl represents a pipeline-overridable constant declaration.
type OverrideDecl struct {
	Name       string
	Type       TypeHandle // NoType when inferred
	Init       ExprHandle // NoExpr when the pipeline must supply a value
	ID         *uint32    // from @id, nil when absent
	Attributes []Attribute
	Span       diag.Span
}

func (o *OverrideDecl) Pos() diag.Span { return o.Span }

// AliasDecl represents a type alias declaration.
type AliasDecl struct {
	Name string
	Type TypeHandle
	Span diag.Span
}

func (a *AliasDecl) Pos() diag.Span { return a.Span }

// Attributes
//
// Attributes are parsed into concrete variants rather than a generic
// name/args pair, so consumers read fields instead of re-validating
// argument lists.

// Attribute is the closed interface over attribute variants.
type Attribute interface {
	Node
	attrNode()
}

// AttrLocation is @location(N).
type AttrLocation struct {
	Value uint32
	Span  diag.Span
}

func (a *AttrLocation) Pos() diag.Span { return a.Span }
func (a *AttrLocation) attrNode()      {}

// AttrBinding is @binding(N).
type AttrBinding struct {
	Value uint32
	Span  diag.Span
}

func (a *AttrBinding) Pos() diag.Span { return a.Span }
func (a *AttrBinding) attrNode()      {}

// AttrGroup is @group(N).
type AttrGroup struct {
	Value uint32
	Span  diag.Span
}

func (a *AttrGroup) Pos() diag.Span { return a.Span }
func (a *AttrGroup) attrNode()      {}

// AttrBuiltin is @builtin(name).
type AttrBuiltin struct {
	Name string
	Span diag.Span
}

func (a *AttrBuiltin) Pos() diag.Span { return a.Span }
func (a *AttrBuiltin) attrNode()      {}

// AttrStage marks an entry point: @vertex, @fragment, or @compute.
type AttrStage struct {
	Stage string // "vertex", "fragment", "compute"
	Span  diag.Span
}

func (a *AttrStage) Pos() diag.Span { return a.Span }
func (a *AttrStage) attrNode()      {}

// AttrWorkgroupSize is @workgroup_size(x[, y[, z]]). Dimensions not
// written in the source are NoExpr and default to 1.
type AttrWorkgroupSize struct {
	X, Y, Z ExprHandle
	Span    diag.Span
}

func (a *AttrWorkgroupSize) Pos() diag.Span { return a.Span }
func (a *AttrWorkgroupSize) attrNode()      {}

// AttrInterpolate is @interpolate(type[, sampling]).
type AttrInterpolate struct {
	Type     string // "perspective", "linear", "flat"
	Sampling string // "center", "centroid", "sample", or ""
	Span     diag.Span
}

func (a *AttrInterpolate) Pos() diag.Span { return a.Span }
func (a *AttrInterpolate) attrNode()      {}

// AttrInvariant is @invariant.
type AttrInvariant struct {
	Span diag.Span
}

func (a *AttrInvariant) Pos() diag.Span { return a.Span }
func (a *AttrInvariant) attrNode()      {}

// AttrSize is @size(N) on a struct member.
type AttrSize struct {
	Value uint32
	Span  diag.Span
}

func (a *AttrSize) Pos() diag.Span { return a.Span }
func (a *AttrSize) attrNode()      {}

// AttrAlign is @align(N) on a struct member.
type AttrAlign struct {
	Value uint32
	Span  diag.Span
}

func (a *AttrAlign) Pos() diag.Span { return a.Span }
func (a *AttrAlign) attrNode()      {}

// AttrID is @id(N) on an override declaration.
type AttrID struct {
	Value uint32
	Span  diag.Span
}

func (a *AttrID) Pos() diag.Span { return a.Span }
func (a *AttrID) attrNode()      {}

// Type expressions

// NamedType represents a named type, possibly parameterized
// (e.g. f32, MyStruct, vec3<f32>, texture_2d<f32>).
type NamedType struct {
	Name     string
	TypeArgs []TypeHandle
	Span     diag.Span
}

func (n *NamedType) Pos() diag.Span { return n.Span }
func (n *NamedType) typeNode()      {}

// ArrayType represents array<E> or array<E, N>.
type ArrayType struct {
	Element TypeHandle
	Count   ExprHandle // NoExpr for runtime-sized arrays
	Span    diag.Span
}

func (a *ArrayType) Pos() diag.Span { return a.Span }
func (a *ArrayType) typeNode()      {}

// PtrType represents ptr<space, T[, access]>.
type PtrType struct {
	AddressSpace string
	Element      TypeHandle
	AccessMode   string
	Span         diag.Span
}

func (p *PtrType) Pos() diag.Span { return p.Span }
func (p *PtrType) typeNode()      {}

// Statements

// DeclKind distinguishes the local declaration forms.
type DeclKind uint8

const (
	DeclVar DeclKind = iota
	DeclLet
	DeclConst
)

func (k DeclKind) String() string {
	switch k {
	case DeclVar:
		return "var"
	case DeclLet:
		return "let"
	case DeclConst:
		return "const"
	default:
		return "unknown"
	}
}

// BlockStmt represents a block statement.
type BlockStmt struct {
	Stmts []StmtHandle
	Span  diag.Span
}

func (b *BlockStmt) Pos() diag.Span { return b.Span }
func (b *BlockStmt) stmtNode()      {}

// DeclStmt represents a local var, let, or const declaration.
type DeclStmt struct {
	Kind DeclKind
	Name string
	Type TypeHandle // NoType when inferred
	Init ExprHandle // NoExpr when absent (var only)
	Span diag.Span
}

func (d *DeclStmt) Pos() diag.Span { return d.Span }
func (d *DeclStmt) stmtNode()      {}

// ReturnStmt represents a return statement.
type ReturnStmt struct {
	Value ExprHandle // NoExpr for a bare return
	Span  diag.Span
}

func (r *ReturnStmt) Pos() diag.Span { return r.Span }
func (r *ReturnStmt) stmtNode()      {}

// IfStmt represents an if statement.
type IfStmt struct {
	Cond ExprHandle
	Body StmtHandle // a *BlockStmt
	Else StmtHandle // a *BlockStmt, *IfStmt, or NoStmt
	Span diag.Span
}

func (i *IfStmt) Pos() diag.Span { return i.Span }
func (i *IfStmt) stmtNode()      {}

// ForStmt represents a for loop.
type ForStmt struct {
	Init   StmtHandle // NoStmt when absent
	Cond   ExprHandle // NoExpr when absent
	Update StmtHandle // NoStmt when absent
	Body   StmtHandle
	Span   diag.Span
}

func (f *ForStmt) Pos() diag.Span { return f.Span }
func (f *ForStmt) stmtNode()      {}

// WhileStmt represents a while loop.
type WhileStmt struct {
	Cond ExprHandle
	Body StmtHandle
	Span diag.Span
}

func (w *WhileStmt) Pos() diag.Span { return w.Span }
func (w *WhileStmt) stmtNode()      {}

// LoopStmt represents a loop statement with an optional continuing block
// and an optional break-if at the end of the continuing block.
type LoopStmt struct {
	Body       StmtHandle
	Continuing StmtHandle // NoStmt when absent
	BreakIf    ExprHandle // NoExpr when absent
	Span       diag.Span
}

func (l *LoopStmt) Pos() diag.Span { return l.Span }
func (l *LoopStmt) stmtNode()      {}

// BreakStmt represents a break statement.
type BreakStmt struct {
	Span diag.Span
}

func (b *BreakStmt) Pos() diag.Span { return b.Span }
func (b *BreakStmt) stmtNode()      {}

// ContinueStmt represents a continue statement.
type ContinueStmt struct {
	Span diag.Span
}

func (c *ContinueStmt) Pos() diag.Span { return c.Span }
func (c *ContinueStmt) stmtNode()      {}

// DiscardStmt represents a discard statement.
type DiscardStmt struct {
	Span diag.Span
}

func (d *DiscardStmt) Pos() diag.Span { return d.Span }
func (d *DiscardStmt) stmtNode()      {}

// AssignOp is the operator of an assignment statement.
type AssignOp uint8

const (
	AssignPlain AssignOp = iota // =
	AssignAdd                   // +=
	AssignSub                   // -=
	AssignMul                   // *=
	AssignDiv                   // /=
	AssignMod                   // %=
	AssignAnd                   // &=
	AssignOr                    // |=
	AssignXor                   // ^=
	AssignShl                   // <<=
	AssignShr                   // >>=
)

func (op AssignOp) String() string {
	switch op {
	case AssignPlain:
		return "="
	case AssignAdd:
		return "+="
	case AssignSub:
		return "-="
	case AssignMul:
		return "*="
	case AssignDiv:
		return "/="
	case AssignMod:
		return "%="
	case AssignAnd:
		return "&="
	case AssignOr:
		return "|="
	case AssignXor:
		return "^="
	case AssignShl:
		return "<<="
	case AssignShr:
		return ">>="
	default:
		return "?"
	}
}

// AssignStmt represents an assignment statement. A phony assignment
// (`_ = expr`) has Phony set and LHS NoExpr.
type AssignStmt struct {
	LHS   ExprHandle
	Op    AssignOp
	RHS   ExprHandle
	Phony bool
	Span  diag.Span
}

func (a *AssignStmt) Pos() diag.Span { return a.Span }
func (a *AssignStmt) stmtNode()      {}

// IncDecStmt represents i++ or i--.
type IncDecStmt struct {
	Target    ExprHandle
	Increment bool // false for --
	Span      diag.Span
}

func (i *IncDecStmt) Pos() diag.Span { return i.Span }
func (i *IncDecStmt) stmtNode()      {}

// CallStmt represents a call used as a statement.
type CallStmt struct {
	Call ExprHandle // a *CallExpr
	Span diag.Span
}

func (c *CallStmt) Pos() diag.Span { return c.Span }
func (c *CallStmt) stmtNode()      {}

// ConstAssertStmt represents a function-scope const_assert.
type ConstAssertStmt struct {
	Expr ExprHandle
	Span diag.Span
}

func (c *ConstAssertStmt) Pos() diag.Span { return c.Span }
func (c *ConstAssertStmt) stmtNode()      {}

// SwitchStmt represents a switch statement.
type SwitchStmt struct {
	Selector ExprHandle
	Cases    []SwitchCaseClause
	Span     diag.Span
}

func (s *SwitchStmt) Pos() diag.Span { return s.Span }
func (s *SwitchStmt) stmtNode()      {}

// SwitchCaseClause represents a case (or default) clause in a switch.
type SwitchCaseClause struct {
	Selectors []ExprHandle // empty for default
	IsDefault bool
	Body      StmtHandle // a *BlockStmt
	Span      diag.Span
}

// Expressions

// IdentExpr represents an identifier.
type IdentExpr struct {
	Name string
	Span diag.Span
}

func (i *IdentExpr) Pos() diag.Span { return i.Span }
func (i *IdentExpr) exprNode()      {}

// LiteralExpr represents a literal value. Text is the source lexeme,
// suffix included.
type LiteralExpr struct {
	Kind TokenKind // TokenIntLiteral, TokenFloatLiteral, TokenTrue, TokenFalse
	Text string
	Span diag.Span
}

func (l *LiteralExpr) Pos() diag.Span { return l.Span }
func (l *LiteralExpr) exprNode()      {}

// BinaryOp is the operator of a binary expression.
type BinaryOp uint8

const (
	BinOpAdd        BinaryOp = iota // +
	BinOpSub                        // -
	BinOpMul                        // *
	BinOpDiv                        // /
	BinOpMod                        // %
	BinOpEqual                      // ==
	BinOpNotEqual                   // !=
	BinOpLess                       // <
	BinOpLessEqual                  // <=
	BinOpGreater                    // >
	BinOpGreaterEq                  // >=
	BinOpLogicalAnd                 // &&
	BinOpLogicalOr                  // ||
	BinOpBitAnd                     // &
	BinOpBitOr                      // |
	BinOpBitXor                     // ^
	BinOpShl                        // <<
	BinOpShr                        // >>
)

func (op BinaryOp) String() string {
	switch op {
	case BinOpAdd:
		return "+"
	case BinOpSub:
		return "-"
	case BinOpMul:
		return "*"
	case BinOpDiv:
		return "/"
	case BinOpMod:
		return "%"
	case BinOpEqual:
		return "=="
	case BinOpNotEqual:
		return "!="
	case BinOpLess:
		return "<"
	case BinOpLessEqual:
		return "<="
	case BinOpGreater:
		return ">"
	case BinOpGreaterEq:
		return ">="
	case BinOpLogicalAnd:
		return "&&"
	case BinOpLogicalOr:
		return "||"
	case BinOpBitAnd:
		return "&"
	case BinOpBitOr:
		return "|"
	case BinOpBitXor:
		return "^"
	case BinOpShl:
		return "<<"
	case BinOpShr:
		return ">>"
	default:
		return "?"
	}
}

// BinaryExpr represents a binary expression.
type BinaryExpr struct {
	LHS  ExprHandle
	Op   BinaryOp
	RHS  ExprHandle
	Span diag.Span
}

func (b *BinaryExpr) Pos() diag.Span { return b.Span }
func (b *BinaryExpr) exprNode()      {}

// UnaryOp is the operator of a unary expression.
type UnaryOp uint8

const (
	UnOpNegate     UnaryOp = iota // -
	UnOpLogicalNot                // !
	UnOpBitNot                    // ~
	UnOpAddressOf                 // &
	UnOpDeref                     // *
)

func (op UnaryOp) String() string {
	switch op {
	case UnOpNegate:
		return "-"
	case UnOpLogicalNot:
		return "!"
	case UnOpBitNot:
		return "~"
	case UnOpAddressOf:
		return "&"
	case UnOpDeref:
		return "*"
	default:
		return "?"
	}
}

// UnaryExpr represents a unary expression.
type UnaryExpr struct {
	Op      UnaryOp
	Operand ExprHandle
	Span    diag.Span
}

func (u *UnaryExpr) Pos() diag.Span { return u.Span }
func (u *UnaryExpr) exprNode()      {}

// CallExpr represents a call to a named function or builtin.
type CallExpr struct {
	Name string
	Args []ExprHandle
	Span diag.Span
}

func (c *CallExpr) Pos() diag.Span { return c.Span }
func (c *CallExpr) exprNode()      {}

// ConstructExpr represents a type constructor expression,
// e.g. vec3<f32>(1.0, 2.0, 3.0) or f32(x).
type ConstructExpr struct {
	Type TypeHandle
	Args []ExprHandle
	Span diag.Span
}

func (c *ConstructExpr) Pos() diag.Span { return c.Span }
func (c *ConstructExpr) exprNode()      {}

// BitcastExpr represents bitcast<T>(expr).
type BitcastExpr struct {
	Type TypeHandle
	Expr ExprHandle
	Span diag.Span
}

func (b *BitcastExpr) Pos() diag.Span { return b.Span }
func (b *BitcastExpr) exprNode()      {}

// IndexExpr represents an index expression.
type IndexExpr struct {
	Base  ExprHandle
	Index ExprHandle
	Span  diag.Span
}

func (i *IndexExpr) Pos() diag.Span { return i.Span }
func (i *IndexExpr) exprNode()      {}

// MemberExpr represents member access or a vector swizzle.
type MemberExpr struct {
	Base   ExprHandle
	Member string
	Span   diag.Span
}

func (m *MemberExpr) Pos() diag.Span { return m.Span }
func (m *MemberExpr) exprNode()      {}
