package wgsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/wgslc/diag"
	"github.com/gogpu/wgslc/ir"
)

// Sentinels used in semantic tables. semNoType marks an expression that
// could not be typed; semVoid marks a call with no result.
const (
	semNoType ir.TypeHandle = ^ir.TypeHandle(0)
	semVoid   ir.TypeHandle = ^ir.TypeHandle(0) - 1
)

// defaultMaxSemanticErrors bounds the diagnostics a single resolution pass
// can emit. Resolution continues past the cap but stops recording.
const defaultMaxSemanticErrors = 25

// SemInfo holds the results of resolving a Program: the interned type set,
// the type of every expression, and per-function caches.
type SemInfo struct {
	// Registry interns every type the program mentions. Handles in
	// SemInfo and in lowered IR index into this registry.
	Registry *ir.TypeRegistry

	// Functions is parallel to Program.Functions.
	Functions []*FunctionInfo

	exprTypes   []ir.TypeHandle
	typeHandles []ir.TypeHandle
	varTypes    map[*VarDecl]ir.TypeHandle
}

// TypeOf returns the resolved type of an expression. The second result is
// false when the expression produced no value or failed to resolve.
func (s *SemInfo) TypeOf(h ExprHandle) (ir.TypeHandle, bool) {
	if int(h) >= len(s.exprTypes) {
		return 0, false
	}
	t := s.exprTypes[h]
	if t == semNoType || t == semVoid {
		return 0, false
	}
	return t, true
}

// ResolvedType returns the interned type for a type expression.
func (s *SemInfo) ResolvedType(h TypeHandle) (ir.TypeHandle, bool) {
	if h == NoType || int(h) >= len(s.typeHandles) {
		return 0, false
	}
	t := s.typeHandles[h]
	if t == semNoType {
		return 0, false
	}
	return t, true
}

// GlobalVarType returns the resolved store type of a module-scope variable.
func (s *SemInfo) GlobalVarType(v *VarDecl) (ir.TypeHandle, bool) {
	t, ok := s.varTypes[v]
	return t, ok
}

// Function returns the info for a function declaration, or nil.
func (s *SemInfo) Function(decl *FunctionDecl) *FunctionInfo {
	for _, fi := range s.Functions {
		if fi.Decl == decl {
			return fi
		}
	}
	return nil
}

// FunctionByName returns the info for the named function, or nil.
func (s *SemInfo) FunctionByName(name string) *FunctionInfo {
	for _, fi := range s.Functions {
		if fi.Decl.Name == name {
			return fi
		}
	}
	return nil
}

// FunctionInfo carries the resolver's per-function caches.
type FunctionInfo struct {
	Decl *FunctionDecl

	// Stage is StageNone for helper functions.
	Stage ir.ShaderStage

	// WorkgroupSize defaults to 1x1x1 for compute entry points that do
	// not spell out every dimension.
	WorkgroupSize [3]uint32

	// ReturnType is semVoid for functions with no return type.
	ReturnType ir.TypeHandle

	ParamTypes []ir.TypeHandle

	// DirectRefGlobals are the module-scope variables the body references
	// directly, deduplicated by name in first-seen order.
	DirectRefGlobals []*VarDecl

	// RefGlobals additionally includes variables referenced through
	// called functions, transitively. Same ordering and dedup rules.
	RefGlobals []*VarDecl

	// AncestorEntryPoints are the entry points that reach this function
	// through the call graph, in first-discovery order. Empty for entry
	// points themselves.
	AncestorEntryPoints []*FunctionDecl

	callees []*FunctionInfo
	sem     *SemInfo
}

// IsEntryPoint reports whether the function carries a stage attribute.
func (fi *FunctionInfo) IsEntryPoint() bool { return fi.Stage != ir.StageNone }

// BoundVar pairs a referenced module variable with its resource binding.
type BoundVar struct {
	Var     *VarDecl
	Group   uint32
	Binding uint32
}

func (fi *FunctionInfo) boundVars(pred func(*VarDecl, ir.TypeInner) bool) []BoundVar {
	var out []BoundVar
	for _, v := range fi.RefGlobals {
		group, okG := v.Group()
		binding, okB := v.Binding()
		if !okG || !okB {
			continue
		}
		var inner ir.TypeInner
		if t, ok := fi.sem.varTypes[v]; ok {
			if typ, found := fi.sem.Registry.Lookup(t); found {
				inner = typ.Inner
			}
		}
		if pred(v, inner) {
			out = append(out, BoundVar{Var: v, Group: group, Binding: binding})
		}
	}
	return out
}

// ResourceVars returns every referenced module variable that carries both
// group and binding attributes.
func (fi *FunctionInfo) ResourceVars() []BoundVar {
	return fi.boundVars(func(*VarDecl, ir.TypeInner) bool { return true })
}

// UniformVars returns referenced uniform-buffer variables with bindings.
func (fi *FunctionInfo) UniformVars() []BoundVar {
	return fi.boundVars(func(v *VarDecl, _ ir.TypeInner) bool {
		return v.AddressSpace == "uniform"
	})
}

// StorageVars returns referenced storage-buffer variables with bindings.
func (fi *FunctionInfo) StorageVars() []BoundVar {
	return fi.boundVars(func(v *VarDecl, _ ir.TypeInner) bool {
		return v.AddressSpace == "storage"
	})
}

// SamplerVars returns referenced sampler variables of the given kind.
func (fi *FunctionInfo) SamplerVars(comparison bool) []BoundVar {
	return fi.boundVars(func(_ *VarDecl, inner ir.TypeInner) bool {
		s, ok := inner.(ir.SamplerType)
		return ok && s.Comparison == comparison
	})
}

// TextureVars returns referenced texture variables, split by sampling kind.
func (fi *FunctionInfo) TextureVars(multisampled bool) []BoundVar {
	return fi.boundVars(func(_ *VarDecl, inner ir.TypeInner) bool {
		img, ok := inner.(ir.ImageType)
		return ok && img.Multisampled == multisampled
	})
}

// LocationVars returns referenced module variables annotated @location.
func (fi *FunctionInfo) LocationVars() []*VarDecl {
	var out []*VarDecl
	for _, v := range fi.RefGlobals {
		for _, attr := range v.Attributes {
			if _, ok := attr.(*AttrLocation); ok {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// BuiltinVars returns referenced module variables annotated @builtin.
func (fi *FunctionInfo) BuiltinVars() []*VarDecl {
	var out []*VarDecl
	for _, v := range fi.RefGlobals {
		for _, attr := range v.Attributes {
			if _, ok := attr.(*AttrBuiltin); ok {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// Resolve performs semantic analysis on a parsed Program: name resolution
// through a scope stack, bottom-up expression typing, and the per-function
// caches described on FunctionInfo. Errors are recorded as diagnostics on
// the Program and resolution continues best-effort. The Program's Sem field
// is set even when errors were found, so partial results remain inspectable;
// callers gate lowering on IsValid.
func Resolve(p *Program) *SemInfo {
	r := newResolver(p)
	r.run()
	p.Sem = r.sem
	return r.sem
}

type symbolKind uint8

const (
	symVar symbolKind = iota
	symLet
	symConst
	symOverride
	symParam
	symFunc
	symType
)

type symbol struct {
	kind   symbolKind
	typ    ir.TypeHandle
	global *VarDecl      // set for module-scope var symbols
	fn     *FunctionInfo // set for function symbols
	init   ExprHandle    // initializer, for const evaluation
	span   diag.Span
}

type resolver struct {
	program *Program
	sem     *SemInfo
	scopes  []map[string]*symbol
	current *FunctionInfo

	errorCount int
	maxErrors  int

	// Cached scalar handles.
	typBool, typI32, typU32, typF32, typF16 ir.TypeHandle
	typAbstractInt, typAbstractFloat        ir.TypeHandle
}

func newResolver(p *Program) *resolver {
	reg := ir.NewTypeRegistry()
	r := &resolver{
		program: p,
		sem: &SemInfo{
			Registry:    reg,
			exprTypes:   make([]ir.TypeHandle, p.ExprCount()),
			typeHandles: make([]ir.TypeHandle, p.TypeCount()),
			varTypes:    make(map[*VarDecl]ir.TypeHandle),
		},
		maxErrors: defaultMaxSemanticErrors,
	}
	for i := range r.sem.exprTypes {
		r.sem.exprTypes[i] = semNoType
	}
	for i := range r.sem.typeHandles {
		r.sem.typeHandles[i] = semNoType
	}
	r.typBool = reg.GetOrCreate("bool", ir.ScalarType{Kind: ir.ScalarBool, Width: 1})
	r.typI32 = reg.GetOrCreate("i32", ir.ScalarType{Kind: ir.ScalarSint, Width: 4})
	r.typU32 = reg.GetOrCreate("u32", ir.ScalarType{Kind: ir.ScalarUint, Width: 4})
	r.typF32 = reg.GetOrCreate("f32", ir.ScalarType{Kind: ir.ScalarFloat, Width: 4})
	r.typF16 = reg.GetOrCreate("f16", ir.ScalarType{Kind: ir.ScalarFloat, Width: 2})
	r.typAbstractInt = reg.GetOrCreate("", ir.ScalarType{Kind: ir.ScalarAbstractInt, Width: 8})
	r.typAbstractFloat = reg.GetOrCreate("", ir.ScalarType{Kind: ir.ScalarAbstractFloat, Width: 8})
	return r
}

func (r *resolver) errorf(span diag.Span, format string, args ...interface{}) {
	r.errorCount++
	if r.errorCount > r.maxErrors {
		return
	}
	r.program.Diagnostics.AddErrorf(span, format, args...)
}

func (r *resolver) run() {
	r.pushScope()
	defer r.popScope()

	// Module-scope types first so later declarations can reference them.
	for _, s := range r.program.Structs {
		r.declareStruct(s)
	}
	for _, a := range r.program.Aliases {
		r.declareAlias(a)
	}

	for _, c := range r.program.Constants {
		r.declareConst(c)
	}
	for _, o := range r.program.Overrides {
		r.declareOverride(o)
	}
	r.declareGlobalVars()

	// Functions are declared before any body is resolved, so call order
	// in the source does not matter.
	for _, f := range r.program.Functions {
		r.declareFunction(f)
	}
	for i, f := range r.program.Functions {
		r.resolveFunctionBody(r.sem.Functions[i], f)
	}

	for _, ca := range r.program.ConstAsserts {
		t := r.exprType(ca.Expr)
		if t != semNoType && t != r.typBool {
			r.errorf(ca.Span, "const_assert condition must be bool, got %s", r.formatType(t))
		}
	}

	r.propagateRefGlobals()
	r.collectAncestorEntryPoints()
}

// Scopes

func (r *resolver) pushScope() {
	r.scopes = append(r.scopes, make(map[string]*symbol))
}

func (r *resolver) popScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *resolver) declare(name string, sym *symbol) {
	top := r.scopes[len(r.scopes)-1]
	if _, exists := top[name]; exists {
		r.errorf(sym.span, "redeclaration of %q", name)
		return
	}
	top[name] = sym
}

func (r *resolver) lookup(name string) *symbol {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if sym, ok := r.scopes[i][name]; ok {
			return sym
		}
	}
	return nil
}

// Module-scope declarations

func (r *resolver) declareStruct(s *StructDecl) {
	members := make([]ir.StructMember, len(s.Members))
	var offset uint32
	var maxAlign uint32 = 1
	for i, m := range s.Members {
		memberType := r.resolveTypeExpr(m.Type)
		if memberType == semNoType {
			return
		}
		align, size := r.typeAlignmentAndSize(memberType)
		for _, attr := range m.Attributes {
			switch a := attr.(type) {
			case *AttrAlign:
				if a.Value > align {
					align = a.Value
				}
			case *AttrSize:
				if a.Value > size {
					size = a.Value
				}
			}
		}
		if align > maxAlign {
			maxAlign = align
		}
		offset = (offset + align - 1) &^ (align - 1)
		members[i] = ir.StructMember{
			Name:    m.Name,
			Type:    memberType,
			Binding: memberBinding(m.Attributes),
			Offset:  offset,
		}
		offset += size
	}
	span := (offset + maxAlign - 1) &^ (maxAlign - 1)
	handle := r.sem.Registry.GetOrCreate(s.Name, ir.StructType{Members: members, Span: span})
	r.declare(s.Name, &symbol{kind: symType, typ: handle, span: s.Span})
}

func (r *resolver) declareAlias(a *AliasDecl) {
	target := r.resolveTypeExpr(a.Type)
	if target == semNoType {
		return
	}
	r.declare(a.Name, &symbol{kind: symType, typ: target, span: a.Span})
}

func (r *resolver) declareConst(c *ConstDecl) {
	t := r.declTypeAndInit(c.Type, c.Init, c.Span, "const "+c.Name)
	r.declare(c.Name, &symbol{kind: symConst, typ: t, init: c.Init, span: c.Span})
}

func (r *resolver) declareOverride(o *OverrideDecl) {
	init := o.Init
	t := semNoType
	if o.Type == NoType && init == NoExpr {
		r.errorf(o.Span, "override %s needs a type or an initializer", o.Name)
	} else {
		t = r.declTypeAndInit(o.Type, init, o.Span, "override "+o.Name)
	}
	r.declare(o.Name, &symbol{kind: symOverride, typ: t, init: init, span: o.Span})
}

// declTypeAndInit resolves the declared type, types the initializer, and
// checks the two against each other. Either may be absent.
func (r *resolver) declTypeAndInit(typeExpr TypeHandle, init ExprHandle, span diag.Span, what string) ir.TypeHandle {
	declared := semNoType
	if typeExpr != NoType {
		declared = r.resolveTypeExpr(typeExpr)
	}
	if init == NoExpr {
		return declared
	}
	initType := r.exprType(init)
	if initType == semNoType {
		return declared
	}
	if declared == semNoType {
		inferred := r.concretize(initType)
		r.setExprType(init, inferred)
		return inferred
	}
	if !r.convertible(initType, declared) {
		r.errorf(span, "cannot initialize %s of type %s with a value of type %s",
			what, r.formatType(declared), r.formatType(initType))
		return declared
	}
	r.setExprType(init, declared)
	return declared
}

func (r *resolver) declareGlobalVars() {
	seenBindings := make(map[uint64]*VarDecl)
	for _, v := range r.program.GlobalVars {
		t := r.declTypeAndInit(v.Type, v.Init, v.Span, "var "+v.Name)
		if t == semNoType && v.Init == NoExpr && v.Type == NoType {
			r.errorf(v.Span, "var %s needs a type or an initializer", v.Name)
		}
		if t != semNoType {
			r.sem.varTypes[v] = t
		}
		r.declare(v.Name, &symbol{kind: symVar, typ: t, global: v, span: v.Span})

		group, okG := v.Group()
		binding, okB := v.Binding()
		if okG && okB {
			key := uint64(group)<<32 | uint64(binding)
			if prev, dup := seenBindings[key]; dup {
				r.errorf(v.Span, "duplicate binding: @group(%d) @binding(%d) already used by %q",
					group, binding, prev.Name)
			} else {
				seenBindings[key] = v
			}
		}
	}
}

func (r *resolver) declareFunction(f *FunctionDecl) {
	fi := &FunctionInfo{
		Decl:          f,
		Stage:         stageFromString(f.Stage()),
		WorkgroupSize: [3]uint32{1, 1, 1},
		ReturnType:    semVoid,
		sem:           r.sem,
	}
	if f.ReturnType != NoType {
		fi.ReturnType = r.resolveTypeExpr(f.ReturnType)
	}
	fi.ParamTypes = make([]ir.TypeHandle, len(f.Params))
	for i, param := range f.Params {
		fi.ParamTypes[i] = r.resolveTypeExpr(param.Type)
	}
	if fi.Stage == ir.StageCompute {
		r.resolveWorkgroupSize(fi, f)
	}
	r.sem.Functions = append(r.sem.Functions, fi)
	r.declare(f.Name, &symbol{kind: symFunc, typ: fi.ReturnType, fn: fi, span: f.Span})
}

func (r *resolver) resolveWorkgroupSize(fi *FunctionInfo, f *FunctionDecl) {
	for _, attr := range f.Attributes {
		wg, ok := attr.(*AttrWorkgroupSize)
		if !ok {
			continue
		}
		dims := [3]ExprHandle{wg.X, wg.Y, wg.Z}
		for i, dim := range dims {
			if dim == NoExpr {
				continue
			}
			value, ok := r.evalConstUint(dim)
			if !ok {
				r.errorf(wg.Span, "workgroup size must be a constant integer expression")
				continue
			}
			fi.WorkgroupSize[i] = value
		}
	}
}

func stageFromString(stage string) ir.ShaderStage {
	switch stage {
	case "vertex":
		return ir.StageVertex
	case "fragment":
		return ir.StageFragment
	case "compute":
		return ir.StageCompute
	default:
		return ir.StageNone
	}
}

// Function bodies

func (r *resolver) resolveFunctionBody(fi *FunctionInfo, f *FunctionDecl) {
	r.current = fi
	defer func() { r.current = nil }()

	r.pushScope()
	defer r.popScope()

	for i, param := range f.Params {
		r.declare(param.Name, &symbol{kind: symParam, typ: fi.ParamTypes[i], span: param.Span})
	}
	if f.Body != NoStmt {
		r.resolveStmt(f.Body)
	}
}

func (r *resolver) resolveStmt(h StmtHandle) {
	switch s := r.program.Stmt(h).(type) {
	case *BlockStmt:
		r.pushScope()
		for _, child := range s.Stmts {
			r.resolveStmt(child)
		}
		r.popScope()

	case *DeclStmt:
		t := r.declTypeAndInit(s.Type, s.Init, s.Span, s.Kind.String()+" "+s.Name)
		if t == semNoType && s.Init == NoExpr && s.Type == NoType {
			r.errorf(s.Span, "%s %s needs a type or an initializer", s.Kind, s.Name)
		}
		kind := symVar
		switch s.Kind {
		case DeclLet:
			kind = symLet
		case DeclConst:
			kind = symConst
		}
		r.declare(s.Name, &symbol{kind: kind, typ: t, init: s.Init, span: s.Span})

	case *ReturnStmt:
		r.resolveReturn(s)

	case *IfStmt:
		r.requireBool(s.Cond, "if condition")
		r.resolveStmt(s.Body)
		if s.Else != NoStmt {
			r.resolveStmt(s.Else)
		}

	case *ForStmt:
		r.pushScope()
		if s.Init != NoStmt {
			r.resolveStmt(s.Init)
		}
		if s.Cond != NoExpr {
			r.requireBool(s.Cond, "for condition")
		}
		if s.Update != NoStmt {
			r.resolveStmt(s.Update)
		}
		r.resolveStmt(s.Body)
		r.popScope()

	case *WhileStmt:
		r.requireBool(s.Cond, "while condition")
		r.resolveStmt(s.Body)

	case *LoopStmt:
		r.resolveStmt(s.Body)
		if s.Continuing != NoStmt {
			r.resolveStmt(s.Continuing)
		}
		if s.BreakIf != NoExpr {
			r.requireBool(s.BreakIf, "break if condition")
		}

	case *SwitchStmt:
		selType := r.exprType(s.Selector)
		if selType != semNoType && !r.isIntegerScalar(selType) {
			r.errorf(s.Span, "switch selector must be an integer, got %s", r.formatType(selType))
		}
		for _, c := range s.Cases {
			for _, sel := range c.Selectors {
				t := r.exprType(sel)
				if t != semNoType && selType != semNoType && !r.convertibleEither(t, selType) {
					r.errorf(r.program.Expr(sel).Pos(), "case selector type %s does not match selector type %s",
						r.formatType(t), r.formatType(selType))
				}
			}
			r.resolveStmt(c.Body)
		}

	case *AssignStmt:
		r.resolveAssign(s)

	case *IncDecStmt:
		t := r.exprType(s.Target)
		if t != semNoType && !r.isIntegerScalar(t) {
			r.errorf(s.Span, "increment target must be an integer, got %s", r.formatType(t))
		}

	case *CallStmt:
		r.exprType(s.Call)

	case *ConstAssertStmt:
		t := r.exprType(s.Expr)
		if t != semNoType && t != r.typBool {
			r.errorf(s.Span, "const_assert condition must be bool, got %s", r.formatType(t))
		}

	case *BreakStmt, *ContinueStmt, *DiscardStmt:
		// Nothing to resolve.
	}
}

func (r *resolver) resolveReturn(s *ReturnStmt) {
	returnType := semVoid
	if r.current != nil {
		returnType = r.current.ReturnType
	}
	if s.Value == NoExpr {
		if returnType != semVoid && returnType != semNoType {
			r.errorf(s.Span, "missing return value, function returns %s", r.formatType(returnType))
		}
		return
	}
	valueType := r.exprType(s.Value)
	if returnType == semVoid {
		r.errorf(s.Span, "function has no return type but returns a value")
		return
	}
	if valueType == semNoType || returnType == semNoType {
		return
	}
	if !r.convertible(valueType, returnType) {
		r.errorf(s.Span, "cannot return %s from a function returning %s",
			r.formatType(valueType), r.formatType(returnType))
		return
	}
	r.setExprType(s.Value, returnType)
}

func (r *resolver) resolveAssign(s *AssignStmt) {
	rhsType := r.exprType(s.RHS)
	if s.Phony {
		return
	}
	lhsType := r.exprType(s.LHS)
	if lhsType == semNoType || rhsType == semNoType {
		return
	}
	if lhsType != semVoid {
		if inner, ok := r.inner(lhsType); ok {
			if ptr, isPtr := inner.(ir.PointerType); isPtr {
				lhsType = ptr.Base
			}
		}
	}
	if s.Op == AssignPlain {
		if !r.convertible(rhsType, lhsType) {
			r.errorf(s.Span, "cannot assign %s to %s", r.formatType(rhsType), r.formatType(lhsType))
			return
		}
		r.setExprType(s.RHS, lhsType)
		return
	}
	// Compound assignment applies the operator to the current value.
	if _, ok := r.unify(lhsType, rhsType); !ok {
		r.errorf(s.Span, "mismatched types for %s: %s and %s",
			s.Op, r.formatType(lhsType), r.formatType(rhsType))
	}
}

func (r *resolver) requireBool(h ExprHandle, what string) {
	t := r.exprType(h)
	if t != semNoType && t != r.typBool {
		r.errorf(r.program.Expr(h).Pos(), "%s must be bool, got %s", what, r.formatType(t))
	}
}

// Expression typing

func (r *resolver) setExprType(h ExprHandle, t ir.TypeHandle) {
	r.sem.exprTypes[h] = t
}

// exprType computes and records the type of an expression, bottom-up.
// semNoType means the expression failed to resolve and the error has been
// reported already.
func (r *resolver) exprType(h ExprHandle) ir.TypeHandle {
	t := r.typeExprUncached(h)
	r.setExprType(h, t)
	return t
}

func (r *resolver) typeExprUncached(h ExprHandle) ir.TypeHandle {
	switch e := r.program.Expr(h).(type) {
	case *IdentExpr:
		return r.identType(e)
	case *LiteralExpr:
		return r.literalType(e)
	case *UnaryExpr:
		return r.unaryType(e)
	case *BinaryExpr:
		return r.binaryType(e)
	case *CallExpr:
		return r.callType(e)
	case *ConstructExpr:
		return r.constructType(e)
	case *BitcastExpr:
		r.exprType(e.Expr)
		return r.resolveTypeExpr(e.Type)
	case *IndexExpr:
		return r.indexType(e)
	case *MemberExpr:
		return r.memberType(e)
	default:
		return semNoType
	}
}

func (r *resolver) identType(e *IdentExpr) ir.TypeHandle {
	sym := r.lookup(e.Name)
	if sym == nil {
		r.errorf(e.Span, "unresolved identifier %q", e.Name)
		return semNoType
	}
	if sym.kind == symFunc {
		r.errorf(e.Span, "%q is a function, not a value", e.Name)
		return semNoType
	}
	if sym.kind == symType {
		r.errorf(e.Span, "%q is a type, not a value", e.Name)
		return semNoType
	}
	if sym.global != nil && r.current != nil {
		r.current.addDirectRef(sym.global)
	}
	return sym.typ
}

func (fi *FunctionInfo) addDirectRef(v *VarDecl) {
	for _, existing := range fi.DirectRefGlobals {
		if existing.Name == v.Name {
			return
		}
	}
	fi.DirectRefGlobals = append(fi.DirectRefGlobals, v)
}

func (fi *FunctionInfo) addCallee(callee *FunctionInfo) {
	for _, existing := range fi.callees {
		if existing == callee {
			return
		}
	}
	fi.callees = append(fi.callees, callee)
}

func (r *resolver) literalType(e *LiteralExpr) ir.TypeHandle {
	switch e.Kind {
	case TokenTrue, TokenFalse:
		return r.typBool
	case TokenIntLiteral:
		switch {
		case strings.HasSuffix(e.Text, "u"):
			return r.typU32
		case strings.HasSuffix(e.Text, "i"):
			return r.typI32
		default:
			return r.typAbstractInt
		}
	case TokenFloatLiteral:
		switch {
		case strings.HasSuffix(e.Text, "f"):
			return r.typF32
		case strings.HasSuffix(e.Text, "h"):
			return r.typF16
		default:
			return r.typAbstractFloat
		}
	default:
		r.errorf(e.Span, "malformed literal %q", e.Text)
		return semNoType
	}
}

func (r *resolver) unaryType(e *UnaryExpr) ir.TypeHandle {
	operand := r.exprType(e.Operand)
	if operand == semNoType {
		return semNoType
	}
	switch e.Op {
	case UnOpNegate:
		if !r.isNumeric(operand) {
			r.errorf(e.Span, "cannot negate %s", r.formatType(operand))
			return semNoType
		}
		return operand
	case UnOpLogicalNot:
		if operand != r.typBool {
			r.errorf(e.Span, "operator ! needs bool, got %s", r.formatType(operand))
			return semNoType
		}
		return r.typBool
	case UnOpBitNot:
		if !r.isIntegerScalarOrVector(operand) {
			r.errorf(e.Span, "operator ~ needs an integer, got %s", r.formatType(operand))
			return semNoType
		}
		return operand
	case UnOpAddressOf:
		space := ir.SpaceFunction
		if ident, ok := r.program.Expr(e.Operand).(*IdentExpr); ok {
			if sym := r.lookup(ident.Name); sym != nil && sym.global != nil {
				space = addressSpaceFromString(sym.global.AddressSpace)
			}
		}
		concrete := r.concretize(operand)
		r.setExprType(e.Operand, concrete)
		return r.sem.Registry.GetOrCreate("", ir.PointerType{Base: concrete, Space: space})
	case UnOpDeref:
		inner, ok := r.inner(operand)
		if !ok {
			return semNoType
		}
		ptr, isPtr := inner.(ir.PointerType)
		if !isPtr {
			r.errorf(e.Span, "cannot dereference %s", r.formatType(operand))
			return semNoType
		}
		return ptr.Base
	default:
		return semNoType
	}
}

func (r *resolver) binaryType(e *BinaryExpr) ir.TypeHandle {
	left := r.exprType(e.LHS)
	right := r.exprType(e.RHS)
	if left == semNoType || right == semNoType {
		return semNoType
	}

	fail := func() ir.TypeHandle {
		r.errorf(e.Span, "mismatched types for operator %s: %s and %s",
			e.Op, r.formatType(left), r.formatType(right))
		return semNoType
	}

	switch e.Op {
	case BinOpAdd, BinOpSub, BinOpMul, BinOpDiv, BinOpMod:
		if e.Op == BinOpMul {
			if result, ok := r.linearAlgebraMulType(e, left, right); ok {
				return result
			}
		}
		result, ok := r.unify(left, right)
		if !ok || !r.isNumeric(result) {
			return fail()
		}
		r.setExprType(e.LHS, result)
		r.setExprType(e.RHS, result)
		return result

	case BinOpEqual, BinOpNotEqual, BinOpLess, BinOpLessEqual, BinOpGreater, BinOpGreaterEq:
		result, ok := r.unify(left, right)
		if !ok {
			return fail()
		}
		r.setExprType(e.LHS, result)
		r.setExprType(e.RHS, result)
		return r.boolOf(result)

	case BinOpLogicalAnd, BinOpLogicalOr:
		if left != r.typBool || right != r.typBool {
			return fail()
		}
		return r.typBool

	case BinOpBitAnd, BinOpBitOr, BinOpBitXor:
		result, ok := r.unify(left, right)
		if !ok || !r.isIntegerScalarOrVector(result) {
			return fail()
		}
		r.setExprType(e.LHS, result)
		r.setExprType(e.RHS, result)
		return result

	case BinOpShl, BinOpShr:
		if !r.isIntegerScalarOrVector(left) {
			return fail()
		}
		if !r.convertible(right, r.typU32) && !r.isIntegerScalarOrVector(right) {
			return fail()
		}
		result := r.concretize(left)
		r.setExprType(e.LHS, result)
		r.setExprType(e.RHS, r.concretize(right))
		return result

	default:
		return semNoType
	}
}

func (r *resolver) callType(e *CallExpr) ir.TypeHandle {
	argTypes := make([]ir.TypeHandle, len(e.Args))
	for i, arg := range e.Args {
		argTypes[i] = r.exprType(arg)
	}

	if sym := r.lookup(e.Name); sym != nil && sym.kind == symFunc {
		fi := sym.fn
		if r.current != nil {
			r.current.addCallee(fi)
		}
		if len(e.Args) != len(fi.Decl.Params) {
			r.errorf(e.Span, "%s expects %d arguments, got %d", e.Name, len(fi.Decl.Params), len(e.Args))
			return fi.ReturnType
		}
		for i, argType := range argTypes {
			want := fi.ParamTypes[i]
			if argType == semNoType || want == semNoType {
				continue
			}
			if !r.convertible(argType, want) {
				r.errorf(r.program.Expr(e.Args[i]).Pos(), "argument %d of %s: cannot convert %s to %s",
					i+1, e.Name, r.formatType(argType), r.formatType(want))
				continue
			}
			r.setExprType(e.Args[i], want)
		}
		return fi.ReturnType
	}

	if t, handled := r.builtinCallType(e, argTypes); handled {
		return t
	}

	r.errorf(e.Span, "unknown function %q", e.Name)
	return semNoType
}

func (r *resolver) constructType(e *ConstructExpr) ir.TypeHandle {
	target := r.inferredConstructType(e)
	if target == semNoType {
		target = r.resolveTypeExpr(e.Type)
	} else {
		r.sem.typeHandles[e.Type] = target
	}
	for _, arg := range e.Args {
		argType := r.exprType(arg)
		if argType != semNoType && r.isAbstract(argType) {
			// Materialize abstract arguments against the constructed
			// type's scalar where possible, else their defaults.
			if scalar, ok := r.scalarOf(target); ok && r.convertible(argType, scalar) {
				r.setExprType(arg, scalar)
			} else {
				r.setExprType(arg, r.concretize(argType))
			}
		}
	}
	return target
}

// inferredConstructType handles constructors whose element type is left to
// inference, such as vec3(1.0, 2.0, 3.0) or array(1, 2, 3). Returns
// semNoType when the constructed type is spelled out explicitly.
func (r *resolver) inferredConstructType(e *ConstructExpr) ir.TypeHandle {
	named, ok := r.program.TypeExpr(e.Type).(*NamedType)
	if !ok || len(named.TypeArgs) != 0 || len(e.Args) == 0 {
		return semNoType
	}

	elemOf := func() (ir.ScalarType, bool) {
		argType := r.exprType(e.Args[0])
		if argType == semNoType {
			return ir.ScalarType{}, false
		}
		scalarHandle, found := r.scalarOf(r.concretize(argType))
		if !found {
			return ir.ScalarType{}, false
		}
		inner, _ := r.inner(scalarHandle)
		scalar, isScalar := inner.(ir.ScalarType)
		return scalar, isScalar
	}

	if size, isVec := vectorSizeOfName(named.Name); isVec {
		scalar, found := elemOf()
		if !found {
			return semNoType
		}
		return r.sem.Registry.GetOrCreate("", ir.VectorType{Size: size, Scalar: scalar})
	}
	if cols, rows, isMat := matrixShapeOfName(named.Name); isMat {
		return r.sem.Registry.GetOrCreate("", ir.MatrixType{Columns: cols, Rows: rows, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}})
	}
	if named.Name == "array" {
		argType := r.exprType(e.Args[0])
		if argType == semNoType {
			return semNoType
		}
		elem := r.concretize(argType)
		_, elemSize := r.typeAlignmentAndSize(elem)
		count := uint32(len(e.Args))
		return r.sem.Registry.GetOrCreate("", ir.ArrayType{
			Base:   elem,
			Size:   ir.ArraySize{Constant: &count},
			Stride: (elemSize + 15) &^ 15,
		})
	}
	return semNoType
}

func (r *resolver) indexType(e *IndexExpr) ir.TypeHandle {
	base := r.exprType(e.Base)
	index := r.exprType(e.Index)
	if index != semNoType {
		if !r.isIntegerScalar(index) {
			r.errorf(r.program.Expr(e.Index).Pos(), "index must be an integer, got %s", r.formatType(index))
		} else {
			r.setExprType(e.Index, r.concretize(index))
		}
	}
	if base == semNoType {
		return semNoType
	}
	inner, ok := r.inner(base)
	if !ok {
		return semNoType
	}
	if ptr, isPtr := inner.(ir.PointerType); isPtr {
		if pointee, found := r.inner(ptr.Base); found {
			inner = pointee
		}
	}
	switch t := inner.(type) {
	case ir.ArrayType:
		return t.Base
	case ir.VectorType:
		return r.sem.Registry.GetOrCreate("", t.Scalar)
	case ir.MatrixType:
		return r.sem.Registry.GetOrCreate("", ir.VectorType{Size: t.Rows, Scalar: t.Scalar})
	default:
		r.errorf(e.Span, "cannot index %s", r.formatType(base))
		return semNoType
	}
}

func (r *resolver) memberType(e *MemberExpr) ir.TypeHandle {
	base := r.exprType(e.Base)
	if base == semNoType {
		return semNoType
	}
	inner, ok := r.inner(base)
	if !ok {
		return semNoType
	}
	if ptr, isPtr := inner.(ir.PointerType); isPtr {
		if pointee, found := r.inner(ptr.Base); found {
			inner = pointee
		}
	}
	switch t := inner.(type) {
	case ir.StructType:
		for _, m := range t.Members {
			if m.Name == e.Member {
				return m.Type
			}
		}
		r.errorf(e.Span, "%s has no member %q", r.formatType(base), e.Member)
		return semNoType
	case ir.VectorType:
		return r.swizzleType(e, t)
	default:
		r.errorf(e.Span, "%s has no members", r.formatType(base))
		return semNoType
	}
}

func (r *resolver) swizzleType(e *MemberExpr, vec ir.VectorType) ir.TypeHandle {
	if len(e.Member) < 1 || len(e.Member) > 4 {
		r.errorf(e.Span, "invalid swizzle %q", e.Member)
		return semNoType
	}
	for _, c := range e.Member {
		idx := swizzleComponentIndex(byte(c))
		if idx < 0 || idx >= int(vec.Size) {
			r.errorf(e.Span, "invalid swizzle component %q for %s", string(c), r.formatType(r.sem.Registry.GetOrCreate("", vec)))
			return semNoType
		}
	}
	if len(e.Member) == 1 {
		return r.sem.Registry.GetOrCreate("", vec.Scalar)
	}
	return r.sem.Registry.GetOrCreate("", ir.VectorType{Size: ir.VectorSize(len(e.Member)), Scalar: vec.Scalar})
}

func swizzleComponentIndex(c byte) int {
	switch c {
	case 'x', 'r':
		return 0
	case 'y', 'g':
		return 1
	case 'z', 'b':
		return 2
	case 'w', 'a':
		return 3
	default:
		return -1
	}
}

// Builtin calls

func (r *resolver) builtinCallType(e *CallExpr, argTypes []ir.TypeHandle) (ir.TypeHandle, bool) {
	name := e.Name
	firstArg := func() ir.TypeHandle {
		if len(argTypes) == 0 || argTypes[0] == semNoType {
			return semNoType
		}
		t := r.concretize(argTypes[0])
		r.setExprType(e.Args[0], t)
		return t
	}

	switch name {
	case "dot":
		t := firstArg()
		if scalar, ok := r.scalarOf(t); ok {
			return scalar, true
		}
		return semNoType, true
	case "length", "distance", "determinant":
		t := firstArg()
		if scalar, ok := r.scalarOf(t); ok {
			return scalar, true
		}
		return t, true
	case "all", "any":
		return r.typBool, true
	case "select":
		if len(argTypes) >= 1 {
			return firstArg(), true
		}
		return semNoType, true
	case "arrayLength":
		return r.typU32, true
	case "transpose":
		t := firstArg()
		if inner, ok := r.inner(t); ok {
			if m, isMat := inner.(ir.MatrixType); isMat {
				return r.sem.Registry.GetOrCreate("", ir.MatrixType{Columns: m.Rows, Rows: m.Columns, Scalar: m.Scalar}), true
			}
		}
		return t, true
	case "dpdx", "dpdy", "fwidth",
		"dpdxCoarse", "dpdyCoarse", "fwidthCoarse",
		"dpdxFine", "dpdyFine", "fwidthFine":
		return firstArg(), true
	case "textureSample", "textureSampleLevel", "textureSampleBias", "textureSampleGrad":
		return r.vec4F32(), true
	case "textureSampleCompare", "textureSampleCompareLevel":
		return r.typF32, true
	case "textureLoad":
		return r.vec4F32(), true
	case "textureStore":
		return semVoid, true
	case "textureDimensions":
		return r.textureDimensionsType(argTypes), true
	case "textureNumLevels", "textureNumLayers", "textureNumSamples":
		return r.typU32, true
	case "atomicLoad", "atomicAdd", "atomicSub", "atomicMin", "atomicMax",
		"atomicAnd", "atomicOr", "atomicXor", "atomicExchange":
		return r.atomicResultType(e, argTypes), true
	case "atomicStore":
		return semVoid, true
	case "workgroupBarrier", "storageBarrier", "textureBarrier":
		return semVoid, true
	case "pack4x8snorm", "pack4x8unorm", "pack2x16snorm", "pack2x16unorm", "pack2x16float":
		return r.typU32, true
	case "unpack4x8snorm", "unpack4x8unorm":
		return r.vec4F32(), true
	case "unpack2x16snorm", "unpack2x16unorm", "unpack2x16float":
		return r.sem.Registry.GetOrCreate("", ir.VectorType{Size: ir.Vec2, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}}), true
	}

	if _, ok := mathFuncTable[name]; ok {
		t := firstArg()
		for i := 1; i < len(e.Args); i++ {
			if argTypes[i] != semNoType && r.isAbstract(argTypes[i]) {
				r.setExprType(e.Args[i], r.concretize(argTypes[i]))
			}
		}
		return t, true
	}
	return semNoType, false
}

func (r *resolver) vec4F32() ir.TypeHandle {
	return r.sem.Registry.GetOrCreate("", ir.VectorType{Size: ir.Vec4, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}})
}

func (r *resolver) textureDimensionsType(argTypes []ir.TypeHandle) ir.TypeHandle {
	if len(argTypes) > 0 && argTypes[0] != semNoType {
		if inner, ok := r.inner(argTypes[0]); ok {
			if img, isImg := inner.(ir.ImageType); isImg {
				switch img.Dim {
				case ir.Dim1D:
					return r.typU32
				case ir.Dim3D:
					return r.sem.Registry.GetOrCreate("", ir.VectorType{Size: ir.Vec3, Scalar: ir.ScalarType{Kind: ir.ScalarUint, Width: 4}})
				}
			}
		}
	}
	return r.sem.Registry.GetOrCreate("", ir.VectorType{Size: ir.Vec2, Scalar: ir.ScalarType{Kind: ir.ScalarUint, Width: 4}})
}

func (r *resolver) atomicResultType(e *CallExpr, argTypes []ir.TypeHandle) ir.TypeHandle {
	if len(argTypes) == 0 || argTypes[0] == semNoType {
		return semNoType
	}
	inner, ok := r.inner(argTypes[0])
	if !ok {
		return semNoType
	}
	if ptr, isPtr := inner.(ir.PointerType); isPtr {
		if pointee, found := r.inner(ptr.Base); found {
			inner = pointee
		}
	}
	atomic, isAtomic := inner.(ir.AtomicType)
	if !isAtomic {
		r.errorf(e.Span, "%s needs a pointer to an atomic, got %s", e.Name, r.formatType(argTypes[0]))
		return semNoType
	}
	return r.sem.Registry.GetOrCreate("", atomic.Scalar)
}

// Type expressions

func (r *resolver) resolveTypeExpr(h TypeHandle) ir.TypeHandle {
	if h == NoType {
		return semNoType
	}
	switch t := r.program.TypeExpr(h).(type) {
	case *NamedType:
		resolved := r.resolveNamedType(t)
		r.sem.typeHandles[h] = resolved
		return resolved
	case *ArrayType:
		elem := r.resolveTypeExpr(t.Element)
		if elem == semNoType {
			return semNoType
		}
		size := ir.ArraySize{}
		if t.Count != NoExpr {
			count, ok := r.evalConstUint(t.Count)
			if !ok {
				r.errorf(t.Span, "array size must be a constant integer expression")
				return semNoType
			}
			size.Constant = &count
		}
		_, elemSize := r.typeAlignmentAndSize(elem)
		stride := (elemSize + 15) &^ 15
		resolved := r.sem.Registry.GetOrCreate("", ir.ArrayType{Base: elem, Size: size, Stride: stride})
		r.sem.typeHandles[h] = resolved
		return resolved
	case *PtrType:
		elem := r.resolveTypeExpr(t.Element)
		if elem == semNoType {
			return semNoType
		}
		resolved := r.sem.Registry.GetOrCreate("", ir.PointerType{
			Base:  elem,
			Space: addressSpaceFromString(t.AddressSpace),
		})
		r.sem.typeHandles[h] = resolved
		return resolved
	default:
		return semNoType
	}
}

func (r *resolver) resolveNamedType(t *NamedType) ir.TypeHandle {
	switch t.Name {
	case "bool":
		return r.typBool
	case "i32":
		return r.typI32
	case "u32":
		return r.typU32
	case "f32":
		return r.typF32
	case "f16":
		return r.typF16
	case "sampler":
		return r.sem.Registry.GetOrCreate("sampler", ir.SamplerType{})
	case "sampler_comparison":
		return r.sem.Registry.GetOrCreate("sampler_comparison", ir.SamplerType{Comparison: true})
	}

	if size, ok := vectorSizeOfName(t.Name); ok {
		scalar, found := r.scalarTypeArg(t, 0)
		if !found {
			r.errorf(t.Span, "%s needs a scalar type argument", t.Name)
			return semNoType
		}
		return r.sem.Registry.GetOrCreate("", ir.VectorType{Size: size, Scalar: scalar})
	}

	if cols, rows, ok := matrixShapeOfName(t.Name); ok {
		scalar := ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}
		if s, found := r.scalarTypeArg(t, 0); found {
			scalar = s
		}
		return r.sem.Registry.GetOrCreate("", ir.MatrixType{Columns: cols, Rows: rows, Scalar: scalar})
	}

	if t.Name == "atomic" {
		scalar, found := r.scalarTypeArg(t, 0)
		if !found {
			r.errorf(t.Span, "atomic needs a scalar type argument")
			return semNoType
		}
		return r.sem.Registry.GetOrCreate("", ir.AtomicType{Scalar: scalar})
	}

	if strings.HasPrefix(t.Name, "texture_") {
		return r.sem.Registry.GetOrCreate(t.Name, r.textureTypeInner(t))
	}

	if sym := r.lookup(t.Name); sym != nil && sym.kind == symType {
		return sym.typ
	}

	r.errorf(t.Span, "unknown type %q", t.Name)
	return semNoType
}

func (r *resolver) scalarTypeArg(t *NamedType, index int) (ir.ScalarType, bool) {
	if index >= len(t.TypeArgs) {
		return ir.ScalarType{}, false
	}
	resolved := r.resolveTypeExpr(t.TypeArgs[index])
	if resolved == semNoType {
		return ir.ScalarType{}, false
	}
	inner, ok := r.inner(resolved)
	if !ok {
		return ir.ScalarType{}, false
	}
	scalar, isScalar := inner.(ir.ScalarType)
	return scalar, isScalar
}

func vectorSizeOfName(name string) (ir.VectorSize, bool) {
	switch name {
	case "vec2":
		return ir.Vec2, true
	case "vec3":
		return ir.Vec3, true
	case "vec4":
		return ir.Vec4, true
	default:
		return 0, false
	}
}

func matrixShapeOfName(name string) (cols, rows ir.VectorSize, ok bool) {
	if len(name) != 6 || !strings.HasPrefix(name, "mat") || name[4] != 'x' {
		return 0, 0, false
	}
	c := int(name[3] - '0')
	rw := int(name[5] - '0')
	if c < 2 || c > 4 || rw < 2 || rw > 4 {
		return 0, 0, false
	}
	return ir.VectorSize(c), ir.VectorSize(rw), true
}

// textureTypeInner derives an ImageType from a texture type name such as
// texture_2d<f32>, texture_storage_2d<rgba8unorm, write>, or
// texture_depth_cube_array.
func (r *resolver) textureTypeInner(t *NamedType) ir.ImageType {
	name := t.Name
	img := ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassSampled}

	switch {
	case strings.HasPrefix(name, "texture_storage_"):
		img.Class = ir.ImageClassStorage
		suffix := name[len("texture_storage_"):]
		img.Dim = textureDimFromSuffix(suffix)
		img.Arrayed = strings.Contains(suffix, "_array")
		img.StorageAccess = ir.StorageAccessWrite
		if len(t.TypeArgs) >= 1 {
			if named, ok := r.program.TypeExpr(t.TypeArgs[0]).(*NamedType); ok {
				if format, known := storageFormatTable[named.Name]; known {
					img.StorageFormat = format
				} else {
					r.errorf(named.Span, "unknown storage texel format %q", named.Name)
				}
			}
		}
		if len(t.TypeArgs) >= 2 {
			if named, ok := r.program.TypeExpr(t.TypeArgs[1]).(*NamedType); ok {
				img.StorageAccess = storageAccessFromString(named.Name)
			}
		}
	case strings.HasPrefix(name, "texture_depth_"):
		img.Class = ir.ImageClassDepth
		suffix := name[len("texture_depth_"):]
		img.Dim = textureDimFromSuffix(suffix)
		img.Arrayed = strings.Contains(suffix, "_array")
		img.Multisampled = strings.Contains(suffix, "multisampled")
	case strings.HasPrefix(name, "texture_multisampled_"):
		img.Multisampled = true
		img.Dim = textureDimFromSuffix(name[len("texture_multisampled_"):])
	default:
		suffix := name[len("texture_"):]
		img.Dim = textureDimFromSuffix(suffix)
		img.Arrayed = strings.Contains(suffix, "_array")
	}
	return img
}

func textureDimFromSuffix(suffix string) ir.ImageDimension {
	switch {
	case strings.HasPrefix(suffix, "1d"):
		return ir.Dim1D
	case strings.HasPrefix(suffix, "3d"):
		return ir.Dim3D
	case strings.HasPrefix(suffix, "cube"):
		return ir.DimCube
	default:
		return ir.Dim2D
	}
}

func addressSpaceFromString(space string) ir.AddressSpace {
	switch space {
	case "private":
		return ir.SpacePrivate
	case "workgroup":
		return ir.SpaceWorkGroup
	case "uniform":
		return ir.SpaceUniform
	case "storage":
		return ir.SpaceStorage
	case "push_constant":
		return ir.SpacePushConstant
	case "handle":
		return ir.SpaceHandle
	default:
		return ir.SpaceFunction
	}
}

func storageAccessFromString(access string) ir.StorageAccess {
	switch access {
	case "read":
		return ir.StorageAccessRead
	case "read_write":
		return ir.StorageAccessReadWrite
	default:
		return ir.StorageAccessWrite
	}
}

func memberBinding(attrs []Attribute) *ir.Binding {
	for _, attr := range attrs {
		switch a := attr.(type) {
		case *AttrBuiltin:
			var b ir.Binding = ir.BuiltinBinding{Builtin: builtinValueFromString(a.Name)}
			return &b
		case *AttrLocation:
			var b ir.Binding = ir.LocationBinding{Location: a.Value}
			return &b
		}
	}
	return nil
}

func builtinValueFromString(name string) ir.BuiltinValue {
	switch name {
	case "position":
		return ir.BuiltinPosition
	case "vertex_index":
		return ir.BuiltinVertexIndex
	case "instance_index":
		return ir.BuiltinInstanceIndex
	case "front_facing":
		return ir.BuiltinFrontFacing
	case "frag_depth":
		return ir.BuiltinFragDepth
	case "sample_index":
		return ir.BuiltinSampleIndex
	case "sample_mask":
		return ir.BuiltinSampleMask
	case "local_invocation_id":
		return ir.BuiltinLocalInvocationID
	case "local_invocation_index":
		return ir.BuiltinLocalInvocationIndex
	case "global_invocation_id":
		return ir.BuiltinGlobalInvocationID
	case "workgroup_id":
		return ir.BuiltinWorkGroupID
	case "num_workgroups":
		return ir.BuiltinNumWorkGroups
	default:
		return ir.BuiltinPosition
	}
}

// Type predicates and conversion

// linearAlgebraMulType handles the matrix forms of the * operator:
// matrix*vector, vector*matrix, matrix*matrix, and matrix*scalar in
// either order. Reports false when neither operand is a matrix, leaving
// the component-wise path to handle the expression.
func (r *resolver) linearAlgebraMulType(e *BinaryExpr, left, right ir.TypeHandle) (ir.TypeHandle, bool) {
	li, lok := r.inner(r.concretize(left))
	ri, rok := r.inner(r.concretize(right))
	if !lok || !rok {
		return semNoType, false
	}
	lm, leftIsMat := li.(ir.MatrixType)
	rm, rightIsMat := ri.(ir.MatrixType)
	if !leftIsMat && !rightIsMat {
		return semNoType, false
	}

	fail := func() (ir.TypeHandle, bool) {
		r.errorf(e.Span, "mismatched types for operator *: %s and %s",
			r.formatType(left), r.formatType(right))
		return semNoType, true
	}
	materialize := func() {
		r.setExprType(e.LHS, r.concretize(left))
		r.setExprType(e.RHS, r.concretize(right))
	}

	switch {
	case leftIsMat && rightIsMat:
		// colsN x rowsK * colsM x rowsN
		if lm.Columns != rm.Rows || lm.Scalar != rm.Scalar {
			return fail()
		}
		materialize()
		return r.sem.Registry.GetOrCreate("", ir.MatrixType{
			Columns: rm.Columns,
			Rows:    lm.Rows,
			Scalar:  lm.Scalar,
		}), true

	case leftIsMat:
		switch rt := ri.(type) {
		case ir.VectorType:
			if lm.Columns != rt.Size || lm.Scalar != rt.Scalar {
				return fail()
			}
			materialize()
			return r.sem.Registry.GetOrCreate("", ir.VectorType{Size: lm.Rows, Scalar: lm.Scalar}), true
		case ir.ScalarType:
			if lm.Scalar != rt {
				return fail()
			}
			materialize()
			return r.concretize(left), true
		}
		return fail()

	default: // rightIsMat
		switch lt := li.(type) {
		case ir.VectorType:
			if rm.Rows != lt.Size || rm.Scalar != lt.Scalar {
				return fail()
			}
			materialize()
			return r.sem.Registry.GetOrCreate("", ir.VectorType{Size: rm.Columns, Scalar: rm.Scalar}), true
		case ir.ScalarType:
			if rm.Scalar != lt {
				return fail()
			}
			materialize()
			return r.concretize(right), true
		}
		return fail()
	}
}

func (r *resolver) inner(h ir.TypeHandle) (ir.TypeInner, bool) {
	if h == semNoType || h == semVoid {
		return nil, false
	}
	typ, ok := r.sem.Registry.Lookup(h)
	if !ok {
		return nil, false
	}
	return typ.Inner, true
}

func (r *resolver) isAbstract(h ir.TypeHandle) bool {
	inner, ok := r.inner(h)
	if !ok {
		return false
	}
	switch t := inner.(type) {
	case ir.ScalarType:
		return t.Kind.IsAbstract()
	case ir.VectorType:
		return t.Scalar.Kind.IsAbstract()
	default:
		return false
	}
}

func (r *resolver) isNumeric(h ir.TypeHandle) bool {
	inner, ok := r.inner(h)
	if !ok {
		return false
	}
	switch t := inner.(type) {
	case ir.ScalarType:
		return t.Kind != ir.ScalarBool
	case ir.VectorType:
		return t.Scalar.Kind != ir.ScalarBool
	case ir.MatrixType:
		return true
	default:
		return false
	}
}

func (r *resolver) isIntegerScalar(h ir.TypeHandle) bool {
	inner, ok := r.inner(h)
	if !ok {
		return false
	}
	s, isScalar := inner.(ir.ScalarType)
	if !isScalar {
		return false
	}
	return s.Kind == ir.ScalarSint || s.Kind == ir.ScalarUint || s.Kind == ir.ScalarAbstractInt
}

func (r *resolver) isIntegerScalarOrVector(h ir.TypeHandle) bool {
	if r.isIntegerScalar(h) {
		return true
	}
	inner, ok := r.inner(h)
	if !ok {
		return false
	}
	v, isVec := inner.(ir.VectorType)
	if !isVec {
		return false
	}
	return v.Scalar.Kind == ir.ScalarSint || v.Scalar.Kind == ir.ScalarUint || v.Scalar.Kind == ir.ScalarAbstractInt
}

// scalarOf returns the scalar component type of a scalar or vector type.
func (r *resolver) scalarOf(h ir.TypeHandle) (ir.TypeHandle, bool) {
	inner, ok := r.inner(h)
	if !ok {
		return semNoType, false
	}
	switch t := inner.(type) {
	case ir.ScalarType:
		return h, true
	case ir.VectorType:
		return r.sem.Registry.GetOrCreate("", t.Scalar), true
	default:
		return semNoType, false
	}
}

// boolOf returns bool for a scalar type and vecN<bool> for a vector type.
func (r *resolver) boolOf(h ir.TypeHandle) ir.TypeHandle {
	if inner, ok := r.inner(h); ok {
		if v, isVec := inner.(ir.VectorType); isVec {
			return r.sem.Registry.GetOrCreate("", ir.VectorType{Size: v.Size, Scalar: ir.ScalarType{Kind: ir.ScalarBool, Width: 1}})
		}
	}
	return r.typBool
}

// concretize materializes abstract numerics to their defaults: abstract-int
// becomes i32, abstract-float becomes f32. Concrete types pass through.
func (r *resolver) concretize(h ir.TypeHandle) ir.TypeHandle {
	inner, ok := r.inner(h)
	if !ok {
		return h
	}
	switch t := inner.(type) {
	case ir.ScalarType:
		switch t.Kind {
		case ir.ScalarAbstractInt:
			return r.typI32
		case ir.ScalarAbstractFloat:
			return r.typF32
		}
	case ir.VectorType:
		switch t.Scalar.Kind {
		case ir.ScalarAbstractInt:
			return r.sem.Registry.GetOrCreate("", ir.VectorType{Size: t.Size, Scalar: ir.ScalarType{Kind: ir.ScalarSint, Width: 4}})
		case ir.ScalarAbstractFloat:
			return r.sem.Registry.GetOrCreate("", ir.VectorType{Size: t.Size, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}})
		}
	}
	return h
}

// convertible reports whether a value of type from can be used where type
// to is expected. Identity always converts; abstract-int converts to any
// numeric; abstract-float converts to floating types only.
func (r *resolver) convertible(from, to ir.TypeHandle) bool {
	if from == to {
		return true
	}
	fromInner, okF := r.inner(from)
	toInner, okT := r.inner(to)
	if !okF || !okT {
		return false
	}
	switch f := fromInner.(type) {
	case ir.ScalarType:
		t, isScalar := toInner.(ir.ScalarType)
		if !isScalar {
			return false
		}
		return scalarConvertible(f.Kind, t.Kind)
	case ir.VectorType:
		t, isVec := toInner.(ir.VectorType)
		if !isVec || t.Size != f.Size {
			return false
		}
		if f.Scalar == t.Scalar {
			return true
		}
		return scalarConvertible(f.Scalar.Kind, t.Scalar.Kind)
	default:
		return false
	}
}

func scalarConvertible(from, to ir.ScalarKind) bool {
	switch from {
	case ir.ScalarAbstractInt:
		return to == ir.ScalarSint || to == ir.ScalarUint || to == ir.ScalarFloat || to == ir.ScalarAbstractFloat
	case ir.ScalarAbstractFloat:
		return to == ir.ScalarFloat
	default:
		return false
	}
}

func (r *resolver) convertibleEither(a, b ir.TypeHandle) bool {
	return r.convertible(a, b) || r.convertible(b, a)
}

// unify finds the common type of two operands, materializing abstract
// numerics toward the concrete side, and handling mixed scalar/vector
// operands by broadcasting the scalar.
func (r *resolver) unify(left, right ir.TypeHandle) (ir.TypeHandle, bool) {
	if left == right {
		return left, true
	}
	if r.convertible(left, right) {
		return right, true
	}
	if r.convertible(right, left) {
		return left, true
	}
	if both, ok := r.unifyAbstract(left, right); ok {
		return both, true
	}

	leftInner, okL := r.inner(left)
	rightInner, okR := r.inner(right)
	if !okL || !okR {
		return semNoType, false
	}
	if v, isVec := leftInner.(ir.VectorType); isVec {
		if scalar, ok := r.scalarOf(right); ok {
			vecScalar := r.sem.Registry.GetOrCreate("", v.Scalar)
			if unified, found := r.unify(vecScalar, scalar); found {
				return r.vectorOf(v.Size, unified), true
			}
		}
	}
	if v, isVec := rightInner.(ir.VectorType); isVec {
		if scalar, ok := r.scalarOf(left); ok {
			vecScalar := r.sem.Registry.GetOrCreate("", v.Scalar)
			if unified, found := r.unify(scalar, vecScalar); found {
				return r.vectorOf(v.Size, unified), true
			}
		}
	}
	return semNoType, false
}

// unifyAbstract handles abstract-int with abstract-float, which unify to
// abstract-float.
func (r *resolver) unifyAbstract(left, right ir.TypeHandle) (ir.TypeHandle, bool) {
	if left == r.typAbstractInt && right == r.typAbstractFloat ||
		left == r.typAbstractFloat && right == r.typAbstractInt {
		return r.typAbstractFloat, true
	}
	return semNoType, false
}

func (r *resolver) vectorOf(size ir.VectorSize, scalar ir.TypeHandle) ir.TypeHandle {
	if inner, ok := r.inner(scalar); ok {
		if s, isScalar := inner.(ir.ScalarType); isScalar {
			return r.sem.Registry.GetOrCreate("", ir.VectorType{Size: size, Scalar: s})
		}
	}
	return semNoType
}

// Constant evaluation, enough for array sizes and workgroup dimensions.

func (r *resolver) evalConstUint(h ExprHandle) (uint32, bool) {
	switch e := r.program.Expr(h).(type) {
	case *LiteralExpr:
		if e.Kind != TokenIntLiteral {
			return 0, false
		}
		text := strings.TrimSuffix(strings.TrimSuffix(e.Text, "u"), "i")
		value, err := strconv.ParseUint(text, 0, 32)
		if err != nil {
			return 0, false
		}
		return uint32(value), true
	case *IdentExpr:
		sym := r.lookup(e.Name)
		if sym == nil || (sym.kind != symConst && sym.kind != symOverride) || sym.init == NoExpr {
			return 0, false
		}
		return r.evalConstUint(sym.init)
	default:
		return 0, false
	}
}

// Layout, following WGSL uniform-buffer alignment rules.

func (r *resolver) typeAlignmentAndSize(handle ir.TypeHandle) (align, size uint32) {
	inner, ok := r.inner(handle)
	if !ok {
		return 4, 4
	}
	switch t := inner.(type) {
	case ir.ScalarType:
		return 4, 4
	case ir.VectorType:
		switch t.Size {
		case ir.Vec2:
			return 8, 8
		case ir.Vec3:
			return 16, 12
		default:
			return 16, 16
		}
	case ir.MatrixType:
		colAlign, colSize := vectorLayout(t.Rows)
		return colAlign, colSize * uint32(t.Columns)
	case ir.ArrayType:
		elemAlign, elemSize := r.typeAlignmentAndSize(t.Base)
		stride := (elemSize + 15) &^ 15
		if elemAlign < 16 {
			elemAlign = 16
		}
		if t.Size.Constant != nil {
			return elemAlign, stride * *t.Size.Constant
		}
		return elemAlign, stride
	case ir.StructType:
		var maxAlign uint32 = 1
		for _, m := range t.Members {
			memberAlign, _ := r.typeAlignmentAndSize(m.Type)
			if memberAlign > maxAlign {
				maxAlign = memberAlign
			}
		}
		return maxAlign, t.Span
	case ir.AtomicType:
		return 4, 4
	default:
		return 4, 4
	}
}

func vectorLayout(components ir.VectorSize) (align, size uint32) {
	switch components {
	case ir.Vec2:
		return 8, 8
	case ir.Vec3:
		return 16, 12
	case ir.Vec4:
		return 16, 16
	default:
		return 4, 4
	}
}

// Call-graph fixed points

// propagateRefGlobals merges callee reference sets into callers until no
// set grows, yielding the transitive referenced-variable cache.
func (r *resolver) propagateRefGlobals() {
	for _, fi := range r.sem.Functions {
		fi.RefGlobals = append([]*VarDecl(nil), fi.DirectRefGlobals...)
	}
	for changed := true; changed; {
		changed = false
		for _, fi := range r.sem.Functions {
			for _, callee := range fi.callees {
				for _, v := range callee.RefGlobals {
					if fi.addRefGlobal(v) {
						changed = true
					}
				}
			}
		}
	}
}

func (fi *FunctionInfo) addRefGlobal(v *VarDecl) bool {
	for _, existing := range fi.RefGlobals {
		if existing.Name == v.Name {
			return false
		}
	}
	fi.RefGlobals = append(fi.RefGlobals, v)
	return true
}

// collectAncestorEntryPoints walks the call graph from each entry point in
// declaration order and records the entry point on every function it
// reaches.
func (r *resolver) collectAncestorEntryPoints() {
	for _, entry := range r.sem.Functions {
		if !entry.IsEntryPoint() {
			continue
		}
		visited := make(map[*FunctionInfo]bool)
		var walk func(fi *FunctionInfo)
		walk = func(fi *FunctionInfo) {
			for _, callee := range fi.callees {
				if visited[callee] {
					continue
				}
				visited[callee] = true
				callee.addAncestor(entry.Decl)
				walk(callee)
			}
		}
		walk(entry)
	}
}

func (fi *FunctionInfo) addAncestor(entry *FunctionDecl) {
	for _, existing := range fi.AncestorEntryPoints {
		if existing == entry {
			return
		}
	}
	fi.AncestorEntryPoints = append(fi.AncestorEntryPoints, entry)
}

// Diagnostic formatting

// formatType renders a type handle the way it is spelled in source.
func (r *resolver) formatType(h ir.TypeHandle) string {
	if h == semVoid {
		return "void"
	}
	inner, ok := r.inner(h)
	if !ok {
		return "<error>"
	}
	if typ, found := r.sem.Registry.Lookup(h); found && typ.Name != "" {
		return typ.Name
	}
	return formatTypeInner(r.sem.Registry, inner)
}

func formatTypeInner(reg *ir.TypeRegistry, inner ir.TypeInner) string {
	switch t := inner.(type) {
	case ir.ScalarType:
		return formatScalar(t)
	case ir.VectorType:
		return fmt.Sprintf("vec%d<%s>", t.Size, formatScalar(t.Scalar))
	case ir.MatrixType:
		return fmt.Sprintf("mat%dx%d<%s>", t.Columns, t.Rows, formatScalar(t.Scalar))
	case ir.ArrayType:
		base := "<error>"
		if typ, ok := reg.Lookup(t.Base); ok {
			if typ.Name != "" {
				base = typ.Name
			} else {
				base = formatTypeInner(reg, typ.Inner)
			}
		}
		if t.Size.Constant != nil {
			return fmt.Sprintf("array<%s, %d>", base, *t.Size.Constant)
		}
		return fmt.Sprintf("array<%s>", base)
	case ir.PointerType:
		base := "<error>"
		if typ, ok := reg.Lookup(t.Base); ok {
			if typ.Name != "" {
				base = typ.Name
			} else {
				base = formatTypeInner(reg, typ.Inner)
			}
		}
		return fmt.Sprintf("ptr<%s>", base)
	case ir.AtomicType:
		return fmt.Sprintf("atomic<%s>", formatScalar(t.Scalar))
	case ir.SamplerType:
		if t.Comparison {
			return "sampler_comparison"
		}
		return "sampler"
	case ir.ImageType:
		return "texture"
	case ir.StructType:
		return "struct"
	default:
		return "<unknown>"
	}
}

func formatScalar(s ir.ScalarType) string {
	switch s.Kind {
	case ir.ScalarSint:
		return "i32"
	case ir.ScalarUint:
		return "u32"
	case ir.ScalarFloat:
		if s.Width == 2 {
			return "f16"
		}
		return "f32"
	case ir.ScalarBool:
		return "bool"
	case ir.ScalarAbstractInt:
		return "{integer}"
	case ir.ScalarAbstractFloat:
		return "{float}"
	default:
		return "<unknown>"
	}
}
