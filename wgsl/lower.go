package wgsl

import (
	"fmt"
	"math"
	"strconv"

	"github.com/gogpu/wgslc/diag"
	"github.com/gogpu/wgslc/ir"
)

// LoweringError reports a structural failure while building IR, distinct
// from the parse and resolve diagnostics accumulated on the Program.
type LoweringError struct {
	Message string
	Span    diag.Span
}

func (e *LoweringError) Error() string {
	if e.Span.Start.Line == 0 {
		return "lowering: " + e.Message
	}
	return fmt.Sprintf("lowering: %d:%d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Message)
}

// Warning represents a compiler warning (not an error).
type Warning struct {
	Message string
	Span    diag.Span
}

// LowerResult contains the result of lowering, including any warnings.
type LowerResult struct {
	Module   *ir.Module
	Warnings []Warning
}

// BuildIR converts a resolved Program to IR. The program must have been
// parsed and resolved without error diagnostics; otherwise a LoweringError
// is returned and no module is built.
func BuildIR(p *Program) (*ir.Module, error) {
	result, err := BuildIRWithWarnings(p)
	if err != nil {
		return nil, err
	}
	return result.Module, nil
}

// BuildIRWithWarnings converts a resolved Program to IR, returning warnings
// alongside the module.
func BuildIRWithWarnings(p *Program) (*LowerResult, error) {
	if p.Sem == nil {
		Resolve(p)
	}
	if p.Diagnostics.HasErrors() {
		return nil, &LoweringError{Message: "program has unresolved errors"}
	}

	l := &Lowerer{
		program:         p,
		sem:             p.Sem,
		module:          &ir.Module{},
		globals:         make(map[string]ir.GlobalVariableHandle, len(p.GlobalVars)),
		locals:          make(map[string]ir.ExpressionHandle, 16),
		moduleConstants: make(map[string]ir.ConstantHandle, len(p.Constants)),
		functions:       make(map[string]ir.FunctionHandle, len(p.Functions)),
		localDecls:      make(map[string]diag.Span, 16),
		usedLocals:      make(map[string]bool, 16),
	}

	// The resolver interned every type the program mentions; lowering only
	// references existing handles.
	l.module.Types = l.sem.Registry.GetTypes()

	for _, c := range p.Constants {
		if err := l.lowerConstant(c.Name, c.Type, c.Init, c.Span); err != nil {
			return nil, err
		}
	}
	// Overrides that survive to lowering must carry an initializer; the
	// override-substitution transform replaces the rest before this point.
	for _, o := range p.Overrides {
		if o.Init == NoExpr {
			return nil, &LoweringError{
				Message: fmt.Sprintf("override %q has no value; substitute one before building IR", o.Name),
				Span:    o.Span,
			}
		}
		if err := l.lowerConstant(o.Name, o.Type, o.Init, o.Span); err != nil {
			return nil, err
		}
	}

	for _, v := range p.GlobalVars {
		if err := l.lowerGlobalVar(v); err != nil {
			return nil, err
		}
	}

	// Declare every function signature first so calls can reference
	// functions lowered later.
	l.module.Functions = make([]ir.Function, len(p.Functions))
	for i, f := range p.Functions {
		l.functions[f.Name] = ir.FunctionHandle(i)
		if err := l.declareFunction(&l.module.Functions[i], f, l.sem.Functions[i]); err != nil {
			return nil, err
		}
	}
	for i, f := range p.Functions {
		if err := l.lowerFunction(&l.module.Functions[i], f, l.sem.Functions[i]); err != nil {
			return nil, err
		}
	}

	return &LowerResult{Module: l.module, Warnings: l.warnings}, nil
}

// Lowerer converts a resolved WGSL AST to IR.
type Lowerer struct {
	program *Program
	sem     *SemInfo
	module  *ir.Module

	globals         map[string]ir.GlobalVariableHandle
	moduleConstants map[string]ir.ConstantHandle
	functions       map[string]ir.FunctionHandle

	// Per-function state.
	locals     map[string]ir.ExpressionHandle
	localDecls map[string]diag.Span
	usedLocals map[string]bool
	currentFn  *ir.Function
	nextStmtID uint32

	warnings []Warning
}

// lowerConstant evaluates a module-scope constant to a scalar value.
func (l *Lowerer) lowerConstant(name string, typeExpr TypeHandle, init ExprHandle, span diag.Span) error {
	if init == NoExpr {
		return &LoweringError{Message: fmt.Sprintf("constant %q must have an initializer", name), Span: span}
	}
	typeHandle, ok := l.sem.TypeOf(init)
	if !ok {
		if typeHandle, ok = l.sem.ResolvedType(typeExpr); !ok {
			return &LoweringError{Message: fmt.Sprintf("constant %q has no resolved type", name), Span: span}
		}
	}
	kind, ok := l.scalarKind(typeHandle)
	if !ok {
		return &LoweringError{Message: fmt.Sprintf("constant %q: only scalar constants are supported", name), Span: span}
	}
	value, err := l.evalConstScalar(init, kind)
	if err != nil {
		return &LoweringError{Message: fmt.Sprintf("constant %q: %v", name, err), Span: span}
	}

	handle := ir.ConstantHandle(len(l.module.Constants))
	l.module.Constants = append(l.module.Constants, ir.Constant{
		Name:  name,
		Type:  typeHandle,
		Value: value,
	})
	l.moduleConstants[name] = handle
	return nil
}

// evalConstScalar evaluates a constant initializer expression to a scalar
// value of the given kind. Handles literals and negation of literals.
func (l *Lowerer) evalConstScalar(h ExprHandle, kind ir.ScalarKind) (ir.ScalarValue, error) {
	switch e := l.program.Expr(h).(type) {
	case *LiteralExpr:
		return literalScalarValue(e, kind, false)
	case *UnaryExpr:
		if e.Op != UnOpNegate {
			return ir.ScalarValue{}, fmt.Errorf("unsupported constant operator %s", e.Op)
		}
		lit, ok := l.program.Expr(e.Operand).(*LiteralExpr)
		if !ok {
			return ir.ScalarValue{}, fmt.Errorf("constant initializer must be a literal")
		}
		return literalScalarValue(lit, kind, true)
	case *IdentExpr:
		if handle, ok := l.moduleConstants[e.Name]; ok {
			if sv, isScalar := l.module.Constants[handle].Value.(ir.ScalarValue); isScalar {
				return sv, nil
			}
		}
		return ir.ScalarValue{}, fmt.Errorf("%q is not a scalar constant", e.Name)
	default:
		return ir.ScalarValue{}, fmt.Errorf("constant initializer must be a literal")
	}
}

func literalScalarValue(lit *LiteralExpr, kind ir.ScalarKind, negate bool) (ir.ScalarValue, error) {
	text := trimLiteralSuffix(lit.Text)
	switch kind {
	case ir.ScalarBool:
		var bits uint64
		if lit.Kind == TokenTrue {
			bits = 1
		}
		return ir.ScalarValue{Bits: bits, Kind: ir.ScalarBool}, nil
	case ir.ScalarUint:
		v, err := strconv.ParseUint(text, 0, 32)
		if err != nil || negate {
			return ir.ScalarValue{}, fmt.Errorf("invalid u32 constant %q", lit.Text)
		}
		return ir.ScalarValue{Bits: v, Kind: ir.ScalarUint}, nil
	case ir.ScalarSint:
		v, err := strconv.ParseInt(text, 0, 32)
		if err != nil {
			return ir.ScalarValue{}, fmt.Errorf("invalid i32 constant %q", lit.Text)
		}
		if negate {
			v = -v
		}
		return ir.ScalarValue{Bits: uint64(uint32(int32(v))), Kind: ir.ScalarSint}, nil
	case ir.ScalarFloat:
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return ir.ScalarValue{}, fmt.Errorf("invalid float constant %q", lit.Text)
		}
		if negate {
			v = -v
		}
		return ir.ScalarValue{Bits: uint64(math.Float32bits(float32(v))), Kind: ir.ScalarFloat}, nil
	default:
		return ir.ScalarValue{}, fmt.Errorf("unsupported constant kind")
	}
}

func trimLiteralSuffix(text string) string {
	if len(text) > 0 {
		switch text[len(text)-1] {
		case 'u', 'i', 'f', 'h':
			return text[:len(text)-1]
		}
	}
	return text
}

// lowerGlobalVar converts a module-scope variable declaration to IR.
func (l *Lowerer) lowerGlobalVar(v *VarDecl) error {
	typeHandle, ok := l.sem.GlobalVarType(v)
	if !ok {
		return &LoweringError{Message: fmt.Sprintf("global var %q has no resolved type", v.Name), Span: v.Span}
	}

	space := addressSpaceFromString(v.AddressSpace)

	// Samplers and textures live in the handle address space; they are
	// opaque resources rather than memory-backed variables.
	if l.isOpaqueResourceType(typeHandle) {
		space = ir.SpaceHandle
	}

	var binding *ir.ResourceBinding
	if group, okG := v.Group(); okG {
		if bind, okB := v.Binding(); okB {
			binding = &ir.ResourceBinding{Group: group, Binding: bind}
		}
	}

	var init *ir.ConstantHandle
	if v.Init != NoExpr {
		if kind, isScalar := l.scalarKind(typeHandle); isScalar {
			value, err := l.evalConstScalar(v.Init, kind)
			if err == nil {
				handle := ir.ConstantHandle(len(l.module.Constants))
				l.module.Constants = append(l.module.Constants, ir.Constant{
					Type:  typeHandle,
					Value: value,
				})
				init = &handle
			}
		}
	}

	handle := ir.GlobalVariableHandle(len(l.module.GlobalVariables))
	l.module.GlobalVariables = append(l.module.GlobalVariables, ir.GlobalVariable{
		Name:    v.Name,
		Space:   space,
		Binding: binding,
		Type:    typeHandle,
		Init:    init,
	})
	l.globals[v.Name] = handle
	return nil
}

// declareFunction fills in a function's signature without its body.
func (l *Lowerer) declareFunction(fn *ir.Function, f *FunctionDecl, fi *FunctionInfo) error {
	fn.Name = f.Name
	fn.Arguments = make([]ir.FunctionArgument, len(f.Params))
	for i, p := range f.Params {
		typeHandle := fi.ParamTypes[i]
		if typeHandle == semNoType {
			return &LoweringError{Message: fmt.Sprintf("function %s param %s has no resolved type", f.Name, p.Name), Span: p.Span}
		}
		fn.Arguments[i] = ir.FunctionArgument{
			Name:    p.Name,
			Type:    typeHandle,
			Binding: bindingFromAttrs(p.Attributes),
		}
	}
	if fi.ReturnType != semVoid {
		if fi.ReturnType == semNoType {
			return &LoweringError{Message: fmt.Sprintf("function %s return type is unresolved", f.Name), Span: f.Span}
		}
		fn.Result = &ir.FunctionResult{
			Type:    fi.ReturnType,
			Binding: bindingFromAttrs(f.ReturnAttrs),
		}
	}
	return nil
}

// lowerFunction converts a function body to IR.
func (l *Lowerer) lowerFunction(fn *ir.Function, f *FunctionDecl, fi *FunctionInfo) error {
	for k := range l.locals {
		delete(l.locals, k)
	}
	for k := range l.localDecls {
		delete(l.localDecls, k)
	}
	for k := range l.usedLocals {
		delete(l.usedLocals, k)
	}
	l.currentFn = fn
	l.nextStmtID = 0

	fn.LocalVars = make([]ir.LocalVariable, 0, 4)
	fn.Expressions = make([]ir.Expression, 0, 16)
	fn.ExpressionTypes = make([]ir.TypeResolution, 0, 16)
	fn.Uses = make([][]ir.Use, 0, 16)
	fn.Body = make([]ir.Statement, 0, 8)

	for i, p := range f.Params {
		handle := l.addExpression(ir.Expression{
			Kind: ir.ExprFunctionArgument{Index: uint32(i)},
		})
		l.locals[p.Name] = handle
	}

	if f.Body != NoStmt {
		block, ok := l.program.Stmt(f.Body).(*BlockStmt)
		if !ok {
			return &LoweringError{Message: fmt.Sprintf("function %s has a malformed body", f.Name), Span: f.Span}
		}
		if err := l.lowerBlock(block, &fn.Body); err != nil {
			return err
		}
	}

	l.checkUnusedVariables(f.Name)

	if fi.IsEntryPoint() {
		l.module.EntryPoints = append(l.module.EntryPoints, ir.EntryPoint{
			Name:      f.Name,
			Stage:     fi.Stage,
			Function:  l.functions[f.Name],
			Workgroup: fi.WorkgroupSize,
		})
	}
	return nil
}

// lowerBlock converts a block's statements into the target list.
func (l *Lowerer) lowerBlock(block *BlockStmt, target *[]ir.Statement) error {
	for _, h := range block.Stmts {
		if err := l.lowerStatement(h, target); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lowerer) lowerStatement(h StmtHandle, target *[]ir.Statement) error {
	switch s := l.program.Stmt(h).(type) {
	case *ReturnStmt:
		return l.lowerReturn(s, target)
	case *DeclStmt:
		if s.Kind == DeclVar {
			return l.lowerLocalVar(s, target)
		}
		return l.lowerNamedExpression(s, target)
	case *AssignStmt:
		return l.lowerAssign(s, target)
	case *IncDecStmt:
		return l.lowerIncDec(s, target)
	case *IfStmt:
		return l.lowerIf(s, target)
	case *ForStmt:
		return l.lowerFor(s, target)
	case *WhileStmt:
		return l.lowerWhile(s, target)
	case *LoopStmt:
		return l.lowerLoop(s, target)
	case *SwitchStmt:
		return l.lowerSwitch(s, target)
	case *BreakStmt:
		l.addStatement(target, ir.StmtBreak{})
		return nil
	case *ContinueStmt:
		l.addStatement(target, ir.StmtContinue{})
		return nil
	case *DiscardStmt:
		l.addStatement(target, ir.StmtKill{})
		return nil
	case *CallStmt:
		_, err := l.lowerExpression(s.Call, target)
		return err
	case *ConstAssertStmt:
		// Checked during resolution; no runtime effect.
		return nil
	case *BlockStmt:
		var body []ir.Statement
		if err := l.lowerBlock(s, &body); err != nil {
			return err
		}
		l.addStatement(target, ir.StmtBlock{Block: body})
		return nil
	default:
		return &LoweringError{Message: fmt.Sprintf("unsupported statement type %T", s), Span: s.Pos()}
	}
}

func (l *Lowerer) lowerReturn(ret *ReturnStmt, target *[]ir.Statement) error {
	var valueHandle *ir.ExpressionHandle
	if ret.Value != NoExpr {
		handle, err := l.lowerExpression(ret.Value, target)
		if err != nil {
			return err
		}
		valueHandle = &handle
	}
	l.addStatement(target, ir.StmtReturn{Value: valueHandle})
	return nil
}

func (l *Lowerer) lowerLocalVar(v *DeclStmt, target *[]ir.Statement) error {
	var initHandle *ir.ExpressionHandle
	if v.Init != NoExpr {
		init, err := l.lowerExpression(v.Init, target)
		if err != nil {
			return err
		}
		initHandle = &init
	}

	typeHandle, ok := l.localVarType(v)
	if !ok {
		return &LoweringError{Message: fmt.Sprintf("local var %s has no resolved type", v.Name), Span: v.Span}
	}

	localIdx := uint32(len(l.currentFn.LocalVars))
	l.currentFn.LocalVars = append(l.currentFn.LocalVars, ir.LocalVariable{
		Name: v.Name,
		Type: typeHandle,
		Init: initHandle,
	})

	l.locals[v.Name] = l.addExpression(ir.Expression{
		Kind: ir.ExprLocalVariable{Variable: localIdx},
	})
	l.localDecls[v.Name] = v.Span
	return nil
}

func (l *Lowerer) localVarType(v *DeclStmt) (ir.TypeHandle, bool) {
	if v.Type != NoType {
		if t, ok := l.sem.ResolvedType(v.Type); ok {
			return t, true
		}
	}
	if v.Init != NoExpr {
		return l.sem.TypeOf(v.Init)
	}
	return 0, false
}

// lowerNamedExpression handles let and local const declarations, which bind
// a name to an expression rather than allocating storage.
func (l *Lowerer) lowerNamedExpression(decl *DeclStmt, target *[]ir.Statement) error {
	if decl.Init == NoExpr {
		return &LoweringError{Message: fmt.Sprintf("%s %s must have an initializer", decl.Kind, decl.Name), Span: decl.Span}
	}
	initHandle, err := l.lowerExpression(decl.Init, target)
	if err != nil {
		return err
	}
	l.locals[decl.Name] = initHandle

	// Emit at the declaration point so the value dominates any later use
	// inside branch blocks.
	l.addStatement(target, ir.StmtEmit{
		Range: ir.Range{Start: initHandle, End: initHandle + 1},
	})
	return nil
}

func (l *Lowerer) lowerAssign(assign *AssignStmt, target *[]ir.Statement) error {
	value, err := l.lowerExpression(assign.RHS, target)
	if err != nil {
		return err
	}
	if assign.Phony {
		// Evaluate for side effects only.
		return nil
	}

	pointer, err := l.lowerExpression(assign.LHS, target)
	if err != nil {
		return err
	}

	if assign.Op != AssignPlain {
		loadHandle := l.addExpression(ir.Expression{
			Kind: ir.ExprLoad{Pointer: pointer},
		})
		value = l.addExpression(ir.Expression{
			Kind: ir.ExprBinary{
				Op:    assignOpTable[assign.Op],
				Left:  loadHandle,
				Right: value,
			},
		})
	}

	l.addStatement(target, ir.StmtStore{Pointer: pointer, Value: value})
	return nil
}

func (l *Lowerer) lowerIncDec(stmt *IncDecStmt, target *[]ir.Statement) error {
	pointer, err := l.lowerExpression(stmt.Target, target)
	if err != nil {
		return err
	}

	var one ir.LiteralValue = ir.LiteralI32(1)
	if t, ok := l.sem.TypeOf(stmt.Target); ok {
		if kind, isScalar := l.scalarKind(t); isScalar && kind == ir.ScalarUint {
			one = ir.LiteralU32(1)
		}
	}

	op := ir.BinarySubtract
	if stmt.Increment {
		op = ir.BinaryAdd
	}
	loadHandle := l.addExpression(ir.Expression{Kind: ir.ExprLoad{Pointer: pointer}})
	oneHandle := l.addExpression(ir.Expression{Kind: ir.Literal{Value: one}})
	value := l.addExpression(ir.Expression{
		Kind: ir.ExprBinary{Op: op, Left: loadHandle, Right: oneHandle},
	})
	l.addStatement(target, ir.StmtStore{Pointer: pointer, Value: value})
	return nil
}

func (l *Lowerer) lowerIf(ifStmt *IfStmt, target *[]ir.Statement) error {
	condition, err := l.lowerExpression(ifStmt.Cond, target)
	if err != nil {
		return err
	}

	var accept, reject []ir.Statement
	if err := l.lowerStatement(ifStmt.Body, &accept); err != nil {
		return err
	}
	if ifStmt.Else != NoStmt {
		if err := l.lowerStatement(ifStmt.Else, &reject); err != nil {
			return err
		}
	}
	// The body lowers to a single StmtBlock; unwrap it so the If holds the
	// statements directly.
	l.addStatement(target, ir.StmtIf{
		Condition: condition,
		Accept:    unwrapBlock(accept),
		Reject:    unwrapBlock(reject),
	})
	return nil
}

// unwrapBlock flattens a single wrapping StmtBlock produced by lowering a
// brace-delimited body.
func unwrapBlock(stmts []ir.Statement) []ir.Statement {
	if len(stmts) == 1 {
		if block, ok := stmts[0].Kind.(ir.StmtBlock); ok {
			return block.Block
		}
	}
	if stmts == nil {
		return []ir.Statement{}
	}
	return stmts
}

// lowerFor desugars a for loop into init; loop { if !cond { break }; body;
// continuing { update } }.
func (l *Lowerer) lowerFor(forStmt *ForStmt, target *[]ir.Statement) error {
	if forStmt.Init != NoStmt {
		if err := l.lowerStatement(forStmt.Init, target); err != nil {
			return err
		}
	}

	var body, continuing []ir.Statement
	if forStmt.Cond != NoExpr {
		if err := l.lowerLoopGuard(forStmt.Cond, &body); err != nil {
			return err
		}
	}
	if err := l.lowerStatement(forStmt.Body, &body); err != nil {
		return err
	}
	body = l.flattenLoopBody(body, forStmt.Cond != NoExpr)

	if forStmt.Update != NoStmt {
		if err := l.lowerStatement(forStmt.Update, &continuing); err != nil {
			return err
		}
	}

	l.addStatement(target, ir.StmtLoop{Body: body, Continuing: continuing})
	return nil
}

func (l *Lowerer) lowerWhile(whileStmt *WhileStmt, target *[]ir.Statement) error {
	var body []ir.Statement
	if err := l.lowerLoopGuard(whileStmt.Cond, &body); err != nil {
		return err
	}
	if err := l.lowerStatement(whileStmt.Body, &body); err != nil {
		return err
	}
	body = l.flattenLoopBody(body, true)

	l.addStatement(target, ir.StmtLoop{Body: body, Continuing: []ir.Statement{}})
	return nil
}

// lowerLoopGuard prepends "if !cond { break }" to a loop body.
func (l *Lowerer) lowerLoopGuard(cond ExprHandle, body *[]ir.Statement) error {
	condition, err := l.lowerExpression(cond, body)
	if err != nil {
		return err
	}
	notCond := l.addExpression(ir.Expression{
		Kind: ir.ExprUnary{Op: ir.UnaryLogicalNot, Expr: condition},
	})
	var breakStmt []ir.Statement
	l.addStatement(&breakStmt, ir.StmtBreak{})
	l.addStatement(body, ir.StmtIf{
		Condition: notCond,
		Accept:    breakStmt,
		Reject:    []ir.Statement{},
	})
	return nil
}

// flattenLoopBody unwraps the block produced by the loop's brace-delimited
// body while keeping any guard statements that precede it.
func (l *Lowerer) flattenLoopBody(body []ir.Statement, hasGuard bool) []ir.Statement {
	guardLen := 0
	if hasGuard {
		// The guard is everything up to and including the StmtIf break.
		for i, stmt := range body {
			if _, ok := stmt.Kind.(ir.StmtIf); ok {
				guardLen = i + 1
				break
			}
		}
	}
	rest := unwrapBlock(body[guardLen:])
	return append(body[:guardLen:guardLen], rest...)
}

func (l *Lowerer) lowerLoop(loopStmt *LoopStmt, target *[]ir.Statement) error {
	var body, continuing []ir.Statement
	if err := l.lowerStatement(loopStmt.Body, &body); err != nil {
		return err
	}
	if loopStmt.Continuing != NoStmt {
		if err := l.lowerStatement(loopStmt.Continuing, &continuing); err != nil {
			return err
		}
	}

	continuing = unwrapBlock(continuing)
	var breakIf *ir.ExpressionHandle
	if loopStmt.BreakIf != NoExpr {
		h, err := l.lowerExpression(loopStmt.BreakIf, &continuing)
		if err != nil {
			return err
		}
		breakIf = &h
	}
	l.addStatement(target, ir.StmtLoop{
		Body:       unwrapBlock(body),
		Continuing: continuing,
		BreakIf:    breakIf,
	})
	return nil
}

func (l *Lowerer) lowerSwitch(switchStmt *SwitchStmt, target *[]ir.Statement) error {
	selector, err := l.lowerExpression(switchStmt.Selector, target)
	if err != nil {
		return err
	}

	var cases []ir.SwitchCase
	for i, clause := range switchStmt.Cases {
		var caseBody []ir.Statement
		if err := l.lowerStatement(clause.Body, &caseBody); err != nil {
			return err
		}
		caseBody = unwrapBlock(caseBody)

		if clause.IsDefault {
			cases = append(cases, ir.SwitchCase{
				Value: ir.SwitchValueDefault{},
				Body:  caseBody,
			})
			continue
		}
		for _, sel := range clause.Selectors {
			value, err := l.lowerSwitchCaseValue(sel)
			if err != nil {
				return &LoweringError{Message: fmt.Sprintf("switch case %d: %v", i, err), Span: switchStmt.Span}
			}
			cases = append(cases, ir.SwitchCase{Value: value, Body: caseBody})
		}
	}

	l.addStatement(target, ir.StmtSwitch{Selector: selector, Cases: cases})
	return nil
}

func (l *Lowerer) lowerSwitchCaseValue(h ExprHandle) (ir.SwitchValue, error) {
	switch e := l.program.Expr(h).(type) {
	case *LiteralExpr:
		if e.Kind != TokenIntLiteral {
			return nil, fmt.Errorf("case selector must be an integer literal")
		}
		text := trimLiteralSuffix(e.Text)
		if len(e.Text) > 0 && e.Text[len(e.Text)-1] == 'u' {
			v, _ := strconv.ParseUint(text, 0, 32)
			return ir.SwitchValueU32(uint32(v)), nil
		}
		v, _ := strconv.ParseInt(text, 0, 32)
		return ir.SwitchValueI32(int32(v)), nil
	case *IdentExpr:
		handle, ok := l.moduleConstants[e.Name]
		if !ok {
			return nil, fmt.Errorf("case selector %q is not a known constant", e.Name)
		}
		sv, ok := l.module.Constants[handle].Value.(ir.ScalarValue)
		if !ok {
			return nil, fmt.Errorf("case selector %q is not a scalar constant", e.Name)
		}
		switch sv.Kind {
		case ir.ScalarUint:
			return ir.SwitchValueU32(uint32(sv.Bits)), nil
		case ir.ScalarSint:
			return ir.SwitchValueI32(int32(sv.Bits)), nil
		default:
			return nil, fmt.Errorf("case selector %q must be an integer", e.Name)
		}
	default:
		return nil, fmt.Errorf("case selector must be a literal or constant")
	}
}

// Expressions

func (l *Lowerer) lowerExpression(h ExprHandle, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	switch e := l.program.Expr(h).(type) {
	case *LiteralExpr:
		return l.lowerLiteral(h, e)
	case *IdentExpr:
		return l.resolveIdentifier(e)
	case *BinaryExpr:
		return l.lowerBinary(e, target)
	case *UnaryExpr:
		return l.lowerUnary(e, target)
	case *CallExpr:
		return l.lowerCall(e, target)
	case *ConstructExpr:
		return l.lowerConstruct(h, e, target)
	case *BitcastExpr:
		return l.lowerBitcast(e, target)
	case *MemberExpr:
		return l.lowerMember(e, target)
	case *IndexExpr:
		return l.lowerIndex(e, target)
	default:
		return 0, &LoweringError{Message: fmt.Sprintf("unsupported expression type %T", e), Span: e.Pos()}
	}
}

// lowerLiteral converts a literal, using the resolved type so abstract
// numerics materialize to the type their context expects.
func (l *Lowerer) lowerLiteral(h ExprHandle, lit *LiteralExpr) (ir.ExpressionHandle, error) {
	var value ir.LiteralValue
	text := trimLiteralSuffix(lit.Text)

	kind := ir.ScalarSint
	if lit.Kind == TokenFloatLiteral {
		kind = ir.ScalarFloat
	}
	if t, ok := l.sem.TypeOf(h); ok {
		if k, isScalar := l.scalarKind(t); isScalar {
			kind = k
		}
	}

	switch lit.Kind {
	case TokenTrue:
		value = ir.LiteralBool(true)
	case TokenFalse:
		value = ir.LiteralBool(false)
	case TokenIntLiteral, TokenFloatLiteral:
		switch kind {
		case ir.ScalarUint:
			v, _ := strconv.ParseUint(text, 0, 32)
			value = ir.LiteralU32(v)
		case ir.ScalarFloat:
			v, _ := strconv.ParseFloat(text, 32)
			value = ir.LiteralF32(v)
		default:
			v, _ := strconv.ParseInt(text, 0, 32)
			value = ir.LiteralI32(v)
		}
	default:
		return 0, &LoweringError{Message: fmt.Sprintf("unsupported literal %q", lit.Text), Span: lit.Span}
	}

	return l.addExpression(ir.Expression{Kind: ir.Literal{Value: value}}), nil
}

func (l *Lowerer) resolveIdentifier(e *IdentExpr) (ir.ExpressionHandle, error) {
	if handle, ok := l.locals[e.Name]; ok {
		l.usedLocals[e.Name] = true
		return handle, nil
	}
	if handle, ok := l.moduleConstants[e.Name]; ok {
		return l.addExpression(ir.Expression{
			Kind: ir.ExprConstant{Constant: handle},
		}), nil
	}
	if handle, ok := l.globals[e.Name]; ok {
		return l.addExpression(ir.Expression{
			Kind: ir.ExprGlobalVariable{Variable: handle},
		}), nil
	}
	return 0, &LoweringError{Message: fmt.Sprintf("unresolved identifier %q", e.Name), Span: e.Span}
}

func (l *Lowerer) lowerBinary(bin *BinaryExpr, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	left, err := l.lowerExpression(bin.LHS, target)
	if err != nil {
		return 0, err
	}
	right, err := l.lowerExpression(bin.RHS, target)
	if err != nil {
		return 0, err
	}
	return l.addExpression(ir.Expression{
		Kind: ir.ExprBinary{Op: binaryOpTable[bin.Op], Left: left, Right: right},
	}), nil
}

func (l *Lowerer) lowerUnary(un *UnaryExpr, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	// A variable expression already denotes a pointer, so & passes its
	// operand through unchanged.
	if un.Op == UnOpAddressOf {
		return l.lowerExpression(un.Operand, target)
	}
	if un.Op == UnOpDeref {
		pointer, err := l.lowerExpression(un.Operand, target)
		if err != nil {
			return 0, err
		}
		return l.addExpression(ir.Expression{
			Kind: ir.ExprLoad{Pointer: pointer},
		}), nil
	}

	operand, err := l.lowerExpression(un.Operand, target)
	if err != nil {
		return 0, err
	}
	return l.addExpression(ir.Expression{
		Kind: ir.ExprUnary{Op: unaryOpTable[un.Op], Expr: operand},
	}), nil
}

func (l *Lowerer) lowerCall(call *CallExpr, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	name := call.Name

	if name == "select" {
		return l.lowerSelectCall(call.Args, target)
	}
	if deriv, ok := derivativeTable[name]; ok {
		return l.lowerDerivativeCall(deriv, call.Args, target)
	}
	if relFun, ok := relationalTable[name]; ok {
		return l.lowerRelationalCall(relFun, call.Args, target)
	}
	if name == "arrayLength" {
		return l.lowerArrayLengthCall(call.Args, target)
	}
	if mathFunc, ok := mathFuncTable[name]; ok {
		return l.lowerMathCall(mathFunc, call.Args, target)
	}
	if isTextureFunction(name) {
		return l.lowerTextureCall(name, call.Args, target)
	}
	if name == "atomicStore" {
		return l.lowerAtomicStore(call.Args, target)
	}
	if name == "atomicLoad" {
		return l.lowerAtomicLoad(call.Args, target)
	}
	if name == "atomicCompareExchangeWeak" {
		return l.lowerAtomicCompareExchange(call.Args, target)
	}
	if atomicFunc := atomicFunction(name); atomicFunc != nil {
		return l.lowerAtomicCall(atomicFunc, call.Args, target)
	}
	if flags := barrierFlags(name); flags != 0 {
		l.addStatement(target, ir.StmtBarrier{Flags: flags})
		return 0, nil
	}

	funcHandle, ok := l.functions[name]
	if !ok {
		return 0, &LoweringError{Message: fmt.Sprintf("unknown function %q", name), Span: call.Span}
	}

	args := make([]ir.ExpressionHandle, len(call.Args))
	for i, arg := range call.Args {
		handle, err := l.lowerExpression(arg, target)
		if err != nil {
			return 0, err
		}
		args[i] = handle
	}

	resultHandle := l.addExpression(ir.Expression{
		Kind: ir.ExprCallResult{Function: funcHandle},
	})
	l.addStatement(target, ir.StmtCall{
		Function:  funcHandle,
		Arguments: args,
		Result:    &resultHandle,
	})
	return resultHandle, nil
}

func (l *Lowerer) lowerConstruct(h ExprHandle, cons *ConstructExpr, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	typeHandle, ok := l.sem.ResolvedType(cons.Type)
	if !ok {
		if typeHandle, ok = l.sem.TypeOf(h); !ok {
			return 0, &LoweringError{Message: "constructor type is unresolved", Span: cons.Span}
		}
	}

	components := make([]ir.ExpressionHandle, len(cons.Args))
	for i, arg := range cons.Args {
		handle, err := l.lowerExpression(arg, target)
		if err != nil {
			return 0, err
		}
		components[i] = handle
	}

	inner := l.typeInner(typeHandle)

	// Single-argument scalar constructors are conversions: f32(x), u32(y).
	if len(components) == 1 {
		if scalar, isScalar := inner.(ir.ScalarType); isScalar {
			width := scalar.Width
			return l.addExpression(ir.Expression{
				Kind: ir.ExprAs{Expr: components[0], Kind: scalar.Kind, Convert: &width},
			}), nil
		}
	}

	if vec, isVec := inner.(ir.VectorType); isVec && len(components) == 1 {
		// vecN<T>(vecN<U>) is an element-wise conversion; vecN(scalar)
		// is a splat.
		if argType, found := l.sem.TypeOf(cons.Args[0]); found {
			if argVec, argIsVec := l.typeInner(argType).(ir.VectorType); argIsVec && argVec.Size == vec.Size {
				width := vec.Scalar.Width
				return l.addExpression(ir.Expression{
					Kind: ir.ExprAs{Expr: components[0], Kind: vec.Scalar.Kind, Convert: &width},
				}), nil
			}
		}
		return l.addExpression(ir.Expression{
			Kind: ir.ExprSplat{Size: vec.Size, Value: components[0]},
		}), nil
	}

	if len(components) == 0 {
		return l.addExpression(ir.Expression{
			Kind: ir.ExprZeroValue{Type: typeHandle},
		}), nil
	}

	return l.addExpression(ir.Expression{
		Kind: ir.ExprCompose{Type: typeHandle, Components: components},
	}), nil
}

func (l *Lowerer) lowerBitcast(cast *BitcastExpr, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	expr, err := l.lowerExpression(cast.Expr, target)
	if err != nil {
		return 0, err
	}
	typeHandle, ok := l.sem.ResolvedType(cast.Type)
	if !ok {
		return 0, &LoweringError{Message: "bitcast target type is unresolved", Span: cast.Span}
	}
	scalar, isScalar := l.typeInner(typeHandle).(ir.ScalarType)
	if !isScalar {
		if vec, isVec := l.typeInner(typeHandle).(ir.VectorType); isVec {
			scalar = vec.Scalar
			isScalar = true
		}
	}
	if !isScalar {
		return 0, &LoweringError{Message: "bitcast target must be a scalar or vector type", Span: cast.Span}
	}
	// Convert == nil marks a bit reinterpretation rather than a value
	// conversion.
	return l.addExpression(ir.Expression{
		Kind: ir.ExprAs{Expr: expr, Kind: scalar.Kind, Convert: nil},
	}), nil
}

func (l *Lowerer) lowerMember(mem *MemberExpr, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	base, err := l.lowerExpression(mem.Base, target)
	if err != nil {
		return 0, err
	}

	baseType, ok := l.sem.TypeOf(mem.Base)
	if !ok {
		return 0, &LoweringError{Message: "member access base has no resolved type", Span: mem.Span}
	}
	inner := l.pointeeInner(baseType)

	switch t := inner.(type) {
	case ir.StructType:
		for i, member := range t.Members {
			if member.Name == mem.Member {
				return l.addExpression(ir.Expression{
					Kind: ir.ExprAccessIndex{Base: base, Index: uint32(i)},
				}), nil
			}
		}
		return 0, &LoweringError{Message: fmt.Sprintf("struct has no member %q", mem.Member), Span: mem.Span}
	case ir.VectorType:
		if len(mem.Member) == 1 {
			comp, ok := swizzleComponent(mem.Member[0])
			if !ok || uint8(comp) >= uint8(t.Size) {
				return 0, &LoweringError{Message: fmt.Sprintf("invalid swizzle %q", mem.Member), Span: mem.Span}
			}
			return l.addExpression(ir.Expression{
				Kind: ir.ExprAccessIndex{Base: base, Index: uint32(comp)},
			}), nil
		}
		size, pattern, err := swizzlePattern(mem.Member, t.Size)
		if err != nil {
			return 0, &LoweringError{Message: err.Error(), Span: mem.Span}
		}
		return l.addExpression(ir.Expression{
			Kind: ir.ExprSwizzle{Size: size, Vector: base, Pattern: pattern},
		}), nil
	default:
		return 0, &LoweringError{Message: fmt.Sprintf("unsupported member access %q", mem.Member), Span: mem.Span}
	}
}

func (l *Lowerer) lowerIndex(idx *IndexExpr, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	base, err := l.lowerExpression(idx.Base, target)
	if err != nil {
		return 0, err
	}
	index, err := l.lowerExpression(idx.Index, target)
	if err != nil {
		return 0, err
	}
	return l.addExpression(ir.Expression{
		Kind: ir.ExprAccess{Base: base, Index: index},
	}), nil
}

// addExpression appends an expression to the current function, resolves its
// type, and records a use for each of its operands.
func (l *Lowerer) addExpression(expr ir.Expression) ir.ExpressionHandle {
	handle := ir.ExpressionHandle(len(l.currentFn.Expressions))
	l.currentFn.Expressions = append(l.currentFn.Expressions, expr)
	l.currentFn.Uses = append(l.currentFn.Uses, nil)

	ir.ExpressionOperands(expr.Kind, func(operand ir.ExpressionHandle) {
		l.currentFn.Uses[operand] = append(l.currentFn.Uses[operand],
			ir.Use{Consumer: uint32(handle)})
	})

	exprType, err := ir.ResolveExpressionType(l.module, l.currentFn, handle)
	if err != nil {
		exprType = ir.TypeResolution{}
	}
	l.currentFn.ExpressionTypes = append(l.currentFn.ExpressionTypes, exprType)
	return handle
}

// addStatement appends a statement with a fresh ID and records a use for
// each expression operand the statement reads.
func (l *Lowerer) addStatement(target *[]ir.Statement, kind ir.StatementKind) {
	id := l.nextStmtID
	l.nextStmtID++
	ir.StatementOperands(kind, func(operand ir.ExpressionHandle) {
		l.currentFn.Uses[operand] = append(l.currentFn.Uses[operand],
			ir.Use{Consumer: id, IsStmt: true})
	})
	*target = append(*target, ir.Statement{Kind: kind, ID: id})
}

// Builtin calls

func (l *Lowerer) lowerMathCall(mathFunc ir.MathFunction, args []ExprHandle, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	if len(args) == 0 {
		return 0, &LoweringError{Message: "math function requires at least one argument"}
	}
	arg0, err := l.lowerExpression(args[0], target)
	if err != nil {
		return 0, err
	}
	var extra [3]*ir.ExpressionHandle
	for i := 1; i < len(args) && i < 4; i++ {
		a, err := l.lowerExpression(args[i], target)
		if err != nil {
			return 0, err
		}
		extra[i-1] = &a
	}
	return l.addExpression(ir.Expression{
		Kind: ir.ExprMath{
			Fun:  mathFunc,
			Arg:  arg0,
			Arg1: extra[0],
			Arg2: extra[1],
			Arg3: extra[2],
		},
	}), nil
}

// lowerSelectCall converts select(falseVal, trueVal, condition).
func (l *Lowerer) lowerSelectCall(args []ExprHandle, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	if len(args) != 3 {
		return 0, &LoweringError{Message: fmt.Sprintf("select() requires exactly 3 arguments, got %d", len(args))}
	}
	falseVal, err := l.lowerExpression(args[0], target)
	if err != nil {
		return 0, err
	}
	trueVal, err := l.lowerExpression(args[1], target)
	if err != nil {
		return 0, err
	}
	condition, err := l.lowerExpression(args[2], target)
	if err != nil {
		return 0, err
	}
	return l.addExpression(ir.Expression{
		Kind: ir.ExprSelect{Condition: condition, Accept: trueVal, Reject: falseVal},
	}), nil
}

// derivativeTable maps WGSL derivative function names to axis and control.
var derivativeTable = map[string]ir.ExprDerivative{
	"dpdx":         {Axis: ir.DerivativeX, Control: ir.DerivativeNone},
	"dpdy":         {Axis: ir.DerivativeY, Control: ir.DerivativeNone},
	"fwidth":       {Axis: ir.DerivativeWidth, Control: ir.DerivativeNone},
	"dpdxCoarse":   {Axis: ir.DerivativeX, Control: ir.DerivativeCoarse},
	"dpdyCoarse":   {Axis: ir.DerivativeY, Control: ir.DerivativeCoarse},
	"fwidthCoarse": {Axis: ir.DerivativeWidth, Control: ir.DerivativeCoarse},
	"dpdxFine":     {Axis: ir.DerivativeX, Control: ir.DerivativeFine},
	"dpdyFine":     {Axis: ir.DerivativeY, Control: ir.DerivativeFine},
	"fwidthFine":   {Axis: ir.DerivativeWidth, Control: ir.DerivativeFine},
}

func (l *Lowerer) lowerDerivativeCall(deriv ir.ExprDerivative, args []ExprHandle, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	if len(args) != 1 {
		return 0, &LoweringError{Message: "derivative function requires exactly 1 argument"}
	}
	expr, err := l.lowerExpression(args[0], target)
	if err != nil {
		return 0, err
	}
	deriv.Expr = expr
	return l.addExpression(ir.Expression{Kind: deriv}), nil
}

var relationalTable = map[string]ir.RelationalFunction{
	"all":   ir.RelationalAll,
	"any":   ir.RelationalAny,
	"isnan": ir.RelationalIsNan,
	"isinf": ir.RelationalIsInf,
}

func (l *Lowerer) lowerRelationalCall(fun ir.RelationalFunction, args []ExprHandle, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	if len(args) != 1 {
		return 0, &LoweringError{Message: "relational function requires exactly 1 argument"}
	}
	arg, err := l.lowerExpression(args[0], target)
	if err != nil {
		return 0, err
	}
	return l.addExpression(ir.Expression{
		Kind: ir.ExprRelational{Fun: fun, Argument: arg},
	}), nil
}

func (l *Lowerer) lowerArrayLengthCall(args []ExprHandle, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	if len(args) != 1 {
		return 0, &LoweringError{Message: "arrayLength requires exactly 1 argument"}
	}
	arg, err := l.lowerExpression(args[0], target)
	if err != nil {
		return 0, err
	}
	return l.addExpression(ir.Expression{
		Kind: ir.ExprArrayLength{Array: arg},
	}), nil
}

// Texture calls

func isTextureFunction(name string) bool {
	switch name {
	case "textureSample", "textureSampleBias", "textureSampleLevel", "textureSampleGrad",
		"textureSampleCompare", "textureSampleCompareLevel",
		"textureLoad", "textureStore",
		"textureDimensions", "textureNumLevels", "textureNumLayers", "textureNumSamples":
		return true
	}
	return false
}

func (l *Lowerer) lowerTextureCall(name string, args []ExprHandle, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	switch name {
	case "textureSample":
		return l.lowerTextureSample(args, target, ir.SampleLevelAuto{}, false)

	case "textureSampleBias":
		if len(args) < 4 {
			return 0, &LoweringError{Message: "textureSampleBias requires 4 arguments"}
		}
		bias, err := l.lowerExpression(args[3], target)
		if err != nil {
			return 0, err
		}
		return l.lowerTextureSample(args[:3], target, ir.SampleLevelBias{Bias: bias}, false)

	case "textureSampleLevel":
		if len(args) < 4 {
			return 0, &LoweringError{Message: "textureSampleLevel requires 4 arguments"}
		}
		level, err := l.lowerExpression(args[3], target)
		if err != nil {
			return 0, err
		}
		return l.lowerTextureSample(args[:3], target, ir.SampleLevelExact{Level: level}, false)

	case "textureSampleGrad":
		if len(args) < 5 {
			return 0, &LoweringError{Message: "textureSampleGrad requires 5 arguments"}
		}
		ddx, err := l.lowerExpression(args[3], target)
		if err != nil {
			return 0, err
		}
		ddy, err := l.lowerExpression(args[4], target)
		if err != nil {
			return 0, err
		}
		return l.lowerTextureSample(args[:3], target, ir.SampleLevelGradient{X: ddx, Y: ddy}, false)

	case "textureSampleCompare":
		return l.lowerTextureSampleCompare(args, target, ir.SampleLevelAuto{})

	case "textureSampleCompareLevel":
		return l.lowerTextureSampleCompare(args, target, ir.SampleLevelZero{})

	case "textureLoad":
		return l.lowerTextureLoad(args, target)

	case "textureStore":
		return l.lowerTextureStore(args, target)

	case "textureDimensions":
		return l.lowerTextureQuery(args, target, ir.ImageQuerySize{})

	case "textureNumLevels":
		return l.lowerTextureQuery(args, target, ir.ImageQueryNumLevels{})

	case "textureNumLayers":
		return l.lowerTextureQuery(args, target, ir.ImageQueryNumLayers{})

	case "textureNumSamples":
		return l.lowerTextureQuery(args, target, ir.ImageQueryNumSamples{})

	default:
		return 0, &LoweringError{Message: fmt.Sprintf("unknown texture function %q", name)}
	}
}

func (l *Lowerer) lowerTextureSample(args []ExprHandle, target *[]ir.Statement, level ir.SampleLevel, depth bool) (ir.ExpressionHandle, error) {
	if len(args) < 3 {
		return 0, &LoweringError{Message: "texture sampling requires at least 3 arguments"}
	}
	image, err := l.lowerExpression(args[0], target)
	if err != nil {
		return 0, err
	}
	sampler, err := l.lowerExpression(args[1], target)
	if err != nil {
		return 0, err
	}
	coord, err := l.lowerExpression(args[2], target)
	if err != nil {
		return 0, err
	}

	var arrayIndex *ir.ExpressionHandle
	if len(args) > 3 && l.isTextureArrayed(args[0]) {
		ai, aiErr := l.lowerExpression(args[3], target)
		if aiErr != nil {
			return 0, aiErr
		}
		arrayIndex = &ai
	}

	return l.addExpression(ir.Expression{
		Kind: ir.ExprImageSample{
			Image:      image,
			Sampler:    sampler,
			Coordinate: coord,
			ArrayIndex: arrayIndex,
			Level:      level,
		},
	}), nil
}

func (l *Lowerer) lowerTextureSampleCompare(args []ExprHandle, target *[]ir.Statement, level ir.SampleLevel) (ir.ExpressionHandle, error) {
	if len(args) < 4 {
		return 0, &LoweringError{Message: "comparison sampling requires 4 arguments"}
	}
	image, err := l.lowerExpression(args[0], target)
	if err != nil {
		return 0, err
	}
	sampler, err := l.lowerExpression(args[1], target)
	if err != nil {
		return 0, err
	}
	coord, err := l.lowerExpression(args[2], target)
	if err != nil {
		return 0, err
	}
	depthRef, err := l.lowerExpression(args[3], target)
	if err != nil {
		return 0, err
	}
	return l.addExpression(ir.Expression{
		Kind: ir.ExprImageSample{
			Image:      image,
			Sampler:    sampler,
			Coordinate: coord,
			Level:      level,
			DepthRef:   &depthRef,
		},
	}), nil
}

// isTextureArrayed checks whether a texture expression refers to an arrayed
// image type.
func (l *Lowerer) isTextureArrayed(h ExprHandle) bool {
	t, ok := l.sem.TypeOf(h)
	if !ok {
		return false
	}
	img, isImg := l.typeInner(t).(ir.ImageType)
	return isImg && img.Arrayed
}

func (l *Lowerer) lowerTextureLoad(args []ExprHandle, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	if len(args) < 2 {
		return 0, &LoweringError{Message: "textureLoad requires at least 2 arguments"}
	}
	image, err := l.lowerExpression(args[0], target)
	if err != nil {
		return 0, err
	}
	coord, err := l.lowerExpression(args[1], target)
	if err != nil {
		return 0, err
	}
	var level *ir.ExpressionHandle
	if len(args) > 2 {
		lv, err := l.lowerExpression(args[2], target)
		if err != nil {
			return 0, err
		}
		level = &lv
	}
	return l.addExpression(ir.Expression{
		Kind: ir.ExprImageLoad{Image: image, Coordinate: coord, Level: level},
	}), nil
}

func (l *Lowerer) lowerTextureStore(args []ExprHandle, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	if len(args) < 3 {
		return 0, &LoweringError{Message: "textureStore requires 3 arguments"}
	}
	image, err := l.lowerExpression(args[0], target)
	if err != nil {
		return 0, err
	}
	coord, err := l.lowerExpression(args[1], target)
	if err != nil {
		return 0, err
	}
	value, err := l.lowerExpression(args[2], target)
	if err != nil {
		return 0, err
	}
	l.addStatement(target, ir.StmtImageStore{
		Image:      image,
		Coordinate: coord,
		Value:      value,
	})
	return 0, nil
}

func (l *Lowerer) lowerTextureQuery(args []ExprHandle, target *[]ir.Statement, query ir.ImageQuery) (ir.ExpressionHandle, error) {
	if len(args) < 1 {
		return 0, &LoweringError{Message: "texture query requires an image argument"}
	}
	image, err := l.lowerExpression(args[0], target)
	if err != nil {
		return 0, err
	}
	if len(args) > 1 {
		if sizeQuery, ok := query.(ir.ImageQuerySize); ok {
			level, err := l.lowerExpression(args[1], target)
			if err != nil {
				return 0, err
			}
			sizeQuery.Level = &level
			query = sizeQuery
		}
	}
	return l.addExpression(ir.Expression{
		Kind: ir.ExprImageQuery{Image: image, Query: query},
	}), nil
}

// Atomics and barriers

func barrierFlags(name string) ir.BarrierFlags {
	switch name {
	case "workgroupBarrier":
		return ir.BarrierWorkGroup
	case "storageBarrier":
		return ir.BarrierStorage
	case "textureBarrier":
		return ir.BarrierTexture
	}
	return 0
}

func atomicFunction(name string) ir.AtomicFunction {
	switch name {
	case "atomicAdd":
		return ir.AtomicAdd{}
	case "atomicSub":
		return ir.AtomicSubtract{}
	case "atomicAnd":
		return ir.AtomicAnd{}
	case "atomicOr":
		return ir.AtomicInclusiveOr{}
	case "atomicXor":
		return ir.AtomicExclusiveOr{}
	case "atomicMin":
		return ir.AtomicMin{}
	case "atomicMax":
		return ir.AtomicMax{}
	case "atomicExchange":
		return ir.AtomicExchange{}
	}
	return nil
}

// lowerAtomicCall converts atomicOp(&ptr, value), which yields the previous
// value.
func (l *Lowerer) lowerAtomicCall(atomicFunc ir.AtomicFunction, args []ExprHandle, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	if len(args) < 2 {
		return 0, &LoweringError{Message: "atomic function requires at least 2 arguments"}
	}
	pointer, err := l.lowerExpression(args[0], target)
	if err != nil {
		return 0, err
	}
	value, err := l.lowerExpression(args[1], target)
	if err != nil {
		return 0, err
	}
	resultHandle := l.addExpression(ir.Expression{Kind: ir.ExprAtomicResult{Scalar: l.atomicScalar(pointer)}})
	l.addStatement(target, ir.StmtAtomic{
		Pointer: pointer,
		Fun:     atomicFunc,
		Value:   value,
		Result:  &resultHandle,
	})
	return resultHandle, nil
}

// atomicScalar finds the element type behind a pointer-to-atomic operand.
func (l *Lowerer) atomicScalar(pointer ir.ExpressionHandle) ir.ScalarType {
	res, err := ir.ResolveExpressionType(l.module, l.currentFn, pointer)
	if err != nil {
		return ir.ScalarType{Kind: ir.ScalarUint, Width: 4}
	}
	inner := res.Value
	if res.Handle != nil && int(*res.Handle) < len(l.module.Types) {
		inner = l.module.Types[*res.Handle].Inner
	}
	if ptr, ok := inner.(ir.PointerType); ok && int(ptr.Base) < len(l.module.Types) {
		inner = l.module.Types[ptr.Base].Inner
	}
	if atomic, ok := inner.(ir.AtomicType); ok {
		return atomic.Scalar
	}
	return ir.ScalarType{Kind: ir.ScalarUint, Width: 4}
}

func (l *Lowerer) lowerAtomicStore(args []ExprHandle, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	if len(args) < 2 {
		return 0, &LoweringError{Message: "atomicStore requires 2 arguments"}
	}
	pointer, err := l.lowerExpression(args[0], target)
	if err != nil {
		return 0, err
	}
	value, err := l.lowerExpression(args[1], target)
	if err != nil {
		return 0, err
	}
	l.addStatement(target, ir.StmtAtomic{
		Pointer: pointer,
		Fun:     ir.AtomicStore{},
		Value:   value,
	})
	return 0, nil
}

func (l *Lowerer) lowerAtomicLoad(args []ExprHandle, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	if len(args) < 1 {
		return 0, &LoweringError{Message: "atomicLoad requires 1 argument"}
	}
	pointer, err := l.lowerExpression(args[0], target)
	if err != nil {
		return 0, err
	}
	resultHandle := l.addExpression(ir.Expression{Kind: ir.ExprAtomicResult{Scalar: l.atomicScalar(pointer)}})
	l.addStatement(target, ir.StmtAtomic{
		Pointer: pointer,
		Fun:     ir.AtomicLoad{},
		Value:   pointer, // ignored for loads
		Result:  &resultHandle,
	})
	return resultHandle, nil
}

func (l *Lowerer) lowerAtomicCompareExchange(args []ExprHandle, target *[]ir.Statement) (ir.ExpressionHandle, error) {
	if len(args) < 3 {
		return 0, &LoweringError{Message: "atomicCompareExchangeWeak requires 3 arguments"}
	}
	pointer, err := l.lowerExpression(args[0], target)
	if err != nil {
		return 0, err
	}
	compare, err := l.lowerExpression(args[1], target)
	if err != nil {
		return 0, err
	}
	value, err := l.lowerExpression(args[2], target)
	if err != nil {
		return 0, err
	}
	resultHandle := l.addExpression(ir.Expression{Kind: ir.ExprAtomicResult{Scalar: l.atomicScalar(pointer)}})
	l.addStatement(target, ir.StmtAtomic{
		Pointer: pointer,
		Fun:     ir.AtomicExchange{Compare: &compare},
		Value:   value,
		Result:  &resultHandle,
	})
	return resultHandle, nil
}

// Helpers

func (l *Lowerer) typeInner(handle ir.TypeHandle) ir.TypeInner {
	typ, ok := l.sem.Registry.Lookup(handle)
	if !ok {
		return nil
	}
	return typ.Inner
}

// pointeeInner unwraps a pointer type to its pointee's inner.
func (l *Lowerer) pointeeInner(handle ir.TypeHandle) ir.TypeInner {
	inner := l.typeInner(handle)
	if ptr, ok := inner.(ir.PointerType); ok {
		return l.typeInner(ptr.Base)
	}
	return inner
}

func (l *Lowerer) scalarKind(handle ir.TypeHandle) (ir.ScalarKind, bool) {
	scalar, ok := l.typeInner(handle).(ir.ScalarType)
	if !ok {
		return 0, false
	}
	return scalar.Kind, true
}

// isOpaqueResourceType checks whether a type is a sampler or texture, which
// bind as opaque handles rather than buffers.
func (l *Lowerer) isOpaqueResourceType(handle ir.TypeHandle) bool {
	switch l.typeInner(handle).(type) {
	case ir.SamplerType, ir.ImageType:
		return true
	default:
		return false
	}
}

func (l *Lowerer) checkUnusedVariables(funcName string) {
	for name, span := range l.localDecls {
		if !l.usedLocals[name] {
			if len(name) > 0 && name[0] == '_' {
				continue
			}
			l.warnings = append(l.warnings, Warning{
				Message: fmt.Sprintf("unused variable %q in function %q", name, funcName),
				Span:    span,
			})
		}
	}
}

// bindingFromAttrs extracts an IO binding from parameter or return
// attributes, attaching interpolation settings to location bindings.
func bindingFromAttrs(attrs []Attribute) *ir.Binding {
	var interpolation *ir.Interpolation
	for _, attr := range attrs {
		if interp, ok := attr.(*AttrInterpolate); ok {
			interpolation = &ir.Interpolation{
				Kind:     interpolationKind(interp.Type),
				Sampling: interpolationSampling(interp.Sampling),
			}
		}
	}
	for _, attr := range attrs {
		switch a := attr.(type) {
		case *AttrBuiltin:
			var binding ir.Binding = ir.BuiltinBinding{Builtin: builtinValueFromString(a.Name)}
			return &binding
		case *AttrLocation:
			var binding ir.Binding = ir.LocationBinding{Location: a.Value, Interpolation: interpolation}
			return &binding
		}
	}
	return nil
}

func interpolationKind(name string) ir.InterpolationKind {
	switch name {
	case "flat":
		return ir.InterpolationFlat
	case "linear":
		return ir.InterpolationLinear
	default:
		return ir.InterpolationPerspective
	}
}

func interpolationSampling(name string) ir.InterpolationSampling {
	switch name {
	case "centroid":
		return ir.SamplingCentroid
	case "sample":
		return ir.SamplingSample
	default:
		return ir.SamplingCenter
	}
}

func swizzleComponent(c byte) (ir.SwizzleComponent, bool) {
	switch c {
	case 'x', 'r', 's':
		return ir.SwizzleX, true
	case 'y', 'g', 't':
		return ir.SwizzleY, true
	case 'z', 'b', 'p':
		return ir.SwizzleZ, true
	case 'w', 'a', 'q':
		return ir.SwizzleW, true
	default:
		return 0, false
	}
}

func swizzlePattern(member string, vecSize ir.VectorSize) (ir.VectorSize, [4]ir.SwizzleComponent, error) {
	if len(member) < 2 || len(member) > 4 {
		return 0, [4]ir.SwizzleComponent{}, fmt.Errorf("invalid swizzle %q", member)
	}
	var pattern [4]ir.SwizzleComponent
	for i := 0; i < len(member); i++ {
		comp, ok := swizzleComponent(member[i])
		if !ok {
			return 0, [4]ir.SwizzleComponent{}, fmt.Errorf("invalid swizzle component %q", member)
		}
		if uint8(comp) >= uint8(vecSize) {
			return 0, [4]ir.SwizzleComponent{}, fmt.Errorf("swizzle component %q out of range for vec%v", member, vecSize)
		}
		pattern[i] = comp
	}
	return ir.VectorSize(len(member)), pattern, nil
}

// Operator tables

// binaryOpTable maps AST binary operators to IR operators.
var binaryOpTable = map[BinaryOp]ir.BinaryOperator{
	BinOpAdd:        ir.BinaryAdd,
	BinOpSub:        ir.BinarySubtract,
	BinOpMul:        ir.BinaryMultiply,
	BinOpDiv:        ir.BinaryDivide,
	BinOpMod:        ir.BinaryModulo,
	BinOpEqual:      ir.BinaryEqual,
	BinOpNotEqual:   ir.BinaryNotEqual,
	BinOpLess:       ir.BinaryLess,
	BinOpLessEqual:  ir.BinaryLessEqual,
	BinOpGreater:    ir.BinaryGreater,
	BinOpGreaterEq:  ir.BinaryGreaterEqual,
	BinOpLogicalAnd: ir.BinaryLogicalAnd,
	BinOpLogicalOr:  ir.BinaryLogicalOr,
	BinOpBitAnd:     ir.BinaryAnd,
	BinOpBitOr:      ir.BinaryInclusiveOr,
	BinOpBitXor:     ir.BinaryExclusiveOr,
	BinOpShl:        ir.BinaryShiftLeft,
	BinOpShr:        ir.BinaryShiftRight,
}

var unaryOpTable = map[UnaryOp]ir.UnaryOperator{
	UnOpNegate:     ir.UnaryNegate,
	UnOpLogicalNot: ir.UnaryLogicalNot,
	UnOpBitNot:     ir.UnaryBitwiseNot,
}

// assignOpTable maps compound assignment operators to binary operators.
var assignOpTable = map[AssignOp]ir.BinaryOperator{
	AssignAdd: ir.BinaryAdd,
	AssignSub: ir.BinarySubtract,
	AssignMul: ir.BinaryMultiply,
	AssignDiv: ir.BinaryDivide,
	AssignMod: ir.BinaryModulo,
	AssignAnd: ir.BinaryAnd,
	AssignOr:  ir.BinaryInclusiveOr,
	AssignXor: ir.BinaryExclusiveOr,
	AssignShl: ir.BinaryShiftLeft,
	AssignShr: ir.BinaryShiftRight,
}

// mathFuncTable maps WGSL math builtin names to IR math functions.
var mathFuncTable = map[string]ir.MathFunction{
	"abs":      ir.MathAbs,
	"min":      ir.MathMin,
	"max":      ir.MathMax,
	"clamp":    ir.MathClamp,
	"saturate": ir.MathSaturate,

	"cos":   ir.MathCos,
	"cosh":  ir.MathCosh,
	"sin":   ir.MathSin,
	"sinh":  ir.MathSinh,
	"tan":   ir.MathTan,
	"tanh":  ir.MathTanh,
	"acos":  ir.MathAcos,
	"asin":  ir.MathAsin,
	"atan":  ir.MathAtan,
	"atan2": ir.MathAtan2,
	"asinh": ir.MathAsinh,
	"acosh": ir.MathAcosh,
	"atanh": ir.MathAtanh,

	"radians": ir.MathRadians,
	"degrees": ir.MathDegrees,

	"ceil":  ir.MathCeil,
	"floor": ir.MathFloor,
	"round": ir.MathRound,
	"fract": ir.MathFract,
	"trunc": ir.MathTrunc,

	"exp":  ir.MathExp,
	"exp2": ir.MathExp2,
	"log":  ir.MathLog,
	"log2": ir.MathLog2,
	"pow":  ir.MathPow,

	"dot":         ir.MathDot,
	"cross":       ir.MathCross,
	"distance":    ir.MathDistance,
	"length":      ir.MathLength,
	"normalize":   ir.MathNormalize,
	"faceForward": ir.MathFaceForward,
	"reflect":     ir.MathReflect,
	"refract":     ir.MathRefract,

	"sign":        ir.MathSign,
	"fma":         ir.MathFma,
	"mix":         ir.MathMix,
	"step":        ir.MathStep,
	"smoothstep":  ir.MathSmoothStep,
	"sqrt":        ir.MathSqrt,
	"inverseSqrt": ir.MathInverseSqrt,

	"transpose":   ir.MathTranspose,
	"determinant": ir.MathDeterminant,

	"countTrailingZeros": ir.MathCountTrailingZeros,
	"countLeadingZeros":  ir.MathCountLeadingZeros,
	"countOneBits":       ir.MathCountOneBits,
	"reverseBits":        ir.MathReverseBits,
	"extractBits":        ir.MathExtractBits,
	"insertBits":         ir.MathInsertBits,
	"firstTrailingBit":   ir.MathFirstTrailingBit,
	"firstLeadingBit":    ir.MathFirstLeadingBit,

	"pack4x8snorm":  ir.MathPack4x8snorm,
	"pack4x8unorm":  ir.MathPack4x8unorm,
	"pack2x16snorm": ir.MathPack2x16snorm,
	"pack2x16unorm": ir.MathPack2x16unorm,
	"pack2x16float": ir.MathPack2x16float,

	"unpack4x8snorm":  ir.MathUnpack4x8snorm,
	"unpack4x8unorm":  ir.MathUnpack4x8unorm,
	"unpack2x16snorm": ir.MathUnpack2x16snorm,
	"unpack2x16unorm": ir.MathUnpack2x16unorm,
	"unpack2x16float": ir.MathUnpack2x16float,
	"unpack4xI8":      ir.MathUnpack4xI8,
	"unpack4xU8":      ir.MathUnpack4xU8,
	"pack4xI8":        ir.MathPack4xI8,
	"pack4xU8":        ir.MathPack4xU8,
	"pack4xI8Clamp":   ir.MathPack4xI8Clamp,
	"pack4xU8Clamp":   ir.MathPack4xU8Clamp,

	"modf":  ir.MathModf,
	"frexp": ir.MathFrexp,
	"ldexp": ir.MathLdexp,

	"inverse": ir.MathInverse,

	"quantizeToF16": ir.MathQuantizeF16,

	"outerProduct": ir.MathOuter,
}

// storageFormatTable maps WGSL storage texel format names to IR formats.
var storageFormatTable = map[string]ir.StorageFormat{
	"r8unorm": ir.StorageFormatR8Unorm,
	"r8snorm": ir.StorageFormatR8Snorm,
	"r8uint":  ir.StorageFormatR8Uint,
	"r8sint":  ir.StorageFormatR8Sint,

	"r16uint":  ir.StorageFormatR16Uint,
	"r16sint":  ir.StorageFormatR16Sint,
	"r16float": ir.StorageFormatR16Float,
	"rg8unorm": ir.StorageFormatRg8Unorm,
	"rg8snorm": ir.StorageFormatRg8Snorm,
	"rg8uint":  ir.StorageFormatRg8Uint,
	"rg8sint":  ir.StorageFormatRg8Sint,

	"r32uint":    ir.StorageFormatR32Uint,
	"r32sint":    ir.StorageFormatR32Sint,
	"r32float":   ir.StorageFormatR32Float,
	"rg16uint":   ir.StorageFormatRg16Uint,
	"rg16sint":   ir.StorageFormatRg16Sint,
	"rg16float":  ir.StorageFormatRg16Float,
	"rgba8unorm": ir.StorageFormatRgba8Unorm,
	"rgba8snorm": ir.StorageFormatRgba8Snorm,
	"rgba8uint":  ir.StorageFormatRgba8Uint,
	"rgba8sint":  ir.StorageFormatRgba8Sint,
	"bgra8unorm": ir.StorageFormatBgra8Unorm,

	"rgb10a2uint":  ir.StorageFormatRgb10a2Uint,
	"rgb10a2unorm": ir.StorageFormatRgb10a2Unorm,
	"rg11b10float": ir.StorageFormatRg11b10Ufloat,

	"rg32uint":    ir.StorageFormatRg32Uint,
	"rg32sint":    ir.StorageFormatRg32Sint,
	"rg32float":   ir.StorageFormatRg32Float,
	"rgba16uint":  ir.StorageFormatRgba16Uint,
	"rgba16sint":  ir.StorageFormatRgba16Sint,
	"rgba16float": ir.StorageFormatRgba16Float,

	"rgba32uint":  ir.StorageFormatRgba32Uint,
	"rgba32sint":  ir.StorageFormatRgba32Sint,
	"rgba32float": ir.StorageFormatRgba32Float,

	"r16unorm":    ir.StorageFormatR16Unorm,
	"r16snorm":    ir.StorageFormatR16Snorm,
	"rg16unorm":   ir.StorageFormatRg16Unorm,
	"rg16snorm":   ir.StorageFormatRg16Snorm,
	"rgba16unorm": ir.StorageFormatRgba16Unorm,
	"rgba16snorm": ir.StorageFormatRgba16Snorm,
}
