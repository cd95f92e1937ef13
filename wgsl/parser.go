package wgsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/wgslc/diag"
)

// defaultMaxErrors bounds the number of parse errors recorded before the
// parser gives up on the rest of the input.
const defaultMaxErrors = 25

// expect is the result of a production that must match at the current
// position. When errored is set the error has already been recorded and
// the value is meaningless.
type expect[T any] struct {
	value   T
	errored bool
}

// maybe is the result of an optional production. matched reports whether
// the production applied at all; errored reports that it applied but
// failed partway (the error has already been recorded).
type maybe[T any] struct {
	value   T
	matched bool
	errored bool
}

func succeeded[T any](v T) expect[T] { return expect[T]{value: v} }

func failed[T any]() expect[T] { return expect[T]{errored: true} }

func matchedAs[T any](v T) maybe[T] { return maybe[T]{value: v, matched: true} }

func unmatched[T any]() maybe[T] { return maybe[T]{} }

func erroredAs[T any]() maybe[T] { return maybe[T]{matched: true, errored: true} }

// Parser parses WGSL tokens into a Program.
//
// Errors never abort the parse outright: after recording an error the
// parser suppresses further errors until it resynchronizes on a token
// from the active sync stack (or a declaration boundary), then resumes.
// Parsing stops early only when the error cap is reached.
type Parser struct {
	program      *Program
	tokens       []Token
	current      int
	syncTokens   []TokenKind
	synchronized bool
	errorCount   int
	maxErrors    int
}

// NewParser creates a new parser for the given tokens.
func NewParser(tokens []Token) *Parser {
	return &Parser{
		program:      NewProgram(),
		tokens:       tokens,
		synchronized: true,
		maxErrors:    defaultMaxErrors,
	}
}

// SetMaxErrors overrides the parse error cap. Values below 1 are ignored.
func (p *Parser) SetMaxErrors(n int) {
	if n >= 1 {
		p.maxErrors = n
	}
}

// Parse tokenizes and parses source, returning the Program. The Program
// is never nil; check Diagnostics (or IsValid) for errors.
func Parse(source string) *Program {
	return NewParser(NewLexer(source).Tokenize()).Parse()
}

// Parse parses the token stream into a Program.
func (p *Parser) Parse() *Program {
	for !p.isAtEnd() && p.continueParsing() {
		p.globalDecl()
	}
	return p.program
}

func (p *Parser) continueParsing() bool {
	return p.errorCount < p.maxErrors
}

// globalDecl parses one module-scope declaration or directive.
func (p *Parser) globalDecl() {
	attrs := p.attributes()

	tok := p.peek()
	switch tok.Kind {
	case TokenSemicolon:
		p.advance()
	case TokenEnable:
		p.enableDirective()
	case TokenDiagnostic:
		p.diagnosticDirective()
	case TokenFn:
		if !p.functionDecl(attrs) {
			p.recoverToDecl()
		}
	case TokenStruct:
		if !p.structDecl(attrs) {
			p.recoverToDecl()
		}
	case TokenVar:
		if !p.globalVarDecl(attrs) {
			p.recoverToDecl()
		}
	case TokenConst, TokenLet:
		if !p.globalConstDecl() {
			p.recoverToDecl()
		}
	case TokenOverride:
		if !p.overrideDecl(attrs) {
			p.recoverToDecl()
		}
	case TokenAlias:
		if !p.aliasDecl() {
			p.recoverToDecl()
		}
	case TokenConstAssert:
		if !p.moduleConstAssert() {
			p.recoverToDecl()
		}
	default:
		p.errorAtToken(tok, fmt.Sprintf("unexpected token %s, expected declaration", tok.Kind))
		p.recoverToDecl()
	}
}

// enableDirective parses `enable ext1, ext2;`.
func (p *Parser) enableDirective() {
	start := p.advance() // consume 'enable'

	var exts []string
	for p.check(TokenIdent) || p.peek().Kind.isTypeKeyword() {
		exts = append(exts, p.advance().Lexeme)
		if !p.match(TokenComma) {
			break
		}
	}
	p.match(TokenSemicolon)

	p.program.Enables = append(p.program.Enables, Enable{
		Extensions: exts,
		Span:       p.spanFrom(start),
	})
}

// diagnosticDirective parses `diagnostic(severity, rule);`.
func (p *Parser) diagnosticDirective() {
	start := p.advance() // consume 'diagnostic'

	var severity, rule string
	if p.expectToken(TokenLeftParen) {
		if p.check(TokenIdent) {
			severity = p.advance().Lexeme
		}
		if p.match(TokenComma) {
			// Rule names may be dotted: derivative_uniformity or chromium.foo
			var parts []string
			for p.check(TokenIdent) {
				parts = append(parts, p.advance().Lexeme)
				if !p.match(TokenDot) {
					break
				}
			}
			rule = strings.Join(parts, ".")
		}
		p.expectToken(TokenRightParen)
	}
	p.match(TokenSemicolon)

	p.program.DiagnosticDirectives = append(p.program.DiagnosticDirectives, DiagnosticDirective{
		Severity: severity,
		Rule:     rule,
		Span:     p.spanFrom(start),
	})
}

// moduleConstAssert parses a module-scope `const_assert expr;`.
func (p *Parser) moduleConstAssert() bool {
	start := p.advance() // consume 'const_assert'

	expr := p.expression()
	if expr.errored {
		return false
	}
	p.match(TokenSemicolon)

	p.program.ConstAsserts = append(p.program.ConstAsserts, ConstAssert{
		Expr: expr.value,
		Span: p.spanFrom(start),
	})
	return true
}

// functionDecl parses a function declaration.
func (p *Parser) functionDecl(attrs []Attribute) bool {
	start := p.advance() // consume 'fn'

	if !p.check(TokenIdent) {
		p.errorAtToken(p.peek(), "expected function name")
		return false
	}
	name := p.advance()

	if !p.expectToken(TokenLeftParen) {
		return false
	}

	params := make([]*Parameter, 0, 4)
	p.pushSync(TokenRightParen)
	ok := true
	for !p.check(TokenRightParen) && !p.isAtEnd() {
		param := p.parameter()
		if param.errored {
			ok = false
			break
		}
		params = append(params, param.value)
		if !p.match(TokenComma) {
			break
		}
	}
	p.popSync()
	if !ok {
		p.recoverParamList()
	} else if !p.expectToken(TokenRightParen) {
		return false
	}

	returnType := NoType
	var returnAttrs []Attribute
	if p.match(TokenArrow) {
		returnAttrs = p.attributes()
		rt := p.typeSpec()
		if rt.errored {
			return false
		}
		returnType = rt.value
	}

	body := p.blockStmt()
	if body.errored {
		return false
	}

	p.program.Functions = append(p.program.Functions, &FunctionDecl{
		Name:        name.Lexeme,
		Params:      params,
		ReturnType:  returnType,
		ReturnAttrs: returnAttrs,
		Attributes:  attrs,
		Body:        body.value,
		Span:        p.spanFrom(start),
	})
	return true
}

// parameter parses a function parameter.
func (p *Parser) parameter() expect[*Parameter] {
	attrs := p.attributes()

	if !p.check(TokenIdent) {
		p.errorAtToken(p.peek(), "expected parameter name")
		return failed[*Parameter]()
	}
	name := p.advance()

	if !p.expectToken(TokenColon) {
		return failed[*Parameter]()
	}

	paramType := p.typeSpec()
	if paramType.errored {
		return failed[*Parameter]()
	}

	return succeeded(&Parameter{
		Name:       name.Lexeme,
		Type:       paramType.value,
		Attributes: attrs,
		Span:       p.spanFrom(name),
	})
}

// structDecl parses a struct declaration.
func (p *Parser) structDecl(attrs []Attribute) bool {
	_ = attrs // structs carry no attributes in current WGSL
	start := p.advance()

	if !p.check(TokenIdent) {
		p.errorAtToken(p.peek(), "expected struct name")
		return false
	}
	name := p.advance()

	if !p.expectToken(TokenLeftBrace) {
		return false
	}

	members := make([]*StructMember, 0, 4)
	p.pushSync(TokenRightBrace)
	for !p.check(TokenRightBrace) && !p.isAtEnd() && p.continueParsing() {
		member := p.structMember()
		if member.errored {
			p.recoverInBlock()
			continue
		}
		members = append(members, member.value)
		p.match(TokenComma)
	}
	p.popSync()

	if !p.expectToken(TokenRightBrace) {
		return false
	}

	p.program.Structs = append(p.program.Structs, &StructDecl{
		Name:    name.Lexeme,
		Members: members,
		Span:    p.spanFrom(start),
	})
	return true
}

// structMember parses a struct member.
func (p *Parser) structMember() expect[*StructMember] {
	attrs := p.attributes()

	if !p.check(TokenIdent) {
		p.errorAtToken(p.peek(), "expected member name")
		return failed[*StructMember]()
	}
	name := p.advance()

	if !p.expectToken(TokenColon) {
		return failed[*StructMember]()
	}

	memberType := p.typeSpec()
	if memberType.errored {
		return failed[*StructMember]()
	}

	return succeeded(&StructMember{
		Name:       name.Lexeme,
		Type:       memberType.value,
		Attributes: attrs,
		Span:       p.spanFrom(name),
	})
}

// globalVarDecl parses a module-scope variable declaration.
func (p *Parser) globalVarDecl(attrs []Attribute) bool {
	start := p.peek()
	decl := p.varDecl(attrs)
	if decl.errored {
		return false
	}
	decl.value.Span = p.spanFrom(start)
	p.program.GlobalVars = append(p.program.GlobalVars, decl.value)
	return true
}

// varDecl parses `var[<space[, access]>] name [: type] [= init];`.
func (p *Parser) varDecl(attrs []Attribute) expect[*VarDecl] {
	start := p.advance() // consume 'var'

	var addressSpace, accessMode string
	if p.match(TokenLess) {
		if p.check(TokenIdent) {
			addressSpace = p.advance().Lexeme
		}
		if p.match(TokenComma) {
			if p.check(TokenIdent) {
				accessMode = p.advance().Lexeme
			}
		}
		if !p.expectCloseAngle() {
			return failed[*VarDecl]()
		}
	}

	if !p.check(TokenIdent) {
		p.errorAtToken(p.peek(), "expected variable name")
		return failed[*VarDecl]()
	}
	name := p.advance()

	varType := NoType
	if p.match(TokenColon) {
		t := p.typeSpec()
		if t.errored {
			return failed[*VarDecl]()
		}
		varType = t.value
	}

	init := NoExpr
	if p.match(TokenEqual) {
		e := p.expression()
		if e.errored {
			return failed[*VarDecl]()
		}
		init = e.value
	}

	p.match(TokenSemicolon)

	return succeeded(&VarDecl{
		Name:         name.Lexeme,
		Type:         varType,
		Init:         init,
		AddressSpace: addressSpace,
		AccessMode:   accessMode,
		Attributes:   attrs,
		Span:         p.spanFrom(start),
	})
}

// globalConstDecl parses a module-scope const declaration. Module-scope
// `let` is accepted as a legacy spelling of const.
func (p *Parser) globalConstDecl() bool {
	start := p.advance() // consume 'const' or 'let'

	if !p.check(TokenIdent) {
		p.errorAtToken(p.peek(), "expected constant name")
		return false
	}
	name := p.advance()

	constType := NoType
	if p.match(TokenColon) {
		t := p.typeSpec()
		if t.errored {
			return false
		}
		constType = t.value
	}

	if !p.expectToken(TokenEqual) {
		return false
	}

	init := p.expression()
	if init.errored {
		return false
	}

	p.match(TokenSemicolon)

	p.program.Constants = append(p.program.Constants, &ConstDecl{
		Name: name.Lexeme,
		Type: constType,
		Init: init.value,
		Span: p.spanFrom(start),
	})
	return true
}

// overrideDecl parses a pipeline-overridable constant declaration.
func (p *Parser) overrideDecl(attrs []Attribute) bool {
	start := p.advance() // consume 'override'

	if !p.check(TokenIdent) {
		p.errorAtToken(p.peek(), "expected override name")
		return false
	}
	name := p.advance()

	overrideType := NoType
	if p.match(TokenColon) {
		t := p.typeSpec()
		if t.errored {
			return false
		}
		overrideType = t.value
	}

	init := NoExpr
	if p.match(TokenEqual) {
		e := p.expression()
		if e.errored {
			return false
		}
		init = e.value
	}

	p.match(TokenSemicolon)

	var id *uint32
	for _, attr := range attrs {
		if a, ok := attr.(*AttrID); ok {
			v := a.Value
			id = &v
		}
	}

	p.program.Overrides = append(p.program.Overrides, &OverrideDecl{
		Name:       name.Lexeme,
		Type:       overrideType,
		Init:       init,
		ID:         id,
		Attributes: attrs,
		Span:       p.spanFrom(start),
	})
	return true
}

// aliasDecl parses a type alias declaration.
func (p *Parser) aliasDecl() bool {
	start := p.advance() // consume 'alias'

	if !p.check(TokenIdent) {
		p.errorAtToken(p.peek(), "expected alias name")
		return false
	}
	name := p.advance()

	if !p.expectToken(TokenEqual) {
		return false
	}

	aliasType := p.typeSpec()
	if aliasType.errored {
		return false
	}

	p.match(TokenSemicolon)

	p.program.Aliases = append(p.program.Aliases, &AliasDecl{
		Name: name.Lexeme,
		Type: aliasType.value,
		Span: p.spanFrom(start),
	})
	return true
}

// attributes parses a list of attributes (@location(0), @vertex, ...).
func (p *Parser) attributes() []Attribute {
	var attrs []Attribute

	for p.check(TokenAt) {
		at := p.advance()

		if !p.check(TokenIdent) && !p.check(TokenConst) && !p.check(TokenDiagnostic) {
			p.errorAtToken(p.peek(), "expected attribute name after '@'")
			continue
		}
		name := p.advance()

		attr := p.attribute(at, name)
		if attr != nil {
			attrs = append(attrs, attr)
		}
	}

	return attrs
}

// attribute parses a single attribute body after its name token.
func (p *Parser) attribute(at, name Token) Attribute {
	span := diag.Span{Start: at.Span.Start, End: name.Span.End}

	switch name.Lexeme {
	case "vertex", "fragment", "compute":
		return &AttrStage{Stage: name.Lexeme, Span: span}
	case "invariant":
		return &AttrInvariant{Span: span}
	case "location":
		if v, ok := p.attrUintArg(name); ok {
			return &AttrLocation{Value: v, Span: span}
		}
	case "binding":
		if v, ok := p.attrUintArg(name); ok {
			return &AttrBinding{Value: v, Span: span}
		}
	case "group":
		if v, ok := p.attrUintArg(name); ok {
			return &AttrGroup{Value: v, Span: span}
		}
	case "size":
		if v, ok := p.attrUintArg(name); ok {
			return &AttrSize{Value: v, Span: span}
		}
	case "align":
		if v, ok := p.attrUintArg(name); ok {
			return &AttrAlign{Value: v, Span: span}
		}
	case "id":
		if v, ok := p.attrUintArg(name); ok {
			return &AttrID{Value: v, Span: span}
		}
	case "builtin":
		if !p.expectToken(TokenLeftParen) {
			return nil
		}
		if !p.check(TokenIdent) {
			p.errorAtToken(p.peek(), "expected builtin name")
			p.skipToRightParen()
			return nil
		}
		builtin := p.advance().Lexeme
		if !p.expectToken(TokenRightParen) {
			p.skipToRightParen()
		}
		return &AttrBuiltin{Name: builtin, Span: span}
	case "workgroup_size":
		if !p.expectToken(TokenLeftParen) {
			return nil
		}
		dims := [3]ExprHandle{NoExpr, NoExpr, NoExpr}
		for i := 0; i < 3; i++ {
			e := p.expression()
			if e.errored {
				p.skipToRightParen()
				return nil
			}
			dims[i] = e.value
			if !p.match(TokenComma) {
				break
			}
		}
		if !p.expectToken(TokenRightParen) {
			p.skipToRightParen()
		}
		return &AttrWorkgroupSize{X: dims[0], Y: dims[1], Z: dims[2], Span: span}
	case "interpolate":
		if !p.expectToken(TokenLeftParen) {
			return nil
		}
		var ty, sampling string
		if p.check(TokenIdent) {
			ty = p.advance().Lexeme
		}
		if p.match(TokenComma) && p.check(TokenIdent) {
			sampling = p.advance().Lexeme
		}
		if !p.expectToken(TokenRightParen) {
			p.skipToRightParen()
		}
		return &AttrInterpolate{Type: ty, Sampling: sampling, Span: span}
	default:
		p.errorAtToken(name, fmt.Sprintf("unknown attribute '@%s'", name.Lexeme))
		// Skip over any argument list so parsing can continue cleanly.
		if p.match(TokenLeftParen) {
			p.skipToRightParen()
		}
		if !p.isAtEnd() {
			p.synchronized = true
		}
	}
	return nil
}

// attrUintArg parses `(N)` for attributes taking one integer argument.
func (p *Parser) attrUintArg(name Token) (uint32, bool) {
	if !p.expectToken(TokenLeftParen) {
		return 0, false
	}
	if !p.check(TokenIntLiteral) {
		p.errorAtToken(p.peek(), fmt.Sprintf("expected integer argument for @%s", name.Lexeme))
		p.skipToRightParen()
		return 0, false
	}
	lit := p.advance()
	v, err := parseUintLiteral(lit.Lexeme)
	if err != nil {
		p.errorAtToken(lit, fmt.Sprintf("invalid integer argument for @%s", name.Lexeme))
		p.skipToRightParen()
		return 0, false
	}
	if !p.expectToken(TokenRightParen) {
		p.skipToRightParen()
		return 0, false
	}
	return v, true
}

func (p *Parser) skipToRightParen() {
	depth := 1
	for !p.isAtEnd() {
		switch p.peek().Kind {
		case TokenLeftParen:
			depth++
		case TokenRightParen:
			depth--
			if depth == 0 {
				p.advance()
				p.synchronized = true
				return
			}
		}
		p.advance()
	}
}

func parseUintLiteral(lexeme string) (uint32, error) {
	s := strings.TrimSuffix(strings.TrimSuffix(lexeme, "u"), "i")
	v, err := strconv.ParseUint(s, 0, 32)
	return uint32(v), err
}

// Types

// typeSpec parses a type expression into the type arena.
func (p *Parser) typeSpec() expect[TypeHandle] {
	tok := p.peek()

	// array<E[, N]>
	if p.check(TokenArray) {
		p.advance()
		if !p.expectToken(TokenLess) {
			return failed[TypeHandle]()
		}

		elem := p.typeSpec()
		if elem.errored {
			return failed[TypeHandle]()
		}

		count := NoExpr
		if p.match(TokenComma) {
			// The size is a unary expression so a closing '>' is never
			// mistaken for a comparison.
			size := p.unary()
			if size.errored {
				return failed[TypeHandle]()
			}
			count = size.value
		}

		if !p.expectCloseAngle() {
			return failed[TypeHandle]()
		}

		return succeeded(p.program.AddType(&ArrayType{
			Element: elem.value,
			Count:   count,
			Span:    p.spanFrom(tok),
		}))
	}

	// ptr<space, T[, access]>
	if p.match(TokenPtr) {
		if !p.expectToken(TokenLess) {
			return failed[TypeHandle]()
		}

		if !p.check(TokenIdent) {
			p.errorAtToken(p.peek(), "expected address space")
			return failed[TypeHandle]()
		}
		addressSpace := p.advance().Lexeme

		if !p.expectToken(TokenComma) {
			return failed[TypeHandle]()
		}

		elem := p.typeSpec()
		if elem.errored {
			return failed[TypeHandle]()
		}

		var accessMode string
		if p.match(TokenComma) {
			if p.check(TokenIdent) {
				accessMode = p.advance().Lexeme
			}
		}

		if !p.expectCloseAngle() {
			return failed[TypeHandle]()
		}

		return succeeded(p.program.AddType(&PtrType{
			AddressSpace: addressSpace,
			Element:      elem.value,
			AccessMode:   accessMode,
			Span:         p.spanFrom(tok),
		}))
	}

	if tok.Kind.isTypeKeyword() || p.check(TokenIdent) {
		name := p.advance()
		var typeArgs []TypeHandle

		if p.match(TokenLess) {
			for !p.check(TokenGreater) && !p.isAtEnd() {
				// Storage texture parameters (texel format, access mode)
				// are plain identifiers; carry them as named types.
				arg := p.typeSpec()
				if arg.errored {
					return failed[TypeHandle]()
				}
				typeArgs = append(typeArgs, arg.value)
				if !p.match(TokenComma) {
					break
				}
			}
			if !p.expectCloseAngle() {
				return failed[TypeHandle]()
			}
		}

		return succeeded(p.program.AddType(&NamedType{
			Name:     name.Lexeme,
			TypeArgs: typeArgs,
			Span:     p.spanFrom(name),
		}))
	}

	p.errorAtToken(tok, fmt.Sprintf("expected type, got %s", tok.Kind))
	return failed[TypeHandle]()
}

// Statements

// blockStmt parses `{ statements }` into the statement arena.
func (p *Parser) blockStmt() expect[StmtHandle] {
	start := p.peek()
	if !p.expectToken(TokenLeftBrace) {
		return failed[StmtHandle]()
	}

	stmts := make([]StmtHandle, 0, 4)
	p.pushSync(TokenRightBrace)
	for !p.check(TokenRightBrace) && !p.isAtEnd() && p.continueParsing() {
		if p.match(TokenSemicolon) {
			continue // empty statement
		}
		s := p.statement()
		if s.errored {
			p.recoverInBlock()
			continue
		}
		if !s.matched {
			p.errorAtToken(p.peek(), fmt.Sprintf("unexpected token %s in block", p.peek().Kind))
			p.recoverInBlock()
			continue
		}
		stmts = append(stmts, s.value)
	}
	p.popSync()

	p.expectToken(TokenRightBrace)

	return succeeded(p.program.AddStmt(&BlockStmt{
		Stmts: stmts,
		Span:  p.spanFrom(start),
	}))
}

// statement parses one statement. Unmatched means the current token
// cannot begin a statement.
func (p *Parser) statement() maybe[StmtHandle] {
	switch p.peek().Kind {
	case TokenReturn:
		return p.returnStmt()
	case TokenIf:
		return toMaybe(p.ifStmt())
	case TokenFor:
		return toMaybe(p.forStmt())
	case TokenWhile:
		return toMaybe(p.whileStmt())
	case TokenLoop:
		return toMaybe(p.loopStmt())
	case TokenSwitch:
		return toMaybe(p.switchStmt())
	case TokenBreak:
		start := p.advance()
		p.match(TokenSemicolon)
		return matchedAs(p.program.AddStmt(&BreakStmt{Span: p.spanFrom(start)}))
	case TokenContinue:
		start := p.advance()
		p.match(TokenSemicolon)
		return matchedAs(p.program.AddStmt(&ContinueStmt{Span: p.spanFrom(start)}))
	case TokenDiscard:
		start := p.advance()
		p.match(TokenSemicolon)
		return matchedAs(p.program.AddStmt(&DiscardStmt{Span: p.spanFrom(start)}))
	case TokenVar:
		return toMaybe(p.localVarStmt())
	case TokenLet:
		return toMaybe(p.localDeclStmt(DeclLet))
	case TokenConst:
		return toMaybe(p.localDeclStmt(DeclConst))
	case TokenConstAssert:
		return toMaybe(p.constAssertStmt())
	case TokenLeftBrace:
		return toMaybe(p.blockStmt())
	default:
		if p.startsExpression() {
			return toMaybe(p.exprOrAssignStmt())
		}
		return unmatched[StmtHandle]()
	}
}

func toMaybe[T any](e expect[T]) maybe[T] {
	if e.errored {
		return erroredAs[T]()
	}
	return matchedAs(e.value)
}

// startsExpression reports whether the current token can begin an
// expression statement.
func (p *Parser) startsExpression() bool {
	switch p.peek().Kind {
	case TokenIdent, TokenIntLiteral, TokenFloatLiteral, TokenTrue, TokenFalse,
		TokenLeftParen, TokenMinus, TokenBang, TokenTilde, TokenAmpersand, TokenStar:
		return true
	}
	return p.peek().Kind.isTypeKeyword()
}

// returnStmt parses a return statement.
func (p *Parser) returnStmt() maybe[StmtHandle] {
	start := p.advance() // consume 'return'

	value := NoExpr
	if !p.check(TokenSemicolon) && !p.check(TokenRightBrace) {
		e := p.expression()
		if e.errored {
			return erroredAs[StmtHandle]()
		}
		value = e.value
	}
	p.match(TokenSemicolon)

	return matchedAs(p.program.AddStmt(&ReturnStmt{
		Value: value,
		Span:  p.spanFrom(start),
	}))
}

// ifStmt parses an if statement with optional else / else-if chain.
func (p *Parser) ifStmt() expect[StmtHandle] {
	start := p.advance() // consume 'if'

	cond := p.expression()
	if cond.errored {
		return failed[StmtHandle]()
	}

	body := p.blockStmt()
	if body.errored {
		return failed[StmtHandle]()
	}

	elseStmt := NoStmt
	if p.match(TokenElse) {
		var e expect[StmtHandle]
		if p.check(TokenIf) {
			e = p.ifStmt()
		} else {
			e = p.blockStmt()
		}
		if e.errored {
			return failed[StmtHandle]()
		}
		elseStmt = e.value
	}

	return succeeded(p.program.AddStmt(&IfStmt{
		Cond: cond.value,
		Body: body.value,
		Else: elseStmt,
		Span: p.spanFrom(start),
	}))
}

// forStmt parses a for loop.
func (p *Parser) forStmt() expect[StmtHandle] {
	start := p.advance() // consume 'for'

	if !p.expectToken(TokenLeftParen) {
		return failed[StmtHandle]()
	}

	init := NoStmt
	if !p.check(TokenSemicolon) {
		s := p.simpleStmt()
		if s.errored {
			return failed[StmtHandle]()
		}
		init = s.value
	}
	p.match(TokenSemicolon)

	cond := NoExpr
	if !p.check(TokenSemicolon) {
		e := p.expression()
		if e.errored {
			return failed[StmtHandle]()
		}
		cond = e.value
	}
	p.match(TokenSemicolon)

	update := NoStmt
	if !p.check(TokenRightParen) {
		s := p.simpleStmt()
		if s.errored {
			return failed[StmtHandle]()
		}
		update = s.value
	}

	if !p.expectToken(TokenRightParen) {
		return failed[StmtHandle]()
	}

	body := p.blockStmt()
	if body.errored {
		return failed[StmtHandle]()
	}

	return succeeded(p.program.AddStmt(&ForStmt{
		Init:   init,
		Cond:   cond,
		Update: update,
		Body:   body.value,
		Span:   p.spanFrom(start),
	}))
}

// simpleStmt parses the statement forms allowed in a for header:
// declarations, assignments, increment/decrement, and calls. The
// trailing semicolon, if any, is left for the caller.
func (p *Parser) simpleStmt() expect[StmtHandle] {
	switch p.peek().Kind {
	case TokenVar:
		return p.localVarStmt()
	case TokenLet:
		return p.localDeclStmt(DeclLet)
	case TokenConst:
		return p.localDeclStmt(DeclConst)
	default:
		return p.exprOrAssignStmt()
	}
}

// whileStmt parses a while loop.
func (p *Parser) whileStmt() expect[StmtHandle] {
	start := p.advance() // consume 'while'

	cond := p.expression()
	if cond.errored {
		return failed[StmtHandle]()
	}

	body := p.blockStmt()
	if body.errored {
		return failed[StmtHandle]()
	}

	return succeeded(p.program.AddStmt(&WhileStmt{
		Cond: cond.value,
		Body: body.value,
		Span: p.spanFrom(start),
	}))
}

// loopStmt parses `loop { body... [continuing { ... [break if expr;] }] }`.
func (p *Parser) loopStmt() expect[StmtHandle] {
	start := p.advance() // consume 'loop'

	if !p.expectToken(TokenLeftBrace) {
		return failed[StmtHandle]()
	}

	bodyStart := p.previous()
	stmts := make([]StmtHandle, 0, 4)
	p.pushSync(TokenRightBrace)
	for !p.check(TokenRightBrace) && !p.check(TokenContinuing) && !p.isAtEnd() && p.continueParsing() {
		if p.match(TokenSemicolon) {
			continue
		}
		s := p.statement()
		if s.errored {
			p.recoverInBlock()
			continue
		}
		if !s.matched {
			p.errorAtToken(p.peek(), fmt.Sprintf("unexpected token %s in loop body", p.peek().Kind))
			p.recoverInBlock()
			continue
		}
		stmts = append(stmts, s.value)
	}
	p.popSync()

	continuing := NoStmt
	breakIf := NoExpr
	if p.match(TokenContinuing) {
		c := p.continuingBlock()
		if c.errored {
			return failed[StmtHandle]()
		}
		continuing = c.value.block
		breakIf = c.value.breakIf
	}

	if !p.expectToken(TokenRightBrace) {
		return failed[StmtHandle]()
	}

	body := p.program.AddStmt(&BlockStmt{
		Stmts: stmts,
		Span:  p.spanFrom(bodyStart),
	})

	return succeeded(p.program.AddStmt(&LoopStmt{
		Body:       body,
		Continuing: continuing,
		BreakIf:    breakIf,
		Span:       p.spanFrom(start),
	}))
}

type continuingResult struct {
	block   StmtHandle
	breakIf ExprHandle
}

// continuingBlock parses the continuing block of a loop, including the
// optional trailing `break if expr;`.
func (p *Parser) continuingBlock() expect[continuingResult] {
	start := p.peek()
	if !p.expectToken(TokenLeftBrace) {
		return failed[continuingResult]()
	}

	stmts := make([]StmtHandle, 0, 2)
	breakIf := NoExpr
	p.pushSync(TokenRightBrace)
	for !p.check(TokenRightBrace) && !p.isAtEnd() && p.continueParsing() {
		if p.match(TokenSemicolon) {
			continue
		}
		if p.check(TokenBreak) && p.peekNext().Kind == TokenIf {
			p.advance() // break
			p.advance() // if
			e := p.expression()
			if e.errored {
				p.popSync()
				return failed[continuingResult]()
			}
			breakIf = e.value
			p.match(TokenSemicolon)
			break
		}
		s := p.statement()
		if s.errored {
			p.recoverInBlock()
			continue
		}
		if !s.matched {
			p.errorAtToken(p.peek(), fmt.Sprintf("unexpected token %s in continuing block", p.peek().Kind))
			p.recoverInBlock()
			continue
		}
		stmts = append(stmts, s.value)
	}
	p.popSync()

	if !p.expectToken(TokenRightBrace) {
		return failed[continuingResult]()
	}

	block := p.program.AddStmt(&BlockStmt{
		Stmts: stmts,
		Span:  p.spanFrom(start),
	})
	return succeeded(continuingResult{block: block, breakIf: breakIf})
}

// switchStmt parses a switch statement.
func (p *Parser) switchStmt() expect[StmtHandle] {
	start := p.advance() // consume 'switch'

	selector := p.expression()
	if selector.errored {
		return failed[StmtHandle]()
	}

	if !p.expectToken(TokenLeftBrace) {
		return failed[StmtHandle]()
	}

	var cases []SwitchCaseClause
	p.pushSync(TokenRightBrace)
	for !p.check(TokenRightBrace) && !p.isAtEnd() && p.continueParsing() {
		clause := p.switchCaseClause()
		if clause.errored {
			p.recoverInBlock()
			continue
		}
		cases = append(cases, clause.value)
	}
	p.popSync()

	if !p.expectToken(TokenRightBrace) {
		return failed[StmtHandle]()
	}

	return succeeded(p.program.AddStmt(&SwitchStmt{
		Selector: selector.value,
		Cases:    cases,
		Span:     p.spanFrom(start),
	}))
}

// switchCaseClause parses one case or default clause.
func (p *Parser) switchCaseClause() expect[SwitchCaseClause] {
	start := p.peek()
	var selectors []ExprHandle
	isDefault := false

	switch {
	case p.match(TokenDefault):
		isDefault = true
	case p.match(TokenCase):
		for {
			if p.match(TokenDefault) {
				isDefault = true
			} else {
				e := p.expression()
				if e.errored {
					return failed[SwitchCaseClause]()
				}
				selectors = append(selectors, e.value)
			}
			if !p.match(TokenComma) {
				break
			}
		}
	default:
		p.errorAtToken(start, "expected 'case' or 'default'")
		return failed[SwitchCaseClause]()
	}

	// The colon between the selectors and the body is optional.
	p.match(TokenColon)

	body := p.blockStmt()
	if body.errored {
		return failed[SwitchCaseClause]()
	}

	return succeeded(SwitchCaseClause{
		Selectors: selectors,
		IsDefault: isDefault,
		Body:      body.value,
		Span:      p.spanFrom(start),
	})
}

// localVarStmt parses a function-scope var declaration.
func (p *Parser) localVarStmt() expect[StmtHandle] {
	start := p.peek()
	decl := p.varDecl(nil)
	if decl.errored {
		return failed[StmtHandle]()
	}
	return succeeded(p.program.AddStmt(&DeclStmt{
		Kind: DeclVar,
		Name: decl.value.Name,
		Type: decl.value.Type,
		Init: decl.value.Init,
		Span: p.spanFrom(start),
	}))
}

// localDeclStmt parses a function-scope let or const declaration.
func (p *Parser) localDeclStmt(kind DeclKind) expect[StmtHandle] {
	start := p.advance() // consume 'let' or 'const'

	if !p.check(TokenIdent) {
		p.errorAtToken(p.peek(), "expected variable name")
		return failed[StmtHandle]()
	}
	name := p.advance()

	declType := NoType
	if p.match(TokenColon) {
		t := p.typeSpec()
		if t.errored {
			return failed[StmtHandle]()
		}
		declType = t.value
	}

	if !p.expectToken(TokenEqual) {
		return failed[StmtHandle]()
	}

	init := p.expression()
	if init.errored {
		return failed[StmtHandle]()
	}

	p.match(TokenSemicolon)

	return succeeded(p.program.AddStmt(&DeclStmt{
		Kind: kind,
		Name: name.Lexeme,
		Type: declType,
		Init: init.value,
		Span: p.spanFrom(start),
	}))
}

// constAssertStmt parses a function-scope const_assert.
func (p *Parser) constAssertStmt() expect[StmtHandle] {
	start := p.advance() // consume 'const_assert'

	expr := p.expression()
	if expr.errored {
		return failed[StmtHandle]()
	}
	p.match(TokenSemicolon)

	return succeeded(p.program.AddStmt(&ConstAssertStmt{
		Expr: expr.value,
		Span: p.spanFrom(start),
	}))
}

// exprOrAssignStmt parses an assignment, increment/decrement, or call
// statement. The trailing semicolon is consumed when present.
func (p *Parser) exprOrAssignStmt() expect[StmtHandle] {
	start := p.peek()

	// Phony assignment: _ = expr;
	phony := false
	if p.check(TokenIdent) && start.Lexeme == "_" && p.peekNext().Kind == TokenEqual {
		p.advance()
		phony = true
	}

	var lhs ExprHandle = NoExpr
	if !phony {
		e := p.expression()
		if e.errored {
			return failed[StmtHandle]()
		}
		lhs = e.value
	}

	if op, isAssign := assignOpFor(p.peek().Kind); phony || isAssign {
		if phony {
			op = AssignPlain
		}
		p.advance() // consume the operator
		rhs := p.expression()
		if rhs.errored {
			return failed[StmtHandle]()
		}
		p.match(TokenSemicolon)
		return succeeded(p.program.AddStmt(&AssignStmt{
			LHS:   lhs,
			Op:    op,
			RHS:   rhs.value,
			Phony: phony,
			Span:  p.spanFrom(start),
		}))
	}

	if p.check(TokenPlusPlus) || p.check(TokenMinusMinus) {
		inc := p.advance().Kind == TokenPlusPlus
		p.match(TokenSemicolon)
		return succeeded(p.program.AddStmt(&IncDecStmt{
			Target:    lhs,
			Increment: inc,
			Span:      p.spanFrom(start),
		}))
	}

	if _, isCall := p.program.Expr(lhs).(*CallExpr); !isCall {
		p.errorAt(p.program.Expr(lhs).Pos(), "expression is not a statement")
		return failed[StmtHandle]()
	}

	p.match(TokenSemicolon)
	return succeeded(p.program.AddStmt(&CallStmt{
		Call: lhs,
		Span: p.spanFrom(start),
	}))
}

func assignOpFor(kind TokenKind) (AssignOp, bool) {
	switch kind {
	case TokenEqual:
		return AssignPlain, true
	case TokenPlusEqual:
		return AssignAdd, true
	case TokenMinusEqual:
		return AssignSub, true
	case TokenStarEqual:
		return AssignMul, true
	case TokenSlashEqual:
		return AssignDiv, true
	case TokenPercentEqual:
		return AssignMod, true
	case TokenAmpEqual:
		return AssignAnd, true
	case TokenPipeEqual:
		return AssignOr, true
	case TokenCaretEqual:
		return AssignXor, true
	case TokenLessLessEqual:
		return AssignShl, true
	case TokenGreaterGreaterEqual:
		return AssignShr, true
	}
	return 0, false
}

// Expressions
//
// The precedence chain follows the WGSL grammar from lowest (||) to
// highest (unary / postfix).

func (p *Parser) expression() expect[ExprHandle] {
	return p.logicalOr()
}

func (p *Parser) logicalOr() expect[ExprHandle] {
	return p.binaryLevel(p.logicalAnd, TokenPipePipe)
}

func (p *Parser) logicalAnd() expect[ExprHandle] {
	return p.binaryLevel(p.bitwiseOr, TokenAmpAmp)
}

func (p *Parser) bitwiseOr() expect[ExprHandle] {
	return p.binaryLevel(p.bitwiseXor, TokenPipe)
}

func (p *Parser) bitwiseXor() expect[ExprHandle] {
	return p.binaryLevel(p.bitwiseAnd, TokenCaret)
}

func (p *Parser) bitwiseAnd() expect[ExprHandle] {
	return p.binaryLevel(p.equality, TokenAmpersand)
}

func (p *Parser) equality() expect[ExprHandle] {
	return p.binaryLevel(p.comparison, TokenEqualEqual, TokenBangEqual)
}

func (p *Parser) comparison() expect[ExprHandle] {
	return p.binaryLevel(p.shift, TokenLess, TokenGreater, TokenLessEqual, TokenGreaterEqual)
}

func (p *Parser) shift() expect[ExprHandle] {
	return p.binaryLevel(p.additive, TokenLessLess, TokenGreaterGreater)
}

func (p *Parser) additive() expect[ExprHandle] {
	return p.binaryLevel(p.multiplicative, TokenPlus, TokenMinus)
}

func (p *Parser) multiplicative() expect[ExprHandle] {
	return p.binaryLevel(p.unary, TokenStar, TokenSlash, TokenPercent)
}

// binaryLevel parses one left-associative precedence level.
func (p *Parser) binaryLevel(next func() expect[ExprHandle], ops ...TokenKind) expect[ExprHandle] {
	left := next()
	if left.errored {
		return left
	}

	for {
		var op Token
		found := false
		for _, kind := range ops {
			if p.check(kind) {
				op = p.advance()
				found = true
				break
			}
		}
		if !found {
			return left
		}

		right := next()
		if right.errored {
			return right
		}

		binOp, ok := binaryOpFor(op.Kind)
		if !ok {
			p.errorAtToken(op, fmt.Sprintf("unexpected operator %s", op.Kind))
			return failed[ExprHandle]()
		}
		lhsSpan := p.program.Expr(left.value).Pos()
		left = succeeded(p.program.AddExpr(&BinaryExpr{
			LHS:  left.value,
			Op:   binOp,
			RHS:  right.value,
			Span: diag.Span{Start: lhsSpan.Start, End: p.previous().Span.End},
		}))
	}
}

func binaryOpFor(kind TokenKind) (BinaryOp, bool) {
	switch kind {
	case TokenPlus:
		return BinOpAdd, true
	case TokenMinus:
		return BinOpSub, true
	case TokenStar:
		return BinOpMul, true
	case TokenSlash:
		return BinOpDiv, true
	case TokenPercent:
		return BinOpMod, true
	case TokenEqualEqual:
		return BinOpEqual, true
	case TokenBangEqual:
		return BinOpNotEqual, true
	case TokenLess:
		return BinOpLess, true
	case TokenLessEqual:
		return BinOpLessEqual, true
	case TokenGreater:
		return BinOpGreater, true
	case TokenGreaterEqual:
		return BinOpGreaterEq, true
	case TokenAmpAmp:
		return BinOpLogicalAnd, true
	case TokenPipePipe:
		return BinOpLogicalOr, true
	case TokenAmpersand:
		return BinOpBitAnd, true
	case TokenPipe:
		return BinOpBitOr, true
	case TokenCaret:
		return BinOpBitXor, true
	case TokenLessLess:
		return BinOpShl, true
	case TokenGreaterGreater:
		return BinOpShr, true
	}
	return 0, false
}

// unary parses unary expressions.
func (p *Parser) unary() expect[ExprHandle] {
	var op UnaryOp
	switch p.peek().Kind {
	case TokenMinus:
		op = UnOpNegate
	case TokenBang:
		op = UnOpLogicalNot
	case TokenTilde:
		op = UnOpBitNot
	case TokenAmpersand:
		op = UnOpAddressOf
	case TokenStar:
		op = UnOpDeref
	default:
		return p.postfix()
	}

	opTok := p.advance()
	operand := p.unary()
	if operand.errored {
		return operand
	}

	return succeeded(p.program.AddExpr(&UnaryExpr{
		Op:      op,
		Operand: operand.value,
		Span:    p.spanFrom(opTok),
	}))
}

// postfix parses indexing and member access suffixes.
func (p *Parser) postfix() expect[ExprHandle] {
	expr := p.primary()
	if expr.errored {
		return expr
	}

	for {
		switch {
		case p.match(TokenLeftBracket):
			index := p.expression()
			if index.errored {
				return index
			}
			if !p.expectToken(TokenRightBracket) {
				return failed[ExprHandle]()
			}
			base := p.program.Expr(expr.value).Pos()
			expr = succeeded(p.program.AddExpr(&IndexExpr{
				Base:  expr.value,
				Index: index.value,
				Span:  diag.Span{Start: base.Start, End: p.previous().Span.End},
			}))
		case p.match(TokenDot):
			if !p.check(TokenIdent) {
				p.errorAtToken(p.peek(), "expected member name after '.'")
				return failed[ExprHandle]()
			}
			member := p.advance()
			base := p.program.Expr(expr.value).Pos()
			expr = succeeded(p.program.AddExpr(&MemberExpr{
				Base:   expr.value,
				Member: member.Lexeme,
				Span:   diag.Span{Start: base.Start, End: member.Span.End},
			}))
		default:
			return expr
		}
	}
}

// primary parses primary expressions: literals, identifiers, calls,
// type constructors, bitcasts, and parenthesized expressions.
func (p *Parser) primary() expect[ExprHandle] {
	tok := p.peek()

	switch tok.Kind {
	case TokenIntLiteral, TokenFloatLiteral:
		p.advance()
		return succeeded(p.program.AddExpr(&LiteralExpr{
			Kind: tok.Kind,
			Text: tok.Lexeme,
			Span: tok.Span,
		}))

	case TokenTrue, TokenFalse:
		p.advance()
		return succeeded(p.program.AddExpr(&LiteralExpr{
			Kind: tok.Kind,
			Text: tok.Lexeme,
			Span: tok.Span,
		}))

	case TokenIdent:
		// bitcast<T>(expr)
		if tok.Lexeme == "bitcast" && p.peekNext().Kind == TokenLess {
			return p.bitcastExpr()
		}
		p.advance()
		if p.check(TokenLeftParen) {
			return p.callExpr(tok)
		}
		return succeeded(p.program.AddExpr(&IdentExpr{
			Name: tok.Lexeme,
			Span: tok.Span,
		}))

	case TokenLeftParen:
		p.advance()
		expr := p.expression()
		if expr.errored {
			return expr
		}
		if !p.expectToken(TokenRightParen) {
			return failed[ExprHandle]()
		}
		return expr

	default:
		// Type constructor: vec3<f32>(...), f32(x), array<f32, 2>(...)
		if tok.Kind.isTypeKeyword() {
			typeExpr := p.typeSpec()
			if typeExpr.errored {
				return failed[ExprHandle]()
			}
			args, ok := p.argumentList()
			if !ok {
				return failed[ExprHandle]()
			}
			return succeeded(p.program.AddExpr(&ConstructExpr{
				Type: typeExpr.value,
				Args: args,
				Span: p.spanFrom(tok),
			}))
		}

		p.errorAtToken(tok, fmt.Sprintf("unexpected token %s in expression", tok.Kind))
		return failed[ExprHandle]()
	}
}

// callExpr parses the argument list of a call to a named function; the
// name token has already been consumed.
func (p *Parser) callExpr(name Token) expect[ExprHandle] {
	args, ok := p.argumentList()
	if !ok {
		return failed[ExprHandle]()
	}
	return succeeded(p.program.AddExpr(&CallExpr{
		Name: name.Lexeme,
		Args: args,
		Span: p.spanFrom(name),
	}))
}

// bitcastExpr parses bitcast<T>(expr).
func (p *Parser) bitcastExpr() expect[ExprHandle] {
	start := p.advance() // consume 'bitcast'
	p.advance()          // consume '<'

	target := p.typeSpec()
	if target.errored {
		return failed[ExprHandle]()
	}
	if !p.expectCloseAngle() {
		return failed[ExprHandle]()
	}
	if !p.expectToken(TokenLeftParen) {
		return failed[ExprHandle]()
	}
	src := p.expression()
	if src.errored {
		return src
	}
	if !p.expectToken(TokenRightParen) {
		return failed[ExprHandle]()
	}

	return succeeded(p.program.AddExpr(&BitcastExpr{
		Type: target.value,
		Expr: src.value,
		Span: p.spanFrom(start),
	}))
}

// argumentList parses `( expr, ... )`.
func (p *Parser) argumentList() ([]ExprHandle, bool) {
	if !p.expectToken(TokenLeftParen) {
		return nil, false
	}

	args := make([]ExprHandle, 0, 4)
	for !p.check(TokenRightParen) && !p.isAtEnd() {
		arg := p.expression()
		if arg.errored {
			return nil, false
		}
		args = append(args, arg.value)
		if !p.match(TokenComma) {
			break
		}
	}

	if !p.expectToken(TokenRightParen) {
		return nil, false
	}
	return args, true
}

// Error handling and recovery

// errorAt records a parse error unless error reporting is suppressed.
// After recording, reporting stays suppressed until resynchronization so
// one mistake yields one diagnostic.
func (p *Parser) errorAt(span diag.Span, msg string) {
	if !p.synchronized {
		return
	}
	p.synchronized = false
	p.errorCount++
	if p.errorCount > p.maxErrors {
		return
	}
	p.program.Diagnostics.AddError(span, msg)
	if p.errorCount == p.maxErrors {
		p.program.Diagnostics.Add(diag.SeverityNote, span,
			fmt.Sprintf("stopping after %d parse errors", p.maxErrors))
	}
}

func (p *Parser) errorAtToken(tok Token, msg string) {
	p.errorAt(tok.Span, msg)
}

func (p *Parser) pushSync(kind TokenKind) {
	p.syncTokens = append(p.syncTokens, kind)
}

func (p *Parser) popSync() {
	p.syncTokens = p.syncTokens[:len(p.syncTokens)-1]
}

func (p *Parser) isSyncToken(kind TokenKind) bool {
	for _, k := range p.syncTokens {
		if k == kind {
			return true
		}
	}
	return false
}

// syncTo skips tokens until kind (consumed) or any active sync token
// (left in place), re-enabling error reporting. Hitting EOF stops with
// reporting still suppressed: there is no anchor left to resume from.
func (p *Parser) syncTo(kind TokenKind) {
	for !p.isAtEnd() {
		k := p.peek().Kind
		if k == kind {
			p.advance()
			p.synchronized = true
			return
		}
		if p.isSyncToken(k) {
			p.synchronized = true
			return
		}
		p.advance()
	}
}

// recoverParamList resynchronizes after a broken parameter list: skip to
// the closing ')' (consumed) but stop short at anything that can follow
// the list or start the next declaration.
func (p *Parser) recoverParamList() {
	for !p.isAtEnd() {
		switch p.peek().Kind {
		case TokenRightParen:
			p.advance()
			p.synchronized = true
			return
		case TokenLeftBrace, TokenArrow, TokenFn, TokenStruct, TokenVar,
			TokenConst, TokenOverride, TokenAlias, TokenAt:
			p.synchronized = true
			return
		}
		p.advance()
	}
}

// recoverInBlock resynchronizes inside a brace-delimited body: skip to
// the next semicolon (consumed) or to a token that can restart parsing.
func (p *Parser) recoverInBlock() {
	for !p.isAtEnd() {
		switch p.peek().Kind {
		case TokenSemicolon:
			p.advance()
			p.synchronized = true
			return
		case TokenRightBrace, TokenLeftBrace, TokenCase, TokenDefault, TokenContinuing:
			p.synchronized = true
			return
		}
		p.advance()
	}
}

// recoverToDecl resynchronizes at module scope: skip to the next
// semicolon (consumed) or the start of the next declaration.
func (p *Parser) recoverToDecl() {
	for !p.isAtEnd() {
		switch p.peek().Kind {
		case TokenSemicolon:
			p.advance()
			p.synchronized = true
			return
		case TokenFn, TokenStruct, TokenVar, TokenConst, TokenLet, TokenOverride,
			TokenAlias, TokenEnable, TokenConstAssert, TokenAt:
			p.synchronized = true
			return
		}
		p.advance()
	}
}

// Token helpers

func (p *Parser) advance() Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) peekNext() Token {
	if p.current+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current+1]
}

func (p *Parser) previous() Token {
	if p.current == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.current-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Kind == TokenEOF
}

func (p *Parser) check(kind TokenKind) bool {
	if p.isAtEnd() {
		return kind == TokenEOF
	}
	return p.peek().Kind == kind
}

func (p *Parser) match(kind TokenKind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

// expectToken consumes a token of the given kind or records an error.
func (p *Parser) expectToken(kind TokenKind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	p.errorAtToken(p.peek(), fmt.Sprintf("expected %s, got %s", kind, p.peek().Kind))
	return false
}

// expectCloseAngle consumes a '>' closing a template list. When the next
// token is '>>', '>=', or '>>=' its leading '>' is split off in place so
// nested template lists like vec3<vec2<f32>> close correctly.
func (p *Parser) expectCloseAngle() bool {
	tok := p.peek()
	switch tok.Kind {
	case TokenGreater:
		p.advance()
		return true
	case TokenGreaterGreater, TokenGreaterEqual, TokenGreaterGreaterEqual:
		rest := Token{
			Lexeme: tok.Lexeme[1:],
			Span: diag.Span{
				Start: diag.Position{
					Line:   tok.Span.Start.Line,
					Column: tok.Span.Start.Column + 1,
					Offset: tok.Span.Start.Offset + 1,
				},
				End: tok.Span.End,
			},
		}
		switch tok.Kind {
		case TokenGreaterGreater:
			rest.Kind = TokenGreater
		case TokenGreaterEqual:
			rest.Kind = TokenEqual
		case TokenGreaterGreaterEqual:
			rest.Kind = TokenGreaterEqual
		}
		p.tokens[p.current] = rest
		return true
	}
	p.errorAtToken(tok, fmt.Sprintf("expected %s, got %s", TokenGreater, tok.Kind))
	return false
}

func (p *Parser) spanFrom(start Token) diag.Span {
	return diag.Span{Start: start.Span.Start, End: p.previous().Span.End}
}
