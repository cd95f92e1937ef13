package wgsl

// Structural validity checks. Parsing and transforms both hand Programs
// to later stages; StructurallyValid is the sanity gate that catches a
// pass wiring up a node with a missing required child or a dangling
// handle before the resolver or lowering trips over it.

// StructurallyValid reports whether every declaration in the Program is
// complete: required children present, all handles inside the arenas,
// and each reachable node recursively valid.
func (p *Program) StructurallyValid() bool {
	for _, s := range p.Structs {
		if !s.IsValid(p) {
			return false
		}
	}
	for _, f := range p.Functions {
		if !f.IsValid(p) {
			return false
		}
	}
	for _, v := range p.GlobalVars {
		if !v.IsValid(p) {
			return false
		}
	}
	for _, c := range p.Constants {
		if !c.IsValid(p) {
			return false
		}
	}
	for _, o := range p.Overrides {
		if !o.IsValid(p) {
			return false
		}
	}
	for _, a := range p.Aliases {
		if !a.IsValid(p) {
			return false
		}
	}
	for _, ca := range p.ConstAsserts {
		if !p.validExpr(ca.Expr) {
			return false
		}
	}
	return true
}

// IsValid reports whether a function declaration is complete: a name, a
// body, fully-formed parameters, and recursively valid children.
func (f *FunctionDecl) IsValid(p *Program) bool {
	if f.Name == "" || f.Body == NoStmt {
		return false
	}
	for _, param := range f.Params {
		if param == nil || param.Name == "" || !p.validType(param.Type) {
			return false
		}
	}
	if f.ReturnType != NoType && !p.validType(f.ReturnType) {
		return false
	}
	return p.validStmt(f.Body)
}

// IsValid reports whether a struct declaration has a name and
// fully-formed members.
func (s *StructDecl) IsValid(p *Program) bool {
	if s.Name == "" {
		return false
	}
	for _, m := range s.Members {
		if m == nil || m.Name == "" || !p.validType(m.Type) {
			return false
		}
	}
	return true
}

// IsValid reports whether a module-scope var is structurally complete.
// A var with neither type nor initializer parses; the resolver reports
// it, so that stays out of the structural gate.
func (v *VarDecl) IsValid(p *Program) bool {
	return v.Name != "" && p.validOptType(v.Type) && p.validOptExpr(v.Init)
}

// IsValid reports whether a const declaration has a name and an
// initializer.
func (c *ConstDecl) IsValid(p *Program) bool {
	return c.Name != "" && c.Init != NoExpr &&
		p.validOptType(c.Type) && p.validExpr(c.Init)
}

// IsValid reports whether an override declaration is structurally
// complete. Missing both type and default is a resolver diagnostic.
func (o *OverrideDecl) IsValid(p *Program) bool {
	return o.Name != "" && p.validOptType(o.Type) && p.validOptExpr(o.Init)
}

// IsValid reports whether an alias declaration has a name and a target
// type.
func (a *AliasDecl) IsValid(p *Program) bool {
	return a.Name != "" && a.Type != NoType && p.validType(a.Type)
}

func (p *Program) validOptExpr(h ExprHandle) bool {
	return h == NoExpr || p.validExpr(h)
}

func (p *Program) validOptStmt(h StmtHandle) bool {
	return h == NoStmt || p.validStmt(h)
}

func (p *Program) validOptType(h TypeHandle) bool {
	return h == NoType || p.validType(h)
}

func (p *Program) validStmt(h StmtHandle) bool {
	if h == NoStmt || int(h) >= len(p.stmts) {
		return false
	}
	switch s := p.stmts[h].(type) {
	case *BlockStmt:
		for _, child := range s.Stmts {
			if !p.validStmt(child) {
				return false
			}
		}
		return true
	case *DeclStmt:
		return s.Name != "" && p.validOptType(s.Type) && p.validOptExpr(s.Init)
	case *ReturnStmt:
		return p.validOptExpr(s.Value)
	case *IfStmt:
		return p.validExpr(s.Cond) && p.validStmt(s.Body) && p.validOptStmt(s.Else)
	case *ForStmt:
		return p.validOptStmt(s.Init) && p.validOptExpr(s.Cond) &&
			p.validOptStmt(s.Update) && p.validStmt(s.Body)
	case *WhileStmt:
		return p.validExpr(s.Cond) && p.validStmt(s.Body)
	case *LoopStmt:
		if s.BreakIf != NoExpr && s.Continuing == NoStmt {
			return false
		}
		return p.validStmt(s.Body) && p.validOptStmt(s.Continuing) && p.validOptExpr(s.BreakIf)
	case *BreakStmt, *ContinueStmt, *DiscardStmt:
		return true
	case *AssignStmt:
		if s.Phony {
			return s.LHS == NoExpr && p.validExpr(s.RHS)
		}
		return p.validExpr(s.LHS) && p.validExpr(s.RHS)
	case *IncDecStmt:
		return p.validExpr(s.Target)
	case *CallStmt:
		if !p.validExpr(s.Call) {
			return false
		}
		_, isCall := p.exprs[s.Call].(*CallExpr)
		return isCall
	case *ConstAssertStmt:
		return p.validExpr(s.Expr)
	case *SwitchStmt:
		if !p.validExpr(s.Selector) {
			return false
		}
		for _, c := range s.Cases {
			if !c.IsDefault && len(c.Selectors) == 0 {
				return false
			}
			for _, sel := range c.Selectors {
				if !p.validExpr(sel) {
					return false
				}
			}
			if !p.validStmt(c.Body) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (p *Program) validExpr(h ExprHandle) bool {
	if h == NoExpr || int(h) >= len(p.exprs) {
		return false
	}
	switch e := p.exprs[h].(type) {
	case *IdentExpr:
		return e.Name != ""
	case *LiteralExpr:
		return e.Text != ""
	case *BinaryExpr:
		return p.validExpr(e.LHS) && p.validExpr(e.RHS)
	case *UnaryExpr:
		return p.validExpr(e.Operand)
	case *CallExpr:
		if e.Name == "" {
			return false
		}
		for _, arg := range e.Args {
			if !p.validExpr(arg) {
				return false
			}
		}
		return true
	case *ConstructExpr:
		if !p.validType(e.Type) {
			return false
		}
		for _, arg := range e.Args {
			if !p.validExpr(arg) {
				return false
			}
		}
		return true
	case *BitcastExpr:
		return p.validType(e.Type) && p.validExpr(e.Expr)
	case *IndexExpr:
		return p.validExpr(e.Base) && p.validExpr(e.Index)
	case *MemberExpr:
		return e.Member != "" && p.validExpr(e.Base)
	default:
		return false
	}
}

func (p *Program) validType(h TypeHandle) bool {
	if h == NoType || int(h) >= len(p.typeExprs) {
		return false
	}
	switch t := p.typeExprs[h].(type) {
	case *NamedType:
		if t.Name == "" {
			return false
		}
		for _, arg := range t.TypeArgs {
			if !p.validType(arg) {
				return false
			}
		}
		return true
	case *ArrayType:
		return p.validType(t.Element) && p.validOptExpr(t.Count)
	case *PtrType:
		return t.AddressSpace != "" && p.validType(t.Element)
	default:
		return false
	}
}
