package wgsl

// Clone returns an independent deep copy of the Program. Handles remain
// valid in the clone because the arenas are copied index for index.
// Resolution results (Sem) are not carried over; re-resolve the clone if
// semantic information is needed.
func (p *Program) Clone() *Program {
	out := &Program{
		exprs:     make([]Expr, len(p.exprs)),
		stmts:     make([]Stmt, len(p.stmts)),
		typeExprs: make([]TypeDecl, len(p.typeExprs)),
	}

	for i, e := range p.exprs {
		out.exprs[i] = cloneExpr(e)
	}
	for i, s := range p.stmts {
		out.stmts[i] = cloneStmt(s)
	}
	for i, t := range p.typeExprs {
		out.typeExprs[i] = cloneType(t)
	}

	if p.Enables != nil {
		out.Enables = make([]Enable, len(p.Enables))
		for i, e := range p.Enables {
			e.Extensions = append([]string(nil), e.Extensions...)
			out.Enables[i] = e
		}
	}
	if p.DiagnosticDirectives != nil {
		out.DiagnosticDirectives = append([]DiagnosticDirective(nil), p.DiagnosticDirectives...)
	}
	if p.ConstAsserts != nil {
		out.ConstAsserts = append([]ConstAssert(nil), p.ConstAsserts...)
	}

	if p.Structs != nil {
		out.Structs = make([]*StructDecl, len(p.Structs))
		for i, s := range p.Structs {
			cp := *s
			cp.Members = make([]*StructMember, len(s.Members))
			for j, m := range s.Members {
				mc := *m
				mc.Attributes = cloneAttrs(m.Attributes)
				cp.Members[j] = &mc
			}
			out.Structs[i] = &cp
		}
	}
	if p.Functions != nil {
		out.Functions = make([]*FunctionDecl, len(p.Functions))
		for i, f := range p.Functions {
			cp := *f
			cp.Params = make([]*Parameter, len(f.Params))
			for j, par := range f.Params {
				pc := *par
				pc.Attributes = cloneAttrs(par.Attributes)
				cp.Params[j] = &pc
			}
			cp.ReturnAttrs = cloneAttrs(f.ReturnAttrs)
			cp.Attributes = cloneAttrs(f.Attributes)
			out.Functions[i] = &cp
		}
	}
	if p.GlobalVars != nil {
		out.GlobalVars = make([]*VarDecl, len(p.GlobalVars))
		for i, v := range p.GlobalVars {
			cp := *v
			cp.Attributes = cloneAttrs(v.Attributes)
			out.GlobalVars[i] = &cp
		}
	}
	if p.Constants != nil {
		out.Constants = make([]*ConstDecl, len(p.Constants))
		for i, c := range p.Constants {
			cp := *c
			out.Constants[i] = &cp
		}
	}
	if p.Overrides != nil {
		out.Overrides = make([]*OverrideDecl, len(p.Overrides))
		for i, o := range p.Overrides {
			cp := *o
			if o.ID != nil {
				id := *o.ID
				cp.ID = &id
			}
			cp.Attributes = cloneAttrs(o.Attributes)
			out.Overrides[i] = &cp
		}
	}
	if p.Aliases != nil {
		out.Aliases = make([]*AliasDecl, len(p.Aliases))
		for i, a := range p.Aliases {
			cp := *a
			out.Aliases[i] = &cp
		}
	}

	if p.Diagnostics != nil {
		out.Diagnostics = append(out.Diagnostics, p.Diagnostics...)
	}

	return out
}

func cloneExpr(e Expr) Expr {
	switch e := e.(type) {
	case *IdentExpr:
		cp := *e
		return &cp
	case *LiteralExpr:
		cp := *e
		return &cp
	case *BinaryExpr:
		cp := *e
		return &cp
	case *UnaryExpr:
		cp := *e
		return &cp
	case *CallExpr:
		cp := *e
		cp.Args = append([]ExprHandle(nil), e.Args...)
		return &cp
	case *ConstructExpr:
		cp := *e
		cp.Args = append([]ExprHandle(nil), e.Args...)
		return &cp
	case *BitcastExpr:
		cp := *e
		return &cp
	case *IndexExpr:
		cp := *e
		return &cp
	case *MemberExpr:
		cp := *e
		return &cp
	default:
		return e
	}
}

func cloneStmt(s Stmt) Stmt {
	switch s := s.(type) {
	case *BlockStmt:
		cp := *s
		cp.Stmts = append([]StmtHandle(nil), s.Stmts...)
		return &cp
	case *DeclStmt:
		cp := *s
		return &cp
	case *ReturnStmt:
		cp := *s
		return &cp
	case *IfStmt:
		cp := *s
		return &cp
	case *ForStmt:
		cp := *s
		return &cp
	case *WhileStmt:
		cp := *s
		return &cp
	case *LoopStmt:
		cp := *s
		return &cp
	case *BreakStmt:
		cp := *s
		return &cp
	case *ContinueStmt:
		cp := *s
		return &cp
	case *DiscardStmt:
		cp := *s
		return &cp
	case *AssignStmt:
		cp := *s
		return &cp
	case *IncDecStmt:
		cp := *s
		return &cp
	case *CallStmt:
		cp := *s
		return &cp
	case *ConstAssertStmt:
		cp := *s
		return &cp
	case *SwitchStmt:
		cp := *s
		cp.Cases = make([]SwitchCaseClause, len(s.Cases))
		for i, c := range s.Cases {
			c.Selectors = append([]ExprHandle(nil), c.Selectors...)
			cp.Cases[i] = c
		}
		return &cp
	default:
		return s
	}
}

func cloneType(t TypeDecl) TypeDecl {
	switch t := t.(type) {
	case *NamedType:
		cp := *t
		cp.TypeArgs = append([]TypeHandle(nil), t.TypeArgs...)
		return &cp
	case *ArrayType:
		cp := *t
		return &cp
	case *PtrType:
		cp := *t
		return &cp
	default:
		return t
	}
}

func cloneAttrs(attrs []Attribute) []Attribute {
	if attrs == nil {
		return nil
	}
	out := make([]Attribute, len(attrs))
	for i, a := range attrs {
		out[i] = cloneAttr(a)
	}
	return out
}

func cloneAttr(a Attribute) Attribute {
	switch a := a.(type) {
	case *AttrLocation:
		cp := *a
		return &cp
	case *AttrBinding:
		cp := *a
		return &cp
	case *AttrGroup:
		cp := *a
		return &cp
	case *AttrBuiltin:
		cp := *a
		return &cp
	case *AttrStage:
		cp := *a
		return &cp
	case *AttrWorkgroupSize:
		cp := *a
		return &cp
	case *AttrInterpolate:
		cp := *a
		return &cp
	case *AttrInvariant:
		cp := *a
		return &cp
	case *AttrSize:
		cp := *a
		return &cp
	case *AttrAlign:
		cp := *a
		return &cp
	case *AttrID:
		cp := *a
		return &cp
	default:
		return a
	}
}
