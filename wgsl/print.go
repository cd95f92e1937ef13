package wgsl

import (
	"fmt"
	"strings"
)

// Print renders the Program back to WGSL source. Binary expressions are
// always parenthesized, so printing and reparsing yields a structurally
// identical Program.
func Print(p *Program) string {
	pr := &printer{p: p}

	for _, e := range p.Enables {
		pr.writef("enable %s;\n", strings.Join(e.Extensions, ", "))
	}
	for _, d := range p.DiagnosticDirectives {
		pr.writef("diagnostic(%s, %s);\n", d.Severity, d.Rule)
	}
	for _, a := range p.Aliases {
		pr.writef("alias %s = ", a.Name)
		pr.writeType(a.Type)
		pr.write(";\n")
	}

	for _, s := range p.Structs {
		pr.writef("struct %s {\n", s.Name)
		for _, m := range s.Members {
			pr.write("    ")
			pr.writeAttrs(m.Attributes)
			pr.writef("%s: ", m.Name)
			pr.writeType(m.Type)
			pr.write(",\n")
		}
		pr.write("}\n")
	}

	for _, c := range p.Constants {
		pr.writef("const %s", c.Name)
		if c.Type != NoType {
			pr.write(": ")
			pr.writeType(c.Type)
		}
		pr.write(" = ")
		pr.writeExpr(c.Init)
		pr.write(";\n")
	}

	for _, o := range p.Overrides {
		if o.ID != nil {
			pr.writef("@id(%d) ", *o.ID)
		}
		pr.writef("override %s", o.Name)
		if o.Type != NoType {
			pr.write(": ")
			pr.writeType(o.Type)
		}
		if o.Init != NoExpr {
			pr.write(" = ")
			pr.writeExpr(o.Init)
		}
		pr.write(";\n")
	}

	for _, v := range p.GlobalVars {
		pr.writeAttrs(v.Attributes)
		pr.write("var")
		if v.AddressSpace != "" {
			if v.AccessMode != "" {
				pr.writef("<%s, %s>", v.AddressSpace, v.AccessMode)
			} else {
				pr.writef("<%s>", v.AddressSpace)
			}
		}
		pr.writef(" %s", v.Name)
		if v.Type != NoType {
			pr.write(": ")
			pr.writeType(v.Type)
		}
		if v.Init != NoExpr {
			pr.write(" = ")
			pr.writeExpr(v.Init)
		}
		pr.write(";\n")
	}

	for _, ca := range p.ConstAsserts {
		pr.write("const_assert ")
		pr.writeExpr(ca.Expr)
		pr.write(";\n")
	}

	for _, f := range p.Functions {
		pr.writeAttrs(f.Attributes)
		if len(f.Attributes) > 0 {
			pr.trimTrailingSpace()
			pr.write("\n")
		}
		pr.writef("fn %s(", f.Name)
		for i, param := range f.Params {
			if i > 0 {
				pr.write(", ")
			}
			pr.writeAttrs(param.Attributes)
			pr.writef("%s: ", param.Name)
			pr.writeType(param.Type)
		}
		pr.write(")")
		if f.ReturnType != NoType {
			pr.write(" -> ")
			pr.writeAttrs(f.ReturnAttrs)
			pr.writeType(f.ReturnType)
		}
		pr.write(" ")
		pr.writeBlock(f.Body, 0)
		pr.write("\n")
	}

	return pr.sb.String()
}

type printer struct {
	p  *Program
	sb strings.Builder
}

func (pr *printer) write(s string) {
	pr.sb.WriteString(s)
}

func (pr *printer) writef(format string, args ...any) {
	fmt.Fprintf(&pr.sb, format, args...)
}

func (pr *printer) trimTrailingSpace() {
	s := pr.sb.String()
	if strings.HasSuffix(s, " ") {
		pr.sb.Reset()
		pr.sb.WriteString(strings.TrimRight(s, " "))
	}
}

func (pr *printer) indent(level int) {
	for i := 0; i < level; i++ {
		pr.write("    ")
	}
}

func (pr *printer) writeAttrs(attrs []Attribute) {
	for _, a := range attrs {
		pr.writeAttr(a)
		pr.write(" ")
	}
}

func (pr *printer) writeAttr(a Attribute) {
	switch a := a.(type) {
	case *AttrLocation:
		pr.writef("@location(%d)", a.Value)
	case *AttrBinding:
		pr.writef("@binding(%d)", a.Value)
	case *AttrGroup:
		pr.writef("@group(%d)", a.Value)
	case *AttrBuiltin:
		pr.writef("@builtin(%s)", a.Name)
	case *AttrStage:
		pr.writef("@%s", a.Stage)
	case *AttrWorkgroupSize:
		pr.write("@workgroup_size(")
		pr.writeExpr(a.X)
		if a.Y != NoExpr {
			pr.write(", ")
			pr.writeExpr(a.Y)
			if a.Z != NoExpr {
				pr.write(", ")
				pr.writeExpr(a.Z)
			}
		}
		pr.write(")")
	case *AttrInterpolate:
		if a.Sampling != "" {
			pr.writef("@interpolate(%s, %s)", a.Type, a.Sampling)
		} else {
			pr.writef("@interpolate(%s)", a.Type)
		}
	case *AttrInvariant:
		pr.write("@invariant")
	case *AttrSize:
		pr.writef("@size(%d)", a.Value)
	case *AttrAlign:
		pr.writef("@align(%d)", a.Value)
	case *AttrID:
		pr.writef("@id(%d)", a.Value)
	}
}

func (pr *printer) writeType(h TypeHandle) {
	switch t := pr.p.TypeExpr(h).(type) {
	case *NamedType:
		pr.write(t.Name)
		if len(t.TypeArgs) > 0 {
			pr.write("<")
			for i, arg := range t.TypeArgs {
				if i > 0 {
					pr.write(", ")
				}
				pr.writeType(arg)
			}
			pr.write(">")
		}
	case *ArrayType:
		pr.write("array<")
		pr.writeType(t.Element)
		if t.Count != NoExpr {
			pr.write(", ")
			pr.writeExpr(t.Count)
		}
		pr.write(">")
	case *PtrType:
		pr.writef("ptr<%s, ", t.AddressSpace)
		pr.writeType(t.Element)
		if t.AccessMode != "" {
			pr.writef(", %s", t.AccessMode)
		}
		pr.write(">")
	}
}

func (pr *printer) writeExpr(h ExprHandle) {
	switch e := pr.p.Expr(h).(type) {
	case *IdentExpr:
		pr.write(e.Name)
	case *LiteralExpr:
		pr.write(e.Text)
	case *BinaryExpr:
		pr.write("(")
		pr.writeExpr(e.LHS)
		pr.writef(" %s ", e.Op)
		pr.writeExpr(e.RHS)
		pr.write(")")
	case *UnaryExpr:
		pr.write(e.Op.String())
		pr.writeExpr(e.Operand)
	case *CallExpr:
		pr.write(e.Name)
		pr.writeArgs(e.Args)
	case *ConstructExpr:
		pr.writeType(e.Type)
		pr.writeArgs(e.Args)
	case *BitcastExpr:
		pr.write("bitcast<")
		pr.writeType(e.Type)
		pr.write(">(")
		pr.writeExpr(e.Expr)
		pr.write(")")
	case *IndexExpr:
		pr.writeExpr(e.Base)
		pr.write("[")
		pr.writeExpr(e.Index)
		pr.write("]")
	case *MemberExpr:
		pr.writeExpr(e.Base)
		pr.writef(".%s", e.Member)
	}
}

func (pr *printer) writeArgs(args []ExprHandle) {
	pr.write("(")
	for i, arg := range args {
		if i > 0 {
			pr.write(", ")
		}
		pr.writeExpr(arg)
	}
	pr.write(")")
}

func (pr *printer) writeBlock(h StmtHandle, level int) {
	block, ok := pr.p.Stmt(h).(*BlockStmt)
	if !ok {
		pr.writeStmt(h, level)
		return
	}
	pr.write("{\n")
	for _, s := range block.Stmts {
		pr.indent(level + 1)
		pr.writeStmt(s, level+1)
		pr.write("\n")
	}
	pr.indent(level)
	pr.write("}")
}

func (pr *printer) writeStmt(h StmtHandle, level int) {
	switch s := pr.p.Stmt(h).(type) {
	case *BlockStmt:
		pr.writeBlock(h, level)
	case *DeclStmt:
		pr.writeSimpleStmt(h)
		pr.write(";")
	case *ReturnStmt:
		pr.write("return")
		if s.Value != NoExpr {
			pr.write(" ")
			pr.writeExpr(s.Value)
		}
		pr.write(";")
	case *IfStmt:
		pr.write("if ")
		pr.writeExpr(s.Cond)
		pr.write(" ")
		pr.writeBlock(s.Body, level)
		if s.Else != NoStmt {
			pr.write(" else ")
			if _, isIf := pr.p.Stmt(s.Else).(*IfStmt); isIf {
				pr.writeStmt(s.Else, level)
			} else {
				pr.writeBlock(s.Else, level)
			}
		}
	case *ForStmt:
		pr.write("for (")
		if s.Init != NoStmt {
			pr.writeSimpleStmt(s.Init)
		}
		pr.write("; ")
		if s.Cond != NoExpr {
			pr.writeExpr(s.Cond)
		}
		pr.write("; ")
		if s.Update != NoStmt {
			pr.writeSimpleStmt(s.Update)
		}
		pr.write(") ")
		pr.writeBlock(s.Body, level)
	case *WhileStmt:
		pr.write("while ")
		pr.writeExpr(s.Cond)
		pr.write(" ")
		pr.writeBlock(s.Body, level)
	case *LoopStmt:
		pr.write("loop {\n")
		if body, ok := pr.p.Stmt(s.Body).(*BlockStmt); ok {
			for _, st := range body.Stmts {
				pr.indent(level + 1)
				pr.writeStmt(st, level+1)
				pr.write("\n")
			}
		}
		if s.Continuing != NoStmt || s.BreakIf != NoExpr {
			pr.indent(level + 1)
			pr.write("continuing {\n")
			if s.Continuing != NoStmt {
				if cont, ok := pr.p.Stmt(s.Continuing).(*BlockStmt); ok {
					for _, st := range cont.Stmts {
						pr.indent(level + 2)
						pr.writeStmt(st, level+2)
						pr.write("\n")
					}
				}
			}
			if s.BreakIf != NoExpr {
				pr.indent(level + 2)
				pr.write("break if ")
				pr.writeExpr(s.BreakIf)
				pr.write(";\n")
			}
			pr.indent(level + 1)
			pr.write("}\n")
		}
		pr.indent(level)
		pr.write("}")
	case *BreakStmt:
		pr.write("break;")
	case *ContinueStmt:
		pr.write("continue;")
	case *DiscardStmt:
		pr.write("discard;")
	case *AssignStmt:
		pr.writeSimpleStmt(h)
		pr.write(";")
	case *IncDecStmt:
		pr.writeSimpleStmt(h)
		pr.write(";")
	case *CallStmt:
		pr.writeExpr(s.Call)
		pr.write(";")
	case *ConstAssertStmt:
		pr.write("const_assert ")
		pr.writeExpr(s.Expr)
		pr.write(";")
	case *SwitchStmt:
		pr.write("switch ")
		pr.writeExpr(s.Selector)
		pr.write(" {\n")
		for _, c := range s.Cases {
			pr.indent(level + 1)
			if c.IsDefault && len(c.Selectors) == 0 {
				pr.write("default: ")
			} else {
				pr.write("case ")
				for i, sel := range c.Selectors {
					if i > 0 {
						pr.write(", ")
					}
					pr.writeExpr(sel)
				}
				if c.IsDefault {
					pr.write(", default")
				}
				pr.write(": ")
			}
			pr.writeBlock(c.Body, level+1)
			pr.write("\n")
		}
		pr.indent(level)
		pr.write("}")
	}
}

// writeSimpleStmt renders declaration, assignment, and inc/dec statements
// without a trailing semicolon, for use inside for headers.
func (pr *printer) writeSimpleStmt(h StmtHandle) {
	switch s := pr.p.Stmt(h).(type) {
	case *DeclStmt:
		pr.write(s.Kind.String())
		pr.writef(" %s", s.Name)
		if s.Type != NoType {
			pr.write(": ")
			pr.writeType(s.Type)
		}
		if s.Init != NoExpr {
			pr.write(" = ")
			pr.writeExpr(s.Init)
		}
	case *AssignStmt:
		if s.Phony {
			pr.write("_")
		} else {
			pr.writeExpr(s.LHS)
		}
		pr.writef(" %s ", s.Op)
		pr.writeExpr(s.RHS)
	case *IncDecStmt:
		pr.writeExpr(s.Target)
		if s.Increment {
			pr.write("++")
		} else {
			pr.write("--")
		}
	case *CallStmt:
		pr.writeExpr(s.Call)
	}
}
