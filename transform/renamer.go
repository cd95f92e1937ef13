package transform

import (
	"github.com/gogpu/wgslc/wgsl"
)

// RenameData maps compact names back to the original declaration names.
type RenameData map[string]string

// Renamer rewrites user declarations at module scope to compact generated
// names. Entry point names are kept, since callers look them up by name.
// The new-to-old mapping is published as RenameData.
type Renamer struct{}

func (Renamer) Apply(p *wgsl.Program, in DataMap, out *DataMap) (*wgsl.Program, error) {
	if p.Sem == nil {
		wgsl.Resolve(p)
	}

	used := collectNames(p)
	gen := nameGenerator{used: used}

	renames := make(map[string]string) // old -> new
	data := make(RenameData)
	rename := func(old string) string {
		if n, ok := renames[old]; ok {
			return n
		}
		n := gen.next()
		renames[old] = n
		data[n] = old
		return n
	}

	entryPoints := make(map[string]bool)
	if p.Sem != nil {
		for _, fi := range p.Sem.Functions {
			if fi.IsEntryPoint() {
				entryPoints[fi.Decl.Name] = true
			}
		}
	}

	for _, f := range p.Functions {
		if !entryPoints[f.Name] {
			f.Name = rename(f.Name)
		}
	}
	for _, v := range p.GlobalVars {
		v.Name = rename(v.Name)
	}
	for _, c := range p.Constants {
		c.Name = rename(c.Name)
	}
	for _, o := range p.Overrides {
		o.Name = rename(o.Name)
	}
	for _, s := range p.Structs {
		s.Name = rename(s.Name)
	}
	for _, a := range p.Aliases {
		a.Name = rename(a.Name)
	}

	if len(renames) == 0 {
		return nil, nil
	}

	w := &renameWalker{p: p, renames: renames}
	for _, s := range p.Structs {
		for _, m := range s.Members {
			w.typeExpr(m.Type)
		}
	}
	for _, v := range p.GlobalVars {
		w.typeExpr(v.Type)
		w.expr(v.Init)
	}
	for _, c := range p.Constants {
		w.typeExpr(c.Type)
		w.expr(c.Init)
	}
	for _, o := range p.Overrides {
		w.typeExpr(o.Type)
		w.expr(o.Init)
	}
	for _, a := range p.Aliases {
		w.typeExpr(a.Type)
	}
	for _, ca := range p.ConstAsserts {
		w.expr(ca.Expr)
	}
	for _, f := range p.Functions {
		w.function(f)
	}

	Put(out, data)
	p.Sem = nil
	return p, nil
}

func collectNames(p *wgsl.Program) map[string]bool {
	used := make(map[string]bool)
	for _, f := range p.Functions {
		used[f.Name] = true
		for _, par := range f.Params {
			used[par.Name] = true
		}
	}
	for _, v := range p.GlobalVars {
		used[v.Name] = true
	}
	for _, c := range p.Constants {
		used[c.Name] = true
	}
	for _, o := range p.Overrides {
		used[o.Name] = true
	}
	for _, s := range p.Structs {
		used[s.Name] = true
	}
	for _, a := range p.Aliases {
		used[a.Name] = true
	}
	// Local declarations and identifier references can collide too.
	for h := wgsl.StmtHandle(0); int(h) < p.StmtCount(); h++ {
		if d, ok := p.Stmt(h).(*wgsl.DeclStmt); ok {
			used[d.Name] = true
		}
	}
	for h := wgsl.ExprHandle(0); int(h) < p.ExprCount(); h++ {
		if id, ok := p.Expr(h).(*wgsl.IdentExpr); ok {
			used[id.Name] = true
		}
	}
	return used
}

// reservedNames are short WGSL keywords the generator must step over.
var reservedNames = map[string]bool{
	"fn": true, "if": true, "let": true, "var": true, "for": true,
	"do": true, "of": true, "ptr": true, "i32": true, "u32": true,
	"f32": true, "f16": true,
}

type nameGenerator struct {
	used map[string]bool
	n    int
}

// next produces the shortest unused base-26 name: a..z, aa, ab, ...
func (g *nameGenerator) next() string {
	for {
		name := compactName(g.n)
		g.n++
		if !g.used[name] && !reservedNames[name] {
			g.used[name] = true
			return name
		}
	}
}

func compactName(n int) string {
	var buf [8]byte
	i := len(buf)
	for {
		i--
		buf[i] = byte('a' + n%26)
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return string(buf[i:])
}

// renameWalker rewrites identifier and type references, tracking local
// scopes so shadowed names are left alone.
type renameWalker struct {
	p       *wgsl.Program
	renames map[string]string
	scopes  []map[string]bool
}

func (w *renameWalker) function(f *wgsl.FunctionDecl) {
	w.push()
	for _, par := range f.Params {
		w.typeExpr(par.Type)
		w.bind(par.Name)
	}
	w.typeExpr(f.ReturnType)
	w.stmt(f.Body)
	w.pop()
}

func (w *renameWalker) push() { w.scopes = append(w.scopes, make(map[string]bool)) }
func (w *renameWalker) pop()  { w.scopes = w.scopes[:len(w.scopes)-1] }

func (w *renameWalker) bind(name string) {
	w.scopes[len(w.scopes)-1][name] = true
}

func (w *renameWalker) shadowed(name string) bool {
	for i := len(w.scopes) - 1; i >= 0; i-- {
		if w.scopes[i][name] {
			return true
		}
	}
	return false
}

func (w *renameWalker) stmt(h wgsl.StmtHandle) {
	if h == wgsl.NoStmt {
		return
	}
	switch s := w.p.Stmt(h).(type) {
	case *wgsl.BlockStmt:
		w.push()
		for _, c := range s.Stmts {
			w.stmt(c)
		}
		w.pop()
	case *wgsl.DeclStmt:
		w.typeExpr(s.Type)
		w.expr(s.Init)
		w.bind(s.Name)
	case *wgsl.ReturnStmt:
		w.expr(s.Value)
	case *wgsl.IfStmt:
		w.expr(s.Cond)
		w.stmt(s.Body)
		w.stmt(s.Else)
	case *wgsl.ForStmt:
		w.push()
		w.stmt(s.Init)
		w.expr(s.Cond)
		w.stmt(s.Update)
		w.stmt(s.Body)
		w.pop()
	case *wgsl.WhileStmt:
		w.expr(s.Cond)
		w.stmt(s.Body)
	case *wgsl.LoopStmt:
		w.stmt(s.Body)
		w.stmt(s.Continuing)
		w.expr(s.BreakIf)
	case *wgsl.SwitchStmt:
		w.expr(s.Selector)
		for _, c := range s.Cases {
			for _, sel := range c.Selectors {
				w.expr(sel)
			}
			w.stmt(c.Body)
		}
	case *wgsl.AssignStmt:
		w.expr(s.LHS)
		w.expr(s.RHS)
	case *wgsl.IncDecStmt:
		w.expr(s.Target)
	case *wgsl.CallStmt:
		w.expr(s.Call)
	case *wgsl.ConstAssertStmt:
		w.expr(s.Expr)
	}
}

func (w *renameWalker) expr(h wgsl.ExprHandle) {
	if h == wgsl.NoExpr {
		return
	}
	switch e := w.p.Expr(h).(type) {
	case *wgsl.IdentExpr:
		if n, ok := w.renames[e.Name]; ok && !w.shadowed(e.Name) {
			e.Name = n
		}
	case *wgsl.BinaryExpr:
		w.expr(e.LHS)
		w.expr(e.RHS)
	case *wgsl.UnaryExpr:
		w.expr(e.Operand)
	case *wgsl.CallExpr:
		if n, ok := w.renames[e.Name]; ok && !w.shadowed(e.Name) {
			e.Name = n
		}
		for _, a := range e.Args {
			w.expr(a)
		}
	case *wgsl.ConstructExpr:
		w.typeExpr(e.Type)
		for _, a := range e.Args {
			w.expr(a)
		}
	case *wgsl.BitcastExpr:
		w.typeExpr(e.Type)
		w.expr(e.Expr)
	case *wgsl.MemberExpr:
		w.expr(e.Base)
	case *wgsl.IndexExpr:
		w.expr(e.Base)
		w.expr(e.Index)
	}
}

func (w *renameWalker) typeExpr(h wgsl.TypeHandle) {
	if h == wgsl.NoType {
		return
	}
	switch t := w.p.TypeExpr(h).(type) {
	case *wgsl.NamedType:
		if n, ok := w.renames[t.Name]; ok {
			t.Name = n
		}
		for _, arg := range t.TypeArgs {
			w.typeExpr(arg)
		}
	case *wgsl.ArrayType:
		w.typeExpr(t.Element)
		w.expr(t.Count)
	case *wgsl.PtrType:
		w.typeExpr(t.Element)
	}
}
