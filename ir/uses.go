package ir

import (
	"fmt"
	"sort"
)

// Use records a single consumer of an expression. A consumer is either
// another expression in the same function (Consumer is its ExpressionHandle)
// or a statement (Consumer is the Statement.ID assigned by the builder).
type Use struct {
	Consumer uint32
	IsStmt   bool
}

// ExpressionOperands calls visit for each expression handle the given
// expression kind reads. Results of statements (CallResult, AtomicResult)
// have no operands of their own.
func ExpressionOperands(kind ExpressionKind, visit func(ExpressionHandle)) {
	switch e := kind.(type) {
	case ExprCompose:
		for _, c := range e.Components {
			visit(c)
		}
	case ExprAccess:
		visit(e.Base)
		visit(e.Index)
	case ExprAccessIndex:
		visit(e.Base)
	case ExprSplat:
		visit(e.Value)
	case ExprSwizzle:
		visit(e.Vector)
	case ExprLoad:
		visit(e.Pointer)
	case ExprImageSample:
		visit(e.Image)
		visit(e.Sampler)
		visit(e.Coordinate)
		if e.ArrayIndex != nil {
			visit(*e.ArrayIndex)
		}
		if e.Offset != nil {
			visit(*e.Offset)
		}
		switch lvl := e.Level.(type) {
		case SampleLevelExact:
			visit(lvl.Level)
		case SampleLevelBias:
			visit(lvl.Bias)
		case SampleLevelGradient:
			visit(lvl.X)
			visit(lvl.Y)
		}
		if e.DepthRef != nil {
			visit(*e.DepthRef)
		}
	case ExprImageLoad:
		visit(e.Image)
		visit(e.Coordinate)
		if e.ArrayIndex != nil {
			visit(*e.ArrayIndex)
		}
		if e.Sample != nil {
			visit(*e.Sample)
		}
		if e.Level != nil {
			visit(*e.Level)
		}
	case ExprImageQuery:
		visit(e.Image)
		if q, ok := e.Query.(ImageQuerySize); ok && q.Level != nil {
			visit(*q.Level)
		}
	case ExprUnary:
		visit(e.Expr)
	case ExprBinary:
		visit(e.Left)
		visit(e.Right)
	case ExprSelect:
		visit(e.Condition)
		visit(e.Accept)
		visit(e.Reject)
	case ExprDerivative:
		visit(e.Expr)
	case ExprRelational:
		visit(e.Argument)
	case ExprMath:
		visit(e.Arg)
		if e.Arg1 != nil {
			visit(*e.Arg1)
		}
		if e.Arg2 != nil {
			visit(*e.Arg2)
		}
		if e.Arg3 != nil {
			visit(*e.Arg3)
		}
	case ExprAs:
		visit(e.Expr)
	case ExprArrayLength:
		visit(e.Array)
	}
}

// StatementOperands calls visit for each expression handle the given
// statement kind reads. Result handles are definitions, not reads, and are
// not visited. Nested blocks are not walked; use WalkStatements for that.
func StatementOperands(kind StatementKind, visit func(ExpressionHandle)) {
	switch s := kind.(type) {
	case StmtIf:
		visit(s.Condition)
	case StmtSwitch:
		visit(s.Selector)
	case StmtLoop:
		if s.BreakIf != nil {
			visit(*s.BreakIf)
		}
	case StmtReturn:
		if s.Value != nil {
			visit(*s.Value)
		}
	case StmtStore:
		visit(s.Pointer)
		visit(s.Value)
	case StmtImageStore:
		visit(s.Image)
		visit(s.Coordinate)
		if s.ArrayIndex != nil {
			visit(*s.ArrayIndex)
		}
		visit(s.Value)
	case StmtAtomic:
		visit(s.Pointer)
		if _, load := s.Fun.(AtomicLoad); !load {
			visit(s.Value)
		}
		if ex, ok := s.Fun.(AtomicExchange); ok && ex.Compare != nil {
			visit(*ex.Compare)
		}
	case StmtWorkGroupUniformLoad:
		visit(s.Pointer)
	case StmtCall:
		for _, arg := range s.Arguments {
			visit(arg)
		}
	case StmtRayQuery:
		visit(s.Query)
		if init, ok := s.Fun.(RayQueryInitialize); ok {
			visit(init.AccelerationStructure)
			visit(init.Descriptor)
		}
	}
}

// WalkStatements visits every statement in the block and its nested blocks,
// in source order.
func WalkStatements(block Block, visit func(*Statement)) {
	for i := range block {
		stmt := &block[i]
		visit(stmt)
		switch s := stmt.Kind.(type) {
		case StmtBlock:
			WalkStatements(s.Block, visit)
		case StmtIf:
			WalkStatements(s.Accept, visit)
			WalkStatements(s.Reject, visit)
		case StmtSwitch:
			for _, c := range s.Cases {
				WalkStatements(c.Body, visit)
			}
		case StmtLoop:
			WalkStatements(s.Body, visit)
			WalkStatements(s.Continuing, visit)
		}
	}
}

// BuildUses computes the use-lists for a function from scratch, replacing
// whatever is currently in fn.Uses.
func BuildUses(fn *Function) {
	uses := make([][]Use, len(fn.Expressions))
	for i := range fn.Expressions {
		h := ExpressionHandle(i)
		ExpressionOperands(fn.Expressions[i].Kind, func(op ExpressionHandle) {
			uses[op] = append(uses[op], Use{Consumer: uint32(h)})
		})
	}
	WalkStatements(fn.Body, func(stmt *Statement) {
		StatementOperands(stmt.Kind, func(op ExpressionHandle) {
			uses[op] = append(uses[op], Use{Consumer: stmt.ID, IsStmt: true})
		})
	})
	fn.Uses = uses
}

// UseCount returns the number of recorded consumers of an expression.
func (f *Function) UseCount(h ExpressionHandle) int {
	if int(h) >= len(f.Uses) {
		return 0
	}
	return len(f.Uses[h])
}

// addUse appends a consumer to an expression's use-list.
func addUse(fn *Function, operand ExpressionHandle, use Use) {
	fn.Uses[operand] = append(fn.Uses[operand], use)
}

// removeUse deletes one matching consumer record from an expression's
// use-list. Removing a use that was never recorded is a no-op.
func removeUse(fn *Function, operand ExpressionHandle, use Use) {
	list := fn.Uses[operand]
	for i, u := range list {
		if u == use {
			fn.Uses[operand] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// VerifyUses checks that fn.Uses matches what a fresh recomputation over the
// expression arena and statement tree would produce. It returns the first
// discrepancy found, or nil when the lists are consistent.
func VerifyUses(fn *Function) error {
	if len(fn.Uses) != len(fn.Expressions) {
		return fmt.Errorf("use-lists cover %d expressions, function has %d", len(fn.Uses), len(fn.Expressions))
	}
	fresh := Function{Expressions: fn.Expressions, Body: fn.Body}
	BuildUses(&fresh)
	for i := range fn.Expressions {
		got := append([]Use(nil), fn.Uses[i]...)
		want := append([]Use(nil), fresh.Uses[i]...)
		sortUses(got)
		sortUses(want)
		if len(got) != len(want) {
			return fmt.Errorf("expression [%d]: recorded %d uses, found %d", i, len(got), len(want))
		}
		for j := range got {
			if got[j] != want[j] {
				return fmt.Errorf("expression [%d]: recorded use %+v, found %+v", i, got[j], want[j])
			}
		}
	}
	return nil
}

func sortUses(uses []Use) {
	sort.Slice(uses, func(i, j int) bool {
		if uses[i].Consumer != uses[j].Consumer {
			return uses[i].Consumer < uses[j].Consumer
		}
		return !uses[i].IsStmt && uses[j].IsStmt
	})
}
