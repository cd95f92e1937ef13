package ir

import "testing"

func foldableFn(kinds ...ExpressionKind) *Function {
	fn := &Function{}
	for _, k := range kinds {
		fn.Expressions = append(fn.Expressions, Expression{Kind: k})
	}
	last := ExpressionHandle(len(kinds) - 1)
	fn.Body = Block{
		{ID: 0, Kind: StmtEmit{Range: Range{Start: 0, End: ExpressionHandle(len(kinds))}}},
		{ID: 1, Kind: StmtReturn{Value: &last}},
	}
	return fn
}

func TestFoldConstantsBinary(t *testing.T) {
	tests := []struct {
		name string
		op   BinaryOperator
		lhs  LiteralValue
		rhs  LiteralValue
		want LiteralValue // nil means the expression must not fold
	}{
		{"i32 add", BinaryAdd, LiteralI32(2), LiteralI32(3), LiteralI32(5)},
		{"i32 subtract", BinarySubtract, LiteralI32(2), LiteralI32(5), LiteralI32(-3)},
		{"u32 multiply", BinaryMultiply, LiteralU32(6), LiteralU32(7), LiteralU32(42)},
		{"f32 divide", BinaryDivide, LiteralF32(1), LiteralF32(2), LiteralF32(0.5)},
		{"i32 divide by zero", BinaryDivide, LiteralI32(1), LiteralI32(0), nil},
		{"u32 modulo by zero", BinaryModulo, LiteralU32(1), LiteralU32(0), nil},
		{"i32 comparison", BinaryLess, LiteralI32(1), LiteralI32(2), LiteralBool(true)},
		{"f32 equality", BinaryEqual, LiteralF32(1), LiteralF32(1), LiteralBool(true)},
		{"bool and", BinaryLogicalAnd, LiteralBool(true), LiteralBool(false), LiteralBool(false)},
		{"bool or", BinaryLogicalOr, LiteralBool(true), LiteralBool(false), LiteralBool(true)},
		{"abstract int add", BinaryAdd, LiteralAbstractInt(40), LiteralAbstractInt(2), LiteralAbstractInt(42)},
		{"abstract float multiply", BinaryMultiply, LiteralAbstractFloat(1.5), LiteralAbstractFloat(2), LiteralAbstractFloat(3)},
		{"i32 shift by u32", BinaryShiftLeft, LiteralI32(1), LiteralU32(4), LiteralI32(16)},
		{"u32 shift right", BinaryShiftRight, LiteralU32(16), LiteralU32(2), LiteralU32(4)},
		{"shift amount too large", BinaryShiftLeft, LiteralU32(1), LiteralU32(32), nil},
		{"i32 overflow", BinaryMultiply, LiteralI32(1 << 30), LiteralI32(4), nil},
		{"mixed types", BinaryAdd, LiteralI32(1), LiteralF32(1), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := foldableFn(
				Literal{Value: tt.lhs},
				Literal{Value: tt.rhs},
				ExprBinary{Op: tt.op, Left: 0, Right: 1},
			)
			folded := FoldConstants(fn)

			if tt.want == nil {
				if folded != 0 {
					t.Fatalf("expected no folding, folded %d", folded)
				}
				if _, ok := fn.Expressions[2].Kind.(ExprBinary); !ok {
					t.Error("unfoldable expression was rewritten")
				}
				return
			}
			if folded != 1 {
				t.Fatalf("folded %d expressions, want 1", folded)
			}
			lit, ok := fn.Expressions[2].Kind.(Literal)
			if !ok {
				t.Fatalf("expected literal result, got %T", fn.Expressions[2].Kind)
			}
			if lit.Value != tt.want {
				t.Errorf("folded to %v, want %v", lit.Value, tt.want)
			}
		})
	}
}

func TestFoldConstantsUnary(t *testing.T) {
	tests := []struct {
		name string
		op   UnaryOperator
		val  LiteralValue
		want LiteralValue
	}{
		{"negate i32", UnaryNegate, LiteralI32(5), LiteralI32(-5)},
		{"negate f32", UnaryNegate, LiteralF32(2.5), LiteralF32(-2.5)},
		{"logical not", UnaryLogicalNot, LiteralBool(false), LiteralBool(true)},
		{"bitwise not u32", UnaryBitwiseNot, LiteralU32(0), LiteralU32(0xffffffff)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := foldableFn(
				Literal{Value: tt.val},
				ExprUnary{Op: tt.op, Expr: 0},
			)
			if folded := FoldConstants(fn); folded != 1 {
				t.Fatalf("folded %d expressions, want 1", folded)
			}
			lit, ok := fn.Expressions[1].Kind.(Literal)
			if !ok {
				t.Fatalf("expected literal result, got %T", fn.Expressions[1].Kind)
			}
			if lit.Value != tt.want {
				t.Errorf("folded to %v, want %v", lit.Value, tt.want)
			}
		})
	}
}

func TestFoldConstantsChain(t *testing.T) {
	// (1 + 2) * 3: the multiply only becomes foldable once the add folds.
	fn := foldableFn(
		Literal{Value: LiteralI32(1)},
		Literal{Value: LiteralI32(2)},
		ExprBinary{Op: BinaryAdd, Left: 0, Right: 1},
		Literal{Value: LiteralI32(3)},
		ExprBinary{Op: BinaryMultiply, Left: 2, Right: 3},
	)
	if folded := FoldConstants(fn); folded != 2 {
		t.Fatalf("folded %d expressions, want 2", folded)
	}
	lit, ok := fn.Expressions[4].Kind.(Literal)
	if !ok {
		t.Fatalf("expected literal result, got %T", fn.Expressions[4].Kind)
	}
	if lit.Value != LiteralI32(9) {
		t.Errorf("folded to %v, want 9", lit.Value)
	}
}

func TestFoldConstantsMaintainsUses(t *testing.T) {
	fn := foldableFn(
		Literal{Value: LiteralI32(10)},
		Literal{Value: LiteralI32(20)},
		ExprBinary{Op: BinaryAdd, Left: 0, Right: 1},
		ExprUnary{Op: UnaryNegate, Expr: 2},
	)
	BuildUses(fn)

	if folded := FoldConstants(fn); folded != 2 {
		t.Fatalf("folded %d expressions, want 2", folded)
	}
	if err := VerifyUses(fn); err != nil {
		t.Errorf("use-lists inconsistent after folding: %v", err)
	}
	if got := fn.UseCount(0); got != 0 {
		t.Errorf("operand [0] still has %d uses after its consumer folded", got)
	}
}
