package ir

import "testing"

func exprHandlePtr(h ExpressionHandle) *ExpressionHandle { return &h }

func TestBuildUses(t *testing.T) {
	fn := &Function{
		Expressions: []Expression{
			{Kind: Literal{Value: LiteralI32(1)}},
			{Kind: Literal{Value: LiteralI32(2)}},
			{Kind: ExprBinary{Op: BinaryAdd, Left: 0, Right: 1}},
		},
		Body: Block{
			{ID: 0, Kind: StmtEmit{Range: Range{Start: 0, End: 3}}},
			{ID: 1, Kind: StmtReturn{Value: exprHandlePtr(2)}},
		},
	}

	BuildUses(fn)

	if len(fn.Uses) != 3 {
		t.Fatalf("expected 3 use-lists, got %d", len(fn.Uses))
	}
	for _, operand := range []ExpressionHandle{0, 1} {
		uses := fn.Uses[operand]
		if len(uses) != 1 || uses[0].IsStmt || uses[0].Consumer != 2 {
			t.Errorf("expression [%d]: expected single use by expression [2], got %+v", operand, uses)
		}
	}
	uses := fn.Uses[2]
	if len(uses) != 1 || !uses[0].IsStmt || uses[0].Consumer != 1 {
		t.Errorf("expression [2]: expected single use by return statement, got %+v", uses)
	}
	if got := fn.UseCount(2); got != 1 {
		t.Errorf("UseCount(2) = %d, want 1", got)
	}
}

func TestWalkStatementsNested(t *testing.T) {
	body := Block{
		{ID: 0, Kind: StmtIf{
			Condition: 0,
			Accept: Block{
				{ID: 1, Kind: StmtLoop{
					Body:       Block{{ID: 2, Kind: StmtBreak{}}},
					Continuing: Block{{ID: 3, Kind: StmtContinue{}}},
				}},
			},
			Reject: Block{{ID: 4, Kind: StmtKill{}}},
		}},
		{ID: 5, Kind: StmtReturn{}},
	}

	var seen []uint32
	WalkStatements(body, func(s *Statement) {
		seen = append(seen, s.ID)
	})

	want := []uint32{0, 1, 2, 3, 4, 5}
	if len(seen) != len(want) {
		t.Fatalf("visited %d statements, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("visit order[%d] = %d, want %d", i, seen[i], want[i])
		}
	}
}

func TestStatementOperands(t *testing.T) {
	collect := func(kind StatementKind) []ExpressionHandle {
		var out []ExpressionHandle
		StatementOperands(kind, func(h ExpressionHandle) {
			out = append(out, h)
		})
		return out
	}

	tests := []struct {
		name string
		kind StatementKind
		want []ExpressionHandle
	}{
		{
			name: "store reads pointer and value",
			kind: StmtStore{Pointer: 3, Value: 7},
			want: []ExpressionHandle{3, 7},
		},
		{
			name: "call reads arguments but not result",
			kind: StmtCall{Function: 0, Arguments: []ExpressionHandle{1, 2}, Result: exprHandlePtr(9)},
			want: []ExpressionHandle{1, 2},
		},
		{
			name: "atomic add reads pointer and value",
			kind: StmtAtomic{Pointer: 4, Fun: AtomicAdd{}, Value: 5, Result: exprHandlePtr(6)},
			want: []ExpressionHandle{4, 5},
		},
		{
			name: "atomic load ignores value",
			kind: StmtAtomic{Pointer: 4, Fun: AtomicLoad{}, Value: 0, Result: exprHandlePtr(6)},
			want: []ExpressionHandle{4},
		},
		{
			name: "compare exchange reads compare operand",
			kind: StmtAtomic{Pointer: 1, Fun: AtomicExchange{Compare: exprHandlePtr(8)}, Value: 2},
			want: []ExpressionHandle{1, 2, 8},
		},
		{
			name: "break reads nothing",
			kind: StmtBreak{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(tt.kind)
			if len(got) != len(tt.want) {
				t.Fatalf("got operands %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("operand[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestVerifyUses(t *testing.T) {
	fn := &Function{
		Expressions: []Expression{
			{Kind: Literal{Value: LiteralF32(1)}},
			{Kind: ExprUnary{Op: UnaryNegate, Expr: 0}},
		},
		Body: Block{
			{ID: 0, Kind: StmtReturn{Value: exprHandlePtr(1)}},
		},
	}
	BuildUses(fn)

	if err := VerifyUses(fn); err != nil {
		t.Fatalf("fresh use-lists should verify: %v", err)
	}

	removeUse(fn, 0, Use{Consumer: 1})
	if err := VerifyUses(fn); err == nil {
		t.Error("expected verification failure after dropping a use")
	}

	addUse(fn, 0, Use{Consumer: 1})
	if err := VerifyUses(fn); err != nil {
		t.Errorf("restored use-lists should verify: %v", err)
	}

	// Removing a use that was never recorded leaves the lists untouched.
	removeUse(fn, 0, Use{Consumer: 99, IsStmt: true})
	if err := VerifyUses(fn); err != nil {
		t.Errorf("no-op removal should not break verification: %v", err)
	}
}

func TestExpressionOperandsImageSample(t *testing.T) {
	sample := ExprImageSample{
		Image:      0,
		Sampler:    1,
		Coordinate: 2,
		ArrayIndex: exprHandlePtr(3),
		Level:      SampleLevelGradient{X: 4, Y: 5},
		DepthRef:   exprHandlePtr(6),
	}
	var got []ExpressionHandle
	ExpressionOperands(sample, func(h ExpressionHandle) {
		got = append(got, h)
	})
	want := []ExpressionHandle{0, 1, 2, 3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("got operands %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("operand[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
