package ir

import "math"

// FoldConstants rewrites unary and binary expressions whose operands are all
// literals into literal expressions, in place. Use-lists are kept consistent:
// each folded expression drops its uses of the old operands. Returns the
// number of expressions folded.
//
// Folding is skipped when it would trap or change semantics, such as division
// by zero or integer overflow on concrete types.
func FoldConstants(fn *Function) int {
	if fn.Uses == nil {
		BuildUses(fn)
	}
	folded := 0
	for changed := true; changed; {
		changed = false
		for i := range fn.Expressions {
			h := ExpressionHandle(i)
			switch e := fn.Expressions[i].Kind.(type) {
			case ExprUnary:
				val, ok := literalOf(fn, e.Expr)
				if !ok {
					continue
				}
				result, ok := foldUnary(e.Op, val)
				if !ok {
					continue
				}
				removeUse(fn, e.Expr, Use{Consumer: uint32(h)})
				fn.Expressions[i].Kind = Literal{Value: result}
				folded++
				changed = true
			case ExprBinary:
				left, okL := literalOf(fn, e.Left)
				right, okR := literalOf(fn, e.Right)
				if !okL || !okR {
					continue
				}
				result, ok := foldBinary(e.Op, left, right)
				if !ok {
					continue
				}
				removeUse(fn, e.Left, Use{Consumer: uint32(h)})
				removeUse(fn, e.Right, Use{Consumer: uint32(h)})
				fn.Expressions[i].Kind = Literal{Value: result}
				folded++
				changed = true
			}
		}
	}
	return folded
}

func literalOf(fn *Function, h ExpressionHandle) (LiteralValue, bool) {
	if lit, ok := fn.Expressions[h].Kind.(Literal); ok {
		return lit.Value, true
	}
	return nil, false
}

func foldUnary(op UnaryOperator, val LiteralValue) (LiteralValue, bool) {
	switch op {
	case UnaryNegate:
		switch v := val.(type) {
		case LiteralI32:
			if v == math.MinInt32 {
				return nil, false
			}
			return -v, true
		case LiteralF32:
			return -v, true
		case LiteralF64:
			return -v, true
		case LiteralAbstractInt:
			return -v, true
		case LiteralAbstractFloat:
			return -v, true
		}
	case UnaryLogicalNot:
		if v, ok := val.(LiteralBool); ok {
			return !v, true
		}
	case UnaryBitwiseNot:
		switch v := val.(type) {
		case LiteralI32:
			return ^v, true
		case LiteralU32:
			return ^v, true
		case LiteralAbstractInt:
			return ^v, true
		}
	}
	return nil, false
}

func foldBinary(op BinaryOperator, left, right LiteralValue) (LiteralValue, bool) {
	switch l := left.(type) {
	case LiteralI32:
		r, ok := right.(LiteralI32)
		if !ok {
			return foldShift(op, left, right)
		}
		return foldI64Pair(op, int64(l), int64(r), func(v int64) (LiteralValue, bool) {
			if v < math.MinInt32 || v > math.MaxInt32 {
				return nil, false
			}
			return LiteralI32(v), true
		})
	case LiteralU32:
		r, ok := right.(LiteralU32)
		if !ok {
			return foldShift(op, left, right)
		}
		return foldU32Pair(op, l, r)
	case LiteralAbstractInt:
		r, ok := right.(LiteralAbstractInt)
		if !ok {
			return foldShift(op, left, right)
		}
		return foldI64Pair(op, int64(l), int64(r), func(v int64) (LiteralValue, bool) {
			return LiteralAbstractInt(v), true
		})
	case LiteralF32:
		if r, ok := right.(LiteralF32); ok {
			return foldF64Pair(op, float64(l), float64(r), func(v float64) (LiteralValue, bool) {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, false
				}
				return LiteralF32(v), true
			})
		}
	case LiteralAbstractFloat:
		if r, ok := right.(LiteralAbstractFloat); ok {
			return foldF64Pair(op, float64(l), float64(r), func(v float64) (LiteralValue, bool) {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, false
				}
				return LiteralAbstractFloat(v), true
			})
		}
	case LiteralBool:
		if r, ok := right.(LiteralBool); ok {
			switch op {
			case BinaryLogicalAnd:
				return l && r, true
			case BinaryLogicalOr:
				return l || r, true
			case BinaryEqual:
				return LiteralBool(l == r), true
			case BinaryNotEqual:
				return LiteralBool(l != r), true
			}
		}
	}
	return nil, false
}

// foldShift handles shifts where the right operand is u32 and the left is a
// different integer type, the one mixed-type pairing the language allows.
func foldShift(op BinaryOperator, left, right LiteralValue) (LiteralValue, bool) {
	amount, ok := right.(LiteralU32)
	if !ok || amount >= 32 {
		return nil, false
	}
	switch l := left.(type) {
	case LiteralI32:
		switch op {
		case BinaryShiftLeft:
			return LiteralI32(int32(l) << amount), true
		case BinaryShiftRight:
			return LiteralI32(int32(l) >> amount), true
		}
	case LiteralU32:
		switch op {
		case BinaryShiftLeft:
			return LiteralU32(uint32(l) << amount), true
		case BinaryShiftRight:
			return LiteralU32(uint32(l) >> amount), true
		}
	case LiteralAbstractInt:
		switch op {
		case BinaryShiftLeft:
			return LiteralAbstractInt(int64(l) << amount), true
		case BinaryShiftRight:
			return LiteralAbstractInt(int64(l) >> amount), true
		}
	}
	return nil, false
}

func foldI64Pair(op BinaryOperator, l, r int64, wrap func(int64) (LiteralValue, bool)) (LiteralValue, bool) {
	switch op {
	case BinaryAdd:
		return wrap(l + r)
	case BinarySubtract:
		return wrap(l - r)
	case BinaryMultiply:
		return wrap(l * r)
	case BinaryDivide:
		if r == 0 || (l == math.MinInt64 && r == -1) {
			return nil, false
		}
		return wrap(l / r)
	case BinaryModulo:
		if r == 0 || (l == math.MinInt64 && r == -1) {
			return nil, false
		}
		return wrap(l % r)
	case BinaryAnd:
		return wrap(l & r)
	case BinaryExclusiveOr:
		return wrap(l ^ r)
	case BinaryInclusiveOr:
		return wrap(l | r)
	case BinaryEqual:
		return LiteralBool(l == r), true
	case BinaryNotEqual:
		return LiteralBool(l != r), true
	case BinaryLess:
		return LiteralBool(l < r), true
	case BinaryLessEqual:
		return LiteralBool(l <= r), true
	case BinaryGreater:
		return LiteralBool(l > r), true
	case BinaryGreaterEqual:
		return LiteralBool(l >= r), true
	}
	return nil, false
}

func foldU32Pair(op BinaryOperator, l, r LiteralU32) (LiteralValue, bool) {
	switch op {
	case BinaryAdd:
		return l + r, true
	case BinarySubtract:
		return l - r, true
	case BinaryMultiply:
		return l * r, true
	case BinaryDivide:
		if r == 0 {
			return nil, false
		}
		return l / r, true
	case BinaryModulo:
		if r == 0 {
			return nil, false
		}
		return l % r, true
	case BinaryAnd:
		return l & r, true
	case BinaryExclusiveOr:
		return l ^ r, true
	case BinaryInclusiveOr:
		return l | r, true
	case BinaryShiftLeft:
		if r >= 32 {
			return nil, false
		}
		return l << r, true
	case BinaryShiftRight:
		if r >= 32 {
			return nil, false
		}
		return l >> r, true
	case BinaryEqual:
		return LiteralBool(l == r), true
	case BinaryNotEqual:
		return LiteralBool(l != r), true
	case BinaryLess:
		return LiteralBool(l < r), true
	case BinaryLessEqual:
		return LiteralBool(l <= r), true
	case BinaryGreater:
		return LiteralBool(l > r), true
	case BinaryGreaterEqual:
		return LiteralBool(l >= r), true
	}
	return nil, false
}

func foldF64Pair(op BinaryOperator, l, r float64, wrap func(float64) (LiteralValue, bool)) (LiteralValue, bool) {
	switch op {
	case BinaryAdd:
		return wrap(l + r)
	case BinarySubtract:
		return wrap(l - r)
	case BinaryMultiply:
		return wrap(l * r)
	case BinaryDivide:
		if r == 0 {
			return nil, false
		}
		return wrap(l / r)
	case BinaryModulo:
		if r == 0 {
			return nil, false
		}
		return wrap(math.Mod(l, r))
	case BinaryEqual:
		return LiteralBool(l == r), true
	case BinaryNotEqual:
		return LiteralBool(l != r), true
	case BinaryLess:
		return LiteralBool(l < r), true
	case BinaryLessEqual:
		return LiteralBool(l <= r), true
	case BinaryGreater:
		return LiteralBool(l > r), true
	case BinaryGreaterEqual:
		return LiteralBool(l >= r), true
	}
	return nil, false
}
