package ir

import "fmt"

// ResolveExpressionType computes the type of one expression in fn. The
// result either references a registered module type through its handle or
// carries an inline TypeInner for types that lowering never registers,
// such as comparison results.
//
//nolint:gocyclo,cyclop,funlen // one case per expression variant
func ResolveExpressionType(module *Module, fn *Function, handle ExpressionHandle) (TypeResolution, error) {
	if int(handle) >= len(fn.Expressions) {
		return TypeResolution{}, fmt.Errorf("expression handle %d out of range (max %d)", handle, len(fn.Expressions))
	}

	switch kind := fn.Expressions[handle].Kind.(type) {
	case Literal:
		return resolveLiteralType(kind)
	case ExprConstant:
		if int(kind.Constant) >= len(module.Constants) {
			return TypeResolution{}, fmt.Errorf("constant %d out of range", kind.Constant)
		}
		return handleResolution(module.Constants[kind.Constant].Type), nil
	case ExprZeroValue:
		return handleResolution(kind.Type), nil
	case ExprCompose:
		return handleResolution(kind.Type), nil
	case ExprAccess:
		return resolveAccessType(module, fn, kind)
	case ExprAccessIndex:
		return resolveAccessIndexType(module, fn, kind)
	case ExprSplat:
		return resolveSplatType(module, fn, kind)
	case ExprSwizzle:
		return resolveSwizzleType(module, fn, kind)
	case ExprFunctionArgument:
		if int(kind.Index) >= len(fn.Arguments) {
			return TypeResolution{}, fmt.Errorf("function argument index %d out of range", kind.Index)
		}
		return handleResolution(fn.Arguments[kind.Index].Type), nil
	case ExprGlobalVariable:
		if int(kind.Variable) >= len(module.GlobalVariables) {
			return TypeResolution{}, fmt.Errorf("global variable %d out of range", kind.Variable)
		}
		return handleResolution(module.GlobalVariables[kind.Variable].Type), nil
	case ExprLocalVariable:
		if int(kind.Variable) >= len(fn.LocalVars) {
			return TypeResolution{}, fmt.Errorf("local variable %d out of range", kind.Variable)
		}
		return handleResolution(fn.LocalVars[kind.Variable].Type), nil
	case ExprLoad:
		return resolveLoadType(module, fn, kind)
	case ExprImageSample:
		return resolveImageSampleType(module, fn, kind)
	case ExprImageLoad:
		return resolveImageLoadType(module, fn, kind)
	case ExprImageQuery:
		return resolveImageQueryType(module, fn, kind)
	case ExprUnary:
		// Unary operators keep the operand type.
		return resolveOperand(module, fn, kind.Expr, "unary operand")
	case ExprBinary:
		return resolveBinaryType(module, fn, kind)
	case ExprSelect:
		// Accept and reject agree, either one gives the result type.
		return resolveOperand(module, fn, kind.Accept, "select accept")
	case ExprDerivative:
		// Derivatives keep the operand type.
		return resolveOperand(module, fn, kind.Expr, "derivative expr")
	case ExprRelational:
		return resolveRelationalType(module, fn, kind)
	case ExprMath:
		return resolveMathType(module, fn, kind)
	case ExprAs:
		return resolveAsType(module, fn, kind)
	case ExprCallResult:
		if int(kind.Function) >= len(module.Functions) {
			return TypeResolution{}, fmt.Errorf("function %d out of range", kind.Function)
		}
		result := module.Functions[kind.Function].Result
		if result == nil {
			return TypeResolution{}, fmt.Errorf("function has no return type")
		}
		return handleResolution(result.Type), nil
	case ExprAtomicResult:
		return TypeResolution{Value: kind.Scalar}, nil
	case ExprArrayLength:
		return TypeResolution{Value: scalarU32()}, nil
	default:
		return TypeResolution{}, fmt.Errorf("unsupported expression kind: %T", kind)
	}
}

// handleResolution wraps a module type handle as a TypeResolution.
func handleResolution(h TypeHandle) TypeResolution {
	return TypeResolution{Handle: &h}
}

func scalarU32() ScalarType {
	return ScalarType{Kind: ScalarUint, Width: 4}
}

func scalarF32() ScalarType {
	return ScalarType{Kind: ScalarFloat, Width: 4}
}

func scalarBool() ScalarType {
	return ScalarType{Kind: ScalarBool, Width: 1}
}

// resolveOperand resolves an operand's type, labelling errors with the
// operand's role.
func resolveOperand(module *Module, fn *Function, operand ExpressionHandle, role string) (TypeResolution, error) {
	res, err := ResolveExpressionType(module, fn, operand)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("%s: %w", role, err)
	}
	return res, nil
}

// resolveInner resolves an operand all the way to its TypeInner.
func resolveInner(module *Module, fn *Function, operand ExpressionHandle, role string) (TypeInner, error) {
	res, err := resolveOperand(module, fn, operand, role)
	if err != nil {
		return nil, err
	}
	return resolutionInner(module, res)
}

// resolutionInner unwraps a TypeResolution to the underlying TypeInner,
// checking the handle against the module's type arena.
func resolutionInner(module *Module, res TypeResolution) (TypeInner, error) {
	if res.Handle == nil {
		return res.Value, nil
	}
	if int(*res.Handle) >= len(module.Types) {
		return nil, fmt.Errorf("type handle %d out of range", *res.Handle)
	}
	return module.Types[*res.Handle].Inner, nil
}

func resolveLiteralType(lit Literal) (TypeResolution, error) {
	switch v := lit.Value.(type) {
	case LiteralF64:
		return TypeResolution{Value: ScalarType{Kind: ScalarFloat, Width: 8}}, nil
	case LiteralF32:
		return TypeResolution{Value: scalarF32()}, nil
	case LiteralU32:
		return TypeResolution{Value: scalarU32()}, nil
	case LiteralI32:
		return TypeResolution{Value: ScalarType{Kind: ScalarSint, Width: 4}}, nil
	case LiteralU64:
		return TypeResolution{Value: ScalarType{Kind: ScalarUint, Width: 8}}, nil
	case LiteralI64:
		return TypeResolution{Value: ScalarType{Kind: ScalarSint, Width: 8}}, nil
	case LiteralBool:
		return TypeResolution{Value: scalarBool()}, nil
	case LiteralAbstractInt:
		// Not concretized by context, so it takes the i32 default.
		return TypeResolution{Value: ScalarType{Kind: ScalarSint, Width: 4}}, nil
	case LiteralAbstractFloat:
		// Likewise, defaults to f32.
		return TypeResolution{Value: scalarF32()}, nil
	default:
		return TypeResolution{}, fmt.Errorf("unknown literal type: %T", v)
	}
}

// elementType is the shared indexing rule for ExprAccess and
// ExprAccessIndex: arrays yield their base, vectors their scalar, and
// matrices a column vector. Struct member selection is handled by the
// caller since only constant indexing supports it.
func elementType(inner TypeInner) (TypeResolution, bool) {
	switch t := inner.(type) {
	case ArrayType:
		return handleResolution(t.Base), true
	case VectorType:
		return TypeResolution{Value: t.Scalar}, true
	case MatrixType:
		return TypeResolution{Value: VectorType{Size: t.Rows, Scalar: t.Scalar}}, true
	default:
		return TypeResolution{}, false
	}
}

func resolveAccessType(module *Module, fn *Function, expr ExprAccess) (TypeResolution, error) {
	inner, err := resolveInner(module, fn, expr.Base, "access base")
	if err != nil {
		return TypeResolution{}, err
	}
	if ptr, ok := inner.(PointerType); ok {
		// Indexing through a pointer acts on the pointee.
		if int(ptr.Base) >= len(module.Types) {
			return TypeResolution{}, fmt.Errorf("pointer base type %d out of range", ptr.Base)
		}
		inner = module.Types[ptr.Base].Inner
	}
	if res, ok := elementType(inner); ok {
		return res, nil
	}
	return TypeResolution{}, fmt.Errorf("cannot index into type %T", inner)
}

func resolveAccessIndexType(module *Module, fn *Function, expr ExprAccessIndex) (TypeResolution, error) {
	inner, err := resolveInner(module, fn, expr.Base, "access index base")
	if err != nil {
		return TypeResolution{}, err
	}
	if ptr, ok := inner.(PointerType); ok {
		if int(ptr.Base) >= len(module.Types) {
			return TypeResolution{}, fmt.Errorf("pointer base type %d out of range", ptr.Base)
		}
		inner = module.Types[ptr.Base].Inner
	}
	if s, ok := inner.(StructType); ok {
		if int(expr.Index) >= len(s.Members) {
			return TypeResolution{}, fmt.Errorf("struct member index %d out of range", expr.Index)
		}
		return handleResolution(s.Members[expr.Index].Type), nil
	}
	if res, ok := elementType(inner); ok {
		return res, nil
	}
	return TypeResolution{}, fmt.Errorf("cannot index into type %T", inner)
}

func resolveSplatType(module *Module, fn *Function, expr ExprSplat) (TypeResolution, error) {
	inner, err := resolveInner(module, fn, expr.Value, "splat value")
	if err != nil {
		return TypeResolution{}, err
	}
	scalar, ok := inner.(ScalarType)
	if !ok {
		return TypeResolution{}, fmt.Errorf("splat value must be scalar, got %T", inner)
	}
	return TypeResolution{Value: VectorType{Size: expr.Size, Scalar: scalar}}, nil
}

func resolveSwizzleType(module *Module, fn *Function, expr ExprSwizzle) (TypeResolution, error) {
	inner, err := resolveInner(module, fn, expr.Vector, "swizzle vector")
	if err != nil {
		return TypeResolution{}, err
	}
	vec, ok := inner.(VectorType)
	if !ok {
		return TypeResolution{}, fmt.Errorf("swizzle base must be vector, got %T", inner)
	}
	// The lane count follows the pattern, the scalar follows the source.
	return TypeResolution{Value: VectorType{Size: expr.Size, Scalar: vec.Scalar}}, nil
}

func resolveLoadType(module *Module, fn *Function, expr ExprLoad) (TypeResolution, error) {
	inner, err := resolveInner(module, fn, expr.Pointer, "load pointer")
	if err != nil {
		return TypeResolution{}, err
	}
	ptr, ok := inner.(PointerType)
	if !ok {
		return TypeResolution{}, fmt.Errorf("load requires pointer type, got %T", inner)
	}
	return handleResolution(ptr.Base), nil
}

// imageOperand resolves an operand that must be a texture.
func imageOperand(module *Module, fn *Function, operand ExpressionHandle, role string) (ImageType, error) {
	inner, err := resolveInner(module, fn, operand, role)
	if err != nil {
		return ImageType{}, err
	}
	img, ok := inner.(ImageType)
	if !ok {
		return ImageType{}, fmt.Errorf("%s requires image type, got %T", role, inner)
	}
	return img, nil
}

func resolveImageSampleType(module *Module, fn *Function, expr ExprImageSample) (TypeResolution, error) {
	img, err := imageOperand(module, fn, expr.Image, "image sample")
	if err != nil {
		return TypeResolution{}, err
	}
	if img.Class == ImageClassDepth && expr.Gather == nil {
		// Sampling a depth texture yields the raw depth value.
		return TypeResolution{Value: scalarF32()}, nil
	}
	return TypeResolution{Value: VectorType{Size: Vec4, Scalar: scalarF32()}}, nil
}

func resolveImageLoadType(module *Module, fn *Function, expr ExprImageLoad) (TypeResolution, error) {
	img, err := imageOperand(module, fn, expr.Image, "image load")
	if err != nil {
		return TypeResolution{}, err
	}
	switch img.Class {
	case ImageClassDepth:
		return TypeResolution{Value: scalarF32()}, nil
	case ImageClassStorage:
		// The texel type follows the storage format's channel kind.
		scalar := ScalarType{Kind: img.StorageFormat.channelKind(), Width: 4}
		return TypeResolution{Value: VectorType{Size: Vec4, Scalar: scalar}}, nil
	default:
		return TypeResolution{Value: VectorType{Size: Vec4, Scalar: scalarF32()}}, nil
	}
}

// channelKind is the scalar kind a texel of this format loads as.
func (f StorageFormat) channelKind() ScalarKind {
	switch f {
	case StorageFormatR8Uint, StorageFormatR16Uint, StorageFormatRg8Uint,
		StorageFormatR32Uint, StorageFormatRg16Uint, StorageFormatRgba8Uint,
		StorageFormatRgb10a2Uint, StorageFormatRg32Uint, StorageFormatRgba16Uint,
		StorageFormatRgba32Uint:
		return ScalarUint
	case StorageFormatR8Sint, StorageFormatR16Sint, StorageFormatRg8Sint,
		StorageFormatR32Sint, StorageFormatRg16Sint, StorageFormatRgba8Sint,
		StorageFormatRg32Sint, StorageFormatRgba16Sint, StorageFormatRgba32Sint:
		return ScalarSint
	default:
		// All norm and float formats load as f32 channels.
		return ScalarFloat
	}
}

func resolveImageQueryType(module *Module, fn *Function, expr ExprImageQuery) (TypeResolution, error) {
	switch expr.Query.(type) {
	case ImageQuerySize:
		img, err := imageOperand(module, fn, expr.Image, "image query")
		if err != nil {
			return TypeResolution{}, err
		}
		switch img.Dim {
		case Dim1D:
			return TypeResolution{Value: scalarU32()}, nil
		case Dim2D, DimCube:
			return TypeResolution{Value: VectorType{Size: Vec2, Scalar: scalarU32()}}, nil
		default:
			return TypeResolution{Value: VectorType{Size: Vec3, Scalar: scalarU32()}}, nil
		}
	case ImageQueryNumLevels, ImageQueryNumLayers, ImageQueryNumSamples:
		return TypeResolution{Value: scalarU32()}, nil
	default:
		return TypeResolution{}, fmt.Errorf("unknown image query type: %T", expr.Query)
	}
}

func resolveBinaryType(module *Module, fn *Function, expr ExprBinary) (TypeResolution, error) {
	leftType, err := resolveOperand(module, fn, expr.Left, "binary left")
	if err != nil {
		return TypeResolution{}, err
	}

	switch {
	case expr.Op.IsComparison():
		// Comparisons produce one bool per lane of the operands.
		leftInner, innerErr := resolutionInner(module, leftType)
		if innerErr != nil {
			return TypeResolution{}, innerErr
		}
		if vec, ok := leftInner.(VectorType); ok {
			return TypeResolution{Value: VectorType{Size: vec.Size, Scalar: scalarBool()}}, nil
		}
		return TypeResolution{Value: scalarBool()}, nil

	case expr.Op.IsLogical():
		return TypeResolution{Value: scalarBool()}, nil

	case expr.Op == BinaryMultiply:
		// Multiplication mixes scalars, vectors, and matrices, so both
		// operand types are needed.
		rightType, rightErr := resolveOperand(module, fn, expr.Right, "binary right")
		if rightErr != nil {
			return TypeResolution{}, rightErr
		}
		return resolveMulResultType(module, leftType, rightType), nil

	default:
		// Remaining arithmetic and bitwise operators: a scalar left
		// operand broadcasts over a vector right operand, otherwise the
		// left type wins.
		rightType, rightErr := resolveOperand(module, fn, expr.Right, "binary right")
		if rightErr == nil {
			leftInner, _ := resolutionInner(module, leftType)
			rightInner, _ := resolutionInner(module, rightType)
			_, leftIsScalar := leftInner.(ScalarType)
			_, rightIsVec := rightInner.(VectorType)
			if leftIsScalar && rightIsVec {
				return rightType, nil
			}
		}
		return leftType, nil
	}
}

// resolveMulResultType implements the multiplication shape rules:
// scalars broadcast, mat*vec gives a row-sized vector, vec*mat gives a
// column-sized vector.
func resolveMulResultType(module *Module, left, right TypeResolution) TypeResolution {
	leftInner, _ := resolutionInner(module, left)
	rightInner, _ := resolutionInner(module, right)

	_, leftIsScalar := leftInner.(ScalarType)
	_, rightIsScalar := rightInner.(ScalarType)
	_, leftIsVec := leftInner.(VectorType)
	_, rightIsVec := rightInner.(VectorType)
	leftMat, leftIsMat := leftInner.(MatrixType)
	rightMat, rightIsMat := rightInner.(MatrixType)

	switch {
	case leftIsScalar && (rightIsVec || rightIsMat):
		return right
	case rightIsScalar && (leftIsVec || leftIsMat):
		return left
	case leftIsMat && rightIsVec:
		return TypeResolution{Value: VectorType{Size: leftMat.Rows, Scalar: leftMat.Scalar}}
	case leftIsVec && rightIsMat:
		return TypeResolution{Value: VectorType{Size: rightMat.Columns, Scalar: rightMat.Scalar}}
	default:
		return left
	}
}

func resolveRelationalType(module *Module, fn *Function, expr ExprRelational) (TypeResolution, error) {
	inner, err := resolveInner(module, fn, expr.Argument, "relational argument")
	if err != nil {
		return TypeResolution{}, err
	}
	if vec, ok := inner.(VectorType); ok {
		switch expr.Fun {
		case RelationalIsNan, RelationalIsInf:
			// Per-lane tests keep the lane count.
			return TypeResolution{Value: VectorType{Size: vec.Size, Scalar: scalarBool()}}, nil
		}
	}
	// all and any collapse to a single bool, as do scalar arguments.
	return TypeResolution{Value: scalarBool()}, nil
}

func resolveMathType(module *Module, fn *Function, expr ExprMath) (TypeResolution, error) {
	argType, err := resolveOperand(module, fn, expr.Arg, "math argument")
	if err != nil {
		return TypeResolution{}, err
	}

	switch expr.Fun {
	case MathDot, MathDot4I8Packed, MathDot4U8Packed:
		// Dot products reduce vectors to their scalar.
		inner, innerErr := resolutionInner(module, argType)
		if innerErr != nil {
			return TypeResolution{}, innerErr
		}
		if vec, ok := inner.(VectorType); ok {
			return TypeResolution{Value: vec.Scalar}, nil
		}
		return argType, nil
	case MathLength, MathDistance:
		return TypeResolution{Value: scalarF32()}, nil
	default:
		// The rest preserve the first argument's type. MathOuter is the
		// known exception; the front end never produces it.
		return argType, nil
	}
}

func resolveAsType(module *Module, fn *Function, expr ExprAs) (TypeResolution, error) {
	exprType, err := resolveOperand(module, fn, expr.Expr, "as expr")
	if err != nil {
		return TypeResolution{}, err
	}
	if expr.Convert == nil {
		// Bitcast keeps the operand's shape.
		return exprType, nil
	}
	inner, err := resolutionInner(module, exprType)
	if err != nil {
		return TypeResolution{}, err
	}
	target := ScalarType{Kind: expr.Kind, Width: *expr.Convert}
	if vec, ok := inner.(VectorType); ok {
		return TypeResolution{Value: VectorType{Size: vec.Size, Scalar: target}}, nil
	}
	return TypeResolution{Value: target}, nil
}
