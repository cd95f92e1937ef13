package ir

// Expression is a single value-producing node in a function. Expressions
// form an SSA-style arena: each one is identified by its handle, refers to
// earlier expressions only, and is scheduled by the StmtEmit statements of
// the enclosing body.
type Expression struct {
	Kind ExpressionKind
}

// ExpressionKind is implemented by every expression variant.
type ExpressionKind interface {
	expressionKind()
}

// Literal is an immediate constant value.
type Literal struct {
	Value LiteralValue
}

func (Literal) expressionKind() {}

// LiteralValue is implemented by the concrete literal payloads.
type LiteralValue interface {
	literalValue()
}

// LiteralF64 is a 64-bit float constant. NaN and infinity are not
// representable in source, so they never appear here.
type LiteralF64 float64

func (LiteralF64) literalValue() {}

// LiteralF32 is a 32-bit float constant, same NaN/infinity restriction
// as LiteralF64.
type LiteralF32 float32

func (LiteralF32) literalValue() {}

// LiteralU32 is a 32-bit unsigned integer constant.
type LiteralU32 uint32

func (LiteralU32) literalValue() {}

// LiteralI32 is a 32-bit signed integer constant.
type LiteralI32 int32

func (LiteralI32) literalValue() {}

// LiteralU64 is a 64-bit unsigned integer constant.
type LiteralU64 uint64

func (LiteralU64) literalValue() {}

// LiteralI64 is a 64-bit signed integer constant.
type LiteralI64 int64

func (LiteralI64) literalValue() {}

// LiteralBool is a boolean constant.
type LiteralBool bool

func (LiteralBool) literalValue() {}

// LiteralAbstractInt carries an unsuffixed integer literal before it
// concretizes. Lowering materializes it as i32 unless context demands
// another width.
type LiteralAbstractInt int64

func (LiteralAbstractInt) literalValue() {}

// LiteralAbstractFloat carries an unsuffixed float literal before it
// concretizes, defaulting to f32.
type LiteralAbstractFloat float64

func (LiteralAbstractFloat) literalValue() {}

// ExprConstant reads a module-scope constant.
type ExprConstant struct {
	Constant ConstantHandle
}

func (ExprConstant) expressionKind() {}

// ExprZeroValue is the zero value of a type, produced by value
// constructors called with no arguments.
type ExprZeroValue struct {
	Type TypeHandle
}

func (ExprZeroValue) expressionKind() {}

// ExprCompose builds a vector, matrix, array, or struct value from its
// components. Component count and types must match the composite type.
type ExprCompose struct {
	Type       TypeHandle
	Components []ExpressionHandle
}

func (ExprCompose) expressionKind() {}

// ExprAccess indexes an array, vector, or matrix with a runtime index.
// The index must be an integer.
type ExprAccess struct {
	Base  ExpressionHandle
	Index ExpressionHandle
}

func (ExprAccess) expressionKind() {}

// ExprAccessIndex indexes with a constant known at compile time. Unlike
// ExprAccess it can also select a struct member, which is how member
// access lowers.
type ExprAccessIndex struct {
	Base  ExpressionHandle
	Index uint32
}

func (ExprAccessIndex) expressionKind() {}

// ExprSplat repeats a scalar into every lane of a vector. Single-argument
// vector constructors lower to this.
type ExprSplat struct {
	Size  VectorSize
	Value ExpressionHandle
}

func (ExprSplat) expressionKind() {}

// ExprSwizzle selects and reorders vector lanes. Only the first Size
// entries of Pattern are meaningful.
type ExprSwizzle struct {
	Size    VectorSize
	Vector  ExpressionHandle
	Pattern [4]SwizzleComponent
}

func (ExprSwizzle) expressionKind() {}

// SwizzleComponent names one source lane of a swizzle.
type SwizzleComponent uint8

const (
	SwizzleX SwizzleComponent = 0
	SwizzleY SwizzleComponent = 1
	SwizzleZ SwizzleComponent = 2
	SwizzleW SwizzleComponent = 3
)

// ExprFunctionArgument reads a parameter of the enclosing function by
// position.
type ExprFunctionArgument struct {
	Index uint32
}

func (ExprFunctionArgument) expressionKind() {}

// ExprGlobalVariable references a module-scope variable. Handle-space
// globals (textures, samplers) produce the resource value itself; every
// other address space produces a pointer that must go through ExprLoad.
type ExprGlobalVariable struct {
	Variable GlobalVariableHandle
}

func (ExprGlobalVariable) expressionKind() {}

// ExprLocalVariable references a function-scope variable by its index in
// Function.LocalVars, producing a pointer to its storage.
type ExprLocalVariable struct {
	Variable uint32
}

func (ExprLocalVariable) expressionKind() {}

// ExprLoad reads the value behind a pointer.
type ExprLoad struct {
	Pointer ExpressionHandle
}

func (ExprLoad) expressionKind() {}

// ExprImageSample samples a sampled or depth texture. The textureSample*
// builtin family lowers here, with the variant encoded in Level, Gather,
// and DepthRef.
type ExprImageSample struct {
	Image       ExpressionHandle
	Sampler     ExpressionHandle
	Gather      *SwizzleComponent // Set for textureGather: which component to collect
	Coordinate  ExpressionHandle
	ArrayIndex  *ExpressionHandle
	Offset      *ExpressionHandle // Must be a const-expression
	Level       SampleLevel
	DepthRef    *ExpressionHandle // Set for comparison sampling
	ClampToEdge bool              // Clamp coordinates to [half_texel, 1 - half_texel]
}

func (ExprImageSample) expressionKind() {}

// SampleLevel selects how the level of detail is chosen for a sample.
type SampleLevel interface {
	sampleLevel()
}

// SampleLevelAuto uses the implicit level of detail. Only valid in
// fragment stage code.
type SampleLevelAuto struct{}

func (SampleLevelAuto) sampleLevel() {}

// SampleLevelZero forces mip level 0.
type SampleLevelZero struct{}

func (SampleLevelZero) sampleLevel() {}

// SampleLevelExact samples at an explicit mip level.
type SampleLevelExact struct {
	Level ExpressionHandle
}

func (SampleLevelExact) sampleLevel() {}

// SampleLevelBias offsets the implicit level of detail.
type SampleLevelBias struct {
	Bias ExpressionHandle
}

func (SampleLevelBias) sampleLevel() {}

// SampleLevelGradient derives the level of detail from explicit
// gradients instead of neighboring invocations.
type SampleLevelGradient struct {
	X ExpressionHandle
	Y ExpressionHandle
}

func (SampleLevelGradient) sampleLevel() {}

// ExprImageLoad fetches a single texel without sampling, the lowering of
// textureLoad.
type ExprImageLoad struct {
	Image      ExpressionHandle
	Coordinate ExpressionHandle
	ArrayIndex *ExpressionHandle
	Sample     *ExpressionHandle // Multisampled sources only
	Level      *ExpressionHandle // Mipmapped sources only
}

func (ExprImageLoad) expressionKind() {}

// ExprImageQuery asks for texture metadata such as dimensions or level
// counts.
type ExprImageQuery struct {
	Image ExpressionHandle
	Query ImageQuery
}

func (ExprImageQuery) expressionKind() {}

// ImageQuery is implemented by the metadata query variants.
type ImageQuery interface {
	imageQuery()
}

// ImageQuerySize asks for the texel dimensions at a mip level.
type ImageQuerySize struct {
	Level *ExpressionHandle // Nil means the base level
}

func (ImageQuerySize) imageQuery() {}

// ImageQueryNumLevels asks for the mip level count.
type ImageQueryNumLevels struct{}

func (ImageQueryNumLevels) imageQuery() {}

// ImageQueryNumLayers asks for the array layer count.
type ImageQueryNumLayers struct{}

func (ImageQueryNumLayers) imageQuery() {}

// ImageQueryNumSamples asks for the sample count of a multisampled
// texture.
type ImageQueryNumSamples struct{}

func (ImageQueryNumSamples) imageQuery() {}

// ExprUnary applies a unary operator. The result type equals the operand
// type.
type ExprUnary struct {
	Op   UnaryOperator
	Expr ExpressionHandle
}

func (ExprUnary) expressionKind() {}

// UnaryOperator enumerates the unary operators.
type UnaryOperator uint8

const (
	UnaryNegate     UnaryOperator = iota // Arithmetic negation
	UnaryLogicalNot                      // Logical not (!)
	UnaryBitwiseNot                      // Bitwise not (~)
)

// ExprBinary applies a binary operator to two operands.
type ExprBinary struct {
	Op    BinaryOperator
	Left  ExpressionHandle
	Right ExpressionHandle
}

func (ExprBinary) expressionKind() {}

// BinaryOperator enumerates the binary operators.
type BinaryOperator uint8

const (
	// Arithmetic
	BinaryAdd BinaryOperator = iota
	BinarySubtract
	BinaryMultiply
	BinaryDivide
	BinaryModulo

	// Comparison
	BinaryEqual
	BinaryNotEqual
	BinaryLess
	BinaryLessEqual
	BinaryGreater
	BinaryGreaterEqual

	// Bitwise
	BinaryAnd
	BinaryExclusiveOr
	BinaryInclusiveOr

	// Logical
	BinaryLogicalAnd
	BinaryLogicalOr

	// Shifts; right shift is arithmetic for signed operands and logical
	// for unsigned operands
	BinaryShiftLeft
	BinaryShiftRight
)

// IsComparison reports whether the operator compares its operands,
// producing bool lanes rather than a value of the operand type.
func (op BinaryOperator) IsComparison() bool {
	switch op {
	case BinaryEqual, BinaryNotEqual, BinaryLess, BinaryLessEqual,
		BinaryGreater, BinaryGreaterEqual:
		return true
	}
	return false
}

// IsLogical reports whether the operator is a short-circuiting boolean
// operation.
func (op BinaryOperator) IsLogical() bool {
	return op == BinaryLogicalAnd || op == BinaryLogicalOr
}

// ExprSelect picks between two values on a boolean condition, the
// lowering of the select builtin.
type ExprSelect struct {
	Condition ExpressionHandle
	Accept    ExpressionHandle
	Reject    ExpressionHandle
}

func (ExprSelect) expressionKind() {}

// ExprDerivative is a screen-space partial derivative. Only valid in
// fragment stage code.
type ExprDerivative struct {
	Axis    DerivativeAxis
	Control DerivativeControl
	Expr    ExpressionHandle
}

func (ExprDerivative) expressionKind() {}

// DerivativeAxis selects the derivative direction.
type DerivativeAxis uint8

const (
	DerivativeX     DerivativeAxis = iota // dpdx
	DerivativeY                           // dpdy
	DerivativeWidth                       // fwidth: |dpdx| + |dpdy|
)

// DerivativeControl is the precision hint carried by the coarse/fine
// builtin variants.
type DerivativeControl uint8

const (
	DerivativeCoarse DerivativeControl = iota
	DerivativeFine
	DerivativeNone
)

// ExprRelational applies one of the boolean test builtins.
type ExprRelational struct {
	Fun      RelationalFunction
	Argument ExpressionHandle
}

func (ExprRelational) expressionKind() {}

// RelationalFunction enumerates the boolean test builtins.
type RelationalFunction uint8

const (
	RelationalAll   RelationalFunction = iota // all(): every lane true
	RelationalAny                             // any(): some lane true
	RelationalIsNan                           // per-lane NaN test
	RelationalIsInf                           // per-lane infinity test
)

// ExprMath applies a math builtin. Arg is always present; Arg1 through
// Arg3 are filled left to right for builtins taking more arguments.
type ExprMath struct {
	Fun  MathFunction
	Arg  ExpressionHandle
	Arg1 *ExpressionHandle
	Arg2 *ExpressionHandle
	Arg3 *ExpressionHandle
}

func (ExprMath) expressionKind() {}

// MathFunction enumerates the math builtins.
type MathFunction uint8

const (
	// Comparison
	MathAbs MathFunction = iota
	MathMin
	MathMax
	MathClamp
	MathSaturate

	// Trigonometry
	MathCos
	MathCosh
	MathSin
	MathSinh
	MathTan
	MathTanh
	MathAcos
	MathAsin
	MathAtan
	MathAtan2
	MathAsinh
	MathAcosh
	MathAtanh

	// Angle conversion
	MathRadians
	MathDegrees

	// Rounding and decomposition
	MathCeil
	MathFloor
	MathRound
	MathFract
	MathTrunc
	MathModf
	MathFrexp
	MathLdexp

	// Exponential
	MathExp
	MathExp2
	MathLog
	MathLog2
	MathPow

	// Geometry
	MathDot
	MathDot4I8Packed
	MathDot4U8Packed
	MathOuter
	MathCross
	MathDistance
	MathLength
	MathNormalize
	MathFaceForward
	MathReflect
	MathRefract

	// General computation
	MathSign
	MathFma
	MathMix
	MathStep
	MathSmoothStep
	MathSqrt
	MathInverseSqrt
	MathInverse
	MathTranspose
	MathDeterminant
	MathQuantizeF16

	// Bit manipulation
	MathCountTrailingZeros
	MathCountLeadingZeros
	MathCountOneBits
	MathReverseBits
	MathExtractBits
	MathInsertBits
	MathFirstTrailingBit
	MathFirstLeadingBit

	// Data packing
	MathPack4x8snorm
	MathPack4x8unorm
	MathPack2x16snorm
	MathPack2x16unorm
	MathPack2x16float
	MathPack4xI8
	MathPack4xU8
	MathPack4xI8Clamp
	MathPack4xU8Clamp

	// Data unpacking
	MathUnpack4x8snorm
	MathUnpack4x8unorm
	MathUnpack2x16snorm
	MathUnpack2x16unorm
	MathUnpack2x16float
	MathUnpack4xI8
	MathUnpack4xU8
)

// ExprAs reinterprets or converts a value to another scalar kind. A nil
// Convert means bitcast; otherwise the value converts to the given byte
// width.
type ExprAs struct {
	Expr    ExpressionHandle
	Kind    ScalarKind
	Convert *uint8
}

func (ExprAs) expressionKind() {}

// ExprCallResult is the value returned by a StmtCall to a function with
// a result. The call statement itself carries the arguments.
type ExprCallResult struct {
	Function FunctionHandle
}

func (ExprCallResult) expressionKind() {}

// ExprArrayLength is the runtime element count of a dynamically sized
// array. The operand must be a pointer to such an array.
type ExprArrayLength struct {
	Array ExpressionHandle
}

func (ExprArrayLength) expressionKind() {}

// ExprAtomicResult is the value observed by a StmtAtomic, such as the
// previous contents for a read-modify-write. Scalar records the element
// type of the atomic so the result can be typed without walking back to
// the pointer operand.
type ExprAtomicResult struct {
	Scalar ScalarType
}

func (ExprAtomicResult) expressionKind() {}
