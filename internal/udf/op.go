package udf

// Op is an operator tag of the lowering catalogue. The set is closed: every
// Op has a name and lowering resolves it through a static dispatch table.
type Op uint8

const (
	// Arithmetic
	OpAdd Op = iota
	OpSub
	OpMul
	OpTrueDiv
	OpFloorDiv
	OpMod
	OpPow

	// Bitwise
	OpAnd
	OpOr
	OpXor

	// Comparison
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// Unary
	OpPos
	OpNeg
	OpNot
	OpInvert
	OpTrunc
	OpCeil
	OpFloor
	OpSqrt
	OpExp
	OpExpm1
	OpLog
	OpLog1p
	OpLog2
	OpLog10
	OpSin
	OpCos
	OpTan
	OpAsin
	OpAcos
	OpAtan
	OpSinh
	OpCosh
	OpTanh
	OpAsinh
	OpAcosh
	OpAtanh

	// Null interplay
	OpIs
	OpIsNot
	OpTruth
	OpBool

	// Strings
	OpLen
	OpContains
	OpStartsWith
	OpEndsWith
	OpFind
	OpRFind
	OpCount
	OpIsDigit
	OpIsAlpha
	OpIsAlnum
	OpIsNumeric
	OpIsDecimal
	OpIsSpace
	OpIsUpper
	OpIsLower
	OpUpper
	OpLower

	// Packing
	OpPackReturn
	OpMasked

	opCount
)

var opNames = [...]string{
	OpAdd:        "add",
	OpSub:        "sub",
	OpMul:        "mul",
	OpTrueDiv:    "truediv",
	OpFloorDiv:   "floordiv",
	OpMod:        "mod",
	OpPow:        "pow",
	OpAnd:        "and",
	OpOr:         "or",
	OpXor:        "xor",
	OpEq:         "eq",
	OpNe:         "ne",
	OpLt:         "lt",
	OpLe:         "le",
	OpGt:         "gt",
	OpGe:         "ge",
	OpPos:        "pos",
	OpNeg:        "neg",
	OpNot:        "not",
	OpInvert:     "invert",
	OpTrunc:      "trunc",
	OpCeil:       "ceil",
	OpFloor:      "floor",
	OpSqrt:       "sqrt",
	OpExp:        "exp",
	OpExpm1:      "expm1",
	OpLog:        "log",
	OpLog1p:      "log1p",
	OpLog2:       "log2",
	OpLog10:      "log10",
	OpSin:        "sin",
	OpCos:        "cos",
	OpTan:        "tan",
	OpAsin:       "asin",
	OpAcos:       "acos",
	OpAtan:       "atan",
	OpSinh:       "sinh",
	OpCosh:       "cosh",
	OpTanh:       "tanh",
	OpAsinh:      "asinh",
	OpAcosh:      "acosh",
	OpAtanh:      "atanh",
	OpIs:         "is",
	OpIsNot:      "is_not",
	OpTruth:      "truth",
	OpBool:       "bool",
	OpLen:        "len",
	OpContains:   "contains",
	OpStartsWith: "startswith",
	OpEndsWith:   "endswith",
	OpFind:       "find",
	OpRFind:      "rfind",
	OpCount:      "count",
	OpIsDigit:    "isdigit",
	OpIsAlpha:    "isalpha",
	OpIsAlnum:    "isalnum",
	OpIsNumeric:  "isnumeric",
	OpIsDecimal:  "isdecimal",
	OpIsSpace:    "isspace",
	OpIsUpper:    "isupper",
	OpIsLower:    "islower",
	OpUpper:      "upper",
	OpLower:      "lower",
	OpPackReturn: "pack_return",
	OpMasked:     "Masked",
}

var opsByName map[string]Op

func init() {
	opsByName = make(map[string]Op, len(opNames))
	for op, name := range opNames {
		opsByName[name] = Op(op)
	}
}

func (op Op) String() string {
	if op < opCount {
		return opNames[op]
	}
	return "op?"
}

// ParseOp resolves an operator by name.
func ParseOp(name string) (Op, bool) {
	op, ok := opsByName[name]
	return op, ok
}

// Ops returns the whole catalogue in declaration order.
func Ops() []Op {
	ops := make([]Op, opCount)
	for i := range ops {
		ops[i] = Op(i)
	}
	return ops
}

func (op Op) IsArithmetic() bool { return op <= OpPow }
func (op Op) IsBitwise() bool    { return op >= OpAnd && op <= OpXor }
func (op Op) IsComparison() bool { return op >= OpEq && op <= OpGe }

// IsBinary reports whether op is one of the two-operand scalar operators.
func (op Op) IsBinary() bool { return op <= OpGe }

// IsUnary reports whether op is one of the one-operand scalar operators.
func (op Op) IsUnary() bool { return op >= OpPos && op <= OpAtanh }

// IsMath reports whether op is a transcendental or rounding function.
func (op Op) IsMath() bool { return op >= OpTrunc && op <= OpAtanh }

// IsStringMethod reports whether op is a text operation.
func (op Op) IsStringMethod() bool { return op >= OpLen && op <= OpLower }
