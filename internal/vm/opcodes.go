// Package vm implements the instruction set that kernels are lowered to and
// the interpreter that executes them, one row per execution unit.
package vm

// Opcode represents a single instruction
type Opcode byte

const (
	// Stack manipulation
	OP_CONST Opcode = iota // Push constant from pool
	OP_UNDEF               // Push an unspecified value
	OP_POP                 // Discard top of stack
	OP_DUP                 // Duplicate top of stack

	// Locals (addressable storage)
	OP_GET_LOCAL // Push local slot
	OP_SET_LOCAL // Pop into local slot
	OP_REF_LOCAL // Push a reference to a local slot

	// Masked values
	OP_MAKE_MASKED  // [value, valid] -> [masked]
	OP_MASKED_VALUE // [masked] -> [value]
	OP_MASKED_VALID // [masked] -> [valid]

	// Logic
	OP_AND // Boolean and
	OP_OR  // Boolean or
	OP_NOT // Boolean not

	// Control flow
	OP_JUMP          // Unconditional forward jump
	OP_JUMP_IF_FALSE // Pop condition, jump if false

	// Primitive computation
	OP_CAST   // Convert top of stack: from type, to type
	OP_BINARY // Primitive binary op in a computation type
	OP_UNARY  // Primitive unary op in a computation type

	// Text routines
	OP_CALL_EXTERN // Call a text routine: routine, argc
	OP_TABLE       // Push the character classification table handle

	// Kernel boundary
	OP_LOAD_INPUT   // Push this unit's input element
	OP_STORE_OUTPUT // Pop a masked value into this unit's output slot

	OP_RETURN // End of kernel
)

// OpcodeNames maps opcodes to their string names (for debugging)
var OpcodeNames = map[Opcode]string{
	OP_CONST: "CONST",
	OP_UNDEF: "UNDEF",
	OP_POP:   "POP",
	OP_DUP:   "DUP",

	OP_GET_LOCAL: "GET_LOCAL",
	OP_SET_LOCAL: "SET_LOCAL",
	OP_REF_LOCAL: "REF_LOCAL",

	OP_MAKE_MASKED:  "MAKE_MASKED",
	OP_MASKED_VALUE: "MASKED_VALUE",
	OP_MASKED_VALID: "MASKED_VALID",

	OP_AND: "AND",
	OP_OR:  "OR",
	OP_NOT: "NOT",

	OP_JUMP:          "JUMP",
	OP_JUMP_IF_FALSE: "JUMP_IF_FALSE",

	OP_CAST:   "CAST",
	OP_BINARY: "BINARY",
	OP_UNARY:  "UNARY",

	OP_CALL_EXTERN: "CALL_EXTERN",
	OP_TABLE:       "TABLE",

	OP_LOAD_INPUT:   "LOAD_INPUT",
	OP_STORE_OUTPUT: "STORE_OUTPUT",

	OP_RETURN: "RETURN",
}

// PrimOp is the primitive operation carried by OP_BINARY and OP_UNARY.
type PrimOp byte

const (
	PRIM_ADD PrimOp = iota
	PRIM_SUB
	PRIM_MUL
	PRIM_TRUEDIV
	PRIM_FLOORDIV
	PRIM_MOD
	PRIM_POW
	PRIM_BAND
	PRIM_BOR
	PRIM_BXOR
	PRIM_EQ
	PRIM_NE
	PRIM_LT
	PRIM_LE
	PRIM_GT
	PRIM_GE

	PRIM_POS
	PRIM_NEG
	PRIM_NOT
	PRIM_INVERT
	PRIM_TRUNC
	PRIM_CEIL
	PRIM_FLOOR
	PRIM_SQRT
	PRIM_EXP
	PRIM_EXPM1
	PRIM_LOG
	PRIM_LOG1P
	PRIM_LOG2
	PRIM_LOG10
	PRIM_SIN
	PRIM_COS
	PRIM_TAN
	PRIM_ASIN
	PRIM_ACOS
	PRIM_ATAN
	PRIM_SINH
	PRIM_COSH
	PRIM_TANH
	PRIM_ASINH
	PRIM_ACOSH
	PRIM_ATANH
)

var primNames = map[PrimOp]string{
	PRIM_ADD:      "add",
	PRIM_SUB:      "sub",
	PRIM_MUL:      "mul",
	PRIM_TRUEDIV:  "truediv",
	PRIM_FLOORDIV: "floordiv",
	PRIM_MOD:      "mod",
	PRIM_POW:      "pow",
	PRIM_BAND:     "and",
	PRIM_BOR:      "or",
	PRIM_BXOR:     "xor",
	PRIM_EQ:       "eq",
	PRIM_NE:       "ne",
	PRIM_LT:       "lt",
	PRIM_LE:       "le",
	PRIM_GT:       "gt",
	PRIM_GE:       "ge",
	PRIM_POS:      "pos",
	PRIM_NEG:      "neg",
	PRIM_NOT:      "not",
	PRIM_INVERT:   "invert",
	PRIM_TRUNC:    "trunc",
	PRIM_CEIL:     "ceil",
	PRIM_FLOOR:    "floor",
	PRIM_SQRT:     "sqrt",
	PRIM_EXP:      "exp",
	PRIM_EXPM1:    "expm1",
	PRIM_LOG:      "log",
	PRIM_LOG1P:    "log1p",
	PRIM_LOG2:     "log2",
	PRIM_LOG10:    "log10",
	PRIM_SIN:      "sin",
	PRIM_COS:      "cos",
	PRIM_TAN:      "tan",
	PRIM_ASIN:     "asin",
	PRIM_ACOS:     "acos",
	PRIM_ATAN:     "atan",
	PRIM_SINH:     "sinh",
	PRIM_COSH:     "cosh",
	PRIM_TANH:     "tanh",
	PRIM_ASINH:    "asinh",
	PRIM_ACOSH:    "acosh",
	PRIM_ATANH:    "atanh",
}

func (p PrimOp) String() string {
	if name, ok := primNames[p]; ok {
		return name
	}
	return "prim?"
}

// IsComparison reports whether p yields a boolean from two operands.
func (p PrimOp) IsComparison() bool {
	return p >= PRIM_EQ && p <= PRIM_GE
}

// IsBitwise reports whether p only applies to integers and booleans.
func (p PrimOp) IsBitwise() bool {
	return p == PRIM_BAND || p == PRIM_BOR || p == PRIM_BXOR || p == PRIM_INVERT
}

// IsMath reports whether p is a floating point math function.
func (p PrimOp) IsMath() bool {
	return p >= PRIM_TRUNC && p <= PRIM_ATANH
}
