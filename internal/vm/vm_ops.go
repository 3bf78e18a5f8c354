package vm

import (
	"fmt"
	"math"

	"github.com/funvibe/coludf/internal/typesystem"
)

// Primitive semantics follow the device's "numpy" error model: integer
// division and modulo by zero produce 0 instead of trapping, floats follow
// IEEE 754, and fixed-width integers wrap.

// castValue converts v from one primitive type to another. Besides the
// coercion table it accepts datetime/timedelta <-> int64, which lowering
// uses to compute on raw ticks.
func castValue(v Value, from, to typesystem.Type) (Value, error) {
	// An unspecified value stays unspecified.
	if v.Type == ValUndef || typesystem.Equal(from, to) {
		return v, nil
	}
	if fu, ok := typesystem.TickUnit(from); ok {
		if tu, ok := typesystem.TickUnit(to); ok && from.Class() == to.Class() {
			return IntVal(rescaleTicks(v.AsInt(), fu, tu)), nil
		}
		if typesystem.Equal(to, typesystem.Int64) {
			return IntVal(v.AsInt()), nil
		}
		return UndefVal(), typesystem.NewTypeMismatchError(from, to, "")
	}
	if _, ok := typesystem.TickUnit(to); ok {
		if typesystem.Equal(from, typesystem.Int64) {
			return IntVal(v.AsInt()), nil
		}
		return UndefVal(), typesystem.NewTypeMismatchError(from, to, "")
	}

	switch tt := to.(type) {
	case typesystem.Boolean:
		switch v.Type {
		case ValBool:
			return v, nil
		case ValInt, ValUint:
			return BoolVal(v.Data != 0), nil
		case ValFloat:
			return BoolVal(v.AsFloat() != 0), nil
		}
	case typesystem.Integer:
		switch v.Type {
		case ValBool, ValInt, ValUint:
			if tt.Signed {
				return makeInt(tt, int64(v.Data)), nil
			}
			return makeUint(tt, v.Data), nil
		case ValFloat:
			f := v.AsFloat()
			if tt.Signed {
				return makeInt(tt, truncToInt(f)), nil
			}
			return makeUint(tt, uint64(truncToInt(f))), nil
		}
	case typesystem.Float:
		switch v.Type {
		case ValBool, ValUint:
			return makeFloat(tt, float64(v.Data)), nil
		case ValInt:
			return makeFloat(tt, float64(v.AsInt())), nil
		case ValFloat:
			return makeFloat(tt, v.AsFloat()), nil
		}
	}
	return UndefVal(), fmt.Errorf("cannot cast %s value from %s to %s", v.Type, from, to)
}

func rescaleTicks(ticks int64, from, to string) int64 {
	fn, _ := typesystem.UnitNanos(from)
	tn, _ := typesystem.UnitNanos(to)
	if fn >= tn {
		return ticks * (fn / tn)
	}
	return floorDiv(ticks, tn/fn)
}

func truncToInt(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// IntegerVal wraps the two's-complement bits of raw to the width and
// signedness of t.
func IntegerVal(t typesystem.Integer, raw uint64) Value {
	if t.Signed {
		return makeInt(t, int64(raw))
	}
	return makeUint(t, raw)
}

func makeInt(t typesystem.Integer, x int64) Value {
	if t.Bits < 64 {
		shift := 64 - uint(t.Bits)
		x = (x << shift) >> shift
	}
	return IntVal(x)
}

func makeUint(t typesystem.Integer, x uint64) Value {
	if t.Bits < 64 {
		x &= (uint64(1) << t.Bits) - 1
	}
	return UintVal(x)
}

func makeFloat(t typesystem.Float, f float64) Value {
	if t.Bits == 32 {
		f = float64(float32(f))
	}
	return FloatVal(f)
}

func floorDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

func intPow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func uintPow(base, exp uint64) uint64 {
	result := uint64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func compare[N int64 | uint64 | float64](op PrimOp, a, b N) bool {
	switch op {
	case PRIM_EQ:
		return a == b
	case PRIM_NE:
		return a != b
	case PRIM_LT:
		return a < b
	case PRIM_LE:
		return a <= b
	case PRIM_GT:
		return a > b
	default:
		return a >= b
	}
}

// binaryOp evaluates op with both operands already in type t. Comparisons
// produce a bool, everything else a value of type t.
func binaryOp(op PrimOp, t typesystem.Type, a, b Value) (Value, error) {
	switch tt := t.(type) {
	case typesystem.Boolean:
		x, y := a.AsBool(), b.AsBool()
		switch op {
		case PRIM_BAND:
			return BoolVal(x && y), nil
		case PRIM_BOR:
			return BoolVal(x || y), nil
		case PRIM_BXOR:
			return BoolVal(x != y), nil
		}
		if op.IsComparison() {
			return BoolVal(compare(op, a.Data, b.Data)), nil
		}
	case typesystem.Integer:
		if tt.Signed {
			return signedBinary(op, tt, a.AsInt(), b.AsInt())
		}
		return unsignedBinary(op, tt, a.AsUint(), b.AsUint())
	case typesystem.Float:
		return floatBinary(op, tt, a.AsFloat(), b.AsFloat())
	}
	return UndefVal(), fmt.Errorf("no primitive %s for %s", op, t)
}

func signedBinary(op PrimOp, t typesystem.Integer, x, y int64) (Value, error) {
	if op.IsComparison() {
		return BoolVal(compare(op, x, y)), nil
	}
	var r int64
	switch op {
	case PRIM_ADD:
		r = x + y
	case PRIM_SUB:
		r = x - y
	case PRIM_MUL:
		r = x * y
	case PRIM_FLOORDIV:
		r = floorDiv(x, y)
	case PRIM_MOD:
		r = floorMod(x, y)
	case PRIM_POW:
		r = intPow(x, y)
	case PRIM_BAND:
		r = x & y
	case PRIM_BOR:
		r = x | y
	case PRIM_BXOR:
		r = x ^ y
	default:
		return UndefVal(), fmt.Errorf("no primitive %s for %s", op, t)
	}
	return makeInt(t, r), nil
}

func unsignedBinary(op PrimOp, t typesystem.Integer, x, y uint64) (Value, error) {
	if op.IsComparison() {
		return BoolVal(compare(op, x, y)), nil
	}
	var r uint64
	switch op {
	case PRIM_ADD:
		r = x + y
	case PRIM_SUB:
		r = x - y
	case PRIM_MUL:
		r = x * y
	case PRIM_FLOORDIV:
		if y != 0 {
			r = x / y
		}
	case PRIM_MOD:
		if y != 0 {
			r = x % y
		}
	case PRIM_POW:
		r = uintPow(x, y)
	case PRIM_BAND:
		r = x & y
	case PRIM_BOR:
		r = x | y
	case PRIM_BXOR:
		r = x ^ y
	default:
		return UndefVal(), fmt.Errorf("no primitive %s for %s", op, t)
	}
	return makeUint(t, r), nil
}

func floatBinary(op PrimOp, t typesystem.Float, x, y float64) (Value, error) {
	if op.IsComparison() {
		return BoolVal(compare(op, x, y)), nil
	}
	var r float64
	switch op {
	case PRIM_ADD:
		r = x + y
	case PRIM_SUB:
		r = x - y
	case PRIM_MUL:
		r = x * y
	case PRIM_TRUEDIV:
		r = x / y
	case PRIM_FLOORDIV:
		r = math.Floor(x / y)
	case PRIM_MOD:
		r = math.Mod(x, y)
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
	case PRIM_POW:
		r = math.Pow(x, y)
	default:
		return UndefVal(), fmt.Errorf("no primitive %s for %s", op, t)
	}
	return makeFloat(t, r), nil
}

var mathFuncs = map[PrimOp]func(float64) float64{
	PRIM_TRUNC: math.Trunc,
	PRIM_CEIL:  math.Ceil,
	PRIM_FLOOR: math.Floor,
	PRIM_SQRT:  math.Sqrt,
	PRIM_EXP:   math.Exp,
	PRIM_EXPM1: math.Expm1,
	PRIM_LOG:   math.Log,
	PRIM_LOG1P: math.Log1p,
	PRIM_LOG2:  math.Log2,
	PRIM_LOG10: math.Log10,
	PRIM_SIN:   math.Sin,
	PRIM_COS:   math.Cos,
	PRIM_TAN:   math.Tan,
	PRIM_ASIN:  math.Asin,
	PRIM_ACOS:  math.Acos,
	PRIM_ATAN:  math.Atan,
	PRIM_SINH:  math.Sinh,
	PRIM_COSH:  math.Cosh,
	PRIM_TANH:  math.Tanh,
	PRIM_ASINH: math.Asinh,
	PRIM_ACOSH: math.Acosh,
	PRIM_ATANH: math.Atanh,
}

// unaryOp evaluates op on v of type t. PRIM_NOT always yields a bool.
func unaryOp(op PrimOp, t typesystem.Type, v Value) (Value, error) {
	if op == PRIM_POS {
		return v, nil
	}
	switch tt := t.(type) {
	case typesystem.Boolean:
		switch op {
		case PRIM_NOT, PRIM_INVERT:
			return BoolVal(!v.AsBool()), nil
		}
	case typesystem.Integer:
		switch op {
		case PRIM_NOT:
			return BoolVal(v.Data == 0), nil
		case PRIM_NEG:
			if tt.Signed {
				return makeInt(tt, -v.AsInt()), nil
			}
			return makeUint(tt, -v.AsUint()), nil
		case PRIM_INVERT:
			if tt.Signed {
				return makeInt(tt, ^v.AsInt()), nil
			}
			return makeUint(tt, ^v.AsUint()), nil
		}
	case typesystem.Float:
		switch op {
		case PRIM_NOT:
			return BoolVal(v.AsFloat() == 0), nil
		case PRIM_NEG:
			return makeFloat(tt, -v.AsFloat()), nil
		}
		if fn, ok := mathFuncs[op]; ok {
			return makeFloat(tt, fn(v.AsFloat())), nil
		}
	}
	return UndefVal(), fmt.Errorf("no primitive %s for %s", op, t)
}
