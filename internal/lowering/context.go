package lowering

import (
	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/udf"
	"github.com/funvibe/coludf/internal/vm"
)

// Context carries the state of lowering one function: the builder that
// receives instructions and the tables used to resolve operations.
type Context struct {
	b     *Builder
	reg   *Registry
	param int
}

func NewContext(b *Builder, reg *Registry) *Context {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Context{b: b, reg: reg, param: -1}
}

func (c *Context) Builder() *Builder { return c.b }

// BindParam makes slot the storage of the function parameter.
func (c *Context) BindParam(slot int) { c.param = slot }

func isMasked(t typesystem.Type) bool { return t.Class() == typesystem.ClassMasked }

func anyMasked(args []Operand) bool {
	for _, a := range args {
		if isMasked(a.Type) {
			return true
		}
	}
	return false
}

// valueType is the payload type of a Masked operand, or the operand type.
func valueType(t typesystem.Type) typesystem.Type {
	if inner, ok := typesystem.MaskedValue(t); ok {
		return inner
	}
	return t
}

// maskedResult returns the payload type of a gated operation's result.
func maskedResult(sig Signature) (typesystem.Type, error) {
	inner, ok := typesystem.MaskedValue(sig.Result)
	if !ok {
		return nil, typesystem.NewTypeMismatchError(sig.Result, typesystem.Masked{Value: sig.Result},
			sig.Op.String()+" over masked operands yields a masked result")
	}
	return inner, nil
}

// loadValue pushes the payload of o: the value itself for raw operands and
// the wrapped value for masked ones.
func (c *Context) loadValue(o Operand) typesystem.Type {
	c.b.Load(o.Slot)
	if isMasked(o.Type) {
		c.b.Emit(vm.OP_MASKED_VALUE)
	}
	return valueType(o.Type)
}

// jointValidity ANDs the validity of every masked operand into a new slot.
func (c *Context) jointValidity(args []Operand) int {
	n := 0
	for _, a := range args {
		if !isMasked(a.Type) {
			continue
		}
		c.b.Load(a.Slot)
		c.b.Emit(vm.OP_MASKED_VALID)
		if n > 0 {
			c.b.Emit(vm.OP_AND)
		}
		n++
	}
	return c.b.Spill()
}

// gated emits body only inside the joint-validity branch of args and wraps
// whatever body leaves on the stack into a masked value. When the branch is
// skipped the payload is left unspecified.
func (c *Context) gated(args []Operand, body func() error) error {
	out := c.b.Alloca()
	c.b.Emit(vm.OP_UNDEF)
	c.b.Store(out)
	valid := c.jointValidity(args)
	err := c.b.IfThen(valid, func() error {
		if err := body(); err != nil {
			return err
		}
		c.b.Store(out)
		return nil
	})
	if err != nil {
		return err
	}
	c.b.Load(out)
	c.b.Load(valid)
	c.b.Emit(vm.OP_MAKE_MASKED)
	return nil
}

func isTick(t typesystem.Type) bool {
	_, ok := typesystem.TickUnit(t)
	return ok
}

func withUnit(t typesystem.Type, unit string) typesystem.Type {
	switch t.(type) {
	case typesystem.NPDatetime:
		return typesystem.NPDatetime{Unit: unit}
	case typesystem.NPTimedelta:
		return typesystem.NPTimedelta{Unit: unit}
	}
	return t
}

// finestUnit returns the shortest tick among the datetime and timedelta
// types in ts, or "" when there are none.
func finestUnit(ts ...typesystem.Type) string {
	unit := ""
	for _, t := range ts {
		u, ok := typesystem.TickUnit(t)
		if !ok {
			continue
		}
		if unit == "" {
			unit = u
		} else {
			unit = typesystem.FinerUnit(unit, u)
		}
	}
	return unit
}

// convert emits a primitive conversion without consulting the coercion
// table. Datetime and timedelta values are reinterpreted as int64 ticks when
// crossing into or out of integer arithmetic.
func (c *Context) convert(from, to typesystem.Type) {
	if typesystem.Equal(from, to) {
		return
	}
	fromTick, toTick := isTick(from), isTick(to)
	switch {
	case fromTick && toTick && from.Class() == to.Class():
		c.b.Cast(from, to)
	case fromTick:
		c.b.Cast(from, typesystem.Int64)
		if !typesystem.Equal(to, typesystem.Int64) {
			c.b.Cast(typesystem.Int64, to)
		}
	case toTick:
		if !typesystem.Equal(from, typesystem.Int64) {
			c.b.Cast(from, typesystem.Int64)
		}
		c.b.Cast(typesystem.Int64, to)
	default:
		c.b.Cast(from, to)
	}
}

// toCompute converts a loaded operand of type t into the computation type.
// Ticks are first brought to the common unit.
func (c *Context) toCompute(t, comp typesystem.Type, unit string) {
	if isTick(t) {
		scaled := withUnit(t, unit)
		c.convert(t, scaled)
		c.convert(scaled, comp)
		return
	}
	c.convert(t, comp)
}

// fromCompute converts a computed value back to the result type.
func (c *Context) fromCompute(comp, res typesystem.Type, unit string) {
	if isTick(res) {
		scaled := withUnit(res, unit)
		c.convert(comp, scaled)
		c.convert(scaled, res)
		return
	}
	c.convert(comp, res)
}

var primOps = map[Op]vm.PrimOp{
	udf.OpAdd:      vm.PRIM_ADD,
	udf.OpSub:      vm.PRIM_SUB,
	udf.OpMul:      vm.PRIM_MUL,
	udf.OpTrueDiv:  vm.PRIM_TRUEDIV,
	udf.OpFloorDiv: vm.PRIM_FLOORDIV,
	udf.OpMod:      vm.PRIM_MOD,
	udf.OpPow:      vm.PRIM_POW,
	udf.OpAnd:      vm.PRIM_BAND,
	udf.OpOr:       vm.PRIM_BOR,
	udf.OpXor:      vm.PRIM_BXOR,
	udf.OpEq:       vm.PRIM_EQ,
	udf.OpNe:       vm.PRIM_NE,
	udf.OpLt:       vm.PRIM_LT,
	udf.OpLe:       vm.PRIM_LE,
	udf.OpGt:       vm.PRIM_GT,
	udf.OpGe:       vm.PRIM_GE,
	udf.OpPos:      vm.PRIM_POS,
	udf.OpNeg:      vm.PRIM_NEG,
	udf.OpNot:      vm.PRIM_NOT,
	udf.OpInvert:   vm.PRIM_INVERT,
	udf.OpTrunc:    vm.PRIM_TRUNC,
	udf.OpCeil:     vm.PRIM_CEIL,
	udf.OpFloor:    vm.PRIM_FLOOR,
	udf.OpSqrt:     vm.PRIM_SQRT,
	udf.OpExp:      vm.PRIM_EXP,
	udf.OpExpm1:    vm.PRIM_EXPM1,
	udf.OpLog:      vm.PRIM_LOG,
	udf.OpLog1p:    vm.PRIM_LOG1P,
	udf.OpLog2:     vm.PRIM_LOG2,
	udf.OpLog10:    vm.PRIM_LOG10,
	udf.OpSin:      vm.PRIM_SIN,
	udf.OpCos:      vm.PRIM_COS,
	udf.OpTan:      vm.PRIM_TAN,
	udf.OpAsin:     vm.PRIM_ASIN,
	udf.OpAcos:     vm.PRIM_ACOS,
	udf.OpAtan:     vm.PRIM_ATAN,
	udf.OpSinh:     vm.PRIM_SINH,
	udf.OpCosh:     vm.PRIM_COSH,
	udf.OpTanh:     vm.PRIM_TANH,
	udf.OpAsinh:    vm.PRIM_ASINH,
	udf.OpAcosh:    vm.PRIM_ACOSH,
	udf.OpAtanh:    vm.PRIM_ATANH,
}

// primSupported reports whether the interpreter implements p in type t.
func primSupported(p vm.PrimOp, t typesystem.Type) bool {
	switch t.Class() {
	case typesystem.ClassBoolean:
		return p.IsBitwise() || p.IsComparison() || p == vm.PRIM_NOT || p == vm.PRIM_INVERT || p == vm.PRIM_POS
	case typesystem.ClassInteger:
		return p != vm.PRIM_TRUEDIV && !p.IsMath()
	case typesystem.ClassFloat:
		return !p.IsBitwise() && p != vm.PRIM_INVERT
	}
	return false
}

// binaryComputeType picks the type a binary primitive is evaluated in and
// the tick unit operands are scaled to.
func binaryComputeType(op Op, res, a, b typesystem.Type) (typesystem.Type, string, error) {
	unit := finestUnit(a, b, res)
	switch {
	case op.IsComparison():
		if unit != "" {
			return typesystem.Int64, unit, nil
		}
		comp, err := typesystem.Unify(a, b)
		return comp, unit, err
	case op == udf.OpTrueDiv:
		return typesystem.Float64, unit, nil
	case unit != "":
		return typesystem.Int64, unit, nil
	}
	return res, unit, nil
}

// compileBinary evaluates op on the payloads of a and b and leaves a value of
// type res on the stack. No validity is consulted.
func (c *Context) compileBinary(op Op, res typesystem.Type, a, b Operand) error {
	prim, ok := primOps[op]
	at, bt := valueType(a.Type), valueType(b.Type)
	if !ok {
		return typesystem.NewUnsupportedOperationError(op.String(), at, bt)
	}
	comp, unit, err := binaryComputeType(op, res, at, bt)
	if err != nil {
		return err
	}
	if !primSupported(prim, comp) {
		return typesystem.NewUnsupportedOperationError(op.String(), at, bt)
	}

	c.loadValue(a)
	c.toCompute(at, comp, unit)
	c.loadValue(b)
	c.toCompute(bt, comp, unit)
	c.b.Binary(prim, comp)

	if op.IsComparison() {
		c.convert(typesystem.Bool, res)
		return nil
	}
	c.fromCompute(comp, res, unit)
	return nil
}

// compileUnary evaluates op on the payload of a.
func (c *Context) compileUnary(op Op, res typesystem.Type, a Operand) error {
	prim, ok := primOps[op]
	at := valueType(a.Type)
	if !ok {
		return typesystem.NewUnsupportedOperationError(op.String(), at)
	}
	unit := finestUnit(at, res)

	var comp typesystem.Type
	switch {
	case op == udf.OpNot:
		comp = at
	case op.IsMath():
		comp = typesystem.Float64
		if res.Class() == typesystem.ClassFloat {
			comp = res
		}
	default:
		comp = res
	}
	if isTick(comp) {
		comp = typesystem.Int64
	}
	if !primSupported(prim, comp) {
		return typesystem.NewUnsupportedOperationError(op.String(), at)
	}

	c.loadValue(a)
	c.toCompute(at, comp, unit)
	c.b.Unary(prim, comp)

	if op == udf.OpNot {
		c.convert(typesystem.Bool, res)
		return nil
	}
	c.fromCompute(comp, res, unit)
	return nil
}
