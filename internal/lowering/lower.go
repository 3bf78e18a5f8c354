package lowering

import (
	"errors"
	"fmt"

	"github.com/funvibe/coludf/internal/textlib"
	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/udf"
	"github.com/funvibe/coludf/internal/vm"
)

// Lower emits code for n, leaving one value of n.Type() on the stack.
func (c *Context) Lower(n udf.Node) error {
	switch n := n.(type) {
	case *udf.Param:
		if c.param < 0 {
			return errors.New("parameter used before it was bound")
		}
		c.b.Load(c.param)
		return nil

	case *udf.Const:
		return c.Constant(n.Value, n.T, n.Null)

	case *udf.Call:
		return c.lowerCall(n)

	case *udf.IfElse:
		return c.lowerIfElse(n)

	case *udf.Cast:
		if err := c.Lower(n.Arg); err != nil {
			return err
		}
		return c.Cast(n.Arg.Type(), n.T)
	}
	return fmt.Errorf("unknown node %T", n)
}

func (c *Context) lowerCall(n *udf.Call) error {
	args := make([]Operand, len(n.Args))
	types := make([]typesystem.Type, len(n.Args))
	for i, a := range n.Args {
		if err := c.Lower(a); err != nil {
			return err
		}
		types[i] = a.Type()
		args[i] = Operand{Slot: c.b.Spill(), Type: types[i]}
	}
	impl, err := c.reg.Lookup(n.Op, types)
	if err != nil {
		return err
	}
	return impl(c, Signature{Op: n.Op, Args: types, Result: n.T}, args)
}

// lowerIfElse evaluates only the selected branch. A Masked(bool) condition
// is tested by its payload, like truth().
func (c *Context) lowerIfElse(n *udf.IfElse) error {
	if err := c.Lower(n.Cond); err != nil {
		return err
	}
	switch ct := n.Cond.Type(); {
	case typesystem.Equal(ct, typesystem.Bool):
	case typesystem.Equal(ct, typesystem.Masked{Value: typesystem.Bool}):
		c.b.Emit(vm.OP_MASKED_VALUE)
	case typesystem.IsScalar(ct):
		c.convert(ct, typesystem.Bool)
	default:
		return typesystem.NewUnsupportedOperationError("if", ct)
	}

	branch := func(arm udf.Node) func() error {
		return func() error {
			if err := c.Lower(arm); err != nil {
				return err
			}
			return c.Cast(arm.Type(), n.T)
		}
	}
	return c.b.IfElse(branch(n.Then), branch(n.Else))
}

// Constant embeds a literal. Masked constants embed both the payload and the
// validity bit; string literals become views over the constant pool.
func (c *Context) Constant(value any, t typesystem.Type, null bool) error {
	if inner, ok := typesystem.MaskedValue(t); ok {
		if null {
			c.b.Emit(vm.OP_UNDEF)
			c.b.MakeMasked(false)
			return nil
		}
		if err := c.Constant(value, inner, false); err != nil {
			return err
		}
		c.b.MakeMasked(true)
		return nil
	}

	v, err := constantValue(value, t)
	if err != nil {
		return err
	}
	c.b.EmitConstant(v)
	return nil
}

func constantValue(value any, t typesystem.Type) (vm.Value, error) {
	switch tt := t.(type) {
	case typesystem.NAType:
		return vm.UnitVal(), nil
	case typesystem.Boolean:
		if b, ok := value.(bool); ok {
			return vm.BoolVal(b), nil
		}
	case typesystem.Integer:
		var raw uint64
		switch v := value.(type) {
		case int64:
			raw = uint64(v)
		case uint64:
			raw = v
		default:
			return vm.Value{}, fmt.Errorf("constant %v does not fit %s", value, t)
		}
		return vm.IntegerVal(tt, raw), nil
	case typesystem.Float:
		if f, ok := value.(float64); ok {
			if tt.Bits == 32 {
				f = float64(float32(f))
			}
			return vm.FloatVal(f), nil
		}
	case typesystem.NPDatetime, typesystem.NPTimedelta:
		if i, ok := value.(int64); ok {
			return vm.IntVal(i), nil
		}
	case typesystem.StringLiteral, typesystem.StringView, typesystem.DynamicString:
		if s, ok := value.(string); ok {
			return vm.ViewVal(textlib.ViewOf(s)), nil
		}
	}
	return vm.Value{}, fmt.Errorf("constant %v does not fit %s", value, t)
}
