package lowering

import (
	"github.com/funvibe/coludf/internal/textlib"
	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/vm"
)

// castImpl converts the value on top of the stack from one type to another.
type castImpl func(c *Context, from, to typesystem.Type) error

type castRule struct {
	from, to Pattern
	impl     castImpl
}

func (r *Registry) registerCast(from, to Pattern, impl castImpl) {
	r.casts = append(r.casts, castRule{from: from, to: to, impl: impl})
}

func registerCasts(r *Registry) {
	r.registerCast(NA, MaskedAny, castNAToMasked)
	r.registerCast(MaskedOf(StringView), MaskedOf(DynamicString), castMaskedViewToOwned)
	r.registerCast(MaskedOf(Text), MaskedOf(Text), castNop)
	r.registerCast(MaskedOf(Scalar), MaskedOf(Scalar), castMaskedToMasked)
	r.registerCast(Scalar, MaskedOf(Scalar), castScalarToMasked)
	r.registerCast(StringView, MaskedOf(DynamicString), castViewToMaskedOwned)
	r.registerCast(Text, MaskedOf(Text), castTextToMasked)
	r.registerCast(StringView, DynamicString, castViewToOwned)
	r.registerCast(Text, Text, castNop)
	r.registerCast(Scalar, Scalar, castScalar)
}

// Cast converts the value on top of the stack from one type to another
// through the cast table.
func (c *Context) Cast(from, to typesystem.Type) error {
	if typesystem.Equal(from, to) {
		return nil
	}
	for _, rule := range c.reg.casts {
		if rule.from.Match(from) && rule.to.Match(to) {
			return rule.impl(c, from, to)
		}
	}
	return typesystem.NewUnsupportedOperationError("cast", from, to)
}

// CanCast reports whether the cast table has a rule for the pair. It does not
// consult the primitive coercion table.
func (r *Registry) CanCast(from, to typesystem.Type) bool {
	if typesystem.Equal(from, to) {
		return true
	}
	for _, rule := range r.casts {
		if rule.from.Match(from) && rule.to.Match(to) {
			return true
		}
	}
	return false
}

func castNop(*Context, typesystem.Type, typesystem.Type) error { return nil }

// castNAToMasked drops the sentinel and produces an invalid value of any
// masked type.
func castNAToMasked(c *Context, _, _ typesystem.Type) error {
	c.b.Emit(vm.OP_POP)
	c.b.Emit(vm.OP_UNDEF)
	c.b.MakeMasked(false)
	return nil
}

func castScalar(c *Context, from, to typesystem.Type) error {
	if err := typesystem.CanCoerce(from, to); err != nil {
		return err
	}
	c.convert(from, to)
	return nil
}

func castScalarToMasked(c *Context, from, to typesystem.Type) error {
	if err := castScalar(c, from, valueType(to)); err != nil {
		return err
	}
	c.b.MakeMasked(true)
	return nil
}

// castMaskedToMasked converts the payload and passes validity through.
func castMaskedToMasked(c *Context, from, to typesystem.Type) error {
	a, b := valueType(from), valueType(to)
	if err := typesystem.CanCoerce(a, b); err != nil {
		return err
	}
	slot := c.b.Spill()
	c.b.Load(slot)
	c.b.Emit(vm.OP_MASKED_VALUE)
	c.convert(a, b)
	c.b.Load(slot)
	c.b.Emit(vm.OP_MASKED_VALID)
	c.b.Emit(vm.OP_MAKE_MASKED)
	return nil
}

// castTextToMasked wraps a string as a valid masked string. Literals are
// already views over the constant pool.
func castTextToMasked(c *Context, _, _ typesystem.Type) error {
	c.b.MakeMasked(true)
	return nil
}

func castViewToOwned(c *Context, _, _ typesystem.Type) error {
	c.fromView(c.b.Spill())
	return nil
}

func castViewToMaskedOwned(c *Context, _, _ typesystem.Type) error {
	c.fromView(c.b.Spill())
	c.b.MakeMasked(true)
	return nil
}

// castMaskedViewToOwned copies the payload into a dynamic string only when
// the value is valid.
func castMaskedViewToOwned(c *Context, from, _ typesystem.Type) error {
	m := Operand{Slot: c.b.Spill(), Type: from}
	return c.gated([]Operand{m}, func() error {
		c.fromView(c.spillValue(m))
		return nil
	})
}

// fromView pushes a dynamic string holding a copy of the view in slot.
func (c *Context) fromView(slot int) {
	out := c.b.Alloca()
	c.b.Ref(slot)
	c.b.Ref(out)
	c.b.CallExtern(textlib.RoutineFromView, 2)
	c.b.Emit(vm.OP_POP)
	c.b.Load(out)
}

// spillValue stores the payload of o in a fresh slot so it can be passed by
// reference. Raw operands are already addressable.
func (c *Context) spillValue(o Operand) int {
	if !isMasked(o.Type) {
		return o.Slot
	}
	c.loadValue(o)
	return c.b.Spill()
}
