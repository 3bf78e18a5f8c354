package lowering

import (
	"github.com/funvibe/coludf/internal/textlib"
	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/udf"
	"github.com/funvibe/coludf/internal/vm"
)

func registerPacking(r *Registry) {
	r.register(udf.OpPackReturn, packMaskedView, MaskedOf(StringView))
	r.register(udf.OpPackReturn, packIdentity, MaskedAny)
	r.register(udf.OpPackReturn, packNA, NA)
	r.register(udf.OpPackReturn, packRaw, Scalar)
	r.register(udf.OpPackReturn, packRaw, DynamicString)
	r.register(udf.OpPackReturn, packView, StringView)
	r.register(udf.OpPackReturn, packView, StringLiteral)

	r.register(udf.OpMasked, maskedConstructor, Scalar, Boolean)
	r.register(udf.OpMasked, maskedConstructor, DynamicString, Boolean)
	r.register(udf.OpMasked, maskedViewConstructor, StringView, Boolean)
	r.register(udf.OpMasked, maskedViewConstructor, StringLiteral, Boolean)
}

// PackedType is the uniform record type a function returning t is packed
// into. An NA return takes the masked form of fallback.
func PackedType(t, fallback typesystem.Type) typesystem.Type {
	switch t.Class() {
	case typesystem.ClassMasked:
		if valueType(t).Class() == typesystem.ClassStringView {
			return typesystem.Masked{Value: typesystem.DString}
		}
		return t
	case typesystem.ClassNA:
		if isMasked(fallback) {
			return fallback
		}
		return typesystem.Masked{Value: fallback}
	case typesystem.ClassStringView, typesystem.ClassStringLiteral:
		return typesystem.Masked{Value: typesystem.DString}
	}
	return typesystem.Masked{Value: t}
}

// Pack lowers pack_return for a value of type t on top of the stack and
// returns the packed type.
func (c *Context) Pack(t, fallback typesystem.Type) (typesystem.Type, error) {
	packed := PackedType(t, fallback)
	sig := Signature{Op: udf.OpPackReturn, Args: []typesystem.Type{t}, Result: packed}
	impl, err := c.reg.Lookup(sig.Op, sig.Args)
	if err != nil {
		return nil, err
	}
	arg := Operand{Slot: c.b.Spill(), Type: t}
	if err := impl(c, sig, []Operand{arg}); err != nil {
		return nil, err
	}
	return packed, nil
}

func packIdentity(c *Context, _ Signature, args []Operand) error {
	c.b.Load(args[0].Slot)
	return nil
}

func packMaskedView(c *Context, sig Signature, args []Operand) error {
	c.b.Load(args[0].Slot)
	return c.Cast(args[0].Type, sig.Result)
}

func packNA(c *Context, _ Signature, _ []Operand) error {
	c.b.Emit(vm.OP_UNDEF)
	c.b.MakeMasked(false)
	return nil
}

// packRaw wraps a plain value as always valid.
func packRaw(c *Context, _ Signature, args []Operand) error {
	c.b.Load(args[0].Slot)
	c.b.MakeMasked(true)
	return nil
}

// packView normalizes a returned view into an owned string so the record
// does not point into the input buffers.
func packView(c *Context, _ Signature, args []Operand) error {
	c.fromView(args[0].Slot)
	c.b.MakeMasked(true)
	return nil
}

// maskedConstructor lowers Masked(value, valid) for values that need no
// conversion.
func maskedConstructor(c *Context, _ Signature, args []Operand) error {
	c.b.Load(args[0].Slot)
	c.b.Load(args[1].Slot)
	c.b.Emit(vm.OP_MAKE_MASKED)
	return nil
}

// maskedViewConstructor lowers Masked(view, valid) to a masked dynamic
// string. The copy is made only when valid is true.
func maskedViewConstructor(c *Context, _ Signature, args []Operand) error {
	out := c.b.Alloca()
	c.b.Emit(vm.OP_UNDEF)
	c.b.Store(out)
	err := c.b.IfThen(args[1].Slot, func() error {
		c.b.Ref(args[0].Slot)
		c.b.Ref(out)
		c.b.CallExtern(textlib.RoutineFromView, 2)
		c.b.Emit(vm.OP_POP)
		return nil
	})
	if err != nil {
		return err
	}
	c.b.Load(out)
	c.b.Load(args[1].Slot)
	c.b.Emit(vm.OP_MAKE_MASKED)
	return nil
}
