package lowering

import (
	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/udf"
	"github.com/funvibe/coludf/internal/vm"
)

func registerMasked(r *Registry) {
	maskedScalar := MaskedOf(Scalar)
	rawKinds := []Pattern{Number, Boolean, Datetime, Timedelta}

	for _, op := range udf.Ops() {
		switch {
		case op.IsBinary():
			r.register(op, lowerBinary, maskedScalar, maskedScalar)
			for _, raw := range rawKinds {
				r.register(op, lowerBinary, maskedScalar, raw)
				r.register(op, lowerBinary, raw, maskedScalar)
			}
			r.register(op, lowerNA, MaskedAny, NA)
			r.register(op, lowerNA, NA, MaskedAny)
			r.register(op, lowerBinary, Scalar, Scalar)
		case op.IsUnary():
			r.register(op, lowerUnary, maskedScalar)
			r.register(op, lowerUnary, Scalar)
		}
	}

	for _, op := range []Op{udf.OpIs, udf.OpIsNot} {
		r.register(op, lowerIsNA, MaskedAny, NA)
		r.register(op, lowerIsNA, NA, MaskedAny)
		r.register(op, lowerIsStatic, Any, NA)
		r.register(op, lowerIsStatic, NA, Any)
	}

	for _, op := range []Op{udf.OpTruth, udf.OpBool} {
		r.register(op, lowerMaskedTruth, MaskedOf(Boolean))
		r.register(op, lowerTruth, Scalar)
	}
}

// lowerBinary handles (Masked, Masked), (Masked, raw), (raw, Masked) and
// (raw, raw). With any masked operand the result validity is the AND of the
// masked operands' validity and the primitive runs only when it is true.
func lowerBinary(c *Context, sig Signature, args []Operand) error {
	if !anyMasked(args) {
		return c.compileBinary(sig.Op, sig.Result, args[0], args[1])
	}
	res, err := maskedResult(sig)
	if err != nil {
		return err
	}
	return c.gated(args, func() error {
		return c.compileBinary(sig.Op, res, args[0], args[1])
	})
}

func lowerUnary(c *Context, sig Signature, args []Operand) error {
	if !anyMasked(args) {
		return c.compileUnary(sig.Op, sig.Result, args[0])
	}
	res, err := maskedResult(sig)
	if err != nil {
		return err
	}
	return c.gated(args, func() error {
		return c.compileUnary(sig.Op, res, args[0])
	})
}

// lowerNA lowers an operator with an NA operand. The result is statically
// invalid and the operator itself is never emitted.
func lowerNA(c *Context, sig Signature, args []Operand) error {
	if sig.Result.Class() == typesystem.ClassNA {
		c.b.EmitConstant(vm.UnitVal())
		return nil
	}
	if _, err := maskedResult(sig); err != nil {
		return err
	}
	c.b.Emit(vm.OP_UNDEF)
	c.b.MakeMasked(false)
	return nil
}

// lowerIsNA lowers "x is NA" to NOT x.valid and "x is not NA" to x.valid.
// The payload is never read.
func lowerIsNA(c *Context, sig Signature, args []Operand) error {
	m := args[0]
	if !isMasked(m.Type) {
		m = args[1]
	}
	c.b.Load(m.Slot)
	c.b.Emit(vm.OP_MASKED_VALID)
	if sig.Op == udf.OpIs {
		c.b.Emit(vm.OP_NOT)
	}
	return c.Cast(typesystem.Bool, sig.Result)
}

// lowerIsStatic folds identity tests whose answer is known from the types:
// NA is NA, and a raw value is never NA.
func lowerIsStatic(c *Context, sig Signature, args []Operand) error {
	same := args[0].Type.Class() == typesystem.ClassNA && args[1].Type.Class() == typesystem.ClassNA
	if sig.Op == udf.OpIsNot {
		same = !same
	}
	c.b.EmitConstant(vm.BoolVal(same))
	return c.Cast(typesystem.Bool, sig.Result)
}

// lowerMaskedTruth returns the payload of a Masked(bool) as is. Validity is
// not consulted, so an invalid operand yields an unspecified truth value.
func lowerMaskedTruth(c *Context, sig Signature, args []Operand) error {
	c.b.Load(args[0].Slot)
	c.b.Emit(vm.OP_MASKED_VALUE)
	return c.Cast(typesystem.Bool, sig.Result)
}

func lowerTruth(c *Context, sig Signature, args []Operand) error {
	c.b.Load(args[0].Slot)
	c.convert(args[0].Type, typesystem.Bool)
	return c.Cast(typesystem.Bool, sig.Result)
}
