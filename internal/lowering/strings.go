package lowering

import (
	"github.com/funvibe/coludf/internal/textlib"
	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/udf"
	"github.com/funvibe/coludf/internal/vm"
)

var stringRoutines = map[Op]textlib.Routine{
	udf.OpLen:        textlib.RoutineLen,
	udf.OpContains:   textlib.RoutineContains,
	udf.OpEq:         textlib.RoutineEq,
	udf.OpNe:         textlib.RoutineNe,
	udf.OpLt:         textlib.RoutineLt,
	udf.OpLe:         textlib.RoutineLe,
	udf.OpGt:         textlib.RoutineGt,
	udf.OpGe:         textlib.RoutineGe,
	udf.OpStartsWith: textlib.RoutineStartsWith,
	udf.OpEndsWith:   textlib.RoutineEndsWith,
	udf.OpFind:       textlib.RoutineFind,
	udf.OpRFind:      textlib.RoutineRFind,
	udf.OpCount:      textlib.RoutineCount,
	udf.OpIsDigit:    textlib.RoutineIsDigit,
	udf.OpIsAlpha:    textlib.RoutineIsAlpha,
	udf.OpIsAlnum:    textlib.RoutineIsAlnum,
	udf.OpIsNumeric:  textlib.RoutineIsNumeric,
	udf.OpIsDecimal:  textlib.RoutineIsDecimal,
	udf.OpIsSpace:    textlib.RoutineIsSpace,
	udf.OpIsUpper:    textlib.RoutineIsUpper,
	udf.OpIsLower:    textlib.RoutineIsLower,
	udf.OpUpper:      textlib.RoutineUpper,
	udf.OpLower:      textlib.RoutineLower,
}

func registerStrings(r *Registry) {
	maskedText := MaskedOf(Text)
	for op, routine := range stringRoutines {
		switch routine.Shape() {
		case textlib.ShapeLength, textlib.ShapeClassify, textlib.ShapeTransform:
			r.register(op, lowerString, Text)
			r.register(op, lowerString, maskedText)
		default:
			r.register(op, lowerString, Text, Text)
			r.register(op, lowerString, maskedText, maskedText)
			r.register(op, lowerString, maskedText, Text)
			r.register(op, lowerString, Text, maskedText)
		}
	}
}

// lowerString calls the text routine for sig.Op. Raw operands are passed
// straight through; with masked operands the call is skipped unless every
// masked operand is valid, and the result carries their joint validity.
func lowerString(c *Context, sig Signature, args []Operand) error {
	routine := stringRoutines[sig.Op]
	if !anyMasked(args) {
		return c.callRoutine(routine, sig.Result, args)
	}
	res, err := maskedResult(sig)
	if err != nil {
		return err
	}
	return c.gated(args, func() error {
		return c.callRoutine(routine, res, args)
	})
}

// callRoutine marshals each operand into an addressable slot and emits the
// call. Per-character tests also receive the classification table; case
// conversions write into a fresh output slot which becomes the result.
func (c *Context) callRoutine(r textlib.Routine, res typesystem.Type, args []Operand) error {
	refs := make([]int, len(args))
	for i, a := range args {
		refs[i] = c.spillValue(a)
	}

	var got typesystem.Type
	switch r.Shape() {
	case textlib.ShapeLength:
		c.b.Ref(refs[0])
		c.b.CallExtern(r, 1)
		got = typesystem.Int32
	case textlib.ShapePredicate:
		c.b.Ref(refs[0])
		c.b.Ref(refs[1])
		c.b.CallExtern(r, 2)
		got = typesystem.Bool
	case textlib.ShapeIndex:
		c.b.Ref(refs[0])
		c.b.Ref(refs[1])
		c.b.CallExtern(r, 2)
		got = typesystem.Int32
	case textlib.ShapeClassify:
		c.b.Ref(refs[0])
		c.b.Emit(vm.OP_TABLE)
		c.b.CallExtern(r, 2)
		got = typesystem.Bool
	case textlib.ShapeTransform:
		out := c.b.Alloca()
		c.b.Ref(refs[0])
		c.b.Ref(out)
		c.b.CallExtern(r, 2)
		c.b.Emit(vm.OP_POP)
		c.b.Load(out)
		got = typesystem.DString
	}
	return c.Cast(got, res)
}
