package vm

import (
	"fmt"

	"github.com/funvibe/coludf/internal/textlib"
	"github.com/funvibe/coludf/internal/typesystem"
)

func (vm *VM) readType() typesystem.Type {
	idx := vm.readShort()
	if idx >= len(vm.chunk.Types) {
		panic(errInvalidTypeIndex)
	}
	return vm.chunk.Types[idx]
}

// callExtern invokes a text routine. String operands arrive as references to
// local slots; the routine sees a pointer to the view stored there.
func (vm *VM) callExtern(r textlib.Routine, args []Value) (Value, error) {
	if !r.Valid() {
		return UndefVal(), fmt.Errorf("unknown routine %d", r)
	}
	want := 2
	if r.Shape() == textlib.ShapeLength {
		want = 1
	}
	if len(args) != want {
		return UndefVal(), fmt.Errorf("%s takes %d arguments, got %d", r, want, len(args))
	}

	src, err := vm.deref(args[0])
	if err != nil {
		return UndefVal(), fmt.Errorf("%s: %w", r, err)
	}

	switch r.Shape() {
	case textlib.ShapeLength:
		return IntVal(int64(textlib.Len(&src))), nil

	case textlib.ShapePredicate:
		other, err := vm.deref(args[1])
		if err != nil {
			return UndefVal(), fmt.Errorf("%s: %w", r, err)
		}
		ok, err := textlib.CallPredicate(r, &src, &other)
		return BoolVal(ok), err

	case textlib.ShapeIndex:
		other, err := vm.deref(args[1])
		if err != nil {
			return UndefVal(), fmt.Errorf("%s: %w", r, err)
		}
		n, err := textlib.CallIndex(r, &src, &other)
		return IntVal(int64(n)), err

	case textlib.ShapeClassify:
		if args[1].Type != ValTable {
			return UndefVal(), fmt.Errorf("%s: expected classification table, got %s", r, args[1].Type)
		}
		ok, err := textlib.CallClassify(r, &src, args[1].AsTable())
		return BoolVal(ok), err

	case textlib.ShapeTransform:
		if args[1].Type != ValRef {
			return UndefVal(), fmt.Errorf("%s: output is not addressable", r)
		}
		dst := &textlib.DynamicString{}
		n, err := textlib.CallTransform(r, &src, dst, vm.alloc)
		if err != nil {
			return UndefVal(), err
		}
		vm.locals[vm.slotOf(args[1])] = DStringVal(dst)
		return IntVal(int64(n)), nil
	}
	return UndefVal(), fmt.Errorf("%s: unknown calling convention", r)
}

func (vm *VM) slotOf(ref Value) int {
	slot := int(ref.Data)
	if slot >= len(vm.locals) {
		panic(errInvalidLocal)
	}
	return slot
}

func (vm *VM) deref(ref Value) (textlib.StringView, error) {
	if ref.Type != ValRef {
		return textlib.StringView{}, fmt.Errorf("argument is not addressable (%s)", ref.Type)
	}
	v := vm.locals[vm.slotOf(ref)]
	switch v.Type {
	case ValView, ValDString:
		return v.AsView(), nil
	}
	return textlib.StringView{}, fmt.Errorf("slot holds %s, not a string", v.Type)
}
