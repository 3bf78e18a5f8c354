package vm

import (
	"errors"
	"fmt"

	"github.com/funvibe/coludf/internal/textlib"
)

// The interpreter only fails on malformed chunks. Missing data is never an
// error: it travels as an invalid masked value.
var errTruncatedBytecode = errors.New("truncated bytecode")
var errStackUnderflow = errors.New("stack underflow")
var errStackOverflow = errors.New("stack overflow")
var errInvalidConstantIndex = errors.New("invalid constant index")
var errInvalidTypeIndex = errors.New("invalid type index")
var errInvalidLocal = errors.New("invalid local slot")
var errMissingOutput = errors.New("kernel returned without storing its output")

// StackSize bounds the operand stack of one execution unit. Lowered
// expressions are shallow, so a fixed stack is enough.
const StackSize = 256

// Record is one output slot: a value and its validity.
type Record struct {
	Value Value
	Valid bool
}

// VM executes a chunk for one row at a time. A VM is one execution unit: it
// is not safe for concurrent use, and Launch gives every worker its own.
type VM struct {
	stack []Value
	sp    int // Stack pointer (points to next free slot)

	locals []Value

	chunk *Chunk
	ip    int

	// Per-unit allocator for dynamic strings
	alloc textlib.Allocator

	// Character classification table handed to classification routines
	table *textlib.CharTable

	input  Value
	output Record
	stored bool

	tracer Tracer
}

// Option configures a VM.
type Option func(*VM)

// WithAllocator sets the allocator used for dynamic strings.
func WithAllocator(a textlib.Allocator) Option {
	return func(vm *VM) { vm.alloc = a }
}

// WithTable overrides the classification table.
func WithTable(t *textlib.CharTable) Option {
	return func(vm *VM) { vm.table = t }
}

// New creates a new VM instance
func New(opts ...Option) *VM {
	vm := &VM{
		stack: make([]Value, StackSize),
		alloc: textlib.HeapAllocator{},
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.table == nil {
		vm.table = textlib.CharacterFlagsTable()
	}
	return vm
}

// Run executes chunk once with input as the unit's input element and returns
// the record the chunk stored.
func (vm *VM) Run(chunk *Chunk, input Value) (rec Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok || !isFault(e) {
				panic(r)
			}
			err = fmt.Errorf("%s at offset %d: %w", chunk.Name, vm.ip, e)
		}
	}()

	vm.chunk = chunk
	vm.ip = 0
	vm.sp = 0
	vm.input = input
	vm.output = Record{}
	vm.stored = false
	if cap(vm.locals) < chunk.LocalCount {
		vm.locals = make([]Value, chunk.LocalCount)
	}
	vm.locals = vm.locals[:chunk.LocalCount]
	for i := range vm.locals {
		vm.locals[i] = UndefVal()
	}

	for {
		op := Opcode(vm.readByte())
		if vm.tracer != nil {
			vm.trace(op)
		}
		if op == OP_RETURN {
			if !vm.stored {
				return Record{}, fmt.Errorf("%s: %w", chunk.Name, errMissingOutput)
			}
			return vm.output, nil
		}
		if err := vm.executeOneOp(op); err != nil {
			return Record{}, fmt.Errorf("%s at offset %d: %w", chunk.Name, vm.ip, err)
		}
	}
}

func isFault(err error) bool {
	switch err {
	case errTruncatedBytecode, errStackUnderflow, errStackOverflow,
		errInvalidConstantIndex, errInvalidTypeIndex, errInvalidLocal:
		return true
	}
	return false
}

// executeOneOp executes a single opcode (except RETURN)
func (vm *VM) executeOneOp(op Opcode) error {
	switch op {
	case OP_CONST:
		vm.push(vm.readConstant())

	case OP_UNDEF:
		vm.push(UndefVal())

	case OP_POP:
		vm.pop()

	case OP_DUP:
		vm.push(vm.peek(0))

	case OP_GET_LOCAL:
		vm.push(vm.locals[vm.readLocal()])

	case OP_SET_LOCAL:
		slot := vm.readLocal()
		vm.locals[slot] = vm.pop()

	case OP_REF_LOCAL:
		vm.push(RefVal(vm.readLocal()))

	case OP_MAKE_MASKED:
		valid := vm.pop()
		value := vm.pop()
		vm.push(MaskedVal(value, valid.AsBool()))

	case OP_MASKED_VALUE, OP_MASKED_VALID:
		m := vm.pop()
		if !m.IsMasked() {
			return fmt.Errorf("%s on non-masked %s value", OpcodeNames[op], m.Type)
		}
		inner, valid := m.MaskedParts()
		if op == OP_MASKED_VALUE {
			vm.push(inner)
		} else {
			vm.push(BoolVal(valid))
		}

	case OP_AND:
		b := vm.pop()
		a := vm.pop()
		vm.push(BoolVal(a.AsBool() && b.AsBool()))

	case OP_OR:
		b := vm.pop()
		a := vm.pop()
		vm.push(BoolVal(a.AsBool() || b.AsBool()))

	case OP_NOT:
		vm.push(BoolVal(!vm.pop().AsBool()))

	case OP_JUMP:
		offset := vm.readShort()
		vm.ip += offset

	case OP_JUMP_IF_FALSE:
		offset := vm.readShort()
		if !vm.pop().AsBool() {
			vm.ip += offset
		}

	case OP_CAST:
		from := vm.readType()
		to := vm.readType()
		v, err := castValue(vm.pop(), from, to)
		if err != nil {
			return err
		}
		vm.push(v)

	case OP_BINARY:
		prim := PrimOp(vm.readByte())
		t := vm.readType()
		b := vm.pop()
		a := vm.pop()
		v, err := binaryOp(prim, t, a, b)
		if err != nil {
			return err
		}
		vm.push(v)

	case OP_UNARY:
		prim := PrimOp(vm.readByte())
		t := vm.readType()
		v, err := unaryOp(prim, t, vm.pop())
		if err != nil {
			return err
		}
		vm.push(v)

	case OP_CALL_EXTERN:
		routine := textlib.Routine(vm.readByte())
		argc := int(vm.readByte())
		if vm.sp < argc {
			panic(errStackUnderflow)
		}
		args := make([]Value, argc)
		copy(args, vm.stack[vm.sp-argc:vm.sp])
		vm.sp -= argc
		result, err := vm.callExtern(routine, args)
		if err != nil {
			return err
		}
		vm.push(result)

	case OP_TABLE:
		vm.push(TableVal(vm.table))

	case OP_LOAD_INPUT:
		vm.push(vm.input)

	case OP_STORE_OUTPUT:
		m := vm.pop()
		if !m.IsMasked() {
			return fmt.Errorf("output must be masked, got %s", m.Type)
		}
		inner, valid := m.MaskedParts()
		vm.output = Record{Valid: valid}
		if valid {
			vm.output.Value = detach(inner)
		}
		vm.stored = true

	default:
		return fmt.Errorf("unknown opcode %d", op)
	}
	return nil
}

// detach copies dynamic string contents out of the unit's allocator so the
// record survives the allocator being reset for the next row.
func detach(v Value) Value {
	d := v.AsDString()
	if v.Type != ValDString || d == nil {
		return v
	}
	data := make([]byte, len(d.Data))
	copy(data, d.Data)
	return DStringVal(&textlib.DynamicString{Data: data, Length: d.Length})
}

func (vm *VM) push(v Value) {
	if vm.sp >= len(vm.stack) {
		panic(errStackOverflow)
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	if vm.sp <= 0 {
		panic(errStackUnderflow)
	}
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	idx := vm.sp - 1 - distance
	if idx < 0 {
		panic(errStackUnderflow)
	}
	return vm.stack[idx]
}

func (vm *VM) readByte() byte {
	if vm.ip >= len(vm.chunk.Code) {
		panic(errTruncatedBytecode)
	}
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readShort() int {
	high := vm.readByte()
	low := vm.readByte()
	return int(high)<<8 | int(low)
}

func (vm *VM) readConstant() Value {
	idx := vm.readShort()
	if idx >= len(vm.chunk.Constants) {
		panic(errInvalidConstantIndex)
	}
	return vm.chunk.Constants[idx]
}

func (vm *VM) readLocal() int {
	slot := vm.readShort()
	if slot >= len(vm.locals) {
		panic(errInvalidLocal)
	}
	return slot
}
