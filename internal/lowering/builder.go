package lowering

import (
	"fmt"

	"github.com/funvibe/coludf/internal/textlib"
	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/vm"
)

// Builder appends instructions to a chunk and hands out local slots. Errors
// (too many locals, jump too far) are sticky and reported by Finish.
type Builder struct {
	chunk  *vm.Chunk
	locals int
	err    error
}

func NewBuilder(name string) *Builder {
	return &Builder{chunk: vm.NewChunk(name)}
}

// Finish returns the chunk with its local count filled in.
func (b *Builder) Finish() (*vm.Chunk, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.chunk.LocalCount = b.locals
	return b.chunk, nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) Emit(op vm.Opcode) {
	b.chunk.WriteOp(op)
}

func (b *Builder) EmitConstant(v vm.Value) {
	b.chunk.WriteConstant(v)
}

// Alloca reserves a fresh local slot.
func (b *Builder) Alloca() int {
	if b.locals >= vm.MaxLocals {
		b.fail(fmt.Errorf("%s: more than %d locals", b.chunk.Name, vm.MaxLocals))
		return 0
	}
	b.locals++
	return b.locals - 1
}

func (b *Builder) slotOp(op vm.Opcode, slot int) {
	b.chunk.WriteOp(op)
	b.chunk.WriteShort(slot)
}

func (b *Builder) Load(slot int)  { b.slotOp(vm.OP_GET_LOCAL, slot) }
func (b *Builder) Store(slot int) { b.slotOp(vm.OP_SET_LOCAL, slot) }
func (b *Builder) Ref(slot int)   { b.slotOp(vm.OP_REF_LOCAL, slot) }

// Spill pops the top of the stack into a fresh slot.
func (b *Builder) Spill() int {
	slot := b.Alloca()
	b.Store(slot)
	return slot
}

func (b *Builder) Cast(from, to typesystem.Type) {
	b.chunk.WriteOp(vm.OP_CAST)
	b.chunk.WriteShort(b.chunk.AddType(from))
	b.chunk.WriteShort(b.chunk.AddType(to))
}

func (b *Builder) Binary(op vm.PrimOp, t typesystem.Type) {
	b.chunk.WriteOp(vm.OP_BINARY)
	b.chunk.Write(byte(op))
	b.chunk.WriteShort(b.chunk.AddType(t))
}

func (b *Builder) Unary(op vm.PrimOp, t typesystem.Type) {
	b.chunk.WriteOp(vm.OP_UNARY)
	b.chunk.Write(byte(op))
	b.chunk.WriteShort(b.chunk.AddType(t))
}

func (b *Builder) CallExtern(r textlib.Routine, argc int) {
	b.chunk.WriteOp(vm.OP_CALL_EXTERN)
	b.chunk.Write(byte(r))
	b.chunk.Write(byte(argc))
}

// MakeMasked pairs the value below the top of the stack with a constant
// validity bit.
func (b *Builder) MakeMasked(valid bool) {
	b.EmitConstant(vm.BoolVal(valid))
	b.Emit(vm.OP_MAKE_MASKED)
}

func (b *Builder) emitJump(op vm.Opcode) int {
	b.Emit(op)
	b.chunk.Write(0xff)
	b.chunk.Write(0xff)
	return b.chunk.Len() - 2
}

func (b *Builder) patchJump(offset int) {
	jump := b.chunk.Len() - offset - 2

	if jump > 0xffff {
		b.fail(fmt.Errorf("%s: jump too far", b.chunk.Name))
		return
	}

	b.chunk.Code[offset] = byte(jump >> 8)
	b.chunk.Code[offset+1] = byte(jump)
}

// IfThen emits body so that it only runs when the boolean in cond is true.
func (b *Builder) IfThen(cond int, body func() error) error {
	b.Load(cond)
	skip := b.emitJump(vm.OP_JUMP_IF_FALSE)
	if err := body(); err != nil {
		return err
	}
	b.patchJump(skip)
	return nil
}

// IfElse emits a two-way branch on the boolean at the top of the stack.
// Each arm must leave the stack at the same depth.
func (b *Builder) IfElse(then, els func() error) error {
	elseJump := b.emitJump(vm.OP_JUMP_IF_FALSE)
	if err := then(); err != nil {
		return err
	}
	endJump := b.emitJump(vm.OP_JUMP)
	b.patchJump(elseJump)
	if err := els(); err != nil {
		return err
	}
	b.patchJump(endJump)
	return nil
}
