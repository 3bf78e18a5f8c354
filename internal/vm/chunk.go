package vm

import "github.com/funvibe/coludf/internal/typesystem"

// MaxLocals is the number of addressable slots one chunk may use.
const MaxLocals = 1 << 16

// Chunk represents a sequence of bytecode instructions
type Chunk struct {
	// Name identifies the lowered function (for disassembly and logs)
	Name string

	// Code is the bytecode instructions
	Code []byte

	// Constants pool - primitive constants and string literal bytes.
	// Literal bytes live here for the lifetime of the chunk, which makes
	// the pool the constant address space of a kernel.
	Constants []Value

	// Types pool - operand types referenced by CAST, BINARY and UNARY
	Types []typesystem.Type

	// LocalCount is the number of local slots the chunk uses
	LocalCount int
}

// NewChunk creates a new empty chunk
func NewChunk(name string) *Chunk {
	return &Chunk{
		Name:      name,
		Code:      make([]byte, 0, 256),
		Constants: make([]Value, 0, 16),
		Types:     make([]typesystem.Type, 0, 8),
	}
}

// Write adds a byte to the chunk
func (c *Chunk) Write(b byte) {
	c.Code = append(c.Code, b)
}

// WriteOp writes an opcode to the chunk
func (c *Chunk) WriteOp(op Opcode) {
	c.Write(byte(op))
}

// WriteShort writes a 2-byte big-endian operand
func (c *Chunk) WriteShort(v int) {
	c.Write(byte(v >> 8))
	c.Write(byte(v))
}

// AddConstant adds a constant to the pool and returns its index
func (c *Chunk) AddConstant(value Value) int {
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1
}

// AddType interns t in the type pool and returns its index
func (c *Chunk) AddType(t typesystem.Type) int {
	for i, existing := range c.Types {
		if typesystem.Equal(existing, t) {
			return i
		}
	}
	c.Types = append(c.Types, t)
	return len(c.Types) - 1
}

// WriteConstant writes OP_CONST followed by the constant index
func (c *Chunk) WriteConstant(value Value) {
	idx := c.AddConstant(value)
	c.WriteOp(OP_CONST)
	// Write index as 2 bytes (allows up to 65535 constants)
	c.WriteShort(idx)
}

// ReadShort reads a 2-byte operand at offset
func (c *Chunk) ReadShort(offset int) int {
	return int(c.Code[offset])<<8 | int(c.Code[offset+1])
}

// Len returns the number of bytes in the chunk
func (c *Chunk) Len() int {
	return len(c.Code)
}
