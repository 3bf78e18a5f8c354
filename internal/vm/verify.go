package vm

import (
	"fmt"

	"github.com/funvibe/coludf/internal/textlib"
)

// operandWidth is the number of operand bytes following each opcode.
var operandWidth = map[Opcode]int{
	OP_CONST:         2,
	OP_GET_LOCAL:     2,
	OP_SET_LOCAL:     2,
	OP_REF_LOCAL:     2,
	OP_JUMP:          2,
	OP_JUMP_IF_FALSE: 2,
	OP_CAST:          4,
	OP_BINARY:        3,
	OP_UNARY:         3,
	OP_CALL_EXTERN:   2,
}

// Verify decodes every instruction of chunk and checks that operands refer
// to existing constants, types, locals and routines, that jumps land on
// instruction boundaries and that the chunk ends with RETURN.
func Verify(chunk *Chunk) error {
	starts := make(map[int]bool)
	var jumps [][2]int // (instruction offset, target)

	offset := 0
	last := Opcode(0xff)
	for offset < len(chunk.Code) {
		starts[offset] = true
		op := Opcode(chunk.Code[offset])
		if _, ok := OpcodeNames[op]; !ok {
			return fmt.Errorf("%s: unknown opcode %d at %d", chunk.Name, op, offset)
		}
		width := operandWidth[op]
		if offset+width >= len(chunk.Code) {
			return fmt.Errorf("%s: %s at %d: %w", chunk.Name, OpcodeNames[op], offset, errTruncatedBytecode)
		}

		if err := verifyOperands(chunk, op, offset); err != nil {
			return fmt.Errorf("%s: %s at %d: %w", chunk.Name, OpcodeNames[op], offset, err)
		}
		if op == OP_JUMP || op == OP_JUMP_IF_FALSE {
			jumps = append(jumps, [2]int{offset, offset + 3 + chunk.ReadShort(offset+1)})
		}

		last = op
		offset += 1 + width
	}

	if last != OP_RETURN {
		return fmt.Errorf("%s: chunk does not end with RETURN", chunk.Name)
	}
	for _, j := range jumps {
		if !starts[j[1]] {
			return fmt.Errorf("%s: jump at %d lands inside an instruction (%d)", chunk.Name, j[0], j[1])
		}
	}
	return nil
}

func verifyOperands(chunk *Chunk, op Opcode, offset int) error {
	switch op {
	case OP_CONST:
		if chunk.ReadShort(offset+1) >= len(chunk.Constants) {
			return errInvalidConstantIndex
		}
	case OP_GET_LOCAL, OP_SET_LOCAL, OP_REF_LOCAL:
		if chunk.ReadShort(offset+1) >= chunk.LocalCount {
			return errInvalidLocal
		}
	case OP_CAST:
		if chunk.ReadShort(offset+1) >= len(chunk.Types) || chunk.ReadShort(offset+3) >= len(chunk.Types) {
			return errInvalidTypeIndex
		}
	case OP_BINARY, OP_UNARY:
		if chunk.ReadShort(offset+2) >= len(chunk.Types) {
			return errInvalidTypeIndex
		}
	case OP_CALL_EXTERN:
		r := textlib.Routine(chunk.Code[offset+1])
		if !r.Valid() {
			return fmt.Errorf("unknown routine %d", r)
		}
		argc := int(chunk.Code[offset+2])
		want := 2
		if r.Shape() == textlib.ShapeLength {
			want = 1
		}
		if argc != want {
			return fmt.Errorf("%s takes %d arguments, got %d", r, want, argc)
		}
	}
	return nil
}
