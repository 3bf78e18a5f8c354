package vm

import (
	"fmt"
	"strings"

	"github.com/funvibe/coludf/internal/textlib"
)

// Disassemble returns a human-readable representation of the bytecode
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))
	if chunk.LocalCount > 0 {
		sb.WriteString(fmt.Sprintf("locals: %d\n", chunk.LocalCount))
	}

	offset := 0
	for offset < len(chunk.Code) {
		offset = disassembleInstruction(&sb, chunk, offset)
	}

	return sb.String()
}

// disassembleInstruction disassembles a single instruction
func disassembleInstruction(sb *strings.Builder, chunk *Chunk, offset int) int {
	sb.WriteString(fmt.Sprintf("%04d ", offset))

	op := Opcode(chunk.Code[offset])
	name, ok := OpcodeNames[op]
	if !ok {
		sb.WriteString(fmt.Sprintf("Unknown opcode %d\n", op))
		return offset + 1
	}

	switch op {
	case OP_CONST:
		return constantInstruction(sb, name, chunk, offset)

	case OP_GET_LOCAL, OP_SET_LOCAL, OP_REF_LOCAL:
		return slotInstruction(sb, name, chunk, offset)

	case OP_JUMP, OP_JUMP_IF_FALSE:
		return jumpInstruction(sb, name, chunk, offset)

	case OP_CAST:
		if offset+4 >= len(chunk.Code) {
			return truncated(sb, name, chunk)
		}
		from := chunk.ReadShort(offset + 1)
		to := chunk.ReadShort(offset + 3)
		sb.WriteString(fmt.Sprintf("%-16s %s -> %s\n", name, typeName(chunk, from), typeName(chunk, to)))
		return offset + 5

	case OP_BINARY, OP_UNARY:
		if offset+3 >= len(chunk.Code) {
			return truncated(sb, name, chunk)
		}
		prim := PrimOp(chunk.Code[offset+1])
		t := chunk.ReadShort(offset + 2)
		sb.WriteString(fmt.Sprintf("%-16s %s %s\n", name, prim, typeName(chunk, t)))
		return offset + 4

	case OP_CALL_EXTERN:
		if offset+2 >= len(chunk.Code) {
			return truncated(sb, name, chunk)
		}
		r := textlib.Routine(chunk.Code[offset+1])
		argc := chunk.Code[offset+2]
		sb.WriteString(fmt.Sprintf("%-16s %s/%d\n", name, r, argc))
		return offset + 3

	default:
		return simpleInstruction(sb, name, offset)
	}
}

func simpleInstruction(sb *strings.Builder, name string, offset int) int {
	sb.WriteString(name + "\n")
	return offset + 1
}

func constantInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	if offset+2 >= len(chunk.Code) {
		return truncated(sb, name, chunk)
	}
	idx := chunk.ReadShort(offset + 1)
	if idx < len(chunk.Constants) {
		sb.WriteString(fmt.Sprintf("%-16s %4d '%s'\n", name, idx, chunk.Constants[idx]))
	} else {
		sb.WriteString(fmt.Sprintf("%-16s %4d <invalid>\n", name, idx))
	}
	return offset + 3
}

func slotInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	if offset+2 >= len(chunk.Code) {
		return truncated(sb, name, chunk)
	}
	sb.WriteString(fmt.Sprintf("%-16s %4d\n", name, chunk.ReadShort(offset+1)))
	return offset + 3
}

func jumpInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	if offset+2 >= len(chunk.Code) {
		return truncated(sb, name, chunk)
	}
	jump := chunk.ReadShort(offset + 1)
	sb.WriteString(fmt.Sprintf("%-16s %4d -> %d\n", name, offset, offset+3+jump))
	return offset + 3
}

func truncated(sb *strings.Builder, name string, chunk *Chunk) int {
	sb.WriteString(name + " <truncated>\n")
	return len(chunk.Code)
}

func typeName(chunk *Chunk, idx int) string {
	if idx < len(chunk.Types) {
		return chunk.Types[idx].String()
	}
	return "<invalid>"
}
