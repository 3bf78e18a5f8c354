package vm

import (
	"fmt"
	"io"
	"strings"
)

// Step is the interpreter state just before an instruction executes.
type Step struct {
	Chunk  *Chunk
	Offset int
	Op     Opcode
	Stack  []Value // live operand stack, bottom first; valid only during the call
	Locals []Value
}

// Tracer observes every instruction a VM executes.
type Tracer func(Step)

// WithTracer installs a tracer. Tracing is meant for single rows; a traced VM
// is much slower than an untraced one.
func WithTracer(t Tracer) Option {
	return func(vm *VM) { vm.tracer = t }
}

func (vm *VM) trace(op Opcode) {
	vm.tracer(Step{
		Chunk:  vm.chunk,
		Offset: vm.ip - 1,
		Op:     op,
		Stack:  vm.stack[:vm.sp],
		Locals: vm.locals,
	})
}

// TraceWriter returns a tracer printing one line per instruction:
// offset, opcode and the operand stack.
func TraceWriter(w io.Writer) Tracer {
	return func(s Step) {
		name, ok := OpcodeNames[s.Op]
		if !ok {
			name = fmt.Sprintf("op(%d)", s.Op)
		}
		fmt.Fprintf(w, "%04d %-16s [%s]\n", s.Offset, name, formatValues(s.Stack))
	}
}

func formatValues(vals []Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, " ")
}
