package pipeline

import (
	"go.uber.org/zap"

	"github.com/funvibe/coludf/internal/lowering"
	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/udf"
	"github.com/funvibe/coludf/internal/vm"
)

// PipelineContext is the state threaded through the stages of a kernel
// compile.
type PipelineContext struct {
	Function *udf.Function
	Input    typesystem.Type // input column element type
	Output   typesystem.Type // output column element type

	Builder  *lowering.Builder
	Lowering *lowering.Context

	// Result is the type of the value on top of the stack after the last
	// lowering stage.
	Result typesystem.Type

	Chunk  *vm.Chunk
	Errors []error
	Logger *zap.Logger
}

// NewPipelineContext prepares a compile of fn for the given element types.
func NewPipelineContext(fn *udf.Function, input, output typesystem.Type, reg *lowering.Registry, logger *zap.Logger) *PipelineContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := "kernel"
	if fn != nil && fn.Name != "" {
		name = fn.Name
	}
	b := lowering.NewBuilder(name)
	return &PipelineContext{
		Function: fn,
		Input:    input,
		Output:   output,
		Builder:  b,
		Lowering: lowering.NewContext(b, reg),
		Logger:   logger,
	}
}
