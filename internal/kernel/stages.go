package kernel

import (
	"fmt"

	"github.com/funvibe/coludf/internal/pipeline"
	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/udf"
	"github.com/funvibe/coludf/internal/vm"
)

// Compile stages. Each records its failure in the context and leaves the
// rest to the pipeline.

var compileStages = []pipeline.Processor{
	pipeline.ProcessorFunc(validateStage),
	pipeline.ProcessorFunc(preambleStage),
	pipeline.ProcessorFunc(lowerStage),
	pipeline.ProcessorFunc(packStage),
	pipeline.ProcessorFunc(storeStage),
	pipeline.ProcessorFunc(verifyStage),
}

func checkElement(role string, t typesystem.Type) error {
	if t == nil {
		return fmt.Errorf("%s element type is missing", role)
	}
	if typesystem.IsScalar(t) {
		return nil
	}
	switch t.Class() {
	case typesystem.ClassStringView, typesystem.ClassDynamicString:
		return nil
	}
	return fmt.Errorf("%s element type %s is not a column type", role, t)
}

func validateStage(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	ctx.AddError(udf.Validate(ctx.Function))
	ctx.AddError(checkElement("input", ctx.Input))
	ctx.AddError(checkElement("output", ctx.Output))
	return ctx
}

// preambleStage loads the unit's input element as Masked(input) and
// converts it to the parameter type. String columns arrive as views and are
// copied into dynamic strings when the parameter asks for them.
func preambleStage(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	b := ctx.Builder
	b.Emit(vm.OP_LOAD_INPUT)
	in := typesystem.Masked{Value: ctx.Input}
	if err := ctx.Lowering.Cast(in, ctx.Function.Param); err != nil {
		ctx.AddError(fmt.Errorf("binding parameter: %w", err))
		return ctx
	}
	ctx.Lowering.BindParam(b.Spill())
	return ctx
}

func lowerStage(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if err := ctx.Lowering.Lower(ctx.Function.Body); err != nil {
		ctx.AddError(fmt.Errorf("lowering body: %w", err))
		return ctx
	}
	ctx.Result = ctx.Function.Body.Type()
	return ctx
}

// packStage packs the returned value into the record layout and converts it
// to the output element type.
func packStage(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	packed, err := ctx.Lowering.Pack(ctx.Result, ctx.Output)
	if err != nil {
		ctx.AddError(fmt.Errorf("packing return value: %w", err))
		return ctx
	}
	out := typesystem.Masked{Value: ctx.Output}
	if err := ctx.Lowering.Cast(packed, out); err != nil {
		ctx.AddError(fmt.Errorf("converting result to %s: %w", ctx.Output, err))
		return ctx
	}
	ctx.Result = out
	return ctx
}

func storeStage(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	ctx.Builder.Emit(vm.OP_STORE_OUTPUT)
	ctx.Builder.Emit(vm.OP_RETURN)
	chunk, err := ctx.Builder.Finish()
	if err != nil {
		ctx.AddError(err)
		return ctx
	}
	ctx.Chunk = chunk
	return ctx
}

func verifyStage(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	ctx.AddError(vm.Verify(ctx.Chunk))
	return ctx
}
