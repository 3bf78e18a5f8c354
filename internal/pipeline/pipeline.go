package pipeline

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Processor is one stage of a pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// ProcessorFunc adapts a plain function to Processor.
type ProcessorFunc func(ctx *PipelineContext) *PipelineContext

func (f ProcessorFunc) Process(ctx *PipelineContext) *PipelineContext { return f(ctx) }

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline. Later stages depend on the output of earlier
// ones, so it stops at the first stage that records an error.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	logger := ctx.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	for i, processor := range p.processors {
		start := time.Now()
		ctx = processor.Process(ctx)
		fields := []zap.Field{
			zap.Int("stage", i),
			zap.String("processor", fmt.Sprintf("%T", processor)),
			zap.Duration("elapsed", time.Since(start)),
		}
		if len(ctx.Errors) > 0 {
			logger.Debug("pipeline stage failed", append(fields, zap.Error(ctx.Err()))...)
			break
		}
		logger.Debug("pipeline stage done", fields...)
	}
	return ctx
}

// Err joins the errors recorded by the stages.
func (ctx *PipelineContext) Err() error {
	return errors.Join(ctx.Errors...)
}

// AddError records a stage failure.
func (ctx *PipelineContext) AddError(err error) {
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
	}
}
