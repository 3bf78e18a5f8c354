package pipeline

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunStopsAtFirstError(t *testing.T) {
	var ran []string
	stage := func(name string, err error) Processor {
		return ProcessorFunc(func(ctx *PipelineContext) *PipelineContext {
			ran = append(ran, name)
			ctx.AddError(err)
			return ctx
		})
	}

	boom := errors.New("boom")
	ctx := New(stage("a", nil), stage("b", boom), stage("c", nil)).Run(&PipelineContext{})

	if len(ran) != 2 || ran[1] != "b" {
		t.Errorf("stages run: %v, want [a b]", ran)
	}
	if !errors.Is(ctx.Err(), boom) {
		t.Errorf("Err() = %v, want %v", ctx.Err(), boom)
	}
}

func TestRunWithoutErrors(t *testing.T) {
	count := 0
	inc := ProcessorFunc(func(ctx *PipelineContext) *PipelineContext {
		count++
		return ctx
	})
	ctx := New(inc, inc, inc).Run(&PipelineContext{})
	if count != 3 || ctx.Err() != nil {
		t.Errorf("count=%d err=%v", count, ctx.Err())
	}
}

func TestRunLogsStages(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ok := ProcessorFunc(func(ctx *PipelineContext) *PipelineContext { return ctx })
	fail := ProcessorFunc(func(ctx *PipelineContext) *PipelineContext {
		ctx.AddError(errors.New("boom"))
		return ctx
	})

	New(ok, fail, ok).Run(&PipelineContext{Logger: zap.New(core)})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	if entries[0].Message != "pipeline stage done" {
		t.Errorf("first entry: %q", entries[0].Message)
	}
	failed := entries[1]
	if failed.Message != "pipeline stage failed" || failed.ContextMap()["stage"] != int64(1) {
		t.Errorf("second entry: %q %v", failed.Message, failed.ContextMap())
	}
	if failed.ContextMap()["error"] != "boom" {
		t.Errorf("error field: %v", failed.ContextMap()["error"])
	}
}
