// Package coludf embeds kernel compilation and execution in Go programs.
//
//	eng := coludf.New()
//	k, err := eng.Load(kernelYAML)
//	out, err := k.Apply(ctx, []*int64{&a, nil, &b})
package coludf

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/funvibe/coludf/internal/column"
	"github.com/funvibe/coludf/internal/config"
	"github.com/funvibe/coludf/internal/kernel"
	"github.com/funvibe/coludf/internal/vm"
)

// Engine compiles kernel descriptions and runs them over Go slices.
// Compiled kernels are cached per engine.
type Engine struct {
	compiler   *kernel.Compiler
	marshaller *Marshaller
	launch     vm.LaunchConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for compiles and launches.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.launch.Logger = l }
}

// WithWorkers bounds the number of rows evaluated at once.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.launch.Workers = n }
}

// WithBlockSize sets how many rows a worker claims at a time.
func WithBlockSize(n int) Option {
	return func(e *Engine) { e.launch.BlockSize = n }
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{marshaller: NewMarshaller()}
	for _, opt := range opts {
		opt(e)
	}
	var copts []kernel.Option
	if e.launch.Logger != nil {
		copts = append(copts, kernel.WithLogger(e.launch.Logger))
	}
	e.compiler = kernel.NewCompiler(copts...)
	return e
}

// Load compiles a kernel from its YAML description.
func (e *Engine) Load(src []byte) (*Kernel, error) {
	kf, err := config.ParseKernel(src, "<embed>")
	if err != nil {
		return nil, err
	}
	return e.compile(kf)
}

// LoadFile compiles the kernel described in a YAML file.
func (e *Engine) LoadFile(path string) (*Kernel, error) {
	kf, err := config.LoadKernel(path)
	if err != nil {
		return nil, err
	}
	return e.compile(kf)
}

func (e *Engine) compile(kf *config.KernelFile) (*Kernel, error) {
	k, err := e.compiler.Compile(kf.Function, kf.Input, kf.Output)
	if err != nil {
		return nil, err
	}
	return &Kernel{kernel: k, engine: e}, nil
}

// Kernel is a compiled function bound to its engine.
type Kernel struct {
	kernel *kernel.Kernel
	engine *Engine
}

// Name returns the function name.
func (k *Kernel) Name() string { return k.kernel.Name }

// ID identifies the compiled kernel.
func (k *Kernel) ID() string { return k.kernel.ID.String() }

// Disassemble renders the kernel's bytecode.
func (k *Kernel) Disassemble() string { return k.kernel.Disassemble() }

// Apply runs the kernel over rows, which must be a slice. Elements may be
// values, pointers (nil is a missing row) or interfaces (nil is a missing
// row). The result has one entry per row, nil where the output is missing.
func (k *Kernel) Apply(ctx context.Context, rows any) ([]any, error) {
	in, err := k.engine.marshaller.ToColumn(k.kernel.Input, rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k.Name(), err)
	}

	buf := vm.NewOutputBuffer(in.Len())
	if err := k.kernel.Run(ctx, in, buf, k.engine.launch); err != nil {
		return nil, fmt.Errorf("%s: %w", k.Name(), err)
	}
	out, err := column.FromOutput(k.kernel.Output, buf)
	if err != nil {
		return nil, err
	}
	return k.engine.marshaller.FromColumn(out), nil
}
