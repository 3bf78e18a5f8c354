package kernel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/funvibe/coludf/internal/lowering"
	"github.com/funvibe/coludf/internal/pipeline"
	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/udf"
	"github.com/funvibe/coludf/internal/vm"
)

// Kernel is a compiled user function for one (function, input element,
// output element) triple.
type Kernel struct {
	ID     uuid.UUID
	Name   string
	Input  typesystem.Type
	Output typesystem.Type
	Chunk  *vm.Chunk
}

// Run launches the kernel over every row of in.
func (k *Kernel) Run(ctx context.Context, in vm.Input, out *vm.OutputBuffer, cfg vm.LaunchConfig) error {
	return vm.Launch(ctx, k.Chunk, in, out, cfg)
}

// Disassemble renders the kernel's bytecode.
func (k *Kernel) Disassemble() string {
	return vm.Disassemble(k.Chunk, fmt.Sprintf("%s (%s -> %s)", k.Name, k.Input, k.Output))
}

// Bundle packages the kernel for Serialize.
func (k *Kernel) Bundle() *vm.Bundle {
	return &vm.Bundle{ID: k.ID.String(), Input: k.Input, Output: k.Output, Chunk: k.Chunk}
}

// Load restores a kernel from a serialized bundle. The bytecode is verified
// before the kernel is returned.
func Load(data []byte) (*Kernel, error) {
	b, err := vm.Deserialize(data)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(b.ID)
	if err != nil {
		return nil, fmt.Errorf("bundle id: %w", err)
	}
	return &Kernel{
		ID:     id,
		Name:   b.Chunk.Name,
		Input:  b.Input,
		Output: b.Output,
		Chunk:  b.Chunk,
	}, nil
}

// Compiler lowers user functions into kernels and memoizes them.
type Compiler struct {
	reg    *lowering.Registry
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]*Kernel
}

// Option configures a Compiler.
type Option func(*Compiler)

func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

func WithRegistry(r *lowering.Registry) Option {
	return func(c *Compiler) { c.reg = r }
}

func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		reg:    lowering.DefaultRegistry(),
		logger: zap.NewNop(),
		cache:  make(map[string]*Kernel),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCompiler = NewCompiler()

// Compile compiles fn with the package's shared compiler.
func Compile(fn *udf.Function, input, output typesystem.Type) (*Kernel, error) {
	return defaultCompiler.Compile(fn, input, output)
}

// Compile returns the kernel for fn over the given element types, compiling
// it on first request.
func (c *Compiler) Compile(fn *udf.Function, input, output typesystem.Type) (*Kernel, error) {
	if fn == nil || fn.Body == nil || input == nil || output == nil {
		return nil, errors.New("compile: incomplete request")
	}
	key := cacheKey(fn, input, output)

	c.mu.Lock()
	if k, ok := c.cache[key]; ok {
		c.mu.Unlock()
		c.logger.Debug("kernel cache hit", zap.String("kernel", k.Name), zap.Stringer("id", k.ID))
		return k, nil
	}
	c.mu.Unlock()

	pctx := pipeline.NewPipelineContext(fn, input, output, c.reg, c.logger)
	pctx = pipeline.New(compileStages...).Run(pctx)
	if err := pctx.Err(); err != nil {
		return nil, fmt.Errorf("compile %s(%s) -> %s: %w", fn.Name, input, output, err)
	}

	k := &Kernel{
		ID:     uuid.New(),
		Name:   fn.Name,
		Input:  input,
		Output: output,
		Chunk:  pctx.Chunk,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.cache[key]; ok {
		return existing, nil
	}
	c.cache[key] = k
	c.logger.Debug("kernel compiled",
		zap.String("kernel", k.Name),
		zap.Stringer("id", k.ID),
		zap.Stringer("input", input),
		zap.Stringer("output", output),
		zap.Int("code_bytes", k.Chunk.Len()),
		zap.Int("locals", k.Chunk.LocalCount),
	)
	return k, nil
}

// Len returns the number of cached kernels.
func (c *Compiler) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Reset drops every cached kernel.
func (c *Compiler) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*Kernel)
}

// cacheKey identifies a compile request by the rendered function and the
// element types.
func cacheKey(fn *udf.Function, input, output typesystem.Type) string {
	h := sha256.New()
	h.Write([]byte(fn.String()))
	h.Write([]byte("\x00"))
	h.Write([]byte(input.String()))
	h.Write([]byte("\x00"))
	h.Write([]byte(output.String()))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
