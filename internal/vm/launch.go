package vm

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/funvibe/coludf/internal/textlib"
)

// DefaultBlockSize is the number of rows one worker claims at a time.
const DefaultBlockSize = 1024

// Input is a column as seen by a launch: one element and its validity per row.
type Input interface {
	Len() int
	Row(i int) (Value, bool)
}

// OutputBuffer holds one record per row. It is sized by the caller and
// written by exactly one unit per slot.
type OutputBuffer struct {
	Records []Record
}

// NewOutputBuffer returns a buffer for n rows.
func NewOutputBuffer(n int) *OutputBuffer {
	return &OutputBuffer{Records: make([]Record, n)}
}

func (b *OutputBuffer) Len() int { return len(b.Records) }

// LaunchConfig controls how rows are spread over workers.
type LaunchConfig struct {
	Workers   int // defaults to GOMAXPROCS
	BlockSize int // defaults to DefaultBlockSize
	ArenaSize int // defaults to textlib.DefaultArenaBlock
	Logger    *zap.Logger

	// Tracer, when set, observes every instruction. Traced launches run on
	// one worker so rows are traced in order.
	Tracer Tracer
}

func (c LaunchConfig) withDefaults() LaunchConfig {
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.BlockSize <= 0 {
		c.BlockSize = DefaultBlockSize
	}
	if c.ArenaSize <= 0 {
		c.ArenaSize = textlib.DefaultArenaBlock
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Tracer != nil {
		c.Workers = 1
	}
	return c
}

// Launch runs chunk once per input row and stores each row's record in out.
// Rows are split into blocks; each worker owns one VM and one arena, so no
// mutable state is shared between units.
func Launch(ctx context.Context, chunk *Chunk, in Input, out *OutputBuffer, cfg LaunchConfig) error {
	cfg = cfg.withDefaults()
	n := in.Len()
	if out.Len() < n {
		return fmt.Errorf("output buffer holds %d records, input has %d rows", out.Len(), n)
	}

	blocks := make(chan [2]int)
	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()

	g.Go(func() error {
		defer close(blocks)
		for lo := 0; lo < n; lo += cfg.BlockSize {
			hi := min(lo+cfg.BlockSize, n)
			select {
			case blocks <- [2]int{lo, hi}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	workers := min(cfg.Workers, max(1, (n+cfg.BlockSize-1)/cfg.BlockSize))
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			arena := textlib.NewArena(cfg.ArenaSize)
			machine := New(WithAllocator(arena), WithTracer(cfg.Tracer))
			for block := range blocks {
				for i := block[0]; i < block[1]; i++ {
					if err := ctx.Err(); err != nil {
						return err
					}
					value, valid := in.Row(i)
					rec, err := machine.Run(chunk, MaskedVal(value, valid))
					if err != nil {
						return fmt.Errorf("row %d: %w", i, err)
					}
					out.Records[i] = rec
					arena.Reset()
				}
			}
			return nil
		})
	}

	err := g.Wait()
	cfg.Logger.Debug("launch finished",
		zap.String("kernel", chunk.Name),
		zap.Int("rows", n),
		zap.Int("workers", workers),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	return err
}
