// Package trial drives batches of independent simulation trials.
//
// # Determinism
//
// Trials are split into fixed-size blocks and block i always draws from
// dice.NewSource(seed', i), where seed' mixes the runner seed with the batch
// name. Results are written by trial index into a preallocated slice, so a
// fixed seed yields identical samples whatever the worker count.
package trial

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/combatsim/internal/sim/dice"
	"github.com/louisbranch/combatsim/internal/sim/stats"
)

const tracerName = "github.com/louisbranch/combatsim/internal/sim/trial"

// DefaultBlockSize is the number of trials sharing one random stream.
const DefaultBlockSize = 1000

// ErrInvalidTrials indicates a runner was asked for a non-positive trial count.
var ErrInvalidTrials = errors.New("trial count must be positive")

// Runner configures how trial batches are executed.
type Runner struct {
	Trials    int
	Workers   int
	Seed      uint64
	BlockSize int
	Logger    *log.Logger
	Verbose   bool
}

// WithTrials returns a copy of r running n trials per batch.
func (r Runner) WithTrials(n int) Runner {
	r.Trials = n
	return r
}

func (r Runner) normalized() (Runner, error) {
	if r.Trials <= 0 {
		return Runner{}, ErrInvalidTrials
	}
	if r.Workers <= 0 {
		r.Workers = runtime.NumCPU()
	}
	if r.BlockSize <= 0 {
		r.BlockSize = DefaultBlockSize
	}
	if r.Logger == nil {
		r.Logger = log.New(io.Discard, "", 0)
	}
	return r, nil
}

// Collect runs fn once per trial and returns the outcomes in trial order.
//
// The first failing trial cancels the batch and its error is returned.
func Collect[T any](ctx context.Context, r Runner, name string, fn func(dice.Source) (T, error)) ([]T, error) {
	if fn == nil {
		return nil, errors.New("trial function is required")
	}
	r, err := r.normalized()
	if err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "trial.collect", trace.WithAttributes(
		attribute.String("trial.name", name),
		attribute.Int("trial.count", r.Trials),
		attribute.Int("trial.workers", r.Workers),
	))
	defer span.End()

	started := time.Now()
	seed := batchSeed(r.Seed, name)
	out := make([]T, r.Trials)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Workers)
	for block := 0; block*r.BlockSize < r.Trials; block++ {
		start := block * r.BlockSize
		end := min(start+r.BlockSize, r.Trials)
		g.Go(func() error {
			src := dice.NewSource(seed, uint64(block))
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				value, err := fn(src)
				if err != nil {
					return fmt.Errorf("%s: trial %d: %w", name, i, err)
				}
				out[i] = value
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if r.Verbose {
		r.Logger.Printf("  %s: %d trials in %s", name, r.Trials, time.Since(started).Round(time.Millisecond))
	}
	return out, nil
}

// Sample collects one float64 outcome per trial.
func Sample(ctx context.Context, r Runner, name string, fn func(dice.Source) (float64, error)) ([]float64, error) {
	return Collect(ctx, r, name, fn)
}

// Summarize samples a batch and aggregates it against r.Trials.
func Summarize(ctx context.Context, r Runner, name string, fn func(dice.Source) (float64, error)) (stats.Summary, error) {
	samples, err := Sample(ctx, r, name, fn)
	if err != nil {
		return stats.Summary{}, err
	}
	summary, err := stats.Aggregate(samples, r.Trials)
	if err != nil {
		return stats.Summary{}, fmt.Errorf("%s: aggregate: %w", name, err)
	}
	return summary, nil
}

// batchSeed mixes the batch name into seed so sibling batches do not replay
// the same dice.
func batchSeed(seed uint64, name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return seed ^ h.Sum64()
}
