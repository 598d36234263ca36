// Package trial repeats independent sketch+solve executions.
package trial

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/randls/model"
	"golang.org/x/sync/errgroup"
)

// Func runs trial index with its own seed and returns the solution.
type Func func(ctx context.Context, index int, seed uint64) ([]float64, error)

// Runner executes Trials independent trials.
type Runner struct {
	Trials int
	// Concurrency bounds trials running at once. Values <= 1 run sequentially.
	Concurrency int
	// Seed is the base seed. Zero draws one from the clock.
	Seed   uint64
	Logger *slog.Logger
}

// Report holds the ordered trial results.
type Report struct {
	Results []model.TrialResult
	// Total is the sum of the trial times.
	Total time.Duration
	// Seed is the base seed actually used.
	Seed uint64
}

// Run executes the trials. The first failing trial aborts the run.
func (r Runner) Run(ctx context.Context, fn Func) (*Report, error) {
	if r.Trials < 1 {
		return nil, model.NewConfigurationError("trials", fmt.Sprintf("must be >= 1, got %d", r.Trials), nil)
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	base := r.Seed
	if base == 0 {
		base = uint64(time.Now().UnixNano())
	}

	results := make([]model.TrialResult, r.Trials)
	runOne := func(ctx context.Context, i int) error {
		seed := DeriveSeed(base, i)
		start := time.Now()
		x, err := fn(ctx, i, seed)
		if err != nil {
			return fmt.Errorf("trial %d: %w", i, err)
		}
		results[i] = model.TrialResult{Index: i, X: x, Elapsed: time.Since(start)}
		logger.Debug("trial finished", "trial", i, "elapsed", results[i].Elapsed)
		return nil
	}

	if r.Concurrency <= 1 {
		for i := 0; i < r.Trials; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := runOne(ctx, i); err != nil {
				return nil, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.Concurrency)
		for i := 0; i < r.Trials; i++ {
			g.Go(func() error {
				return runOne(gctx, i)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	report := &Report{Results: results, Seed: base}
	for _, res := range results {
		report.Total += res.Elapsed
	}
	return report, nil
}

// DeriveSeed returns the seed of trial index for a base seed.
func DeriveSeed(base uint64, index int) uint64 {
	z := base + uint64(index+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
