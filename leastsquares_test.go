package randls

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/randls/blobstore"
	"github.com/hupe1980/randls/internal/resource"
	"github.com/hupe1980/randls/internal/rowmatrix"
	"github.com/hupe1980/randls/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

// countingSource records partition reads.
type countingSource struct {
	rowmatrix.Source
	reads atomic.Int64
}

func (s *countingSource) ReadPartition(ctx context.Context, rc *resource.Controller, p int) ([][]float64, error) {
	s.reads.Add(1)
	return s.Source.ReadPartition(ctx, rc, p)
}

func newProblem(t *testing.T, seed uint64, m, n int) (*Matrix, *countingSource, testutil.Problem) {
	t.Helper()
	prob := testutil.NewRNG(seed).Problem(m, n, 1.0)
	src := &countingSource{Source: FromRows(prob.Rows, 8)}
	rm, err := NewMatrix(NewSession(SessionConfig{Parallelism: 4}), src, "synthetic", m, n+1, WithCache(true))
	require.NoError(t, err)
	return rm, src, prob
}

func fit(t *testing.T, rm *Matrix, cfg Config, opts ...Option) *Result {
	t.Helper()
	ls, err := New(rm, cfg, opts...)
	require.NoError(t, err)
	res, err := ls.Fit(context.Background())
	require.NoError(t, err)
	return res
}

func TestFitLowPrecisionProjection(t *testing.T) {
	ctx := context.Background()
	rm, _, _ := newProblem(t, 1, 1000, 10)
	ref, err := ComputeReference(ctx, rm)
	require.NoError(t, err)

	for _, kind := range []ProjectionType{Gaussian, Rademacher, CW, SRDHT} {
		t.Run(kind.String(), func(t *testing.T) {
			res := fit(t, rm, Config{
				SolverType:     LowPrecision,
				SketchType:     Projection,
				ProjectionType: kind,
				R:              200,
				Trials:         5,
				Seed:           42,
			})
			require.Len(t, res.Trials, 5)
			for i, tr := range res.Trials {
				assert.Equal(t, i, tr.Index)
				assert.Len(t, tr.X, 10)
			}
			assert.Equal(t, res.Trials[4].X, res.X)

			eval, err := Evaluate(ctx, rm, res.Trials, ref)
			require.NoError(t, err)
			assert.Less(t, eval.FError, 0.05)
		})
	}
}

func TestFitLowPrecisionSampling(t *testing.T) {
	ctx := context.Background()
	rm, _, _ := newProblem(t, 2, 1000, 10)
	ref, err := ComputeReference(ctx, rm)
	require.NoError(t, err)

	metrics := &BasicMetricsCollector{}
	res := fit(t, rm, Config{
		SolverType:     LowPrecision,
		SketchType:     Sampling,
		ProjectionType: Gaussian,
		R:              200,
		S:              300,
		Trials:         5,
		Seed:           7,
	}, WithMetricsCollector(metrics))
	require.Len(t, res.Trials, 5)

	eval, err := Evaluate(ctx, rm, res.Trials, ref)
	require.NoError(t, err)
	assert.Less(t, eval.FError, 0.1)

	stats := metrics.GetStats()
	assert.Equal(t, int64(5), stats.TrialCount)
	assert.Equal(t, int64(5), stats.SketchCount)
	assert.Equal(t, int64(0), stats.FactorMisses)
}

func TestFitHighPrecision(t *testing.T) {
	ctx := context.Background()
	rm, _, _ := newProblem(t, 3, 1000, 10)
	ref, err := ComputeReference(ctx, rm)
	require.NoError(t, err)

	cases := []struct {
		name string
		cfg  Config
	}{
		{"Projection", Config{SketchType: Projection, ProjectionType: SRDHT, R: 200}},
		{"Sampling", Config{SketchType: Sampling, ProjectionType: Gaussian, R: 200, S: 300}},
		{"NoSketch", Config{SketchType: NoSketch}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			cfg.SolverType = HighPrecision
			cfg.Iters = Iters(30)
			cfg.Trials = 2
			cfg.Seed = 11

			res := fit(t, rm, cfg)
			eval, err := Evaluate(ctx, rm, res.Trials, ref)
			require.NoError(t, err)
			assert.Less(t, eval.XError, 1e-6)
			assert.Less(t, eval.FError, 1e-9)
		})
	}
}

func TestFitDeterministic(t *testing.T) {
	rm, _, _ := newProblem(t, 4, 600, 8)
	cfg := Config{
		SolverType:     LowPrecision,
		SketchType:     Projection,
		ProjectionType: Gaussian,
		R:              60,
		Trials:         4,
		Seed:           99,
	}

	seq := fit(t, rm, cfg)
	par := fit(t, rm, cfg, WithConcurrency(4))
	assert.Equal(t, seq.Solutions(), par.Solutions())
	assert.Equal(t, uint64(99), seq.Seed)

	// Trials use distinct seeds.
	assert.NotEqual(t, seq.Trials[0].X, seq.Trials[1].X)

	cfg.Seed = 100
	other := fit(t, rm, cfg)
	assert.NotEqual(t, seq.Solutions(), other.Solutions())
}

func TestNewConfigurationErrors(t *testing.T) {
	rm, src, _ := newProblem(t, 5, 1000, 10)

	cases := []struct {
		name string
		cfg  Config
	}{
		{"ProjectionTooSmall", Config{SketchType: Projection, R: 5}},
		{"SamplingTooSmall", Config{SketchType: Sampling, R: 200, S: 5}},
		{"SamplingWithoutSize", Config{SketchType: Sampling, R: 200}},
		{"HighPrecisionWithoutIters", Config{SolverType: HighPrecision, SketchType: Projection, R: 200}},
		{"HighPrecisionZeroIters", Config{SolverType: HighPrecision, SketchType: Projection, R: 200, Iters: Iters(0)}},
		{"LowPrecisionWithoutSketch", Config{SolverType: LowPrecision}},
		{"NegativeTrials", Config{SketchType: Projection, R: 200, Trials: -1}},
		{"LoadWithoutStore", Config{SketchType: Projection, R: 200, LoadN: true}},
		{"UnknownProjection", Config{SketchType: Projection, ProjectionType: ProjectionType(42), R: 200}},
		{"SketchLargerThanRows", Config{SketchType: Projection, ProjectionType: SRDHT, R: 1001}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(rm, tc.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			var ce *ConfigurationError
			assert.True(t, errors.As(err, &ce))
		})
	}
	assert.Zero(t, src.reads.Load())
}

func TestFitRowCountMismatch(t *testing.T) {
	prob := testutil.NewRNG(9).Problem(300, 10, 1.0)
	rm, err := NewMatrix(nil, FromRows(prob.Rows, 4), "short", 1000, 11, WithRepetitions(2))
	require.NoError(t, err)

	ls, err := New(rm, Config{SketchType: Projection, ProjectionType: Gaussian, R: 200, Seed: 1})
	require.NoError(t, err)

	_, err = ls.Fit(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "source has 600")
}

func TestFitSamplingSpread(t *testing.T) {
	ctx := context.Background()
	rm, _, _ := newProblem(t, 10, 1000, 10)
	ref, err := ComputeReference(ctx, rm)
	require.NoError(t, err)

	objectiveErrors := func(cfg Config) []float64 {
		res := fit(t, rm, cfg)
		_, fErrs, err := RelativeErrors(ctx, rm, res.Trials, ref)
		require.NoError(t, err)
		return fErrs
	}

	projected := objectiveErrors(Config{
		SketchType: Projection, ProjectionType: Gaussian, R: 200, Trials: 8, Seed: 42,
	})
	sampled := objectiveErrors(Config{
		SketchType: Sampling, ProjectionType: Gaussian, R: 200, S: 300, Trials: 8, Seed: 7,
	})

	for _, e := range sampled {
		assert.Less(t, e, 0.1)
	}
	assert.Positive(t, stat.StdDev(sampled, nil))
	assert.Less(t, stat.StdDev(sampled, nil), 5*stat.StdDev(projected, nil)+0.01)
}

func TestFitLoadFactorMiss(t *testing.T) {
	rm, _, _ := newProblem(t, 6, 1000, 10)
	store := blobstore.NewMemoryStore()
	metrics := &BasicMetricsCollector{}

	res := fit(t, rm, Config{
		SolverType:     HighPrecision,
		SketchType:     Projection,
		ProjectionType: Gaussian,
		R:              200,
		Iters:          Iters(5),
		Trials:         3,
		LoadN:          true,
		Seed:           1,
	}, WithFactorStore(store, ""), WithMetricsCollector(metrics))

	assert.Len(t, res.Trials, 3)
	stats := metrics.GetStats()
	assert.Equal(t, int64(3), stats.FactorMisses)
	assert.Zero(t, stats.FactorHits)
	assert.Zero(t, stats.FactorErrors)
}

func TestFitSaveThenLoadFactor(t *testing.T) {
	rm, _, _ := newProblem(t, 7, 1000, 10)
	store := blobstore.NewMemoryStore()

	for _, mode := range []SketchType{Projection, Sampling} {
		t.Run(mode.String(), func(t *testing.T) {
			cfg := Config{
				SolverType:     HighPrecision,
				SketchType:     mode,
				ProjectionType: Gaussian,
				R:              200,
				S:              300,
				Iters:          Iters(3),
				Trials:         2,
				Seed:           5,
				Dataset:        "synthetic",
			}
			if mode == Projection {
				cfg.S = 0
			}

			saveCfg := cfg
			saveCfg.SaveN = true
			saveMetrics := &BasicMetricsCollector{}
			saved := fit(t, rm, saveCfg, WithFactorStore(store, "n"), WithCompression(CompressionLZ4), WithMetricsCollector(saveMetrics))
			assert.Equal(t, int64(2), saveMetrics.GetStats().FactorSaves)

			names, err := store.List(context.Background(), "n/")
			require.NoError(t, err)
			assert.NotEmpty(t, names)

			loadCfg := cfg
			loadCfg.LoadN = true
			loadCfg.Seed = 6
			loadMetrics := &BasicMetricsCollector{}
			loaded := fit(t, rm, loadCfg, WithFactorStore(store, "n"), WithMetricsCollector(loadMetrics))
			assert.Equal(t, int64(2), loadMetrics.GetStats().FactorHits)

			if mode == Projection {
				// The preconditioner fully determines the LSQR iterates.
				for i := range saved.Trials {
					assert.InDeltaSlice(t, saved.Trials[i].X, loaded.Trials[i].X, 1e-12)
				}
			}
		})
	}
}

func TestFitCanceled(t *testing.T) {
	rm, _, _ := newProblem(t, 8, 500, 5)
	ls, err := New(rm, Config{SketchType: Projection, R: 50, Trials: 3})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ls.Fit(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
