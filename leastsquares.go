package randls

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/randls/internal/factorstore"
	"github.com/hupe1980/randls/internal/linalg"
	"github.com/hupe1980/randls/internal/sketch"
	"github.com/hupe1980/randls/internal/trial"
	"github.com/hupe1980/randls/model"
)

// LeastSquares solves min ‖Ax − b‖ on a Matrix with randomized sketches.
type LeastSquares struct {
	rm      *Matrix
	cfg     Config
	logger  *Logger
	metrics MetricsCollector
	factors *factorstore.Store
	opts    options
}

// Result holds the outcome of Fit.
type Result struct {
	// Trials holds one entry per trial, ordered by index.
	Trials []TrialResult
	// X is the solution of the last trial.
	X []float64
	// Elapsed is the sum of the trial times.
	Elapsed time.Duration
	// Seed is the base seed the trial seeds were derived from.
	Seed uint64
}

// Solutions returns the solution vectors of all trials.
func (r *Result) Solutions() [][]float64 {
	xs := make([][]float64, len(r.Trials))
	for i, t := range r.Trials {
		xs[i] = t.X
	}
	return xs
}

// New validates cfg against rm and returns a solver. No partition work is
// done.
func New(rm *Matrix, cfg Config, optFns ...Option) (*LeastSquares, error) {
	if rm == nil {
		return nil, model.NewConfigurationError("matrix", "must not be nil", nil)
	}
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		compression:      CompressionZSTD,
	}
	for _, fn := range optFns {
		fn(&o)
	}

	n := rm.Cols() - 1
	if err := cfg.Validate(rm.Rows(), n); err != nil {
		return nil, err
	}
	if (cfg.LoadN || cfg.SaveN) && o.factorBlobs == nil {
		return nil, model.NewConfigurationError("load_n", "persisted factors require a factor store", nil)
	}

	ls := &LeastSquares{
		rm:      rm,
		cfg:     cfg,
		logger:  o.logger,
		metrics: o.metricsCollector,
		opts:    o,
	}
	if o.factorBlobs != nil {
		fsOpts := []factorstore.Option{
			factorstore.WithCompression(o.compression),
			factorstore.WithLogger(o.logger.Logger),
		}
		if o.factorPrefix != "" {
			fsOpts = append(fsOpts, factorstore.WithPrefix(o.factorPrefix))
		}
		ls.factors = factorstore.New(o.factorBlobs, fsOpts...)
	}
	return ls, nil
}

// Config returns the validated configuration.
func (ls *LeastSquares) Config() Config { return ls.cfg }

// Fit checks that the source holds the declared number of rows, then runs
// the trials and returns their solutions. The first failing trial aborts
// the run.
func (ls *LeastSquares) Fit(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ls.rm.Verify(ctx); err != nil {
		ls.logger.LogFit(ctx, 0, 0, err)
		return nil, err
	}

	runner := trial.Runner{
		Trials:      ls.cfg.trials(),
		Concurrency: ls.opts.concurrency,
		Seed:        ls.cfg.Seed,
		Logger:      ls.logger.Logger,
	}

	report, err := runner.Run(ctx, ls.runTrial)
	if err != nil {
		ls.logger.LogFit(ctx, runner.Trials, 0, err)
		return nil, err
	}
	ls.logger.LogFit(ctx, runner.Trials, report.Total, nil)

	return &Result{
		Trials:  report.Results,
		X:       report.Results[len(report.Results)-1].X,
		Elapsed: report.Total,
		Seed:    report.Seed,
	}, nil
}

func (ls *LeastSquares) runTrial(ctx context.Context, index int, seed uint64) ([]float64, error) {
	start := time.Now()
	x, err := ls.solve(ctx, index, seed)
	elapsed := time.Since(start)
	ls.metrics.RecordTrial(elapsed, err)
	ls.logger.LogTrial(ctx, index, elapsed, err)
	return x, err
}

func (ls *LeastSquares) solve(ctx context.Context, index int, seed uint64) ([]float64, error) {
	cfg := ls.cfg
	n := ls.rm.Cols() - 1

	if cfg.SolverType == LowPrecision {
		var (
			sk  *sketch.Sketch
			err error
		)
		if cfg.SketchType == Sampling {
			sk, _, err = ls.sample(ctx, index, seed)
		} else {
			sk, err = ls.project(ctx, seed)
		}
		if err != nil {
			return nil, err
		}
		start := time.Now()
		x, err := linalg.SolveSketch(sk.Data)
		ls.metrics.RecordSolve(cfg.SolverType.String(), 0, time.Since(start), err)
		return x, err
	}

	var f *linalg.Factor
	switch cfg.SketchType {
	case NoSketch:
		f = linalg.IdentityFactor(n)
	case Projection:
		var err error
		if f, err = ls.projectionFactor(ctx, index, seed); err != nil {
			return nil, err
		}
	case Sampling:
		sk, _, err := ls.sample(ctx, index, seed)
		if err != nil {
			return nil, err
		}
		if f, err = linalg.NewFactor(sk.Data); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	x, err := linalg.LSQR(ctx, ls.rm, f, *cfg.Iters)
	ls.metrics.RecordSolve(cfg.SolverType.String(), *cfg.Iters, time.Since(start), err)
	return x, err
}

func (ls *LeastSquares) project(ctx context.Context, seed uint64) (*sketch.Sketch, error) {
	start := time.Now()
	sk, err := sketch.Project(ctx, ls.rm, ls.cfg.ProjectionType, ls.cfg.R, seed)
	ls.metrics.RecordSketch(Projection.String(), ls.cfg.ProjectionType.String(), ls.cfg.R, time.Since(start), err)
	return sk, err
}

// sample draws a sampling sketch. The leverage factor is loaded when
// LoadN is set and saved when it was computed fresh and SaveN is set.
func (ls *LeastSquares) sample(ctx context.Context, index int, seed uint64) (*sketch.Sketch, *linalg.Factor, error) {
	key := ls.key(index)
	loaded, err := ls.loadFactor(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	sk, f, err := sketch.Sample(ctx, ls.rm, ls.cfg.ProjectionType, ls.cfg.R, ls.cfg.S, seed, loaded)
	ls.metrics.RecordSketch(Sampling.String(), ls.cfg.ProjectionType.String(), ls.cfg.S, time.Since(start), err)
	if err != nil {
		return nil, nil, err
	}

	if loaded == nil {
		if err := ls.saveFactor(ctx, key, f); err != nil {
			return nil, nil, err
		}
	}
	return sk, f, nil
}

// projectionFactor returns the preconditioner of a projection sketch,
// loading and saving it as configured.
func (ls *LeastSquares) projectionFactor(ctx context.Context, index int, seed uint64) (*linalg.Factor, error) {
	key := ls.key(index)
	f, err := ls.loadFactor(ctx, key)
	if err != nil || f != nil {
		return f, err
	}

	sk, err := ls.project(ctx, seed)
	if err != nil {
		return nil, err
	}
	if f, err = linalg.NewFactor(sk.Data); err != nil {
		return nil, err
	}
	if err := ls.saveFactor(ctx, key, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (ls *LeastSquares) key(index int) factorstore.Key {
	k := factorstore.Key{
		Dataset: ls.cfg.Dataset,
		M:       ls.rm.Rows(),
		N:       ls.rm.Cols() - 1,
		Mode:    ls.cfg.SketchType,
		Kind:    ls.cfg.ProjectionType,
		R:       ls.cfg.R,
		Trial:   index,
	}
	if ls.cfg.SketchType == Sampling {
		k.S = ls.cfg.S
	}
	return k
}

// loadFactor returns nil without error when LoadN is off or nothing is
// stored for key.
func (ls *LeastSquares) loadFactor(ctx context.Context, key factorstore.Key) (*linalg.Factor, error) {
	if !ls.cfg.LoadN {
		return nil, nil
	}
	name := ls.factors.Name(key)
	f, outcome, err := ls.factors.Load(ctx, key)
	ls.metrics.RecordFactor("load", outcome.String(), err)
	if err != nil {
		ls.logger.LogFactor(ctx, "load", name, outcome.String(), err)
		return nil, fmt.Errorf("load factor: %w", err)
	}
	if outcome == factorstore.Miss {
		ls.logger.WarnContext(ctx, "no stored factor, computing a fresh one", "name", name, "trial", key.Trial)
		return nil, nil
	}
	ls.logger.LogFactor(ctx, "load", name, outcome.String(), nil)
	return f, nil
}

func (ls *LeastSquares) saveFactor(ctx context.Context, key factorstore.Key, f *linalg.Factor) error {
	if !ls.cfg.SaveN {
		return nil
	}
	name := ls.factors.Name(key)
	err := ls.factors.Save(ctx, key, f)
	ls.metrics.RecordFactor("save", "saved", err)
	ls.logger.LogFactor(ctx, "save", name, "saved", err)
	if err != nil {
		return fmt.Errorf("save factor: %w", err)
	}
	return nil
}
