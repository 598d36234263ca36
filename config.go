package randls

import (
	"fmt"

	"github.com/hupe1980/randls/model"
)

// SolverType selects how a candidate solution is produced from a sketch.
type SolverType = model.SolverType

// Solver types.
const (
	LowPrecision  = model.LowPrecision
	HighPrecision = model.HighPrecision
)

// SketchType selects how the reduced matrix is built.
type SketchType = model.SketchType

// Sketch types.
const (
	NoSketch   = model.NoSketch
	Projection = model.Projection
	Sampling   = model.Sampling
)

// ProjectionType names a random projection family.
type ProjectionType = model.ProjectionType

// Projection types.
const (
	Gaussian   = model.Gaussian
	Rademacher = model.Rademacher
	CW         = model.CW
	SRDHT      = model.SRDHT
)

// TrialResult is the outcome of one trial.
type TrialResult = model.TrialResult

// Config describes one least-squares run.
type Config struct {
	SolverType     SolverType
	SketchType     SketchType
	ProjectionType ProjectionType

	// R is the projection size. Sampling uses it for the projection that
	// estimates leverage scores.
	R int
	// S is the sampling size. Required for sampling.
	S int
	// Iters is the number of LSQR steps. Required for the high precision
	// solver; nil means unset.
	Iters *int

	// Trials is the number of independent trials. Zero means one.
	Trials int

	// LoadN reuses a persisted preconditioning factor when one matches.
	LoadN bool
	// SaveN persists freshly computed factors.
	SaveN bool

	// Seed is the base seed. Zero draws one from the clock.
	Seed uint64

	// Dataset names the input; part of the factor key.
	Dataset string
}

// Iters returns a pointer to q, for Config.Iters.
func Iters(q int) *int {
	return &q
}

func (c Config) trials() int {
	if c.Trials == 0 {
		return 1
	}
	return c.Trials
}

// Validate checks cfg for a matrix A with m rows and n columns.
func (c Config) Validate(m, n int) error {
	if n < 1 {
		return model.NewConfigurationError("dims", fmt.Sprintf("n must be >= 1, got %d", n), nil)
	}
	if m < n {
		return model.NewConfigurationError("dims", fmt.Sprintf("number of rows (%d) should be greater than number of columns (%d)", m, n), nil)
	}
	if c.Trials < 0 {
		return model.NewConfigurationError("trials", fmt.Sprintf("must be >= 1, got %d", c.Trials), nil)
	}

	switch c.SolverType {
	case LowPrecision:
		if c.SketchType == NoSketch {
			return model.NewConfigurationError("sketch_type", "the low precision solver requires a sketch method", nil)
		}
	case HighPrecision:
		if c.Iters == nil {
			return model.NewConfigurationError("iters", "the high precision solver requires the number of iterations", nil)
		}
		if *c.Iters < 1 {
			return model.NewConfigurationError("iters", fmt.Sprintf("must be >= 1, got %d", *c.Iters), nil)
		}
	default:
		return model.NewConfigurationError("solver_type", fmt.Sprintf("unknown solver %v", c.SolverType), nil)
	}

	switch c.SketchType {
	case NoSketch:
		if c.LoadN || c.SaveN {
			return model.NewConfigurationError("load_n", "persisted factors require a sketch", nil)
		}
		return nil
	case Projection, Sampling:
	default:
		return model.NewConfigurationError("sketch_type", fmt.Sprintf("unknown sketch %v", c.SketchType), nil)
	}

	switch c.ProjectionType {
	case Gaussian, Rademacher, CW, SRDHT:
	default:
		return model.NewConfigurationError("projection_type", fmt.Sprintf("unknown projection %v", c.ProjectionType), nil)
	}
	if c.R < n+1 {
		return model.NewConfigurationError("r", fmt.Sprintf("sketch size %d is smaller than n+1=%d", c.R, n+1), nil)
	}
	if c.R > m {
		return model.NewConfigurationError("r", fmt.Sprintf("sketch size %d exceeds the number of rows %d", c.R, m), nil)
	}
	if c.SketchType == Sampling {
		if c.S == 0 {
			return model.NewConfigurationError("s", "sampling requires a sampling size", nil)
		}
		if c.S < n+1 {
			return model.NewConfigurationError("s", fmt.Sprintf("sampling size %d is smaller than n+1=%d", c.S, n+1), nil)
		}
	}
	return nil
}
