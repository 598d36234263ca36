package model

import (
	"fmt"
	"strings"
	"time"
)

// SolverType selects how a candidate solution is produced from a sketch.
type SolverType uint8

const (
	// LowPrecision solves the sketched problem directly.
	LowPrecision SolverType = iota
	// HighPrecision runs LSQR on the full matrix, preconditioned by the sketch.
	HighPrecision
)

// String returns the canonical name ("low_precision" or "high_precision").
func (t SolverType) String() string {
	switch t {
	case LowPrecision:
		return "low_precision"
	case HighPrecision:
		return "high_precision"
	default:
		return fmt.Sprintf("SolverType(%d)", t)
	}
}

// ParseSolverType parses a canonical solver name.
func ParseSolverType(s string) (SolverType, error) {
	switch strings.ToLower(s) {
	case "low_precision", "low-precision", "low":
		return LowPrecision, nil
	case "high_precision", "high-precision", "high":
		return HighPrecision, nil
	default:
		return 0, &ConfigurationError{Field: "solver_type", Reason: fmt.Sprintf("unknown solver %q", s)}
	}
}

// SketchType selects how the reduced matrix is built.
type SketchType uint8

const (
	// NoSketch disables sketching. Only valid for the high precision solver,
	// which then runs plain LSQR.
	NoSketch SketchType = iota
	// Projection applies a random linear map from m rows to r rows.
	Projection
	// Sampling draws s rows with probabilities given by approximate leverage scores.
	Sampling
)

// String returns the canonical name ("none", "projection" or "sampling").
func (t SketchType) String() string {
	switch t {
	case NoSketch:
		return "none"
	case Projection:
		return "projection"
	case Sampling:
		return "sampling"
	default:
		return fmt.Sprintf("SketchType(%d)", t)
	}
}

// ParseSketchType parses a canonical sketch name. The empty string means NoSketch.
func ParseSketchType(s string) (SketchType, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return NoSketch, nil
	case "projection":
		return Projection, nil
	case "sampling":
		return Sampling, nil
	default:
		return 0, &ConfigurationError{Field: "sketch_type", Reason: fmt.Sprintf("unknown sketch %q", s)}
	}
}

// ProjectionType names a random projection family.
type ProjectionType uint8

const (
	// Gaussian uses dense i.i.d. normal entries.
	Gaussian ProjectionType = iota
	// Rademacher uses dense ±1 entries.
	Rademacher
	// CW is the Clarkson-Woodruff count sketch: one ±1 per input row.
	CW
	// SRDHT is a subsampled randomized Hadamard transform.
	SRDHT
)

// String returns the canonical name used on the command line and in factor keys.
func (t ProjectionType) String() string {
	switch t {
	case Gaussian:
		return "gaussian"
	case Rademacher:
		return "rademacher"
	case CW:
		return "cw"
	case SRDHT:
		return "srdht"
	default:
		return fmt.Sprintf("ProjectionType(%d)", t)
	}
}

// ParseProjectionType parses a canonical projection name.
func ParseProjectionType(s string) (ProjectionType, error) {
	switch strings.ToLower(s) {
	case "gaussian":
		return Gaussian, nil
	case "rademacher":
		return Rademacher, nil
	case "cw":
		return CW, nil
	case "srdht":
		return SRDHT, nil
	default:
		return 0, &ConfigurationError{Field: "projection_type", Reason: fmt.Sprintf("unknown projection %q", s)}
	}
}

// TrialResult is the outcome of one sketch+solve execution.
type TrialResult struct {
	Index   int
	X       []float64
	Elapsed time.Duration
}
