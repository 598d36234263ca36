package randls

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/randls/model"
	"gonum.org/v1/gonum/floats"
)

// Evaluation holds the median relative errors of a set of trials.
type Evaluation struct {
	// XError is the median of ‖x − x_opt‖ / ‖x_opt‖.
	XError float64
	// FError is the median of |‖Ax − b‖ − f_opt| / f_opt.
	FError float64
}

// Median returns the median of values. For an even count it is the mean of
// the two middle values.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmpty
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], nil
	}
	return (sorted[mid-1] + sorted[mid]) / 2, nil
}

// RelativeErrors returns, per trial, the relative error of the solution
// vector and of the objective value against ref.
//
// When f_opt is zero the objective error is the absolute residual.
func RelativeErrors(ctx context.Context, rm *Matrix, trials []TrialResult, ref *ReferenceSolution) ([]float64, []float64, error) {
	n := rm.Cols() - 1
	if len(ref.XOpt) != n {
		return nil, nil, model.NewConfigurationError("reference", fmt.Sprintf("x_opt has %d entries, matrix has n=%d", len(ref.XOpt), n), nil)
	}
	xNorm := floats.Norm(ref.XOpt, 2)
	if xNorm == 0 {
		return nil, nil, model.NewNumericalError("evaluate", "x_opt has zero norm", nil)
	}

	xErrs := make([]float64, len(trials))
	fErrs := make([]float64, len(trials))
	diff := make([]float64, n)
	for i, t := range trials {
		if len(t.X) != n {
			return nil, nil, model.NewConfigurationError("solution", fmt.Sprintf("trial %d has %d entries, want %d", t.Index, len(t.X), n), nil)
		}
		floats.SubTo(diff, t.X, ref.XOpt)
		xErrs[i] = floats.Norm(diff, 2) / xNorm

		f, err := rm.Residual(ctx, t.X)
		if err != nil {
			return nil, nil, err
		}
		fErrs[i] = math.Abs(f - ref.FOpt)
		if ref.FOpt != 0 {
			fErrs[i] /= ref.FOpt
		}
	}
	return xErrs, fErrs, nil
}

// Evaluate returns the median relative errors of trials against ref.
func Evaluate(ctx context.Context, rm *Matrix, trials []TrialResult, ref *ReferenceSolution) (*Evaluation, error) {
	xErrs, fErrs, err := RelativeErrors(ctx, rm, trials, ref)
	if err != nil {
		return nil, err
	}
	x, err := Median(xErrs)
	if err != nil {
		return nil, err
	}
	f, err := Median(fErrs)
	if err != nil {
		return nil, err
	}
	return &Evaluation{XError: x, FError: f}, nil
}
