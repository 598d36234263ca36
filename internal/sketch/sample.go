package sketch

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/hupe1980/randls/internal/linalg"
	"github.com/hupe1980/randls/internal/rowmatrix"
	"github.com/hupe1980/randls/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LeverageScores returns the approximate leverage ‖a_iᵀ·N‖² of every row.
func LeverageScores(ctx context.Context, rm *rowmatrix.RowMatrix, f *linalg.Factor) (rowmatrix.PartVector, error) {
	if f.Dim() != rm.Cols()-1 {
		return nil, model.NewConfigurationError("factor", fmt.Sprintf("factor is for n=%d, matrix has n=%d", f.Dim(), rm.Cols()-1), nil)
	}
	scores := make(rowmatrix.PartVector, rm.NumPartitions())
	err := rm.ForEachPartition(ctx, func(_ context.Context, p int, rows [][]float64) error {
		scores[p] = f.LeverageScores(rows)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// Sample draws s rows with replacement with probability p_i = ℓ_i/Σℓ and
// scales each by 1/√(s·p_i), so that E[SᵀS] = I.
//
// Leverage scores come from f. When f is nil a projection sketch of size r
// is computed first and the factor derived from it; the factor actually used
// is returned so callers can persist it.
func Sample(ctx context.Context, rm *rowmatrix.RowMatrix, kind Kind, r, s int, seed uint64, f *linalg.Factor) (*Sketch, *linalg.Factor, error) {
	cols := rm.Cols()
	if err := ValidateSampling(cols, s); err != nil {
		return nil, nil, err
	}
	if f == nil {
		if err := ValidateProjection(cols, kind, r); err != nil {
			return nil, nil, err
		}
		proj, err := Project(ctx, rm, kind, r, seed)
		if err != nil {
			return nil, nil, err
		}
		if f, err = linalg.NewFactor(proj.Data); err != nil {
			return nil, nil, err
		}
	}

	scores, err := LeverageScores(ctx, rm, f)
	if err != nil {
		return nil, nil, err
	}

	// Cumulative partition weights.
	cum := make([]float64, len(scores))
	var total float64
	for p, part := range scores {
		total += floats.Sum(part)
		cum[p] = total
	}
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, nil, model.NewNumericalError("leverage", fmt.Sprintf("invalid leverage total %g", total), nil)
	}

	// Multinomial partition counts, then rows inside each partition.
	counts := make([]int, len(scores))
	rng := newRNG(seed, streamSampling, -1)
	for i := 0; i < s; i++ {
		counts[pick(cum, rng.Float64()*total)]++
	}
	offsets := make([]int, len(counts)+1)
	for p, c := range counts {
		offsets[p+1] = offsets[p] + c
	}

	out := make([]float64, s*cols)
	err = rm.ForEachPartition(ctx, func(_ context.Context, p int, rows [][]float64) error {
		if counts[p] == 0 {
			return nil
		}
		local := make([]float64, len(scores[p]))
		floats.CumSum(local, scores[p])
		prng := newRNG(seed, streamSampling, p)

		for k := 0; k < counts[p]; k++ {
			i := pick(local, prng.Float64()*local[len(local)-1])
			prob := scores[p][i] / total
			pos := offsets[p] + k
			floats.ScaleTo(out[pos*cols:(pos+1)*cols], 1/math.Sqrt(float64(s)*prob), rows[i])
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return &Sketch{
		Mode: model.Sampling,
		Kind: kind,
		Size: s,
		Data: mat.NewDense(s, cols, out),
	}, f, nil
}

// pick returns the first index whose cumulative weight exceeds u, skipping
// zero-weight entries.
func pick(cum []float64, u float64) int {
	i := sort.Search(len(cum), func(i int) bool { return cum[i] > u })
	if i == len(cum) {
		// u rounded up to the total; take the last positive weight.
		i = len(cum) - 1
		for i > 0 && cum[i] == cum[i-1] {
			i--
		}
	}
	return i
}
