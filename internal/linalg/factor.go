package linalg

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/randls/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Factor is the preconditioning factor derived from a sketch.
type Factor struct {
	// N is the n×n preconditioner.
	N *mat.Dense
	// X0 is the least-squares solution of the sketched problem.
	X0 []float64
}

// NewFactor computes N = V·Σ⁻¹ and X0 = N·Uᵀ·Sb from the thin SVD of the
// sketched A block. sab is the sketched augmented matrix [SA|Sb].
func NewFactor(sab mat.Matrix) (*Factor, error) {
	sa, sb, err := splitAugmented(sab)
	if err != nil {
		return nil, err
	}
	_, n := sa.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(sa, mat.SVDThin); !ok {
		return nil, model.NewNumericalError("svd", "factorization did not converge", nil)
	}

	sigma := svd.Values(nil)
	if tol := sigma[0] * float64(n) * epsilon; sigma[n-1] <= tol {
		return nil, model.NewNumericalError("svd",
			fmt.Sprintf("sketch is rank deficient: smallest singular value %g <= %g", sigma[n-1], tol), nil)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// N = V·Σ⁻¹ scales column j of V by 1/σ_j.
	N := mat.NewDense(n, n, nil)
	N.Apply(func(i, j int, _ float64) float64 {
		return v.At(i, j) / sigma[j]
	}, N)

	var utb mat.VecDense
	utb.MulVec(u.T(), sb)
	var x0 mat.VecDense
	x0.MulVec(N, &utb)

	f := &Factor{N: N, X0: append([]float64(nil), x0.RawVector().Data...)}
	if err := checkFinite("svd", f.X0); err != nil {
		return nil, err
	}
	return f, nil
}

// IdentityFactor returns N = I and X0 = 0, which turns LSQR into the
// unpreconditioned iteration.
func IdentityFactor(n int) *Factor {
	N := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		N.Set(i, i, 1)
	}
	return &Factor{N: N, X0: make([]float64, n)}
}

// Dim returns n.
func (f *Factor) Dim() int {
	r, _ := f.N.Dims()
	return r
}

// Validate checks that N is square, matches X0 and is finite.
func (f *Factor) Validate() error {
	if f == nil || f.N == nil {
		return errors.New("factor is nil")
	}
	r, c := f.N.Dims()
	if r != c {
		return fmt.Errorf("factor is %d×%d, want square", r, c)
	}
	if len(f.X0) != r {
		return fmt.Errorf("X0 has length %d, want %d", len(f.X0), r)
	}
	if err := checkFinite("factor", f.N.RawMatrix().Data); err != nil {
		return err
	}
	return checkFinite("factor", f.X0)
}

// Apply returns N·y.
func (f *Factor) Apply(y []float64) []float64 {
	var out mat.VecDense
	out.MulVec(f.N, mat.NewVecDense(len(y), y))
	return out.RawVector().Data
}

// ApplyT returns Nᵀ·z.
func (f *Factor) ApplyT(z []float64) []float64 {
	var out mat.VecDense
	out.MulVec(f.N.T(), mat.NewVecDense(len(z), z))
	return out.RawVector().Data
}

// LeverageScores returns ‖rowᵀ·N‖² for every row of a partition of [A|b].
func (f *Factor) LeverageScores(rows [][]float64) []float64 {
	n := f.Dim()
	scores := make([]float64, len(rows))
	tmp := mat.NewVecDense(n, nil)
	for i, row := range rows {
		tmp.MulVec(f.N.T(), mat.NewVecDense(n, row[:n:n]))
		d := tmp.RawVector().Data
		scores[i] = floats.Dot(d, d)
	}
	return scores
}

const epsilon = 0x1p-52

func splitAugmented(sab mat.Matrix) (*mat.Dense, *mat.VecDense, error) {
	rows, cols := sab.Dims()
	n := cols - 1
	if n < 1 {
		return nil, nil, model.NewConfigurationError("sketch", fmt.Sprintf("need at least 2 columns, got %d", cols), nil)
	}
	if rows < n {
		return nil, nil, model.NewConfigurationError("sketch", fmt.Sprintf("sketch has %d rows, need at least %d", rows, n), nil)
	}

	sa := mat.DenseCopyOf(sab).Slice(0, rows, 0, n).(*mat.Dense)
	sb := mat.NewVecDense(rows, mat.Col(nil, n, sab))
	return sa, sb, nil
}

func checkFinite(op string, v []float64) error {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return model.NewNumericalError(op, "non-finite value", nil)
		}
	}
	return nil
}
