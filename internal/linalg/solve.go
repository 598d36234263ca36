package linalg

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/randls/model"
	"gonum.org/v1/gonum/mat"
)

// SolveSketch solves the sketched problem min ‖SA·x − Sb‖ with a QR
// factorization. sab is [SA|Sb]; it is not modified.
func SolveSketch(sab mat.Matrix) ([]float64, error) {
	sa, sb, err := splitAugmented(sab)
	if err != nil {
		return nil, err
	}
	return solveQR("sketch qr", sa, sb)
}

// LstSq solves the dense problem min ‖A·x − b‖ for rows holding [A|b] and
// returns x together with the optimal residual norm.
func LstSq(rows [][]float64) ([]float64, float64, error) {
	if len(rows) == 0 {
		return nil, 0, model.NewConfigurationError("rows", "empty matrix", nil)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, 0, model.NewConfigurationError("rows", fmt.Sprintf("row %d has %d columns, want %d", i, len(row), cols), nil)
		}
		data = append(data, row...)
	}

	ab := mat.NewDense(len(rows), cols, data)
	a, b, err := splitAugmented(ab)
	if err != nil {
		return nil, 0, err
	}

	x, err := solveQR("lstsq", a, b)
	if err != nil {
		return nil, 0, err
	}

	var r mat.VecDense
	r.MulVec(a, mat.NewVecDense(len(x), x))
	r.SubVec(&r, b)
	return x, mat.Norm(&r, 2), nil
}

func solveQR(op string, a *mat.Dense, b *mat.VecDense) ([]float64, error) {
	var qr mat.QR
	qr.Factorize(a)

	m, n := a.Dims()
	var r mat.Dense
	qr.RTo(&r)
	var maxDiag float64
	for j := 0; j < n; j++ {
		maxDiag = max(maxDiag, math.Abs(r.At(j, j)))
	}
	tol := maxDiag * float64(max(m, n)) * epsilon
	for j := 0; j < n; j++ {
		if d := math.Abs(r.At(j, j)); d <= tol {
			return nil, model.NewNumericalError(op, fmt.Sprintf("matrix is rank deficient: |R[%d,%d]| = %g", j, j, d), nil)
		}
	}

	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, b); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, model.NewNumericalError(op, fmt.Sprintf("matrix is rank deficient (condition number %g)", float64(cond)), err)
		}
		return nil, model.NewNumericalError(op, "solve failed", err)
	}

	out := append([]float64(nil), x.RawVector().Data...)
	if err := checkFinite(op, out); err != nil {
		return nil, err
	}
	return out, nil
}
