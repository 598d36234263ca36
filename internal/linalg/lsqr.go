package linalg

import (
	"context"
	"fmt"
	"math"

	"github.com/hupe1980/randls/internal/rowmatrix"
	"github.com/hupe1980/randls/model"
	"gonum.org/v1/gonum/floats"
)

// Operator is the distributed matrix LSQR iterates against.
// *rowmatrix.RowMatrix satisfies it.
type Operator interface {
	// Cols returns the number of columns of [A|b].
	Cols() int
	// MulVec returns A·x.
	MulVec(ctx context.Context, x []float64) (rowmatrix.PartVector, error)
	// TMulVec returns Aᵀ·u.
	TMulVec(ctx context.Context, u rowmatrix.PartVector) ([]float64, error)
	// Residuals returns b − A·x.
	Residuals(ctx context.Context, x []float64) (rowmatrix.PartVector, error)
}

// LSQR runs exactly iters steps of preconditioned LSQR (Paige and Saunders)
// on min ‖A·N·y − (b − A·X0)‖ and returns x = X0 + N·y. With iters == 0 it
// returns X0. The estimated residual norm is non-increasing in iters.
//
// The iteration stops early only when it has found the exact solution.
func LSQR(ctx context.Context, op Operator, f *Factor, iters int) ([]float64, error) {
	if iters < 0 {
		return nil, model.NewConfigurationError("iters", fmt.Sprintf("must be >= 0, got %d", iters), nil)
	}
	if err := f.Validate(); err != nil {
		return nil, model.NewConfigurationError("factor", err.Error(), err)
	}
	n := op.Cols() - 1
	if f.Dim() != n {
		return nil, model.NewConfigurationError("factor", fmt.Sprintf("factor is for n=%d, matrix has n=%d", f.Dim(), n), nil)
	}

	x0 := append([]float64(nil), f.X0...)
	if iters == 0 {
		return x0, nil
	}

	// β₁u₁ = b − A·X0
	u, err := op.Residuals(ctx, x0)
	if err != nil {
		return nil, err
	}
	beta := u.Norm()
	if beta > 0 {
		u.Scale(1 / beta)
	}

	// α₁v₁ = Nᵀ·Aᵀ·u₁
	v, err := adjoint(ctx, op, f, u)
	if err != nil {
		return nil, err
	}
	alpha := floats.Norm(v, 2)
	if alpha > 0 {
		floats.Scale(1/alpha, v)
	}

	w := append([]float64(nil), v...)
	y := make([]float64, n)
	phibar, rhobar := beta, alpha

	for it := 0; it < iters; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if alpha == 0 || beta == 0 {
			break
		}

		// βu = A·N·v − αu
		av, err := op.MulVec(ctx, f.Apply(v))
		if err != nil {
			return nil, err
		}
		av.AddScaled(-alpha, u)
		u = av
		beta = u.Norm()
		if beta > 0 {
			u.Scale(1 / beta)
		}

		// αv = Nᵀ·Aᵀ·u − βv
		atu, err := adjoint(ctx, op, f, u)
		if err != nil {
			return nil, err
		}
		floats.AddScaled(atu, -beta, v)
		v = atu
		alpha = floats.Norm(v, 2)
		if alpha > 0 {
			floats.Scale(1/alpha, v)
		}

		// Plane rotation eliminating the subdiagonal β.
		rho := math.Hypot(rhobar, beta)
		c := rhobar / rho
		s := beta / rho
		theta := s * alpha
		rhobar = -c * alpha
		phi := c * phibar
		phibar = s * phibar

		floats.AddScaled(y, phi/rho, w)
		// w = v − (θ/ρ)·w
		floats.Scale(-theta/rho, w)
		floats.Add(w, v)

		if err := checkFinite("lsqr", y); err != nil {
			return nil, model.NewNumericalError("lsqr", fmt.Sprintf("iteration %d diverged", it+1), err)
		}
	}

	x := f.Apply(y)
	floats.Add(x, x0)
	if err := checkFinite("lsqr", x); err != nil {
		return nil, err
	}
	return x, nil
}

func adjoint(ctx context.Context, op Operator, f *Factor, u rowmatrix.PartVector) ([]float64, error) {
	atu, err := op.TMulVec(ctx, u)
	if err != nil {
		return nil, err
	}
	return f.ApplyT(atu), nil
}
