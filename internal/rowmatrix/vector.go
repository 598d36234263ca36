package rowmatrix

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// PartVector is an m-vector split along the partitions of a RowMatrix.
// Entry [p][i] belongs to row i of partition p.
type PartVector [][]float64

// Norm returns the Euclidean norm.
func (v PartVector) Norm() float64 {
	var ss float64
	for _, part := range v {
		ss += floats.Dot(part, part)
	}
	return math.Sqrt(ss)
}

// Scale multiplies v by alpha in place.
func (v PartVector) Scale(alpha float64) {
	for _, part := range v {
		floats.Scale(alpha, part)
	}
}

// AddScaled performs v += alpha*u in place.
func (v PartVector) AddScaled(alpha float64, u PartVector) {
	for p := range v {
		floats.AddScaled(v[p], alpha, u[p])
	}
}

func (rm *RowMatrix) checkLen(x []float64) error {
	if len(x) != rm.cols-1 {
		return fmt.Errorf("vector has length %d, want %d", len(x), rm.cols-1)
	}
	return nil
}

// MulVec returns A·x. x has length n = Cols()-1.
func (rm *RowMatrix) MulVec(ctx context.Context, x []float64) (PartVector, error) {
	if err := rm.checkLen(x); err != nil {
		return nil, err
	}
	n := rm.cols - 1
	out := make(PartVector, rm.NumPartitions())
	err := rm.ForEachPartition(ctx, func(_ context.Context, p int, rows [][]float64) error {
		part := make([]float64, len(rows))
		for i, row := range rows {
			part[i] = floats.Dot(row[:n], x)
		}
		out[p] = part
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TMulVec returns Aᵀ·u. Partials are summed in partition order.
func (rm *RowMatrix) TMulVec(ctx context.Context, u PartVector) ([]float64, error) {
	if len(u) != rm.NumPartitions() {
		return nil, fmt.Errorf("vector has %d partitions, want %d", len(u), rm.NumPartitions())
	}
	n := rm.cols - 1
	partials := make([][]float64, rm.NumPartitions())
	err := rm.ForEachPartition(ctx, func(_ context.Context, p int, rows [][]float64) error {
		if len(u[p]) != len(rows) {
			return fmt.Errorf("partition %d: vector has %d entries, want %d", p, len(u[p]), len(rows))
		}
		acc := make([]float64, n)
		for i, row := range rows {
			floats.AddScaled(acc, u[p][i], row[:n])
		}
		partials[p] = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]float64, n)
	for _, acc := range partials {
		floats.Add(out, acc)
	}
	return out, nil
}

// Residuals returns b − A·x.
func (rm *RowMatrix) Residuals(ctx context.Context, x []float64) (PartVector, error) {
	if err := rm.checkLen(x); err != nil {
		return nil, err
	}
	n := rm.cols - 1
	out := make(PartVector, rm.NumPartitions())
	err := rm.ForEachPartition(ctx, func(_ context.Context, p int, rows [][]float64) error {
		part := make([]float64, len(rows))
		for i, row := range rows {
			part[i] = row[n] - floats.Dot(row[:n], x)
		}
		out[p] = part
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Residual returns ‖A·x − b‖.
func (rm *RowMatrix) Residual(ctx context.Context, x []float64) (float64, error) {
	r, err := rm.Residuals(ctx, x)
	if err != nil {
		return 0, err
	}
	return r.Norm(), nil
}
