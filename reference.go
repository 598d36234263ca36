package randls

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/hupe1980/randls/blobstore"
	"github.com/hupe1980/randls/internal/linalg"
	"github.com/hupe1980/randls/model"
)

// ReferenceSolution is the exact least-squares solution trials are
// compared against.
type ReferenceSolution struct {
	XOpt []float64
	// FOpt is ‖A·x_opt − b‖.
	FOpt float64
}

// ForRepetitions returns the reference for c stacked copies of the matrix it
// was computed on. x_opt is unchanged and the residual norm grows by √c.
func (r *ReferenceSolution) ForRepetitions(c int) *ReferenceSolution {
	if c <= 1 {
		return r
	}
	return &ReferenceSolution{XOpt: r.XOpt, FOpt: r.FOpt * math.Sqrt(float64(c))}
}

// ReferenceNames returns the blob names of the precomputed solution of
// dataset.
func ReferenceNames(dataset string) (xName, fName string) {
	return dataset + "_x_opt.txt", dataset + "_f_opt.txt"
}

// LoadReference reads a precomputed solution of dataset from store. A
// missing file yields a StorageError with NotFound() true; callers fall back
// to ComputeReference.
func LoadReference(ctx context.Context, store blobstore.BlobStore, dataset string) (*ReferenceSolution, error) {
	xName, fName := ReferenceNames(dataset)

	xs, err := readFloats(ctx, store, xName)
	if err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return nil, model.NewStorageError(xName, "empty solution vector", nil)
	}
	fs, err := readFloats(ctx, store, fName)
	if err != nil {
		return nil, err
	}
	if len(fs) != 1 {
		return nil, model.NewStorageError(fName, fmt.Sprintf("expected one value, got %d", len(fs)), nil)
	}
	return &ReferenceSolution{XOpt: xs, FOpt: fs[0]}, nil
}

func readFloats(ctx context.Context, store blobstore.BlobStore, name string) ([]float64, error) {
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, model.NewNotFoundError(name, err)
		}
		return nil, model.NewStorageError(name, "read failed", err)
	}

	fields := bytes.Fields(data)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(string(f), 64)
		if err != nil {
			return nil, model.NewStorageError(name, fmt.Sprintf("value %d: %v", i, err), err)
		}
		out[i] = v
	}
	return out, nil
}

// ComputeReference collects rm and solves it exactly. Intended for test
// sized matrices.
func ComputeReference(ctx context.Context, rm *Matrix) (*ReferenceSolution, error) {
	rows, err := rm.Collect(ctx)
	if err != nil {
		return nil, err
	}
	x, f, err := linalg.LstSq(rows)
	if err != nil {
		return nil, err
	}
	return &ReferenceSolution{XOpt: x, FOpt: f}, nil
}
