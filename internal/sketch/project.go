package sketch

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"math/rand/v2"
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/randls/internal/rowmatrix"
	"github.com/hupe1980/randls/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Project applies a random r×m projection of the given kind to [A|b].
func Project(ctx context.Context, rm *rowmatrix.RowMatrix, kind Kind, r int, seed uint64) (*Sketch, error) {
	cols := rm.Cols()
	if err := ValidateProjection(cols, kind, r); err != nil {
		return nil, err
	}

	var (
		data []float64
		err  error
	)
	switch kind {
	case Gaussian, Rademacher, CW:
		data, err = projectDense(ctx, rm, kind, r, seed)
	case SRDHT:
		data, err = projectSRDHT(ctx, rm, r, seed)
	}
	if err != nil {
		return nil, err
	}

	return &Sketch{
		Mode: model.Projection,
		Kind: kind,
		Size: r,
		Data: mat.NewDense(r, cols, data),
	}, nil
}

// projectDense accumulates S·[A|b] one input row at a time. Each partition
// produces a partial r×cols matrix; partials are summed in partition order.
func projectDense(ctx context.Context, rm *rowmatrix.RowMatrix, kind Kind, r int, seed uint64) ([]float64, error) {
	cols := rm.Cols()
	partials := make([][]float64, rm.NumPartitions())
	scale := 1 / math.Sqrt(float64(r))

	err := rm.ForEachPartition(ctx, func(ctx context.Context, p int, rows [][]float64) error {
		rng := newRNG(seed, streamProjection, p)
		acc := make([]float64, r*cols)

		for i, row := range rows {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			switch kind {
			case Gaussian:
				for k := 0; k < r; k++ {
					floats.AddScaled(acc[k*cols:(k+1)*cols], rng.NormFloat64()*scale, row)
				}
			case Rademacher:
				for k := 0; k < r; k++ {
					s := scale
					if rng.Uint64()&1 == 0 {
						s = -s
					}
					floats.AddScaled(acc[k*cols:(k+1)*cols], s, row)
				}
			case CW:
				k := rng.IntN(r)
				s := 1.0
				if rng.Uint64()&1 == 0 {
					s = -1
				}
				floats.AddScaled(acc[k*cols:(k+1)*cols], s, row)
			}
		}
		partials[p] = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]float64, r*cols)
	for _, acc := range partials {
		floats.Add(out, acc)
	}
	return out, nil
}

// projectSRDHT applies a block-diagonal randomized Hadamard transform (one
// block per partition, zero padded to a power of two) and keeps r of the M'
// transformed rows chosen uniformly without replacement, scaled by √(M'/r).
func projectSRDHT(ctx context.Context, rm *rowmatrix.RowMatrix, r int, seed uint64) ([]float64, error) {
	counts, err := rm.RowCounts(ctx)
	if err != nil {
		return nil, err
	}

	offsets := make([]uint64, len(counts)+1)
	for p, c := range counts {
		offsets[p+1] = offsets[p] + paddedSize(c)
	}
	total := offsets[len(counts)]
	if uint64(r) > total {
		return nil, model.NewConfigurationError("r", fmt.Sprintf("sketch size %d exceeds %d transformed rows", r, total), nil)
	}

	selected := roaring64.New()
	rng := newRNG(seed, streamSelection, 0)
	for selected.GetCardinality() < uint64(r) {
		selected.Add(rng.Uint64N(total))
	}
	chosen := selected.ToArray()

	cols := rm.Cols()
	scale := math.Sqrt(float64(total) / float64(r))
	out := make([]float64, r*cols)

	err = rm.ForEachPartition(ctx, func(ctx context.Context, p int, rows [][]float64) error {
		lo := sort.Search(len(chosen), func(i int) bool { return chosen[i] >= offsets[p] })
		hi := sort.Search(len(chosen), func(i int) bool { return chosen[i] >= offsets[p+1] })
		if lo == hi {
			return nil
		}

		block := hadamardBlock(rows, cols, newRNG(seed, streamProjection, p))
		for pos := lo; pos < hi; pos++ {
			local := int(chosen[pos] - offsets[p])
			// Output rows are disjoint across partitions.
			dst := out[pos*cols : (pos+1)*cols]
			floats.ScaleTo(dst, scale, block[local*cols:(local+1)*cols])
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func paddedSize(rows int) uint64 {
	if rows <= 1 {
		return uint64(rows)
	}
	return 1 << bits.Len(uint(rows-1))
}

// hadamardBlock returns H·D·rows as a flat paddedSize(len(rows))×cols matrix,
// where D holds random signs and H is the orthonormal Walsh–Hadamard matrix.
func hadamardBlock(rows [][]float64, cols int, rng *rand.Rand) []float64 {
	size := int(paddedSize(len(rows)))
	block := make([]float64, size*cols)
	for i, row := range rows {
		dst := block[i*cols : (i+1)*cols]
		if rng.Uint64()&1 == 0 {
			floats.ScaleTo(dst, -1, row)
		} else {
			copy(dst, row)
		}
	}
	fwht(block, size, cols)
	if size > 1 {
		floats.Scale(1/math.Sqrt(float64(size)), block)
	}
	return block
}

// fwht applies the unnormalized fast Walsh–Hadamard transform along the row
// dimension of a size×cols row-major matrix. size must be a power of two.
func fwht(block []float64, size, cols int) {
	for h := 1; h < size; h <<= 1 {
		for i := 0; i < size; i += h << 1 {
			for j := i; j < i+h; j++ {
				a := block[j*cols : (j+1)*cols]
				b := block[(j+h)*cols : (j+h+1)*cols]
				for c := range a {
					a[c], b[c] = a[c]+b[c], a[c]-b[c]
				}
			}
		}
	}
}
