package rowmatrix

import (
	"context"
	"testing"

	"github.com/hupe1980/randls/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulVecTMulVec(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(5)
	prob := rng.Problem(30, 4, 0.2)

	rm, err := New(NewSession(WithParallelism(2)), FromRows(prob.Rows, 4), "ls", 30, 5, WithRepetitions(2))
	require.NoError(t, err)

	x := []float64{1, -2, 0.5, 3}
	ax, err := rm.MulVec(ctx, x)
	require.NoError(t, err)

	rows, err := rm.Collect(ctx)
	require.NoError(t, err)

	var flat []float64
	for _, part := range ax {
		flat = append(flat, part...)
	}
	require.Len(t, flat, 60)
	for i, row := range rows {
		want := row[0]*x[0] + row[1]*x[1] + row[2]*x[2] + row[3]*x[3]
		assert.InDelta(t, want, flat[i], 1e-12)
	}

	// Aᵀ·1 is the column sum.
	ones := make(PartVector, len(ax))
	for p := range ax {
		ones[p] = make([]float64, len(ax[p]))
		for i := range ones[p] {
			ones[p][i] = 1
		}
	}
	aty, err := rm.TMulVec(ctx, ones)
	require.NoError(t, err)
	for j := 0; j < 4; j++ {
		var want float64
		for _, row := range rows {
			want += row[j]
		}
		assert.InDelta(t, want, aty[j], 1e-9)
	}
}

func TestResidual(t *testing.T) {
	ctx := context.Background()
	prob := testutil.NewRNG(6).Problem(50, 3, 0.3)

	rm, err := New(nil, FromRows(prob.Rows, 3), "ls", 50, 4)
	require.NoError(t, err)

	got, err := rm.Residual(ctx, prob.XTrue)
	require.NoError(t, err)
	assert.InDelta(t, testutil.Residual(prob.Rows, prob.XTrue), got, 1e-12)

	_, err = rm.Residual(ctx, []float64{1})
	assert.Error(t, err)
}

func TestPartVector(t *testing.T) {
	v := PartVector{{3}, {}, {4}}
	assert.InDelta(t, 5, v.Norm(), 1e-12)

	v.Scale(2)
	assert.Equal(t, PartVector{{6}, {}, {8}}, v)

	v.AddScaled(-1, PartVector{{1}, {}, {2}})
	assert.Equal(t, PartVector{{5}, {}, {6}}, v)
}
