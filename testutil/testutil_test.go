package testutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReset(t *testing.T) {
	rng := NewRNG(42)
	first := rng.GaussianMatrix(3, 4)

	rng.Reset()
	assert.Equal(t, first, rng.GaussianMatrix(3, 4))
	assert.Equal(t, uint64(42), rng.Seed())
}

func TestProblem(t *testing.T) {
	prob := NewRNG(1).Problem(50, 4, 0)

	require.Len(t, prob.Rows, 50)
	for _, row := range prob.Rows {
		assert.Len(t, row, 5)
	}
	assert.InDelta(t, 0, Residual(prob.Rows, prob.XTrue), 1e-9)
}

func TestFormatRows(t *testing.T) {
	out := FormatRows([][]float64{{1, 2.5}, {-3, 0.125}})
	assert.Equal(t, "1 2.5\n-3 0.125\n", string(out))
	assert.Equal(t, 2, bytes.Count(out, []byte{'\n'}))
}

func TestRelativeError(t *testing.T) {
	assert.InDelta(t, 0.5, RelativeError([]float64{1.5, 0}, []float64{1, 0}), 1e-12)
}
