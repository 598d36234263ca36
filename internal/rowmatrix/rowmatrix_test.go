package rowmatrix

import (
	"bytes"
	"context"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/randls/blobstore"
	"github.com/hupe1980/randls/internal/compress"
	"github.com/hupe1980/randls/internal/resource"
	"github.com/hupe1980/randls/model"
	"github.com/hupe1980/randls/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource counts partition reads.
type countingSource struct {
	Source
	reads atomic.Int64
}

func (s *countingSource) ReadPartition(ctx context.Context, rc *resource.Controller, p int) ([][]float64, error) {
	s.reads.Add(1)
	return s.Source.ReadPartition(ctx, rc, p)
}

func rowKey(rows [][]float64) []string {
	keys := make([]string, len(rows))
	for i, row := range rows {
		keys[i] = string(testutil.FormatRows([][]float64{row}))
	}
	sort.Strings(keys)
	return keys
}

func TestNew_Validation(t *testing.T) {
	src := FromRows(nil, 1)

	tests := []struct {
		name    string
		m, cols int
		opts    []Option
	}{
		{name: "fewer rows than columns", m: 3, cols: 6},
		{name: "single column", m: 10, cols: 1},
		{name: "zero repetitions", m: 10, cols: 3, opts: []Option{WithRepetitions(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil, src, "x", tt.m, tt.cols, tt.opts...)
			assert.ErrorIs(t, err, model.ErrConfiguration)
		})
	}

	_, err := New(nil, src, "x", 5, 6)
	assert.NoError(t, err, "m == n is allowed")
}

func TestReplication(t *testing.T) {
	ctx := context.Background()
	prob := testutil.NewRNG(7).Problem(103, 4, 0.1)

	for _, c := range []int{1, 2, 5} {
		rm, err := New(NewSession(WithParallelism(3)), FromRows(prob.Rows, 7), "ls", 103, 5, WithRepetitions(c))
		require.NoError(t, err)

		assert.Equal(t, 103*c, rm.Rows())
		assert.Equal(t, 7*c, rm.NumPartitions())
		require.NoError(t, rm.Verify(ctx))

		rows, err := rm.Collect(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 103*c)
		for _, row := range rows {
			require.Len(t, row, 5)
		}

		var stacked [][]float64
		for i := 0; i < c; i++ {
			stacked = append(stacked, prob.Rows...)
		}
		assert.Equal(t, rowKey(stacked), rowKey(rows))

		// Each copy preserves the source row order.
		counts, err := rm.RowCounts(ctx)
		require.NoError(t, err)
		off := 0
		for i := 0; i < c; i++ {
			var copyRows [][]float64
			for p := i * 7; p < (i+1)*7; p++ {
				copyRows = append(copyRows, rows[off:off+counts[p]]...)
				off += counts[p]
			}
			assert.Equal(t, prob.Rows, copyRows)
		}
	}
}

func TestVerify_RowCountMismatch(t *testing.T) {
	prob := testutil.NewRNG(1).Problem(20, 3, 0)
	rm, err := New(nil, FromRows(prob.Rows, 2), "ls", 25, 4)
	require.NoError(t, err)

	assert.ErrorIs(t, rm.Verify(context.Background()), model.ErrConfiguration)
}

func TestColumnMismatch(t *testing.T) {
	rm, err := New(nil, FromRows([][]float64{{1, 2, 3}, {4, 5}}, 1), "ls", 2, 3)
	require.NoError(t, err)

	_, err = rm.Collect(context.Background())
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	prob := testutil.NewRNG(3).Problem(40, 3, 0.1)
	rc := resource.NewController(resource.Config{MaxWorkers: 4})

	t.Run("Enabled", func(t *testing.T) {
		src := &countingSource{Source: FromRows(prob.Rows, 4)}
		rm, err := New(NewSession(WithResourceController(rc)), src, "ls", 40, 4, WithCache(true), WithRepetitions(3))
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err := rm.Residual(ctx, prob.XTrue)
			require.NoError(t, err)
		}
		assert.Equal(t, int64(4), src.reads.Load(), "each source partition is parsed once")
		assert.Positive(t, rc.MemoryUsage())

		require.NoError(t, rm.Close())
		assert.Zero(t, rc.MemoryUsage())
	})

	t.Run("Disabled", func(t *testing.T) {
		src := &countingSource{Source: FromRows(prob.Rows, 4)}
		rm, err := New(nil, src, "ls", 40, 4)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err := rm.Residual(ctx, prob.XTrue)
			require.NoError(t, err)
		}
		assert.Equal(t, int64(12), src.reads.Load())
	})

	t.Run("OverMemoryLimit", func(t *testing.T) {
		tight := resource.NewController(resource.Config{MaxWorkers: 1, MemoryLimitBytes: 64})
		src := &countingSource{Source: FromRows(prob.Rows, 2)}
		rm, err := New(NewSession(WithResourceController(tight)), src, "ls", 40, 4, WithCache(true))
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			_, err := rm.Collect(ctx)
			require.NoError(t, err)
		}
		assert.Equal(t, int64(4), src.reads.Load(), "partitions over the limit are re-read")
	})
}

func TestFromBlob(t *testing.T) {
	ctx := context.Background()
	prob := testutil.NewRNG(11).Problem(57, 3, 0.5)
	text := testutil.FormatRows(prob.Rows)

	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "ls_Ab.txt", text))

	for _, parts := range []int{1, 2, 3, 8, 57, 100} {
		rm, err := New(nil, FromBlob(store, "ls_Ab.txt", parts), "ls", 57, 4)
		require.NoError(t, err)

		rows, err := rm.Collect(ctx)
		require.NoError(t, err, "partitions=%d", parts)
		assert.Equal(t, prob.Rows, rows, "partitions=%d", parts)
	}
}

func TestFromBlob_Compressed(t *testing.T) {
	ctx := context.Background()
	prob := testutil.NewRNG(12).Problem(64, 2, 0.5)
	store := blobstore.NewMemoryStore()

	for name, typ := range map[string]compress.Type{"ls_Ab.txt.zst": compress.ZSTD, "ls_Ab.txt.lz4": compress.LZ4} {
		var buf bytes.Buffer
		w, err := compress.NewWriter(&buf, typ)
		require.NoError(t, err)
		_, err = w.Write(testutil.FormatRows(prob.Rows))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		require.NoError(t, store.Put(ctx, name, buf.Bytes()))

		rm, err := New(nil, FromBlob(store, name, 5), "ls", 64, 3)
		require.NoError(t, err)

		rows, err := rm.Collect(ctx)
		require.NoError(t, err)
		assert.Equal(t, prob.Rows, rows, name)
	}
}

func TestFromBlob_NotFound(t *testing.T) {
	rm, err := New(nil, FromBlob(blobstore.NewMemoryStore(), "missing.txt", 2), "ls", 10, 3)
	require.NoError(t, err)

	_, err = rm.Collect(context.Background())
	assert.ErrorIs(t, err, model.ErrStorage)
	assert.True(t, model.IsNotFound(err))
}

func TestFromBlob_Malformed(t *testing.T) {
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "bad.txt", []byte("1 2 3\n4 x 6\n")))

	rm, err := New(nil, FromBlob(store, "bad.txt", 1), "ls", 2, 3)
	require.NoError(t, err)

	_, err = rm.Collect(context.Background())
	assert.ErrorIs(t, err, model.ErrStorage)
	assert.False(t, model.IsNotFound(err))
}
