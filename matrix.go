package randls

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/randls/blobstore"
	"github.com/hupe1980/randls/internal/resource"
	"github.com/hupe1980/randls/internal/rowmatrix"
)

// Session is the execution context partition work runs on.
type Session = rowmatrix.Session

// Matrix is the row-partitioned augmented matrix [A|b].
type Matrix = rowmatrix.RowMatrix

// Source provides the partitions of a Matrix.
type Source = rowmatrix.Source

// MatrixOption configures NewMatrix.
type MatrixOption = rowmatrix.Option

// SessionConfig configures NewSession.
type SessionConfig struct {
	// Parallelism bounds partitions processed at once (default GOMAXPROCS).
	Parallelism int
	// CacheMemoryBytes limits memory used by cached partitions. Zero means
	// unlimited.
	CacheMemoryBytes int64
	// IOBytesPerSec throttles source reads. Zero means unlimited.
	IOBytesPerSec int64
	Logger        *slog.Logger
}

// NewSession creates an execution context.
func NewSession(cfg SessionConfig) *Session {
	opts := []rowmatrix.SessionOption{
		rowmatrix.WithParallelism(cfg.Parallelism),
		rowmatrix.WithLogger(cfg.Logger),
	}
	if cfg.CacheMemoryBytes > 0 || cfg.IOBytesPerSec > 0 {
		workers := int64(cfg.Parallelism)
		if workers <= 0 {
			workers = int64(runtime.GOMAXPROCS(0))
		}
		opts = append(opts, rowmatrix.WithResourceController(resource.NewController(resource.Config{
			MemoryLimitBytes:   cfg.CacheMemoryBytes,
			MaxWorkers:         workers,
			IOLimitBytesPerSec: cfg.IOBytesPerSec,
		})))
	}
	return rowmatrix.NewSession(opts...)
}

// FromRows splits local rows into numPartitions contiguous partitions.
func FromRows(rows [][]float64, numPartitions int) Source {
	return rowmatrix.FromRows(rows, numPartitions)
}

// FromBlob reads a whitespace separated text matrix from store, split into
// numPartitions line-aligned byte ranges.
func FromBlob(store blobstore.BlobStore, name string, numPartitions int) Source {
	return rowmatrix.FromBlob(store, name, numPartitions)
}

// WithRepetitions stacks c copies of the source vertically.
func WithRepetitions(c int) MatrixOption {
	return rowmatrix.WithRepetitions(c)
}

// WithCache keeps loaded partitions in memory.
func WithCache(enabled bool) MatrixOption {
	return rowmatrix.WithCache(enabled)
}

// NewMatrix creates the augmented matrix [A|b] with m rows per copy and
// cols = n+1 columns.
func NewMatrix(session *Session, source Source, name string, m, cols int, opts ...MatrixOption) (*Matrix, error) {
	return rowmatrix.New(session, source, name, m, cols, opts...)
}
