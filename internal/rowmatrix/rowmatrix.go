package rowmatrix

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/randls/model"
)

// RowMatrix is the augmented matrix [A|b] with declared dimensions m×cols,
// optionally stacked vertically reps times.
//
// Partition p of the stacked matrix is copy p/P of source partition p%P,
// where P is the number of source partitions.
type RowMatrix struct {
	session *Session
	source  Source
	name    string
	m       int
	cols    int
	reps    int
	cache   bool

	slots []*partitionSlot

	countsMu sync.Mutex
	counts   []int
}

type partitionSlot struct {
	mu     sync.Mutex
	rows   [][]float64
	loaded bool
	bytes  int64
}

// Option configures a RowMatrix.
type Option func(*RowMatrix)

// WithRepetitions stacks c copies of the source rows.
func WithRepetitions(c int) Option {
	return func(rm *RowMatrix) {
		rm.reps = c
	}
}

// WithCache keeps parsed partitions resident so repeated passes do not
// re-read the source.
func WithCache(enabled bool) Option {
	return func(rm *RowMatrix) {
		rm.cache = enabled
	}
}

// New creates a RowMatrix over source. m is the number of source rows and
// cols the number of columns of [A|b] (n+1). No data is read.
func New(session *Session, source Source, name string, m, cols int, opts ...Option) (*RowMatrix, error) {
	if session == nil {
		session = NewSession()
	}
	rm := &RowMatrix{
		session: session,
		source:  source,
		name:    name,
		m:       m,
		cols:    cols,
		reps:    1,
	}
	for _, opt := range opts {
		opt(rm)
	}

	switch {
	case source == nil:
		return nil, model.NewConfigurationError("source", "must not be nil", nil)
	case cols < 2:
		return nil, model.NewConfigurationError("cols", fmt.Sprintf("need at least 2 columns, got %d", cols), nil)
	case m < cols-1:
		return nil, model.NewConfigurationError("m", fmt.Sprintf("number of rows (%d) should be at least the number of columns (%d)", m, cols-1), nil)
	case rm.reps < 1:
		return nil, model.NewConfigurationError("repetitions", fmt.Sprintf("must be >= 1, got %d", rm.reps), nil)
	}

	rm.slots = make([]*partitionSlot, source.NumPartitions())
	for i := range rm.slots {
		rm.slots[i] = &partitionSlot{}
	}
	return rm, nil
}

// Name returns the dataset name.
func (rm *RowMatrix) Name() string { return rm.name }

// Rows returns the number of rows of the stacked matrix.
func (rm *RowMatrix) Rows() int { return rm.m * rm.reps }

// Cols returns the number of columns of [A|b].
func (rm *RowMatrix) Cols() int { return rm.cols }

// Repetitions returns the stacking factor.
func (rm *RowMatrix) Repetitions() int { return rm.reps }

// NumPartitions returns the number of partitions of the stacked matrix.
func (rm *RowMatrix) NumPartitions() int { return len(rm.slots) * rm.reps }

// Session returns the execution context.
func (rm *RowMatrix) Session() *Session { return rm.session }

// partition returns the rows of partition p. The slice is shared and must
// not be modified.
func (rm *RowMatrix) partition(ctx context.Context, p int) ([][]float64, error) {
	src := p % len(rm.slots)
	if !rm.cache {
		return rm.load(ctx, src)
	}

	slot := rm.slots[src]
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.loaded {
		return slot.rows, nil
	}

	rows, err := rm.load(ctx, src)
	if err != nil {
		return nil, err
	}

	bytes := int64(len(rows)) * int64(rm.cols*8+24)
	if err := rm.session.rc.AcquireMemory(bytes); err != nil {
		rm.session.logger.Debug("partition not cached", "matrix", rm.name, "partition", src, "bytes", bytes, "error", err)
		return rows, nil
	}
	slot.rows, slot.loaded, slot.bytes = rows, true, bytes
	return rows, nil
}

func (rm *RowMatrix) load(ctx context.Context, src int) ([][]float64, error) {
	rows, err := rm.source.ReadPartition(ctx, rm.session.rc, src)
	if err != nil {
		return nil, fmt.Errorf("load partition %d of %s: %w", src, rm.name, err)
	}
	for i, row := range rows {
		if len(row) != rm.cols {
			return nil, model.NewConfigurationError("cols",
				fmt.Sprintf("partition %d row %d has %d columns, want %d", src, i, len(row), rm.cols), nil)
		}
	}
	return rows, nil
}

// ForEachPartition runs fn for every partition of the stacked matrix,
// data-parallel within the session limits. rows is read-only.
func (rm *RowMatrix) ForEachPartition(ctx context.Context, fn func(ctx context.Context, p int, rows [][]float64) error) error {
	return rm.session.run(ctx, rm.NumPartitions(), func(ctx context.Context, p int) error {
		rows, err := rm.partition(ctx, p)
		if err != nil {
			return err
		}
		return fn(ctx, p, rows)
	})
}

// RowCounts returns the number of rows in each partition.
func (rm *RowMatrix) RowCounts(ctx context.Context) ([]int, error) {
	rm.countsMu.Lock()
	defer rm.countsMu.Unlock()
	if rm.counts != nil {
		return rm.counts, nil
	}

	counts := make([]int, rm.NumPartitions())
	err := rm.ForEachPartition(ctx, func(_ context.Context, p int, rows [][]float64) error {
		counts[p] = len(rows)
		return nil
	})
	if err != nil {
		return nil, err
	}
	rm.counts = counts
	return counts, nil
}

// Verify checks that the source holds exactly the declared number of rows.
func (rm *RowMatrix) Verify(ctx context.Context) error {
	counts, err := rm.RowCounts(ctx)
	if err != nil {
		return err
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	if total != rm.Rows() {
		return model.NewConfigurationError("m",
			fmt.Sprintf("declared %d rows (%d x %d), source has %d", rm.Rows(), rm.m, rm.reps, total), nil)
	}
	return nil
}

// Collect materializes every row in partition order. It is expensive and
// meant for accuracy testing only.
func (rm *RowMatrix) Collect(ctx context.Context) ([][]float64, error) {
	parts := make([][][]float64, rm.NumPartitions())
	err := rm.ForEachPartition(ctx, func(_ context.Context, p int, rows [][]float64) error {
		cp := make([][]float64, len(rows))
		for i, row := range rows {
			cp[i] = append([]float64(nil), row...)
		}
		parts[p] = cp
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([][]float64, 0, rm.Rows())
	for _, rows := range parts {
		out = append(out, rows...)
	}
	return out, nil
}

// Close drops cached partitions and returns their memory to the controller.
func (rm *RowMatrix) Close() error {
	for _, slot := range rm.slots {
		slot.mu.Lock()
		if slot.loaded {
			rm.session.rc.ReleaseMemory(slot.bytes)
			slot.rows, slot.loaded, slot.bytes = nil, false, 0
		}
		slot.mu.Unlock()
	}
	return nil
}
