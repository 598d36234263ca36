package rowmatrix

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/hupe1980/randls/blobstore"
	"github.com/hupe1980/randls/internal/compress"
	"github.com/hupe1980/randls/internal/resource"
	"github.com/hupe1980/randls/model"
)

// Source produces the rows of one source partition.
type Source interface {
	// NumPartitions returns the number of source partitions.
	NumPartitions() int
	// ReadPartition parses partition p. The returned rows are owned by the
	// caller.
	ReadPartition(ctx context.Context, rc *resource.Controller, p int) ([][]float64, error)
}

type rowsSource struct {
	rows  [][]float64
	parts int
}

// FromRows distributes a local array over numPartitions contiguous partitions.
func FromRows(rows [][]float64, numPartitions int) Source {
	if numPartitions <= 0 {
		numPartitions = 1
	}
	return &rowsSource{rows: rows, parts: numPartitions}
}

func (s *rowsSource) NumPartitions() int { return s.parts }

func (s *rowsSource) ReadPartition(_ context.Context, _ *resource.Controller, p int) ([][]float64, error) {
	lo, hi := split(len(s.rows), s.parts, p)
	out := make([][]float64, hi-lo)
	for i, row := range s.rows[lo:hi] {
		out[i] = append([]float64(nil), row...)
	}
	return out, nil
}

// split returns the half-open range of partition p when n items are divided
// into parts contiguous chunks.
func split(n, parts, p int) (int, int) {
	return p * n / parts, (p + 1) * n / parts
}

type blobSource struct {
	store blobstore.BlobStore
	name  string
	parts int
	codec compress.Type

	// decompressed holds the lines of a compressed source, which cannot be
	// split by byte range.
	mu    sync.Mutex
	lines [][]byte
}

// FromBlob reads whitespace separated rows, one per line, from a blob. The
// blob is split into numPartitions byte ranges aligned to line starts.
// Sources named *.zst or *.lz4 are decompressed first and split by line.
func FromBlob(store blobstore.BlobStore, name string, numPartitions int) Source {
	if numPartitions <= 0 {
		numPartitions = 1
	}
	return &blobSource{
		store: store,
		name:  name,
		parts: numPartitions,
		codec: compress.FromName(name),
	}
}

func (s *blobSource) NumPartitions() int { return s.parts }

func (s *blobSource) open(ctx context.Context) (blobstore.Blob, error) {
	b, err := s.store.Open(ctx, s.name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, model.NewNotFoundError(s.name, err)
		}
		return nil, model.NewStorageError(s.name, "open failed", err)
	}
	return b, nil
}

func (s *blobSource) ReadPartition(ctx context.Context, rc *resource.Controller, p int) ([][]float64, error) {
	if s.codec != compress.None {
		return s.readCompressed(ctx, rc, p)
	}

	b, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	size := b.Size()
	start := int64(p) * size / int64(s.parts)
	end := int64(p+1) * size / int64(s.parts)
	if start >= end {
		return nil, nil
	}

	// Start one byte early so a line beginning exactly at start is kept.
	begin := start
	if start > 0 {
		begin = start - 1
	}
	rr, err := b.ReadRange(ctx, begin, size-begin)
	if err != nil {
		return nil, model.NewStorageError(s.name, "read failed", err)
	}
	defer rr.Close()

	br := bufio.NewReaderSize(resource.NewRateLimitedReader(ctx, rr, rc), 64*1024)
	pos := begin
	if start > 0 {
		skipped, err := br.ReadBytes('\n')
		pos += int64(len(skipped))
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, model.NewStorageError(s.name, "read failed", err)
		}
	}

	var rows [][]float64
	for pos < end {
		line, err := br.ReadBytes('\n')
		pos += int64(len(line))
		if len(line) > 0 {
			row, perr := parseRow(line)
			if perr != nil {
				return nil, model.NewStorageError(s.name, fmt.Sprintf("partition %d", p), perr)
			}
			if row != nil {
				rows = append(rows, row)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, model.NewStorageError(s.name, "read failed", err)
		}
	}
	return rows, nil
}

func (s *blobSource) readCompressed(ctx context.Context, rc *resource.Controller, p int) ([][]float64, error) {
	lines, err := s.decompressedLines(ctx, rc)
	if err != nil {
		return nil, err
	}

	lo, hi := split(len(lines), s.parts, p)
	rows := make([][]float64, 0, hi-lo)
	for _, line := range lines[lo:hi] {
		row, err := parseRow(line)
		if err != nil {
			return nil, model.NewStorageError(s.name, fmt.Sprintf("partition %d", p), err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *blobSource) decompressedLines(ctx context.Context, rc *resource.Controller) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lines != nil {
		return s.lines, nil
	}

	b, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	zr, err := compress.NewReader(resource.NewRateLimitedReader(ctx, blobstore.NewReader(ctx, b), rc), s.codec)
	if err != nil {
		return nil, model.NewStorageError(s.name, "decompress failed", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, model.NewStorageError(s.name, "decompress failed", err)
	}

	lines := make([][]byte, 0, bytes.Count(data, []byte{'\n'})+1)
	for line := range bytes.Lines(data) {
		if len(bytes.TrimSpace(line)) > 0 {
			lines = append(lines, line)
		}
	}
	s.lines = lines
	return lines, nil
}

// parseRow parses whitespace separated floats. Blank lines yield nil.
func parseRow(line []byte) ([]float64, error) {
	fields := bytes.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	row := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(string(f), 64)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}
