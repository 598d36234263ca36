package mmap

import (
	"errors"
	"io"
	"os"
	"sync"
)

var (
	// ErrInvalidSize is returned when the file reports a negative size.
	ErrInvalidSize = errors.New("mmap: invalid file size")
	// ErrClosed is returned by reads after Close.
	ErrClosed = errors.New("mmap: mapping closed")
)

// Mapping is a read-only view of a file.
type Mapping struct {
	mu    sync.RWMutex
	data  []byte
	unmap func([]byte) error
	done  bool
}

// Open maps the file at path read-only. Empty files yield an empty mapping.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	switch size := fi.Size(); {
	case size < 0:
		return nil, ErrInvalidSize
	case size == 0:
		return &Mapping{}, nil
	default:
		data, unmap, err := osMap(f, int(size))
		if err != nil {
			return nil, err
		}
		return &Mapping{data: data, unmap: unmap}, nil
	}
}

// ReadAt copies from the mapping at off. It follows io.ReaderAt: a short
// read returns io.EOF.
func (m *Mapping) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.done {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Slice returns up to length bytes at off without copying. The slice is
// valid until Close.
func (m *Mapping) Slice(off, length int64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.done {
		return nil, ErrClosed
	}
	if off < 0 || off >= int64(len(m.data)) {
		return nil, io.EOF
	}
	return m.data[off:min(off+length, int64(len(m.data)))], nil
}

// Bytes returns the whole mapping, or nil after Close.
func (m *Mapping) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.done {
		return nil
	}
	return m.data
}

// Size returns the mapped length in bytes.
func (m *Mapping) Size() int {
	return len(m.data)
}

// Close unmaps the file. Calling it again is a no-op.
func (m *Mapping) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done {
		return nil
	}
	m.done = true
	if m.unmap == nil || m.data == nil {
		return nil
	}
	return m.unmap(m.data)
}
