package compress

import (
	"io"
	"path"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// FromName infers the stream compression of a source from its file suffix.
func FromName(name string) Type {
	switch path.Ext(name) {
	case ".zst", ".zstd":
		return ZSTD
	case ".lz4":
		return LZ4
	default:
		return None
	}
}

// NewReader wraps r with a streaming decompressor for t (frame formats, not
// the block format of Encode).
func NewReader(r io.Reader, t Type) (io.ReadCloser, error) {
	switch t {
	case None:
		return io.NopCloser(r), nil
	case ZSTD:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, ErrUnknownType
	}
}

// NewWriter wraps w with a streaming compressor for t. Close flushes the
// frame but does not close w.
func NewWriter(w io.Writer, t Type) (io.WriteCloser, error) {
	switch t {
	case None:
		return nopWriteCloser{w}, nil
	case ZSTD:
		return zstd.NewWriter(w)
	case LZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, ErrUnknownType
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
