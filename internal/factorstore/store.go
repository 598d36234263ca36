package factorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/hupe1980/randls/blobstore"
	"github.com/hupe1980/randls/internal/compress"
	"github.com/hupe1980/randls/internal/linalg"
	"github.com/hupe1980/randls/model"
)

// Outcome is the result of a Load.
type Outcome int

const (
	// Miss means no factor was stored for the key.
	Miss Outcome = iota
	// Hit means a matching factor was loaded.
	Hit
)

func (o Outcome) String() string {
	if o == Hit {
		return "hit"
	}
	return "miss"
}

// Store reads and writes factors in a BlobStore.
type Store struct {
	blobs  blobstore.BlobStore
	prefix string
	codec  compress.Type
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the directory factors are stored under (default "factors").
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithCompression sets the payload compression for saved factors.
// Loading detects the codec from the blob header.
func WithCompression(t compress.Type) Option {
	return func(s *Store) {
		s.codec = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Store on top of blobs.
func New(blobs blobstore.BlobStore, opts ...Option) *Store {
	s := &Store{
		blobs:  blobs,
		prefix: "factors",
		codec:  compress.ZSTD,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the blob name the factor for key is stored under.
func (s *Store) Name(key Key) string {
	return path.Join(s.prefix, key.Name())
}

// Load returns the factor stored for key.
func (s *Store) Load(ctx context.Context, key Key) (*linalg.Factor, Outcome, error) {
	name := s.Name(key)
	data, err := blobstore.ReadAll(ctx, s.blobs, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Debug("factor miss", "name", name, "key", key.String())
			return nil, Miss, nil
		}
		return nil, Miss, model.NewStorageError(name, "read failed", err)
	}

	recorded, f, err := decode(data)
	if err != nil {
		return nil, Miss, model.NewStorageError(name, err.Error(), err)
	}
	if want := key.String(); recorded != want {
		return nil, Miss, model.NewConfigurationError("load_n",
			fmt.Sprintf("factor %s was derived from %q, requested %q", name, recorded, want), nil)
	}
	if f.Dim() != key.N {
		return nil, Miss, model.NewConfigurationError("load_n",
			fmt.Sprintf("factor %s has dimension %d, requested %d", name, f.Dim(), key.N), nil)
	}

	s.logger.Debug("factor hit", "name", name, "key", recorded)
	return f, Hit, nil
}

// Save stores f for key, replacing any previous factor.
func (s *Store) Save(ctx context.Context, key Key, f *linalg.Factor) error {
	if err := f.Validate(); err != nil {
		return model.NewConfigurationError("save_n", err.Error(), err)
	}
	if f.Dim() != key.N {
		return model.NewConfigurationError("save_n", fmt.Sprintf("factor has dimension %d, key says %d", f.Dim(), key.N), nil)
	}

	name := s.Name(key)
	data, err := encode(key.String(), f, s.codec)
	if err != nil {
		return model.NewStorageError(name, "encode failed", err)
	}
	if err := s.blobs.Put(ctx, name, data); err != nil {
		return model.NewStorageError(name, "write failed", err)
	}

	s.logger.Debug("factor saved", "name", name, "bytes", len(data), "codec", s.codec.String())
	return nil
}
