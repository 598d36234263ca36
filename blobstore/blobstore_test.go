package blobstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/randls/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	blobName := "factors/n-001.bin"
	data := []byte("hello world, this is a test blob for randls")

	w, err := store.Create(ctx, blobName)
	require.NoError(t, err)
	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(tmpDir, "factors", "n-001.bin"))
	require.NoError(t, err)

	blob, err := store.Open(ctx, blobName)
	require.NoError(t, err)
	defer blob.Close()
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	rc, err := blob.ReadRange(ctx, 13, 4)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "this", string(content))
	require.NoError(t, rc.Close())

	require.NoError(t, store.Put(ctx, "factors/n-002.bin", []byte("x")))

	names, err := store.List(ctx, "factors/")
	require.NoError(t, err)
	require.Equal(t, []string{"factors/n-001.bin", "factors/n-002.bin"}, names)

	require.NoError(t, store.Delete(ctx, "factors/n-002.bin"))
	require.NoError(t, store.Delete(ctx, "factors/missing.bin"))

	_, err = store.Open(ctx, "factors/n-002.bin")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReadAll(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]BlobStore{
		"local":  NewLocalStore(t.TempDir()),
		"memory": NewMemoryStore(),
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "rows.txt", []byte("1 2\n3 4\n")))

			got, err := ReadAll(ctx, store, "rows.txt")
			require.NoError(t, err)
			assert.Equal(t, "1 2\n3 4\n", string(got))

			_, err = ReadAll(ctx, store, "missing.txt")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryStore_ReadRange(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	w, err := store.Create(ctx, "boundary.bin")
	require.NoError(t, err)
	_, _ = w.Write([]byte("0123456789"))
	require.NoError(t, w.Close())

	blob, err := store.Open(ctx, "boundary.bin")
	require.NoError(t, err)

	r, err := blob.ReadRange(ctx, 8, 5)
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "89", string(content))

	_, err = blob.ReadRange(ctx, 20, 5)
	require.ErrorIs(t, err, io.EOF)

	all, err := io.ReadAll(NewReader(ctx, blob))
	require.NoError(t, err)
	require.Equal(t, "0123456789", string(all))
}

type countingStore struct {
	*MemoryStore
	reads int
}

type countingBlob struct {
	Blob
	s *countingStore
}

func (s *countingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.MemoryStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &countingBlob{Blob: b, s: s}, nil
}

func (b *countingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	b.s.reads++
	return b.Blob.ReadAt(ctx, p, off)
}

func TestCachingStore_ReadAt(t *testing.T) {
	ctx := context.Background()
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i % 251)
	}

	inner := &countingStore{MemoryStore: NewMemoryStore()}
	require.NoError(t, inner.Put(ctx, "test", data))

	c := cache.NewLRUBlockCache(1<<20, nil)
	store := NewCachingStore(inner, c, 256)

	blob, err := store.Open(ctx, "test")
	require.NoError(t, err)

	buf := make([]byte, 300)
	n, err := blob.ReadAt(ctx, buf, 100)
	require.NoError(t, err)
	require.Equal(t, 300, n)
	require.True(t, bytes.Equal(data[100:400], buf))
	readsAfterFirst := inner.reads

	// Second read of the same range is served from cache.
	n, err = blob.ReadAt(ctx, buf, 100)
	require.NoError(t, err)
	require.Equal(t, 300, n)
	require.Equal(t, readsAfterFirst, inner.reads)
	require.Positive(t, c.Stats().Hits)

	// Tail read hits EOF.
	n, err = blob.ReadAt(ctx, buf, 900)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 124, n)
	require.True(t, bytes.Equal(data[900:], buf[:n]))

	all, err := io.ReadAll(NewReader(ctx, blob))
	require.NoError(t, err)
	require.Equal(t, data, all)

	// Put invalidates cached blocks.
	require.NoError(t, store.Put(ctx, "test", []byte("fresh")))
	got, err := ReadAll(ctx, store, "test")
	require.NoError(t, err)
	require.Equal(t, "fresh", string(got))
}
