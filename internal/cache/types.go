package cache

import "context"

// Key identifies one block of a named blob.
type Key struct {
	Blob  string
	Block uint64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	// Bytes and Blocks describe the current contents.
	Bytes  int64
	Blocks int
}

// BlockCache caches immutable blob blocks. Returned slices are read-only.
type BlockCache interface {
	Get(ctx context.Context, key Key) (b []byte, ok bool)
	// Set caches b. Implementations may retain b.
	Set(ctx context.Context, key Key, b []byte)
	// InvalidateBlob drops every block of the named blob.
	InvalidateBlob(name string)
	Stats() Stats
}
