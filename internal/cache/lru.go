package cache

import (
	"container/list"
	"context"
	"sync"

	"github.com/hupe1980/randls/internal/resource"
)

// LRUBlockCache is a byte-bounded LRU of blob blocks. Cached bytes are
// charged to a resource.Controller when one is given; a block the
// controller refuses is simply not cached.
type LRUBlockCache struct {
	mu       sync.Mutex
	capacity int64
	rc       *resource.Controller

	order  *list.List // front is most recently used
	blocks map[Key]*list.Element
	// perBlob indexes blocks by blob name for InvalidateBlob.
	perBlob map[string]map[uint64]struct{}

	stats Stats
}

type block struct {
	key  Key
	data []byte
}

// NewLRUBlockCache creates a cache holding at most capacity bytes.
func NewLRUBlockCache(capacity int64, rc *resource.Controller) *LRUBlockCache {
	return &LRUBlockCache{
		capacity: capacity,
		rc:       rc,
		order:    list.New(),
		blocks:   make(map[Key]*list.Element),
		perBlob:  make(map[string]map[uint64]struct{}),
	}
}

// Get returns a cached block and marks it most recently used.
func (c *LRUBlockCache) Get(_ context.Context, key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.blocks[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	c.order.MoveToFront(el)
	return el.Value.(*block).data, true
}

// Set caches b under key, evicting least recently used blocks as needed.
func (c *LRUBlockCache) Set(_ context.Context, key Key, b []byte) {
	size := int64(len(b))

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.blocks[key]; ok {
		c.order.MoveToFront(el)
		return
	}
	if size > c.capacity {
		return
	}
	for c.stats.Bytes+size > c.capacity && c.order.Len() > 0 {
		c.remove(c.order.Back())
		c.stats.Evictions++
	}
	if err := c.rc.AcquireMemory(size); err != nil {
		return
	}

	c.blocks[key] = c.order.PushFront(&block{key: key, data: b})
	idx, ok := c.perBlob[key.Blob]
	if !ok {
		idx = make(map[uint64]struct{})
		c.perBlob[key.Blob] = idx
	}
	idx[key.Block] = struct{}{}
	c.stats.Bytes += size
	c.stats.Blocks++
}

// InvalidateBlob drops every cached block of name.
func (c *LRUBlockCache) InvalidateBlob(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for blk := range c.perBlob[name] {
		if el, ok := c.blocks[Key{Blob: name, Block: blk}]; ok {
			c.remove(el)
		}
	}
}

// Stats returns a snapshot of the counters.
func (c *LRUBlockCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Size returns the cached bytes.
func (c *LRUBlockCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.Bytes
}

func (c *LRUBlockCache) remove(el *list.Element) {
	b := c.order.Remove(el).(*block)
	delete(c.blocks, b.key)
	if idx := c.perBlob[b.key.Blob]; idx != nil {
		delete(idx, b.key.Block)
		if len(idx) == 0 {
			delete(c.perBlob, b.key.Blob)
		}
	}
	size := int64(len(b.data))
	c.stats.Bytes -= size
	c.stats.Blocks--
	c.rc.ReleaseMemory(size)
}
