// Package resource implements the Controller that governs partition work.
//
// The Controller manages three resource types for a rowmatrix session:
//
//   - Workers: concurrent partition tasks (weighted semaphore)
//   - IO: token-bucket rate limit for reading row sources from blob storage
//   - Memory: accounting for cached partitions (non-blocking, fail-fast)
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                       Controller                            │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Partition      │  IO Rate        │  Cache Memory           │
//	│  Workers (sem)  │  Limiter        │  (fail-fast)            │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  AcquireWorker  │  AcquireIO      │  AcquireMemory          │
//	│  ReleaseWorker  │  RateLimited-   │  ReleaseMemory          │
//	│                 │  Reader         │  MemoryUsage            │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// A session caches a partition only if AcquireMemory succeeds; otherwise the
// partition is re-read on the next pass. Caching is a performance guarantee,
// never a correctness one.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
package resource
