// Package blobstore provides the storage abstraction for row sources and
// persisted preconditioning factors.
//
// BlobStore is the interface for reading and writing immutable blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem with mmap reads
//   - MemoryStore: In-process store for tests and in-memory pipelines
//   - CachingStore: Block cache in front of any other store
//   - s3.Store: Amazon S3 with range reads and streaming uploads
//   - s3.DDBCommitStore: S3 with DynamoDB-versioned commits
//   - minio.Store: MinIO and other S3-compatible storage
//
// # Usage
//
//	store := blobstore.NewLocalStore("../data")
//	data, err := blobstore.ReadAll(ctx, store, "factors/n-1f2e3d.bin")
//	if errors.Is(err, blobstore.ErrNotFound) {
//	    // compute fresh
//	}
package blobstore
