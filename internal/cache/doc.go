// Package cache provides the byte-oriented block cache used by
// blobstore.CachingStore to avoid re-fetching remote row sources and factor
// blobs across trials.
package cache
