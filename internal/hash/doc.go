// Package hash provides the checksums used by factor blobs and S3 uploads.
package hash
