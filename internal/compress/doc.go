// Package compress provides block compression for persisted factors and
// streaming decompression for compressed text sources.
//
// Blocks carry an 8-byte header so the reader can tell stored blocks from
// compressed ones:
//
//	[UncompressedSize uint32][CompressedSize uint32][Data...]
//
// CompressedSize == 0 means the payload is stored verbatim.
package compress
