// Package factorstore persists preconditioning factors so repeated runs with
// identical sketch parameters can skip the sketch and SVD.
//
// Factors are content addressed: the blob name is the xxhash of the
// canonical key, and the key is recorded inside the blob. Load reports one of
// three outcomes:
//
//   - Hit: the blob exists and its recorded key equals the request.
//   - Miss: no blob exists; the caller computes a fresh factor.
//   - error: the blob is malformed (StorageError) or was written for a
//     different key (ConfigurationError). Both are fatal.
//
// # Binary Format
//
//	Magic (4 bytes) "RLSN"
//	Version (4 bytes)
//	Codec (1 byte) - compress.Type of the payload block
//	Checksum (4 bytes) - CRC32C of the stored payload
//	PayloadLength (4 bytes)
//	Payload (compress block):
//	  Key (string)
//	  N (4 bytes) - dimension n
//	  N matrix (n*n float64, row-major)
//	  X0 (n float64)
package factorstore
