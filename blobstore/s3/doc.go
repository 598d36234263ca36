// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	client := s3.NewFromConfig(cfg)
//	store := s3blob.NewStore(client, "my-bucket", "datasets/")
//
//	src, err := rowmatrix.FromBlob(ctx, session, store, "nonunif_1000_Ab.txt", 280)
//
// # Features
//
//   - Range reads for partition-sized fetches of text row sources
//   - Streaming multipart uploads via the S3 transfer manager
//   - Automatic pagination for listing
//   - DDBCommitStore: DynamoDB conditional writes version every blob, so
//     concurrent jobs saving the same preconditioning factor never clobber
//     each other
package s3
