// Package minio provides a BlobStore implementation using the MinIO client.
//
// It serves datasets and persisted factors from MinIO or any other
// S3-compatible object store (Ceph, SeaweedFS, Garage) without pulling in the
// AWS SDK.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "datasets", "randls/")
//
// The driver accepts locations of the form
//
//	minio://host:port/bucket/prefix
//
// and resolves credentials from MINIO_ACCESS_KEY / MINIO_SECRET_KEY, see
// OpenURL.
package minio
