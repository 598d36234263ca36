package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/randls/blobstore"
	"github.com/hupe1980/randls/blobstore/minio"
	"github.com/hupe1980/randls/blobstore/s3"
	"github.com/hupe1980/randls/internal/cache"
	"github.com/hupe1980/randls/internal/resource"
	"github.com/hupe1980/randls/model"
)

// stores holds the blob stores of a run.
type stores struct {
	// data holds the dataset and the precomputed reference solution.
	data blobstore.BlobStore
	// factors holds saved preconditioning factors.
	factors blobstore.BlobStore
}

// openStores resolves -source, -factor-dir and -ddb-table. Block cache
// memory is charged to rc.
func openStores(ctx context.Context, p *params, rc *resource.Controller) (*stores, error) {
	var (
		remote   blobstore.BlobStore
		factorsS blobstore.BlobStore
	)

	if p.ddbTable != "" && p.factorDir != "" {
		return nil, model.NewConfigurationError("factor_dir", "cannot be combined with -ddb-table", nil)
	}

	switch {
	case p.source == "" || p.source == "local":
		local := blobstore.NewLocalStore(p.dataDir)
		st := &stores{data: local, factors: local}
		if p.factorDir != "" {
			st.factors = blobstore.NewLocalStore(p.factorDir)
		}
		if p.ddbTable != "" {
			return nil, model.NewConfigurationError("ddb_table", "requires an s3 source", nil)
		}
		return st, nil

	case strings.HasPrefix(p.source, "s3://"):
		bucket, prefix, err := parseS3URL(p.source)
		if err != nil {
			return nil, err
		}
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		store := s3.NewStore(awss3.NewFromConfig(awsCfg), bucket, prefix)
		remote, factorsS = store, store
		if p.ddbTable != "" {
			factorsS = s3.NewDDBCommitStore(store, dynamodb.NewFromConfig(awsCfg), p.ddbTable, p.source)
		}

	case strings.HasPrefix(p.source, "minio://"):
		if p.ddbTable != "" {
			return nil, model.NewConfigurationError("ddb_table", "requires an s3 source", nil)
		}
		store, err := minio.OpenURL(p.source)
		if err != nil {
			return nil, model.NewConfigurationError("source", err.Error(), err)
		}
		remote, factorsS = store, store

	default:
		return nil, model.NewConfigurationError("source", fmt.Sprintf("unsupported source %q", p.source), nil)
	}

	st := &stores{data: remote, factors: factorsS}
	if p.blockCache > 0 {
		c := cache.NewLRUBlockCache(p.blockCache<<20, rc)
		st.data = blobstore.NewCachingStore(remote, c, 0)
	}
	if p.factorDir != "" {
		st.factors = blobstore.NewLocalStore(p.factorDir)
	}
	return st, nil
}

// parseS3URL splits "s3://bucket/prefix".
func parseS3URL(raw string) (bucket, prefix string, err error) {
	rest := strings.TrimPrefix(raw, "s3://")
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", model.NewConfigurationError("source", fmt.Sprintf("missing bucket in %q", raw), nil)
	}
	return bucket, strings.TrimSuffix(prefix, "/"), nil
}

// datasetBlob returns the blob name holding the rows of dataset and the
// dataset name used for factor keys and reference files.
func datasetBlob(dataset string) (name, key string) {
	for _, ext := range []string{".txt.zst", ".txt.lz4", ".zst", ".lz4", ".txt"} {
		if strings.HasSuffix(dataset, ext) {
			return dataset, strings.TrimSuffix(dataset, ext)
		}
	}
	return dataset + ".txt", dataset
}
