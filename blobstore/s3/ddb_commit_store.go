package s3

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/randls/blobstore"
)

// DDBCommitStore implements blobstore.BlobStore backed by S3 with DynamoDB
// as a per-blob version log.
//
// Every Put writes a new immutable object "<name>.v<version>.<nonce>" to S3 and then
// commits the version with a DynamoDB conditional write. Open resolves the
// latest committed version. Two jobs saving the same factor concurrently
// therefore never interleave bytes: one commit wins and the other receives
// ErrConcurrentModification.
//
// Table schema:
//   - Partition key: base_uri (string) - "<baseURI>#<blob name>"
//   - Sort key: version (number) - monotonically increasing version
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name randls-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBCommitStore struct {
	s3Store   *Store
	ddbClient DDBClient
	tableName string
	baseURI   string
}

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// ErrConcurrentModification is returned when a concurrent write is detected.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// NewDDBCommitStore creates a new S3+DynamoDB commit store.
// The baseURI should be "s3://bucket/prefix" format used as partition key prefix.
func NewDDBCommitStore(s3Store *Store, ddbClient DDBClient, tableName, baseURI string) *DDBCommitStore {
	return &DDBCommitStore{
		s3Store:   s3Store,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

func (s *DDBCommitStore) partitionKey(name string) string {
	return s.baseURI + "#" + name
}

// versionedName is unique per writer so racing writers never share an object.
func versionedName(name string, version uint64) string {
	return fmt.Sprintf("%s.v%d.%016x", name, version, rand.Uint64())
}

// logicalName strips the version suffix added by versionedName.
func logicalName(object string) (string, bool) {
	i := strings.LastIndex(object, ".v")
	if i < 0 {
		return "", false
	}
	version, nonce, ok := strings.Cut(object[i+2:], ".")
	if !ok || nonce == "" {
		return "", false
	}
	if _, err := strconv.ParseUint(version, 10, 64); err != nil {
		return "", false
	}
	return object[:i], true
}

// Open opens the latest committed version of a blob.
func (s *DDBCommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	version, objectName, err := s.latestVersion(ctx, name)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, blobstore.ErrNotFound
	}
	return s.s3Store.Open(ctx, objectName)
}

// Put writes a new version of name and commits it.
func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	current, _, err := s.latestVersion(ctx, name)
	if err != nil {
		return err
	}
	next := current + 1
	objectName := versionedName(name, next)

	if err := s.s3Store.Put(ctx, objectName, data); err != nil {
		return err
	}

	if err := s.commitVersion(ctx, name, next, objectName); err != nil {
		// The losing object is unreachable; remove it best-effort.
		_ = s.s3Store.Delete(ctx, objectName)
		return err
	}
	return nil
}

// Create creates a writable blob that commits a new version on Close.
func (s *DDBCommitStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return &commitWritableBlob{ctx: ctx, store: s, name: name}, nil
}

// Delete removes every committed version of name.
func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	items, err := s.versions(ctx, name, 0)
	if err != nil {
		return err
	}
	for _, it := range items {
		if _, err := s.ddbClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key: map[string]types.AttributeValue{
				"base_uri": &types.AttributeValueMemberS{Value: s.partitionKey(name)},
				"version":  &types.AttributeValueMemberN{Value: strconv.FormatUint(it.version, 10)},
			},
		}); err != nil {
			return fmt.Errorf("failed to delete version %d of %s: %w", it.version, name, err)
		}
		if err := s.s3Store.Delete(ctx, it.path); err != nil {
			return err
		}
	}
	return nil
}

// List lists logical blob names (version suffixes stripped) with prefix.
func (s *DDBCommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	objects, err := s.s3Store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(objects))
	var names []string
	for _, obj := range objects {
		name, ok := logicalName(obj)
		if !ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

type committedVersion struct {
	version uint64
	path    string
}

func (s *DDBCommitStore) versions(ctx context.Context, name string, limit int32) ([]committedVersion, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.partitionKey(name)},
		},
		ScanIndexForward: aws.Bool(false), // Descending order
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	resp, err := s.ddbClient.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query DynamoDB: %w", err)
	}

	out := make([]committedVersion, 0, len(resp.Items))
	for _, item := range resp.Items {
		versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
		if !ok {
			return nil, errors.New("invalid version attribute in DynamoDB")
		}
		pathAttr, ok := item["blob_path"].(*types.AttributeValueMemberS)
		if !ok {
			return nil, errors.New("invalid blob_path attribute in DynamoDB")
		}
		version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse version: %w", err)
		}
		out = append(out, committedVersion{version: version, path: pathAttr.Value})
	}
	return out, nil
}

// latestVersion returns 0 if name was never committed.
func (s *DDBCommitStore) latestVersion(ctx context.Context, name string) (uint64, string, error) {
	items, err := s.versions(ctx, name, 1)
	if err != nil {
		return 0, "", err
	}
	if len(items) == 0 {
		return 0, "", nil
	}
	return items[0].version, items[0].path, nil
}

// commitVersion atomically commits a version using a DynamoDB conditional write.
func (s *DDBCommitStore) commitVersion(ctx context.Context, name string, version uint64, objectName string) error {
	_, err := s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":  &types.AttributeValueMemberS{Value: s.partitionKey(name)},
			"version":   &types.AttributeValueMemberN{Value: strconv.FormatUint(version, 10)},
			"blob_path": &types.AttributeValueMemberS{Value: objectName},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("failed to commit version to DynamoDB: %w", err)
	}
	return nil
}

type commitWritableBlob struct {
	ctx   context.Context
	store *DDBCommitStore
	name  string
	buf   []byte
}

func (b *commitWritableBlob) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *commitWritableBlob) Close() error {
	return b.store.Put(b.ctx, b.name, b.buf)
}

func (b *commitWritableBlob) Sync() error {
	return nil
}
