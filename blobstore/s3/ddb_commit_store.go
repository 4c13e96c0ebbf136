package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/SRafi007/intellihire-ai/blobstore"
)

// Compile time check to ensure DDBCommitStore satisfies the BlobStore interface.
var _ blobstore.BlobStore = (*DDBCommitStore)(nil)

// DDBCommitStore implements blobstore.BlobStore on top of another store
// (usually S3) with DynamoDB holding the CURRENT pointers.
//
// DynamoDB is used as a commit log for pointer updates, providing the
// atomic compare-and-swap semantics that S3 lacks:
//   - Snapshot content is written to the inner store
//   - A conditional write appends a new pointer version per directory
//   - Concurrent writers to the same collection are detected, not lost
//
// Table schema:
//   - Partition key: base_uri (string) - base URI plus the pointer directory
//   - Sort key: version (number) - monotonically increasing version
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name intellihire-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
//
// List only reports blobs of the inner store; pointers live in the table.
type DDBCommitStore struct {
	inner     blobstore.BlobStore
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

const (
	attrBaseURI  = "base_uri"
	attrVersion  = "version"
	attrSnapshot = "snapshot"
)

// NewDDBCommitStore creates a new commit store.
// The baseURI should be "s3://bucket/prefix" and namespaces the partition keys.
func NewDDBCommitStore(inner blobstore.BlobStore, ddbClient DDBClient, tableName, baseURI string) *DDBCommitStore {
	return &DDBCommitStore{
		inner:     inner,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

func isPointer(name string) bool {
	return path.Base(name) == blobstore.CurrentName
}

func (s *DDBCommitStore) partition(name string) string {
	return s.baseURI + "#" + path.Dir(name)
}

// Get returns a blob. Pointers are read from the latest table version.
func (s *DDBCommitStore) Get(ctx context.Context, name string) ([]byte, error) {
	if !isPointer(name) {
		return s.inner.Get(ctx, name)
	}
	if err := blobstore.ValidateName(name); err != nil {
		return nil, err
	}
	version, snapshot, err := s.latest(ctx, s.partition(name))
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, blobstore.ErrNotFound
	}
	return []byte(snapshot), nil
}

// Put writes a blob. For pointers it appends a version with a conditional
// write and returns ErrConcurrentModification when another writer won.
func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	if !isPointer(name) {
		return s.inner.Put(ctx, name, data)
	}
	if err := blobstore.ValidateName(name); err != nil {
		return err
	}
	return s.commitVersion(ctx, s.partition(name), string(data))
}

// Delete removes a blob. Deleting a pointer removes all of its versions.
func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	if !isPointer(name) {
		return s.inner.Delete(ctx, name)
	}
	if err := blobstore.ValidateName(name); err != nil {
		return err
	}

	pk := s.partition(name)
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: pk},
		},
		ProjectionExpression: aws.String(attrVersion),
	}
	paginator := dynamodb.NewQueryPaginator(s.ddbClient, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to query DynamoDB: %w", err)
		}
		for _, item := range page.Items {
			_, err := s.ddbClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					attrBaseURI: &types.AttributeValueMemberS{Value: pk},
					attrVersion: item[attrVersion],
				},
			})
			if err != nil {
				return fmt.Errorf("failed to delete pointer version: %w", err)
			}
		}
	}
	return nil
}

// List lists blobs of the inner store.
func (s *DDBCommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// latest queries DynamoDB for the latest committed version of a partition.
func (s *DDBCommitStore) latest(ctx context.Context, pk string) (uint64, string, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: pk},
		},
		ScanIndexForward: aws.Bool(false), // Descending order
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("failed to query DynamoDB: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item[attrVersion].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid version attribute in DynamoDB")
	}
	snapshotAttr, ok := item[attrSnapshot].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid snapshot attribute in DynamoDB")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("failed to parse version: %w", err)
	}
	return version, snapshotAttr.Value, nil
}

// commitVersion appends the next pointer version using a conditional write.
func (s *DDBCommitStore) commitVersion(ctx context.Context, pk, snapshot string) error {
	current, _, err := s.latest(ctx, pk)
	if err != nil {
		return err
	}

	// Conditional put: only succeed if this version doesn't exist yet
	_, err = s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			attrBaseURI:  &types.AttributeValueMemberS{Value: pk},
			attrVersion:  &types.AttributeValueMemberN{Value: strconv.FormatUint(current+1, 10)},
			attrSnapshot: &types.AttributeValueMemberS{Value: snapshot},
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
