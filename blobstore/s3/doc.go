// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion("us-east-1"))
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "intellihire/")
//
// Wrap the store in a DDBCommitStore to serve CURRENT pointers from DynamoDB
// when several writers share one bucket:
//
//	commits := s3.NewDDBCommitStore(store, dynamodb.NewFromConfig(cfg), "intellihire-commits", "s3://my-bucket/intellihire")
//
// # Features
//
//   - Single PutObject with CRC32C for small snapshots
//   - Multipart uploads for large snapshots
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
