// Package blobstore provides the storage abstraction beneath committed
// collections.
//
// BlobStore stores whole blobs (collection snapshots and their CURRENT
// pointers) under slash separated names. Implementations must be safe for
// concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, used in tests and ephemeral stores
//   - LocalStore: local filesystem with atomic rename and a directory lock
//   - minio.Store: MinIO and other S3-compatible servers
//   - s3.Store: Amazon S3, optionally with s3.DDBCommitStore for pointers
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends:
//
//	type BlobStore interface {
//	    Get(ctx, name) ([]byte, error)
//	    Put(ctx, name, data) error         // Atomic write
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Missing blobs must be reported with an error satisfying
// errors.Is(err, ErrNotFound).
package blobstore
