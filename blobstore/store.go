package blobstore

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// CurrentName is the base name of pointer blobs. A pointer holds the name of
// the active snapshot in its directory. Stores may serve pointers from a
// different system than regular blobs.
const CurrentName = "CURRENT"

// ErrInvalidName is returned for blob names that are empty, absolute, or
// escape the store root.
var ErrInvalidName = errors.New("invalid blob name")

// BlobStore stores whole blobs addressed by slash separated names.
// Implementations must be safe for concurrent use and Put must be atomic:
// readers observe either the previous or the new content, never a mix.
type BlobStore interface {
	// Get returns the content of a blob.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put writes a blob atomically, replacing any existing content.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the names with the given prefix in ascending order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ValidateName checks that name is a clean relative slash path.
func ValidateName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return errInvalid(name)
	}
	if path.Clean(name) != name {
		return errInvalid(name)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." || seg == "." {
			return errInvalid(name)
		}
	}
	return nil
}

func errInvalid(name string) error {
	return &os.PathError{Op: "blob", Path: name, Err: ErrInvalidName}
}

// IsNotFound reports whether err means the blob does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
