package minio

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SRafi007/intellihire-ai/blobstore"
)

func TestKeyMapping(t *testing.T) {
	s := NewStore(nil, "bucket", "/intellihire/")
	assert.Equal(t, "intellihire/collections/cvs/CURRENT", s.key("collections/cvs/CURRENT"))
	assert.Equal(t, "collections/cvs/CURRENT", s.name("intellihire/collections/cvs/CURRENT"))

	bare := NewStore(nil, "bucket", "")
	assert.Equal(t, "a/b", bare.key("a/b"))
	assert.Equal(t, "a/b", bare.name("a/b"))
}

func TestTranslate(t *testing.T) {
	notFound := minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
	assert.ErrorIs(t, translate(notFound), blobstore.ErrNotFound)

	other := errors.New("connection refused")
	assert.Same(t, other, translate(other))
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("INTELLIHIRE_TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	bucket := "test-intellihire"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	// Check if MinIO is reachable
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	store := NewStore(client, bucket, "test-prefix/")
	require.NoError(t, store.EnsureBucket(ctx, ""))

	_, err = store.Get(ctx, "collections/cvs/CURRENT")
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "collections/cvs/a.snap", data))
	require.NoError(t, store.Put(ctx, "collections/cvs/CURRENT", []byte("a.snap")))

	got, err := store.Get(ctx, "collections/cvs/a.snap")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := store.List(ctx, "collections/")
	require.NoError(t, err)
	assert.Equal(t, []string{"collections/cvs/CURRENT", "collections/cvs/a.snap"}, names)

	// Cleanup
	for _, n := range names {
		require.NoError(t, store.Delete(ctx, n))
	}
	_, err = store.Get(ctx, "collections/cvs/a.snap")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
	require.NoError(t, store.Delete(ctx, "collections/cvs/a.snap"))
}
