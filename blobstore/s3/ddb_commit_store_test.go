package s3

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SRafi007/intellihire-ai/blobstore"
)

func newTestDDBCommitStore(ddb *mockDDBClient, baseURI string) (*DDBCommitStore, *blobstore.MemoryStore) {
	inner := blobstore.NewMemoryStore()
	return NewDDBCommitStore(inner, ddb, "intellihire-commits", baseURI), inner
}

func TestDDBCommitStore_FirstCommit(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()
	store, inner := newTestDDBCommitStore(ddb, "s3://test-bucket/test")

	require.NoError(t, store.Put(ctx, "collections/cvs/a.snap", []byte("snapshot")))
	require.NoError(t, store.Put(ctx, "collections/cvs/CURRENT", []byte("a.snap")))

	got, err := store.Get(ctx, "collections/cvs/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "a.snap", string(got))

	// The pointer lives in the table, the snapshot in the inner store.
	names, err := inner.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"collections/cvs/a.snap"}, names)
	assert.Equal(t, 1, ddb.Len())

	got, err = store.Get(ctx, "collections/cvs/a.snap")
	require.NoError(t, err)
	assert.Equal(t, "snapshot", string(got))
}

func TestDDBCommitStore_MultipleCommits(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()
	store, _ := newTestDDBCommitStore(ddb, "s3://test-bucket/test")

	// More than nine versions checks numeric ordering.
	for i := 1; i <= 12; i++ {
		require.NoError(t, store.Put(ctx, "collections/cvs/CURRENT", []byte(fmt.Sprintf("%05d.snap", i))))
	}

	got, err := store.Get(ctx, "collections/cvs/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "00012.snap", string(got))
}

func TestDDBCommitStore_ConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()
	store, _ := newTestDDBCommitStore(ddb, "s3://test-bucket/test")

	require.NoError(t, store.Put(ctx, "collections/cvs/CURRENT", []byte("00001.snap")))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Put(ctx, "collections/cvs/CURRENT", []byte(fmt.Sprintf("%05d.snap", i+2)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrConcurrentModification):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Positive(t, successes, "at least one writer should succeed")
}

func TestDDBCommitStore_NotFoundBeforeCommit(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestDDBCommitStore(newMockDDBClient(), "s3://test-bucket/test")

	_, err := store.Get(ctx, "collections/cvs/CURRENT")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestDDBCommitStore_IsolatedNamespaces(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()

	store1, _ := newTestDDBCommitStore(ddb, "s3://bucket-a/path")
	store2, _ := newTestDDBCommitStore(ddb, "s3://bucket-b/path")

	require.NoError(t, store1.Put(ctx, "collections/cvs/CURRENT", []byte("A.snap")))
	require.NoError(t, store2.Put(ctx, "collections/cvs/CURRENT", []byte("B.snap")))
	require.NoError(t, store1.Put(ctx, "collections/other/CURRENT", []byte("C.snap")))

	got, err := store1.Get(ctx, "collections/cvs/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "A.snap", string(got))

	got, err = store2.Get(ctx, "collections/cvs/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "B.snap", string(got))

	got, err = store1.Get(ctx, "collections/other/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "C.snap", string(got))
}

func TestDDBCommitStore_DeletePointer(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()
	store, _ := newTestDDBCommitStore(ddb, "s3://test-bucket/test")

	for i := range 3 {
		require.NoError(t, store.Put(ctx, "collections/cvs/CURRENT", []byte(fmt.Sprintf("%d.snap", i))))
	}
	require.NoError(t, store.Put(ctx, "collections/keep/CURRENT", []byte("k.snap")))
	require.Equal(t, 4, ddb.Len())

	require.NoError(t, store.Delete(ctx, "collections/cvs/CURRENT"))
	assert.Equal(t, 1, ddb.Len())

	_, err := store.Get(ctx, "collections/cvs/CURRENT")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	got, err := store.Get(ctx, "collections/keep/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "k.snap", string(got))
}
