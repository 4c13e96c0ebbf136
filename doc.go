// Package intellihire provides an embedded vector store for candidate CVs.
//
// A Store holds named collections of fixed-dimension embedding vectors. Every
// record carries a validated CV payload (cv_id, name, email, skills,
// years_experience, ...) that searches can filter on. Search is exact: every
// candidate is scored, so results are deterministic.
//
// # Quick Start
//
//	ctx := context.Background()
//	store := intellihire.New()
//	_ = store.InitCollection(ctx, "cvs", 768, intellihire.MetricCosine)
//
//	err := store.UpsertRecord(ctx, "cvs", "cv-42", embedding, map[string]any{
//	    "cv_id":            "cv-42",
//	    "name":             "Ada Lovelace",
//	    "email":            "ada@example.com",
//	    "years_experience": 7,
//	    "skills":           []string{"go", "kubernetes"},
//	})
//
//	results, _ := store.Search(ctx, "cvs", query, 5,
//	    metadata.NewFilterSet(metadata.Gte("years_experience", 5)))
//
// # Scores
//
// Higher is always better. Cosine returns the cosine similarity (0 when
// either vector has zero magnitude), dot the raw inner product and euclidean
// the negated L2 distance. Ties are broken by ascending record id.
//
// # Persistence
//
// Collections live in memory. With a blob store configured, Commit writes
// every changed collection as a compressed snapshot and Load (or Open)
// restores them:
//
//	local, _ := blobstore.NewLocalStore("./data")
//	store, _ := intellihire.Open(ctx, intellihire.WithBlobStore(local))
//	defer store.Close()
//	// ... upserts ...
//	_ = store.Commit(ctx)
//
// Backends: in-memory, local directory, MinIO and S3 (optionally with
// DynamoDB-managed commit pointers for shared buckets).
//
// # Errors
//
// Payload problems fail with *ValidationError listing every offending field,
// wrong vector lengths with *DimensionMismatchError, and incompatible
// re-initialization with *SchemaConflictError. Use errors.Is with
// ErrCollectionNotFound, ErrInvalidArgument, ErrStorageUnavailable and
// ErrClosed. ErrorInfo renders any error for API responses.
package intellihire
