package intellihire

import (
	"context"
	"iter"

	"github.com/SRafi007/intellihire-ai/metadata"
	"github.com/SRafi007/intellihire-ai/model"
)

// DefaultTopK is the result count of a SearchBuilder unless TopK is set.
const DefaultTopK = 5

// Query creates a fluent search builder over a collection.
//
// Example:
//
//	results, err := store.Query("cvs", query).
//	    TopK(10).
//	    Where(metadata.Gte("years_experience", 5), metadata.Eq("skills", "go")).
//	    Execute(ctx)
//
//	// Or with streaming:
//	for result, err := range store.Query("cvs", query).TopK(100).Stream(ctx) {
//	    if err != nil { break }
//	    if result.Score < threshold { break }
//	    process(result)
//	}
func (s *Store) Query(collection string, query []float32) *SearchBuilder {
	return &SearchBuilder{
		store:      s,
		collection: collection,
		query:      query,
		k:          DefaultTopK,
	}
}

// SearchBuilder is a fluent builder for constructing search queries.
type SearchBuilder struct {
	store      *Store
	collection string
	query      []float32
	k          int
	filters    *metadata.FilterSet
}

// TopK sets the maximum number of results.
func (sb *SearchBuilder) TopK(k int) *SearchBuilder {
	sb.k = k
	return sb
}

// Where adds payload conditions. All conditions must hold.
func (sb *SearchBuilder) Where(filters ...metadata.Filter) *SearchBuilder {
	sb.filters = sb.filters.And(filters...)
	return sb
}

// Filter replaces the conditions with fs.
func (sb *SearchBuilder) Filter(fs *metadata.FilterSet) *SearchBuilder {
	sb.filters = fs
	return sb
}

// Execute runs the search and returns the results.
func (sb *SearchBuilder) Execute(ctx context.Context) ([]model.SearchResult, error) {
	return sb.store.Search(ctx, sb.collection, sb.query, sb.k, sb.filters)
}

// MustExecute runs the search, panicking on error.
// Use this only in tests or when you're certain the query is valid.
func (sb *SearchBuilder) MustExecute(ctx context.Context) []model.SearchResult {
	results, err := sb.Execute(ctx)
	if err != nil {
		panic(err)
	}
	return results
}

// Stream returns an iterator over search results, best first.
// The iterator supports early termination by breaking from the loop.
// A failed search yields a single zero result with the error.
func (sb *SearchBuilder) Stream(ctx context.Context) iter.Seq2[model.SearchResult, error] {
	return func(yield func(model.SearchResult, error) bool) {
		results, err := sb.Execute(ctx)
		if err != nil {
			yield(model.SearchResult{}, err)
			return
		}
		for _, r := range results {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// First returns only the best result, or ErrNoMatch if none found.
func (sb *SearchBuilder) First(ctx context.Context) (model.SearchResult, error) {
	sb.k = 1
	results, err := sb.Execute(ctx)
	if err != nil {
		return model.SearchResult{}, err
	}
	if len(results) == 0 {
		return model.SearchResult{}, ErrNoMatch
	}
	return results[0], nil
}

// Count executes the search and returns the number of results.
func (sb *SearchBuilder) Count(ctx context.Context) (int, error) {
	results, err := sb.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return len(results), nil
}

// Exists checks if at least one record matches the search.
func (sb *SearchBuilder) Exists(ctx context.Context) (bool, error) {
	sb.k = 1
	results, err := sb.Execute(ctx)
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}
