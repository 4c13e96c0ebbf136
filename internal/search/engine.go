// Package search implements exact top-k similarity search over a collection.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/SRafi007/intellihire-ai/distance"
	"github.com/SRafi007/intellihire-ai/internal/collection"
	"github.com/SRafi007/intellihire-ai/internal/queue"
	"github.com/SRafi007/intellihire-ai/metadata"
	"github.com/SRafi007/intellihire-ai/model"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("top_k must be positive")

	// ErrInvalidFilter wraps a malformed filter.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvalidQuery is returned for query vectors with NaN or infinite components.
	ErrInvalidQuery = errors.New("query components must be finite")
)

// DefaultParallelThreshold is the candidate count above which scoring is
// split across goroutines.
const DefaultParallelThreshold = 4096

// cancelCheckInterval is how many candidates a partition scores between
// context checks.
const cancelCheckInterval = 256

// Engine scores candidates and selects the best k. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	parallelThreshold int
	maxPartitions     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallelThreshold sets the candidate count above which scoring runs in
// parallel partitions. Values <= 0 disable parallel scoring.
func WithParallelThreshold(n int) Option {
	return func(e *Engine) {
		e.parallelThreshold = n
	}
}

// WithMaxPartitions caps the number of parallel partitions.
func WithMaxPartitions(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPartitions = n
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		parallelThreshold: DefaultParallelThreshold,
		maxPartitions:     runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns up to topK records of c ranked by descending score, ties by
// ascending id. Records not matching filter are excluded; a nil filter
// matches everything.
func (e *Engine) Search(ctx context.Context, c *collection.Collection, query []float32, topK int, filter *metadata.FilterSet) ([]model.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidK, topK)
	}
	if len(query) != c.Dimension() {
		return nil, &collection.ErrDimensionMismatch{Expected: c.Dimension(), Actual: len(query)}
	}
	for i, v := range query {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%w: component %d is %v", ErrInvalidQuery, i, v)
		}
	}
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scorer, err := distance.NewScorer(c.Metric(), query)
	if err != nil {
		return nil, err
	}

	view := c.View(filter)
	if len(view.Entries) == 0 {
		return []model.SearchResult{}, nil
	}
	if !view.Exact {
		// Residual predicates such as contains need the document.
		matched := view.Entries[:0:0]
		for _, en := range view.Entries {
			if filter.Matches(en.Doc) {
				matched = append(matched, en)
			}
		}
		view.Entries = matched
	}

	top, err := e.rank(ctx, view.Entries, scorer, topK)
	if err != nil {
		return nil, err
	}

	results := make([]model.SearchResult, len(top))
	for i, it := range top {
		results[i] = model.SearchResult{
			Record: view.Entries[it.Row].Record.Clone(),
			Score:  it.Score,
		}
	}
	return results, nil
}

// rank scores entries and returns the best topK items in order. Item.Row
// indexes entries.
func (e *Engine) rank(ctx context.Context, entries []*collection.Entry, scorer func([]float32) float32, topK int) ([]queue.Item, error) {
	partitions := 1
	if e.parallelThreshold > 0 && len(entries) > e.parallelThreshold {
		partitions = (len(entries) + e.parallelThreshold - 1) / e.parallelThreshold
		partitions = min(partitions, e.maxPartitions)
	}

	if partitions <= 1 {
		q := queue.NewTopK(topK)
		if err := scoreInto(ctx, q, entries, 0, scorer); err != nil {
			return nil, err
		}
		return q.Sorted(), nil
	}

	queues := make([]*queue.TopK, partitions)
	size := (len(entries) + partitions - 1) / partitions

	g, gctx := errgroup.WithContext(ctx)
	for p := range partitions {
		lo := p * size
		hi := min(lo+size, len(entries))
		q := queue.NewTopK(topK)
		queues[p] = q
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			return scoreInto(gctx, q, entries[lo:hi], lo, scorer)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := queues[0]
	for _, q := range queues[1:] {
		merged.Merge(q)
	}
	return merged.Sorted(), nil
}

// scoreInto offers entries to q. Item.Row carries the position in the full
// candidate slice, base being the offset of entries within it.
func scoreInto(ctx context.Context, q *queue.TopK, entries []*collection.Entry, base int, scorer func([]float32) float32) error {
	for i, en := range entries {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		q.Offer(queue.Item{
			Row:   uint32(base + i),
			ID:    en.Record.ID,
			Score: scorer(en.Record.Vector),
		})
	}
	return nil
}
