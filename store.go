package intellihire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SRafi007/intellihire-ai/distance"
	"github.com/SRafi007/intellihire-ai/internal/collection"
	"github.com/SRafi007/intellihire-ai/internal/persist"
	"github.com/SRafi007/intellihire-ai/internal/registry"
	"github.com/SRafi007/intellihire-ai/internal/resource"
	"github.com/SRafi007/intellihire-ai/internal/search"
	"github.com/SRafi007/intellihire-ai/metadata"
	"github.com/SRafi007/intellihire-ai/model"
	"github.com/SRafi007/intellihire-ai/payload"
)

const (
	// DefaultCollection is the collection name used when none is configured.
	DefaultCollection = "intellihire"

	// DefaultDimension is the embedding size used when none is configured.
	DefaultDimension = 768
)

// Metric is the similarity function of a collection.
type Metric = distance.Metric

const (
	MetricCosine    = distance.MetricCosine
	MetricDot       = distance.MetricDot
	MetricEuclidean = distance.MetricEuclidean
)

// ParseMetric parses "cosine", "dot" or "euclidean", case-insensitively.
func ParseMetric(s string) (Metric, error) {
	m, err := distance.ParseMetric(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return m, nil
}

// CollectionInfo summarizes a collection.
type CollectionInfo struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    Metric `json:"metric"`
	Count     int    `json:"count"`
}

// Store holds named collections of candidate records and searches them.
// It is safe for concurrent use.
type Store struct {
	registry  *registry.Registry
	engine    *search.Engine
	persister *persist.Persister // nil without a blob store
	ctrl      *resource.Controller

	logger         *Logger
	metrics        MetricsCollector
	strictIdentity bool
	now            func() time.Time
	closer         io.Closer

	mu      sync.Mutex
	dropped map[string]struct{} // removed since the last commit

	closed atomic.Bool
}

// New creates an empty store. Nothing is read from a configured blob store
// until Load is called; use Open to do both.
func New(optFns ...Option) *Store {
	opts := applyOptions(optFns)

	s := &Store{
		registry:       registry.New(collection.WithClock(opts.now)),
		engine:         search.New(search.WithParallelThreshold(opts.parallelThreshold)),
		ctrl:           resource.NewController(opts.resources),
		logger:         opts.logger,
		metrics:        opts.metricsCollector,
		strictIdentity: opts.strictIdentity,
		now:            opts.now,
		dropped:        make(map[string]struct{}),
	}

	if opts.blobStore != nil {
		s.persister = persist.New(opts.blobStore,
			persist.WithController(s.ctrl),
			persist.WithCompression(opts.compression),
			persist.WithKeepPrevious(opts.keepSnapshots),
		)
		if c, ok := opts.blobStore.(io.Closer); ok {
			s.closer = c
		}
	}

	return s
}

// Open creates a store and, when a blob store is configured, loads every
// committed collection from it. The store owns the blob store: it is closed
// by Close, or here when loading fails.
func Open(ctx context.Context, optFns ...Option) (*Store, error) {
	s := New(optFns...)
	if s.persister == nil {
		return s, nil
	}
	if err := s.Load(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (s *Store) collection(name string) (*collection.Collection, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	c, err := s.registry.Get(name)
	if err != nil {
		return nil, translateError(err)
	}
	return c, nil
}

// InitCollection creates the collection if it does not exist. Calling it again
// with the same dimension and metric is a no-op; a different dimension or
// metric fails with *SchemaConflictError.
func (s *Store) InitCollection(ctx context.Context, name string, dimension int, metric Metric) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, created, err := s.registry.GetOrCreate(name, dimension, metric)
	if err != nil {
		err = translateError(err)
		s.logger.LogCollection(ctx, "create", name, err)
		return err
	}
	if created {
		s.logger.LogCollection(ctx, "created", name, nil)
	}
	return nil
}

// UpsertRecord validates raw and inserts or replaces the record with the
// given id. On failure nothing is stored.
func (s *Store) UpsertRecord(ctx context.Context, collectionName, id string, vector []float32, raw map[string]any) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordUpsert(time.Since(start), err)
		s.logger.LogUpsert(ctx, collectionName, id, err)
	}()

	c, err := s.collection(collectionName)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.strictIdentity && id != "" && len(vector) == c.Dimension() {
		if cvID, ok := raw[payload.FieldCVID].(string); ok && cvID != "" && cvID != id {
			return identityError(raw, s.now())
		}
	}

	_, err = c.Upsert(id, vector, raw)
	return translateError(err)
}

// Upsert inserts or replaces the record with an already typed payload. The
// payload is normalized and its required fields checked.
func (s *Store) Upsert(ctx context.Context, collectionName, id string, vector []float32, cv payload.CV) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordUpsert(time.Since(start), err)
		s.logger.LogUpsert(ctx, collectionName, id, err)
	}()

	c, err := s.collection(collectionName)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.strictIdentity && id != "" && len(vector) == c.Dimension() && cv.CVID != "" && cv.CVID != id {
		return payload.NewValidationError(identityFieldError())
	}

	_, err = c.UpsertCV(id, vector, cv)
	return translateError(err)
}

func identityFieldError() FieldError {
	return FieldError{Field: payload.FieldCVID, Reason: "must equal the record id"}
}

// identityError reports the cv_id mismatch together with any other invalid
// field of raw.
func identityError(raw map[string]any, now time.Time) error {
	_, err := payload.ValidateAt(raw, now)
	var ve *ValidationError
	if errors.As(err, &ve) {
		if ve.Has(payload.FieldCVID) {
			return ve
		}
		return payload.NewValidationError(append(ve.Fields, identityFieldError())...)
	}
	return payload.NewValidationError(identityFieldError())
}

// Search returns up to topK records of the collection ranked by descending
// similarity to query, ties broken by ascending id. A nil filter matches
// every record. No match is an empty result, not an error.
func (s *Store) Search(ctx context.Context, collectionName string, query []float32, topK int, filter *metadata.FilterSet) (results []model.SearchResult, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordSearch(topK, len(results), time.Since(start), err)
		s.logger.LogSearch(ctx, collectionName, topK, len(results), err)
	}()

	c, err := s.collection(collectionName)
	if err != nil {
		return nil, err
	}
	results, err = s.engine.Search(ctx, c, query, topK, filter)
	if err != nil {
		return nil, translateError(err)
	}
	return results, nil
}

// GetRecord returns a copy of the record with the given id.
func (s *Store) GetRecord(ctx context.Context, collectionName, id string) (model.Record, bool, error) {
	c, err := s.collection(collectionName)
	if err != nil {
		return model.Record{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return model.Record{}, false, err
	}
	r, ok := c.Get(id)
	return r, ok, nil
}

// DeleteRecord removes the record with the given id and reports whether it
// existed.
func (s *Store) DeleteRecord(ctx context.Context, collectionName, id string) (found bool, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordDelete(time.Since(start), err)
		s.logger.LogDelete(ctx, collectionName, id, found, err)
	}()

	c, err := s.collection(collectionName)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.Delete(id), nil
}

// DeleteCollection removes a collection and reports whether it existed. Its
// committed snapshots are removed by the next Commit.
func (s *Store) DeleteCollection(ctx context.Context, name string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	found := s.registry.Delete(name)
	if found && s.persister != nil {
		s.dropped[name] = struct{}{}
	}
	s.mu.Unlock()

	if found {
		s.logger.LogCollection(ctx, "deleted", name, nil)
	}
	return found, nil
}

// Collections returns every collection sorted by name.
func (s *Store) Collections() []CollectionInfo {
	cols := s.registry.List()
	out := make([]CollectionInfo, len(cols))
	for i, c := range cols {
		info := c.Info()
		out[i] = CollectionInfo{
			Name:      info.Name,
			Dimension: info.Dimension,
			Metric:    info.Metric,
			Count:     info.Count,
		}
	}
	return out
}

// Records returns an iterator over copies of every record of the collection
// in id order. Each iteration observes the records at the time it starts.
func (s *Store) Records(ctx context.Context, collectionName string) (iter.Seq[model.Record], error) {
	c, err := s.collection(collectionName)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.All(), nil
}

// Commit writes every collection changed since its last commit or load to
// the blob store and removes the snapshots of deleted collections. Each
// collection is replaced atomically; on failure the previously committed
// state stays readable.
func (s *Store) Commit(ctx context.Context) (err error) {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.persister == nil {
		return ErrNoBlobStore
	}

	start := time.Now()
	var written, skipped int
	var bytes int64
	defer func() {
		s.metrics.RecordCommit(written, bytes, time.Since(start), err)
		s.logger.LogCommit(ctx, written, skipped, time.Since(start), err)
	}()

	if err := s.applyDrops(ctx); err != nil {
		return err
	}

	results, err := s.persister.Commit(ctx, s.registry.List())
	for _, r := range results {
		if r.Skipped {
			skipped++
			continue
		}
		written++
		bytes += int64(r.Bytes)
		if r.PruneErr != nil {
			s.logger.WarnContext(ctx, "stale snapshots not removed",
				"collection", r.Name,
				"error", r.PruneErr,
			)
		}
	}
	return storageError(err)
}

func (s *Store) applyDrops(ctx context.Context) error {
	s.mu.Lock()
	names := make([]string, 0, len(s.dropped))
	for name := range s.dropped {
		names = append(names, name)
	}
	s.mu.Unlock()

	for _, name := range names {
		if err := s.persister.Drop(ctx, name); err != nil {
			return storageError(err)
		}
		s.mu.Lock()
		delete(s.dropped, name)
		s.mu.Unlock()
	}
	return nil
}

// Load restores every committed collection from the blob store, replacing
// in-memory collections of the same name. Collections that were never
// committed are kept. A collection deleted since the last Commit is not
// restored; its drop is still applied by the next Commit.
//
// Replacement swaps the collection handle. Upserts running concurrently with
// Load may land in the replaced collection and be lost.
func (s *Store) Load(ctx context.Context) (err error) {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.persister == nil {
		return ErrNoBlobStore
	}

	start := time.Now()
	var loaded []*collection.Collection
	defer func() {
		records := 0
		for _, c := range loaded {
			records += c.Len()
		}
		s.metrics.RecordLoad(len(loaded), time.Since(start), err)
		s.logger.LogLoad(ctx, len(loaded), records, err)
	}()

	loaded, err = s.persister.Load(ctx, s.newCollection)
	if err != nil {
		loaded = nil
		return storageError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := loaded[:0]
	for _, c := range loaded {
		if _, pending := s.dropped[c.Name()]; pending {
			continue
		}
		s.registry.Put(c)
		kept = append(kept, c)
	}
	loaded = kept
	return nil
}

func (s *Store) newCollection(name string, dimension int, metric distance.Metric) (*collection.Collection, error) {
	if err := registry.ValidateName(name); err != nil {
		return nil, err
	}
	return collection.New(name, dimension, metric, collection.WithClock(s.now))
}
