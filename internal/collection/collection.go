// Package collection holds the records of one named collection together with
// the metadata index used to filter them.
package collection

import (
	"cmp"
	"fmt"
	"iter"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/SRafi007/intellihire-ai/distance"
	"github.com/SRafi007/intellihire-ai/metadata"
	"github.com/SRafi007/intellihire-ai/model"
	"github.com/SRafi007/intellihire-ai/payload"
)

// Entry is an immutable stored record. Replacing a record swaps the entry,
// so holders of an *Entry never observe a partial write.
type Entry struct {
	Row    model.RowID
	Record model.Record
	Doc    metadata.Document
}

// Collection is a fixed-dimension set of records keyed by id.
//
// Writers take the write lock for the swap only; validation and copying
// happen before the lock is acquired.
type Collection struct {
	name      string
	dimension int
	metric    distance.Metric
	now       func() time.Time

	mu      sync.RWMutex
	rows    map[string]model.RowID
	entries []*Entry // indexed by RowID, nil for free slots
	free    []model.RowID
	index   *metadata.Index

	version atomic.Uint64
}

// Option configures a Collection.
type Option func(*Collection)

// WithClock sets the clock used for UpdatedAt and last_updated defaults.
func WithClock(now func() time.Time) Option {
	return func(c *Collection) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an empty collection.
func New(name string, dimension int, metric distance.Metric, opts ...Option) (*Collection, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dimension)
	}
	if !metric.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMetric, metric)
	}
	c := &Collection{
		name:      name,
		dimension: dimension,
		metric:    metric,
		now:       time.Now,
		rows:      make(map[string]model.RowID),
		index:     metadata.NewIndex(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Dimension returns the fixed vector dimension.
func (c *Collection) Dimension() int { return c.dimension }

// Metric returns the distance metric.
func (c *Collection) Metric() distance.Metric { return c.metric }

// Version returns a counter that increases on every successful write.
func (c *Collection) Version() uint64 { return c.version.Load() }

// Len returns the number of records.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

// Info summarizes a collection.
type Info struct {
	Name      string
	Dimension int
	Metric    distance.Metric
	Count     int
}

// Info returns a summary of the collection.
func (c *Collection) Info() Info {
	return Info{Name: c.name, Dimension: c.dimension, Metric: c.metric, Count: c.Len()}
}

// Upsert validates raw and inserts or replaces the record with the given id.
func (c *Collection) Upsert(id string, vector []float32, raw map[string]any) (model.Record, error) {
	if err := c.checkVector(id, vector); err != nil {
		return model.Record{}, err
	}
	cv, err := payload.ValidateAt(raw, c.now())
	if err != nil {
		return model.Record{}, err
	}
	return c.put(id, vector, cv)
}

// UpsertCV inserts or replaces the record with an already typed payload.
func (c *Collection) UpsertCV(id string, vector []float32, cv payload.CV) (model.Record, error) {
	if err := c.checkVector(id, vector); err != nil {
		return model.Record{}, err
	}
	cv, err := cv.Normalize(c.now())
	if err != nil {
		return model.Record{}, err
	}
	return c.put(id, vector, cv)
}

func (c *Collection) checkVector(id string, vector []float32) error {
	if id == "" {
		return ErrInvalidID
	}
	if len(vector) != c.dimension {
		return &ErrDimensionMismatch{Expected: c.dimension, Actual: len(vector)}
	}
	for i, v := range vector {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is %v", ErrInvalidVector, i, v)
		}
	}
	return nil
}

// put swaps in a new entry. cv must already be validated.
func (c *Collection) put(id string, vector []float32, cv payload.CV) (model.Record, error) {
	rec := model.Record{
		ID:        id,
		Vector:    slices.Clone(vector),
		Payload:   cv.Clone(),
		UpdatedAt: c.now().UTC(),
	}
	doc := rec.Payload.Document()

	c.mu.Lock()
	defer c.mu.Unlock()

	row, exists := c.rows[id]
	if exists {
		c.index.Remove(uint32(row), c.entries[row].Doc)
	} else {
		var err error
		if row, err = c.allocRowLocked(); err != nil {
			return model.Record{}, err
		}
		c.rows[id] = row
	}

	c.entries[row] = &Entry{Row: row, Record: rec, Doc: doc}
	c.index.Add(uint32(row), doc)
	c.version.Add(1)

	return rec.Clone(), nil
}

func (c *Collection) allocRowLocked() (model.RowID, error) {
	if n := len(c.free); n > 0 {
		row := c.free[n-1]
		c.free = c.free[:n-1]
		return row, nil
	}
	if uint64(len(c.entries)) > math.MaxUint32 {
		return 0, ErrFull
	}
	c.entries = append(c.entries, nil)
	return model.RowID(len(c.entries) - 1), nil
}

// Get returns a copy of the record with the given id.
func (c *Collection) Get(id string) (model.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	row, ok := c.rows[id]
	if !ok {
		return model.Record{}, false
	}
	return c.entries[row].Record.Clone(), true
}

// Delete removes the record with the given id and reports whether it existed.
func (c *Collection) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, ok := c.rows[id]
	if !ok {
		return false
	}
	c.index.Remove(uint32(row), c.entries[row].Doc)
	c.entries[row] = nil
	c.free = append(c.free, row)
	delete(c.rows, id)
	c.version.Add(1)
	return true
}

// Entries returns the current entries sorted by id.
func (c *Collection) Entries() []*Entry {
	c.mu.RLock()
	out := make([]*Entry, 0, len(c.rows))
	for _, row := range c.rows {
		out = append(out, c.entries[row])
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Entry) int { return cmp.Compare(a.Record.ID, b.Record.ID) })
	return out
}

// All returns an iterator over copies of every record in id order. Each call
// to the returned sequence takes a fresh snapshot.
func (c *Collection) All() iter.Seq[model.Record] {
	return func(yield func(model.Record) bool) {
		for _, e := range c.Entries() {
			if !yield(e.Record.Clone()) {
				return
			}
		}
	}
}

// View is a consistent snapshot of the entries a filter may match.
type View struct {
	// Entries are the candidate entries in row order.
	Entries []*Entry
	// Exact reports whether every entry is known to match. When false the
	// caller must evaluate the filter on each entry's Doc.
	Exact bool
}

// View compiles filter against the metadata index and returns the candidate
// entries, all under one read lock.
func (c *Collection) View(filter *metadata.FilterSet) View {
	c.mu.RLock()
	defer c.mu.RUnlock()

	candidates, exact := c.index.Compile(filter)
	if candidates == nil {
		out := make([]*Entry, 0, len(c.rows))
		for _, e := range c.entries {
			if e != nil {
				out = append(out, e)
			}
		}
		return View{Entries: out, Exact: exact}
	}
	return View{Entries: c.entriesLocked(candidates), Exact: exact}
}

func (c *Collection) entriesLocked(bm *roaring.Bitmap) []*Entry {
	out := make([]*Entry, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		if e := c.entries[it.Next()]; e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Replace swaps the whole content of the collection for records, as done when
// restoring a snapshot. Records are checked before anything is changed.
func (c *Collection) Replace(records []model.Record) error {
	rows := make(map[string]model.RowID, len(records))
	entries := make([]*Entry, 0, len(records))
	index := metadata.NewIndex()

	for _, r := range records {
		if err := c.checkVector(r.ID, r.Vector); err != nil {
			return fmt.Errorf("record %q: %w", r.ID, err)
		}
		if _, dup := rows[r.ID]; dup {
			return fmt.Errorf("record %q: duplicate id", r.ID)
		}
		cv, err := r.Payload.Normalize(c.now())
		if err != nil {
			return fmt.Errorf("record %q: %w", r.ID, err)
		}
		row := model.RowID(len(entries))
		rec := model.Record{ID: r.ID, Vector: slices.Clone(r.Vector), Payload: cv, UpdatedAt: r.UpdatedAt}
		e := &Entry{Row: row, Record: rec, Doc: cv.Document()}
		entries = append(entries, e)
		rows[r.ID] = row
		index.Add(uint32(row), e.Doc)
	}

	c.mu.Lock()
	c.rows = rows
	c.entries = entries
	c.free = nil
	c.index = index
	c.mu.Unlock()

	c.version.Add(1)
	return nil
}
