package metadata

import (
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// Index is an inverted index over metadata documents keyed by uint32 row IDs.
//
// Architecture:
//   - inverted: field -> valueKey -> bitmap of row IDs (equality, in)
//   - numeric: field -> columnar (value, rowID) pairs sorted by value (ranges)
//   - present: field -> bitmap of row IDs that carry the field (not-equal)
//
// Array values are indexed both as a whole and per element, which mirrors the
// any-element semantics of Filter.Matches.
//
// Index is not safe for concurrent use. Callers must hold a write lock for Add
// and Remove and at least a read lock for Compile.
type Index struct {
	inverted map[string]map[string]*roaring.Bitmap
	numeric  map[string]*numericColumn
	present  map[string]*roaring.Bitmap
	all      *roaring.Bitmap
}

// numericColumn stores (value, rowID) pairs sorted ascending by value, then rowID.
// Invariant: len(values) == len(rowIDs).
type numericColumn struct {
	values []float64
	rowIDs []uint32
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		inverted: make(map[string]map[string]*roaring.Bitmap),
		numeric:  make(map[string]*numericColumn),
		present:  make(map[string]*roaring.Bitmap),
		all:      roaring.New(),
	}
}

// Len returns the number of indexed rows.
func (ix *Index) Len() int {
	return int(ix.all.GetCardinality())
}

// Add indexes doc under id. Re-adding an id requires a prior Remove with the
// previously indexed document.
func (ix *Index) Add(id uint32, doc Document) {
	ix.all.Add(id)
	for key, value := range doc {
		bitmapFor(ix.present, key).Add(id)
		ix.addValue(key, value, id)
		if value.Kind == KindArray {
			for _, e := range value.A {
				ix.addValue(key, e, id)
			}
		}
	}
}

// Remove drops id and the postings produced by doc.
func (ix *Index) Remove(id uint32, doc Document) {
	ix.all.Remove(id)
	for key, value := range doc {
		if bm, ok := ix.present[key]; ok {
			bm.Remove(id)
			if bm.IsEmpty() {
				delete(ix.present, key)
			}
		}
		ix.removeValue(key, value, id)
		if value.Kind == KindArray {
			for _, e := range value.A {
				ix.removeValue(key, e, id)
			}
		}
	}
}

func (ix *Index) addValue(key string, value Value, id uint32) {
	valueMap, ok := ix.inverted[key]
	if !ok {
		valueMap = make(map[string]*roaring.Bitmap)
		ix.inverted[key] = valueMap
	}
	bitmapFor(valueMap, value.Key()).Add(id)

	if n, ok := value.AsFloat64(); ok && !math.IsNaN(n) {
		col, ok := ix.numeric[key]
		if !ok {
			col = &numericColumn{}
			ix.numeric[key] = col
		}
		col.insert(n, id)
	}
}

func (ix *Index) removeValue(key string, value Value, id uint32) {
	if valueMap, ok := ix.inverted[key]; ok {
		valueKey := value.Key()
		if bm, ok := valueMap[valueKey]; ok {
			bm.Remove(id)
			// Clean up empty bitmaps
			if bm.IsEmpty() {
				delete(valueMap, valueKey)
				if len(valueMap) == 0 {
					delete(ix.inverted, key)
				}
			}
		}
	}

	if n, ok := value.AsFloat64(); ok && !math.IsNaN(n) {
		if col, ok := ix.numeric[key]; ok {
			col.remove(n, id)
			if len(col.values) == 0 {
				delete(ix.numeric, key)
			}
		}
	}
}

func bitmapFor(m map[string]*roaring.Bitmap, key string) *roaring.Bitmap {
	bm, ok := m[key]
	if !ok {
		bm = roaring.New()
		m[key] = bm
	}
	return bm
}

// search returns the position of (value, id) or where it would be inserted.
func (c *numericColumn) search(value float64, id uint32) int {
	return sort.Search(len(c.values), func(i int) bool {
		if c.values[i] != value {
			return c.values[i] > value
		}
		return c.rowIDs[i] >= id
	})
}

func (c *numericColumn) insert(value float64, id uint32) {
	i := c.search(value, id)
	if i < len(c.values) && c.values[i] == value && c.rowIDs[i] == id {
		// An array with repeated numbers indexes the pair once.
		return
	}
	c.values = append(c.values, 0)
	c.rowIDs = append(c.rowIDs, 0)
	copy(c.values[i+1:], c.values[i:])
	copy(c.rowIDs[i+1:], c.rowIDs[i:])
	c.values[i] = value
	c.rowIDs[i] = id
}

func (c *numericColumn) remove(value float64, id uint32) {
	i := c.search(value, id)
	if i >= len(c.values) || c.values[i] != value || c.rowIDs[i] != id {
		return
	}
	c.values = append(c.values[:i], c.values[i+1:]...)
	c.rowIDs = append(c.rowIDs[:i], c.rowIDs[i+1:]...)
}

// rangeBitmap returns the rows whose value satisfies op against bound.
func (c *numericColumn) rangeBitmap(op Operator, bound float64) *roaring.Bitmap {
	n := len(c.values)
	lo, hi := 0, n
	switch op {
	case OpGreaterThan:
		lo = sort.Search(n, func(i int) bool { return c.values[i] > bound })
	case OpGreaterEqual:
		lo = sort.Search(n, func(i int) bool { return c.values[i] >= bound })
	case OpLessThan:
		hi = sort.Search(n, func(i int) bool { return c.values[i] >= bound })
	case OpLessEqual:
		hi = sort.Search(n, func(i int) bool { return c.values[i] > bound })
	}
	bm := roaring.New()
	if lo < hi {
		bm.AddMany(c.rowIDs[lo:hi])
	}
	return bm
}

// Compile evaluates the indexable filters of fs into a bitmap of candidate
// rows.
//
// A nil bitmap means every row is a candidate. exact reports whether the
// bitmap is the final answer; when false the caller must still evaluate
// fs.Matches on each candidate (OpContains is never indexed).
func (ix *Index) Compile(fs *FilterSet) (candidates *roaring.Bitmap, exact bool) {
	if fs.IsEmpty() {
		return nil, true
	}

	exact = true
	for i := range fs.Filters {
		f := &fs.Filters[i]
		bm, ok := ix.compileFilter(f)
		if !ok {
			exact = false
			continue
		}

		// Intersect with previous results (AND operation)
		if candidates == nil {
			candidates = bm.Clone()
		} else {
			candidates.And(bm)
		}

		// Early termination if result is empty
		if candidates.IsEmpty() {
			return candidates, true
		}
	}
	return candidates, exact
}

// compileFilter returns the matching rows for one filter. The returned bitmap
// may alias index state and must not be modified.
func (ix *Index) compileFilter(f *Filter) (*roaring.Bitmap, bool) {
	switch f.Operator {
	case OpEqual:
		return ix.lookup(f.Key, f.Value), true

	case OpNotEqual:
		present, ok := ix.present[f.Key]
		if !ok {
			return roaring.New(), true
		}
		return roaring.AndNot(present, ix.lookup(f.Key, f.Value)), true

	case OpIn:
		arr, ok := f.Value.AsArray()
		if !ok {
			return roaring.New(), true
		}
		out := roaring.New()
		for _, v := range arr {
			out.Or(ix.lookup(f.Key, v))
		}
		return out, true

	case OpGreaterThan, OpGreaterEqual, OpLessThan, OpLessEqual:
		bound, ok := f.Value.AsFloat64()
		if !ok || math.IsNaN(bound) {
			return roaring.New(), true
		}
		col, ok := ix.numeric[f.Key]
		if !ok {
			return roaring.New(), true
		}
		return col.rangeBitmap(f.Operator, bound), true

	default:
		return nil, false
	}
}

var emptyBitmap = roaring.New()

func (ix *Index) lookup(key string, value Value) *roaring.Bitmap {
	if valueMap, ok := ix.inverted[key]; ok {
		if bm, ok := valueMap[value.Key()]; ok {
			return bm
		}
	}
	return emptyBitmap
}

// Stats returns statistics about the index.
type Stats struct {
	RowCount    int    // Indexed rows
	FieldCount  int    // Number of indexed fields
	BitmapCount int    // Number of posting bitmaps
	MemoryBytes uint64 // Estimated bitmap memory usage
}

// Stats returns statistics about the index.
func (ix *Index) Stats() Stats {
	stats := Stats{
		RowCount:   ix.Len(),
		FieldCount: len(ix.present),
	}
	for _, valueMap := range ix.inverted {
		for _, bm := range valueMap {
			stats.BitmapCount++
			stats.MemoryBytes += bm.GetSizeInBytes()
		}
	}
	for _, col := range ix.numeric {
		stats.MemoryBytes += uint64(len(col.values)) * 12
	}
	return stats
}
