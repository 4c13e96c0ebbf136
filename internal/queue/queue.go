// Package queue provides the bounded heap used to keep the best k search hits.
package queue

import "container/heap"

// Compile time check to ensure TopK satisfies the heap interface.
var _ heap.Interface = (*TopK)(nil)

// Item is a scored candidate.
type Item struct {
	Row   uint32  // Row identifies the candidate to the caller.
	ID    string  // ID breaks score ties, ascending.
	Score float32 // Score is the similarity, higher is better.
}

// Better reports whether a ranks ahead of b: higher score first, then
// ascending id.
func Better(a, b Item) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

// TopK keeps the k best items seen so far.
//
// Internally it is a heap whose root is the worst retained item, so a new
// candidate only has to beat the root to get in.
type TopK struct {
	k     int
	items []Item // Value-based storage (no pointer indirection)
}

// NewTopK creates a queue that retains at most k items.
func NewTopK(k int) *TopK {
	capacity := k
	if capacity > 1024 {
		capacity = 1024
	}
	return &TopK{k: k, items: make([]Item, 0, capacity)}
}

// Offer adds item if it ranks among the k best. It reports whether the item
// was retained.
func (q *TopK) Offer(item Item) bool {
	if q.k <= 0 {
		return false
	}
	if len(q.items) < q.k {
		q.items = append(q.items, item)
		q.siftUp(len(q.items) - 1)
		return true
	}
	if !Better(item, q.items[0]) {
		return false
	}
	q.items[0] = item
	q.siftDown(0)
	return true
}

// Worst returns the lowest ranked retained item.
func (q *TopK) Worst() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

// Full reports whether k items are retained.
func (q *TopK) Full() bool { return len(q.items) >= q.k }

// Merge offers every item retained by other.
func (q *TopK) Merge(other *TopK) {
	for _, it := range other.items {
		q.Offer(it)
	}
}

// Sorted drains the queue and returns the items best first.
func (q *TopK) Sorted() []Item {
	out := make([]Item, len(q.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(q).(Item)
	}
	return out
}

// Reset clears the queue for reuse.
func (q *TopK) Reset() {
	q.items = q.items[:0]
}

func (q *TopK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.Less(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *TopK) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		worst := l
		r := l + 1
		if r < n && q.Less(r, l) {
			worst = r
		}
		if !q.Less(worst, i) {
			return
		}
		q.items[i], q.items[worst] = q.items[worst], q.items[i]
		i = worst
	}
}

// Len returns the number of retained items.
func (q *TopK) Len() int { return len(q.items) }

// Less orders the heap with the worst item at the root.
func (q *TopK) Less(i, j int) bool { return Better(q.items[j], q.items[i]) }

// Swap swaps the elements with indexes i and j.
func (q *TopK) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

// Push adds x to the heap. Use Offer to respect the bound.
func (q *TopK) Push(x any) { q.items = append(q.items, x.(Item)) }

// Pop removes and returns the last element.
func (q *TopK) Pop() any {
	n := len(q.items)
	if n == 0 {
		return Item{}
	}
	item := q.items[n-1]
	q.items[n-1] = Item{} // Zero out for GC
	q.items = q.items[:n-1]
	return item
}
