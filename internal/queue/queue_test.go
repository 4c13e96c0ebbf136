package queue

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopK(t *testing.T) {
	q := NewTopK(3)
	for i, s := range []float32{0.1, 0.9, 0.5, 0.7, 0.2} {
		q.Offer(Item{Row: uint32(i), ID: string(rune('a' + i)), Score: s})
	}

	require.Equal(t, 3, q.Len())
	assert.True(t, q.Full())
	worst, ok := q.Worst()
	require.True(t, ok)
	assert.Equal(t, float32(0.5), worst.Score)

	got := q.Sorted()
	assert.Equal(t, []string{"b", "d", "c"}, idsOf(got))
	assert.Equal(t, 0, q.Len())
}

func TestTopKTieBreak(t *testing.T) {
	q := NewTopK(2)
	q.Offer(Item{ID: "c", Score: 1})
	q.Offer(Item{ID: "a", Score: 1})
	assert.True(t, q.Offer(Item{ID: "b", Score: 1}))
	assert.False(t, q.Offer(Item{ID: "d", Score: 1}))

	assert.Equal(t, []string{"a", "b"}, idsOf(q.Sorted()))
}

func TestTopKZero(t *testing.T) {
	q := NewTopK(0)
	assert.False(t, q.Offer(Item{ID: "a", Score: 1}))
	assert.Empty(t, q.Sorted())
	_, ok := q.Worst()
	assert.False(t, ok)
}

func TestTopKMatchesSort(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	items := make([]Item, 500)
	for i := range items {
		// Coarse scores force plenty of ties.
		items[i] = Item{Row: uint32(i), ID: string(rune('A'+i%26)) + string(rune('a'+i/26)), Score: float32(rng.Intn(20))}
	}

	a, b := NewTopK(17), NewTopK(17)
	for i, it := range items {
		if i%2 == 0 {
			a.Offer(it)
		} else {
			b.Offer(it)
		}
	}
	a.Merge(b)

	want := slices.Clone(items)
	slices.SortFunc(want, func(x, y Item) int {
		if Better(x, y) {
			return -1
		}
		if Better(y, x) {
			return 1
		}
		return 0
	})
	assert.Equal(t, want[:17], a.Sorted())

	a.Reset()
	assert.Equal(t, 0, a.Len())
}

func idsOf(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
