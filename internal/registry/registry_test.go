package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SRafi007/intellihire-ai/distance"
	"github.com/SRafi007/intellihire-ai/internal/collection"
)

func TestGetOrCreate(t *testing.T) {
	r := New()

	c1, created, err := r.GetOrCreate("cvs", 768, distance.MetricCosine)
	require.NoError(t, err)
	assert.True(t, created)

	c2, created, err := r.GetOrCreate("cvs", 768, distance.MetricCosine)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, c1, c2)
	assert.Equal(t, 1, r.Len())

	t.Run("Conflict", func(t *testing.T) {
		_, _, err := r.GetOrCreate("cvs", 512, distance.MetricCosine)
		var sc *ErrSchemaConflict
		require.ErrorAs(t, err, &sc)
		assert.Equal(t, 768, sc.ExistingDimension)
		assert.Equal(t, 512, sc.RequestedDimension)

		_, _, err = r.GetOrCreate("cvs", 768, distance.MetricDot)
		require.ErrorAs(t, err, &sc)
		assert.Equal(t, distance.MetricDot, sc.RequestedMetric)
		assert.Contains(t, err.Error(), "768/cosine")
	})

	t.Run("InvalidDimension", func(t *testing.T) {
		_, _, err := r.GetOrCreate("bad", 0, distance.MetricCosine)
		assert.ErrorIs(t, err, collection.ErrInvalidDimension)
		_, err = r.Get("bad")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"cvs", "intellihire", "team-a.v2"} {
		assert.NoError(t, ValidateName(name), name)
	}
	for _, name := range []string{"", "  ", ".", "..", "a/b", `a\b`} {
		assert.ErrorIs(t, ValidateName(name), ErrInvalidName, name)
	}
}

func TestGetDeleteList(t *testing.T) {
	r := New()
	_, err := r.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, n := range []string{"b", "a", "c"} {
		_, _, err := r.GetOrCreate(n, 2, distance.MetricCosine)
		require.NoError(t, err)
	}

	var names []string
	for _, c := range r.List() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)

	assert.True(t, r.Delete("b"))
	assert.False(t, r.Delete("b"))
	assert.Equal(t, 2, r.Len())

	c, err := collection.New("b", 4, distance.MetricDot)
	require.NoError(t, err)
	r.Put(c)
	got, err := r.Get("b")
	require.NoError(t, err)
	assert.Same(t, c, got)
}

func TestConcurrentCreateConverges(t *testing.T) {
	r := New()
	const n = 32

	results := make([]*collection.Collection, n)
	createdCount := make([]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, created, err := r.GetOrCreate("cvs", 8, distance.MetricCosine)
			assert.NoError(t, err)
			results[i] = c
			createdCount[i] = created
		}(i)
	}
	wg.Wait()

	creators := 0
	for i := range results {
		assert.Same(t, results[0], results[i])
		if createdCount[i] {
			creators++
		}
	}
	assert.Equal(t, 1, creators)
}
