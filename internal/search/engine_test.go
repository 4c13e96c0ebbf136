package search

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SRafi007/intellihire-ai/distance"
	"github.com/SRafi007/intellihire-ai/internal/collection"
	"github.com/SRafi007/intellihire-ai/metadata"
	"github.com/SRafi007/intellihire-ai/model"
)

func raw(id string, years float64, skills ...string) map[string]any {
	if skills == nil {
		skills = []string{}
	}
	return map[string]any{
		"cv_id":            id,
		"name":             "Candidate " + id,
		"email":            id + "@example.com",
		"years_experience": years,
		"skills":           skills,
	}
}

func newCollection(t *testing.T, dim int, metric distance.Metric) *collection.Collection {
	t.Helper()
	c, err := collection.New("cvs", dim, metric)
	require.NoError(t, err)
	return c
}

func upsert(t *testing.T, c *collection.Collection, id string, vec []float32, years float64, skills ...string) {
	t.Helper()
	_, err := c.Upsert(id, vec, raw(id, years, skills...))
	require.NoError(t, err)
}

func scored(results []model.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = fmt.Sprintf("%s:%.3f", r.ID, r.Score)
	}
	return out
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	e := New()

	t.Run("CosineDeterminism", func(t *testing.T) {
		c := newCollection(t, 2, distance.MetricCosine)
		upsert(t, c, "A", []float32{1, 0}, 1)
		upsert(t, c, "B", []float32{0, 1}, 1)

		res, err := e.Search(ctx, c, []float32{1, 0}, 2, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"A:1.000", "B:0.000"}, scored(res))
	})

	t.Run("TieBreakByID", func(t *testing.T) {
		c := newCollection(t, 2, distance.MetricCosine)
		upsert(t, c, "z", []float32{1, 1}, 1)
		upsert(t, c, "m", []float32{2, 2}, 1)
		upsert(t, c, "a", []float32{3, 3}, 1)

		res, err := e.Search(ctx, c, []float32{1, 1}, 2, nil)
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, "a", res[0].ID)
		assert.Equal(t, "m", res[1].ID)
	})

	t.Run("Filter", func(t *testing.T) {
		c := newCollection(t, 2, distance.MetricCosine)
		upsert(t, c, "junior", []float32{1, 0}, 2, "python")
		upsert(t, c, "senior", []float32{0.8, 0.2}, 6, "python", "go")
		upsert(t, c, "lead", []float32{0.1, 0.9}, 10, "java")

		res, err := e.Search(ctx, c, []float32{1, 0}, 10, metadata.NewFilterSet(metadata.Gte("years_experience", 5)))
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, "senior", res[0].ID)
		assert.Equal(t, "lead", res[1].ID)
		for _, r := range res {
			assert.GreaterOrEqual(t, r.Payload.YearsExperience, 5.0)
		}

		res, err = e.Search(ctx, c, []float32{1, 0}, 10, metadata.NewFilterSet(metadata.Eq("skills", "python")))
		require.NoError(t, err)
		assert.Equal(t, []string{"junior", "senior"}, []string{res[0].ID, res[1].ID})

		res, err = e.Search(ctx, c, []float32{1, 0}, 10, metadata.NewFilterSet(metadata.Contains("name", "lead")))
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "lead", res[0].ID)
	})

	t.Run("EmptyResultIsNotError", func(t *testing.T) {
		c := newCollection(t, 2, distance.MetricCosine)
		res, err := e.Search(ctx, c, []float32{1, 0}, 3, nil)
		require.NoError(t, err)
		assert.NotNil(t, res)
		assert.Empty(t, res)

		upsert(t, c, "A", []float32{1, 0}, 1)
		res, err = e.Search(ctx, c, []float32{1, 0}, 3, metadata.NewFilterSet(metadata.Gt("years_experience", 50)))
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("Euclidean", func(t *testing.T) {
		c := newCollection(t, 2, distance.MetricEuclidean)
		upsert(t, c, "far", []float32{10, 0}, 1)
		upsert(t, c, "near", []float32{1, 1}, 1)

		res, err := e.Search(ctx, c, []float32{0, 0}, 2, nil)
		require.NoError(t, err)
		assert.Equal(t, "near", res[0].ID)
		assert.InDelta(t, -math.Sqrt2, res[0].Score, 1e-6)
		assert.InDelta(t, -10, res[1].Score, 1e-6)
	})

	t.Run("Dot", func(t *testing.T) {
		c := newCollection(t, 2, distance.MetricDot)
		upsert(t, c, "small", []float32{1, 0}, 1)
		upsert(t, c, "big", []float32{5, 0}, 1)

		res, err := e.Search(ctx, c, []float32{1, 0}, 1, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"big:5.000"}, scored(res))
	})

	t.Run("ResultsAreCopies", func(t *testing.T) {
		c := newCollection(t, 2, distance.MetricCosine)
		upsert(t, c, "A", []float32{1, 0}, 1)
		res, err := e.Search(ctx, c, []float32{1, 0}, 1, nil)
		require.NoError(t, err)
		res[0].Vector[0] = 42

		got, _ := c.Get("A")
		assert.Equal(t, float32(1), got.Vector[0])
	})
}

func TestSearchErrors(t *testing.T) {
	ctx := context.Background()
	e := New()
	c := newCollection(t, 3, distance.MetricCosine)

	_, err := e.Search(ctx, c, []float32{1, 0, 0}, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = e.Search(ctx, c, []float32{1, 0}, 1, nil)
	var dm *collection.ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Actual)

	_, err = e.Search(ctx, c, []float32{1, float32(math.Inf(1)), 0}, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = e.Search(ctx, c, []float32{1, 0, 0}, 1, metadata.NewFilterSet(metadata.Gt("years_experience", "five")))
	assert.ErrorIs(t, err, ErrInvalidFilter)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = e.Search(cancelled, c, []float32{1, 0, 0}, 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParallelMatchesSequential(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	const dim = 8

	c := newCollection(t, dim, distance.MetricCosine)
	for i := 0; i < 2000; i++ {
		vec := make([]float32, dim)
		for j := range vec {
			// Coarse components produce exact score ties.
			vec[j] = float32(rng.Intn(3))
		}
		upsert(t, c, fmt.Sprintf("cv-%04d", i), vec, float64(rng.Intn(12)), "go")
	}

	query := []float32{1, 2, 0, 1, 1, 0, 2, 1}
	filter := metadata.NewFilterSet(metadata.Gte("years_experience", 3))

	sequential := New(WithParallelThreshold(0))
	parallel := New(WithParallelThreshold(100), WithMaxPartitions(7))

	want, err := sequential.Search(ctx, c, query, 25, filter)
	require.NoError(t, err)
	got, err := parallel.Search(ctx, c, query, 25, filter)
	require.NoError(t, err)

	require.Len(t, got, 25)
	assert.Equal(t, scored(want), scored(got))
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		assert.True(t, prev.Score > cur.Score || (prev.Score == cur.Score && prev.ID < cur.ID))
	}
}
