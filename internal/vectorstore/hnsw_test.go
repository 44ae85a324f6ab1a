package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHNSWStoreUpsertAndSearch(t *testing.T) {
	s := newHNSWStore(3)
	ctx := context.Background()

	err := s.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1, 0, 0}, Payload: Payload{FilePath: "a.go", Content: "a"}},
		{ID: "b", Vector: []float32{0, 1, 0}, Payload: Payload{FilePath: "b.go", Content: "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count())

	results, err := s.Search(ctx, []float32{1, 0, 0}, 1, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
}

func TestHNSWStoreUpsertReplacesExistingID(t *testing.T) {
	s := newHNSWStore(2)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Point{{ID: "x", Vector: []float32{1, 0}, Payload: Payload{Content: "v1"}}}))
	require.NoError(t, s.Upsert(ctx, []Point{{ID: "x", Vector: []float32{0, 1}, Payload: Payload{Content: "v2"}}}))

	assert.Equal(t, 1, s.Count())
	results, err := s.Search(ctx, []float32{0, 1}, 1, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v2", results[0].Payload.Content)
}

func TestHNSWStoreSearchAppliesFilter(t *testing.T) {
	s := newHNSWStore(2)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Point{
		{ID: "go", Vector: []float32{1, 0}, Payload: Payload{Language: "go"}},
		{ID: "rs", Vector: []float32{0.9, 0.1}, Payload: Payload{Language: "rust"}},
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 5, Filter{Language: "rust"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rs", results[0].ID)
}

func TestHNSWStoreDeleteRemovesFromResults(t *testing.T) {
	s := newHNSWStore(2)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Point{{ID: "a", Vector: []float32{1, 0}}}))
	require.NoError(t, s.Delete(ctx, []string{"a"}))

	assert.Equal(t, 0, s.Count())
	results, err := s.Search(ctx, []float32{1, 0}, 5, Filter{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWStoreClearResetsGraph(t *testing.T) {
	s := newHNSWStore(2)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Point{{ID: "a", Vector: []float32{1, 0}}}))
	require.NoError(t, s.Clear(ctx))

	assert.Equal(t, 0, s.Count())
	assert.True(t, s.Available(ctx))
}

func TestHNSWStoreRejectsDimensionMismatch(t *testing.T) {
	s := newHNSWStore(3)
	err := s.Upsert(context.Background(), []Point{{ID: "a", Vector: []float32{1, 0}}})
	assert.Error(t, err)

	_, err = s.Search(context.Background(), []float32{1, 0}, 1, Filter{})
	assert.Error(t, err)
}

func TestHNSWStoreCloseMakesUnavailable(t *testing.T) {
	s := newHNSWStore(2)
	ctx := context.Background()
	assert.True(t, s.Available(ctx))

	require.NoError(t, s.Close())
	assert.False(t, s.Available(ctx))

	err := s.Upsert(ctx, []Point{{ID: "a", Vector: []float32{1, 0}}})
	assert.Error(t, err)
}
