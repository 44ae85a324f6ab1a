package vectorstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreFallsBackToHNSWWhenQdrantUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewStore(ctx, Config{
		Dimensions:    4,
		WorkspaceRoot: "/tmp/fallback-workspace",
		Endpoint:      "127.0.0.1:1",
	})
	defer store.Close()

	require.NotNil(t, store)
	assert.True(t, store.Available(ctx))

	require.NoError(t, store.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1, 0, 0, 0}, Payload: Payload{FilePath: "a.go"}},
	}))
	results, err := store.Search(ctx, []float32{1, 0, 0, 0}, 1, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}
