package retriever

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varunkamath/rune/internal/embed"
	"github.com/varunkamath/rune/internal/vectorstore"
)

func openHNSWStore(t *testing.T) vectorstore.Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	store := vectorstore.NewStore(ctx, vectorstore.Config{
		Dimensions:    embed.StaticDimensions,
		WorkspaceRoot: t.TempDir(),
		Endpoint:      "127.0.0.1:1",
	})
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSemanticRetrieverFindsNearestChunk(t *testing.T) {
	root := t.TempDir()
	writeFileT(t, root, "auth.go", "package auth\n")

	embedder := embed.NewStaticEmbedder()
	store := openHNSWStore(t)

	ctx := context.Background()
	vec, err := embedder.Embed(ctx, "authenticate the user with a password")
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, []vectorstore.Point{{
		ID:     vectorstore.PointID("auth.go", 1, 10, "func Authenticate(user, pass string) bool"),
		Vector: vec,
		Payload: vectorstore.Payload{
			Content: "func Authenticate(user, pass string) bool", FilePath: "auth.go", StartLine: 1, EndLine: 10, Language: "go",
		},
	}}))

	r := NewSemanticRetriever(store, embedder, NewRoots([]string{root}))
	results, total, err := r.Search(ctx, "authenticate the user with a password", Filter{}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, MatchSemantic, results[0].MatchType)
	assert.Equal(t, "auth.go", results[0].FilePath)
	assert.Equal(t, 1, results[0].LineNumber)
	assert.Equal(t, len(results), total)
}

func TestSemanticRetrieverRespectsRepositoryFilter(t *testing.T) {
	root := t.TempDir()
	writeFileT(t, root, "auth.go", "package auth\n")

	embedder := embed.NewStaticEmbedder()
	store := openHNSWStore(t)

	ctx := context.Background()
	vec, err := embedder.Embed(ctx, "some chunk content")
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, []vectorstore.Point{{
		ID:      vectorstore.PointID("auth.go", 1, 5, "some chunk content"),
		Vector:  vec,
		Payload: vectorstore.Payload{Content: "some chunk content", FilePath: "auth.go", StartLine: 1, EndLine: 5},
	}}))

	r := NewSemanticRetriever(store, embedder, NewRoots([]string{root}))
	results, total, err := r.Search(ctx, "some chunk content", Filter{Repositories: []string{"nonexistent"}}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, total)
}
