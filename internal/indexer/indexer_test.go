package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varunkamath/rune/internal/chunk"
	"github.com/varunkamath/rune/internal/fulltext"
	"github.com/varunkamath/rune/internal/metadata"
)

func TestNewRequiresMetadataStore(t *testing.T) {
	_, err := New(Config{}, Dependencies{
		FullText:        mustOpenFullText(t),
		CodeChunker:     chunk.NewHeuristicChunker(),
		MarkdownChunker: chunk.NewMarkdownChunker(),
	})
	assert.Error(t, err)
}

func TestNewRequiresFullTextIndex(t *testing.T) {
	_, err := New(Config{}, Dependencies{
		Metadata:        mustOpenMetadata(t),
		CodeChunker:     chunk.NewHeuristicChunker(),
		MarkdownChunker: chunk.NewMarkdownChunker(),
	})
	assert.Error(t, err)
}

func TestNewRequiresBothChunkers(t *testing.T) {
	_, err := New(Config{}, Dependencies{
		Metadata:    mustOpenMetadata(t),
		FullText:    mustOpenFullText(t),
		CodeChunker: chunk.NewHeuristicChunker(),
	})
	assert.Error(t, err)
}

func TestNewRequiresVectorAndEmbedderWhenSemanticEnabled(t *testing.T) {
	_, err := New(Config{SemanticEnabled: true}, Dependencies{
		Metadata:        mustOpenMetadata(t),
		FullText:        mustOpenFullText(t),
		CodeChunker:     chunk.NewHeuristicChunker(),
		MarkdownChunker: chunk.NewMarkdownChunker(),
	})
	assert.Error(t, err)
}

func TestNewSucceedsWithMinimalNonSemanticDependencies(t *testing.T) {
	ix, err := New(Config{}, Dependencies{
		Metadata:        mustOpenMetadata(t),
		FullText:        mustOpenFullText(t),
		CodeChunker:     chunk.NewHeuristicChunker(),
		MarkdownChunker: chunk.NewMarkdownChunker(),
	})
	assert.NoError(t, err)
	assert.NotNil(t, ix)
	assert.Equal(t, uint64(0), ix.RunCount())
	assert.False(t, ix.Watching())
}

func TestChunkerForDispatchesOnLanguage(t *testing.T) {
	codeChunker := chunk.NewHeuristicChunker()
	mdChunker := chunk.NewMarkdownChunker()
	ix, err := New(Config{}, Dependencies{
		Metadata:        mustOpenMetadata(t),
		FullText:        mustOpenFullText(t),
		CodeChunker:     codeChunker,
		MarkdownChunker: mdChunker,
	})
	assert.NoError(t, err)

	assert.Equal(t, mdChunker, ix.chunkerFor("markdown"))
	assert.Equal(t, codeChunker, ix.chunkerFor("go"))
	assert.Equal(t, codeChunker, ix.chunkerFor(""))
}

func mustOpenMetadata(t *testing.T) *metadata.Store {
	t.Helper()
	meta, err := metadata.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = meta.Close() })
	return meta
}

func mustOpenFullText(t *testing.T) *fulltext.Index {
	t.Helper()
	ft, err := fulltext.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ft.Close() })
	return ft
}
