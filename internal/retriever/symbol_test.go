package retriever

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varunkamath/rune/internal/fulltext"
)

func TestSymbolRetrieverFindsDefinitionLine(t *testing.T) {
	root := t.TempDir()
	content := "package main\n\nfunc Widget() {\n\treturn\n}\n"
	writeFileT(t, root, "widget.go", content)

	ft := openFullText(t)
	ctx := context.Background()
	require.NoError(t, ft.Put(ctx, []fulltext.Document{{
		Path: "widget.go", Content: content, Language: "go",
		Symbols:    []fulltext.SymbolRef{{Kind: "function", Name: "Widget"}},
		Repository: filepath.Base(root),
	}}))

	r := NewSymbolRetriever(ft, NewRoots([]string{root}))
	results, total, err := r.Search(ctx, "Widget", Filter{}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, MatchSymbol, results[0].MatchType)
	assert.Equal(t, 3, results[0].LineNumber)
	assert.Contains(t, results[0].Content, "func Widget")
	assert.Equal(t, 1, total)
}

func TestSymbolRetrieverEmptyQueryReturnsEmpty(t *testing.T) {
	ft := openFullText(t)
	r := NewSymbolRetriever(ft, NewRoots(nil))
	results, total, err := r.Search(context.Background(), "  ", Filter{}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, total)
}
