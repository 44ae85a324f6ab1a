package retriever

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varunkamath/rune/internal/fulltext"
)

func writeFileT(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func openFullText(t *testing.T) *fulltext.Index {
	t.Helper()
	ft, err := fulltext.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ft.Close() })
	return ft
}

func TestLiteralRetrieverFindsSingleWordOccurrences(t *testing.T) {
	root := t.TempDir()
	content := "package main\n\nfunc Hello() {\n\tprintln(\"hello world\")\n}\n"
	writeFileT(t, root, "main.go", content)

	ft := openFullText(t)
	ctx := context.Background()
	require.NoError(t, ft.Put(ctx, []fulltext.Document{{Path: "main.go", Content: content, Language: "go", Repository: filepath.Base(root)}}))

	r := NewLiteralRetriever(ft, NewRoots([]string{root}))
	results, total, err := r.Search(ctx, "hello", Filter{}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, 1, total)
	for _, res := range results {
		assert.Equal(t, MatchExact, res.MatchType)
		assert.Equal(t, "main.go", res.FilePath)
	}
}

func TestLiteralRetrieverBoostsMultiWordLines(t *testing.T) {
	root := t.TempDir()
	content := "one line has alpha only\nanother line has alpha and beta together\n"
	writeFileT(t, root, "f.go", content)

	ft := openFullText(t)
	ctx := context.Background()
	require.NoError(t, ft.Put(ctx, []fulltext.Document{{Path: "f.go", Content: content, Language: "go", Repository: filepath.Base(root)}}))

	r := NewLiteralRetriever(ft, NewRoots([]string{root}))
	results, _, err := r.Search(ctx, "alpha beta", Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	var singleTermScore, bothTermsScore float64
	for _, res := range results {
		if res.LineNumber == 1 {
			singleTermScore = res.Score
		} else {
			bothTermsScore = res.Score
		}
	}
	assert.Greater(t, bothTermsScore, singleTermScore)
}

func TestLiteralRetrieverRespectsRepositoryFilter(t *testing.T) {
	root := t.TempDir()
	content := "package main\n\nfunc Target() {}\n"
	writeFileT(t, root, "main.go", content)

	ft := openFullText(t)
	ctx := context.Background()
	require.NoError(t, ft.Put(ctx, []fulltext.Document{{Path: "main.go", Content: content, Language: "go", Repository: filepath.Base(root)}}))

	r := NewLiteralRetriever(ft, NewRoots([]string{root}))
	results, _, err := r.Search(ctx, "Target", Filter{Repositories: []string{"some-other-repo"}}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLiteralRetrieverEmptyQueryReturnsEmpty(t *testing.T) {
	ft := openFullText(t)
	r := NewLiteralRetriever(ft, NewRoots(nil))
	results, total, err := r.Search(context.Background(), "   ", Filter{}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, total)
}
