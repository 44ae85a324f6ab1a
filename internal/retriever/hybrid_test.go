package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	results []SearchResult
	total   int
}

func (f *fakeRetriever) Search(ctx context.Context, query string, filter Filter, limit int) ([]SearchResult, int, error) {
	total := f.total
	if total == 0 {
		total = len(f.results)
	}
	return f.results, total, nil
}

func TestHybridRetrieverSumsRanksAcrossRetrievers(t *testing.T) {
	literal := &fakeRetriever{results: []SearchResult{
		{FilePath: "a.go", LineNumber: 10, MatchType: MatchExact, Content: "line a"},
		{FilePath: "b.go", LineNumber: 20, MatchType: MatchExact, Content: "line b"},
	}}
	symbol := &fakeRetriever{results: []SearchResult{
		{FilePath: "a.go", LineNumber: 10, MatchType: MatchSymbol, Content: "line a"},
	}}

	h := NewHybridRetriever(literal, symbol, nil)
	results, _, err := h.Search(context.Background(), "query", Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// a.go:10 appears in both lists, so it must outrank b.go:20 which
	// appears only in the literal list.
	assert.Equal(t, "a.go", results[0].FilePath)
	assert.Equal(t, 10, results[0].LineNumber)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestHybridRetrieverPreservesFirstSeenMetadata(t *testing.T) {
	literal := &fakeRetriever{results: []SearchResult{
		{FilePath: "a.go", LineNumber: 1, MatchType: MatchExact, Content: "from literal"},
	}}
	symbol := &fakeRetriever{results: []SearchResult{
		{FilePath: "a.go", LineNumber: 1, MatchType: MatchSymbol, Content: "from symbol"},
	}}

	h := NewHybridRetriever(literal, symbol, nil)
	results, _, err := h.Search(context.Background(), "query", Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, MatchExact, results[0].MatchType)
	assert.Equal(t, "from literal", results[0].Content)
}

func TestHybridRetrieverRunsWithoutSemantic(t *testing.T) {
	literal := &fakeRetriever{results: []SearchResult{{FilePath: "a.go", LineNumber: 1}}}
	symbol := &fakeRetriever{}

	h := NewHybridRetriever(literal, symbol, nil)
	results, _, err := h.Search(context.Background(), "query", Filter{}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestHybridRetrieverAppliesLimit(t *testing.T) {
	literal := &fakeRetriever{results: []SearchResult{
		{FilePath: "a.go", LineNumber: 1},
		{FilePath: "b.go", LineNumber: 2},
		{FilePath: "c.go", LineNumber: 3},
	}}
	symbol := &fakeRetriever{}

	h := NewHybridRetriever(literal, symbol, nil)
	results, _, err := h.Search(context.Background(), "query", Filter{}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestHybridRetrieverTotalReflectsLargestComponentTotal(t *testing.T) {
	literal := &fakeRetriever{results: []SearchResult{{FilePath: "a.go", LineNumber: 1}}, total: 50}
	symbol := &fakeRetriever{results: []SearchResult{{FilePath: "b.go", LineNumber: 2}}, total: 5}

	h := NewHybridRetriever(literal, symbol, nil)
	_, total, err := h.Search(context.Background(), "query", Filter{}, 10)
	require.NoError(t, err)
	assert.Equal(t, 50, total)
}
