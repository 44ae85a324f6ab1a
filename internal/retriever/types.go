// Package retriever implements the five search modes (literal, regex,
// symbol, semantic, hybrid) that run over the full-text index, metadata
// store, and vector store built by the indexer.
package retriever

import "context"

// MatchType identifies which retrieval strategy produced a result.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchFuzzy    MatchType = "fuzzy"
	MatchSymbol   MatchType = "symbol"
	MatchSemantic MatchType = "semantic"
)

// SearchResult is one line- or chunk-level hit produced by a retriever.
type SearchResult struct {
	FilePath      string
	Repository    string
	LineNumber    int
	Column        int
	Content       string
	ContextBefore []string
	ContextAfter  []string
	Score         float64
	MatchType     MatchType
}

// Filter narrows a retriever's search to a subset of repositories and/or
// file path patterns. A pattern containing "*" matches any substring in
// its place; a pattern without "*" must match the relative path exactly.
// A zero-value Filter matches everything.
type Filter struct {
	Repositories []string
	FilePatterns []string
}

func (f Filter) allowsRepository(repo string) bool {
	if len(f.Repositories) == 0 {
		return true
	}
	for _, r := range f.Repositories {
		if r == repo {
			return true
		}
	}
	return false
}

func (f Filter) allowsPath(relPath string) bool {
	if len(f.FilePatterns) == 0 {
		return true
	}
	for _, pattern := range f.FilePatterns {
		if matchGlob(pattern, relPath) {
			return true
		}
	}
	return false
}

func (f Filter) allows(repo, relPath string) bool {
	return f.allowsRepository(repo) && f.allowsPath(relPath)
}

// Retriever executes one search mode and returns ranked results plus the
// total number of matches that exist for the query, independent of limit.
// Results themselves are not paginated; the caller (the search engine)
// applies offset/limit centrally, but total must stay invariant across
// calls that only vary offset/limit for the same query.
type Retriever interface {
	Search(ctx context.Context, query string, filter Filter, limit int) (results []SearchResult, total int, err error)
}
