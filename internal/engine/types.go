// Package engine wires every other component together into the facade a
// CLI or long-running process actually talks to: it owns the metadata
// store, full-text index, vector store, indexer, retrievers, and
// query-result cache for one workspace, and exposes search, reindex,
// start/stop watching, and stats.
package engine

import (
	"time"

	"github.com/varunkamath/rune/internal/retriever"
)

// Mode selects which retrieval strategy a SearchQuery dispatches to.
type Mode string

const (
	ModeLiteral  Mode = "literal"
	ModeRegex    Mode = "regex"
	ModeSymbol   Mode = "symbol"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// SearchQuery is an immutable search request. Two queries with equal
// fields (after sorting Repositories/FilePatterns) produce the same cache
// key regardless of slice order; see querycache.NewKey.
type SearchQuery struct {
	Query        string
	Mode         Mode
	Repositories []string
	FilePatterns []string
	Offset       int
	Limit        int
}

// SearchResponse is what Search returns: the query echoed back, the
// paginated and ordered results, the total match count before pagination,
// how long the search took, and whether it was served from cache.
type SearchResponse struct {
	Query        SearchQuery
	Results      []retriever.SearchResult
	TotalMatches int
	ElapsedMS    int64
	FromCache    bool
}

func (q SearchQuery) limit() int {
	if q.Limit <= 0 {
		return 10
	}
	return q.Limit
}

func (q SearchQuery) filter() retriever.Filter {
	return retriever.Filter{Repositories: q.Repositories, FilePatterns: q.FilePatterns}
}

// Stats summarizes a workspace's indexed state.
type Stats struct {
	FileCount     int
	SymbolCount   int
	IndexBytes    int64
	CacheBytes    int64
	Watching      bool
}

// LegacySymbolEstimateFactor is the per-file symbol count used only as a
// fallback for a workspace that predates symbol-count tracking (every
// file-record's count is still zero because it was indexed before
// SetSymbolCount existed).
const LegacySymbolEstimateFactor = 20

// elapsedMS rounds a duration to whole milliseconds for response reporting.
func elapsedMS(d time.Duration) int64 {
	return d.Milliseconds()
}
