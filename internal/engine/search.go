package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/varunkamath/rune/internal/querycache"
	"github.com/varunkamath/rune/internal/retriever"
)

// Search runs query against the configured retrievers. It consults the
// query-result cache first; on a miss it dispatches by mode, applies
// offset/limit centrally (retrievers themselves return an unpaginated,
// ranked list), and attempts to populate the cache before returning.
func (e *Engine) Search(ctx context.Context, query SearchQuery) (*SearchResponse, error) {
	start := time.Now()

	key := querycache.NewKey(query.Query, string(query.Mode), query.Repositories, query.FilePatterns, query.limit(), query.Offset)
	if cached, ok := e.cache.Get(key); ok {
		e.cache.Observe(time.Since(start))
		cached.FromCache = true
		return &cached, nil
	}

	ret, err := e.retrieverFor(query.Mode)
	if err != nil {
		return nil, err
	}

	// Fetch enough results to cover this page; a retriever has no concept
	// of offset, so ask for offset+limit and slice locally. total comes
	// from the retriever itself, not len(results), so it stays invariant
	// across calls that only vary offset/limit for the same query.
	fetchLimit := query.Offset + query.limit()
	results, total, err := ret.Search(ctx, query.Query, query.filter(), fetchLimit)
	if err != nil {
		e.cache.Observe(time.Since(start))
		return nil, fmt.Errorf("search: %w", err)
	}

	page := paginate(results, query.Offset, query.limit())

	resp := SearchResponse{
		Query:        query,
		Results:      page,
		TotalMatches: total,
		ElapsedMS:    elapsedMS(time.Since(start)),
		FromCache:    false,
	}

	e.cache.Put(key, query.Query, resp)
	e.cache.Observe(time.Since(start))
	return &resp, nil
}

// Reindex clears the query-result cache (whose entries may reference
// results from files that are about to change) and re-runs a full index
// over every configured workspace root.
func (e *Engine) Reindex(ctx context.Context) error {
	e.cache.Clear()
	_, err := e.indexer.IndexAll(ctx, e.cfg.WorkspaceRoots)
	return err
}

func (e *Engine) retrieverFor(mode Mode) (retriever.Retriever, error) {
	switch mode {
	case ModeLiteral, "":
		return e.literal, nil
	case ModeRegex:
		return e.regex, nil
	case ModeSymbol:
		return e.symbol, nil
	case ModeSemantic:
		if e.semantic == nil {
			return emptyRetriever{}, nil
		}
		return e.semantic, nil
	case ModeHybrid:
		return e.hybrid, nil
	default:
		return nil, fmt.Errorf("search: unknown mode %q", mode)
	}
}

func paginate(results []retriever.SearchResult, offset, limit int) []retriever.SearchResult {
	if offset >= len(results) {
		return []retriever.SearchResult{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}

// emptyRetriever serves semantic-mode queries when the embedding/vector
// pipeline is unavailable: a query never errors, it just yields no hits.
type emptyRetriever struct{}

func (emptyRetriever) Search(ctx context.Context, query string, filter retriever.Filter, limit int) ([]retriever.SearchResult, int, error) {
	return []retriever.SearchResult{}, 0, nil
}
