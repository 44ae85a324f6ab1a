package retriever

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

const hybridRRFConstant = 60

type resultKey struct {
	filePath   string
	lineNumber int
}

// HybridRetriever runs literal, symbol, and (when configured) semantic
// retrieval in parallel and fuses their ranked lists by reciprocal rank:
// each contributes 1/(k+rank) to an accumulator keyed by (file_path,
// line_number); a hit found by more than one retriever sums their
// contributions. The emitted result's fields other than Score come from
// whichever retriever found that key first.
type HybridRetriever struct {
	literal  Retriever
	symbol   Retriever
	semantic Retriever // nil when semantic indexing is disabled
}

func NewHybridRetriever(literal, symbol, semantic Retriever) *HybridRetriever {
	return &HybridRetriever{literal: literal, symbol: symbol, semantic: semantic}
}

// Search's reported total is the largest total any single component
// retriever reported for this query: the fused set dedups across
// retrievers, so its own size undercounts once two retrievers find the
// same line, and there's no well-defined union total without re-running
// every component retriever unbounded.
func (r *HybridRetriever) Search(ctx context.Context, query string, filter Filter, limit int) ([]SearchResult, int, error) {
	retrievers := []Retriever{r.literal, r.symbol}
	if r.semantic != nil {
		retrievers = append(retrievers, r.semantic)
	}

	lists := make([][]SearchResult, len(retrievers))
	totals := make([]int, len(retrievers))
	g, gctx := errgroup.WithContext(ctx)
	for i, ret := range retrievers {
		i, ret := i, ret
		g.Go(func() error {
			results, total, err := ret.Search(gctx, query, filter, limit)
			if err != nil {
				return err
			}
			lists[i] = results
			totals[i] = total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	total := 0
	for _, t := range totals {
		if t > total {
			total = t
		}
	}

	scores := make(map[resultKey]float64)
	first := make(map[resultKey]SearchResult)
	var order []resultKey

	for _, list := range lists {
		for rank, res := range list {
			key := resultKey{filePath: res.FilePath, lineNumber: res.LineNumber}
			if _, seen := first[key]; !seen {
				first[key] = res
				order = append(order, key)
			}
			scores[key] += 1.0 / float64(hybridRRFConstant+rank+1)
		}
	}

	fused := make([]SearchResult, 0, len(order))
	for _, key := range order {
		res := first[key]
		res.Score = scores[key]
		fused = append(fused, res)
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})

	if limit > 0 && len(fused) > limit {
		fused = fused[:limit]
	}
	if total < len(fused) {
		total = len(fused)
	}
	return fused, total, nil
}
