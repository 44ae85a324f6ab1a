package retriever

import (
	"context"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/varunkamath/rune/internal/metadata"
)

// RegexRetriever compiles and caches the supplied pattern, lists candidate
// paths from the metadata store (respecting filters), and scans each
// candidate file line by line for matches. Every match is a fixed-score
// hit; the pattern itself ranks results, not a similarity score.
type RegexRetriever struct {
	metadata *metadata.Store
	roots    Roots

	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

func NewRegexRetriever(meta *metadata.Store, roots Roots) *RegexRetriever {
	return &RegexRetriever{metadata: meta, roots: roots, cache: make(map[string]*regexp.Regexp)}
}

func (r *RegexRetriever) compile(pattern string) (*regexp.Regexp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if re, ok := r.cache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	r.cache[pattern] = re
	return re, nil
}

// Search scans every candidate path for matches before truncating to limit,
// so the reported total is the genuine match count rather than one capped at
// whatever page was requested.
func (r *RegexRetriever) Search(ctx context.Context, query string, filter Filter, limit int) ([]SearchResult, int, error) {
	re, err := r.compile(query)
	if err != nil {
		return nil, 0, err
	}

	paths, err := r.metadata.ListPaths(ctx)
	if err != nil {
		return nil, 0, err
	}

	var results []SearchResult
	for _, relPath := range paths {
		select {
		case <-ctx.Done():
			return results, len(results), ctx.Err()
		default:
		}

		absPath, repo, ok := r.roots.Resolve(relPath)
		if !ok || !filter.allows(repo, relPath) {
			continue
		}

		content, err := os.ReadFile(absPath)
		if err != nil {
			continue
		}

		for i, line := range strings.Split(string(content), "\n") {
			if !re.MatchString(line) {
				continue
			}
			for _, loc := range re.FindAllStringIndex(line, -1) {
				results = append(results, SearchResult{
					FilePath: relPath, Repository: repo, LineNumber: i + 1, Column: loc[0],
					Content: line, Score: 1.0, MatchType: MatchExact,
				})
			}
		}
	}

	total := len(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, total, nil
}
