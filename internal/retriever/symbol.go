package retriever

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/varunkamath/rune/internal/fulltext"
)

// definitionKeywords are the leading keywords across the languages this
// repository indexes that introduce a named symbol definition.
var definitionKeywords = []string{
	"fn", "func", "def", "function", "class", "struct", "interface", "trait", "impl", "enum", "type",
}

// SymbolRetriever queries the full-text index's symbols field for the
// queried name, then rescans each hit's file for lines that look like a
// definition of that name — a leading definition keyword followed by the
// name as a whole word.
type SymbolRetriever struct {
	fullText *fulltext.Index
	roots    Roots
}

func NewSymbolRetriever(fullText *fulltext.Index, roots Roots) *SymbolRetriever {
	return &SymbolRetriever{fullText: fullText, roots: roots}
}

// Search reports total as the full-text index's own document-level match
// count (the same invariant-under-pagination total literal retrieval uses),
// not the line-level definition count this method rescans for — the
// definition count can only be known after rescanning every hit's file,
// which the index's own Size cap on hits already bounds.
func (r *SymbolRetriever) Search(ctx context.Context, query string, filter Filter, limit int) ([]SearchResult, int, error) {
	name := strings.TrimSpace(query)
	if name == "" {
		return []SearchResult{}, 0, nil
	}

	hits, total, err := r.fullText.Search(ctx, query, "", "", limit)
	if err != nil {
		return nil, 0, err
	}

	defRe := definitionPattern(name)

	var results []SearchResult
	for _, hit := range hits {
		absPath, repo, ok := r.roots.Resolve(hit.Path)
		if !ok || !filter.allows(repo, hit.Path) {
			continue
		}
		content, err := os.ReadFile(absPath)
		if err != nil {
			continue
		}
		for i, line := range strings.Split(string(content), "\n") {
			if !defRe.MatchString(line) {
				continue
			}
			results = append(results, SearchResult{
				FilePath: hit.Path, Repository: repo, LineNumber: i + 1,
				Content: line, Score: hit.Score, MatchType: MatchSymbol,
			})
		}
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, total, nil
}

func definitionPattern(name string) *regexp.Regexp {
	keywords := strings.Join(definitionKeywords, "|")
	pattern := fmt.Sprintf(`^\s*(?:%s)\s+%s\b`, keywords, regexp.QuoteMeta(name))
	return regexp.MustCompile(pattern)
}
