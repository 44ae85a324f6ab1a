package retriever

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/varunkamath/rune/internal/fulltext"
)

const (
	multiWordLineBoost = 0.5
	maxFuzzyDistance    = 2
)

var wordSplitRe = regexp.MustCompile(`\S+`)

// LiteralRetriever finds documents via the full-text index (which already
// OR-fuses an exact match query with a bounded-edit-distance fuzzy one),
// then rescans each matching file's lines locally to emit one result per
// occurrence of a single query word, or one result per line containing any
// query word when the query has several, boosting 0.5x per extra term on
// that line. A line whose match came only from a near-miss spelling is
// emitted with MatchFuzzy and its score scaled by edit-distance similarity.
type LiteralRetriever struct {
	fullText *fulltext.Index
	roots    Roots
}

func NewLiteralRetriever(fullText *fulltext.Index, roots Roots) *LiteralRetriever {
	return &LiteralRetriever{fullText: fullText, roots: roots}
}

func (r *LiteralRetriever) Search(ctx context.Context, query string, filter Filter, limit int) ([]SearchResult, int, error) {
	words := wordSplitRe.FindAllString(query, -1)
	if len(words) == 0 {
		return []SearchResult{}, 0, nil
	}

	hits, total, err := r.fullText.Search(ctx, query, "", "", limit)
	if err != nil {
		return nil, 0, err
	}

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
		results = append(results, r.scanFile(hit.Path, repo, string(content), words, hit.Score)...)
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, total, nil
}

func (r *LiteralRetriever) scanFile(path, repo, content string, words []string, docScore float64) []SearchResult {
	lower := make([]string, len(words))
	for i, w := range words {
		lower[i] = strings.ToLower(w)
	}

	var out []SearchResult
	for i, line := range strings.Split(content, "\n") {
		lineNo := i + 1
		lowerLine := strings.ToLower(line)

		if len(words) == 1 {
			out = append(out, r.literalOccurrences(path, repo, line, lowerLine, lower[0], lineNo, docScore)...)
			if fz := r.fuzzyOccurrences(path, repo, line, lowerLine, lower[0], lineNo, docScore); len(fz) > 0 {
				out = append(out, fz...)
			}
			continue
		}

		matched := 0
		for _, w := range lower {
			if strings.Contains(lowerLine, w) {
				matched++
			}
		}
		if matched > 0 {
			score := docScore * (1 + multiWordLineBoost*float64(matched-1))
			out = append(out, SearchResult{
				FilePath: path, Repository: repo, LineNumber: lineNo,
				Content: line, Score: score, MatchType: MatchExact,
			})
		}
	}
	return out
}

func (r *LiteralRetriever) literalOccurrences(path, repo, line, lowerLine, word string, lineNo int, docScore float64) []SearchResult {
	var out []SearchResult
	start := 0
	for {
		idx := strings.Index(lowerLine[start:], word)
		if idx == -1 {
			break
		}
		col := start + idx
		out = append(out, SearchResult{
			FilePath: path, Repository: repo, LineNumber: lineNo, Column: col,
			Content: line, Score: docScore, MatchType: MatchExact,
		})
		start = col + len(word)
		if start >= len(lowerLine) {
			break
		}
	}
	return out
}

func (r *LiteralRetriever) fuzzyOccurrences(path, repo, line, lowerLine, word string, lineNo int, docScore float64) []SearchResult {
	if strings.Contains(lowerLine, word) {
		return nil // already an exact hit, don't double-count as fuzzy
	}
	var out []SearchResult
	for _, token := range wordSplitRe.FindAllString(lowerLine, -1) {
		dist := levenshtein(token, word)
		if dist == 0 || dist > maxFuzzyDistance {
			continue
		}
		maxLen := len(token)
		if len(word) > maxLen {
			maxLen = len(word)
		}
		similarity := 1 - float64(dist)/float64(maxLen)
		out = append(out, SearchResult{
			FilePath: path, Repository: repo, LineNumber: lineNo,
			Content: line, Score: docScore * similarity, MatchType: MatchFuzzy,
		})
	}
	return out
}
