package retriever

import (
	"context"

	"github.com/varunkamath/rune/internal/embed"
	"github.com/varunkamath/rune/internal/vectorstore"
)

// SemanticRetriever embeds the query and searches the vector store for the
// nearest chunks. It carries no line-local context: the vector store only
// ever stores chunk text, not the surrounding file.
type SemanticRetriever struct {
	vector   vectorstore.Store
	embedder embed.Embedder
	roots    Roots
}

func NewSemanticRetriever(vector vectorstore.Store, embedder embed.Embedder, roots Roots) *SemanticRetriever {
	return &SemanticRetriever{vector: vector, embedder: embedder, roots: roots}
}

// Search reports total as the number of results actually retrieved: nearest-
// neighbour search has no notion of a "total matches" independent of how many
// neighbours were asked for, unlike an exact-match index.
func (r *SemanticRetriever) Search(ctx context.Context, query string, filter Filter, limit int) ([]SearchResult, int, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	hits, err := r.vector.Search(ctx, vec, limit, vectorstore.Filter{})
	if err != nil {
		return nil, 0, err
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		_, repo, ok := r.roots.Resolve(hit.Payload.FilePath)
		if !ok {
			repo = ""
		}
		if !filter.allows(repo, hit.Payload.FilePath) {
			continue
		}
		results = append(results, SearchResult{
			FilePath:   hit.Payload.FilePath,
			Repository: repo,
			LineNumber: hit.Payload.StartLine,
			Content:    hit.Payload.Content,
			Score:      float64(hit.Score),
			MatchType:  MatchSemantic,
		})
	}
	return results, len(results), nil
}
