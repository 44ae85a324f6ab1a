package fulltext

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/varunkamath/rune/internal/rerr"
)

const (
	tokenizerName = "code_tokenizer"
	stopFilterName = "code_stop"
	analyzerName  = "code_analyzer"

	// IndexDirName is the on-disk directory name for the full-text index.
	// Kept as "tantivy_index" for layout compatibility with deployments
	// that predate the move to Bleve; it is a directory name, not a claim
	// about the underlying library.
	IndexDirName = "tantivy_index"

	commitBatchInterval = 10
)

func init() {
	_ = registry.RegisterTokenizer(tokenizerName, tokenizerConstructor)
	_ = registry.RegisterTokenFilter(stopFilterName, stopFilterConstructor)
}

// bleveDoc is the on-disk shape indexed into Bleve; field names are the
// ones referenced by createMapping and by Search's field-scoped queries.
type bleveDoc struct {
	Path        string `json:"path"`
	Content     string `json:"content"`
	Language    string `json:"language"`
	Symbols     string `json:"symbols"`
	LineNumbers string `json:"line_numbers"`
	Repository  string `json:"repository"`
}

// Index is the Bleve-backed full-text index.
type Index struct {
	mu      sync.RWMutex
	index   bleve.Index
	path    string
	closed  bool
	batches int
}

// Open creates or opens the full-text index at dir. An empty dir builds an
// in-memory index, used by tests.
func Open(dir string) (*Index, error) {
	indexMapping, err := createMapping()
	if err != nil {
		return nil, rerr.Wrap(rerr.KindIndexing, "build index mapping", err)
	}

	var idx bleve.Index
	if dir == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
		if err != nil {
			return nil, rerr.Wrap(rerr.KindIndexing, "create in-memory index", err)
		}
		return &Index{index: idx, path: dir}, nil
	}

	if mkErr := os.MkdirAll(filepath.Dir(dir), 0o755); mkErr != nil {
		return nil, rerr.Wrap(rerr.KindIO, "create index parent directory", mkErr)
	}

	if validErr := validateIntegrity(dir); validErr != nil {
		slog.Warn("fulltext_index_corrupted", slog.String("path", dir), slog.String("error", validErr.Error()))
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			return nil, rerr.Wrap(rerr.KindStorage, "remove corrupted index", rmErr)
		}
		slog.Info("fulltext_index_cleared", slog.String("path", dir))
	}

	idx, err = bleve.Open(dir)
	switch {
	case err == bleve.ErrorIndexPathDoesNotExist:
		idx, err = bleve.New(dir, indexMapping)
	case err != nil && isCorruptionError(err):
		slog.Warn("fulltext_index_open_failed", slog.String("path", dir), slog.String("error", err.Error()))
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			return nil, rerr.Wrap(rerr.KindStorage, "clear corrupted index", rmErr)
		}
		idx, err = bleve.New(dir, indexMapping)
	}
	if err != nil {
		return nil, rerr.Wrap(rerr.KindIndexing, "open or create index", err)
	}

	return &Index{index: idx, path: dir}, nil
}

func validateIntegrity(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	metaPath := filepath.Join(dir, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json empty")
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("read index_meta.json: %w", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json unparseable: %w", err)
	}
	return nil
}

func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "unexpected end of JSON") ||
		strings.Contains(s, "error parsing mapping JSON") ||
		strings.Contains(s, "failed to load segment") ||
		strings.Contains(s, "error opening bolt") ||
		strings.Contains(s, "no such file or directory") ||
		err == bleve.ErrorIndexMetaCorrupt
}

func createMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	if err := im.AddCustomAnalyzer(analyzerName, map[string]any{
		"type":      custom.Name,
		"tokenizer": tokenizerName,
		"token_filters": []string{
			lowercase.Name,
			stopFilterName,
		},
	}); err != nil {
		return nil, fmt.Errorf("add custom analyzer: %w", err)
	}
	im.DefaultAnalyzer = analyzerName

	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"

	code := bleve.NewTextFieldMapping()
	code.Analyzer = analyzerName

	stored := bleve.NewTextFieldMapping()
	stored.Analyzer = "keyword"
	stored.Index = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("path", keyword)
	doc.AddFieldMappingsAt("content", code)
	doc.AddFieldMappingsAt("language", keyword)
	doc.AddFieldMappingsAt("symbols", code)
	doc.AddFieldMappingsAt("line_numbers", stored)
	doc.AddFieldMappingsAt("repository", keyword)

	im.DefaultMapping = doc
	return im, nil
}

// Put replaces documents by path (delete-then-add) and applies them as one
// Bleve batch, which is visible to searches once the call returns.
func (idx *Index) Put(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return rerr.New(rerr.KindIndexing, "index is closed")
	}

	batch := idx.index.NewBatch()
	for _, d := range docs {
		batch.Delete(d.Path)
		symbolText := symbolsToText(d.Symbols)
		if err := batch.Index(d.Path, bleveDoc{
			Path:        d.Path,
			Content:     d.Content,
			Language:    d.Language,
			Symbols:     symbolText,
			LineNumbers: d.LineNumbers,
			Repository:  d.Repository,
		}); err != nil {
			return rerr.Wrap(rerr.KindIndexing, fmt.Sprintf("index document %s", d.Path), err)
		}
	}
	if err := idx.index.Batch(batch); err != nil {
		return rerr.Wrap(rerr.KindIndexing, "commit batch", err)
	}
	idx.batches++
	return nil
}

func symbolsToText(refs []SymbolRef) string {
	lines := make([]string, 0, len(refs))
	for _, r := range refs {
		lines = append(lines, r.Kind+" "+r.Name)
	}
	return strings.Join(lines, "\n")
}

// Delete removes documents by path.
func (idx *Index) Delete(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return rerr.New(rerr.KindIndexing, "index is closed")
	}
	batch := idx.index.NewBatch()
	for _, p := range paths {
		batch.Delete(p)
	}
	if err := idx.index.Batch(batch); err != nil {
		return rerr.Wrap(rerr.KindIndexing, "delete batch", err)
	}
	return nil
}

// Search runs queryStr against the content and symbols fields, OR-combined
// with a fuzzy variant (edit distance <= 2) so near-miss spellings still
// surface results, then scopes by language/repository if given. The
// returned total is Bleve's own matching-document count, which it computes
// regardless of limit (Size only bounds how many hits are materialized),
// so it stays invariant across calls that only vary limit/offset.
func (idx *Index) Search(ctx context.Context, queryStr string, language, repository string, limit int) ([]Hit, int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, 0, rerr.New(rerr.KindIndexing, "index is closed")
	}
	if strings.TrimSpace(queryStr) == "" {
		return nil, 0, nil
	}

	contentMatch := bleve.NewMatchQuery(queryStr)
	contentMatch.SetField("content")
	symbolMatch := bleve.NewMatchQuery(queryStr)
	symbolMatch.SetField("symbols")
	symbolMatch.SetBoost(1.5)

	fuzzyContent := bleve.NewMatchQuery(queryStr)
	fuzzyContent.SetField("content")
	fuzzyContent.SetFuzziness(2)
	fuzzyContent.SetBoost(0.5)

	fuzzySymbols := bleve.NewMatchQuery(queryStr)
	fuzzySymbols.SetField("symbols")
	fuzzySymbols.SetFuzziness(2)
	fuzzySymbols.SetBoost(0.5)

	disjunct := bleve.NewDisjunctionQuery(contentMatch, symbolMatch, fuzzyContent, fuzzySymbols)

	q := bleve.Query(disjunct)
	if language != "" || repository != "" {
		conj := bleve.NewConjunctionQuery(disjunct)
		if language != "" {
			lq := bleve.NewMatchQuery(language)
			lq.SetField("language")
			conj.AddQuery(lq)
		}
		if repository != "" {
			rq := bleve.NewMatchQuery(repository)
			rq.SetField("repository")
			conj.AddQuery(rq)
		}
		q = conj
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.IncludeLocations = true

	result, err := idx.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, 0, rerr.Wrap(rerr.KindSearch, "execute search", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, Hit{
			Path:         h.ID,
			Score:        h.Score,
			MatchedTerms: extractMatchedTerms(h),
		})
	}
	return hits, int(result.Total), nil
}

func extractMatchedTerms(hit *search.DocumentMatch) []string {
	seen := map[string]struct{}{}
	for field, locations := range hit.Locations {
		if field != "content" && field != "symbols" {
			continue
		}
		for term := range locations {
			seen[term] = struct{}{}
		}
	}
	terms := make([]string, 0, len(seen))
	for t := range seen {
		terms = append(terms, t)
	}
	return terms
}

// AllPaths returns every indexed document path, used for consistency
// checks against the metadata store.
func (idx *Index) AllPaths(ctx context.Context) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, rerr.New(rerr.KindIndexing, "index is closed")
	}
	count, _ := idx.index.DocCount()
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	req.Fields = nil
	result, err := idx.index.Search(req)
	if err != nil {
		return nil, rerr.Wrap(rerr.KindSearch, "list all paths", err)
	}
	paths := make([]string, len(result.Hits))
	for i, h := range result.Hits {
		paths[i] = h.ID
	}
	return paths, nil
}

// Optimize runs a post-bulk compaction pass. Bleve's scorch backend merges
// segments automatically as part of normal operation, and doesn't expose a
// public forced-merge call, so this resets the batch counter and gives the
// backend a stable point to have settled any in-flight merge rather than
// attempting to force one bleve doesn't let a caller trigger directly.
func (idx *Index) Optimize(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return rerr.New(rerr.KindIndexing, "index is closed")
	}
	idx.batches = 0
	return nil
}

// Stats reports index size.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return Stats{}
	}
	count, _ := idx.index.DocCount()
	return Stats{DocumentCount: count}
}

// Close releases the underlying index.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true
	return idx.index.Close()
}

func tokenizerConstructor(config map[string]any, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &codeTokenizer{}, nil
}

type codeTokenizer struct{}

func (t *codeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := Tokenize(text)

	stream := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0
	for _, tok := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), tok)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(tok)
		stream = append(stream, &analysis.Token{
			Term:     []byte(tok),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return stream
}

func stopFilterConstructor(config map[string]any, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &codeStopFilter{stopWords: buildStopWordMap(DefaultStopWords)}, nil
}

type codeStopFilter struct {
	stopWords map[string]struct{}
}

func (f *codeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := make(analysis.TokenStream, 0, len(input))
	for _, tok := range input {
		if _, stop := f.stopWords[strings.ToLower(string(tok.Term))]; !stop {
			out = append(out, tok)
		}
	}
	return out
}
