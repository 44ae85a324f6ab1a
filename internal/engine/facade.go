package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/varunkamath/rune/internal/chunk"
	"github.com/varunkamath/rune/internal/config"
	"github.com/varunkamath/rune/internal/embed"
	"github.com/varunkamath/rune/internal/fulltext"
	"github.com/varunkamath/rune/internal/indexer"
	"github.com/varunkamath/rune/internal/metadata"
	"github.com/varunkamath/rune/internal/querycache"
	"github.com/varunkamath/rune/internal/retriever"
	"github.com/varunkamath/rune/internal/vectorstore"
)

// Engine is the facade a CLI or long-running process talks to: one per
// workspace, owning every component's handle and the retrievers and cache
// built on top of them.
type Engine struct {
	cfg *config.Config

	meta     *metadata.Store
	fullText *fulltext.Index
	vector   vectorstore.Store
	embedder embed.Embedder
	indexer  *indexer.Indexer

	literal  retriever.Retriever
	regex    retriever.Retriever
	symbol   retriever.Retriever
	semantic retriever.Retriever // nil when semantic indexing is disabled
	hybrid   retriever.Retriever

	cache *querycache.Cache[SearchResponse]

	codeChunker     chunk.Chunker
	markdownChunker chunk.Chunker
}

// New initialises every component in dependency order: metadata store,
// full-text index, (when enabled) embedding pipeline and vector store,
// chunkers, indexer, retrievers, and finally the query-result cache.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: invalid configuration: %w", err)
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("engine: create cache dir: %w", err)
	}

	meta, err := metadata.Open(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("engine: open metadata store: %w", err)
	}

	fullText, err := fulltext.Open(filepath.Join(cfg.CacheDir, "tantivy_index"))
	if err != nil {
		_ = meta.Close()
		return nil, fmt.Errorf("engine: open full-text index: %w", err)
	}

	var vec vectorstore.Store
	var embedder embed.Embedder
	if cfg.EnableSemantic {
		pipeline := embed.NewPipeline(ctx, cfg.CacheDir, "", true)
		embedder = pipeline.Cached(embed.DefaultEmbeddingCacheSize)
		vec = vectorstore.NewStore(ctx, vectorstore.Config{
			Dimensions:    pipeline.Dimensions(),
			WorkspaceRoot: firstOrEmpty(cfg.WorkspaceRoots),
			Endpoint:      cfg.VectorDB.URL,
		})
	}

	var codeChunker, markdownChunker chunk.Chunker
	if cfg.Chunking.Strategy == "syntax" {
		codeChunker = chunk.NewSyntaxChunker()
	} else {
		codeChunker = chunk.NewHeuristicChunker()
	}
	markdownChunker = chunk.NewMarkdownChunker()

	ix, err := indexer.New(indexer.Config{
		CacheDir:        cfg.CacheDir,
		MaxFileSize:     cfg.MaxFileSizeBytes,
		Threads:         cfg.IndexingThreads,
		SemanticEnabled: cfg.EnableSemantic,
		DebounceWindow:  time.Duration(cfg.FileWatchDebounceMS) * time.Millisecond,
	}, indexer.Dependencies{
		Metadata:        meta,
		FullText:        fullText,
		Vector:          vec,
		Embedder:        embedder,
		CodeChunker:     codeChunker,
		MarkdownChunker: markdownChunker,
	})
	if err != nil {
		_ = fullText.Close()
		_ = meta.Close()
		return nil, fmt.Errorf("engine: build indexer: %w", err)
	}

	roots := retriever.NewRoots(cfg.WorkspaceRoots)
	literalRet := retriever.NewLiteralRetriever(fullText, roots)
	regexRet := retriever.NewRegexRetriever(meta, roots)
	symbolRet := retriever.NewSymbolRetriever(fullText, roots)

	var semanticRet retriever.Retriever
	if cfg.EnableSemantic {
		semanticRet = retriever.NewSemanticRetriever(vec, embedder, roots)
	}
	hybridRet := retriever.NewHybridRetriever(literalRet, symbolRet, semanticRet)

	cacheCfg := querycache.DefaultConfig()
	if cfg.Cache.TTLSeconds > 0 {
		cacheCfg.TTL = time.Duration(cfg.Cache.TTLSeconds) * time.Second
	}
	if cfg.Cache.MaxEntries > 0 {
		cacheCfg.Capacity = cfg.Cache.MaxEntries
	}
	if cfg.Cache.MinQueryLength > 0 {
		cacheCfg.MinQueryLength = cfg.Cache.MinQueryLength
	}

	return &Engine{
		cfg:      cfg,
		meta:     meta,
		fullText: fullText,
		vector:   vec,
		embedder: embedder,
		indexer:  ix,
		literal:  literalRet,
		regex:    regexRet,
		symbol:   symbolRet,
		semantic: semanticRet,
		hybrid:   hybridRet,
		cache:    querycache.New[SearchResponse](cacheCfg),

		codeChunker:     codeChunker,
		markdownChunker: markdownChunker,
	}, nil
}

// Start runs an initial full index over every workspace root, then begins
// watching them for incremental updates.
func (e *Engine) Start(ctx context.Context) error {
	if _, err := e.indexer.IndexAll(ctx, e.cfg.WorkspaceRoots); err != nil {
		return fmt.Errorf("engine: initial index: %w", err)
	}
	if err := e.indexer.StartWatching(ctx, e.cfg.WorkspaceRoots); err != nil {
		slog.Warn("engine: start watching failed", slog.String("error", err.Error()))
	}
	return nil
}

// Stop stops watching and releases every owned store.
func (e *Engine) Stop() error {
	e.indexer.StopWatching()
	e.cache.Close()

	var firstErr error
	if e.embedder != nil {
		if err := e.embedder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.vector != nil {
		if err := e.vector.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := e.fullText.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.meta.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	closeIfCloser(e.codeChunker)
	closeIfCloser(e.markdownChunker)
	return firstErr
}

// closeIfCloser releases a chunker's resources if it owns any (the syntax
// chunker holds tree-sitter parsers; the markdown chunker's Close is a
// no-op; the heuristic chunker has no Close).
func closeIfCloser(c chunk.Chunker) {
	if closer, ok := c.(interface{ Close() }); ok {
		closer.Close()
	}
}

func firstOrEmpty(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[0]
}
