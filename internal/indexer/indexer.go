package indexer

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/varunkamath/rune/internal/async"
	"github.com/varunkamath/rune/internal/chunk"
	"github.com/varunkamath/rune/internal/walker"
)

// Indexer orchestrates full and incremental indexing for a workspace's
// roots. A single Indexer instance is shared by the full-index pipeline,
// the incremental event handler, and the watch lifecycle; its textMu field
// is the one mutual-exclusion lock guarding writes to the full-text index,
// matching the "single writer" contract that index owns.
type Indexer struct {
	cfg  Config
	deps Dependencies

	textMu sync.Mutex // guards FullText.Put/Delete; vector upserts run outside it

	runCounter atomic.Uint64 // incremented by every IndexAll call, for observability

	progressMu sync.RWMutex
	progress   *async.IndexProgress // progress of the most recent IndexAll run

	watchMu  sync.Mutex
	watching bool
	watchers map[string]*rootWatch
}

// rootWatch pairs a running Watcher with the goroutine draining its events.
type rootWatch struct {
	watcher *walker.Watcher
	done    chan struct{}
}

// New builds an Indexer. Metadata and FullText are required; Vector and
// Embedder are required only when cfg.SemanticEnabled is true.
func New(cfg Config, deps Dependencies) (*Indexer, error) {
	if deps.Metadata == nil {
		return nil, fmt.Errorf("indexer: metadata store is required")
	}
	if deps.FullText == nil {
		return nil, fmt.Errorf("indexer: full-text index is required")
	}
	if deps.CodeChunker == nil || deps.MarkdownChunker == nil {
		return nil, fmt.Errorf("indexer: code and markdown chunkers are required")
	}
	if cfg.SemanticEnabled && (deps.Vector == nil || deps.Embedder == nil) {
		return nil, fmt.Errorf("indexer: vector store and embedder are required when semantic indexing is enabled")
	}

	return &Indexer{
		cfg:      cfg,
		deps:     deps,
		watchers: make(map[string]*rootWatch),
	}, nil
}

// RunCount returns the number of full-index passes started so far,
// including ones still in progress.
func (ix *Indexer) RunCount() uint64 {
	return ix.runCounter.Load()
}

// Progress returns a snapshot of the most recent IndexAll run's progress.
// The second return value is false if IndexAll has never been called.
func (ix *Indexer) Progress() (async.IndexProgressSnapshot, bool) {
	ix.progressMu.RLock()
	defer ix.progressMu.RUnlock()
	if ix.progress == nil {
		return async.IndexProgressSnapshot{}, false
	}
	return ix.progress.Snapshot(), true
}

func (ix *Indexer) chunkerFor(language string) chunk.Chunker {
	if language == "markdown" {
		return ix.deps.MarkdownChunker
	}
	return ix.deps.CodeChunker
}
