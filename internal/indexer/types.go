// Package indexer implements the indexer (component C8): it orchestrates
// the metadata store, full-text index, chunker, embedding pipeline, vector
// store, and file walker/watcher into full and incremental indexing passes.
// It owns the single write-capable handle to the full-text index and is the
// sole writer of the metadata store and vector store for a workspace.
package indexer

import (
	"time"

	"github.com/varunkamath/rune/internal/chunk"
	"github.com/varunkamath/rune/internal/embed"
	"github.com/varunkamath/rune/internal/fulltext"
	"github.com/varunkamath/rune/internal/metadata"
	"github.com/varunkamath/rune/internal/vectorstore"
)

// Dependencies are the component handles an Indexer orchestrates. All
// fields are required except Embedder and Vector, which may be nil when
// semantic indexing is disabled.
type Dependencies struct {
	Metadata        *metadata.Store
	FullText        *fulltext.Index
	Vector          vectorstore.Store
	Embedder        embed.Embedder
	CodeChunker     chunk.Chunker
	MarkdownChunker chunk.Chunker
}

// Config configures an Indexer.
type Config struct {
	// CacheDir is the workspace cache directory, used for ignore-file
	// discovery and watcher polling state.
	CacheDir string

	// MaxFileSize overrides the walker's default max file size when non-zero.
	MaxFileSize int64

	// Threads sizes the worker pool used for full indexing batches.
	Threads int

	// SemanticEnabled turns on chunk embedding and vector store upserts.
	SemanticEnabled bool

	// DebounceWindow is the watcher's coalescing window.
	DebounceWindow time.Duration

	// PollInterval is the watcher's polling fallback interval.
	PollInterval time.Duration

	// BatchSize bounds how many files are processed together by one
	// worker-pool round during a full index.
	BatchSize int

	// CommitEvery controls how many batches pass between checkpoint log
	// lines during a full index. It does not affect commits: the full-text
	// writer commits on every Put call.
	CommitEvery int
}

func (c Config) threads() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return 1
}

func (c Config) batchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return 100
}

func (c Config) commitEvery() int {
	if c.CommitEvery > 0 {
		return c.CommitEvery
	}
	return 10
}

// Result summarizes one full-index pass over one or more roots.
type Result struct {
	Files    int
	Chunks   int
	Errors   int
	Duration time.Duration
}

// FileError pairs a path with the error encountered processing it.
type FileError struct {
	Path string
	Err  error
}
