package indexer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/varunkamath/rune/internal/chunk"
	"github.com/varunkamath/rune/internal/fulltext"
	"github.com/varunkamath/rune/internal/metadata"
	"github.com/varunkamath/rune/internal/walker"
)

// HandleEvents applies one debounced batch of file events for root to the
// index. Events are processed independently; one event's failure doesn't
// block the rest of the batch.
func (ix *Indexer) HandleEvents(ctx context.Context, root, repo string, events []walker.FileEvent) {
	for _, event := range events {
		if event.IsDir {
			continue
		}
		var err error
		switch event.Operation {
		case walker.OpCreate, walker.OpModify:
			err = ix.reindexFile(ctx, root, repo, event.Path)
		case walker.OpDelete:
			err = ix.deleteFile(ctx, event.Path)
		}
		if err != nil {
			slog.Warn("incremental update failed",
				slog.String("path", event.Path), slog.String("operation", event.Operation.String()),
				slog.String("error", err.Error()))
		}
	}
}

// reindexFile re-reads, re-chunks, and re-writes a single file's document.
// When semantic indexing is on, it issues a DeleteByFile against the vector
// store before upserting the file's new chunks, since a chunk's line range
// (and so its point id) can shift between re-indexes and stale chunks would
// otherwise survive alongside the fresh ones until the next full pass.
func (ix *Indexer) reindexFile(ctx context.Context, root, repo, relPath string) error {
	absPath := filepath.Join(root, relPath)
	content, err := os.ReadFile(absPath)
	if err != nil {
		return err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return err
	}

	language := walker.DetectLanguage(relPath)
	chunks, err := ix.chunkerFor(language).Chunk(ctx, &chunk.FileInput{
		Path: relPath, Content: content, Language: language,
	})
	if err != nil {
		return err
	}

	ix.textMu.Lock()
	delErr := ix.deps.FullText.Delete(ctx, []string{relPath})
	var putErr error
	if delErr == nil {
		putErr = ix.deps.FullText.Put(ctx, []fulltext.Document{{
			Path: relPath, Content: string(content), Language: language,
			Symbols: symbolRefs(chunks), Repository: repo,
		}})
	}
	ix.textMu.Unlock()
	if delErr != nil {
		return delErr
	}
	if putErr != nil {
		return putErr
	}

	if ix.cfg.SemanticEnabled {
		if err := ix.deps.Vector.DeleteByFile(ctx, relPath); err != nil {
			slog.Warn("incremental vector cleanup failed", slog.String("path", relPath), slog.String("error", err.Error()))
		}
		if len(chunks) > 0 {
			if err := ix.embedAndUpsert(ctx, chunks); err != nil {
				slog.Warn("incremental embed/upsert failed", slog.String("path", relPath), slog.String("error", err.Error()))
			}
		}
	}

	rec := metadata.FileRecord{
		Path:        relPath,
		SizeBytes:   info.Size(),
		ModTime:     info.ModTime(),
		Language:    language,
		ContentHash: hashBytes(content),
		IndexedAt:   time.Now(),
	}
	return ix.deps.Metadata.Put(ctx, rec)
}

// deleteFile removes a path from the full-text index, metadata store, and
// (when semantic indexing is enabled) the vector store.
func (ix *Indexer) deleteFile(ctx context.Context, relPath string) error {
	ix.textMu.Lock()
	err := ix.deps.FullText.Delete(ctx, []string{relPath})
	ix.textMu.Unlock()
	if err != nil {
		return err
	}
	if ix.cfg.SemanticEnabled {
		if err := ix.deps.Vector.DeleteByFile(ctx, relPath); err != nil {
			slog.Warn("incremental vector cleanup failed", slog.String("path", relPath), slog.String("error", err.Error()))
		}
	}
	return ix.deps.Metadata.Delete(ctx, relPath)
}
