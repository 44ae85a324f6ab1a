package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/varunkamath/rune/internal/async"
	"github.com/varunkamath/rune/internal/chunk"
	"github.com/varunkamath/rune/internal/fulltext"
	"github.com/varunkamath/rune/internal/metadata"
	"github.com/varunkamath/rune/internal/vectorstore"
	"github.com/varunkamath/rune/internal/walker"
)

// IndexAll walks every root, builds a full-text document and (when semantic
// indexing is enabled) embedded chunks for each file, and commits the
// result in batches. Repository name for a root is its final path
// component. Two concurrent calls to IndexAll are safe: each observes its
// own run number and completes independently; the only shared state is the
// full-text writer's mutex and the underlying stores' own synchronization.
func (ix *Indexer) IndexAll(ctx context.Context, roots []string) (*Result, error) {
	run := ix.runCounter.Add(1)
	start := time.Now()
	slog.Info("index_all_started", slog.Uint64("run", run), slog.Int("roots", len(roots)))

	progress := async.NewIndexProgress()
	ix.progressMu.Lock()
	ix.progress = progress
	ix.progressMu.Unlock()

	var totalFiles, totalChunks int64
	var totalErrors int64

	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			progress.SetError(err.Error())
			return nil, err
		}
		repo := filepath.Base(absRoot)

		w, err := walker.New(absRoot, ix.cfg.CacheDir)
		if err != nil {
			progress.SetError(err.Error())
			return nil, err
		}

		progress.SetStage(async.StageScanning, 0)
		files, err := ix.collectFiles(ctx, w)
		if err != nil {
			progress.SetError(err.Error())
			return nil, err
		}
		progress.SetStage(async.StageIndexing, len(files))

		batchSize := ix.cfg.batchSize()
		for batchStart := 0; batchStart < len(files); batchStart += batchSize {
			select {
			case <-ctx.Done():
				progress.SetError(ctx.Err().Error())
				return nil, ctx.Err()
			default:
			}

			batchEnd := batchStart + batchSize
			if batchEnd > len(files) {
				batchEnd = len(files)
			}
			batch := files[batchStart:batchEnd]

			nFiles, nChunks, nErrs := ix.processBatch(ctx, absRoot, repo, batch)
			totalFiles += int64(nFiles)
			totalChunks += int64(nChunks)
			totalErrors += int64(nErrs)
			progress.UpdateFiles(int(totalFiles))
			progress.SetChunksTotal(int(totalChunks))
			progress.UpdateChunks(int(totalChunks))

			batchNum := batchStart/batchSize + 1
			if batchNum%ix.cfg.commitEvery() == 0 {
				slog.Debug("index_all_checkpoint",
					slog.Uint64("run", run), slog.Int("batch", batchNum), slog.Int("files_so_far", int(totalFiles)))
			}
		}
	}

	if err := ix.deps.FullText.Optimize(ctx); err != nil {
		slog.Warn("full-text optimize failed", slog.String("error", err.Error()))
	}
	progress.SetReady()

	result := &Result{
		Files:    int(totalFiles),
		Chunks:   int(totalChunks),
		Errors:   int(totalErrors),
		Duration: time.Since(start),
	}
	slog.Info("index_all_complete",
		slog.Uint64("run", run), slog.Int("files", result.Files), slog.Int("chunks", result.Chunks),
		slog.Int("errors", result.Errors), slog.Duration("duration", result.Duration))
	return result, nil
}

// collectFiles drains a Walker's channel into a slice so it can be sliced
// into fixed-size batches for the worker pool.
func (ix *Indexer) collectFiles(ctx context.Context, w *walker.Walker) ([]*walker.FileInfo, error) {
	opts := walker.Options{CacheDir: ix.cfg.CacheDir, MaxFileSize: ix.cfg.MaxFileSize}
	var files []*walker.FileInfo
	for res := range w.Walk(ctx, opts) {
		if res.Error != nil {
			slog.Warn("walk error", slog.String("error", res.Error.Error()))
			continue
		}
		files = append(files, res.File)
	}
	return files, nil
}

// processBatch indexes up to len(batch) files in parallel on a bounded
// worker pool, sized to the configured thread count.
func (ix *Indexer) processBatch(ctx context.Context, root, repo string, batch []*walker.FileInfo) (files, chunks, errs int) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.threads())

	var fileCount, chunkCount, errCount atomic.Int64
	var mu sync.Mutex
	var firstErr error

	for _, f := range batch {
		f := f
		g.Go(func() error {
			n, err := ix.indexOneFile(gctx, root, repo, f)
			if err != nil {
				errCount.Add(1)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				slog.Warn("index file failed", slog.String("path", f.Path), slog.String("error", err.Error()))
				return nil // keep processing the rest of the batch
			}
			fileCount.Add(1)
			chunkCount.Add(int64(n))
			return nil
		})
	}
	_ = g.Wait()

	return int(fileCount.Load()), int(chunkCount.Load()), int(errCount.Load())
}

// indexOneFile reads, chunks, and writes one file's full-text document and
// (when semantic indexing is enabled) its embedded chunks. It returns the
// number of chunks produced.
func (ix *Indexer) indexOneFile(ctx context.Context, root, repo string, f *walker.FileInfo) (int, error) {
	content, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return 0, err
	}

	chunks, err := ix.chunkerFor(f.Language).Chunk(ctx, &chunk.FileInput{
		Path: f.Path, Content: content, Language: f.Language,
	})
	if err != nil {
		return 0, err
	}

	doc := fulltext.Document{
		Path:       f.Path,
		Content:    string(content),
		Language:   f.Language,
		Symbols:    symbolRefs(chunks),
		Repository: repo,
	}

	ix.textMu.Lock()
	err = ix.deps.FullText.Put(ctx, []fulltext.Document{doc})
	ix.textMu.Unlock()
	if err != nil {
		return 0, err
	}

	if ix.cfg.SemanticEnabled && len(chunks) > 0 {
		if err := ix.embedAndUpsert(ctx, chunks); err != nil {
			slog.Warn("embed/upsert failed, full-text index still updated",
				slog.String("path", f.Path), slog.String("error", err.Error()))
		}
	}

	rec := metadata.FileRecord{
		Path:        f.Path,
		SizeBytes:   f.Size,
		ModTime:     f.ModTime,
		Language:    f.Language,
		ContentHash: hashBytes(content),
		IndexedAt:   time.Now(),
	}
	if err := ix.deps.Metadata.Put(ctx, rec); err != nil {
		return len(chunks), err
	}

	if err := ix.deps.Metadata.SetSymbolCount(ctx, f.Path, len(doc.Symbols)); err != nil {
		slog.Warn("set symbol count failed", slog.String("path", f.Path), slog.String("error", err.Error()))
	}

	return len(chunks), nil
}

// embedAndUpsert embeds a file's chunks and upserts them into the vector
// store. It runs outside the full-text writer's lock.
func (ix *Indexer) embedAndUpsert(ctx context.Context, chunks []*chunk.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := ix.deps.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vectorstore.Point{
			ID:     vectorstore.PointID(c.FilePath, c.StartLine, c.EndLine, c.Content),
			Vector: vectors[i],
			Payload: vectorstore.Payload{
				Content: c.Content, FilePath: c.FilePath,
				StartLine: c.StartLine, EndLine: c.EndLine, Language: c.Language,
			},
		}
	}
	return ix.deps.Vector.Upsert(ctx, points)
}

// symbolRefs flattens every chunk's extracted symbols into the full-text
// document's symbols field.
func symbolRefs(chunks []*chunk.Chunk) []fulltext.SymbolRef {
	var refs []fulltext.SymbolRef
	for _, c := range chunks {
		for _, s := range c.Symbols {
			refs = append(refs, fulltext.SymbolRef{Kind: string(s.Kind), Name: s.Name})
		}
	}
	return refs
}

func hashBytes(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}
