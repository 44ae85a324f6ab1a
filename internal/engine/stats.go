package engine

import (
	"context"
	"os"
	"path/filepath"
)

// Stats aggregates file count, a symbol count, on-disk index and cache
// sizes, and whether the engine is currently watching for changes.
//
// The symbol count sums each indexed file's actual extracted-symbol count
// (internal/metadata.Store.SetSymbolCount, populated per file by the
// indexer). A workspace indexed before symbol-count tracking existed has
// every file-record's count at zero; in that case the estimate falls back
// to file_count * LegacySymbolEstimateFactor, a deliberately coarse stand-in
// documented here rather than silently reported as zero.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	fileCount, err := e.meta.FileCount(ctx)
	if err != nil {
		return Stats{}, err
	}

	symbolCount, err := e.meta.TotalSymbolCount(ctx)
	if err != nil {
		return Stats{}, err
	}
	if symbolCount == 0 && fileCount > 0 {
		symbolCount = fileCount * LegacySymbolEstimateFactor
	}

	indexBytes := dirSize(filepath.Join(e.cfg.CacheDir, "tantivy_index"))
	cacheBytes := dirSize(e.cfg.CacheDir)

	return Stats{
		FileCount:   fileCount,
		SymbolCount: symbolCount,
		IndexBytes:  indexBytes,
		CacheBytes:  cacheBytes,
		Watching:    e.indexer.Watching(),
	}, nil
}

// dirSize sums the size of every regular file under root, ignoring errors
// for individual entries so a partially unreadable tree still yields a
// best-effort total.
func dirSize(root string) int64 {
	var total int64
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}
