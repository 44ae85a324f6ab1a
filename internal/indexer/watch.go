package indexer

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/varunkamath/rune/internal/walker"
)

// StartWatching spawns one watcher and one event processor per root.
// Idempotent: a second call while already watching is a no-op.
func (ix *Indexer) StartWatching(ctx context.Context, roots []string) error {
	ix.watchMu.Lock()
	defer ix.watchMu.Unlock()
	if ix.watching {
		return nil
	}

	opts := walker.WatchOptions{DebounceWindow: ix.cfg.DebounceWindow, PollInterval: ix.cfg.PollInterval}

	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			ix.stopAllLocked()
			return err
		}
		repo := filepath.Base(absRoot)

		w, err := walker.NewWatcher(absRoot, ix.cfg.CacheDir, opts)
		if err != nil {
			ix.stopAllLocked()
			return err
		}

		rw := &rootWatch{watcher: w, done: make(chan struct{})}
		ix.watchers[absRoot] = rw

		go func() {
			if err := w.Start(ctx); err != nil && err != context.Canceled {
				slog.Error("watcher exited", slog.String("root", absRoot), slog.String("error", err.Error()))
			}
		}()
		go ix.processEvents(ctx, absRoot, repo, rw)
	}

	ix.watching = true
	return nil
}

// processEvents drains one watcher's debounced batches and applies them
// until the watcher closes its channels or the root is stopped.
func (ix *Indexer) processEvents(ctx context.Context, root, repo string, rw *rootWatch) {
	defer close(rw.done)
	for {
		select {
		case events, ok := <-rw.watcher.Events():
			if !ok {
				return
			}
			ix.HandleEvents(ctx, root, repo, events)
		case err, ok := <-rw.watcher.Errors():
			if !ok {
				return
			}
			slog.Warn("watcher error", slog.String("root", root), slog.String("error", err.Error()))
		case <-ctx.Done():
			return
		}
	}
}

// StopWatching signals every watcher to stop, waits for their event
// processors to finish, and drops them. Idempotent.
func (ix *Indexer) StopWatching() {
	ix.watchMu.Lock()
	defer ix.watchMu.Unlock()
	ix.stopAllLocked()
}

func (ix *Indexer) stopAllLocked() {
	if !ix.watching && len(ix.watchers) == 0 {
		return
	}
	for root, rw := range ix.watchers {
		_ = rw.watcher.Stop()
		<-rw.done
		delete(ix.watchers, root)
	}
	ix.watching = false
}

// Watching reports whether the indexer currently has active watchers.
func (ix *Indexer) Watching() bool {
	ix.watchMu.Lock()
	defer ix.watchMu.Unlock()
	return ix.watching
}
