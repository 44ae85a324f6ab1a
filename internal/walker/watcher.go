package walker

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/varunkamath/rune/internal/rerr"
)

// Watcher watches one workspace root for changes, coalescing bursts
// through a debounce window and emitting indexable, non-ignored file
// paths. Events for non-excluded directories are emitted as well, with
// IsDir set. When the debouncer's or the watcher's output channel is full,
// the batch is dropped and a warning is logged. It uses fsnotify when
// available and falls back to periodic polling on filesystems that don't
// support OS-level notifications.
type Watcher struct {
	ignores *ignoreSet
	opts    WatchOptions

	fsWatcher   *fsnotify.Watcher
	pollWatcher *pollingWatcher
	useFsnotify bool

	debouncer *debouncer
	events    chan []FileEvent
	errors    chan error
	stopCh    chan struct{}
	rootPath  string

	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

// NewWatcher builds a watcher for root, trying fsnotify first and falling
// back to polling if it cannot initialize.
func NewWatcher(root, cacheDir string, opts WatchOptions) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, rerr.Wrap(rerr.KindIO, "resolve workspace root", err)
	}
	opts = opts.withDefaults()

	w := &Watcher{
		ignores:   newIgnoreSet(absRoot, cacheDir),
		opts:      opts,
		debouncer: newDebouncer(opts.DebounceWindow),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		rootPath:  absRoot,
	}

	if fsw, err := fsnotify.NewWatcher(); err == nil {
		w.fsWatcher = fsw
		w.useFsnotify = true
	} else {
		w.pollWatcher = newPollingWatcher(opts.PollInterval)
	}

	return w, nil
}

// Start runs the watcher until ctx is cancelled or Stop is called. On
// watcher loss it logs and returns; the caller may construct a new Watcher
// and restart.
func (w *Watcher) Start(ctx context.Context) error {
	go w.forwardDebounced(ctx)

	if w.useFsnotify {
		err := w.startFsnotify(ctx)
		if err != nil && err != context.Canceled {
			slog.Error("watcher lost", slog.String("root", w.rootPath), slog.String("error", err.Error()))
		}
		return err
	}

	go w.forwardPolled(ctx)
	err := w.pollWatcher.Start(ctx, w.rootPath)
	if err != nil && err != context.Canceled {
		slog.Error("polling watcher lost", slog.String("root", w.rootPath), slog.String("error", err.Error()))
	}
	return err
}

func (w *Watcher) forwardPolled(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.pollWatcher.Events():
			if !ok {
				return
			}
			if w.isIgnoreFile(event.Path) {
				w.ignores.invalidate()
			}
			if !event.IsDir && !IsIndexable(event.Path) {
				continue
			}
			if w.shouldIgnore(event.Path, event.IsDir) {
				continue
			}
			w.debouncer.add(event)
		case err, ok := <-w.pollWatcher.Errors():
			if !ok {
				return
			}
			w.emitError(err)
		}
	}
}

func (w *Watcher) startFsnotify(ctx context.Context) error {
	if err := w.addRecursive(w.rootPath); err != nil {
		return rerr.Wrap(rerr.KindIO, "add directories to watcher", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *Watcher) handleFsnotifyEvent(event fsnotify.Event) {
	relPath, err := filepath.Rel(w.rootPath, event.Name)
	if err != nil {
		relPath = event.Name
	}

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	if w.isIgnoreFile(relPath) {
		w.ignores.invalidate()
	}

	if !isDir && !IsIndexable(relPath) {
		return
	}
	if w.shouldIgnore(relPath, isDir) {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir {
			_ = w.fsWatcher.Add(event.Name)
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpDelete
	default:
		return
	}

	w.debouncer.add(FileEvent{Path: relPath, Operation: op, IsDir: isDir, Timestamp: time.Now()})
}

func (w *Watcher) isIgnoreFile(relPath string) bool {
	base := filepath.Base(relPath)
	return base == ".gitignore" || base == IgnoreFileName || base == ExcludeFileName
}

func (w *Watcher) shouldIgnore(relPath string, isDir bool) bool {
	if relPath == "." || relPath == "" {
		return true
	}
	if isDir {
		return w.ignores.shouldExcludeDir(relPath)
	}
	return w.ignores.shouldExcludeFile(relPath)
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		relPath, _ := filepath.Rel(w.rootPath, path)
		if relPath == "." {
			return w.fsWatcher.Add(path)
		}
		if w.ignores.shouldExcludeDir(relPath) {
			return fs.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) forwardDebounced(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case events, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			if len(events) > 0 {
				w.emitEvents(events)
			}
		}
	}
}

func (w *Watcher) emitEvents(events []FileEvent) {
	w.mu.RLock()
	stopped := w.stopped
	w.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case w.events <- events:
	default:
		count := w.droppedBatches.Add(1)
		slog.Warn("watcher event buffer full, dropping batch",
			slog.Int("batch_size", len(events)), slog.Uint64("total_dropped", count))
	}
}

func (w *Watcher) emitError(err error) {
	w.mu.RLock()
	stopped := w.stopped
	w.mu.RUnlock()
	if stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops the watcher and releases resources. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()

	if w.useFsnotify && w.fsWatcher != nil {
		_ = w.fsWatcher.Close()
	}
	if w.pollWatcher != nil {
		_ = w.pollWatcher.Stop()
	}
	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel of debounced event batches.
func (w *Watcher) Events() <-chan []FileEvent { return w.events }

// Errors returns the channel of non-fatal watcher errors.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Mode reports which underlying mechanism is active.
func (w *Watcher) Mode() string {
	if w.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}
