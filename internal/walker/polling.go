package walker

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/varunkamath/rune/internal/rerr"
)

// pollingWatcher detects changes by periodically re-scanning the tree.
// Used when fsnotify fails to initialize, e.g. filesystems without
// inotify/FSEvents/ReadDirectoryChanges support.
type pollingWatcher struct {
	interval  time.Duration
	fileState map[string]fileSnapshot
	events    chan FileEvent
	errors    chan error
	stopCh    chan struct{}
	mu        sync.Mutex
	stopped   bool
	rootPath  string
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

func newPollingWatcher(interval time.Duration) *pollingWatcher {
	return &pollingWatcher{
		interval:  interval,
		fileState: make(map[string]fileSnapshot),
		events:    make(chan FileEvent, 100),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}
}

func (p *pollingWatcher) Start(ctx context.Context, root string) error {
	p.rootPath = root
	if err := p.scan(); err != nil {
		return rerr.Wrap(rerr.KindIO, "initial poll scan", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			p.detectChanges()
		}
	}
}

func (p *pollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

func (p *pollingWatcher) Events() <-chan FileEvent { return p.events }
func (p *pollingWatcher) Errors() <-chan error     { return p.errors }

func (p *pollingWatcher) scan() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(p.rootPath, path)
		if err != nil || relPath == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		p.fileState[relPath] = fileSnapshot{modTime: info.ModTime(), size: info.Size(), isDir: d.IsDir()}
		return nil
	})
}

func (p *pollingWatcher) detectChanges() {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := make(map[string]fileSnapshot)
	_ = filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(p.rootPath, path)
		if err != nil || relPath == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		snap := fileSnapshot{modTime: info.ModTime(), size: info.Size(), isDir: d.IsDir()}
		current[relPath] = snap

		if prev, exists := p.fileState[relPath]; !exists {
			p.emit(FileEvent{Path: relPath, Operation: OpCreate, IsDir: d.IsDir(), Timestamp: time.Now()})
		} else if prev.modTime != snap.modTime || prev.size != snap.size {
			p.emit(FileEvent{Path: relPath, Operation: OpModify, IsDir: d.IsDir(), Timestamp: time.Now()})
		}
		return nil
	})

	for path, snap := range p.fileState {
		if _, exists := current[path]; !exists {
			p.emit(FileEvent{Path: path, Operation: OpDelete, IsDir: snap.isDir, Timestamp: time.Now()})
		}
	}

	p.fileState = current
}

// emit must be called with p.mu held.
func (p *pollingWatcher) emit(event FileEvent) {
	if p.stopped {
		return
	}
	select {
	case p.events <- event:
	default:
		slog.Warn("polling watcher buffer full, dropping event",
			slog.String("path", event.Path), slog.String("op", event.Operation.String()))
	}
}
