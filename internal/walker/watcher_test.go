package walker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDetectsCreatedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "existing.go", "package main")

	w, err := NewWatcher(dir, t.TempDir(), WatchOptions{
		DebounceWindow: 20 * time.Millisecond,
		PollInterval:   30 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go w.Start(ctx)
	defer w.Stop()

	// Give the watcher time to establish its baseline before the change.
	time.Sleep(80 * time.Millisecond)
	writeFile(t, dir, "new.go", "package main")

	select {
	case batch := <-w.Events():
		var sawCreate bool
		for _, e := range batch {
			if e.Path == "new.go" && e.Operation == OpCreate {
				sawCreate = true
			}
		}
		assert.True(t, sawCreate, "expected a create event for new.go, got %+v", batch)
	case <-time.After(1500 * time.Millisecond):
		t.Fatal("timed out waiting for watcher event")
	}
}

func TestWatcherIgnoresNonIndexableAndExcluded(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "secret.go\n")

	w, err := NewWatcher(dir, t.TempDir(), WatchOptions{
		DebounceWindow: 20 * time.Millisecond,
		PollInterval:   30 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	go w.Start(ctx)
	defer w.Stop()

	time.Sleep(80 * time.Millisecond)
	writeFile(t, dir, "secret.go", "package main")
	writeFile(t, dir, "image.bin", "\x00\x00")

	select {
	case batch := <-w.Events():
		for _, e := range batch {
			assert.NotEqual(t, "secret.go", e.Path)
			assert.NotEqual(t, "image.bin", e.Path)
		}
	case <-time.After(400 * time.Millisecond):
		// No event at all is also an acceptable outcome here.
	}
}

func TestWatcherModeReflectsAvailability(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), t.TempDir(), WatchOptions{})
	require.NoError(t, err)
	assert.Contains(t, []string{"fsnotify", "polling"}, w.Mode())
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), t.TempDir(), WatchOptions{})
	require.NoError(t, err)
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

