package embed

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ModelDownloadLock is a cross-process file lock, built on gofrs/flock, that
// guards a model directory while its weights are being fetched. Multiple
// rune processes (or multiple goroutines across a single process restarted
// concurrently) can race to materialize the same embedding model on first
// use; this serializes that race so only one download runs at a time and the
// rest block on its result. Works on all platforms (Unix, Linux, macOS,
// Windows).
type ModelDownloadLock struct {
	path   string
	flock  *flock.Flock
	locked bool // explicit state tracking for clarity
}

// NewModelDownloadLock creates a new file lock for the given model
// directory. The lock file is created at <dir>/.download.lock.
func NewModelDownloadLock(dir string) *ModelDownloadLock {
	lockPath := filepath.Join(dir, ".download.lock")
	return &ModelDownloadLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Lock acquires an exclusive lock on the file.
// This call blocks until the lock is available.
// If the lock file doesn't exist, it will be created.
func (l *ModelDownloadLock) Lock() error {
	// Ensure directory exists
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	// Acquire exclusive lock (blocking)
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false if it's held by another process.
func (l *ModelDownloadLock) TryLock() (bool, error) {
	// Ensure directory exists
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	// Try to acquire exclusive lock (non-blocking)
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the file lock.
// It's safe to call Unlock multiple times or on an unlocked ModelDownloadLock.
func (l *ModelDownloadLock) Unlock() error {
	if !l.locked {
		return nil
	}

	if err := l.flock.Unlock(); err != nil {
		l.locked = false
		return fmt.Errorf("failed to release lock: %w", err)
	}

	l.locked = false
	return nil
}

// Path returns the path to the lock file.
func (l *ModelDownloadLock) Path() string {
	return l.path
}

// IsLocked returns true if the lock is currently held.
func (l *ModelDownloadLock) IsLocked() bool {
	return l.locked
}
