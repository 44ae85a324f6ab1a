package walker

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/varunkamath/rune/internal/rerr"
)

// Result is one entry streamed from Walk.
type Result struct {
	File  *FileInfo
	Error error
}

// Walker enumerates indexable files under a workspace root.
type Walker struct {
	ignores *ignoreSet
}

// New creates a Walker for a single workspace root.
func New(root, cacheDir string) (*Walker, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, rerr.Wrap(rerr.KindIO, "resolve workspace root", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, rerr.Wrap(rerr.KindIO, "stat workspace root", err)
	}
	if !info.IsDir() {
		return nil, rerr.New(rerr.KindIO, "workspace root is not a directory")
	}
	return &Walker{ignores: newIgnoreSet(absRoot, cacheDir)}, nil
}

// Root returns the absolute workspace root this walker enumerates.
func (w *Walker) Root() string {
	return w.ignores.root
}

// InvalidateIgnoreCache forces ignore files to be re-read from disk on the
// next check, call after a repository ignore file, .runeignore, or
// .rune-exclude file changes.
func (w *Walker) InvalidateIgnoreCache() {
	w.ignores.invalidate()
}

// Walk streams every indexable file under the root. The channel is closed
// when the walk completes or ctx is cancelled.
func (w *Walker) Walk(ctx context.Context, opts Options) <-chan Result {
	results := make(chan Result, 64)
	maxSize := opts.maxFileSize()
	root := w.ignores.root

	go func() {
		defer close(results)

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err != nil {
				return nil
			}

			relPath, err := filepath.Rel(root, path)
			if err != nil || relPath == "." {
				return nil
			}

			if d.IsDir() {
				if w.ignores.shouldExcludeDir(relPath) {
					return fs.SkipDir
				}
				return nil
			}

			if d.Type()&fs.ModeSymlink != 0 && !opts.FollowSymlinks {
				return nil
			}

			if !IsIndexable(relPath) {
				return nil
			}

			if w.ignores.shouldExcludeFile(relPath) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.Size() > maxSize {
				return nil
			}
			if isBinary(path) {
				return nil
			}

			select {
			case results <- Result{File: &FileInfo{
				Path:     relPath,
				AbsPath:  path,
				Size:     info.Size(),
				ModTime:  info.ModTime(),
				Language: DetectLanguage(relPath),
			}}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})

		if err != nil && err != context.Canceled {
			select {
			case results <- Result{Error: rerr.Wrap(rerr.KindIO, "walk workspace", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return results
}

// isBinary sniffs the first 512 bytes for a null byte, the same heuristic
// `file`/git use to classify a blob as binary.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil {
		return false
	}
	return bytes.Contains(buf[:n], []byte{0})
}
