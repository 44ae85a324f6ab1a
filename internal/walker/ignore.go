package walker

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/varunkamath/rune/internal/walker/gitignore"
)

// ignoreCacheSize bounds the per-directory matcher cache so a long-running
// watch on a large tree doesn't grow it unbounded.
const ignoreCacheSize = 1000

// defaultExcludeDirs are always skipped, independent of any ignore file.
var defaultExcludeDirs = []string{
	"node_modules", ".git", "vendor", "__pycache__", "dist", "build",
}

// ignoreSet resolves whether a path should be excluded from a walk or
// watch, layering (in order): always-excluded directories, nested
// repository ignore files (.gitignore), nested IgnoreFileName
// (.runeignore, same gitignore syntax), a workspace-wide global ignore
// file under the cache dir, and per-directory ExcludeFileName
// (.rune-exclude) exact-fragment exclusions.
type ignoreSet struct {
	root    string
	cache   *lru.Cache[string, *gitignore.Matcher]
	exclude *lru.Cache[string, map[string]struct{}]
	global  *gitignore.Matcher
	mu      sync.Mutex
}

func newIgnoreSet(root, cacheDir string) *ignoreSet {
	matcherCache, _ := lru.New[string, *gitignore.Matcher](ignoreCacheSize)
	excludeCache, _ := lru.New[string, map[string]struct{}](ignoreCacheSize)

	s := &ignoreSet{root: root, cache: matcherCache, exclude: excludeCache}
	if cacheDir != "" {
		s.global = loadGlobalIgnore(filepath.Join(cacheDir, GlobalIgnoreFileName))
	}
	return s
}

func loadGlobalIgnore(path string) *gitignore.Matcher {
	m := gitignore.New()
	if err := m.AddFromFile(path, ""); err != nil {
		return nil
	}
	return m
}

// shouldExcludeDir reports whether relPath (a directory, relative to root)
// should be skipped entirely, pruning the walk below it.
func (s *ignoreSet) shouldExcludeDir(relPath string) bool {
	base := filepath.Base(relPath)
	for _, d := range defaultExcludeDirs {
		if base == d {
			return true
		}
	}
	return s.isIgnored(relPath, true)
}

// shouldExcludeFile reports whether relPath (a file, relative to root)
// should be excluded from indexing.
func (s *ignoreSet) shouldExcludeFile(relPath string) bool {
	return s.isIgnored(relPath, false)
}

func (s *ignoreSet) isIgnored(relPath string, isDir bool) bool {
	if s.global != nil && s.global.Match(relPath, isDir) {
		return true
	}
	if s.matchesLayeredGitignore(relPath, isDir, ".gitignore") {
		return true
	}
	if s.matchesLayeredGitignore(relPath, isDir, IgnoreFileName) {
		return true
	}
	return s.matchesExclude(relPath)
}

// matchesLayeredGitignore checks relPath against every ignore file named
// fileName found in relPath's ancestor directories, root first.
func (s *ignoreSet) matchesLayeredGitignore(relPath string, isDir bool, fileName string) bool {
	if m := s.matcherFor(s.root, "", fileName); m != nil && m.Match(relPath, isDir) {
		return true
	}

	dir := filepath.Dir(relPath)
	if dir == "." {
		return false
	}
	parts := strings.Split(filepath.ToSlash(dir), "/")
	currentDir := s.root
	var currentBase string
	for _, part := range parts {
		currentDir = filepath.Join(currentDir, part)
		if currentBase == "" {
			currentBase = part
		} else {
			currentBase = currentBase + "/" + part
		}
		if m := s.matcherFor(currentDir, currentBase, fileName); m != nil && m.Match(relPath, isDir) {
			return true
		}
	}
	return false
}

func (s *ignoreSet) matcherFor(dir, base, fileName string) *gitignore.Matcher {
	key := fileName + ":" + dir
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.cache.Get(key); ok {
		return m
	}

	path := filepath.Join(dir, fileName)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	m := gitignore.New()
	if err := m.AddFromFile(path, base); err != nil {
		return nil
	}
	s.cache.Add(key, m)
	return m
}

// matchesExclude checks relPath against ExcludeFileName files, which list
// exact file/directory names (one per line, no glob syntax) to exclude
// from the directory they live in down.
func (s *ignoreSet) matchesExclude(relPath string) bool {
	dir := filepath.Dir(relPath)
	base := filepath.Base(relPath)

	currentDir := s.root
	if dir != "." {
		parts := strings.Split(filepath.ToSlash(dir), "/")
		for _, part := range parts {
			currentDir = filepath.Join(currentDir, part)
			if s.excludesName(currentDir, base) {
				return true
			}
		}
		return false
	}
	return s.excludesName(currentDir, base)
}

func (s *ignoreSet) excludesName(dir, name string) bool {
	names := s.excludeNames(dir)
	_, ok := names[name]
	return ok
}

func (s *ignoreSet) excludeNames(dir string) map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if names, ok := s.exclude.Get(dir); ok {
		return names
	}

	names := map[string]struct{}{}
	f, err := os.Open(filepath.Join(dir, ExcludeFileName))
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			names[line] = struct{}{}
		}
		f.Close()
	}
	s.exclude.Add(dir, names)
	return names
}

// invalidate drops cached matchers, forcing the next check to re-read
// ignore files from disk. Call after any ignore file changes.
func (s *ignoreSet) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
	s.exclude.Purge()
}
