package walker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func collect(ctx context.Context, t *testing.T, results <-chan Result) []Result {
	t.Helper()
	var out []Result
	for r := range results {
		out = append(out, r)
	}
	return out
}

func TestWalkerYieldsIndexableFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main")
	writeFile(t, dir, "README.md", "# hi")
	writeFile(t, dir, "image.bin", "\x00\x01\x02")
	writeFile(t, dir, "node_modules/pkg/index.js", "module.exports = {}")

	w, err := New(dir, t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	results := collect(ctx, t, w.Walk(ctx, Options{}))

	var paths []string
	for _, r := range results {
		require.NoError(t, r.Error)
		paths = append(paths, r.File.Path)
	}
	assert.ElementsMatch(t, []string{"main.go", "README.md"}, paths)
}

func TestWalkerHonoursGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main")
	writeFile(t, dir, "secret.go", "package main")
	writeFile(t, dir, ".gitignore", "secret.go\n")

	w, err := New(dir, t.TempDir())
	require.NoError(t, err)
	results := collect(context.Background(), t, w.Walk(context.Background(), Options{}))

	var paths []string
	for _, r := range results {
		paths = append(paths, r.File.Path)
	}
	assert.ElementsMatch(t, []string{"main.go"}, paths)
}

func TestWalkerHonoursRuneignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main")
	writeFile(t, dir, "generated.go", "package main")
	writeFile(t, dir, IgnoreFileName, "generated.go\n")

	w, err := New(dir, t.TempDir())
	require.NoError(t, err)
	results := collect(context.Background(), t, w.Walk(context.Background(), Options{}))

	var paths []string
	for _, r := range results {
		paths = append(paths, r.File.Path)
	}
	assert.NotContains(t, paths, "generated.go")
	assert.Contains(t, paths, "main.go")
}

func TestWalkerHonoursPerDirExclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pkg/a.go", "package pkg")
	writeFile(t, dir, "pkg/b.go", "package pkg")
	writeFile(t, dir, "pkg/"+ExcludeFileName, "b.go\n")

	w, err := New(dir, t.TempDir())
	require.NoError(t, err)
	results := collect(context.Background(), t, w.Walk(context.Background(), Options{}))

	var paths []string
	for _, r := range results {
		paths = append(paths, r.File.Path)
	}
	assert.Contains(t, paths, filepath.Join("pkg", "a.go"))
	assert.NotContains(t, paths, filepath.Join("pkg", "b.go"))
}

func TestWalkerHonoursGlobalIgnore(t *testing.T) {
	dir := t.TempDir()
	cacheDir := t.TempDir()
	writeFile(t, dir, "main.go", "package main")
	writeFile(t, dir, "scratch.go", "package main")
	writeFile(t, cacheDir, GlobalIgnoreFileName, "scratch.go\n")

	w, err := New(dir, cacheDir)
	require.NoError(t, err)
	results := collect(context.Background(), t, w.Walk(context.Background(), Options{}))

	var paths []string
	for _, r := range results {
		paths = append(paths, r.File.Path)
	}
	assert.Contains(t, paths, "main.go")
	assert.NotContains(t, paths, "scratch.go")
}

func TestWalkerSkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, 100)
	for i := range big {
		big[i] = 'a'
	}
	writeFile(t, dir, "big.go", string(big))

	w, err := New(dir, t.TempDir())
	require.NoError(t, err)
	results := collect(context.Background(), t, w.Walk(context.Background(), Options{MaxFileSize: 10}))
	assert.Empty(t, results)
}

func TestWalkerInvalidateIgnoreCachePicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main")
	writeFile(t, dir, "other.go", "package main")

	w, err := New(dir, t.TempDir())
	require.NoError(t, err)

	first := collect(context.Background(), t, w.Walk(context.Background(), Options{}))
	assert.Len(t, first, 2)

	writeFile(t, dir, ".gitignore", "other.go\n")
	w.InvalidateIgnoreCache()

	second := collect(context.Background(), t, w.Walk(context.Background(), Options{}))
	var paths []string
	for _, r := range second {
		paths = append(paths, r.File.Path)
	}
	assert.NotContains(t, paths, "other.go")
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "go", DetectLanguage("main.go"))
	assert.Equal(t, "markdown", DetectLanguage("docs/readme.md"))
	assert.Equal(t, "dockerfile", DetectLanguage("Dockerfile"))
	assert.Equal(t, "", DetectLanguage("binary.exe"))
}

func TestIsIndexable(t *testing.T) {
	assert.True(t, IsIndexable("main.go"))
	assert.False(t, IsIndexable("archive.zip"))
}
