package retriever

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootsResolveFindsFileUnderCorrectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))

	roots := NewRoots([]string{root})
	absPath, repo, ok := roots.Resolve("main.go")
	require.True(t, ok)
	assert.Equal(t, filepath.Base(root), repo)
	assert.Equal(t, filepath.Join(root, "main.go"), absPath)
}

func TestRootsResolveMissingFileFails(t *testing.T) {
	roots := NewRoots([]string{t.TempDir()})
	_, _, ok := roots.Resolve("missing.go")
	assert.False(t, ok)
}
