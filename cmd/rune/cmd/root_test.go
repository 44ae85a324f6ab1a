package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varunkamath/rune/internal/config"
	"github.com/varunkamath/rune/internal/preflight"
)

func TestRootCmdWiresEverySubcommand(t *testing.T) {
	root := NewRootCmd()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"index", "search", "watch", "stats", "version"} {
		assert.True(t, names[want], "expected %q subcommand to be registered", want)
	}
}

func TestResolveRootFallsBackToCurrentDirectory(t *testing.T) {
	oldRootDir := rootDir
	rootDir = ""
	defer func() { rootDir = oldRootDir }()

	root, err := resolveRoot()
	assert.NoError(t, err)
	assert.NotEmpty(t, root)
}

func TestResolveRootHonorsRootFlag(t *testing.T) {
	oldRootDir := rootDir
	defer func() { rootDir = oldRootDir }()

	dir := t.TempDir()
	rootDir = dir

	root, err := resolveRoot()
	assert.NoError(t, err)
	assert.Equal(t, dir, root)
}

func TestRunPreflightSkipsOnceMarkerExists(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default(root)
	cfg.EnableSemantic = false

	var out bytes.Buffer
	require.NoError(t, runPreflight(context.Background(), cfg, &out))
	assert.NotEmpty(t, out.String(), "first run should print check results")
	assert.False(t, preflight.NeedsCheck(cfg.CacheDir))

	out.Reset()
	require.NoError(t, runPreflight(context.Background(), cfg, &out))
	assert.Empty(t, out.String(), "second run should be a no-op once the marker exists")
}

func TestRunPreflightSkipsEmbedderChecksWhenSemanticDisabled(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default(root)
	cfg.EnableSemantic = false

	var out bytes.Buffer
	require.NoError(t, runPreflight(context.Background(), cfg, &out))
	assert.NotContains(t, out.String(), "embedder_model")
}
