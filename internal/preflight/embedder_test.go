package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_CheckEmbedderModel_ModelExists(t *testing.T) {
	checker := New()

	tmpDir := t.TempDir()
	modelDir := filepath.Join(tmpDir, "models", "all-MiniLM-L6-v2")
	require.NoError(t, os.MkdirAll(modelDir, 0755))

	f, err := os.Create(filepath.Join(modelDir, "model.onnx"))
	require.NoError(t, err)
	_ = f.Close()

	result := checker.CheckEmbedderModel(modelDir)

	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "embedder_model", result.Name)
	assert.Contains(t, result.Message, "downloaded")
}

func TestChecker_CheckEmbedderModel_ModelMissing(t *testing.T) {
	checker := New()

	tmpDir := t.TempDir()
	modelDir := filepath.Join(tmpDir, "models", "all-MiniLM-L6-v2")

	result := checker.CheckEmbedderModel(modelDir)

	assert.Equal(t, StatusWarn, result.Status)
	assert.Equal(t, "embedder_model", result.Name)
	assert.False(t, result.Required, "embedder model check should not be required")
	assert.Contains(t, result.Message, "not downloaded")
}

func TestChecker_CheckEmbedderDiskSpace_ResultFormat(t *testing.T) {
	checker := New()

	result := checker.CheckEmbedderDiskSpace(filepath.Join(t.TempDir(), "models", "all-MiniLM-L6-v2"))

	assert.Equal(t, "embedder_disk_space", result.Name)
	assert.False(t, result.Required, "disk space check should not be required")
	assert.NotEmpty(t, result.Message)
}
