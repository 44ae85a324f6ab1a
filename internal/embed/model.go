package embed

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/varunkamath/rune/internal/rerr"
)

const (
	// DefaultModelDir is the cache-relative directory holding the ONNX
	// model and tokenizer files.
	DefaultModelDir = "models/all-MiniLM-L6-v2"

	modelFileName    = "model.onnx"
	tokenizerFile    = "tokenizer.json"
	modelBaseURL     = "https://huggingface.co/sentence-transformers/all-MiniLM-L6-v2/resolve/main"
	modelDownloadURL = modelBaseURL + "/onnx/" + modelFileName
	tokenizerURL     = modelBaseURL + "/" + tokenizerFile

	// ModelDownloadTimeout bounds a single file fetch.
	ModelDownloadTimeout = 10 * time.Minute
)

// ModelManager downloads and caches the ONNX model and tokenizer files used
// by Pipeline's real embedder.
type ModelManager struct {
	dir  string
	lock *ModelDownloadLock
	mu   sync.Mutex
}

// NewModelManager builds a manager rooted at dir (typically
// "<cache_dir>/models/all-MiniLM-L6-v2").
func NewModelManager(dir string) *ModelManager {
	return &ModelManager{dir: dir}
}

func (m *ModelManager) ModelPath() string {
	return filepath.Join(m.dir, modelFileName)
}

func (m *ModelManager) TokenizerPath() string {
	return filepath.Join(m.dir, tokenizerFile)
}

// Ready reports whether both files are already present.
func (m *ModelManager) Ready() bool {
	return fileNonEmpty(m.ModelPath()) && fileNonEmpty(m.TokenizerPath())
}

// EnsureModel downloads the model and tokenizer if either is missing,
// serializing concurrent callers (including other processes) with a file
// lock so only one download happens.
func (m *ModelManager) EnsureModel(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Ready() {
		return nil
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return rerr.Wrap(rerr.KindIO, "create model directory", err)
	}

	m.lock = NewModelDownloadLock(m.dir)
	if err := m.lock.Lock(); err != nil {
		return rerr.Wrap(rerr.KindIO, "acquire model download lock", err)
	}
	defer m.lock.Unlock()

	if m.Ready() {
		return nil
	}

	retry := DefaultRetryConfig()
	if err := DownloadWithRetry(ctx, retry, func() error {
		return downloadFile(ctx, modelDownloadURL, m.ModelPath())
	}); err != nil {
		return rerr.Wrap(rerr.KindNetwork, "download onnx model", err)
	}
	if err := DownloadWithRetry(ctx, retry, func() error {
		return downloadFile(ctx, tokenizerURL, m.TokenizerPath())
	}); err != nil {
		return rerr.Wrap(rerr.KindNetwork, "download tokenizer", err)
	}
	return nil
}

func downloadFile(ctx context.Context, url, destPath string) error {
	tmpPath := destPath + ".tmp"
	defer os.Remove(tmpPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return rerr.Wrap(rerr.KindNetwork, "build download request", err)
	}
	req.Header.Set("User-Agent", "rune/1.0")

	client := &http.Client{Timeout: ModelDownloadTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return rerr.Wrap(rerr.KindNetwork, "fetch "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return rerr.New(rerr.KindNetwork, "download failed: "+resp.Status)
	}

	file, err := os.Create(tmpPath)
	if err != nil {
		return rerr.Wrap(rerr.KindIO, "create temp download file", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return rerr.Wrap(rerr.KindIO, "write download", err)
	}
	if err := file.Sync(); err != nil {
		return rerr.Wrap(rerr.KindIO, "sync download", err)
	}
	if err := file.Close(); err != nil {
		return rerr.Wrap(rerr.KindIO, "close download", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return rerr.Wrap(rerr.KindIO, "finalize download", err)
	}
	return nil
}

func fileNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// DefaultCacheDir returns the default directory models are cached under.
func DefaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cache", "rune")
}
