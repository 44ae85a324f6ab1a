package embed

import (
	"context"
	"os"
	"path/filepath"
)

// Pipeline is the Embedder a caller actually uses: either the real
// ONNX-backed model, or the deterministic hash-based fallback if the model
// could not be loaded. The fallback never fails, so a caller can always
// get a vector; Available reports which mode is active.
type Pipeline struct {
	real     *ONNXEmbedder
	fallback *StaticEmbedder
}

// NewPipeline loads the ONNX model from cacheDir (downloading it first if
// ensureModel is true and it is missing) and falls back to the static
// embedder if loading fails for any reason.
func NewPipeline(ctx context.Context, cacheDir, ortLibPath string, ensureModel bool) *Pipeline {
	p := &Pipeline{fallback: NewStaticEmbedder()}

	modelDir := filepath.Join(cacheDir, DefaultModelDir)
	manager := NewModelManager(modelDir)
	if ensureModel {
		_ = manager.EnsureModel(ctx)
	}
	if !manager.Ready() {
		return p
	}

	embedder, err := NewONNXEmbedder(modelDir, ortLibPath)
	if err == nil {
		p.real = embedder
	}
	return p
}

// active returns the embedder currently serving requests.
func (p *Pipeline) active() Embedder {
	if p.real != nil {
		return p.real
	}
	return p.fallback
}

func (p *Pipeline) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.active().Embed(ctx, text)
}

func (p *Pipeline) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return p.active().EmbedBatch(ctx, texts)
}

func (p *Pipeline) Dimensions() int { return p.active().Dimensions() }

func (p *Pipeline) ModelName() string { return p.active().ModelName() }

// Available reports whether the real model is loaded and serving; the
// fallback is always available, so this is the only way to tell the modes
// apart from outside the package.
func (p *Pipeline) Available(ctx context.Context) bool {
	if p.real != nil {
		return p.real.Available(ctx)
	}
	return false
}

// UsingFallback reports whether requests are being served by the
// hash-based fallback rather than the real model.
func (p *Pipeline) UsingFallback() bool {
	return p.real == nil
}

func (p *Pipeline) Close() error {
	if p.real != nil {
		if err := p.real.Close(); err != nil {
			return err
		}
	}
	return p.fallback.Close()
}

// Cached wraps the pipeline with a content-hash LRU cache of the given
// size (0 uses DefaultEmbeddingCacheSize).
func (p *Pipeline) Cached(cacheSize int) *CachedEmbedder {
	return NewCachedEmbedder(p, cacheSize)
}

// isCacheDisabled checks whether the caller opted out of embedding cache
// via environment, matching the convention other rune components use for
// env-based overrides.
func isCacheDisabled() bool {
	switch os.Getenv("RUNE_EMBED_CACHE") {
	case "false", "0", "off", "disabled":
		return true
	default:
		return false
	}
}
