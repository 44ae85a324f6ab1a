// Package embed implements the embedding pipeline (component C5): turning
// chunk text into a fixed-dimension unit-norm vector, with a real
// ONNX-backed model and a deterministic hash-based fallback when the model
// cannot be loaded.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// MinBatchSize is the smallest batch EmbedBatch will accept as one unit.
	MinBatchSize = 1

	// MaxBatchSize bounds a single EmbedBatch call to keep memory and
	// attention-matrix size predictable.
	MaxBatchSize = 32

	// DefaultBatchSize is the default embedding batch size; it equals
	// MaxBatchSize, the bound ONNXEmbedder.EmbedBatch splits input by.
	DefaultBatchSize = 32

	// DefaultTimeout bounds a single embedding request.
	DefaultTimeout = 30 * time.Second
)

// ModelDimensions is the output dimension of the real ONNX model
// (all-MiniLM-L6-v2).
const ModelDimensions = 384

// StaticDimensions is the output dimension of the hash-based fallback.
const StaticDimensions = 256

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the embedder is ready to serve requests.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector L2-normalizes v in place and returns it.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	for i, val := range v {
		v[i] = float32(float64(val) / magnitude)
	}
	return v
}
