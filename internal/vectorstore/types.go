// Package vectorstore implements the vector store adaptor (component C6):
// a Qdrant-backed collection per workspace, falling back to an in-process
// HNSW graph when no Qdrant endpoint is reachable.
package vectorstore

import "context"

// Payload is the metadata carried alongside a vector, returned from Search
// so a caller can render a result without a second lookup.
type Payload struct {
	Content   string
	FilePath  string
	StartLine int
	EndLine   int
	Language  string
}

// Point is a vector plus its payload, keyed by a deterministic id (see
// PointID) so re-indexing the same chunk replaces the same point.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Result is a single match from Search.
type Result struct {
	Point
	Score float32
}

// Filter narrows Search to points whose payload matches. A zero-value
// Filter applies no constraint.
type Filter struct {
	FilePath string
	Language string
}

func (f Filter) empty() bool {
	return f.FilePath == "" && f.Language == ""
}

func (f Filter) matches(p Payload) bool {
	if f.FilePath != "" && p.FilePath != f.FilePath {
		return false
	}
	if f.Language != "" && p.Language != f.Language {
		return false
	}
	return true
}

// Store is the adaptor every backend (Qdrant, in-process HNSW fallback)
// implements.
type Store interface {
	// Upsert inserts or replaces points by ID.
	Upsert(ctx context.Context, points []Point) error

	// Search finds the topK nearest points to query, optionally narrowed
	// by filter.
	Search(ctx context.Context, query []float32, topK int, filter Filter) ([]Result, error)

	// Delete removes points by ID.
	Delete(ctx context.Context, ids []string) error

	// DeleteByFile removes every point whose payload names filePath,
	// regardless of id. Callers use this to clear a file's stale chunks
	// before upserting its freshly re-chunked ones, since a chunk's line
	// range (and so its point id) can shift between re-indexes.
	DeleteByFile(ctx context.Context, filePath string) error

	// Clear removes all points, recreating the collection/graph empty.
	Clear(ctx context.Context) error

	// Count returns the number of points currently stored.
	Count() int

	// Available reports whether the backend is ready to serve requests.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// Config configures a Store, shared across backends so a caller doesn't
// need to know which one was selected.
type Config struct {
	// Dimensions is the vector length every point must match.
	Dimensions int

	// WorkspaceRoot names the workspace whose collection/graph this store
	// holds; the collection name is derived from it.
	WorkspaceRoot string

	// Endpoint overrides the Qdrant endpoint discovery list when non-empty
	// (e.g. from a QDRANT_URL-style environment override).
	Endpoint string
}
