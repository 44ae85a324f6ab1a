package vectorstore

import "context"

// NewStore runs Qdrant connect discovery and returns a store backed by it
// when reachable. If discovery fails entirely, it returns an in-process
// HNSW store instead so semantic search still works, at bounded recall and
// without durability across restarts.
func NewStore(ctx context.Context, cfg Config) Store {
	qs := newQdrantStore(ctx, cfg)
	if qs.Available(ctx) {
		return qs
	}
	qs.Close()
	return newHNSWStore(cfg.Dimensions)
}
