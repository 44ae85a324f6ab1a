package vectorstore

import (
	"context"
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/varunkamath/rune/internal/rerr"
)

// hnswStore is the in-process fallback used when no Qdrant endpoint is
// reachable: bounded recall, no durability across restarts, but keeps
// semantic search degrading gracefully instead of disabling it. Lazy
// deletion (orphaning a key rather than removing it from the graph) and
// the distance-to-score cosine conversion are ported directly from the
// teacher's store.HNSWStore.
type hnswStore struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dim   int

	idMap   map[string]uint64
	keyMap  map[uint64]string
	payload map[uint64]Payload
	nextKey uint64

	closed bool
}

func newHNSWStore(dim int) *hnswStore {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &hnswStore{
		graph:   graph,
		dim:     dim,
		idMap:   make(map[string]uint64),
		keyMap:  make(map[uint64]string),
		payload: make(map[uint64]Payload),
	}
}

func (s *hnswStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return rerr.New(rerr.KindStorage, "vector store is closed")
	}

	for _, p := range points {
		if len(p.Vector) != s.dim {
			return rerr.New(rerr.KindStorage, "vector dimension mismatch")
		}
		if existingKey, exists := s.idMap[p.ID]; exists {
			delete(s.keyMap, existingKey)
			delete(s.payload, existingKey)
			delete(s.idMap, p.ID)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		normalizeInPlace(vec)

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[p.ID] = key
		s.keyMap[key] = p.ID
		s.payload[key] = p.Payload
	}
	return nil
}

func (s *hnswStore) Search(ctx context.Context, query []float32, topK int, filter Filter) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, rerr.New(rerr.KindStorage, "vector store is closed")
	}
	if len(query) != s.dim {
		return nil, rerr.New(rerr.KindStorage, "query dimension mismatch")
	}
	if s.graph.Len() == 0 {
		return []Result{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalizeInPlace(q)

	// Over-fetch to leave room for filtered-out orphans/non-matches.
	nodes := s.graph.Search(q, topK*4+topK)

	results := make([]Result, 0, topK)
	for _, node := range nodes {
		if len(results) >= topK {
			break
		}
		id, exists := s.keyMap[node.Key]
		if !exists {
			continue
		}
		payload := s.payload[node.Key]
		if !filter.empty() && !filter.matches(payload) {
			continue
		}
		distance := s.graph.Distance(q, node.Value)
		results = append(results, Result{
			Point: Point{ID: id, Vector: node.Value, Payload: payload},
			Score: distanceToScore(distance),
		})
	}
	return results, nil
}

func (s *hnswStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return rerr.New(rerr.KindStorage, "vector store is closed")
	}
	for _, id := range ids {
		if key, exists := s.idMap[id]; exists {
			delete(s.keyMap, key)
			delete(s.payload, key)
			delete(s.idMap, id)
		}
	}
	return nil
}

func (s *hnswStore) DeleteByFile(ctx context.Context, filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return rerr.New(rerr.KindStorage, "vector store is closed")
	}
	for id, key := range s.idMap {
		if s.payload[key].FilePath != filePath {
			continue
		}
		delete(s.keyMap, key)
		delete(s.payload, key)
		delete(s.idMap, id)
	}
	return nil
}

func (s *hnswStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25
	s.graph = graph
	s.idMap = make(map[string]uint64)
	s.keyMap = make(map[uint64]string)
	s.payload = make(map[uint64]Payload)
	s.nextKey = 0
	return nil
}

func (s *hnswStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.idMap)
}

func (s *hnswStore) Available(_ context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

func (s *hnswStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// distanceToScore converts cosine distance (0 identical, 2 opposite) into
// a 0-1 similarity score.
func distanceToScore(distance float32) float32 {
	return 1.0 - distance/2.0
}

var _ Store = (*hnswStore)(nil)
