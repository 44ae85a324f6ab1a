package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/varunkamath/rune/internal/rerr"
)

// qdrantEndpoint is one candidate (host, grpcPort) pair tried during
// connect discovery.
type qdrantEndpoint struct {
	host string
	port int
}

// defaultEndpoints tries IPv4 loopback before the "localhost" hostname, on
// the standard gRPC port, mirroring original_source's ordered discovery.
func defaultEndpoints() []qdrantEndpoint {
	return []qdrantEndpoint{
		{host: "127.0.0.1", port: 6334},
		{host: "localhost", port: 6334},
	}
}

// qdrantStore talks to a real Qdrant instance. If connect discovery fails,
// client is nil and every operation behaves as unavailable/no-op, letting
// callers fall back to the in-process store instead of failing outright.
type qdrantStore struct {
	client     *qdrant.Client
	collection string
	dim        int
}

// newQdrantStore runs connect discovery and, on success, ensures the
// collection exists. QDRANT_URL (host:port) takes precedence over the
// built-in endpoint list when set.
func newQdrantStore(ctx context.Context, cfg Config) *qdrantStore {
	collection := collectionName(cfg.WorkspaceRoot)
	store := &qdrantStore{collection: collection, dim: cfg.Dimensions}

	endpoints := candidateEndpoints(cfg.Endpoint)

	for _, ep := range endpoints {
		client, err := connectWithRetry(ctx, ep)
		if err != nil {
			continue
		}
		if err := ensureCollection(ctx, client, collection, cfg.Dimensions); err != nil {
			client.Close()
			continue
		}
		store.client = client
		return store
	}
	return store
}

func candidateEndpoints(override string) []qdrantEndpoint {
	if override == "" {
		if env := os.Getenv("QDRANT_URL"); env != "" {
			override = env
		}
	}
	if override == "" {
		return defaultEndpoints()
	}

	host, portStr, found := strings.Cut(strings.TrimPrefix(strings.TrimPrefix(override, "http://"), "https://"), ":")
	port := 6334
	if found {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}
	return []qdrantEndpoint{{host: host, port: port}}
}

// connectDiscoveryAttempts and connectDiscoveryDelay bound how long a
// single endpoint is retried before discovery moves on to the next
// candidate; a reachable-but-still-starting Qdrant container is the only
// case this is meant to ride out.
const (
	connectDiscoveryAttempts = 3
	connectDiscoveryDelay    = 200 * time.Millisecond
)

func connectWithRetry(ctx context.Context, ep qdrantEndpoint) (*qdrant.Client, error) {
	var lastErr error
	for attempt := 0; attempt < connectDiscoveryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(connectDiscoveryDelay * time.Duration(attempt)):
			}
		}

		c, err := qdrant.NewClient(&qdrant.Config{Host: ep.host, Port: ep.port})
		if err != nil {
			lastErr = err
			continue
		}
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err = c.HealthCheck(checkCtx)
		cancel()
		if err != nil {
			c.Close()
			lastErr = err
			continue
		}
		return c, nil
	}
	return nil, lastErr
}

func ensureCollection(ctx context.Context, client *qdrant.Client, collection string, dim int) error {
	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

// collectionName derives a short, stable collection name from the
// workspace root so distinct workspaces never collide.
func collectionName(workspaceRoot string) string {
	hash := sha256.Sum256([]byte(workspaceRoot))
	return "rune_" + hex.EncodeToString(hash[:])[:16]
}

func (s *qdrantStore) Available(ctx context.Context) bool {
	if s.client == nil {
		return false
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := s.client.CollectionExists(checkCtx, s.collection)
	return err == nil
}

func (s *qdrantStore) Upsert(ctx context.Context, points []Point) error {
	if s.client == nil {
		return nil
	}
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qpoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payloadToQdrant(p.Payload),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         qpoints,
	})
	if err != nil {
		return rerr.Wrap(rerr.KindStorage, "upsert vector points", err)
	}
	return nil
}

func (s *qdrantStore) Search(ctx context.Context, query []float32, topK int, filter Filter) ([]Result, error) {
	if s.client == nil {
		return []Result{}, nil
	}

	req := &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         query,
		Limit:          uint64(topK),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if qf := filterToQdrant(filter); qf != nil {
		req.Filter = qf
	}

	resp, err := s.client.GetPointsClient().Search(ctx, req)
	if err != nil {
		return nil, rerr.Wrap(rerr.KindSearch, "search vector points", err)
	}

	results := make([]Result, 0, len(resp.Result))
	for _, point := range resp.Result {
		id := pointIDString(point.Id)
		payload := payloadFromQdrant(point.Payload)
		results = append(results, Result{
			Point: Point{ID: id, Payload: payload},
			Score: point.Score,
		})
	}
	return results, nil
}

func (s *qdrantStore) Delete(ctx context.Context, ids []string) error {
	if s.client == nil || len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(id)
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return rerr.Wrap(rerr.KindStorage, "delete vector points", err)
	}
	return nil
}

func (s *qdrantStore) DeleteByFile(ctx context.Context, filePath string) error {
	if s.client == nil {
		return nil
	}
	val, err := qdrant.NewValue(filePath)
	if err != nil {
		return rerr.Wrap(rerr.KindStorage, "delete vector points by file", err)
	}
	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{{
						ConditionOneOf: &qdrant.Condition_Field{
							Field: &qdrant.FieldCondition{
								Key: "file_path",
								Match: &qdrant.Match{
									MatchValue: &qdrant.Match_Keyword{Keyword: val.GetStringValue()},
								},
							},
						},
					}},
				},
			},
		},
	})
	if err != nil {
		return rerr.Wrap(rerr.KindStorage, "delete vector points by file", err)
	}
	return nil
}

func (s *qdrantStore) Clear(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return rerr.Wrap(rerr.KindStorage, "delete collection", err)
	}
	return ensureCollection(ctx, s.client, s.collection, s.dim)
}

func (s *qdrantStore) Count() int {
	if s.client == nil {
		return 0
	}
	info, err := s.client.GetCollectionInfo(context.Background(), s.collection)
	if err != nil || info == nil {
		return 0
	}
	return int(info.GetPointsCount())
}

func (s *qdrantStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func payloadToQdrant(p Payload) map[string]*qdrant.Value {
	out := make(map[string]*qdrant.Value, 5)
	fields := map[string]any{
		"content":    p.Content,
		"file_path":  p.FilePath,
		"start_line": int64(p.StartLine),
		"end_line":   int64(p.EndLine),
	}
	if p.Language != "" {
		fields["language"] = p.Language
	}
	for key, value := range fields {
		val, err := qdrant.NewValue(value)
		if err != nil {
			continue
		}
		out[key] = val
	}
	return out
}

func payloadFromQdrant(fields map[string]*qdrant.Value) Payload {
	var p Payload
	if v, ok := fields["content"]; ok {
		p.Content = v.GetStringValue()
	}
	if v, ok := fields["file_path"]; ok {
		p.FilePath = v.GetStringValue()
	}
	if v, ok := fields["start_line"]; ok {
		p.StartLine = int(v.GetIntegerValue())
	}
	if v, ok := fields["end_line"]; ok {
		p.EndLine = int(v.GetIntegerValue())
	}
	if v, ok := fields["language"]; ok {
		p.Language = v.GetStringValue()
	}
	return p
}

func filterToQdrant(f Filter) *qdrant.Filter {
	if f.empty() {
		return nil
	}
	fields := map[string]string{}
	if f.FilePath != "" {
		fields["file_path"] = f.FilePath
	}
	if f.Language != "" {
		fields["language"] = f.Language
	}

	must := make([]*qdrant.Condition, 0, len(fields))
	for key, value := range fields {
		val, err := qdrant.NewValue(value)
		if err != nil {
			continue
		}
		must = append(must, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: key,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{
							Keyword: val.GetStringValue(),
						},
					},
				},
			},
		})
	}
	return &qdrant.Filter{Must: must}
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil || id.PointIdOptions == nil {
		return ""
	}
	switch v := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", v.Num)
	default:
		return ""
	}
}

var _ Store = (*qdrantStore)(nil)
