package vectorstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQdrantStoreUnreachableLeavesClientNil(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Port 1 is reserved and never answers gRPC, so discovery exhausts the
	// single override candidate without blocking the test suite.
	store := newQdrantStore(ctx, Config{
		Dimensions:    4,
		WorkspaceRoot: "/tmp/unreachable-workspace",
		Endpoint:      "127.0.0.1:1",
	})

	assert.False(t, store.Available(ctx))
	assert.Equal(t, 0, store.Count())

	results, err := store.Search(ctx, []float32{1, 2, 3, 4}, 5, Filter{})
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.NoError(t, store.Upsert(ctx, []Point{{ID: "a", Vector: []float32{1, 2, 3, 4}}}))
	assert.NoError(t, store.Delete(ctx, []string{"a"}))
	assert.NoError(t, store.Close())
}

func TestCandidateEndpointsParsesOverride(t *testing.T) {
	eps := candidateEndpoints("example.internal:7000")
	require.Len(t, eps, 1)
	assert.Equal(t, "example.internal", eps[0].host)
	assert.Equal(t, 7000, eps[0].port)
}

func TestCandidateEndpointsDefaultsWithoutOverride(t *testing.T) {
	eps := candidateEndpoints("")
	require.Len(t, eps, 2)
	assert.Equal(t, "127.0.0.1", eps[0].host)
	assert.Equal(t, "localhost", eps[1].host)
}

func TestCollectionNameIsStableAndPrefixed(t *testing.T) {
	a := collectionName("/home/user/project")
	b := collectionName("/home/user/project")
	c := collectionName("/home/user/other")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^rune_[0-9a-f]{16}$`, a)
}

func TestPayloadRoundTripsThroughQdrantValues(t *testing.T) {
	p := Payload{Content: "x := 1", FilePath: "main.go", StartLine: 3, EndLine: 5, Language: "go"}
	fields := payloadToQdrant(p)
	got := payloadFromQdrant(fields)
	assert.Equal(t, p, got)
}

func TestFilterToQdrantEmptyReturnsNil(t *testing.T) {
	assert.Nil(t, filterToQdrant(Filter{}))
}

func TestFilterToQdrantBuildsMatchConditions(t *testing.T) {
	f := filterToQdrant(Filter{FilePath: "main.go", Language: "go"})
	require.NotNil(t, f)
	assert.Len(t, f.Must, 2)
}
