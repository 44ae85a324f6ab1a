package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	inner *StaticEmbedder
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls += len(texts)
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *countingEmbedder) Dimensions() int          { return c.inner.Dimensions() }
func (c *countingEmbedder) ModelName() string        { return c.inner.ModelName() }
func (c *countingEmbedder) Available(ctx context.Context) bool { return c.inner.Available(ctx) }
func (c *countingEmbedder) Close() error             { return c.inner.Close() }

func TestCachedEmbedderSkipsRepeatedComputation(t *testing.T) {
	inner := &countingEmbedder{inner: NewStaticEmbedder()}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "func Foo()")
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "func Foo()")
	require.NoError(t, err)

	require.Equal(t, 1, inner.calls)
}

func TestCachedEmbedderBatchOnlyComputesMisses(t *testing.T) {
	inner := &countingEmbedder{inner: NewStaticEmbedder()}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "func Foo()")
	require.NoError(t, err)

	results, err := cached.EmbedBatch(ctx, []string{"func Foo()", "func Bar()"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 2, inner.calls) // 1 for Embed + 1 for the uncached Bar
}
