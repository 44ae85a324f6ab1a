package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipelineFallsBackWhenModelAbsent(t *testing.T) {
	p := NewPipeline(context.Background(), t.TempDir(), "", false)
	defer p.Close()

	require.True(t, p.UsingFallback())
	require.False(t, p.Available(context.Background()))
	require.Equal(t, StaticDimensions, p.Dimensions())

	vec, err := p.Embed(context.Background(), "func Foo()")
	require.NoError(t, err)
	require.Len(t, vec, StaticDimensions)
}

func TestPipelineCachedWrapsEmbed(t *testing.T) {
	p := NewPipeline(context.Background(), t.TempDir(), "", false)
	defer p.Close()

	cached := p.Cached(0)
	v1, err := cached.Embed(context.Background(), "func Foo()")
	require.NoError(t, err)
	v2, err := cached.Embed(context.Background(), "func Foo()")
	require.NoError(t, err)
	require.Equal(t, v1, v2)
}
