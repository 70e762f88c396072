package matcher

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSimilarityCache(t *testing.T) *SimilarityCache {
	t.Helper()
	c, err := NewSimilarityCache(SimilarityCacheConfig{
		NumCounters: 1000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestSimilarityCache_MissThenHit(t *testing.T) {
	c := newTestSimilarityCache(t)

	_, found := c.score("Will X win?", "Will Y win?")
	require.False(t, found)

	c.remember("Will X win?", "Will Y win?", 0.73)
	c.backing.Wait()

	score, found := c.score("Will X win?", "Will Y win?")
	require.True(t, found)
	require.InDelta(t, 0.73, score, 1e-9)
}

func TestSimilarityCache_KeyOrderMatters(t *testing.T) {
	c := newTestSimilarityCache(t)

	c.remember("Alpha resolves yes", "Beta resolves yes", 0.4)
	c.backing.Wait()

	_, found := c.score("Beta resolves yes", "Alpha resolves yes")
	require.False(t, found, "similarityMemoized always calls with (opinionTitle, polyTitle) in a fixed order")
}

func TestSimilarityCache_NilSafe(t *testing.T) {
	var c *SimilarityCache

	_, found := c.score("a", "b")
	require.False(t, found)

	require.NotPanics(t, func() { c.remember("a", "b", 1.0) })
	require.NotPanics(t, c.Close)
}
