package matcher

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// similarityScoreTTL is how long a memoized title-similarity score stays
// valid. Titles don't change once a market is listed, but pairs age out of
// both venues' active lists eventually and there is no reason to keep
// scoring stale titles forever.
const similarityScoreTTL = time.Hour

// SimilarityCache memoizes titleSimilarity(a, b) scores keyed on the pair
// of titles, backed by ristretto. Matching runs the comparison against
// every open candidate on the other venue on every refresh cycle, so a
// title pair seen once is worth remembering rather than rescoring.
type SimilarityCache struct {
	backing *ristretto.Cache
	logger  *zap.Logger
}

// SimilarityCacheConfig configures the underlying ristretto instance.
type SimilarityCacheConfig struct {
	NumCounters int64 // keys to track frequency for, ~10x expected distinct title pairs
	MaxCost     int64 // max number of memoized entries (cost is 1 per entry)
	BufferItems int64
	Logger      *zap.Logger
}

// NewSimilarityCache constructs a SimilarityCache. Returns an error only
// when the underlying ristretto instance fails to allocate.
func NewSimilarityCache(cfg SimilarityCacheConfig) (*SimilarityCache, error) {
	backing, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SimilarityCache{backing: backing, logger: logger}, nil
}

// score looks up the memoized similarity for (titleA, titleB), returning
// (0, false) on a miss.
func (c *SimilarityCache) score(titleA, titleB string) (float64, bool) {
	if c == nil || c.backing == nil {
		return 0, false
	}

	value, found := c.backing.Get(similarityCacheKey(titleA, titleB))
	if !found {
		SimilarityCacheMissesTotal.Inc()
		return 0, false
	}
	score, ok := value.(float64)
	if !ok {
		SimilarityCacheMissesTotal.Inc()
		return 0, false
	}
	SimilarityCacheHitsTotal.Inc()
	return score, true
}

// remember memoizes score for (titleA, titleB).
func (c *SimilarityCache) remember(titleA, titleB string, score float64) {
	if c == nil || c.backing == nil {
		return
	}
	c.backing.SetWithTTL(similarityCacheKey(titleA, titleB), score, 1, similarityScoreTTL)
}

// Close releases the underlying ristretto instance.
func (c *SimilarityCache) Close() {
	if c == nil || c.backing == nil {
		return
	}
	c.backing.Close()
	c.logger.Info("similarity-cache-closed")
}

func similarityCacheKey(titleA, titleB string) string {
	return "sim:" + titleA + "|" + titleB
}
