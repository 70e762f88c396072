package bookfetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLimiter_FallsBackToTokenBucketWhenClientNil(t *testing.T) {
	limiter := NewLimiter(nil, "ratelimit:test", 10)
	_, ok := limiter.(*TokenBucket)
	assert.True(t, ok, "expected NewLimiter(nil, ...) to fall back to *TokenBucket")
}
