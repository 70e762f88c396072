package venue

import (
	"context"
	"time"

	"github.com/mselser95/arbengine/pkg/venueerr"
)

// Retry runs op up to cfg.MaxAttempts times, backing off exponentially
// between attempts, and stops early on the first non-retryable error.
// Grounded on original_source/opinion.py's retry_on_failure decorator
// (max_retries=3, fixed delay), generalized to spec §4.A's exponential
// schedule (base 500ms, factor 2, cap 8s, max 5 attempts).
func Retry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context) error) error {
	backoff := cfg.Base
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		ve, ok := venueerr.As(err)
		if ok && !ve.Retryable() {
			return err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * cfg.Factor)
		if backoff > cfg.Cap {
			backoff = cfg.Cap
		}
	}

	return lastErr
}
