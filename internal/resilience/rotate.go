package resilience

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Rotate tries an ordered list of interchangeable backends until one
// succeeds, advancing on error or rate limit. The caller's fn receives each
// backend in turn; a nil error stops the rotation. Non-transient errors
// still advance — a backend that rejects a request outright is no more
// useful than one that times out — but context cancellation aborts
// immediately. Exhausting the list is a hard failure carrying the last error.
func Rotate[B any, T any](ctx context.Context, backends []B, fn func(ctx context.Context, backend B) (T, error)) (T, error) {
	var zero T
	if len(backends) == 0 {
		return zero, eris.New("resilience: no backends configured")
	}

	var lastErr error
	for i, backend := range backends {
		val, err := fn(ctx, backend)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}

		if i < len(backends)-1 {
			zap.L().Warn("rotating to next backend",
				zap.Int("failed_index", i),
				zap.Bool("rate_limited", IsRateLimited(err)),
				zap.Error(err),
			)
		}
	}

	return zero, eris.Wrapf(lastErr, "resilience: all %d backends exhausted", len(backends))
}
