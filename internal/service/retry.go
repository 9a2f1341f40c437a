package service

import (
	"context"
	"math/rand"
	"time"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/logger"
)

const (
	retryBaseDelay    = 10 * time.Millisecond
	retryJitterFactor = 0.3
)

// retryOnConflict re-runs fn while it fails with a conflict. fn must re-read
// and re-validate everything it writes, since the previous attempt lost a race.
// Delays grow as base, 2*base, 4*base ... plus up to 30% jitter.
func retryOnConflict(ctx context.Context, attempts int, op string, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * retryJitterFactor //nolint:gosec // jitter only
			select {
			case <-time.After(delay + time.Duration(jitter)):
			case <-ctx.Done():
				return ctx.Err()
			}
			logger.DebugContext(ctx, "Retrying after conflict", "operation", op, "attempt", attempt+1)
		}

		lastErr = fn(ctx)
		if lastErr == nil || !domain.IsConflict(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
