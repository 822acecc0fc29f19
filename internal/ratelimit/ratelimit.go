// Package ratelimit paces outbound calls against per-service quotas.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer gates a call against an external service quota, blocking until the
// call may proceed or the context is done. Implementations must be safe for
// concurrent use.
type Pacer interface {
	Wait(ctx context.Context) error
}

// TokenBucket bounds calls per minute with a burst of one, so pacing holds
// even on the first calls of a run. It replaces fixed inter-call sleeps and
// lets tests simulate time without real sleeping.
type TokenBucket struct {
	limiter *rate.Limiter
}

// PerMinute returns a token bucket allowing n calls per minute. Values below
// one are clamped to one call per minute.
func PerMinute(n int) *TokenBucket {
	if n < 1 {
		n = 1
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1),
	}
}

func (t *TokenBucket) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// Unlimited is a no-op Pacer for tests and for services without quotas.
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context) error { return nil }
