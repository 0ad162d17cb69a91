package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// DeliveryLimiter is a process-wide token bucket bounding the rate of
// outbound push sends. Burst is set equal to the rate so no extra burst
// capacity accumulates beyond the configured per-second maximum; a large
// fanout is smoothed out rather than fired as one spike at the push service.
type DeliveryLimiter struct {
	limiter *rate.Limiter
}

// New creates a DeliveryLimiter granting ratePerSec sends per second.
func New(ratePerSec int) *DeliveryLimiter {
	return &DeliveryLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
	}
}

// Wait blocks until the limiter grants a token.
// Called by each fanout goroutine immediately before sending.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (dl *DeliveryLimiter) Wait(ctx context.Context) error {
	return dl.limiter.Wait(ctx)
}
