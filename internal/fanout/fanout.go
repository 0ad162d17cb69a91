package fanout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/push-dispatch/internal/domain"
	"github.com/notifyhub/push-dispatch/internal/provider"
	"github.com/notifyhub/push-dispatch/internal/ratelimiter"
)

// Hooks carries the metric callback functions injected by main.
// Using a struct keeps the engine constructor signature clean and the
// engine itself metrics-agnostic.
type Hooks struct {
	OnDelivered func(latency time.Duration)
	OnFailed    func(statusCode int)
}

// Engine delivers one serialized message to every subscription concurrently
// and joins on the full batch: a single destination's failure never aborts or
// affects delivery to any other destination, and the engine performs no
// retries — a failed attempt is reported once and is the caller's concern.
//
// Concurrency stays "one goroutine per subscription, all awaited", bounded by
// a semaphore on in-flight sends so a user with very many registrations
// cannot exhaust the process.
type Engine struct {
	prov        provider.Provider
	limiter     *ratelimiter.DeliveryLimiter
	maxInFlight int
	logger      *zap.Logger

	onDelivered func(time.Duration)
	onFailed    func(int)
}

// New constructs an engine. Hook fields are optional (nil = no-op).
func New(
	prov provider.Provider,
	limiter *ratelimiter.DeliveryLimiter,
	maxInFlight int,
	logger *zap.Logger,
	hooks Hooks,
) *Engine {
	if hooks.OnDelivered == nil {
		hooks.OnDelivered = func(time.Duration) {}
	}
	if hooks.OnFailed == nil {
		hooks.OnFailed = func(int) {}
	}
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Engine{
		prov:        prov,
		limiter:     limiter,
		maxInFlight: maxInFlight,
		logger:      logger,
		onDelivered: hooks.OnDelivered,
		onFailed:    hooks.OnFailed,
	}
}

// Deliver sends payload to every subscription and blocks until all attempts
// settle. The result holds exactly one outcome per subscription, indexed by
// SubscriptionID; slice order matches the input but carries no meaning.
func (e *Engine) Deliver(ctx context.Context, payload []byte, subs []*domain.PushSubscription) []domain.DeliveryOutcome {
	outcomes := make([]domain.DeliveryOutcome, len(subs))
	sem := make(chan struct{}, e.maxInFlight)

	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub *domain.PushSubscription) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = e.deliverOne(ctx, payload, sub)
		}(i, sub)
	}
	wg.Wait()

	return outcomes
}

func (e *Engine) deliverOne(ctx context.Context, payload []byte, sub *domain.PushSubscription) domain.DeliveryOutcome {
	start := time.Now()

	if err := e.limiter.Wait(ctx); err != nil {
		// ctx cancelled while waiting — the hosting request is gone.
		e.onFailed(0)
		return domain.DeliveryOutcome{SubscriptionID: sub.ID, Error: err.Error()}
	}

	status, err := e.prov.Send(ctx, sub, payload)
	if err != nil {
		e.logger.Warn("push delivery failed",
			zap.String("subscription_id", sub.ID),
			zap.Error(err),
		)
		e.onFailed(0)
		return domain.DeliveryOutcome{SubscriptionID: sub.ID, Error: err.Error()}
	}

	if status < 200 || status >= 300 {
		e.logger.Warn("push destination rejected delivery",
			zap.String("subscription_id", sub.ID),
			zap.Int("status", status),
		)
		e.onFailed(status)
		return domain.DeliveryOutcome{
			SubscriptionID: sub.ID,
			StatusCode:     status,
			Error:          "push service returned non-success status",
		}
	}

	e.onDelivered(time.Since(start))
	return domain.DeliveryOutcome{
		SubscriptionID: sub.ID,
		Success:        true,
		StatusCode:     status,
	}
}
