package provider

import (
	"context"

	"github.com/notifyhub/push-dispatch/internal/domain"
)

// Provider abstracts one delivery attempt to a push destination.
//
// The status code of the destination's response is returned even when it
// signals failure; only transport-level problems (DNS, timeout, TLS) surface
// as an error. The fanout engine decides what a given status means, and the
// pruner acts on 410 specifically. Mocking this interface in tests gives full
// control over destination behaviour without real push endpoints.
type Provider interface {
	Send(ctx context.Context, sub *domain.PushSubscription, payload []byte) (statusCode int, err error)
}
