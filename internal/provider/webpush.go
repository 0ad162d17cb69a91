package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/notifyhub/push-dispatch/internal/domain"
)

// WebPushProvider delivers payloads over the Web Push protocol with VAPID
// authentication. The signing key pair is injected from config rather than
// read from process-wide state, so tests can construct a provider with
// throwaway keys pointed at a local endpoint.
type WebPushProvider struct {
	opts webpush.Options
}

// NewWebPushProvider builds a provider from a VAPID key pair.
// subscriber is the contact URI (mailto: or https:) presented to push
// services; ttl is how long, in seconds, a push service may hold an
// undelivered message.
func NewWebPushProvider(vapidPublicKey, vapidPrivateKey, subscriber string, ttl int, timeout time.Duration) *WebPushProvider {
	return &WebPushProvider{
		opts: webpush.Options{
			HTTPClient:      &http.Client{Timeout: timeout},
			Subscriber:      subscriber,
			VAPIDPublicKey:  vapidPublicKey,
			VAPIDPrivateKey: vapidPrivateKey,
			TTL:             ttl,
		},
	}
}

// Send encrypts the payload for the subscription's keys and posts it to the
// subscription endpoint. The destination's status code is returned as-is:
// 201 is the usual acceptance, 410 means the subscription is permanently gone.
func (p *WebPushProvider) Send(ctx context.Context, sub *domain.PushSubscription, payload []byte) (int, error) {
	s := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}

	opts := p.opts
	resp, err := webpush.SendNotificationWithContext(ctx, payload, s, &opts)
	if err != nil {
		return 0, fmt.Errorf("send web push: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

// compile-time check that WebPushProvider implements Provider
var _ Provider = (*WebPushProvider)(nil)
