package provider_test

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/notifyhub/push-dispatch/internal/domain"
	"github.com/notifyhub/push-dispatch/internal/provider"
)

// testSubscription builds a subscription with a freshly generated P-256 key
// pair and auth secret, the way a real browser registration would.
func testSubscription(t *testing.T, endpoint string) *domain.PushSubscription {
	t.Helper()

	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate subscription key: %v", err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatalf("generate auth secret: %v", err)
	}

	return &domain.PushSubscription{
		ID:       "s1",
		UserID:   "u1",
		Endpoint: endpoint,
		Keys: domain.SubscriptionKeys{
			P256dh: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(auth),
		},
	}
}

func newTestProvider(t *testing.T) *provider.WebPushProvider {
	t.Helper()
	private, public, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}
	return provider.NewWebPushProvider(public, private, "mailto:ops@notifyhub.dev", 60, 5*time.Second)
}

func TestWebPushProvider_Send_SurfacesStatusCode(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"accepted", http.StatusCreated},
		{"gone subscription", http.StatusGone},
		{"push service error", http.StatusBadGateway},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotBody []byte
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotBody, _ = io.ReadAll(r.Body)
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			p := newTestProvider(t)
			status, err := p.Send(context.Background(), testSubscription(t, srv.URL), []byte(`{"title":"hello"}`))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, status)
			}
			if len(gotBody) == 0 {
				t.Fatal("expected an encrypted payload to be posted")
			}
		})
	}
}

func TestWebPushProvider_Send_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately: every request now fails at the transport level

	p := newTestProvider(t)
	status, err := p.Send(context.Background(), testSubscription(t, srv.URL), []byte(`{}`))
	if err == nil {
		t.Fatal("expected a transport error")
	}
	if status != 0 {
		t.Fatalf("expected no status code on transport error, got %d", status)
	}
}
