package repository

import (
	"context"
	"time"

	"github.com/notifyhub/push-dispatch/internal/domain"
)

// SubscriptionRepository defines persistence operations for push subscriptions.
// The pgx implementation is in pg_subscription_repo.go.
// Tests use a hand-written mock (mock_subscription_repo.go).
type SubscriptionRepository interface {
	// ListByUser returns every subscription registered for the user.
	// Order carries no meaning; delivery is unordered.
	ListByUser(ctx context.Context, userID string) ([]*domain.PushSubscription, error)
	// Delete removes a subscription. Deleting a missing row is a no-op.
	Delete(ctx context.Context, id string) error
}

// EventRepository defines persistence operations for queued events.
// The pipeline only ever deletes rows; creation belongs to external triggers.
type EventRepository interface {
	// Delete acknowledges a queued event. Deleting a missing row is a no-op,
	// which makes concurrent acknowledgments of the same event benign.
	Delete(ctx context.Context, id string) error
	// DeleteOlderThan purges events created before cutoff and reports how
	// many rows were removed. Used by the janitor.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
