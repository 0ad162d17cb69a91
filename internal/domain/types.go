package domain

import "time"

// QueueTable is the name of the queued-event table. Inbound payloads carrying
// this table name plus a record object are treated as queue deliveries.
const QueueTable = "notification_events"

// Known event types the normalizer can turn into a notification message.
// Anything else is an unknown-event no-op: acknowledged, never delivered.
const (
	EventNewMessage   = "new_message"
	EventIncomingCall = "incoming_call"
)

// QueuedEvent is one pending notification-worthy occurrence, written by an
// external trigger and consumed (deleted) exactly once by this pipeline.
type QueuedEvent struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// SubscriptionKeys are the client-side encryption keys of a push subscription.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription is one registered device destination for a user.
// A user may hold any number of them (multi-device).
type PushSubscription struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Endpoint  string           `json:"endpoint"`
	Keys      SubscriptionKeys `json:"keys"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationMessage is the transient value delivered to every subscription.
// It is serialized once per invocation and never persisted.
type NotificationMessage struct {
	Title       string `json:"title"`
	Body        string `json:"body,omitempty"`
	Icon        string `json:"icon,omitempty"`
	ClickAction string `json:"click_action,omitempty"`
}

// DeliveryOutcome is the per-subscription result of one fanout attempt.
// Identity is preserved via SubscriptionID; ordering carries no meaning.
type DeliveryOutcome struct {
	SubscriptionID string `json:"subscription_id"`
	Success        bool   `json:"success"`
	StatusCode     int    `json:"status_code,omitempty"`
	Error          string `json:"error,omitempty"`
}
