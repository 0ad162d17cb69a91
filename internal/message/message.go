// Package message maps domain events to concrete notification messages.
package message

import (
	"fmt"

	"github.com/notifyhub/push-dispatch/internal/domain"
)

// BrandIcon is the notification icon shown for all event-derived messages.
const BrandIcon = "/icons/icon-192.png"

// FromEvent builds the notification message for a known event type.
// ok is false for any event type the normalizer does not recognize; the
// pipeline then acknowledges the event without attempting delivery, so an
// unrecognized type can neither crash the pipeline nor be retried forever.
func FromEvent(eventType string, payload map[string]any) (msg domain.NotificationMessage, ok bool) {
	switch eventType {
	case domain.EventNewMessage:
		sender := stringField(payload, "sender_name")
		if sender == "" {
			sender = "User"
		}
		return domain.NotificationMessage{
			Title:       fmt.Sprintf("New message from %s", sender),
			Body:        stringField(payload, "content"),
			Icon:        BrandIcon,
			ClickAction: "/chat/" + stringField(payload, "chat_id"),
		}, true

	case domain.EventIncomingCall:
		return domain.NotificationMessage{
			Title:       "Incoming call",
			Body:        "Someone is calling you",
			Icon:        BrandIcon,
			ClickAction: "/",
		}, true
	}

	return domain.NotificationMessage{}, false
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}
