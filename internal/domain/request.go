package domain

import "encoding/json"

// RequestKind discriminates the three accepted invocation shapes.
type RequestKind string

const (
	// KindQueuedEvent is a row delivered from the queued-event table.
	KindQueuedEvent RequestKind = "queued_event"
	// KindDirectEvent is an event invocation with no queue row behind it.
	KindDirectEvent RequestKind = "direct_event"
	// KindManual carries the notification fields verbatim.
	KindManual RequestKind = "manual"
)

// DispatchRequest is the classified form of an inbound payload: a tagged
// union resolved up front so the rest of the pipeline never inspects raw JSON.
type DispatchRequest struct {
	Kind   RequestKind
	UserID string

	// EventID is set only for queued-event requests; it is the row the
	// acknowledger deletes after processing.
	EventID string

	// EventType and Payload feed the normalizer. Empty EventType means the
	// Manual fields are used as the message verbatim.
	EventType string
	Payload   map[string]any

	Manual NotificationMessage
}

// rawRequest is the superset of all three inbound shapes.
type rawRequest struct {
	// Queued-event shape
	Table  string          `json:"table"`
	Record *rawEventRecord `json:"record"`

	// Direct-event shape
	UserID    string         `json:"user_id"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`

	// Manual shape
	Title       string `json:"title"`
	Body        string `json:"body"`
	Icon        string `json:"icon"`
	ClickAction string `json:"click_action"`
}

type rawEventRecord struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
}

// ParseDispatchRequest classifies a raw request body into exactly one shape.
// Shapes are mutually exclusive and checked in a fixed order: queued-event,
// then direct-event, then manual. A payload that happens to satisfy more than
// one field set resolves to the first match, never to a blend of two.
func ParseDispatchRequest(body []byte) (*DispatchRequest, error) {
	var raw rawRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ErrInvalidBody
	}

	if raw.Table == QueueTable && raw.Record != nil {
		return &DispatchRequest{
			Kind:      KindQueuedEvent,
			UserID:    raw.Record.UserID,
			EventID:   raw.Record.ID,
			EventType: raw.Record.EventType,
			Payload:   raw.Record.Payload,
		}, nil
	}

	if raw.EventType != "" && raw.UserID != "" {
		return &DispatchRequest{
			Kind:      KindDirectEvent,
			UserID:    raw.UserID,
			EventType: raw.EventType,
			Payload:   raw.Payload,
		}, nil
	}

	return &DispatchRequest{
		Kind:   KindManual,
		UserID: raw.UserID,
		Manual: NotificationMessage{
			Title:       raw.Title,
			Body:        raw.Body,
			Icon:        raw.Icon,
			ClickAction: raw.ClickAction,
		},
	}, nil
}
