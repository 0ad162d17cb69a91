package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/notifyhub/push-dispatch/internal/domain"
	"github.com/notifyhub/push-dispatch/internal/fanout"
	"github.com/notifyhub/push-dispatch/internal/message"
	"github.com/notifyhub/push-dispatch/internal/repository"
)

// Ack reasons recorded when a queued event is deleted.
const (
	AckDelivered    = "delivered"
	AckNoRecipient  = "no_recipient"
	AckUnknownEvent = "unknown_event"
)

// Hooks carries the metric callback functions injected by main.
// All fields are optional (nil = no-op).
type Hooks struct {
	OnFanout       func(size int)
	OnPruned       func()
	OnAcknowledged func(reason string)
}

// DispatchResult is the aggregate outcome of one invocation.
// Either Outcomes is populated (Dispatched=true) or Message explains the
// no-op path taken.
type DispatchResult struct {
	Dispatched bool
	Message    string
	Outcomes   []domain.DeliveryOutcome
}

// DispatchService runs the notification pipeline for one classified request:
// normalize, resolve recipients, fan out, prune dead subscriptions, and
// acknowledge the queue row. Each call is an independent stateless unit of
// work; the only shared state is the external store, and concurrent
// invocations racing on prune or ack are benign because deletes are idempotent.
type DispatchService struct {
	subs   repository.SubscriptionRepository
	events repository.EventRepository
	engine *fanout.Engine
	logger *zap.Logger

	onFanout       func(int)
	onPruned       func()
	onAcknowledged func(string)
}

func NewDispatchService(
	subs repository.SubscriptionRepository,
	events repository.EventRepository,
	engine *fanout.Engine,
	logger *zap.Logger,
	hooks Hooks,
) *DispatchService {
	if hooks.OnFanout == nil {
		hooks.OnFanout = func(int) {}
	}
	if hooks.OnPruned == nil {
		hooks.OnPruned = func() {}
	}
	if hooks.OnAcknowledged == nil {
		hooks.OnAcknowledged = func(string) {}
	}
	return &DispatchService{
		subs:           subs,
		events:         events,
		engine:         engine,
		logger:         logger,
		onFanout:       hooks.OnFanout,
		onPruned:       hooks.OnPruned,
		onAcknowledged: hooks.OnAcknowledged,
	}
}

// Dispatch processes one invocation end to end.
//
// Returned errors are either domain.ErrMissingFields (no store mutation has
// happened) or a store failure while acknowledging; in the latter case the
// queue row survives and the trigger may re-invoke, which is the safer side
// of at-most-once for a row that could not be consumed.
func (s *DispatchService) Dispatch(ctx context.Context, req *domain.DispatchRequest) (*DispatchResult, error) {
	msg := req.Manual
	if req.EventType != "" {
		m, ok := message.FromEvent(req.EventType, req.Payload)
		if !ok {
			// Unknown event types are acknowledged, not retried: an event the
			// pipeline cannot interpret must not loop through the queue forever.
			s.logger.Warn("unknown event type",
				zap.String("event_type", req.EventType),
				zap.String("user_id", req.UserID),
			)
			if err := s.acknowledge(ctx, req, AckUnknownEvent); err != nil {
				return nil, err
			}
			return &DispatchResult{Message: "Unknown event type: " + req.EventType}, nil
		}
		msg = m
	}

	if req.UserID == "" || msg.Title == "" {
		return nil, domain.ErrMissingFields
	}

	subs, err := s.subs.ListByUser(ctx, req.UserID)
	if err != nil {
		// A resolver failure is reported as the no-recipient no-op: there is
		// nothing further to retry for this invocation. Logged so it is not
		// silently absorbed.
		s.logger.Error("subscription lookup failed",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		subs = nil
	}
	if len(subs) == 0 {
		if err := s.acknowledge(ctx, req, AckNoRecipient); err != nil {
			return nil, err
		}
		return &DispatchResult{Message: "No subscription found"}, nil
	}

	// Serialize the message once; every destination receives the same bytes.
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal notification payload: %w", err)
	}

	s.onFanout(len(subs))
	outcomes := s.engine.Deliver(ctx, payload, subs)

	s.prune(ctx, outcomes)

	if err := s.acknowledge(ctx, req, AckDelivered); err != nil {
		return nil, err
	}

	return &DispatchResult{Dispatched: true, Outcomes: outcomes}, nil
}

// prune deletes subscriptions whose destination reported 410 Gone. Deletes
// are issued before the response but their failures are only logged: the
// subscription will report 410 again on the next event and be pruned then.
func (s *DispatchService) prune(ctx context.Context, outcomes []domain.DeliveryOutcome) {
	for _, o := range outcomes {
		if o.Success || o.StatusCode != 410 {
			continue
		}
		if err := s.subs.Delete(ctx, o.SubscriptionID); err != nil {
			s.logger.Warn("failed to prune gone subscription",
				zap.String("subscription_id", o.SubscriptionID),
				zap.Error(err),
			)
			continue
		}
		s.logger.Info("pruned gone subscription",
			zap.String("subscription_id", o.SubscriptionID))
		s.onPruned()
	}
}

// acknowledge deletes the queued-event row behind this invocation, if any.
// Deletion is idempotent, so a second acknowledgment of the same ID is a
// no-op — once deleted, an event can never be reprocessed.
func (s *DispatchService) acknowledge(ctx context.Context, req *domain.DispatchRequest, reason string) error {
	if req.EventID == "" {
		return nil
	}
	if err := s.events.Delete(ctx, req.EventID); err != nil {
		return fmt.Errorf("acknowledge event %s: %w", req.EventID, err)
	}
	s.onAcknowledged(reason)
	return nil
}
