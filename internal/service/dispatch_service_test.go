package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/notifyhub/push-dispatch/internal/domain"
	"github.com/notifyhub/push-dispatch/internal/fanout"
	"github.com/notifyhub/push-dispatch/internal/ratelimiter"
	"github.com/notifyhub/push-dispatch/internal/repository"
	"github.com/notifyhub/push-dispatch/internal/service"
)

// stubProvider returns a canned status per subscription ID; default 201.
type stubProvider struct {
	mu       sync.Mutex
	statuses map[string]int
	calls    int
}

func (s *stubProvider) Send(_ context.Context, sub *domain.PushSubscription, _ []byte) (int, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if status, ok := s.statuses[sub.ID]; ok {
		return status, nil
	}
	return 201, nil
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fixture struct {
	svc    *service.DispatchService
	subs   *repository.MockSubscriptionRepository
	events *repository.MockEventRepository
	prov   *stubProvider
}

func newFixture() *fixture {
	subs := repository.NewMockSubscriptionRepository()
	events := repository.NewMockEventRepository()
	prov := &stubProvider{}
	engine := fanout.New(prov, ratelimiter.New(1000), 8, zap.NewNop(), fanout.Hooks{})
	svc := service.NewDispatchService(subs, events, engine, zap.NewNop(), service.Hooks{})
	return &fixture{svc: svc, subs: subs, events: events, prov: prov}
}

func (f *fixture) addSubscription(id, userID string) {
	f.subs.Add(&domain.PushSubscription{
		ID:       id,
		UserID:   userID,
		Endpoint: "https://push.example/" + id,
		Keys:     domain.SubscriptionKeys{P256dh: "key", Auth: "auth"},
	})
}

func queuedRequest(eventID, userID, eventType string, payload map[string]any) *domain.DispatchRequest {
	return &domain.DispatchRequest{
		Kind:      domain.KindQueuedEvent,
		UserID:    userID,
		EventID:   eventID,
		EventType: eventType,
		Payload:   payload,
	}
}

func TestDispatch_QueuedNewMessage(t *testing.T) {
	f := newFixture()
	f.addSubscription("s1", "u1")
	f.events.Add(&domain.QueuedEvent{ID: "evt-1", UserID: "u1"})

	res, err := f.svc.Dispatch(context.Background(), queuedRequest("evt-1", "u1", "new_message", map[string]any{
		"sender_name": "Alice", "content": "hi", "chat_id": "c1",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Dispatched {
		t.Fatalf("expected dispatch, got no-op: %q", res.Message)
	}
	if len(res.Outcomes) != 1 || !res.Outcomes[0].Success {
		t.Fatalf("expected one successful outcome, got %+v", res.Outcomes)
	}
	if f.events.Has("evt-1") {
		t.Fatal("expected queued event to be acknowledged")
	}
}

func TestDispatch_NoSubscriptions_IsAcknowledgedNoOp(t *testing.T) {
	f := newFixture()
	f.events.Add(&domain.QueuedEvent{ID: "evt-2", UserID: "u1"})

	res, err := f.svc.Dispatch(context.Background(), queuedRequest("evt-2", "u1", "incoming_call", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Dispatched {
		t.Fatal("expected no-op result")
	}
	if res.Message != "No subscription found" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if f.events.Has("evt-2") {
		t.Fatal("expected queued event to be acknowledged despite zero recipients")
	}
	if f.prov.callCount() != 0 {
		t.Fatalf("expected no delivery attempts, got %d", f.prov.callCount())
	}
}

func TestDispatch_ResolverErrorIsTreatedAsNoRecipients(t *testing.T) {
	f := newFixture()
	f.subs.ListErr = errors.New("store unavailable")
	f.events.Add(&domain.QueuedEvent{ID: "evt-3", UserID: "u1"})

	res, err := f.svc.Dispatch(context.Background(), queuedRequest("evt-3", "u1", "incoming_call", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Dispatched || res.Message != "No subscription found" {
		t.Fatalf("expected no-subscription no-op, got %+v", res)
	}
	if f.events.Has("evt-3") {
		t.Fatal("expected queued event to be acknowledged")
	}
}

func TestDispatch_UnknownEventType(t *testing.T) {
	f := newFixture()
	f.addSubscription("s1", "u1")
	f.events.Add(&domain.QueuedEvent{ID: "evt-4", UserID: "u1"})

	res, err := f.svc.Dispatch(context.Background(), queuedRequest("evt-4", "u1", "unsubscribe_promo", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Dispatched {
		t.Fatal("expected no-op result")
	}
	if res.Message != "Unknown event type: unsubscribe_promo" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if f.events.Has("evt-4") {
		t.Fatal("expected queued event to be acknowledged, not retried forever")
	}
	if f.prov.callCount() != 0 {
		t.Fatalf("expected zero delivery attempts, got %d", f.prov.callCount())
	}
}

func TestDispatch_MissingUserID(t *testing.T) {
	f := newFixture()
	f.events.Add(&domain.QueuedEvent{ID: "evt-5", UserID: ""})

	req := &domain.DispatchRequest{
		Kind:   domain.KindManual,
		Manual: domain.NotificationMessage{Title: "hello"},
	}
	_, err := f.svc.Dispatch(context.Background(), req)
	if !errors.Is(err, domain.ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
	if !f.events.Has("evt-5") {
		t.Fatal("malformed requests must not acknowledge queued events")
	}
	if f.prov.callCount() != 0 {
		t.Fatalf("expected no delivery attempts, got %d", f.prov.callCount())
	}
}

func TestDispatch_MissingTitle(t *testing.T) {
	f := newFixture()

	req := &domain.DispatchRequest{
		Kind:   domain.KindManual,
		UserID: "u1",
		Manual: domain.NotificationMessage{Body: "no title here"},
	}
	_, err := f.svc.Dispatch(context.Background(), req)
	if !errors.Is(err, domain.ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
}

func TestDispatch_PartialFailurePrunesOnlyGoneSubscription(t *testing.T) {
	f := newFixture()
	f.addSubscription("a", "u1")
	f.addSubscription("b", "u1")
	f.addSubscription("c", "u1")
	f.prov.statuses = map[string]int{"b": 410}

	res, err := f.svc.Dispatch(context.Background(), &domain.DispatchRequest{
		Kind:   domain.KindManual,
		UserID: "u1",
		Manual: domain.NotificationMessage{Title: "hi"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(res.Outcomes))
	}

	var successes, failures int
	for _, o := range res.Outcomes {
		if o.Success {
			successes++
		} else {
			failures++
		}
	}
	if successes != 2 || failures != 1 {
		t.Fatalf("expected 2 successes and 1 failure, got %d/%d", successes, failures)
	}

	if f.subs.Has("b") {
		t.Fatal("expected gone subscription to be pruned")
	}
	if !f.subs.Has("a") || !f.subs.Has("c") {
		t.Fatal("expected valid subscriptions to remain")
	}
}

func TestDispatch_TransientFailureDoesNotPrune(t *testing.T) {
	f := newFixture()
	f.addSubscription("a", "u1")
	f.prov.statuses = map[string]int{"a": 502}

	res, err := f.svc.Dispatch(context.Background(), &domain.DispatchRequest{
		Kind:   domain.KindManual,
		UserID: "u1",
		Manual: domain.NotificationMessage{Title: "hi"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcomes[0].Success {
		t.Fatal("expected failure outcome")
	}
	if !f.subs.Has("a") {
		t.Fatal("a 502 must not prune the subscription")
	}
}

func TestDispatch_PruneFailureDoesNotFailInvocation(t *testing.T) {
	f := newFixture()
	f.addSubscription("a", "u1")
	f.prov.statuses = map[string]int{"a": 410}
	f.subs.DeleteErr = errors.New("store unavailable")

	res, err := f.svc.Dispatch(context.Background(), &domain.DispatchRequest{
		Kind:   domain.KindManual,
		UserID: "u1",
		Manual: domain.NotificationMessage{Title: "hi"},
	})
	if err != nil {
		t.Fatalf("prune failures must not escalate: %v", err)
	}
	if !res.Dispatched {
		t.Fatal("expected dispatch result")
	}
}

func TestDispatch_DirectIncomingCallEndToEnd(t *testing.T) {
	f := newFixture()
	f.addSubscription("s1", "u1")

	res, err := f.svc.Dispatch(context.Background(), &domain.DispatchRequest{
		Kind:      domain.KindDirectEvent,
		UserID:    "u1",
		EventType: "incoming_call",
		Payload:   map[string]any{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Outcomes) != 1 || !res.Outcomes[0].Success {
		t.Fatalf("expected one successful outcome, got %+v", res.Outcomes)
	}
	if !f.subs.Has("s1") {
		t.Fatal("no subscription should have been deleted")
	}
	if len(f.events.Deletes) != 0 {
		t.Fatal("direct events have no queue row to acknowledge")
	}
}

func TestDispatch_AcknowledgmentIsIdempotent(t *testing.T) {
	f := newFixture()
	f.events.Add(&domain.QueuedEvent{ID: "evt-9", UserID: "u1"})

	req := queuedRequest("evt-9", "u1", "incoming_call", nil)

	if _, err := f.svc.Dispatch(context.Background(), req); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if f.events.Has("evt-9") {
		t.Fatal("expected event deleted after first dispatch")
	}

	// Reprocessing the same (now deleted) event ID must be a harmless no-op.
	if _, err := f.svc.Dispatch(context.Background(), req); err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if len(f.events.Deletes) != 2 {
		t.Fatalf("expected both acknowledgment attempts to be issued, got %d", len(f.events.Deletes))
	}
}

func TestDispatch_AcknowledgmentFailurePropagates(t *testing.T) {
	f := newFixture()
	f.events.DeleteErr = errors.New("store unavailable")

	_, err := f.svc.Dispatch(context.Background(), queuedRequest("evt-10", "u1", "incoming_call", nil))
	if err == nil {
		t.Fatal("expected acknowledgment failure to propagate")
	}
}
