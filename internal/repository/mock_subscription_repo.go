package repository

import (
	"context"
	"sync"

	"github.com/notifyhub/push-dispatch/internal/domain"
)

// MockSubscriptionRepository is a hand-written, in-memory implementation of
// SubscriptionRepository used in unit tests. No mock-generation library needed.
type MockSubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[string]*domain.PushSubscription

	// Optional error overrides — set in tests to simulate failure paths.
	ListErr   error
	DeleteErr error
}

func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{subs: make(map[string]*domain.PushSubscription)}
}

// Add seeds a subscription; test setup helper, not part of the interface.
func (m *MockSubscriptionRepository) Add(s *domain.PushSubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *s
	m.subs[s.ID] = &clone
}

// Has reports whether a subscription still exists.
func (m *MockSubscriptionRepository) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.subs[id]
	return ok
}

func (m *MockSubscriptionRepository) ListByUser(_ context.Context, userID string) ([]*domain.PushSubscription, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.PushSubscription
	for _, s := range m.subs {
		if s.UserID == userID {
			clone := *s
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepository) Delete(_ context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, id)
	return nil
}

var _ SubscriptionRepository = (*MockSubscriptionRepository)(nil)
