package repository

import (
	"context"
	"sync"
	"time"

	"github.com/notifyhub/push-dispatch/internal/domain"
)

// MockEventRepository is a hand-written, in-memory implementation of
// EventRepository used in unit tests.
type MockEventRepository struct {
	mu     sync.RWMutex
	events map[string]*domain.QueuedEvent

	// Deletes records every Delete call, including repeats on the same ID,
	// so tests can assert acknowledgment idempotence.
	Deletes []string

	DeleteErr error
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{events: make(map[string]*domain.QueuedEvent)}
}

// Add seeds a queued event; test setup helper, not part of the interface.
func (m *MockEventRepository) Add(e *domain.QueuedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *e
	m.events[e.ID] = &clone
}

// Has reports whether a queued event still exists.
func (m *MockEventRepository) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.events[id]
	return ok
}

func (m *MockEventRepository) Delete(_ context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes = append(m.Deletes, id)
	delete(m.events, id)
	return nil
}

func (m *MockEventRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.events {
		if e.CreatedAt.Before(cutoff) {
			delete(m.events, id)
			n++
		}
	}
	return n, nil
}

var _ EventRepository = (*MockEventRepository)(nil)
