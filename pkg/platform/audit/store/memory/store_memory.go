package memory

import (
	"context"
	"sync"

	"scholarops/pkg/platform/audit"
	"scholarops/pkg/platform/tx"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]audit.Event)}
}

// Append records event. Inside a tx unit of work the record is dropped again
// if the unit fails, matching the Postgres store.
func (s *InMemoryStore) Append(ctx context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recorded := len(s.events[event.Subject])
	s.events[event.Subject] = append(s.events[event.Subject], event)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.events[event.Subject] = s.events[event.Subject][:recorded]
	})
	return nil
}

// ListBySubject returns events for one aggregate in emission order.
func (s *InMemoryStore) ListBySubject(_ context.Context, subject string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[subject]...), nil
}

