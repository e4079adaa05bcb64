package memory

import (
	"context"
	"sync"

	audit "eidgate/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.AccessRights = append([]string(nil), event.AccessRights...)
	s.events[event.AttemptID] = append(s.events[event.AttemptID], event)
	return nil
}

func (s *InMemoryStore) ListByAttempt(_ context.Context, attemptID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[attemptID]...), nil
}

// ListRecent returns up to limit events across all attempts. Order between
// attempts is unspecified.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []audit.Event
	for _, attemptEvents := range s.events {
		all = append(all, attemptEvents...)
	}

	start := max(len(all)-limit, 0)
	return all[start:], nil
}
