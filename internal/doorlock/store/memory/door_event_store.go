package memory

import (
	"context"
	"sync"
	"time"

	"github.com/igasar/doorlock/internal/doorlock/types"
)

// DoorEventStore is an in-memory door audit log.
type DoorEventStore struct {
	mu     sync.Mutex
	events []types.DoorEvent
}

func NewDoorEventStore() *DoorEventStore {
	return &DoorEventStore{}
}

func (s *DoorEventStore) RecordEvent(_ context.Context, ev types.DoorEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *DoorEventStore) Recent(_ context.Context, limit int) ([]types.DoorEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]types.DoorEvent, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *DoorEventStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	var deleted int64
	for _, ev := range s.events {
		if ev.At.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	return deleted, nil
}

// Events returns a copy of all recorded events, oldest first.  Test-only helper.
func (s *DoorEventStore) Events() []types.DoorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.DoorEvent, len(s.events))
	copy(out, s.events)
	return out
}
