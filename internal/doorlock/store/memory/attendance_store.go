package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/igasar/doorlock/internal/doorlock/store"
	"github.com/igasar/doorlock/internal/doorlock/types"
)

// AttendanceStore is an in-memory append-only attendance log.
// It is intended for use in tests and dev environments.
type AttendanceStore struct {
	mu     sync.RWMutex
	events []types.AttendanceEvent

	// FailAppend, when set, is returned by Append instead of writing.
	FailAppend error
}

func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{}
}

func (s *AttendanceStore) Append(_ context.Context, ev types.AttendanceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppend != nil {
		return s.FailAppend
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *AttendanceStore) LastEventOn(ctx context.Context, employeeID int64, day time.Time) (*types.AttendanceEvent, error) {
	evs, _ := s.EventsOn(ctx, employeeID, day)
	if len(evs) == 0 {
		return nil, nil
	}
	last := evs[len(evs)-1]
	return &last, nil
}

func (s *AttendanceStore) EventsOn(_ context.Context, employeeID int64, day time.Time) ([]types.AttendanceEvent, error) {
	start, end := store.DayBounds(day)

	s.mu.RLock()
	var out []types.AttendanceEvent
	for _, ev := range s.events {
		if ev.EmployeeID != employeeID {
			continue
		}
		if ev.OccurredAt.Before(start) || !ev.OccurredAt.Before(end) {
			continue
		}
		out = append(out, ev)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

// Events returns a copy of all appended events.  Test-only helper.
func (s *AttendanceStore) Events() []types.AttendanceEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.AttendanceEvent, len(s.events))
	copy(out, s.events)
	return out
}
