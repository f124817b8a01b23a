package store

import (
	"context"
	"time"

	"github.com/igasar/doorlock/internal/doorlock/types"
)

// EmployeeStore reads the externally managed employee directory.
type EmployeeStore interface {
	// FindByCode returns (nil, nil) when no employee has that code.
	FindByCode(ctx context.Context, code string) (*types.Employee, error)
}

// AttendanceStore is the append-only attendance log.
type AttendanceStore interface {
	// Append durably writes ev.  A nil error means the row is committed.
	Append(ctx context.Context, ev types.AttendanceEvent) error

	// LastEventOn returns the most recent event for the employee on the
	// calendar day containing day (in day's location), or nil.
	LastEventOn(ctx context.Context, employeeID int64, day time.Time) (*types.AttendanceEvent, error)

	// EventsOn returns the employee's events for that day, oldest first.
	EventsOn(ctx context.Context, employeeID int64, day time.Time) ([]types.AttendanceEvent, error)
}

// DayBounds returns [start, end) of the calendar day containing t, in t's
// location.  DST days are 23 or 25 hours long, so end is computed with
// AddDate rather than a fixed 24h.
func DayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
