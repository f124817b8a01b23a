package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/igasar/doorlock/internal/db"
	"github.com/igasar/doorlock/internal/doorlock/store"
	"github.com/igasar/doorlock/internal/doorlock/types"
)

type AttendanceStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
	now    func() time.Time
}

func NewAttendanceStore(db *sql.DB, writer *dbpkg.Worker) *AttendanceStore {
	return &AttendanceStore{db: db, writer: writer, now: time.Now}
}

func (s *AttendanceStore) Append(ctx context.Context, ev types.AttendanceEvent) error {
	if !ev.Kind.Valid() {
		return fmt.Errorf("Append: invalid kind %q", ev.Kind)
	}
	occurredMs := ev.OccurredAt.UTC().UnixMilli()
	createdMs := s.now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO attendance_events(event_id, employee_id, kind, occurred_at_ms, created_at_ms)
VALUES (?, ?, ?, ?, ?);
`, ev.ID, ev.EmployeeID, string(ev.Kind), occurredMs, createdMs); err != nil {
			return fmt.Errorf("Append insert: %w", err)
		}
		return nil
	})
}

const selectEvents = `
SELECT a.event_id, a.employee_id, e.code, a.kind, a.occurred_at_ms
FROM attendance_events a
JOIN employees e ON e.id = a.employee_id
WHERE a.employee_id = ? AND a.occurred_at_ms >= ? AND a.occurred_at_ms < ?
`

func (s *AttendanceStore) LastEventOn(ctx context.Context, employeeID int64, day time.Time) (*types.AttendanceEvent, error) {
	start, end := store.DayBounds(day)

	row := s.db.QueryRowContext(ctx, selectEvents+`ORDER BY a.occurred_at_ms DESC, a.id DESC LIMIT 1;`,
		employeeID, start.UnixMilli(), end.UnixMilli())

	ev, err := scanEvent(row, day.Location())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LastEventOn: %w", err)
	}
	return &ev, nil
}

func (s *AttendanceStore) EventsOn(ctx context.Context, employeeID int64, day time.Time) ([]types.AttendanceEvent, error) {
	start, end := store.DayBounds(day)

	rows, err := s.db.QueryContext(ctx, selectEvents+`ORDER BY a.occurred_at_ms ASC, a.id ASC;`,
		employeeID, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("EventsOn: %w", err)
	}
	defer rows.Close()

	var out []types.AttendanceEvent
	for rows.Next() {
		ev, err := scanEvent(rows, day.Location())
		if err != nil {
			return nil, fmt.Errorf("EventsOn scan: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner, loc *time.Location) (types.AttendanceEvent, error) {
	var (
		ev   types.AttendanceEvent
		kind string
		ms   int64
	)
	if err := sc.Scan(&ev.ID, &ev.EmployeeID, &ev.EmployeeCode, &kind, &ms); err != nil {
		return ev, err
	}
	ev.Kind = types.EventKind(kind)
	ev.OccurredAt = time.UnixMilli(ms).In(loc)
	return ev, nil
}
