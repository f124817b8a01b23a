package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/igasar/doorlock/internal/db"
	"github.com/igasar/doorlock/internal/doorlock/types"
)

type DoorEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewDoorEventStore(db *sql.DB, writer *dbpkg.Worker) *DoorEventStore {
	return &DoorEventStore{db: db, writer: writer}
}

func (s *DoorEventStore) RecordEvent(ctx context.Context, ev types.DoorEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	var employeeCode, relayErr any
	if ev.EmployeeCode != "" {
		employeeCode = ev.EmployeeCode
	}
	if ev.RelayError != "" {
		relayErr = ev.RelayError
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO door_events(action, source, employee_code, delay_ms, gpio_mode, relay_error, at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?);
`,
			string(ev.Action), ev.Source, employeeCode, ev.Delay.Milliseconds(),
			string(ev.Mode), relayErr, ev.At.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("RecordEvent insert: %w", err)
		}
		return nil
	})
}

func (s *DoorEventStore) Recent(ctx context.Context, limit int) ([]types.DoorEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT action, source, employee_code, delay_ms, gpio_mode, relay_error, at_ms
FROM door_events
ORDER BY at_ms DESC, id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("Recent: %w", err)
	}
	defer rows.Close()

	var out []types.DoorEvent
	for rows.Next() {
		var (
			ev                     types.DoorEvent
			action, mode           string
			employeeCode, relayErr sql.NullString
			delayMs, atMs          int64
		)
		if err := rows.Scan(&action, &ev.Source, &employeeCode, &delayMs, &mode, &relayErr, &atMs); err != nil {
			return nil, fmt.Errorf("Recent scan: %w", err)
		}
		ev.Action = types.DoorAction(action)
		ev.Mode = types.GPIOMode(mode)
		ev.EmployeeCode = employeeCode.String
		ev.RelayError = relayErr.String
		ev.Delay = time.Duration(delayMs) * time.Millisecond
		ev.At = time.UnixMilli(atMs).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *DoorEventStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM door_events WHERE at_ms < ?;`, cutoff.UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}
