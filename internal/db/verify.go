package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// RequiredTables are checked by Open before the terminal starts serving.
var RequiredTables = []string{"employees", "attendance_events", "door_events"}

var ErrMissingTable = errors.New("required table missing")

// VerifySchema runs a zero-row select against each table.  It does not
// inspect columns; a table that exists but is shaped wrong fails on first use.
func VerifySchema(ctx context.Context, db *sql.DB, tables ...string) error {
	for _, t := range tables {
		rows, err := db.QueryContext(ctx, "SELECT 1 FROM "+t+" WHERE 1 = 0")
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMissingTable, t, err)
		}
		_ = rows.Close()
	}
	return nil
}
