package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/igasar/doorlock/internal/db"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production.  The connection is closed automatically when the
// test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Shared cache keeps the database alive across pool reconnects.
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		strings.ReplaceAll(t.Name(), "/", "_"),
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}
	if err := db.Migrate(context.Background(), conn, db.DriverSQLite); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn.  The worker is closed
// automatically when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn, nil)
	t.Cleanup(func() { w.Close() })
	return w
}

// seedEmployee inserts an employee and returns its row id.
func seedEmployee(t *testing.T, conn *sql.DB, code, name string, active bool) int64 {
	t.Helper()

	flag := 0
	if active {
		flag = 1
	}
	res, err := conn.Exec(`INSERT INTO employees(code, name, is_active) VALUES (?, ?, ?)`, code, name, flag)
	if err != nil {
		t.Fatalf("seedEmployee %s: %v", code, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seedEmployee %s: last id: %v", code, err)
	}
	return id
}
