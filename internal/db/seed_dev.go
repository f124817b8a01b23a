package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SeedEmployee struct {
	Code   string
	Name   string
	Active bool
}

// DevEmployees are the sample staff the kiosk ships with for bench testing.
var DevEmployees = []SeedEmployee{
	{Code: "EMP001", Name: "Budi Santoso", Active: true},
	{Code: "EMP002", Name: "Siti Rahayu", Active: true},
	{Code: "EMP003", Name: "Agus Wijaya", Active: true},
	{Code: "EMP004", Name: "Dewi Lestari", Active: false},
}

// SeedDev inserts employees that are not already present.  Existing rows
// (matched by code) are left untouched.
func SeedDev(ctx context.Context, db *sql.DB, driver string, employees []SeedEmployee) error {
	insert := `INSERT INTO employees(code, name, is_active, created_at_ms) VALUES (?, ?, ?, ?)
ON CONFLICT(code) DO NOTHING;`
	if driver == DriverMySQL {
		insert = `INSERT IGNORE INTO employees(code, name, is_active, created_at_ms) VALUES (?, ?, ?, ?);`
	}

	now := time.Now().UTC().UnixMilli()
	for _, e := range employees {
		active := 0
		if e.Active {
			active = 1
		}
		if _, err := db.ExecContext(ctx, insert, e.Code, e.Name, active, now); err != nil {
			return fmt.Errorf("seed employee %s: %w", e.Code, err)
		}
	}
	return nil
}
