// Package sqlstore implements the store interfaces over database/sql.  The
// queries are written to run unchanged on SQLite and MySQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/igasar/doorlock/internal/doorlock/types"
)

type EmployeeStore struct {
	db *sql.DB
}

func NewEmployeeStore(db *sql.DB) *EmployeeStore {
	return &EmployeeStore{db: db}
}

func (s *EmployeeStore) FindByCode(ctx context.Context, code string) (*types.Employee, error) {
	var e types.Employee
	err := s.db.QueryRowContext(ctx, `
SELECT id, code, name, is_active FROM employees WHERE code = ?;
`, code).Scan(&e.ID, &e.Code, &e.Name, &e.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByCode: %w", err)
	}
	return &e, nil
}
