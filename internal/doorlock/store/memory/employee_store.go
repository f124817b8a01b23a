package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/igasar/doorlock/internal/doorlock/types"
)

type EmployeeStore struct {
	mu     sync.RWMutex
	byCode map[string]types.Employee
}

func NewEmployeeStore(employees []types.Employee) *EmployeeStore {
	s := &EmployeeStore{byCode: make(map[string]types.Employee, len(employees))}
	for i, e := range employees {
		e.Code = strings.TrimSpace(e.Code)
		if e.Code == "" {
			continue
		}
		if e.ID == 0 {
			e.ID = int64(i + 1)
		}
		s.byCode[e.Code] = e
	}
	return s
}

func (s *EmployeeStore) FindByCode(_ context.Context, code string) (*types.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byCode[code]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// Put adds or replaces an employee.  Test-only helper.
func (s *EmployeeStore) Put(e types.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byCode[e.Code] = e
}
