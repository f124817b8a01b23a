package service

import (
	"context"
	"time"

	"github.com/igasar/doorlock/internal/doorlock/types"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthReport struct {
	StorageOK bool
	Door      types.DoorStatus
	CheckedAt time.Time
}

type HealthService struct {
	db   Pinger
	door *DoorController
}

// NewHealthService accepts a nil Pinger for memory-backed runs; storage
// then always reports available.
func NewHealthService(db Pinger, door *DoorController) *HealthService {
	return &HealthService{db: db, door: door}
}

func (h *HealthService) Check(ctx context.Context) HealthReport {
	rep := HealthReport{StorageOK: true, Door: h.door.Status(), CheckedAt: time.Now()}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		rep.StorageOK = h.db.PingContext(ctx) == nil
	}
	return rep
}

// StorageOK is the readiness signal used by the gRPC health server.
func (h *HealthService) StorageOK(ctx context.Context) bool {
	return h.Check(ctx).StorageOK
}
