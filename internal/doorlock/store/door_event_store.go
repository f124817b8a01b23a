package store

import (
	"context"
	"time"

	"github.com/igasar/doorlock/internal/doorlock/types"
)

// DoorEventStore persists relay transitions as an audit log.  Unlike the
// attendance log it may be pruned by retention.
type DoorEventStore interface {
	RecordEvent(ctx context.Context, ev types.DoorEvent) error
	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]types.DoorEvent, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
