package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/igasar/doorlock/internal/doorlock/service"
	"github.com/igasar/doorlock/internal/doorlock/store"
	"github.com/igasar/doorlock/internal/doorlock/types"
)

// DoorEventEntry renders a door event for JSON consumers.
func DoorEventEntry(ev types.DoorEvent) types.DoorEventEntry {
	return types.DoorEventEntry{
		Action:       string(ev.Action),
		Source:       ev.Source,
		EmployeeCode: ev.EmployeeCode,
		DelaySeconds: int(ev.Delay / time.Second),
		GPIOMode:     string(ev.Mode),
		RelayError:   ev.RelayError,
		At:           ev.At.Format(time.RFC3339),
	}
}

// Recorder writes door events to the audit log.  Failures are logged and
// swallowed: the door never waits on its audit trail.
type Recorder struct {
	store   store.DoorEventStore
	timeout time.Duration
	logger  *zap.Logger
}

func NewRecorder(s store.DoorEventStore, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: s, timeout: 2 * time.Second, logger: logger}
}

func (r *Recorder) OnDoorEvent(ev types.DoorEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.RecordEvent(ctx, ev); err != nil {
		r.logger.Warn("door event not recorded",
			zap.String("action", string(ev.Action)),
			zap.String("source", ev.Source),
			zap.Error(err))
	}
}

// Fanout delivers each door event to every sink in order.
type Fanout []service.DoorEventSink

func (f Fanout) OnDoorEvent(ev types.DoorEvent) {
	for _, s := range f {
		if s != nil {
			s.OnDoorEvent(ev)
		}
	}
}
