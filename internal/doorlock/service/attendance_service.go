package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/igasar/doorlock/internal/doorlock/store"
	"github.com/igasar/doorlock/internal/doorlock/types"
)

var (
	ErrInvalidEmployeeCode = errors.New("employee_code is required")
	ErrInvalidEventKind    = errors.New("event_kind is required")
	ErrUnknownEmployee     = errors.New("employee not found")
)

// Door is the slice of DoorController the attendance flow drives.
type Door interface {
	Unlock(delay time.Duration, trig types.DoorTrigger) UnlockResult
	Delays() DelayPolicy
}

// AttendancePublisher is told about every accepted event.  Implementations
// must not block.
type AttendancePublisher interface {
	PublishAttendance(ev types.AttendanceEvent, employeeName string)
}

type AttendanceConfig struct {
	// AutoOpen unlocks the door with the default dwell after an accepted event.
	AutoOpen bool
	// Location defines "today".  Defaults to time.Local.
	Location  *time.Location
	Now       func() time.Time
	NewID     func() string
	Publisher AttendancePublisher
}

// Outcome is what Submit hands back to the facade.
type Outcome struct {
	Decision Decision
	Employee *types.Employee
	// Event is the appended row; nil unless Accepted.
	Event *types.AttendanceEvent
	// Last is today's most recent event before this attempt, if any.
	Last       *types.AttendanceEvent
	DoorOpened bool
}

type AttendanceService struct {
	employees store.EmployeeStore
	events    store.AttendanceStore
	door      Door
	cfg       AttendanceConfig
	locks     *keyedMutex
	logger    *zap.Logger
}

func NewAttendanceService(
	es store.EmployeeStore,
	as store.AttendanceStore,
	door Door,
	cfg AttendanceConfig,
	logger *zap.Logger,
) *AttendanceService {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		employees: es,
		events:    as,
		door:      door,
		cfg:       cfg,
		locks:     newKeyedMutex(),
		logger:    logger,
	}
}

// Submit validates and records one attendance attempt.  Attempts for the
// same employee are serialized; different employees run concurrently.
// The door is only touched after the append has committed.
func (s *AttendanceService) Submit(ctx context.Context, code, rawKind string) (Outcome, error) {
	code = strings.TrimSpace(code)
	rawKind = strings.TrimSpace(rawKind)
	if code == "" {
		return Outcome{}, ErrInvalidEmployeeCode
	}
	if rawKind == "" {
		return Outcome{}, ErrInvalidEventKind
	}

	// Once started an attempt runs to completion: a client that hangs up
	// must not abort the append, or learn of a failure for a committed row.
	ctx = context.WithoutCancel(ctx)

	emp, err := s.employees.FindByCode(ctx, code)
	if err != nil {
		return Outcome{}, fmt.Errorf("lookup employee: %w", err)
	}

	// Serialize on the resolved employee, not the typed code; the directory
	// may match codes case-insensitively.
	if emp != nil {
		unlock := s.locks.Lock(emp.ID)
		defer unlock()
	}

	now := s.cfg.Now().In(s.cfg.Location)

	var last *types.AttendanceEvent
	if emp != nil {
		last, err = s.events.LastEventOn(ctx, emp.ID, now)
		if err != nil {
			return Outcome{}, fmt.Errorf("last event: %w", err)
		}
	}

	dec := Validate(emp, rawKind, last)
	out := Outcome{Decision: dec, Employee: emp, Last: last}
	if dec.Verdict != Accepted {
		s.logger.Info("attendance not recorded",
			zap.String("employee_code", code),
			zap.String("raw_kind", rawKind),
			zap.Stringer("verdict", dec.Verdict),
			zap.String("reason", dec.Reason))
		return out, nil
	}

	ev := types.AttendanceEvent{
		ID:           s.cfg.NewID(),
		EmployeeID:   emp.ID,
		EmployeeCode: emp.Code,
		Kind:         dec.Kind,
		OccurredAt:   now,
	}
	if err := s.events.Append(ctx, ev); err != nil {
		return Outcome{}, fmt.Errorf("append attendance: %w", err)
	}
	out.Event = &ev

	s.logger.Info("attendance recorded",
		zap.String("event_id", ev.ID),
		zap.String("employee_code", ev.EmployeeCode),
		zap.String("kind", string(ev.Kind)))

	if s.cfg.AutoOpen && s.door != nil {
		res := s.door.Unlock(s.door.Delays().Default, types.DoorTrigger{
			Source:       types.TriggerAttendance,
			EmployeeCode: emp.Code,
		})
		out.DoorOpened = res.Opened
	}

	if s.cfg.Publisher != nil {
		s.cfg.Publisher.PublishAttendance(ev, emp.Name)
	}
	return out, nil
}

// Today returns the employee's events for the current kiosk day, oldest first.
func (s *AttendanceService) Today(ctx context.Context, code string) (*types.Employee, []types.AttendanceEvent, time.Time, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil, time.Time{}, ErrInvalidEmployeeCode
	}
	emp, err := s.employees.FindByCode(ctx, code)
	if err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("lookup employee: %w", err)
	}
	if emp == nil {
		return nil, nil, time.Time{}, ErrUnknownEmployee
	}
	now := s.cfg.Now().In(s.cfg.Location)
	evs, err := s.events.EventsOn(ctx, emp.ID, now)
	if err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("events today: %w", err)
	}
	return emp, evs, now, nil
}

// Location is the zone "today" is evaluated in.
func (s *AttendanceService) Location() *time.Location { return s.cfg.Location }
