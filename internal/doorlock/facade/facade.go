// Package facade is the single entry point shared by the HTTP API and the
// kiosk.  It authenticates callers, parses loose client input and turns
// core decisions into success/info/error replies with human text.  It holds
// no business rules of its own.
package facade

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/igasar/doorlock/internal/doorlock/notify"
	"github.com/igasar/doorlock/internal/doorlock/service"
	"github.com/igasar/doorlock/internal/doorlock/store"
	"github.com/igasar/doorlock/internal/doorlock/types"
)

const (
	StatusSuccess = "success"
	StatusInfo    = "info"
	StatusError   = "error"
)

const (
	ServiceName = "doorlock-attendance"
	Version     = "3.1"
)

type Dependencies struct {
	APIToken   string
	Attendance *service.AttendanceService
	Door       *service.DoorController
	Health     *service.HealthService
	DoorEvents store.DoorEventStore
	Logger     *zap.Logger
}

type Facade struct {
	token      []byte
	attendance *service.AttendanceService
	door       *service.DoorController
	health     *service.HealthService
	doorEvents store.DoorEventStore
	logger     *zap.Logger
}

func New(deps Dependencies) *Facade {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Facade{
		token:      []byte(deps.APIToken),
		attendance: deps.Attendance,
		door:       deps.Door,
		health:     deps.Health,
		doorEvents: deps.DoorEvents,
		logger:     deps.Logger,
	}
}

// Authorized compares in constant time.  An unconfigured token matches nothing.
func (f *Facade) Authorized(token string) bool {
	if len(f.token) == 0 || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare(f.token, []byte(token)) == 1
}

const msgInvalidToken = "Invalid token"

// SubmitAttendance records one attempt.  Rejections and duplicates are 400
// with status error and info respectively.
func (f *Facade) SubmitAttendance(ctx context.Context, token string, req types.AttendanceRequest) (types.AttendanceResponse, int) {
	if !f.Authorized(token) {
		return types.AttendanceResponse{Status: StatusError, Message: msgInvalidToken}, http.StatusUnauthorized
	}
	req = req.Normalize()

	out, err := f.attendance.Submit(ctx, req.EmployeeCode, req.EventKind)
	switch {
	case errors.Is(err, service.ErrInvalidEmployeeCode), errors.Is(err, service.ErrInvalidEventKind):
		return types.AttendanceResponse{
			Status:  StatusError,
			Message: "employee_code and event_kind are required",
		}, http.StatusBadRequest
	case err != nil:
		f.logger.Error("attendance submit failed",
			zap.String("employee_code", req.EmployeeCode), zap.Error(err))
		return types.AttendanceResponse{
			Status:  StatusError,
			Message: "Attendance could not be saved, please try again",
		}, http.StatusInternalServerError
	}

	resp := types.AttendanceResponse{EmployeeCode: req.EmployeeCode}
	if out.Employee != nil {
		resp.EmployeeName = out.Employee.Name
	}
	if out.Decision.Kind != "" {
		resp.EventKind = string(out.Decision.Kind)
	}

	loc := f.attendance.Location()
	switch out.Decision.Verdict {
	case service.Accepted:
		opened := out.DoorOpened
		resp.Status = StatusSuccess
		resp.Message = acceptedMessage(resp.EmployeeName, out.Decision.Kind)
		resp.Timestamp = out.Event.OccurredAt.In(loc).Format(time.RFC3339)
		resp.DoorOpened = &opened
		return resp, http.StatusOK

	case service.AlreadyRecorded:
		resp.Status = StatusInfo
		resp.Message = duplicateMessage(resp.EmployeeName, out.Decision.Kind)
		if out.Last != nil {
			resp.LastTime = out.Last.OccurredAt.In(loc).Format("15:04:05")
		}
		return resp, http.StatusBadRequest

	default:
		resp.Status = StatusError
		resp.Message = rejectedMessage(req.EmployeeCode, req.EventKind, resp.EmployeeName, out.Decision.Reason)
		return resp, http.StatusBadRequest
	}
}

// OpenDoor unlocks for rawDelay seconds (number or numeric string).  An
// absent or out-of-range delay uses the configured default.
func (f *Facade) OpenDoor(token string, rawDelay any) (types.DoorActionResponse, int) {
	if !f.Authorized(token) {
		return types.DoorActionResponse{Status: StatusError, Message: msgInvalidToken}, http.StatusUnauthorized
	}

	delay := f.door.Delays().ParseDelay(rawDelay)
	res := f.door.Unlock(delay, types.DoorTrigger{Source: types.TriggerManual})
	if !res.Opened {
		resp := types.DoorActionResponse{Status: StatusInfo, Message: "Door is already open"}
		if !res.RelockAt.IsZero() {
			resp.RelockAt = res.RelockAt.Format(time.RFC3339)
		}
		return resp, http.StatusOK
	}

	secs := int(res.Delay / time.Second)
	return types.DoorActionResponse{
		Status:    StatusSuccess,
		Message:   "Door unlocked for " + plural(secs, "second"),
		DelayUsed: secs,
		RelockAt:  res.RelockAt.Format(time.RFC3339),
	}, http.StatusOK
}

func (f *Facade) LockDoor(token string) (types.DoorActionResponse, int) {
	if !f.Authorized(token) {
		return types.DoorActionResponse{Status: StatusError, Message: msgInvalidToken}, http.StatusUnauthorized
	}
	if !f.door.Lock(types.DoorTrigger{Source: types.TriggerManual}) {
		return types.DoorActionResponse{Status: StatusInfo, Message: "Door is already locked"}, http.StatusOK
	}
	return types.DoorActionResponse{Status: StatusSuccess, Message: "Door locked"}, http.StatusOK
}

func (f *Facade) DoorStatus() types.DoorStatusResponse {
	return doorStatusResponse(f.door.Status())
}

func doorStatusResponse(st types.DoorStatus) types.DoorStatusResponse {
	resp := types.DoorStatusResponse{
		IsLocked: st.Locked,
		Status:   "locked",
		GPIOMode: string(st.Mode),
	}
	if !st.Locked {
		resp.Status = "unlocked"
		if st.RelockAt != nil {
			resp.RelockAt = st.RelockAt.Format(time.RFC3339)
		}
	}
	return resp
}

func (f *Facade) Health(ctx context.Context) types.HealthResponse {
	rep := f.health.Check(ctx)
	resp := types.HealthResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Timestamp: rep.CheckedAt.Format(time.RFC3339),
		GPIOMode:  string(rep.Door.Mode),
		Storage:   "AVAILABLE",
		Doorlock:  doorStatusResponse(rep.Door),
	}
	if !rep.StorageOK {
		resp.Status = "degraded"
		resp.Storage = "UNAVAILABLE"
	}
	return resp
}

const maxDoorEvents = 500

func (f *Facade) DoorEvents(ctx context.Context, token string, limit int) (types.DoorEventsResponse, int) {
	if !f.Authorized(token) {
		return types.DoorEventsResponse{Status: StatusError, Message: msgInvalidToken, Events: []types.DoorEventEntry{}}, http.StatusUnauthorized
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > maxDoorEvents {
		limit = maxDoorEvents
	}

	evs, err := f.doorEvents.Recent(ctx, limit)
	if err != nil {
		f.logger.Error("door events query failed", zap.Error(err))
		return types.DoorEventsResponse{Status: StatusError, Message: "Door history unavailable", Events: []types.DoorEventEntry{}}, http.StatusInternalServerError
	}

	entries := make([]types.DoorEventEntry, 0, len(evs))
	for _, ev := range evs {
		entries = append(entries, notify.DoorEventEntry(ev))
	}
	return types.DoorEventsResponse{Status: StatusSuccess, Count: len(entries), Events: entries}, http.StatusOK
}

// AttendanceToday lists an employee's events for the current kiosk day.
func (f *Facade) AttendanceToday(ctx context.Context, token, code string) (types.AttendanceDayResponse, int) {
	empty := []types.AttendanceDayEntry{}
	if !f.Authorized(token) {
		return types.AttendanceDayResponse{Status: StatusError, Message: msgInvalidToken, Events: empty}, http.StatusUnauthorized
	}

	emp, evs, day, err := f.attendance.Today(ctx, code)
	switch {
	case errors.Is(err, service.ErrInvalidEmployeeCode):
		return types.AttendanceDayResponse{Status: StatusError, Message: "employee_code is required", Events: empty}, http.StatusBadRequest
	case errors.Is(err, service.ErrUnknownEmployee):
		return types.AttendanceDayResponse{Status: StatusError, Message: "Employee code " + code + " not found", Events: empty}, http.StatusNotFound
	case err != nil:
		f.logger.Error("attendance today failed", zap.String("employee_code", code), zap.Error(err))
		return types.AttendanceDayResponse{Status: StatusError, Message: "Attendance history unavailable", Events: empty}, http.StatusInternalServerError
	}

	entries := make([]types.AttendanceDayEntry, 0, len(evs))
	for _, ev := range evs {
		entries = append(entries, types.AttendanceDayEntry{
			EventID:   ev.ID,
			EventKind: string(ev.Kind),
			Timestamp: ev.OccurredAt.In(day.Location()).Format(time.RFC3339),
		})
	}
	return types.AttendanceDayResponse{
		Status:       StatusSuccess,
		EmployeeCode: emp.Code,
		EmployeeName: emp.Name,
		Date:         day.Format("2006-01-02"),
		Events:       entries,
	}, http.StatusOK
}

type IndexResponse struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Features  []string `json:"features"`
	Endpoints []string `json:"endpoints"`
}

func (f *Facade) Index() IndexResponse {
	return IndexResponse{
		Name:     "Doorlock + Attendance API",
		Version:  Version,
		Features: []string{"doorlock", "attendance", "auto-relock", "door-audit"},
		Endpoints: []string{
			"GET /health",
			"GET /door/status",
			"POST /door/open",
			"POST /door/lock",
			"GET /door/events",
			"POST /attendance",
			"POST /absen",
			"GET /attendance/today",
		},
	}
}
