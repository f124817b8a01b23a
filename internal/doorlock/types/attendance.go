package types

import (
	"strings"
	"time"
)

type EventKind string

const (
	KindCheckin       EventKind = "checkin"
	KindCheckout      EventKind = "checkout"
	KindOvertimeStart EventKind = "overtime_start"
	KindOvertimeEnd   EventKind = "overtime_end"
)

// kindAliases maps every accepted spelling (normalized) to its kind.  The
// Indonesian terms are what the kiosk and the legacy attendance_logs enum use.
var kindAliases = map[string]EventKind{
	"checkin":        KindCheckin,
	"check_in":       KindCheckin,
	"masuk":          KindCheckin,
	"checkout":       KindCheckout,
	"check_out":      KindCheckout,
	"pulang":         KindCheckout,
	"overtime_start": KindOvertimeStart,
	"overtime":       KindOvertimeStart,
	"lembur":         KindOvertimeStart,
	"overtime_end":   KindOvertimeEnd,
	"pulang_lembur":  KindOvertimeEnd,
}

// ParseEventKind resolves a kind or one of its aliases ("Pulang Lembur",
// "pulang_lembur", "overtime-end" ...).  ok is false for anything else.
func ParseEventKind(raw string) (EventKind, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	k, ok := kindAliases[s]
	return k, ok
}

// LegacyName returns the term used by the legacy kiosk for this kind.
func (k EventKind) LegacyName() string {
	switch k {
	case KindCheckin:
		return "masuk"
	case KindCheckout:
		return "pulang"
	case KindOvertimeStart:
		return "lembur"
	case KindOvertimeEnd:
		return "pulang_lembur"
	}
	return string(k)
}

func (k EventKind) Valid() bool {
	switch k {
	case KindCheckin, KindCheckout, KindOvertimeStart, KindOvertimeEnd:
		return true
	}
	return false
}

// Employee is owned by the external HR database; the core only reads it.
type Employee struct {
	ID     int64
	Code   string
	Name   string
	Active bool
}

// AttendanceEvent is append-only.  Once stored it is never modified.
type AttendanceEvent struct {
	ID           string
	EmployeeID   int64
	EmployeeCode string
	Kind         EventKind
	OccurredAt   time.Time
}

type AttendanceRequest struct {
	Token        string `json:"token,omitempty"`
	EmployeeCode string `json:"employee_code"`
	EventKind    string `json:"event_kind"`

	// Field names sent by legacy kiosk firmware.
	Kode   string `json:"kode,omitempty"`
	Status string `json:"status,omitempty"`
}

// Normalize folds the legacy field names into the current ones.
func (r AttendanceRequest) Normalize() AttendanceRequest {
	if strings.TrimSpace(r.EmployeeCode) == "" {
		r.EmployeeCode = r.Kode
	}
	if strings.TrimSpace(r.EventKind) == "" {
		r.EventKind = r.Status
	}
	r.EmployeeCode = strings.TrimSpace(r.EmployeeCode)
	r.EventKind = strings.TrimSpace(r.EventKind)
	r.Kode, r.Status = "", ""
	return r
}

type AttendanceResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	EmployeeName string `json:"employee_name,omitempty"`
	EmployeeCode string `json:"employee_code,omitempty"`
	EventKind    string `json:"event_kind,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
	DoorOpened   *bool  `json:"door_opened,omitempty"`
	LastTime     string `json:"last_time,omitempty"`
}

type AttendanceDayEntry struct {
	EventID   string `json:"event_id"`
	EventKind string `json:"event_kind"`
	Timestamp string `json:"timestamp"`
}

type AttendanceDayResponse struct {
	Status       string               `json:"status"`
	Message      string               `json:"message,omitempty"`
	EmployeeCode string               `json:"employee_code,omitempty"`
	EmployeeName string               `json:"employee_name,omitempty"`
	Date         string               `json:"date,omitempty"`
	Events       []AttendanceDayEntry `json:"events"`
}
