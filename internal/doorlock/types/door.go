package types

import "time"

// GPIOMode reports whether the relay is driven by a real pin.
type GPIOMode string

const (
	GPIOHardware  GPIOMode = "HARDWARE"
	GPIOSimulated GPIOMode = "SIMULATED"
)

type DoorAction string

const (
	DoorUnlock DoorAction = "unlock"
	DoorLock   DoorAction = "lock"
)

// DoorTrigger names who asked for a door transition.
type DoorTrigger struct {
	Source       string // "attendance" | "manual" | "auto_relock" | "shutdown"
	EmployeeCode string
}

const (
	TriggerAttendance = "attendance"
	TriggerManual     = "manual"
	TriggerAutoRelock = "auto_relock"
	TriggerShutdown   = "shutdown"
)

// DoorEvent is one effective relay transition, kept for auditing.
type DoorEvent struct {
	Action       DoorAction
	Source       string
	EmployeeCode string
	Delay        time.Duration // unlock dwell; zero for locks
	Mode         GPIOMode
	RelayError   string
	At           time.Time
}

type DoorStatus struct {
	Locked   bool
	Mode     GPIOMode
	RelockAt *time.Time
}

type DoorOpenRequest struct {
	Token string `json:"token,omitempty"`
	// Delay is kept raw: numbers, numeric strings and garbage are all
	// accepted, garbage falls back to the default dwell.
	Delay any `json:"delay,omitempty"`
}

type DoorLockRequest struct {
	Token string `json:"token,omitempty"`
}

type DoorActionResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	DelayUsed int    `json:"delay_used,omitempty"`
	RelockAt  string `json:"relock_at,omitempty"`
}

type DoorStatusResponse struct {
	IsLocked bool   `json:"is_locked"`
	Status   string `json:"status"`
	GPIOMode string `json:"gpio_mode"`
	RelockAt string `json:"relock_at,omitempty"`
}

type DoorEventEntry struct {
	Action       string `json:"action"`
	Source       string `json:"source"`
	EmployeeCode string `json:"employee_code,omitempty"`
	DelaySeconds int    `json:"delay_s,omitempty"`
	GPIOMode     string `json:"gpio_mode"`
	RelayError   string `json:"relay_error,omitempty"`
	At           string `json:"at"`
}

type DoorEventsResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message,omitempty"`
	Count   int              `json:"count"`
	Events  []DoorEventEntry `json:"events"`
}

type HealthResponse struct {
	Status    string             `json:"status"`
	Service   string             `json:"service"`
	Timestamp string             `json:"timestamp"`
	GPIOMode  string             `json:"gpio_mode"`
	Storage   string             `json:"storage"`
	Doorlock  DoorStatusResponse `json:"doorlock"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
