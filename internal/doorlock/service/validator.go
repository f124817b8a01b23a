package service

import "github.com/igasar/doorlock/internal/doorlock/types"

type Verdict int

const (
	Accepted Verdict = iota
	Rejected
	AlreadyRecorded
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case AlreadyRecorded:
		return "already_recorded"
	}
	return "unknown"
}

// Rejection reasons.  The facade keys its wording off these.
const (
	ReasonUnknownCode        = "unknown code"
	ReasonInactive           = "inactive employee"
	ReasonInvalidStatus      = "invalid status"
	ReasonAlreadyCheckedOut  = "already checked out today"
	ReasonMustCheckIn        = "must check in first"
	ReasonMustCheckOut       = "must check out before overtime"
	ReasonOvertimeNotStarted = "overtime not started"
)

// Decision is the outcome of validating one attendance attempt.  Kind is set
// whenever the raw kind parsed, even on rejection.
type Decision struct {
	Verdict Verdict
	Reason  string
	Kind    types.EventKind
}

func reject(kind types.EventKind, reason string) Decision {
	return Decision{Verdict: Rejected, Reason: reason, Kind: kind}
}

// Validate decides whether an attempt may be appended given the employee's
// last event today (nil when none).  It is pure.
//
// The day runs checkin, checkout, overtime_start, overtime_end.  Repeating
// the most recent kind is AlreadyRecorded; anything out of order is Rejected.
func Validate(emp *types.Employee, rawKind string, last *types.AttendanceEvent) Decision {
	if emp == nil {
		return reject("", ReasonUnknownCode)
	}
	if !emp.Active {
		return reject("", ReasonInactive)
	}
	kind, ok := types.ParseEventKind(rawKind)
	if !ok {
		return reject("", ReasonInvalidStatus)
	}

	var prev types.EventKind
	if last != nil {
		prev = last.Kind
	}
	if prev == kind {
		return Decision{Verdict: AlreadyRecorded, Kind: kind}
	}

	switch kind {
	case types.KindCheckin:
		if prev != "" {
			return reject(kind, ReasonAlreadyCheckedOut)
		}
	case types.KindCheckout:
		if prev != types.KindCheckin && prev != types.KindOvertimeStart {
			return reject(kind, ReasonMustCheckIn)
		}
	case types.KindOvertimeStart:
		if prev != types.KindCheckout {
			return reject(kind, ReasonMustCheckOut)
		}
	case types.KindOvertimeEnd:
		if prev != types.KindOvertimeStart {
			return reject(kind, ReasonOvertimeNotStarted)
		}
	}
	return Decision{Verdict: Accepted, Kind: kind}
}
