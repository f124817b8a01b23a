package facade

import (
	"strconv"

	"github.com/igasar/doorlock/internal/doorlock/service"
	"github.com/igasar/doorlock/internal/doorlock/types"
)

func acceptedMessage(name string, kind types.EventKind) string {
	switch kind {
	case types.KindCheckin:
		return "Success! " + name + " checked in."
	case types.KindCheckout:
		return "Success! " + name + " checked out."
	case types.KindOvertimeStart:
		return "Success! " + name + " started overtime."
	case types.KindOvertimeEnd:
		return "Success! " + name + " finished overtime."
	}
	return "Success! " + name + " recorded."
}

func duplicateMessage(name string, kind types.EventKind) string {
	switch kind {
	case types.KindCheckin:
		return name + " has already checked in today."
	case types.KindCheckout:
		return name + " has already checked out today."
	case types.KindOvertimeStart:
		return name + " has already started overtime today."
	case types.KindOvertimeEnd:
		return name + " has already finished overtime today."
	}
	return name + " is already recorded today."
}

func rejectedMessage(code, rawKind, name, reason string) string {
	switch reason {
	case service.ReasonUnknownCode:
		return "Employee code " + code + " not found"
	case service.ReasonInactive:
		return name + " is no longer active"
	case service.ReasonInvalidStatus:
		return "Invalid event kind: " + rawKind
	case service.ReasonAlreadyCheckedOut:
		return name + " has already gone home today and cannot check in again."
	case service.ReasonMustCheckIn:
		return name + " must check in before checking out."
	case service.ReasonMustCheckOut:
		return name + " must check out before starting overtime."
	case service.ReasonOvertimeNotStarted:
		return name + " has not started overtime."
	}
	return "Attendance rejected: " + reason
}

func plural(n int, unit string) string {
	s := strconv.Itoa(n) + " " + unit
	if n != 1 {
		s += "s"
	}
	return s
}
