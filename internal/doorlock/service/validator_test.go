package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/igasar/doorlock/internal/doorlock/service"
	"github.com/igasar/doorlock/internal/doorlock/types"
)

var emp001 = &types.Employee{ID: 1, Code: "EMP001", Name: "Budi Santoso", Active: true}

func last(kind types.EventKind) *types.AttendanceEvent {
	return &types.AttendanceEvent{EmployeeID: 1, EmployeeCode: "EMP001", Kind: kind}
}

func TestValidate_UnknownAndInactive(t *testing.T) {
	d := service.Validate(nil, "checkin", nil)
	assert.Equal(t, service.Rejected, d.Verdict)
	assert.Equal(t, service.ReasonUnknownCode, d.Reason)

	inactive := &types.Employee{ID: 2, Code: "EMP002", Active: false}
	d = service.Validate(inactive, "checkin", nil)
	assert.Equal(t, service.Rejected, d.Verdict)
	assert.Equal(t, service.ReasonInactive, d.Reason)
}

func TestValidate_InvalidKind(t *testing.T) {
	d := service.Validate(emp001, "lunch", nil)
	assert.Equal(t, service.Rejected, d.Verdict)
	assert.Equal(t, service.ReasonInvalidStatus, d.Reason)
}

func TestValidate_Aliases(t *testing.T) {
	for _, raw := range []string{"Masuk", "masuk", "check-in", "CHECKIN"} {
		d := service.Validate(emp001, raw, nil)
		assert.Equal(t, service.Accepted, d.Verdict, raw)
		assert.Equal(t, types.KindCheckin, d.Kind, raw)
	}
	d := service.Validate(emp001, "Pulang Lembur", last(types.KindOvertimeStart))
	assert.Equal(t, service.Accepted, d.Verdict)
	assert.Equal(t, types.KindOvertimeEnd, d.Kind)
}

func TestValidate_Table(t *testing.T) {
	cases := []struct {
		kind   types.EventKind
		prev   types.EventKind
		want   service.Verdict
		reason string
	}{
		{types.KindCheckin, "", service.Accepted, ""},
		{types.KindCheckin, types.KindCheckin, service.AlreadyRecorded, ""},
		{types.KindCheckin, types.KindCheckout, service.Rejected, service.ReasonAlreadyCheckedOut},
		{types.KindCheckin, types.KindOvertimeEnd, service.Rejected, service.ReasonAlreadyCheckedOut},

		{types.KindCheckout, "", service.Rejected, service.ReasonMustCheckIn},
		{types.KindCheckout, types.KindCheckin, service.Accepted, ""},
		{types.KindCheckout, types.KindOvertimeStart, service.Accepted, ""},
		{types.KindCheckout, types.KindCheckout, service.AlreadyRecorded, ""},
		{types.KindCheckout, types.KindOvertimeEnd, service.Rejected, service.ReasonMustCheckIn},

		{types.KindOvertimeStart, "", service.Rejected, service.ReasonMustCheckOut},
		{types.KindOvertimeStart, types.KindCheckin, service.Rejected, service.ReasonMustCheckOut},
		{types.KindOvertimeStart, types.KindCheckout, service.Accepted, ""},
		{types.KindOvertimeStart, types.KindOvertimeStart, service.AlreadyRecorded, ""},

		{types.KindOvertimeEnd, "", service.Rejected, service.ReasonOvertimeNotStarted},
		{types.KindOvertimeEnd, types.KindCheckout, service.Rejected, service.ReasonOvertimeNotStarted},
		{types.KindOvertimeEnd, types.KindOvertimeStart, service.Accepted, ""},
		{types.KindOvertimeEnd, types.KindOvertimeEnd, service.AlreadyRecorded, ""},
	}
	for _, tc := range cases {
		name := string(tc.kind) + "_after_" + string(tc.prev)
		t.Run(name, func(t *testing.T) {
			var prev *types.AttendanceEvent
			if tc.prev != "" {
				prev = last(tc.prev)
			}
			d := service.Validate(emp001, string(tc.kind), prev)
			assert.Equal(t, tc.want, d.Verdict)
			assert.Equal(t, tc.reason, d.Reason)
		})
	}
}

// Walking the full day in order accepts every step; replacing step k with
// any other kind is refused at step k, except repeating step k-1.
func TestValidate_SequenceDeviation(t *testing.T) {
	seq := []types.EventKind{types.KindCheckin, types.KindCheckout, types.KindOvertimeStart, types.KindOvertimeEnd}
	all := seq

	for k := range seq {
		var prev *types.AttendanceEvent
		for i := 0; i < k; i++ {
			d := service.Validate(emp001, string(seq[i]), prev)
			assert.Equal(t, service.Accepted, d.Verdict)
			prev = last(seq[i])
		}
		for _, alt := range all {
			if alt == seq[k] {
				continue
			}
			d := service.Validate(emp001, string(alt), prev)
			if seq[k] == types.KindOvertimeEnd && alt == types.KindCheckout {
				// checkout also closes an overtime block.
				assert.Equal(t, service.Accepted, d.Verdict)
				continue
			}
			if k > 0 && alt == seq[k-1] {
				assert.Equal(t, service.AlreadyRecorded, d.Verdict, "step %d alt %s", k, alt)
				continue
			}
			assert.Equal(t, service.Rejected, d.Verdict, "step %d alt %s", k, alt)
		}
	}
}
