package sqlstore_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igasar/doorlock/internal/db"
	"github.com/igasar/doorlock/internal/doorlock/store/sqlstore"
	"github.com/igasar/doorlock/internal/doorlock/types"
)

var wib = time.FixedZone("WIB", 7*3600)

func TestEmployeeStore_FindByCode(t *testing.T) {
	conn := openTestDB(t)
	id := seedEmployee(t, conn, "EMP001", "Budi Santoso", true)
	seedEmployee(t, conn, "EMP009", "Former Staff", false)
	es := sqlstore.NewEmployeeStore(conn)
	ctx := context.Background()

	emp, err := es.FindByCode(ctx, "EMP001")
	require.NoError(t, err)
	require.NotNil(t, emp)
	assert.Equal(t, id, emp.ID)
	assert.Equal(t, "Budi Santoso", emp.Name)
	assert.True(t, emp.Active)

	emp, err = es.FindByCode(ctx, "EMP009")
	require.NoError(t, err)
	assert.False(t, emp.Active)

	emp, err = es.FindByCode(ctx, "ZZZZ")
	require.NoError(t, err)
	assert.Nil(t, emp)
}

func TestAttendanceStore_AppendAndLast(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	id := seedEmployee(t, conn, "EMP001", "Budi Santoso", true)
	as := sqlstore.NewAttendanceStore(conn, w)
	ctx := context.Background()

	morning := time.Date(2026, 3, 2, 8, 0, 0, 0, wib)
	require.NoError(t, as.Append(ctx, types.AttendanceEvent{
		ID: "ev-1", EmployeeID: id, Kind: types.KindCheckin, OccurredAt: morning,
	}))
	require.NoError(t, as.Append(ctx, types.AttendanceEvent{
		ID: "ev-2", EmployeeID: id, Kind: types.KindCheckout, OccurredAt: morning.Add(9 * time.Hour),
	}))

	last, err := as.LastEventOn(ctx, id, morning.Add(10*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "ev-2", last.ID)
	assert.Equal(t, types.KindCheckout, last.Kind)
	assert.Equal(t, "EMP001", last.EmployeeCode)
	assert.True(t, last.OccurredAt.Equal(morning.Add(9*time.Hour)))

	evs, err := as.EventsOn(ctx, id, morning)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "ev-1", evs[0].ID)
	assert.Equal(t, "ev-2", evs[1].ID)
}

// Days are cut in the kiosk zone, not UTC: 06:00 WIB is 23:00 UTC the day before.
func TestAttendanceStore_DayBoundaryFollowsLocation(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	id := seedEmployee(t, conn, "EMP001", "Budi Santoso", true)
	as := sqlstore.NewAttendanceStore(conn, w)
	ctx := context.Background()

	yesterday := time.Date(2026, 3, 1, 23, 30, 0, 0, wib)
	require.NoError(t, as.Append(ctx, types.AttendanceEvent{
		ID: "late", EmployeeID: id, Kind: types.KindCheckin, OccurredAt: yesterday,
	}))

	early := time.Date(2026, 3, 2, 6, 0, 0, 0, wib)
	last, err := as.LastEventOn(ctx, id, early)
	require.NoError(t, err)
	assert.Nil(t, last)

	last, err = as.LastEventOn(ctx, id, yesterday)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "late", last.ID)
}

func TestAttendanceStore_RejectsDuplicateEventID(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	id := seedEmployee(t, conn, "EMP001", "Budi Santoso", true)
	as := sqlstore.NewAttendanceStore(conn, w)
	ctx := context.Background()

	ev := types.AttendanceEvent{ID: "dup", EmployeeID: id, Kind: types.KindCheckin, OccurredAt: time.Now()}
	require.NoError(t, as.Append(ctx, ev))
	assert.Error(t, as.Append(ctx, ev))
}

func TestAttendanceStore_AppendFailurePropagates(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_events")).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	w := db.NewWorker(conn, nil)
	defer w.Close()
	as := sqlstore.NewAttendanceStore(conn, w)

	err = as.Append(context.Background(), types.AttendanceEvent{
		ID: "ev-1", EmployeeID: 1, Kind: types.KindCheckin, OccurredAt: time.Now(),
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}
