package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/igasar/doorlock/internal/doorlock/relay"
	"github.com/igasar/doorlock/internal/doorlock/service"
	"github.com/igasar/doorlock/internal/doorlock/store/memory"
	"github.com/igasar/doorlock/internal/doorlock/types"
)

var wib = time.FixedZone("WIB", 7*3600)

type attendanceFixture struct {
	svc     *service.AttendanceService
	door    *service.DoorController
	relay   *relay.SimulatedRelay
	clock   *manualClock
	events  *memory.AttendanceStore
	sink    *recordingSink
	publish *recordingPublisher
}

type recordingPublisher struct {
	mu    sync.Mutex
	names []string
}

func (p *recordingPublisher) PublishAttendance(_ types.AttendanceEvent, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names = append(p.names, name)
}

func (p *recordingPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.names)
}

func newAttendanceFixture(t *testing.T) *attendanceFixture {
	t.Helper()
	f := &attendanceFixture{
		clock:   newManualClock(time.Date(2026, 3, 2, 8, 0, 0, 0, wib)),
		events:  memory.NewAttendanceStore(),
		sink:    &recordingSink{},
		publish: &recordingPublisher{},
		relay:   relay.NewSimulated(true, zap.NewNop()),
	}
	f.door = service.NewDoorController(f.relay, service.DoorControllerConfig{
		AfterFunc: f.clock.AfterFunc,
		Now:       f.clock.Now,
		Sink:      f.sink,
	}, zap.NewNop())
	employees := memory.NewEmployeeStore([]types.Employee{
		{ID: 1, Code: "EMP001", Name: "Budi Santoso", Active: true},
		{ID: 2, Code: "EMP002", Name: "Siti Rahayu", Active: true},
		{ID: 3, Code: "EMP003", Name: "Agus Wijaya", Active: false},
	})
	f.svc = service.NewAttendanceService(employees, f.events, f.door, service.AttendanceConfig{
		AutoOpen:  true,
		Location:  wib,
		Now:       f.clock.Now,
		Publisher: f.publish,
	}, zap.NewNop())
	return f
}

func TestSubmit_CheckinOpensDoorAndRelocks(t *testing.T) {
	f := newAttendanceFixture(t)

	out, err := f.svc.Submit(context.Background(), "EMP001", "checkin")
	require.NoError(t, err)

	assert.Equal(t, service.Accepted, out.Decision.Verdict)
	require.NotNil(t, out.Event)
	assert.Equal(t, types.KindCheckin, out.Event.Kind)
	assert.NotEmpty(t, out.Event.ID)
	assert.True(t, out.DoorOpened)
	assert.Len(t, f.events.Events(), 1)
	assert.False(t, f.door.Status().Locked)
	assert.Equal(t, 1, f.publish.Count())

	f.clock.Advance(4 * time.Second)
	assert.False(t, f.door.Status().Locked)
	f.clock.Advance(time.Second)
	assert.True(t, f.door.Status().Locked)
	assert.False(t, f.relay.Active())
}

func TestSubmit_UnknownCodeLeavesDoorAlone(t *testing.T) {
	f := newAttendanceFixture(t)

	out, err := f.svc.Submit(context.Background(), "ZZZZ", "checkin")
	require.NoError(t, err)

	assert.Equal(t, service.Rejected, out.Decision.Verdict)
	assert.Equal(t, service.ReasonUnknownCode, out.Decision.Reason)
	assert.Nil(t, out.Employee)
	assert.Empty(t, f.events.Events())
	assert.Empty(t, f.sink.Events())
	assert.True(t, f.door.Status().Locked)
}

func TestSubmit_InactiveEmployee(t *testing.T) {
	f := newAttendanceFixture(t)

	out, err := f.svc.Submit(context.Background(), "EMP003", "checkin")
	require.NoError(t, err)
	assert.Equal(t, service.ReasonInactive, out.Decision.Reason)
	assert.Empty(t, f.events.Events())
}

func TestSubmit_DuplicateCheckin(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, "EMP001", "checkin")
	require.NoError(t, err)
	f.clock.Advance(10 * time.Second)

	out, err := f.svc.Submit(ctx, "EMP001", "masuk")
	require.NoError(t, err)
	assert.Equal(t, service.AlreadyRecorded, out.Decision.Verdict)
	require.NotNil(t, out.Last)
	assert.Equal(t, types.KindCheckin, out.Last.Kind)
	assert.False(t, out.DoorOpened)
	assert.Len(t, f.events.Events(), 1)
}

func TestSubmit_CheckoutBeforeCheckin(t *testing.T) {
	f := newAttendanceFixture(t)

	out, err := f.svc.Submit(context.Background(), "EMP001", "checkout")
	require.NoError(t, err)
	assert.Equal(t, service.Rejected, out.Decision.Verdict)
	assert.Equal(t, service.ReasonMustCheckIn, out.Decision.Reason)
	assert.True(t, f.door.Status().Locked)
}

func TestSubmit_FullDay(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	for _, k := range []string{"checkin", "checkout", "overtime_start", "overtime_end"} {
		out, err := f.svc.Submit(ctx, "EMP001", k)
		require.NoError(t, err)
		assert.Equal(t, service.Accepted, out.Decision.Verdict, k)
		f.clock.Advance(time.Hour)
	}
	assert.Len(t, f.events.Events(), 4)
}

func TestSubmit_ResetsAtMidnight(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, "EMP001", "checkin")
	require.NoError(t, err)

	// 08:00 + 16h = 00:00 the next day in the kiosk zone.
	f.clock.Advance(16 * time.Hour)

	out, err := f.svc.Submit(ctx, "EMP001", "checkin")
	require.NoError(t, err)
	assert.Equal(t, service.Accepted, out.Decision.Verdict)
}

func TestSubmit_StorageFailureSkipsDoor(t *testing.T) {
	f := newAttendanceFixture(t)
	f.events.FailAppend = errors.New("disk full")

	_, err := f.svc.Submit(context.Background(), "EMP001", "checkin")
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	assert.True(t, f.door.Status().Locked)
	assert.Empty(t, f.sink.Events())
	assert.Equal(t, 0, f.publish.Count())
}

func TestSubmit_MissingFields(t *testing.T) {
	f := newAttendanceFixture(t)

	_, err := f.svc.Submit(context.Background(), "  ", "checkin")
	assert.ErrorIs(t, err, service.ErrInvalidEmployeeCode)

	_, err = f.svc.Submit(context.Background(), "EMP001", "")
	assert.ErrorIs(t, err, service.ErrInvalidEventKind)
}

func TestSubmit_AutoOpenDisabled(t *testing.T) {
	f := newAttendanceFixture(t)
	svc := service.NewAttendanceService(
		memory.NewEmployeeStore([]types.Employee{{ID: 1, Code: "EMP001", Active: true}}),
		memory.NewAttendanceStore(), f.door,
		service.AttendanceConfig{Location: wib, Now: f.clock.Now}, nil)

	out, err := svc.Submit(context.Background(), "EMP001", "checkin")
	require.NoError(t, err)
	assert.Equal(t, service.Accepted, out.Decision.Verdict)
	assert.False(t, out.DoorOpened)
	assert.True(t, f.door.Status().Locked)
}

func TestSubmit_ConcurrentSameCode(t *testing.T) {
	f := newAttendanceFixture(t)

	const n = 50
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		verdicts = map[service.Verdict]int{}
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			out, err := f.svc.Submit(context.Background(), "EMP001", "checkin")
			if err != nil {
				t.Errorf("Submit: %v", err)
				return
			}
			mu.Lock()
			verdicts[out.Decision.Verdict]++
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, verdicts[service.Accepted])
	assert.Equal(t, n-1, verdicts[service.AlreadyRecorded])
	assert.Len(t, f.events.Events(), 1)
}

// blockingEvents holds the last-event read for one employee until released,
// i.e. while that employee's lock is held.
type blockingEvents struct {
	*memory.AttendanceStore
	employeeID int64
	entered    chan struct{}
	release    chan struct{}
}

func (b *blockingEvents) LastEventOn(ctx context.Context, employeeID int64, day time.Time) (*types.AttendanceEvent, error) {
	if employeeID == b.employeeID {
		close(b.entered)
		<-b.release
	}
	return b.AttendanceStore.LastEventOn(ctx, employeeID, day)
}

func TestSubmit_DifferentEmployeesDoNotContend(t *testing.T) {
	f := newAttendanceFixture(t)
	events := &blockingEvents{
		AttendanceStore: memory.NewAttendanceStore(),
		employeeID:      1,
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	emps := memory.NewEmployeeStore([]types.Employee{
		{ID: 1, Code: "EMP001", Active: true},
		{ID: 2, Code: "EMP002", Active: true},
	})
	svc := service.NewAttendanceService(emps, events, f.door,
		service.AttendanceConfig{Location: wib, Now: f.clock.Now}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Submit(context.Background(), "EMP001", "checkin")
	}()
	<-events.entered

	out, err := svc.Submit(context.Background(), "EMP002", "checkin")
	require.NoError(t, err)
	assert.Equal(t, service.Accepted, out.Decision.Verdict)

	close(events.release)
	<-done
}

// foldingEmployees matches codes case-insensitively, like a MySQL
// directory with the default collation.
type foldingEmployees struct {
	*memory.EmployeeStore
}

func (f foldingEmployees) FindByCode(ctx context.Context, code string) (*types.Employee, error) {
	return f.EmployeeStore.FindByCode(ctx, strings.ToUpper(code))
}

func TestSubmit_ConcurrentMixedCaseCodes(t *testing.T) {
	f := newAttendanceFixture(t)
	events := memory.NewAttendanceStore()
	emps := foldingEmployees{memory.NewEmployeeStore([]types.Employee{
		{ID: 1, Code: "EMP001", Name: "Budi Santoso", Active: true},
	})}
	svc := service.NewAttendanceService(emps, events, f.door,
		service.AttendanceConfig{Location: wib, Now: f.clock.Now}, nil)

	codes := []string{"EMP001", "emp001", "Emp001", " eMP001 "}
	const n = 50
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		verdicts = map[service.Verdict]int{}
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			<-start
			out, err := svc.Submit(context.Background(), code, "checkin")
			if err != nil {
				t.Errorf("Submit: %v", err)
				return
			}
			mu.Lock()
			verdicts[out.Decision.Verdict]++
			mu.Unlock()
		}(codes[i%len(codes)])
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, verdicts[service.Accepted])
	assert.Equal(t, n-1, verdicts[service.AlreadyRecorded])
	assert.Len(t, events.Events(), 1)
}

// cancellingEmployees cancels the caller's context once the lookup is done.
type cancellingEmployees struct {
	*memory.EmployeeStore
	cancel context.CancelFunc
}

func (c cancellingEmployees) FindByCode(ctx context.Context, code string) (*types.Employee, error) {
	emp, err := c.EmployeeStore.FindByCode(ctx, code)
	c.cancel()
	return emp, err
}

// ctxEvents fails like a database driver once the context is done.
type ctxEvents struct {
	*memory.AttendanceStore
}

func (c ctxEvents) LastEventOn(ctx context.Context, employeeID int64, day time.Time) (*types.AttendanceEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.AttendanceStore.LastEventOn(ctx, employeeID, day)
}

func (c ctxEvents) Append(ctx context.Context, ev types.AttendanceEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.AttendanceStore.Append(ctx, ev)
}

func TestSubmit_CallerCancelDoesNotAbortAttempt(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := memory.NewAttendanceStore()
	emps := cancellingEmployees{
		EmployeeStore: memory.NewEmployeeStore([]types.Employee{
			{ID: 1, Code: "EMP001", Name: "Budi Santoso", Active: true},
		}),
		cancel: cancel,
	}
	svc := service.NewAttendanceService(emps, ctxEvents{events}, f.door,
		service.AttendanceConfig{AutoOpen: true, Location: wib, Now: f.clock.Now}, nil)

	out, err := svc.Submit(ctx, "EMP001", "checkin")
	require.NoError(t, err)
	require.Error(t, ctx.Err())
	assert.Equal(t, service.Accepted, out.Decision.Verdict)
	assert.True(t, out.DoorOpened)
	assert.Len(t, events.Events(), 1)
}

func TestToday_ReturnsTimeline(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, "EMP001", "checkin")
	require.NoError(t, err)
	f.clock.Advance(9 * time.Hour)
	_, err = f.svc.Submit(ctx, "EMP001", "pulang")
	require.NoError(t, err)

	emp, evs, day, err := f.svc.Today(ctx, "EMP001")
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso", emp.Name)
	require.Len(t, evs, 2)
	assert.Equal(t, types.KindCheckin, evs[0].Kind)
	assert.Equal(t, types.KindCheckout, evs[1].Kind)
	assert.Equal(t, 2, day.Day())

	_, _, _, err = f.svc.Today(ctx, "NOPE")
	assert.ErrorIs(t, err, service.ErrUnknownEmployee)
}
