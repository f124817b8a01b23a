package service

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/igasar/doorlock/internal/doorlock/relay"
	"github.com/igasar/doorlock/internal/doorlock/types"
)

// Timer is the part of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.  time.AfterFunc satisfies it
// through the adapter in NewDoorController; tests inject a manual clock.
type AfterFunc func(d time.Duration, f func()) Timer

// DoorEventSink receives every effective relay transition.  It is called
// outside the controller lock and must not call back into the controller.
type DoorEventSink interface {
	OnDoorEvent(ev types.DoorEvent)
}

// DelayPolicy bounds the unlock dwell.
type DelayPolicy struct {
	Default time.Duration
	Min     time.Duration
	Max     time.Duration
}

func DefaultDelayPolicy() DelayPolicy {
	return DelayPolicy{Default: 5 * time.Second, Min: time.Second, Max: 30 * time.Second}
}

// ClampDelay returns d when it lies within [Min, Max] and Default otherwise.
func (p DelayPolicy) ClampDelay(d time.Duration) time.Duration {
	if d < p.Min || d > p.Max {
		return p.Default
	}
	return d
}

// ParseDelay accepts a dwell in whole seconds as sent by API clients: a JSON
// number (fraction truncated), a numeric string, or nothing.  Anything that
// is not a usable number falls back to Default.
func (p DelayPolicy) ParseDelay(raw any) time.Duration {
	var secs int64
	switch v := raw.(type) {
	case nil:
		return p.Default
	case float64:
		if math.IsNaN(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return p.Default
		}
		secs = int64(v)
	case int:
		secs = int64(v)
	case int64:
		secs = v
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return p.Default
		}
		secs = n
	default:
		return p.Default
	}
	// Range-check in seconds first; huge values would wrap when scaled.
	if secs < int64(p.Min/time.Second) || secs > int64(p.Max/time.Second) {
		return p.Default
	}
	return p.ClampDelay(time.Duration(secs) * time.Second)
}

type UnlockResult struct {
	Opened   bool
	Delay    time.Duration
	RelockAt time.Time
}

type DoorControllerConfig struct {
	Delays DelayPolicy

	// AfterFunc defaults to time.AfterFunc.
	AfterFunc AfterFunc
	// Now defaults to time.Now.
	Now  func() time.Time
	Sink DoorEventSink
}

// DoorController owns the door state and the single pending relock timer.
// One mutex covers the state check, the relay write and the timer
// arm/cancel; the dwell itself is a scheduled callback.
type DoorController struct {
	relay     relay.Driver
	delays    DelayPolicy
	afterFunc AfterFunc
	now       func() time.Time
	sink      DoorEventSink
	logger    *zap.Logger

	mu       sync.Mutex
	locked   bool
	relockAt time.Time
	timer    Timer
	// gen is bumped on every transition so a relock callback that lost the
	// race against Lock or a newer Unlock can tell it is stale.
	gen    uint64
	closed bool
}

// NewDoorController starts Locked and drives the relay de-energized.
func NewDoorController(drv relay.Driver, cfg DoorControllerConfig, logger *zap.Logger) *DoorController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Delays == (DelayPolicy{}) {
		cfg.Delays = DefaultDelayPolicy()
	}
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &DoorController{
		relay:     drv,
		delays:    cfg.Delays,
		afterFunc: cfg.AfterFunc,
		now:       cfg.Now,
		sink:      cfg.Sink,
		logger:    logger,
		locked:    true,
	}
	if err := drv.Set(false); err != nil {
		logger.Error("relay init write failed", zap.Error(err))
	}
	return c
}

func (c *DoorController) Delays() DelayPolicy { return c.delays }

// Unlock energizes the relay and arms the relock timer.  If the door is
// already unlocked nothing changes: the pending deadline is not extended.
func (c *DoorController) Unlock(delay time.Duration, trig types.DoorTrigger) UnlockResult {
	delay = c.delays.ClampDelay(delay)

	c.mu.Lock()
	if c.closed || !c.locked {
		res := UnlockResult{Opened: false, Delay: delay, RelockAt: c.relockAt}
		c.mu.Unlock()
		return res
	}

	relayErr := c.drive(true)
	c.locked = false
	c.gen++
	gen := c.gen
	at := c.now()
	c.relockAt = at.Add(delay)
	c.timer = c.afterFunc(delay, func() { c.autoRelock(gen) })
	res := UnlockResult{Opened: true, Delay: delay, RelockAt: c.relockAt}
	c.mu.Unlock()

	c.logger.Info("door unlocked",
		zap.String("source", trig.Source),
		zap.String("employee_code", trig.EmployeeCode),
		zap.Duration("delay", delay))
	c.emit(types.DoorEvent{
		Action:       types.DoorUnlock,
		Source:       trig.Source,
		EmployeeCode: trig.EmployeeCode,
		Delay:        delay,
		Mode:         c.relay.Mode(),
		RelayError:   errString(relayErr),
		At:           at,
	})
	return res
}

// Lock de-energizes the relay and cancels any pending relock.  It reports
// false when the door was already locked.
func (c *DoorController) Lock(trig types.DoorTrigger) bool {
	c.mu.Lock()
	if c.locked {
		c.mu.Unlock()
		return false
	}
	ev := c.lockLocked(trig)
	c.mu.Unlock()

	c.logger.Info("door locked", zap.String("source", trig.Source))
	c.emit(ev)
	return true
}

func (c *DoorController) autoRelock(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.locked {
		c.mu.Unlock()
		return
	}
	ev := c.lockLocked(types.DoorTrigger{Source: types.TriggerAutoRelock})
	c.mu.Unlock()

	c.logger.Info("door auto-relocked")
	c.emit(ev)
}

// lockLocked performs the transition to Locked.  c.mu must be held.
func (c *DoorController) lockLocked(trig types.DoorTrigger) types.DoorEvent {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	relayErr := c.drive(false)
	c.locked = true
	c.relockAt = time.Time{}
	c.gen++
	return types.DoorEvent{
		Action:       types.DoorLock,
		Source:       trig.Source,
		EmployeeCode: trig.EmployeeCode,
		Mode:         c.relay.Mode(),
		RelayError:   errString(relayErr),
		At:           c.now(),
	}
}

// drive writes the relay.  A fault is logged and the state transition still
// happens: the software state follows the command, not the pin.
func (c *DoorController) drive(active bool) error {
	err := c.relay.Set(active)
	if err != nil {
		c.logger.Error("relay write failed", zap.Bool("active", active), zap.Error(err))
	}
	return err
}

func (c *DoorController) Status() types.DoorStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := types.DoorStatus{Locked: c.locked, Mode: c.relay.Mode()}
	if !c.locked {
		t := c.relockAt
		st.RelockAt = &t
	}
	return st
}

// Close locks the door, cancels the relock and refuses further unlocks.
func (c *DoorController) Close() {
	c.mu.Lock()
	c.closed = true
	if c.locked {
		c.mu.Unlock()
		return
	}
	ev := c.lockLocked(types.DoorTrigger{Source: types.TriggerShutdown})
	c.mu.Unlock()

	c.logger.Info("door locked on shutdown")
	c.emit(ev)
}

func (c *DoorController) emit(ev types.DoorEvent) {
	if c.sink != nil {
		c.sink.OnDoorEvent(ev)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
