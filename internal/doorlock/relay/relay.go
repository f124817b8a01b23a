// Package relay drives the doorlock strike relay.
//
// Callers only ever say "energized" or "de-energized"; the driver resolves
// the electrical level from the configured polarity.  Hosts without a GPIO
// chip get a SimulatedRelay that logs what it would have done, so the rest
// of the system behaves the same on a laptop as on the Pi.
package relay

import (
	"errors"

	"go.uber.org/zap"

	"github.com/igasar/doorlock/internal/doorlock/types"
)

// ErrHardwareAbsent is returned by the hardware probe when the host has no
// GPIO character device at all.  It is the only probe failure that falls back
// to simulation; a chip that exists but cannot be driven is fatal.
var ErrHardwareAbsent = errors.New("gpio hardware not present")

// Driver is the capability the door controller depends on.
type Driver interface {
	// Set drives the relay energized (true) or de-energized (false).
	// Repeated calls with the same value have no additional effect.
	Set(active bool) error
	Mode() types.GPIOMode
	Close() error
}

type Config struct {
	Chip      string `yaml:"chip"`       // e.g. "gpiochip0"
	Pin       int    `yaml:"pin"`        // line offset; negative disables hardware
	ActiveLow bool   `yaml:"active_low"` // relay energizes when the line is low
	Simulate  bool   `yaml:"simulate"`   // force simulation even on a Pi
}

// New probes the platform once and returns the matching driver.  The
// returned driver is already de-energized.
func New(cfg Config, logger *zap.Logger) (Driver, error) {
	if cfg.Simulate || cfg.Pin < 0 {
		logger.Warn("relay simulation forced by config",
			zap.Bool("simulate", cfg.Simulate), zap.Int("pin", cfg.Pin))
		return NewSimulated(cfg.ActiveLow, logger), nil
	}

	d, err := newHardware(cfg, logger)
	if errors.Is(err, ErrHardwareAbsent) {
		logger.Warn("gpio not available, running relay in simulation mode", zap.Error(err))
		return NewSimulated(cfg.ActiveLow, logger), nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Level is the electrical value (1 = high, 0 = low) that puts the relay in
// the requested state.
func Level(active, activeLow bool) int {
	if active != activeLow {
		return 1
	}
	return 0
}
