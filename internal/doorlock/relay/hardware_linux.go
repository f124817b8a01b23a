//go:build linux

package relay

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/zap"

	"github.com/igasar/doorlock/internal/doorlock/types"
)

// HardwareRelay drives a GPIO line through the Linux character device.
// Polarity is delegated to the kernel via the active-low line flag, so the
// line value written here is always the logical "energized" value.
type HardwareRelay struct {
	mu     sync.Mutex
	line   *gpiocdev.Line
	active bool
	logger *zap.Logger
}

func newHardware(cfg Config, logger *zap.Logger) (Driver, error) {
	chip := cfg.Chip
	if chip == "" {
		chip = "gpiochip0"
	}

	dev := chip
	if !strings.HasPrefix(dev, "/dev/") {
		dev = "/dev/" + chip
	}
	if _, err := os.Stat(dev); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrHardwareAbsent, dev)
	}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer("doorlock"),
		gpiocdev.AsOutput(0), // start de-energized (locked)
	}
	if cfg.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := gpiocdev.RequestLine(chip, cfg.Pin, opts...)
	if err != nil {
		return nil, fmt.Errorf("request gpio line %s/%d: %w", chip, cfg.Pin, err)
	}

	logger.Info("relay initialized",
		zap.String("chip", chip),
		zap.Int("pin", cfg.Pin),
		zap.Bool("active_low", cfg.ActiveLow))

	return &HardwareRelay{line: line, logger: logger.Named("relay")}, nil
}

func (h *HardwareRelay) Set(active bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	v := 0
	if active {
		v = 1
	}
	if err := h.line.SetValue(v); err != nil {
		return fmt.Errorf("relay set %v: %w", active, err)
	}
	if h.active != active {
		h.logger.Info("relay", zap.Bool("energized", active))
	}
	h.active = active
	return nil
}

func (h *HardwareRelay) Mode() types.GPIOMode { return types.GPIOHardware }

func (h *HardwareRelay) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = h.line.SetValue(0)
	return h.line.Close()
}
