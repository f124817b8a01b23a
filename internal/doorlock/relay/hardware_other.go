//go:build !linux

package relay

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

func newHardware(_ Config, _ *zap.Logger) (Driver, error) {
	return nil, fmt.Errorf("%w: no gpio character device on %s", ErrHardwareAbsent, runtime.GOOS)
}
