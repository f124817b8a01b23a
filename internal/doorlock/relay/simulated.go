package relay

import (
	"sync"

	"go.uber.org/zap"

	"github.com/igasar/doorlock/internal/doorlock/types"
)

// SimulatedRelay stands in for the GPIO line on hosts without one.
type SimulatedRelay struct {
	mu        sync.Mutex
	activeLow bool
	active    bool
	writes    int
	logger    *zap.Logger
}

func NewSimulated(activeLow bool, logger *zap.Logger) *SimulatedRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedRelay{activeLow: activeLow, logger: logger.Named("relay")}
}

func (s *SimulatedRelay) Set(active bool) error {
	s.mu.Lock()
	changed := s.active != active
	s.active = active
	s.writes++
	s.mu.Unlock()

	if changed {
		s.logger.Info("simulated relay",
			zap.Bool("energized", active),
			zap.Int("level", Level(active, s.activeLow)))
	}
	return nil
}

func (s *SimulatedRelay) Mode() types.GPIOMode { return types.GPIOSimulated }

func (s *SimulatedRelay) Close() error { return s.Set(false) }

// Active reports the last value written.
func (s *SimulatedRelay) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Writes counts Set calls, redundant ones included.
func (s *SimulatedRelay) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
