package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/igasar/doorlock/internal/doorlock/store"
)

// DoorEventPruner periodically deletes door audit rows older than a
// retention period.  Attendance rows are never pruned.
//
// A retention of 0 disables pruning entirely.
type DoorEventPruner struct {
	store     store.DoorEventStore
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *zap.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

// PrunerConfig holds the parameters for NewDoorEventPruner.
type PrunerConfig struct {
	// RetentionDays is how many days of door history to keep.
	// 0 means keep everything (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs.  Defaults to 6.
	IntervalHours int
}

// NewDoorEventPruner creates a pruner but does not start it.
func NewDoorEventPruner(s store.DoorEventStore, cfg PrunerConfig, logger *zap.Logger) *DoorEventPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DoorEventPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		now:       time.Now,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start runs an immediate prune, then repeats on the configured interval
// until ctx is cancelled or Stop is called.
func (p *DoorEventPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info("door event pruner disabled (retention=0)")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)

	p.logger.Info("door event pruner started",
		zap.Duration("retention", p.retention),
		zap.Duration("interval", p.interval))
}

// Stop signals the pruner to exit and waits for it to finish.
func (p *DoorEventPruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *DoorEventPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.PruneOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneOnce(ctx)
		}
	}
}

// PruneOnce deletes everything older than the retention window.
func (p *DoorEventPruner) PruneOnce(ctx context.Context) int64 {
	cutoff := p.now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("door event prune failed", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		p.logger.Info("door event prune",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
	return deleted
}
