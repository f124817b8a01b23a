package db

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrWorkerClosed = errors.New("db writer closed")

type TxFn func(ctx context.Context, tx *sql.Tx) error

type job struct {
	ctx      context.Context
	fn       TxFn
	ch       chan error
	queuedAt time.Time
}

// Worker owns every write transaction.  Jobs run one at a time in FIFO
// order, which keeps SQLite free of SQLITE_BUSY and gives a per-process
// total order to appends.
type Worker struct {
	db     *sql.DB
	logger *zap.Logger
	jobs   chan job
	done   chan struct{}

	// slow is the queue+exec time above which a job is logged.
	slow time.Duration

	mu     sync.RWMutex
	closed bool
}

func NewWorker(db *sql.DB, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Worker{
		db:     db,
		logger: logger.Named("db-writer"),
		jobs:   make(chan job, 256),
		done:   make(chan struct{}),
		slow:   250 * time.Millisecond,
	}
	go w.loop()
	return w
}

// Close drains queued jobs and stops the loop.  Safe to call twice.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	<-w.done
}

// Do runs fn inside a transaction on the writer goroutine.  fn's error
// rolls back; otherwise the commit error is returned.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	ch := make(chan error, 1)
	j := job{ctx: ctx, fn: fn, ch: ch, queuedAt: time.Now()}

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrWorkerClosed
	}
	// Bail out if the caller's context expires while the buffer is full.
	select {
	case w.jobs <- j:
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	w.mu.RUnlock()

	// The loop still finishes a job whose caller gave up; the result lands
	// in the buffered ch and is dropped.
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer close(w.done)

	for j := range w.jobs {
		err := w.run(j)
		if d := time.Since(j.queuedAt); d > w.slow {
			w.logger.Warn("slow write", zap.Duration("elapsed", d), zap.Error(err))
		}
		j.ch <- err
	}
}

func (w *Worker) run(j job) error {
	tx, err := w.db.BeginTx(j.ctx, nil)
	if err != nil {
		return err
	}
	if err := j.fn(j.ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
