package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CycleRunner is satisfied by *Cycle.
type CycleRunner interface {
	RunOnce(ctx context.Context) error
}

// Runner triggers a cycle every Interval. Cycles never overlap: a tick that
// arrives while a cycle is still running is dropped.
type Runner struct {
	Logger   *zap.Logger
	Cycle    CycleRunner
	Interval time.Duration
}

func NewRunner(logger *zap.Logger, c CycleRunner, interval time.Duration) *Runner {
	if interval < 0 {
		interval = 0
	}
	return &Runner{Logger: logger, Cycle: c, Interval: interval}
}

// Run does an immediate pass, then one per tick, until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	if r.Interval == 0 {
		r.Logger.Info("runner_disabled")
		return
	}
	t := time.NewTicker(r.Interval)
	defer t.Stop()

	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("runner_stopped")
			return
		case <-t.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	start := time.Now()
	err := r.Cycle.RunOnce(ctx)
	took := time.Since(start)

	if err != nil && ctx.Err() == nil {
		r.Logger.Warn("cycle_error", zap.Error(err), zap.Duration("took", took))
	}
	if took > r.Interval {
		r.Logger.Warn("cycle_overrun",
			zap.Duration("took", took),
			zap.Duration("interval", r.Interval),
		)
	}
}
