package alerting

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statusledger/internal/domain"
	"github.com/hamed0406/statusledger/internal/notify"
)

// Dispatcher formats intents and sends them. Send failures are logged and
// swallowed; a broken transport must not stop a check cycle.
type Dispatcher struct {
	Logger   *zap.Logger
	Notifier notify.Notifier
	Location *time.Location
	Timeout  time.Duration
}

func NewDispatcher(logger *zap.Logger, n notify.Notifier, loc *time.Location) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{Logger: logger, Notifier: n, Location: loc, Timeout: 10 * time.Second}
}

func (d *Dispatcher) Dispatch(ctx context.Context, in domain.Intent) {
	msg := notify.Format(in, d.Location)
	if d.Notifier == nil {
		d.Logger.Info("notify_skipped_no_transport",
			zap.String("target_id", string(in.Target.ID)),
			zap.String("title", msg.Title),
		)
		return
	}

	sctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()
	if err := notify.Deliver(sctx, d.Notifier, msg); err != nil {
		d.Logger.Warn("notify_error",
			zap.String("target_id", string(in.Target.ID)),
			zap.Bool("up", in.IsUp),
			zap.Error(err),
		)
		return
	}
	d.Logger.Info("notify_sent",
		zap.String("target_id", string(in.Target.ID)),
		zap.Bool("up", in.IsUp),
		zap.Int64("incident_start", in.IncidentStart),
	)
}
