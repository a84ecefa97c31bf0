package delegate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statusledger/internal/domain"
	"github.com/hamed0406/statusledger/internal/probe"
)

// replyOverhead is added to the target timeout when waiting for a delegate,
// so a remote probe that times out can still report its own reason.
const replyOverhead = 2 * time.Second

// Adapter runs a target's check locally or through its delegate.
type Adapter struct {
	Local    probe.Checker
	Location string
	HTTP     CheckDelegate
	Actor    CheckDelegate
	Logger   *zap.Logger
}

func NewAdapter(local probe.Checker, location string, log *zap.Logger) *Adapter {
	return &Adapter{
		Local:    local,
		Location: location,
		HTTP:     NewHTTPDelegate(),
		Logger:   log,
	}
}

// Check returns where the check ran and its outcome. Delegate failures are
// absorbed: they fall back to a local check when the target allows it and
// otherwise produce a down outcome with RemoteFailureReason.
func (a *Adapter) Check(ctx context.Context, t domain.Target) (string, domain.Outcome) {
	if t.DelegateAddress == "" {
		return a.Location, a.Local.Check(ctx, t)
	}

	loc, out, err := a.delegate(ctx, t)
	if err == nil {
		return loc, out
	}

	a.Logger.Warn("delegate_error",
		zap.String("target_id", string(t.ID)),
		zap.String("address", t.DelegateAddress),
		zap.Bool("fallback", t.DelegateFallback),
		zap.Error(err),
	)
	if t.DelegateFallback {
		return a.Location, a.Local.Check(ctx, t)
	}
	return a.Location, domain.Outcome{Up: false, LatencyMS: 0, Err: RemoteFailureReason}
}

func (a *Adapter) delegate(ctx context.Context, t domain.Target) (loc string, out domain.Outcome, err error) {
	d, err := a.pick(t.DelegateAddress)
	if err != nil {
		return "", domain.Outcome{}, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delegate panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, t.EffectiveTimeout()+replyOverhead)
	defer cancel()
	return d.Check(ctx, t)
}

func (a *Adapter) pick(addr string) (CheckDelegate, error) {
	switch {
	case strings.HasPrefix(addr, ActorScheme):
		if a.Actor == nil {
			return nil, fmt.Errorf("%w: actor transport not configured", ErrUnsupportedAddress)
		}
		return a.Actor, nil
	case strings.HasPrefix(addr, "http://"), strings.HasPrefix(addr, "https://"):
		if a.HTTP == nil {
			return nil, fmt.Errorf("%w: http transport not configured", ErrUnsupportedAddress)
		}
		return a.HTTP, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAddress, addr)
	}
}
