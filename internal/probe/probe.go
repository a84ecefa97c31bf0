package probe

import (
	"context"
	"time"

	"github.com/hamed0406/statusledger/internal/domain"
)

// Checker performs a single check of a target. Failures of any kind are
// reported as a down Outcome with a reason; Check never returns an error.
type Checker interface {
	Check(ctx context.Context, t domain.Target) domain.Outcome
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, t domain.Target) domain.Outcome

func (f CheckerFunc) Check(ctx context.Context, t domain.Target) domain.Outcome { return f(ctx, t) }

func elapsedMS(d time.Duration) float64 {
	return d.Seconds() * 1000
}
