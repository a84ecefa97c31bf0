package probe

import (
	"context"
	"time"

	"github.com/hamed0406/statusledger/internal/domain"
)

// RetryChecker re-runs a failed check up to Attempts times. Only the last
// outcome is reported, so a flapping probe does not open an incident unless
// every attempt fails.
type RetryChecker struct {
	Inner    Checker
	Attempts int
	Backoff  time.Duration
}

func (r *RetryChecker) Check(ctx context.Context, t domain.Target) domain.Outcome {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var last domain.Outcome
	for i := 0; i < attempts; i++ {
		last = r.Inner.Check(ctx, t)
		if last.Up {
			return last
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return last
			case <-time.After(r.Backoff):
			}
		}
	}
	return last
}
