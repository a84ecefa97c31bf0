package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingCycle struct {
	n     int32
	sleep time.Duration
	err   error
}

func (c *countingCycle) RunOnce(ctx context.Context) error {
	atomic.AddInt32(&c.n, 1)
	if c.sleep > 0 {
		time.Sleep(c.sleep)
	}
	return c.err
}

func TestRunner_ImmediatePassThenTicks(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cc := &countingCycle{err: errors.New("store down")}
	r := NewRunner(zap.New(core), cc, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	r.Run(ctx)

	if n := atomic.LoadInt32(&cc.n); n < 2 {
		t.Fatalf("want at least 2 cycles, got %d", n)
	}
	if logs.FilterMessage("cycle_error").Len() == 0 {
		t.Fatal("cycle errors should be logged")
	}
}

func TestRunner_LogsOverrun(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cc := &countingCycle{sleep: 30 * time.Millisecond}
	r := NewRunner(zap.New(core), cc, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	r.Run(ctx)

	if logs.FilterMessage("cycle_overrun").Len() == 0 {
		t.Fatal("expected cycle_overrun log")
	}
}

func TestRunner_DisabledWithZeroInterval(t *testing.T) {
	cc := &countingCycle{}
	NewRunner(zap.NewNop(), cc, 0).Run(context.Background())
	if atomic.LoadInt32(&cc.n) != 0 {
		t.Fatal("disabled runner must not run cycles")
	}
}
