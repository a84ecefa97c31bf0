// Package scheduler runs check cycles: probe every target, fold the results
// into the persisted snapshot, notify, and commit.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statusledger/internal/alerting"
	"github.com/hamed0406/statusledger/internal/domain"
	"github.com/hamed0406/statusledger/internal/ledger"
	"github.com/hamed0406/statusledger/internal/repo"
)

// Prober checks a target and reports where the check ran.
// delegate.Adapter is the production implementation.
type Prober interface {
	Check(ctx context.Context, t domain.Target) (location string, out domain.Outcome)
}

// Dispatcher delivers notification intents.
type Dispatcher interface {
	Dispatch(ctx context.Context, in domain.Intent)
}

type result struct {
	location string
	out      domain.Outcome
}

// Cycle is one pass over all targets. It is not safe for concurrent use:
// overlapping runs would race on the stored snapshot.
type Cycle struct {
	Logger          *zap.Logger
	Targets         []domain.Target
	Store           repo.SnapshotStore
	Key             string
	Prober          Prober
	Engine          *alerting.Engine
	Dispatcher      Dispatcher
	Hooks           Hooks
	Concurrency     int
	CooldownMinutes int
	Now             func() time.Time
}

func NewCycle(
	logger *zap.Logger,
	targets []domain.Target,
	store repo.SnapshotStore,
	prober Prober,
	engine *alerting.Engine,
	dispatcher Dispatcher,
	concurrency int,
	cooldownMinutes int,
) *Cycle {
	if concurrency < 1 {
		concurrency = 1
	}
	if cooldownMinutes < 0 {
		cooldownMinutes = 0
	}
	if engine == nil {
		engine = alerting.NewEngine(nil, nil)
	}
	return &Cycle{
		Logger:          logger,
		Targets:         targets,
		Store:           store,
		Key:             repo.DefaultKey,
		Prober:          prober,
		Engine:          engine,
		Dispatcher:      dispatcher,
		Hooks:           NopHooks{},
		Concurrency:     concurrency,
		CooldownMinutes: cooldownMinutes,
		Now:             time.Now,
	}
}

// RunOnce performs one cycle. Only store failures are returned; probe,
// notification and hook failures are logged and absorbed.
func (c *Cycle) RunOnce(ctx context.Context) error {
	snap, err := c.Store.Get(ctx, c.Key)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		snap = domain.NewSnapshot()
	}
	snap.Normalize()
	snap.OverallUp, snap.OverallDown = 0, 0

	results := c.probeAll(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	now := c.Now().Round(time.Second).Unix()
	anyChanged := false
	for i, t := range c.Targets {
		if c.apply(ctx, snap, t, results[i], now) {
			anyChanged = true
		}
	}

	if !ledger.ShouldPersist(anyChanged, now, snap.LastUpdate, c.CooldownMinutes) {
		c.Logger.Debug("cycle_done",
			zap.Int("up", snap.OverallUp),
			zap.Int("down", snap.OverallDown),
			zap.Bool("persisted", false),
		)
		return nil
	}

	snap.LastUpdate = now
	if err := c.Store.Put(ctx, c.Key, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	c.Logger.Info("cycle_done",
		zap.Int("up", snap.OverallUp),
		zap.Int("down", snap.OverallDown),
		zap.Bool("changed", anyChanged),
		zap.Bool("persisted", true),
	)
	return nil
}

// probeAll checks every target with at most Concurrency checks in flight.
// Results are indexed like Targets.
func (c *Cycle) probeAll(ctx context.Context) []result {
	results := make([]result, len(c.Targets))
	sem := make(chan struct{}, c.Concurrency)
	var wg sync.WaitGroup

	for i, tgt := range c.Targets {
		i, t := i, tgt
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()
			results[i] = c.probe(ctx, t)
		}()
	}

	wg.Wait()
	return results
}

func (c *Cycle) probe(ctx context.Context, t domain.Target) (r result) {
	defer func() {
		if p := recover(); p != nil {
			c.Logger.Error("probe_panic", zap.String("target_id", string(t.ID)), zap.Any("panic", p))
			r = result{out: domain.Outcome{Up: false, Err: fmt.Sprintf("probe panic: %v", p)}}
		}
	}()

	loc, out := c.Prober.Check(ctx, t)
	c.Logger.Debug("target_checked",
		zap.String("target_id", string(t.ID)),
		zap.String("location", loc),
		zap.Bool("up", out.Up),
		zap.Float64("latency_ms", out.LatencyMS),
		zap.String("reason", out.Err),
	)
	return result{location: loc, out: out}
}

// apply folds one result into snap and reports whether the target's
// incident state changed.
func (c *Cycle) apply(ctx context.Context, snap *domain.Snapshot, t domain.Target, r result, now int64) bool {
	out := r.out
	if out.Up {
		snap.OverallUp++
	} else {
		snap.OverallDown++
	}

	tr := ledger.Apply(snap.Incidents[t.ID], out, now)
	snap.Incidents[t.ID] = tr.Incidents

	if in := c.Engine.Evaluate(t, tr, out, now); in != nil && c.Dispatcher != nil {
		c.dispatch(ctx, t, *in)
	}

	if out.Up {
		if tr.Changed {
			c.callHook("status_change", t, func() error {
				return c.Hooks.OnStatusChange(ctx, t, true, tr.ActiveStart, now, "OK")
			})
		}
	} else {
		if tr.Changed {
			c.callHook("status_change", t, func() error {
				return c.Hooks.OnStatusChange(ctx, t, false, tr.ActiveStart, now, out.Err)
			})
		}
		c.callHook("incident", t, func() error {
			return c.Hooks.OnIncident(ctx, t, tr.ActiveStart, now, out.Err)
		})
	}

	snap.Latency[t.ID] = ledger.AppendLatency(snap.Latency[t.ID], domain.LatencySample{
		Location:  r.location,
		LatencyMS: out.LatencyMS,
		Time:      now,
	})
	return tr.Changed
}

// dispatch hands one notification to the dispatcher. A panicking
// notifier costs that notification only, never the cycle's commit.
func (c *Cycle) dispatch(ctx context.Context, t domain.Target, in domain.Intent) {
	defer func() {
		if p := recover(); p != nil {
			c.Logger.Error("dispatch_panic", zap.String("target_id", string(t.ID)), zap.Any("panic", p))
		}
	}()
	c.Dispatcher.Dispatch(ctx, in)
}

func (c *Cycle) callHook(name string, t domain.Target, fn func() error) {
	if c.Hooks == nil {
		return
	}
	if err := safeCall(fn); err != nil {
		c.Logger.Warn("hook_error",
			zap.String("hook", name),
			zap.String("target_id", string(t.ID)),
			zap.Error(err),
		)
	}
}
