package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/statusledger/internal/alerting"
	"github.com/hamed0406/statusledger/internal/domain"
	"github.com/hamed0406/statusledger/internal/repo"
	"github.com/hamed0406/statusledger/internal/repo/memory"
)

// --- fakes ---

type scriptProber struct {
	mu     sync.Mutex
	script map[domain.TargetID][]domain.Outcome
	delay  time.Duration

	inFlight int32
	maxSeen  int32
}

func (p *scriptProber) Check(ctx context.Context, t domain.Target) (string, domain.Outcome) {
	n := atomic.AddInt32(&p.inFlight, 1)
	defer atomic.AddInt32(&p.inFlight, -1)
	for {
		m := atomic.LoadInt32(&p.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&p.maxSeen, m, n) {
			break
		}
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.script[t.ID]
	if len(q) == 0 {
		return "here", domain.Outcome{Up: true, LatencyMS: 1}
	}
	p.script[t.ID] = q[1:]
	return "here", q[0]
}

type recDispatcher struct {
	intents []domain.Intent
}

func (d *recDispatcher) Dispatch(ctx context.Context, in domain.Intent) {
	d.intents = append(d.intents, in)
}

type failingStore struct {
	getErr, putErr error
}

func (s failingStore) Get(ctx context.Context, key string) (*domain.Snapshot, error) {
	return nil, s.getErr
}
func (s failingStore) Put(ctx context.Context, key string, snap *domain.Snapshot) error {
	return s.putErr
}

type hookCall struct {
	kind   string
	id     domain.TargetID
	up     bool
	start  int64
	now    int64
	reason string
}

type recHooks struct {
	calls []hookCall
}

func (h *recHooks) OnStatusChange(_ context.Context, t domain.Target, isUp bool, start, now int64, reason string) error {
	h.calls = append(h.calls, hookCall{"change", t.ID, isUp, start, now, reason})
	return nil
}

func (h *recHooks) OnIncident(_ context.Context, t domain.Target, start, now int64, reason string) error {
	h.calls = append(h.calls, hookCall{"incident", t.ID, false, start, now, reason})
	return nil
}

type badHooks struct{}

func (badHooks) OnStatusChange(context.Context, domain.Target, bool, int64, int64, string) error {
	panic("status hook exploded")
}
func (badHooks) OnIncident(context.Context, domain.Target, int64, int64, string) error {
	return errors.New("incident hook failed")
}

type clock struct{ t int64 }

func (c *clock) now() time.Time { return time.Unix(c.t, 0) }

func up() domain.Outcome             { return domain.Outcome{Up: true, LatencyMS: 20} }
func down(err string) domain.Outcome { return domain.Outcome{Up: false, Err: err} }

func newTestCycle(log *zap.Logger, targets []domain.Target, store repo.SnapshotStore, p Prober, d Dispatcher, clk *clock) *Cycle {
	c := NewCycle(log, targets, store, p, alerting.NewEngine(nil, nil), d, 4, 0)
	c.Now = clk.now
	return c
}

// --- tests ---

func TestCycle_ExampleScenario(t *testing.T) {
	store := memory.New()
	p := &scriptProber{script: map[domain.TargetID][]domain.Outcome{
		"svc": {up(), down("timeout"), down("timeout"), up()},
	}}
	d := &recDispatcher{}
	hooks := &recHooks{}
	clk := &clock{}
	c := newTestCycle(zap.NewNop(), []domain.Target{{ID: "svc", Name: "Service"}}, store, p, d, clk)
	c.Hooks = hooks

	for _, ts := range []int64{0, 60, 120, 180} {
		clk.t = ts
		if err := c.RunOnce(context.Background()); err != nil {
			t.Fatalf("cycle at %d: %v", ts, err)
		}
	}

	snap, err := store.Get(context.Background(), repo.DefaultKey)
	if err != nil || snap == nil {
		t.Fatalf("get: %v %v", snap, err)
	}
	list := snap.Incidents["svc"]
	if len(list) != 2 || !list[0].IsSentinel() {
		t.Fatalf("want sentinel plus one incident, got %+v", list)
	}
	inc := list[1]
	if inc.IsSentinel() || len(inc.Start) != 1 || inc.Start[0] != 60 || inc.End == nil || *inc.End != 180 ||
		len(inc.Errors) != 1 || inc.Errors[0] != "timeout" {
		t.Fatalf("unexpected incident %+v", inc)
	}

	if len(d.intents) != 2 {
		t.Fatalf("want 2 notifications, got %+v", d.intents)
	}
	if in := d.intents[0]; in.IsUp || in.Now != 60 || in.IncidentStart != 60 || in.Reason != "timeout" {
		t.Fatalf("bad DOWN intent %+v", in)
	}
	if in := d.intents[1]; !in.IsUp || in.Now != 180 || in.IncidentStart != 60 || in.Reason != "OK" {
		t.Fatalf("bad UP intent %+v", in)
	}

	want := []hookCall{
		{"change", "svc", false, 60, 60, "timeout"},
		{"incident", "svc", false, 60, 60, "timeout"},
		{"incident", "svc", false, 60, 120, "timeout"},
		{"change", "svc", true, 60, 180, "OK"},
	}
	if len(hooks.calls) != len(want) {
		t.Fatalf("hook calls = %+v", hooks.calls)
	}
	for i := range want {
		if hooks.calls[i] != want[i] {
			t.Fatalf("hook %d = %+v, want %+v", i, hooks.calls[i], want[i])
		}
	}

	lat := snap.Latency["svc"]
	if lat == nil || len(lat.Recent) != 4 || lat.Recent[3].Time != 180 || lat.Recent[0].Location != "here" {
		t.Fatalf("unexpected latency %+v", lat)
	}
	if snap.OverallUp != 1 || snap.OverallDown != 0 || snap.LastUpdate != 180 {
		t.Fatalf("counters: up=%d down=%d last=%d", snap.OverallUp, snap.OverallDown, snap.LastUpdate)
	}
}

func TestCycle_CountersAreCycleLocal(t *testing.T) {
	store := memory.New()
	p := &scriptProber{script: map[domain.TargetID][]domain.Outcome{
		"a": {up(), up()},
		"b": {down("refused"), up()},
	}}
	clk := &clock{t: 1000}
	c := newTestCycle(zap.NewNop(), []domain.Target{{ID: "a"}, {ID: "b"}}, store, p, &recDispatcher{}, clk)

	if err := c.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap, _ := store.Get(context.Background(), repo.DefaultKey)
	if snap.OverallUp != 1 || snap.OverallDown != 1 || !snap.IsDown("b") {
		t.Fatalf("first cycle: %+v", snap)
	}

	clk.t += 60
	if err := c.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap, _ = store.Get(context.Background(), repo.DefaultKey)
	if snap.OverallUp != 2 || snap.OverallDown != 0 || snap.IsDown("b") {
		t.Fatalf("second cycle: %+v", snap)
	}
}

func TestCycle_PersistCooldown(t *testing.T) {
	store := memory.New()
	p := &scriptProber{script: map[domain.TargetID][]domain.Outcome{
		"a": {up(), up(), up(), down("boom")},
	}}
	clk := &clock{}
	c := newTestCycle(zap.NewNop(), []domain.Target{{ID: "a"}}, store, p, &recDispatcher{}, clk)
	c.CooldownMinutes = 5

	base := int64(1_000_000)
	steps := []struct {
		at   int64
		puts int
	}{
		{base, 1},       // nothing stored yet
		{base + 60, 1},  // unchanged, inside cooldown
		{base + 290, 2}, // cooldown minus drift reached
		{base + 300, 3}, // incident opened
	}
	for _, s := range steps {
		clk.t = s.at
		if err := c.RunOnce(context.Background()); err != nil {
			t.Fatal(err)
		}
		if got := store.Puts(); got != s.puts {
			t.Fatalf("at %d: puts = %d, want %d", s.at-base, got, s.puts)
		}
	}
}

func TestCycle_StoreFailuresPropagate(t *testing.T) {
	getErr := errors.New("store unreachable")
	c := newTestCycle(zap.NewNop(), []domain.Target{{ID: "a"}}, failingStore{getErr: getErr}, &scriptProber{}, &recDispatcher{}, &clock{t: 1})
	if err := c.RunOnce(context.Background()); !errors.Is(err, getErr) {
		t.Fatalf("want get error, got %v", err)
	}

	putErr := errors.New("write refused")
	d := &recDispatcher{}
	p := &scriptProber{script: map[domain.TargetID][]domain.Outcome{"a": {down("x")}}}
	c = newTestCycle(zap.NewNop(), []domain.Target{{ID: "a"}}, failingStore{putErr: putErr}, p, d, &clock{t: 1})
	if err := c.RunOnce(context.Background()); !errors.Is(err, putErr) {
		t.Fatalf("want put error, got %v", err)
	}
	if len(d.intents) != 1 {
		t.Fatalf("notification should still be dispatched before the write, got %d", len(d.intents))
	}
}

func TestCycle_HookFailuresAreIsolated(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := memory.New()
	p := &scriptProber{script: map[domain.TargetID][]domain.Outcome{
		"a": {down("x")},
		"b": {down("y")},
	}}
	d := &recDispatcher{}
	c := newTestCycle(zap.New(core), []domain.Target{{ID: "a"}, {ID: "b"}}, store, p, d, &clock{t: 500})
	c.Hooks = badHooks{}

	if err := c.RunOnce(context.Background()); err != nil {
		t.Fatalf("hook failures must not fail the cycle: %v", err)
	}
	snap, _ := store.Get(context.Background(), repo.DefaultKey)
	if snap == nil || !snap.IsDown("a") || !snap.IsDown("b") {
		t.Fatalf("both targets should be recorded down: %+v", snap)
	}
	if len(d.intents) != 2 {
		t.Fatalf("want 2 intents, got %d", len(d.intents))
	}
	if n := logs.FilterMessage("hook_error").Len(); n != 4 {
		t.Fatalf("want 4 hook_error logs, got %d", n)
	}
}

type panicDispatcher struct {
	recDispatcher
	bad domain.TargetID
}

func (d *panicDispatcher) Dispatch(ctx context.Context, in domain.Intent) {
	if in.Target.ID == d.bad {
		panic("notifier exploded")
	}
	d.recDispatcher.Dispatch(ctx, in)
}

func TestCycle_DispatchPanicStillCommits(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := memory.New()
	p := &scriptProber{script: map[domain.TargetID][]domain.Outcome{
		"a": {down("x")},
		"b": {down("y")},
	}}
	d := &panicDispatcher{bad: "a"}
	c := newTestCycle(zap.New(core), []domain.Target{{ID: "a"}, {ID: "b"}}, store, p, d, &clock{t: 500})

	if err := c.RunOnce(context.Background()); err != nil {
		t.Fatalf("a panicking notifier must not fail the cycle: %v", err)
	}
	snap, _ := store.Get(context.Background(), repo.DefaultKey)
	if snap == nil || !snap.IsDown("a") || !snap.IsDown("b") {
		t.Fatalf("both targets should be committed down: %+v", snap)
	}
	if len(d.intents) != 1 || d.intents[0].Target.ID != "b" {
		t.Fatalf("want only b's intent delivered, got %+v", d.intents)
	}
	if n := logs.FilterMessage("dispatch_panic").Len(); n != 1 {
		t.Fatalf("want 1 dispatch_panic log, got %d", n)
	}
}

func TestCycle_ProbePanicBecomesDownOutcome(t *testing.T) {
	store := memory.New()
	p := proberFunc(func(ctx context.Context, t domain.Target) (string, domain.Outcome) {
		if t.ID == "bad" {
			panic("nil map")
		}
		return "here", up()
	})
	c := newTestCycle(zap.NewNop(), []domain.Target{{ID: "bad"}, {ID: "good"}}, store, p, &recDispatcher{}, &clock{t: 10})
	if err := c.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap, _ := store.Get(context.Background(), repo.DefaultKey)
	if !snap.IsDown("bad") || snap.IsDown("good") {
		t.Fatalf("unexpected state %+v", snap.Incidents)
	}
}

func TestCycle_BoundedConcurrencyKeepsTargetOrder(t *testing.T) {
	store := memory.New()
	var targets []domain.Target
	script := map[domain.TargetID][]domain.Outcome{}
	for i := 0; i < 8; i++ {
		id := domain.TargetID(fmt.Sprintf("t%d", i))
		targets = append(targets, domain.Target{ID: id})
		if i%2 == 1 {
			script[id] = []domain.Outcome{down(string(id))}
		}
	}
	p := &scriptProber{script: script, delay: 20 * time.Millisecond}
	d := &recDispatcher{}
	c := newTestCycle(zap.NewNop(), targets, store, p, d, &clock{t: 100})
	c.Concurrency = 3

	if err := c.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m := atomic.LoadInt32(&p.maxSeen); m > 3 || m < 2 {
		t.Fatalf("max in flight = %d, want 2..3", m)
	}
	if len(d.intents) != 4 {
		t.Fatalf("want 4 intents, got %d", len(d.intents))
	}
	for i, in := range d.intents {
		want := domain.TargetID(fmt.Sprintf("t%d", 2*i+1))
		if in.Target.ID != want || in.Reason != string(want) {
			t.Fatalf("intent %d = %+v, want target %s", i, in, want)
		}
	}
}

func TestCycle_CancelledContextSkipsCommit(t *testing.T) {
	store := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	p := proberFunc(func(context.Context, domain.Target) (string, domain.Outcome) {
		cancel()
		return "here", down("context canceled")
	})
	c := newTestCycle(zap.NewNop(), []domain.Target{{ID: "a"}}, store, p, &recDispatcher{}, &clock{t: 10})
	if err := c.RunOnce(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if store.Puts() != 0 {
		t.Fatalf("cancelled cycle must not write")
	}
}

type proberFunc func(ctx context.Context, t domain.Target) (string, domain.Outcome)

func (f proberFunc) Check(ctx context.Context, t domain.Target) (string, domain.Outcome) {
	return f(ctx, t)
}
