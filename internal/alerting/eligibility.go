// Package alerting decides when a status notification is due and hands it to
// the configured transports.
package alerting

import (
	"github.com/hamed0406/statusledger/internal/domain"
	"github.com/hamed0406/statusledger/internal/ledger"
)

// driftTolerance absorbs scheduler jitter around grace-period boundaries, in seconds.
const driftTolerance int64 = 30

// ShouldNotifyUp reports whether a recovery should be announced. With a
// grace period, recovery is only announced if the outage lasted long enough
// for its DOWN notification to have gone out.
func ShouldNotifyUp(incidentStart, now int64, graceMinutes *int) bool {
	if graceMinutes == nil {
		return true
	}
	return now-incidentStart >= int64(*graceMinutes+1)*60-driftTolerance
}

// ShouldNotifyDown reports whether a DOWN notification is due. It fires on a
// ledger change once the grace period is satisfied, and also on the one
// cycle whose elapsed time lands within the drift tolerance of the grace
// threshold, even without a change.
func ShouldNotifyDown(changed bool, incidentStart, now int64, graceMinutes *int) bool {
	if changed && ShouldNotifyUp(incidentStart, now, graceMinutes) {
		return true
	}
	if graceMinutes == nil {
		return false
	}
	elapsed := now - incidentStart
	threshold := int64(*graceMinutes) * 60
	return elapsed >= threshold-driftTolerance && elapsed < threshold+driftTolerance
}

// Engine applies the timing rules and the per-target suppression list.
type Engine struct {
	GraceMinutes *int
	skip         map[domain.TargetID]struct{}
}

func NewEngine(graceMinutes *int, skipIDs []string) *Engine {
	skip := make(map[domain.TargetID]struct{}, len(skipIDs))
	for _, id := range skipIDs {
		skip[domain.TargetID(id)] = struct{}{}
	}
	return &Engine{GraceMinutes: graceMinutes, skip: skip}
}

// Suppressed reports whether notifications for id are disabled.
func (e *Engine) Suppressed(id domain.TargetID) bool {
	_, ok := e.skip[id]
	return ok
}

// Evaluate returns the intent to notify for this cycle, or nil.
func (e *Engine) Evaluate(t domain.Target, tr ledger.Transition, out domain.Outcome, now int64) *domain.Intent {
	if e.Suppressed(t.ID) {
		return nil
	}
	if out.Up {
		if !tr.Changed || !ShouldNotifyUp(tr.ActiveStart, now, e.GraceMinutes) {
			return nil
		}
		return &domain.Intent{Target: t, IsUp: true, IncidentStart: tr.ActiveStart, Now: now, Reason: "OK"}
	}
	if !ShouldNotifyDown(tr.Changed, tr.ActiveStart, now, e.GraceMinutes) {
		return nil
	}
	return &domain.Intent{Target: t, IncidentStart: tr.ActiveStart, Now: now, Reason: out.Err}
}
