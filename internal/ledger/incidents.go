// Package ledger turns probe outcomes into incident and latency history and
// decides when that history needs to be written back to the store.
package ledger

import "github.com/hamed0406/statusledger/internal/domain"

// IncidentRetention is how long closed incidents are kept, in seconds.
const IncidentRetention int64 = 90 * 24 * 60 * 60

// Transition is the result of applying one outcome to a target's incidents.
type Transition struct {
	Incidents []domain.Incident
	// Changed is true when an incident was opened, closed or got a new error.
	Changed bool
	// ActiveStart is the onset of the incident the outcome relates to: the
	// open one while down, or the one just closed on recovery. Zero otherwise.
	ActiveStart int64
	// ActiveError is the latest reason of the open incident, "" when up.
	ActiveError string
}

// Apply records outcome at now (epoch seconds) against prior and returns the
// new list. prior is not modified.
func Apply(prior []domain.Incident, outcome domain.Outcome, now int64) Transition {
	list := make([]domain.Incident, 0, len(prior)+2)
	for _, inc := range prior {
		list = append(list, inc.Clone())
	}
	if len(list) == 0 {
		list = append(list, domain.NewSentinel(now))
	}

	var tr Transition
	last := &list[len(list)-1]

	if outcome.Up {
		if last.IsOpen() {
			end := now
			last.End = &end
			tr.Changed = true
			tr.ActiveStart = last.FirstStart()
		}
	} else {
		switch {
		case !last.IsOpen():
			list = append(list, domain.NewOpenIncident(now, outcome.Err))
			tr.Changed = true
		case last.LastError() != outcome.Err:
			last.Start = append(last.Start, now)
			last.Errors = append(last.Errors, outcome.Err)
			tr.Changed = true
		}
		cur := list[len(list)-1]
		tr.ActiveStart = cur.FirstStart()
		tr.ActiveError = cur.LastError()
	}

	tr.Incidents = evict(list, now)
	return tr
}

// evict drops closed incidents that ended before the retention window and
// keeps a sentinel at the head whenever no real incident reaches back to
// the window start.
func evict(list []domain.Incident, now int64) []domain.Incident {
	horizon := now - IncidentRetention

	drop := 0
	for drop < len(list) && !list[drop].IsOpen() && *list[drop].End < horizon {
		drop++
	}
	list = list[drop:]

	if len(list) == 0 || (list[0].FirstStart() > horizon && !list[0].IsSentinel()) {
		list = append([]domain.Incident{domain.NewSentinel(horizon)}, list...)
	}
	return list
}
