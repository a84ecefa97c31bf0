package httpapi

import (
	"github.com/hamed0406/statusledger/internal/config"
	"github.com/hamed0406/statusledger/internal/domain"
	"github.com/hamed0406/statusledger/internal/ledger"
)

const (
	StateUp      = "up"
	StateDown    = "down"
	StateUnknown = "unknown"
)

type targetInfo struct {
	ID             domain.TargetID `json:"id"`
	Name           string          `json:"name"`
	Kind           domain.Kind     `json:"kind"`
	Tooltip        string          `json:"tooltip,omitempty"`
	StatusPageLink string          `json:"status_page_link,omitempty"`
}

func publicTarget(t domain.Target) targetInfo {
	return targetInfo{ID: t.ID, Name: t.Name, Kind: t.Kind, Tooltip: t.Tooltip, StatusPageLink: t.StatusPageLink}
}

type targetStatus struct {
	targetInfo
	State string `json:"state"`
	// UptimePercent covers the retained history, at most the incident retention window.
	UptimePercent *float64               `json:"uptime_percent,omitempty"`
	Incidents     []domain.Incident      `json:"incidents"`
	Latency       []domain.LatencySample `json:"latency,omitempty"`
}

type statusResponse struct {
	Title       string             `json:"title"`
	Groups      []config.PageGroup `json:"groups,omitempty"`
	LastUpdate  int64              `json:"last_update"`
	OverallUp   int                `json:"overall_up"`
	OverallDown int                `json:"overall_down"`
	Targets     []targetStatus     `json:"targets"`
}

// buildStatus renders snap for the page. Sentinel incidents are internal
// bookkeeping and never shown. snap may be nil before the first commit.
func buildStatus(page config.PageConfig, targets []domain.Target, snap *domain.Snapshot, now int64) statusResponse {
	resp := statusResponse{Title: page.Title, Groups: page.Groups, Targets: make([]targetStatus, 0, len(targets))}
	if snap != nil {
		resp.LastUpdate = snap.LastUpdate
		resp.OverallUp = snap.OverallUp
		resp.OverallDown = snap.OverallDown
	}

	for _, t := range targets {
		ts := targetStatus{targetInfo: publicTarget(t), State: StateUnknown, Incidents: []domain.Incident{}}
		if snap != nil {
			if list, ok := snap.Incidents[t.ID]; ok && len(list) > 0 {
				ts.State = StateUp
				if snap.IsDown(t.ID) {
					ts.State = StateDown
				}
				for _, inc := range list {
					if !inc.IsSentinel() {
						ts.Incidents = append(ts.Incidents, inc)
					}
				}
				if p, ok := uptimePercent(list, now); ok {
					ts.UptimePercent = &p
				}
			}
			if h := snap.Latency[t.ID]; h != nil && !t.HideLatencyChart {
				ts.Latency = h.Recent
			}
		}
		resp.Targets = append(resp.Targets, ts)
	}
	return resp
}

// uptimePercent is the share of time since the first retained incident
// start (usually the sentinel anchor) not covered by a real incident.
func uptimePercent(list []domain.Incident, now int64) (float64, bool) {
	from := list[0].FirstStart()
	if h := now - ledger.IncidentRetention; from < h {
		from = h
	}
	total := now - from
	if total <= 0 {
		return 0, false
	}

	var down int64
	for _, inc := range list {
		if inc.IsSentinel() {
			continue
		}
		start, end := inc.FirstStart(), now
		if inc.End != nil {
			end = *inc.End
		}
		if start < from {
			start = from
		}
		if end > start {
			down += end - start
		}
	}
	return 100 * float64(total-down) / float64(total), true
}
