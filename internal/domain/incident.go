package domain

import (
	"encoding/json"
	"errors"
)

type IncidentKind uint8

const (
	// IncidentReal is an observed down period.
	IncidentReal IncidentKind = iota
	// IncidentSentinel anchors the start of retained history. Never shown as an outage.
	IncidentSentinel
)

// sentinelMarker is how sentinels are recognised in stored snapshots.
const sentinelMarker = "dummy"

// Incident is one continuous down period of a target. Start and Errors are
// parallel: each entry records a distinct failure reason seen during the
// outage, latest last. End is nil while the incident is open.
type Incident struct {
	Kind   IncidentKind
	Start  []int64
	End    *int64
	Errors []string
}

// NewSentinel returns a closed sentinel incident anchored at ts.
func NewSentinel(ts int64) Incident {
	end := ts
	return Incident{Kind: IncidentSentinel, Start: []int64{ts}, End: &end}
}

// NewOpenIncident returns a real incident that started at ts with reason err.
func NewOpenIncident(ts int64, err string) Incident {
	return Incident{Kind: IncidentReal, Start: []int64{ts}, Errors: []string{err}}
}

func (i Incident) IsOpen() bool     { return i.End == nil }
func (i Incident) IsSentinel() bool { return i.Kind == IncidentSentinel }

// FirstStart is the onset of the incident.
func (i Incident) FirstStart() int64 {
	if len(i.Start) == 0 {
		return 0
	}
	return i.Start[0]
}

// LastError is the most recent failure reason, or "" for sentinels.
func (i Incident) LastError() string {
	if len(i.Errors) == 0 {
		return ""
	}
	return i.Errors[len(i.Errors)-1]
}

// Clone returns a deep copy.
func (i Incident) Clone() Incident {
	out := Incident{Kind: i.Kind}
	out.Start = append([]int64(nil), i.Start...)
	out.Errors = append([]string(nil), i.Errors...)
	if i.End != nil {
		end := *i.End
		out.End = &end
	}
	return out
}

type incidentJSON struct {
	Start []int64  `json:"start"`
	End   *int64   `json:"end"`
	Error []string `json:"error"`
}

// MarshalJSON keeps the stored shape readable by existing status pages:
// sentinels are written with the "dummy" error marker.
func (i Incident) MarshalJSON() ([]byte, error) {
	w := incidentJSON{Start: i.Start, End: i.End, Error: i.Errors}
	if i.IsSentinel() {
		w.Error = []string{sentinelMarker}
	}
	if w.Start == nil {
		w.Start = []int64{}
	}
	if w.Error == nil {
		w.Error = []string{}
	}
	return json.Marshal(w)
}

func (i *Incident) UnmarshalJSON(b []byte) error {
	var w incidentJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if len(w.Start) == 0 {
		return errors.New("incident: empty start")
	}
	*i = Incident{Kind: IncidentReal, Start: w.Start, End: w.End, Errors: w.Error}
	if len(w.Error) > 0 && w.Error[0] == sentinelMarker {
		i.Kind = IncidentSentinel
		i.Errors = nil
	}
	return nil
}
