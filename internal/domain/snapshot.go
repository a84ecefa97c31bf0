package domain

// LatencySample is one latency measurement taken from Location.
type LatencySample struct {
	Location  string  `json:"loc"`
	LatencyMS float64 `json:"ping"`
	Time      int64   `json:"time"`
}

// LatencyHistory holds the recent latency window of one target.
type LatencyHistory struct {
	Recent []LatencySample `json:"recent"`
}

// Snapshot is the aggregate state persisted between cycles.
// OverallUp/OverallDown count targets as of the last cycle, not history.
type Snapshot struct {
	LastUpdate  int64                        `json:"lastUpdate"`
	OverallUp   int                          `json:"overallUp"`
	OverallDown int                          `json:"overallDown"`
	Incidents   map[TargetID][]Incident      `json:"incident"`
	Latency     map[TargetID]*LatencyHistory `json:"latency"`
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		Incidents: make(map[TargetID][]Incident),
		Latency:   make(map[TargetID]*LatencyHistory),
	}
}

// Normalize fills nil maps left by decoding an older or partial document.
func (s *Snapshot) Normalize() {
	if s.Incidents == nil {
		s.Incidents = make(map[TargetID][]Incident)
	}
	if s.Latency == nil {
		s.Latency = make(map[TargetID]*LatencyHistory)
	}
}

// IsDown reports whether the target's latest incident is still open.
func (s *Snapshot) IsDown(id TargetID) bool {
	list := s.Incidents[id]
	return len(list) > 0 && list[len(list)-1].IsOpen()
}
