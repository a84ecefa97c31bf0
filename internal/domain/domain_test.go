package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestIncident_SentinelUsesStoredMarker(t *testing.T) {
	b, err := json.Marshal(NewSentinel(100))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"error":["dummy"]`) {
		t.Fatalf("sentinel not written with marker: %s", b)
	}

	var got Incident
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.IsSentinel() || got.IsOpen() || got.FirstStart() != 100 {
		t.Fatalf("unexpected sentinel after decode: %+v", got)
	}
	if got.LastError() != "" {
		t.Fatalf("sentinel must not expose an error, got %q", got.LastError())
	}
}

func TestIncident_OpenEncodesNullEnd(t *testing.T) {
	inc := NewOpenIncident(60, "timeout")
	b, err := json.Marshal(inc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"end":null`) {
		t.Fatalf("open incident should have null end: %s", b)
	}

	var got Incident
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.IsSentinel() || !got.IsOpen() || got.LastError() != "timeout" {
		t.Fatalf("unexpected incident after decode: %+v", got)
	}
}

func TestIncident_RejectsEmptyStart(t *testing.T) {
	var got Incident
	if err := json.Unmarshal([]byte(`{"start":[],"end":null,"error":[]}`), &got); err == nil {
		t.Fatal("expected error for incident without start")
	}
}

func TestIncident_CloneIsDeep(t *testing.T) {
	orig := NewOpenIncident(1, "a")
	cp := orig.Clone()
	cp.Start[0] = 99
	cp.Errors[0] = "b"
	end := int64(5)
	cp.End = &end
	if orig.Start[0] != 1 || orig.Errors[0] != "a" || orig.End != nil {
		t.Fatalf("clone shares state with original: %+v", orig)
	}
}

func TestSnapshot_DecodesStoredState(t *testing.T) {
	raw := `{"lastUpdate":180,"overallUp":1,"overallDown":0,
	  "incident":{"svc":[{"start":[0],"end":0,"error":["dummy"]},{"start":[60],"end":180,"error":["timeout"]}]},
	  "latency":{"svc":{"recent":[{"loc":"AMS","ping":12,"time":180}]}}}`
	var s Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	list := s.Incidents["svc"]
	if len(list) != 2 || !list[0].IsSentinel() || list[1].IsSentinel() {
		t.Fatalf("unexpected incidents: %+v", list)
	}
	if s.IsDown("svc") {
		t.Fatalf("svc should be up")
	}
	if s.Latency["svc"].Recent[0].Location != "AMS" {
		t.Fatalf("unexpected latency: %+v", s.Latency["svc"])
	}
}

func TestTarget_EffectiveTimeout(t *testing.T) {
	if got := (Target{}).EffectiveTimeout(); got != DefaultTimeout {
		t.Fatalf("want default timeout, got %v", got)
	}
	if got := (Target{Timeout: 3 * time.Second}).EffectiveTimeout(); got != 3*time.Second {
		t.Fatalf("want 3s, got %v", got)
	}
}
