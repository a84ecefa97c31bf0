package domain

import "time"

type TargetID string

type Kind string

const (
	KindHTTP Kind = "http"
	KindTCP  Kind = "tcp"
)

// DefaultTimeout applies to probes and delegate calls when a target sets none.
const DefaultTimeout = 10 * time.Second

// Target is one monitored endpoint. ID must stay stable across restarts:
// incident and latency history are keyed by it.
type Target struct {
	ID       TargetID          `json:"id" mapstructure:"id"`
	Name     string            `json:"name" mapstructure:"name"`
	Kind     Kind              `json:"kind" mapstructure:"kind"`
	Method   string            `json:"method,omitempty" mapstructure:"method"`
	Endpoint string            `json:"endpoint" mapstructure:"endpoint"`
	Headers  map[string]string `json:"headers,omitempty" mapstructure:"headers"`
	Body     string            `json:"body,omitempty" mapstructure:"body"`

	ExpectedCodes            []int         `json:"expected_codes,omitempty" mapstructure:"expected_codes"`
	Timeout                  time.Duration `json:"timeout,omitempty" mapstructure:"timeout"`
	ResponseKeyword          string        `json:"response_keyword,omitempty" mapstructure:"response_keyword"`
	ResponseForbiddenKeyword string        `json:"response_forbidden_keyword,omitempty" mapstructure:"response_forbidden_keyword"`

	DelegateAddress  string `json:"delegate_address,omitempty" mapstructure:"delegate_address"`
	DelegateFallback bool   `json:"delegate_fallback,omitempty" mapstructure:"delegate_fallback"`

	// Presentation hints for status pages; the engine ignores them.
	Tooltip          string `json:"tooltip,omitempty" mapstructure:"tooltip"`
	StatusPageLink   string `json:"status_page_link,omitempty" mapstructure:"status_page_link"`
	HideLatencyChart bool   `json:"hide_latency_chart,omitempty" mapstructure:"hide_latency_chart"`
}

// EffectiveTimeout returns the configured timeout or DefaultTimeout.
func (t Target) EffectiveTimeout() time.Duration {
	if t.Timeout <= 0 {
		return DefaultTimeout
	}
	return t.Timeout
}

// Outcome is the result of a single probe.
type Outcome struct {
	Up        bool    `json:"up"`
	LatencyMS float64 `json:"ping"`
	Err       string  `json:"err"`
}

// Intent carries the facts of a notification that should be sent.
// Formatting and delivery happen elsewhere.
type Intent struct {
	Target        Target
	IsUp          bool
	IncidentStart int64
	Now           int64
	Reason        string
}
