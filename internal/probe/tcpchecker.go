package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hamed0406/statusledger/internal/domain"
)

// TCPChecker reports a target up when a TCP connection to its host:port
// endpoint can be established. Latency is the connect time.
type TCPChecker struct {
	Dialer *net.Dialer
}

func NewTCPChecker() *TCPChecker {
	return &TCPChecker{Dialer: &net.Dialer{}}
}

func (c *TCPChecker) Check(ctx context.Context, t domain.Target) domain.Outcome {
	timeout := t.EffectiveTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, _, err := net.SplitHostPort(t.Endpoint); err != nil {
		return domain.Outcome{Err: "invalid TCP target: " + err.Error()}
	}

	start := time.Now()
	conn, err := c.Dialer.DialContext(ctx, "tcp", t.Endpoint)
	latency := elapsedMS(time.Since(start))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Outcome{LatencyMS: latency, Err: fmt.Sprintf("Timeout after %dms", timeout.Milliseconds())}
		}
		return domain.Outcome{LatencyMS: latency, Err: err.Error()}
	}
	_ = conn.Close()
	return domain.Outcome{Up: true, LatencyMS: latency}
}
