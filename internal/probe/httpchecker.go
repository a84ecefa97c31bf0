package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hamed0406/statusledger/internal/domain"
)

// maxBodyScan bounds how much of a response body keyword checks read.
const maxBodyScan = 1 << 20

type HTTPChecker struct {
	Client *http.Client
}

func NewHTTPChecker() *HTTPChecker {
	return &HTTPChecker{
		Client: &http.Client{},
	}
}

func (h *HTTPChecker) Check(ctx context.Context, t domain.Target) domain.Outcome {
	timeout := t.EffectiveTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := t.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if t.Body != "" {
		body = strings.NewReader(t.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.Endpoint, body)
	if err != nil {
		return domain.Outcome{Err: err.Error()}
	}
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", "statusledger/1.0")
	}

	start := time.Now()
	resp, err := h.Client.Do(req)
	latency := elapsedMS(time.Since(start))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Outcome{LatencyMS: latency, Err: fmt.Sprintf("Timeout after %dms", timeout.Milliseconds())}
		}
		return domain.Outcome{LatencyMS: latency, Err: err.Error()}
	}
	defer resp.Body.Close()

	if !statusExpected(resp.StatusCode, t.ExpectedCodes) {
		if len(t.ExpectedCodes) > 0 {
			return domain.Outcome{LatencyMS: latency, Err: fmt.Sprintf("Expected codes: %v, Got: %d", t.ExpectedCodes, resp.StatusCode)}
		}
		return domain.Outcome{LatencyMS: latency, Err: fmt.Sprintf("Expected codes: 2xx, Got: %d", resp.StatusCode)}
	}

	if t.ResponseKeyword != "" || t.ResponseForbiddenKeyword != "" {
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyScan))
		if err != nil {
			return domain.Outcome{LatencyMS: latency, Err: "Error reading response body: " + err.Error()}
		}
		text := string(b)
		if t.ResponseKeyword != "" && !strings.Contains(text, t.ResponseKeyword) {
			return domain.Outcome{LatencyMS: latency, Err: "HTTP response doesn't contain the configured keyword"}
		}
		if t.ResponseForbiddenKeyword != "" && strings.Contains(text, t.ResponseForbiddenKeyword) {
			return domain.Outcome{LatencyMS: latency, Err: "HTTP response contains the configured forbidden keyword"}
		}
	}

	return domain.Outcome{Up: true, LatencyMS: latency}
}

func statusExpected(code int, expected []int) bool {
	if len(expected) == 0 {
		return code >= 200 && code < 300
	}
	for _, c := range expected {
		if c == code {
			return true
		}
	}
	return false
}
