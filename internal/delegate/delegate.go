// Package delegate runs checks from another network location and reports
// the result back in the same shape as a local probe.
package delegate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hamed0406/statusledger/internal/domain"
)

// RemoteFailureReason is reported when a delegated check could not be run
// and local fallback is disabled.
const RemoteFailureReason = "Error initiating check from remote"

var (
	ErrBadResponse        = errors.New("delegate: malformed response")
	ErrUnsupportedAddress = errors.New("delegate: unsupported address")
)

// CheckDelegate performs a check somewhere else and returns where it ran.
type CheckDelegate interface {
	Check(ctx context.Context, t domain.Target) (location string, out domain.Outcome, err error)
}

// Response is the wire shape returned by remote checkers.
type Response struct {
	Location string         `json:"location"`
	Status   domain.Outcome `json:"status"`
}

// decodeResponse reads a Response, rejecting replies without a location or
// a status.
func decodeResponse(r io.Reader) (string, domain.Outcome, error) {
	var wire struct {
		Location string          `json:"location"`
		Status   *domain.Outcome `json:"status"`
	}
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return "", domain.Outcome{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if wire.Location == "" {
		return "", domain.Outcome{}, fmt.Errorf("%w: missing location", ErrBadResponse)
	}
	if wire.Status == nil {
		return "", domain.Outcome{}, fmt.Errorf("%w: missing status", ErrBadResponse)
	}
	return wire.Location, *wire.Status, nil
}
