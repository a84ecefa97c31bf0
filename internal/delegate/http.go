package delegate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hamed0406/statusledger/internal/domain"
)

// HTTPDelegate POSTs the target as JSON to its DelegateAddress and expects
// a Response back.
type HTTPDelegate struct {
	Client *http.Client
}

func NewHTTPDelegate() *HTTPDelegate {
	return &HTTPDelegate{Client: &http.Client{}}
}

func (d *HTTPDelegate) Check(ctx context.Context, t domain.Target) (string, domain.Outcome, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return "", domain.Outcome{}, fmt.Errorf("encode target: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.DelegateAddress, bytes.NewReader(body))
	if err != nil {
		return "", domain.Outcome{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return "", domain.Outcome{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", domain.Outcome{}, fmt.Errorf("delegate returned %s", resp.Status)
	}

	return decodeResponse(resp.Body)
}
