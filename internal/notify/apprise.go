package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Apprise posts notifications to an Apprise API server, which fans them out
// to the services named in RecipientURL.
type Apprise struct {
	Server       string
	RecipientURL string
	Client       *http.Client
}

func NewApprise(server, recipient string) *Apprise {
	if server == "" || recipient == "" {
		return nil
	}
	return &Apprise{
		Server:       server,
		RecipientURL: recipient,
		Client:       &http.Client{Timeout: 5 * time.Second},
	}
}

type apprisePayload struct {
	URLs   string `json:"urls"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Type   string `json:"type"`
	Format string `json:"format"`
}

func (a *Apprise) Send(ctx context.Context, title, text string) error {
	if a == nil {
		return errDisabled("apprise")
	}
	body, _ := json.Marshal(apprisePayload{
		URLs:   a.RecipientURL,
		Title:  title,
		Body:   text,
		Type:   "warning",
		Format: "text",
	})
	return postJSON(ctx, a.Client, a.Server, body)
}

func postJSON(ctx context.Context, c *http.Client, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("non-2xx response: %s", resp.Status)
	}
	return nil
}

func errDisabled(name string) error { return fmt.Errorf("%s disabled", name) }
