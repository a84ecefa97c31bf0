package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Teams posts to a Microsoft Teams workflow webhook. The workflow receives
// the raw fields and renders its own adaptive card.
type Teams struct {
	Webhook string
	Client  *http.Client
}

func NewTeams(webhook string) *Teams {
	if webhook == "" {
		return nil
	}
	return &Teams{
		Webhook: webhook,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type teamsPayload struct {
	Title            string `json:"title"`
	Text             string `json:"text"`
	MonitorName      string `json:"monitorName,omitempty"`
	Status           string `json:"status,omitempty"`
	DowntimeDuration string `json:"downtimeDuration,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

func (t *Teams) Send(ctx context.Context, title, text string) error {
	return t.SendMessage(ctx, Message{Title: title, Body: text})
}

func (t *Teams) SendMessage(ctx context.Context, m Message) error {
	if t == nil {
		return errDisabled("teams")
	}
	body, _ := json.Marshal(teamsPayload{
		Title:            m.Title,
		Text:             m.Body,
		MonitorName:      m.MonitorName,
		Status:           m.Status,
		DowntimeDuration: m.DowntimeDuration,
		Reason:           m.Reason,
	})
	return postJSON(ctx, t.Client, t.Webhook, body)
}
