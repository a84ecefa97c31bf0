package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Slack posts to an incoming webhook. Plain sends use the text field only;
// structured messages add a section block with one field per fact.
type Slack struct {
	Webhook string
	Client  *http.Client
}

func NewSlack(webhook string) *Slack {
	if webhook == "" {
		return nil
	}
	return &Slack{
		Webhook: webhook,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks,omitempty"`
}

func (s *Slack) Send(ctx context.Context, title, text string) error {
	if s == nil || s.Webhook == "" {
		return errDisabled("slack")
	}
	return s.post(ctx, slackPayload{Text: "*" + title + "*\n" + text})
}

func (s *Slack) SendMessage(ctx context.Context, m Message) error {
	if s == nil || s.Webhook == "" {
		return errDisabled("slack")
	}
	fields := []slackText{{Type: "mrkdwn", Text: "*Status*\n" + m.Status}}
	if m.DowntimeDuration != "" {
		fields = append(fields, slackText{Type: "mrkdwn", Text: "*Down for*\n" + m.DowntimeDuration})
	}
	if m.Reason != "" {
		fields = append(fields, slackText{Type: "mrkdwn", Text: "*Reason*\n" + m.Reason})
	}
	return s.post(ctx, slackPayload{
		Text: m.Title,
		Blocks: []slackBlock{
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: "*" + m.Title + "*\n" + m.Body}},
			{Type: "section", Fields: fields},
		},
	})
}

func (s *Slack) post(ctx context.Context, p slackPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return postJSON(ctx, s.Client, s.Webhook, body)
}
