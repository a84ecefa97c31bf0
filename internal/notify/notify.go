package notify

import (
	"context"

	"go.uber.org/multierr"
)

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Message is a formatted status notification.
type Message struct {
	Title            string
	Body             string
	MonitorName      string
	Status           string
	DowntimeDuration string
	Reason           string
}

// RichNotifier is implemented by transports that can use the structured
// fields of a Message instead of only title and text.
type RichNotifier interface {
	SendMessage(ctx context.Context, m Message) error
}

// Deliver sends m through n, preferring the structured form when supported.
func Deliver(ctx context.Context, n Notifier, m Message) error {
	if rn, ok := n.(RichNotifier); ok {
		return rn.SendMessage(ctx, m)
	}
	return n.Send(ctx, m.Title, m.Body)
}

type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

func (m Multi) SendMessage(ctx context.Context, msg Message) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, Deliver(ctx, n, msg))
	}
	return err
}
