package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/statusledger/internal/domain"
)

// Hooks are told about incident transitions and ongoing outages. Errors and
// panics are logged by the cycle and never abort it.
type Hooks interface {
	// OnStatusChange fires when a target's incident state changed this cycle.
	OnStatusChange(ctx context.Context, t domain.Target, isUp bool, start, now int64, reason string) error
	// OnIncident fires on every cycle a target is down.
	OnIncident(ctx context.Context, t domain.Target, start, now int64, reason string) error
}

type NopHooks struct{}

func (NopHooks) OnStatusChange(context.Context, domain.Target, bool, int64, int64, string) error {
	return nil
}
func (NopHooks) OnIncident(context.Context, domain.Target, int64, int64, string) error { return nil }

// LogHooks records transitions in the log.
type LogHooks struct {
	Logger *zap.Logger
}

func (h LogHooks) OnStatusChange(_ context.Context, t domain.Target, isUp bool, start, now int64, reason string) error {
	h.Logger.Info("status_change",
		zap.String("target_id", string(t.ID)),
		zap.String("name", t.Name),
		zap.Bool("up", isUp),
		zap.Int64("incident_start", start),
		zap.Int64("now", now),
		zap.String("reason", reason),
	)
	return nil
}

func (h LogHooks) OnIncident(_ context.Context, t domain.Target, start, now int64, reason string) error {
	h.Logger.Debug("incident_ongoing",
		zap.String("target_id", string(t.ID)),
		zap.Int64("down_for_s", now-start),
		zap.String("reason", reason),
	)
	return nil
}

// Publisher is the part of a redis client RedisHooks needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// Event is the JSON document RedisHooks publishes.
type Event struct {
	Type     string          `json:"type"`
	TargetID domain.TargetID `json:"target_id"`
	Name     string          `json:"name"`
	Up       bool            `json:"up"`
	Start    int64           `json:"start"`
	Now      int64           `json:"now"`
	Reason   string          `json:"reason"`
}

const (
	EventStatusChange = "status_change"
	EventIncident     = "incident"
)

// RedisHooks publishes events on a pub/sub channel.
type RedisHooks struct {
	Client  Publisher
	Channel string
}

func NewRedisHooks(c Publisher, channel string) *RedisHooks {
	return &RedisHooks{Client: c, Channel: channel}
}

func (h *RedisHooks) OnStatusChange(ctx context.Context, t domain.Target, isUp bool, start, now int64, reason string) error {
	return h.publish(ctx, Event{Type: EventStatusChange, TargetID: t.ID, Name: t.Name, Up: isUp, Start: start, Now: now, Reason: reason})
}

func (h *RedisHooks) OnIncident(ctx context.Context, t domain.Target, start, now int64, reason string) error {
	return h.publish(ctx, Event{Type: EventIncident, TargetID: t.ID, Name: t.Name, Start: start, Now: now, Reason: reason})
}

func (h *RedisHooks) publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := h.Client.Publish(ctx, h.Channel, b).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// MultiHooks calls every member; one failing member does not stop the rest.
type MultiHooks []Hooks

func (m MultiHooks) OnStatusChange(ctx context.Context, t domain.Target, isUp bool, start, now int64, reason string) error {
	var errs error
	for _, h := range m {
		h := h
		errs = multierr.Append(errs, safeCall(func() error {
			return h.OnStatusChange(ctx, t, isUp, start, now, reason)
		}))
	}
	return errs
}

func (m MultiHooks) OnIncident(ctx context.Context, t domain.Target, start, now int64, reason string) error {
	var errs error
	for _, h := range m {
		h := h
		errs = multierr.Append(errs, safeCall(func() error {
			return h.OnIncident(ctx, t, start, now, reason)
		}))
	}
	return errs
}

// safeCall turns a panic in fn into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panic: %v", r)
		}
	}()
	return fn()
}
