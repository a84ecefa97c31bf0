package delegate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hamed0406/statusledger/internal/domain"
	"github.com/hamed0406/statusledger/internal/probe"
)

// ActorScheme prefixes addresses of named remote checkers reached via Redis.
const ActorScheme = "actor://"

const keyPrefix = "statusledger:"

// inboxCap bounds an actor's inbox; the oldest requests are dropped first.
const inboxCap = 1000

// inboxTTL expires an inbox that nobody pushes to any more.
const inboxTTL = 10 * time.Minute

type actorRequest struct {
	ID      string        `json:"id"`
	ReplyTo string        `json:"reply_to"`
	Target  domain.Target `json:"target"`
	// Deadline is when the caller stops waiting, in unix milliseconds.
	Deadline int64 `json:"deadline"`
}

func (r actorRequest) expired(now time.Time) bool {
	return r.Deadline > 0 && now.UnixMilli() >= r.Deadline
}

// checkTimeout is the probe budget left for r: the target timeout, cut
// short by the caller's deadline.
func (r actorRequest) checkTimeout(now time.Time) time.Duration {
	d := r.Target.EffectiveTimeout()
	if r.Deadline > 0 {
		if left := time.UnixMilli(r.Deadline).Sub(now); left < d {
			d = left
		}
	}
	return d
}

func inboxKey(name string) string { return keyPrefix + "actor:" + name }
func replyKey(id string) string   { return keyPrefix + "reply:" + id }

// ActorDelegate addresses a named Actor through Redis lists: the request is
// pushed on the actor's inbox and the reply awaited on a per-request list.
type ActorDelegate struct {
	Client *goredis.Client
}

func NewActorDelegate(c *goredis.Client) *ActorDelegate {
	return &ActorDelegate{Client: c}
}

func (d *ActorDelegate) Check(ctx context.Context, t domain.Target) (string, domain.Outcome, error) {
	name := strings.TrimPrefix(t.DelegateAddress, ActorScheme)
	if name == "" {
		return "", domain.Outcome{}, fmt.Errorf("%w: %q", ErrUnsupportedAddress, t.DelegateAddress)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(t.EffectiveTimeout())
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}
	wait := time.Until(deadline)
	if wait < time.Second {
		wait = time.Second
	}

	id := uuid.New().String()
	req, err := json.Marshal(actorRequest{ID: id, ReplyTo: replyKey(id), Target: t, Deadline: deadline.UnixMilli()})
	if err != nil {
		return "", domain.Outcome{}, fmt.Errorf("encode request: %w", err)
	}
	inbox := inboxKey(name)
	pipe := d.Client.TxPipeline()
	pipe.LPush(ctx, inbox, req)
	pipe.LTrim(ctx, inbox, 0, inboxCap-1)
	pipe.Expire(ctx, inbox, inboxTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", domain.Outcome{}, fmt.Errorf("push to %s: %w", name, err)
	}

	res, err := d.Client.BRPop(ctx, wait, replyKey(id)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", domain.Outcome{}, fmt.Errorf("actor %s did not reply: %w", name, context.DeadlineExceeded)
		}
		return "", domain.Outcome{}, fmt.Errorf("await reply from %s: %w", name, err)
	}
	if len(res) < 2 {
		return "", domain.Outcome{}, fmt.Errorf("%w: BRPop returned %d elements", ErrBadResponse, len(res))
	}

	return decodeResponse(strings.NewReader(res[1]))
}

// Actor serves checks addressed to Name, running them with Checker and
// reporting Location as where they ran.
type Actor struct {
	Client   *goredis.Client
	Name     string
	Location string
	Checker  probe.Checker
	Logger   *zap.Logger
	ReplyTTL time.Duration
	Poll     time.Duration
}

func NewActor(c *goredis.Client, name, location string, chk probe.Checker, log *zap.Logger) *Actor {
	return &Actor{
		Client:   c,
		Name:     name,
		Location: location,
		Checker:  chk,
		Logger:   log,
		ReplyTTL: time.Minute,
		Poll:     5 * time.Second,
	}
}

// Run serves requests until ctx is cancelled.
func (a *Actor) Run(ctx context.Context) error {
	a.Logger.Info("actor_started", zap.String("name", a.Name), zap.String("location", a.Location))
	for {
		res, err := a.Client.BRPop(ctx, a.Poll, inboxKey(a.Name)).Result()
		if err != nil {
			if ctx.Err() != nil {
				a.Logger.Info("actor_stopped", zap.String("name", a.Name))
				return ctx.Err()
			}
			if errors.Is(err, goredis.Nil) {
				continue
			}
			a.Logger.Warn("actor_pop_error", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		if len(res) < 2 {
			continue
		}
		a.handle(ctx, []byte(res[1]))
	}
}

func (a *Actor) handle(ctx context.Context, raw []byte) {
	var req actorRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.ReplyTo == "" {
		a.Logger.Warn("actor_bad_request", zap.ByteString("raw", raw), zap.Error(err))
		return
	}

	now := time.Now()
	if req.expired(now) {
		a.Logger.Debug("actor_request_expired",
			zap.String("request_id", req.ID),
			zap.String("target_id", string(req.Target.ID)),
		)
		return
	}

	cctx, cancel := context.WithTimeout(ctx, req.checkTimeout(now))
	out := a.Checker.Check(cctx, req.Target)
	cancel()

	b, _ := json.Marshal(Response{Location: a.Location, Status: out})
	pipe := a.Client.TxPipeline()
	pipe.LPush(ctx, req.ReplyTo, b)
	pipe.Expire(ctx, req.ReplyTo, a.ReplyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		a.Logger.Warn("actor_reply_error", zap.String("request_id", req.ID), zap.Error(err))
		return
	}
	a.Logger.Debug("actor_checked",
		zap.String("request_id", req.ID),
		zap.String("target_id", string(req.Target.ID)),
		zap.Bool("up", out.Up),
	)
}
