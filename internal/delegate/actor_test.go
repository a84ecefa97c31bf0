package delegate

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hamed0406/statusledger/internal/domain"
	"github.com/hamed0406/statusledger/internal/probe"
)

func redisClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping redis actor test")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return client
}

func actorName() string { return "test-" + time.Now().Format("150405.000000") }

func TestActorRoundTrip(t *testing.T) {
	client := redisClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	name := actorName()
	chk := probe.CheckerFunc(func(ctx context.Context, tg domain.Target) domain.Outcome {
		return domain.Outcome{Up: true, LatencyMS: 7}
	})
	actor := NewActor(client, name, "ap-south", chk, zap.NewNop())
	actor.Poll = time.Second
	go func() { _ = actor.Run(ctx) }()

	d := NewActorDelegate(client)
	cctx, ccancel := context.WithTimeout(ctx, 5*time.Second)
	defer ccancel()
	loc, out, err := d.Check(cctx, domain.Target{ID: "a", Endpoint: "https://example.test", DelegateAddress: ActorScheme + name})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if loc != "ap-south" || !out.Up || out.LatencyMS != 7 {
		t.Fatalf("loc=%q out=%+v", loc, out)
	}
}

func TestActorDelegate_UnservedInboxIsBounded(t *testing.T) {
	client := redisClient(t)
	name := actorName()
	ctx := context.Background()
	defer client.Del(ctx, inboxKey(name))

	cctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if _, _, err := NewActorDelegate(client).Check(cctx, domain.Target{ID: "a", DelegateAddress: ActorScheme + name}); err == nil {
		t.Fatal("expected an error with no actor serving")
	}

	if n := client.LLen(ctx, inboxKey(name)).Val(); n != 1 {
		t.Fatalf("inbox length = %d, want 1", n)
	}
	if ttl := client.TTL(ctx, inboxKey(name)).Val(); ttl <= 0 || ttl > inboxTTL {
		t.Fatalf("inbox ttl = %s, want (0, %s]", ttl, inboxTTL)
	}
}

func TestActor_DropsExpiredRequests(t *testing.T) {
	client := redisClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	name := actorName()
	var checks int32
	chk := probe.CheckerFunc(func(ctx context.Context, tg domain.Target) domain.Outcome {
		atomic.AddInt32(&checks, 1)
		return domain.Outcome{Up: true}
	})

	req, _ := json.Marshal(actorRequest{
		ID:       "stale",
		ReplyTo:  replyKey("stale"),
		Target:   domain.Target{ID: "a"},
		Deadline: time.Now().Add(-time.Minute).UnixMilli(),
	})
	if err := client.LPush(ctx, inboxKey(name), req).Err(); err != nil {
		t.Fatal(err)
	}

	actor := NewActor(client, name, "ap-south", chk, zap.NewNop())
	actor.Poll = time.Second
	go func() { _ = actor.Run(ctx) }()

	if _, err := client.BRPop(ctx, 2*time.Second, replyKey("stale")).Result(); !errors.Is(err, goredis.Nil) {
		t.Fatalf("expired request must get no reply, got %v", err)
	}
	if n := atomic.LoadInt32(&checks); n != 0 {
		t.Fatalf("expired request was checked %d times", n)
	}
}
