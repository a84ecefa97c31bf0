package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hamed0406/statusledger/internal/domain"
	"github.com/hamed0406/statusledger/internal/repo"
)

var _ repo.SnapshotStore = (*Store)(nil)

// Store keeps the snapshot as a JSON string under Prefix+key.
type Store struct {
	client *goredis.Client
	Prefix string
}

func New(client *goredis.Client) *Store {
	return &Store{client: client, Prefix: "statusledger:"}
}

// Dial connects and pings the server.
func Dial(ctx context.Context, opts *goredis.Options) (*goredis.Client, error) {
	client := goredis.NewClient(opts)
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (s *Store) Get(ctx context.Context, key string) (*domain.Snapshot, error) {
	b, err := s.client.Get(ctx, s.Prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return repo.Decode(b)
}

func (s *Store) Put(ctx context.Context, key string, snap *domain.Snapshot) error {
	b, err := repo.Encode(snap)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.Prefix+key, b, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
