package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hamed0406/statusledger/internal/domain"
)

// DefaultKey is the key the monitor state is stored under.
const DefaultKey = "state"

// SnapshotStore persists the aggregate monitor state. Last write wins.
type SnapshotStore interface {
	// Get returns nil, nil if nothing has been stored under key yet.
	Get(ctx context.Context, key string) (*domain.Snapshot, error)
	Put(ctx context.Context, key string, s *domain.Snapshot) error
}

// Encode and Decode are shared by the adapters so every backend stores the
// same JSON document.
func Encode(s *domain.Snapshot) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

func Decode(b []byte) (*domain.Snapshot, error) {
	var s domain.Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	s.Normalize()
	return &s, nil
}
