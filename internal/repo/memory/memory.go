package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/statusledger/internal/domain"
	"github.com/hamed0406/statusledger/internal/repo"
)

// Store keeps encoded snapshots in memory. Values are stored encoded so
// callers never share state with the store.
type Store struct {
	mu   sync.RWMutex
	docs map[string][]byte
	puts int
}

func New() *Store {
	return &Store{docs: make(map[string][]byte)}
}

func (m *Store) Get(ctx context.Context, key string) (*domain.Snapshot, error) {
	m.mu.RLock()
	b, ok := m.docs[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return repo.Decode(b)
}

func (m *Store) Put(ctx context.Context, key string, s *domain.Snapshot) error {
	b, err := repo.Encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = b
	m.puts++
	return nil
}

// Puts returns how many writes the store has accepted.
func (m *Store) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

var _ repo.SnapshotStore = (*Store)(nil)
