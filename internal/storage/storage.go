// Package storage persists ChatManager snapshots between restarts.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"chatterbot/internal/chat"
)

var ErrNotFound = errors.New("storage: not found")

// Store saves and loads whole managers keyed by user id.
type Store interface {
	Load(ctx context.Context, userID int64) (*chat.Manager, error)
	Save(ctx context.Context, m *chat.Manager) error
	Users(ctx context.Context) ([]int64, error)
	Close() error
}

// Open builds the store named by driver.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "sqlite":
		return OpenSQLite(path)
	case "json":
		return NewFileStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}

// MemoryStore keeps serialized snapshots in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	data map[int64][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[int64][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, userID int64) (*chat.Manager, error) {
	s.mu.Lock()
	b, ok := s.data[userID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return chat.Unmarshal(b)
}

func (s *MemoryStore) Save(_ context.Context, m *chat.Manager) error {
	b, err := chat.Marshal(m)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[m.UserID] = b
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Users(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.data))
	for id := range s.data {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
