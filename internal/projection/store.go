package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrMiss is returned by Get when a key is absent or expired.
var ErrMiss = errors.New("projection: cache miss")

// Store is the interface for projection persistence.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// InMemoryStore is a process-local projection store.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// NewInMemoryStore creates a new in-memory projection store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]entry), now: time.Now}
}

func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.data[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.data, key)
		}
		s.mu.Unlock()
		return nil, ErrMiss
	}
	return e.value, nil
}

func (s *InMemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.data[key] = entry{value: value, expiresAt: exp}
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored keys, expired ones included.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// SetJSON is a convenience helper to serialize and store a value.
func SetJSON(ctx context.Context, store Store, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal projection: %w", err)
	}
	return store.Set(ctx, key, data, ttl)
}

// GetJSON is a convenience helper to retrieve and deserialize a value.
func GetJSON(ctx context.Context, store Store, key string, dest interface{}) error {
	data, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
