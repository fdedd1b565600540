package store

import (
	"context"
	"sync"

	"github.com/layer-3/xerial/ports"
)

// MemoryStore is an in-memory implementation of the KeyValueStore interface.
// Credentials do not survive the process.
type MemoryStore struct {
	data map[string]string
	mu   sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.KeyValueStore {
	return &MemoryStore{
		data: make(map[string]string),
	}
}

// Get retrieves a value by key
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return "", ports.ErrNotFound
	}
	return value, nil
}

// Set stores a value under key, replacing any previous value
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

var _ ports.KeyValueStore = (*MemoryStore)(nil)
