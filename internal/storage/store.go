// Package storage provides the small key-value store backing the
// notification dispatcher's persisted state.
package storage

import (
	"context"
	"sync"
)

// Store is the injected persistence interface for notification state.
// Implementations must tolerate missing keys: Get returns only the keys it
// found.
type Store interface {
	// Get returns the values for the requested keys, omitting absent ones.
	Get(ctx context.Context, keys []string) (map[string]string, error)
	// Set upserts all given key/value pairs.
	Set(ctx context.Context, values map[string]string) error
	// Close releases underlying resources.
	Close() error
}

// MemoryStore is an in-memory Store used in tests and when no state path is
// configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the values for the requested keys, omitting absent ones.
func (s *MemoryStore) Get(_ context.Context, keys []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]string, len(keys))

	for _, key := range keys {
		if value, ok := s.values[key]; ok {
			result[key] = value
		}
	}

	return result, nil
}

// Set upserts all given key/value pairs.
func (s *MemoryStore) Set(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range values {
		s.values[key] = value
	}

	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
