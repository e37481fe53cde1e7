package cachestore

import (
	"context"
	"fmt"
	"sync"
)

// MemStore is an ephemeral, thread-safe Store backed by a sync.Map. Values
// are held as-is, so unlike FileStore it preserves exact Go types across a
// Save/Load round trip. Suitable for tests and single-process sessions.
type MemStore struct {
	name  string
	slots sync.Map // key string -> any
}

// NewMemStore creates an empty in-memory store. The name only appears in
// error messages and rendered records.
func NewMemStore(name string) *MemStore {
	return &MemStore{name: name}
}

// Name implements Named.
func (s *MemStore) Name() string { return s.name }

// Exists implements Store.
func (s *MemStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := s.slots.Load(key)
	return ok, nil
}

// Load implements Store.
func (s *MemStore) Load(ctx context.Context, key string) (any, error) {
	v, ok := s.slots.Load(key)
	if !ok {
		return nil, fmt.Errorf("store %q: %w: %q", s.name, ErrNoSlot, key)
	}
	return v, nil
}

// Save implements Store.
func (s *MemStore) Save(ctx context.Context, key string, value any) error {
	s.slots.Store(key, value)
	return nil
}

// SaveBatch implements BatchWriter.
func (s *MemStore) SaveBatch(ctx context.Context, entries map[string]any) error {
	for k, v := range entries {
		s.slots.Store(k, v)
	}
	return nil
}

// Delete removes a single slot. Used by tests and producer sessions that
// want to force recomputation.
func (s *MemStore) Delete(key string) {
	s.slots.Delete(key)
}

// Len reports the number of populated slots.
func (s *MemStore) Len() int {
	n := 0
	s.slots.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
