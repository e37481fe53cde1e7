package cachestore

import (
	"context"
	"errors"
	"fmt"
)

// ErrCorrupt marks a store that exists but cannot be read or decoded. It is
// distinct from a plain miss: a missing slot answers Exists with false, a
// corrupt store fails the whole call.
var ErrCorrupt = errors.New("cache store corrupt")

// ErrNoSlot is returned by Load for a key that was never saved. The engine
// only calls Load after a positive Exists, so seeing this error usually
// means the store was mutated between the two calls.
var ErrNoSlot = errors.New("no slot for key")

// Store is the durable key-value contract the engine speaks. Save must be
// idempotent: saving the same key twice leaves the store valid, with the
// later value winning.
type Store interface {
	// Exists reports whether a value is present for key.
	Exists(ctx context.Context, key string) (bool, error)
	// Load returns the value previously saved under key.
	Load(ctx context.Context, key string) (any, error)
	// Save persists value under key.
	Save(ctx context.Context, key string, value any) error
}

// BatchWriter is an optional extension. Stores that pay a per-open cost
// (file stores) implement it so the engine can flush one stage's results for
// a single locator in one open/close cycle.
type BatchWriter interface {
	SaveBatch(ctx context.Context, entries map[string]any) error
}

// Named is an optional extension for stores that can describe themselves in
// error messages and rendered records.
type Named interface {
	Name() string
}

// DisplayName returns the store's self-reported name, or a type-based
// placeholder for anonymous stores.
func DisplayName(s Store) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}
