package blueprint

import (
	"context"
	"fmt"

	"github.com/vk/bluegraph/cachestore"
)

// CacheRef addresses one slot of one store: the locator plus the group key
// within it. Nodes carrying a CacheRef are the ones the engine checks,
// loads and persists.
type CacheRef struct {
	Store cachestore.Store
	Key   string
}

// Locator names where a cached blueprint lives: either a bare store, in
// which case the group key is derived from the blueprint's canonical text,
// or a store with an explicit key.
type Locator struct {
	store cachestore.Store
	key   string
}

// In locates a cached blueprint inside store with an auto-derived group key.
func In(store cachestore.Store) Locator {
	return Locator{store: store}
}

// At locates a cached blueprint inside store under an explicit group key.
// Always prefer At over In for blueprints whose arguments have no stable
// textual rendering (closures, pointers).
func At(store cachestore.Store, key string) Locator {
	return Locator{store: store, key: key}
}

// CachedBlueprint is a Blueprint or PhonyBlueprint annotated with a durable
// store slot. Dependency extraction delegates entirely to the wrapped value;
// all cache handling happens one layer up, in the engine.
type CachedBlueprint struct {
	ref     CacheRef
	wrapped Decomposable // *Blueprint or *PhonyBlueprint
}

// CachedB constructs a blueprint and annotates it with a cache slot in one
// call: CachedB(In(store), fn, args...).
func CachedB(loc Locator, fn Func, argsAndParams ...any) *CachedBlueprint {
	return CachedFrom(loc, B(fn, argsAndParams...))
}

// CachedFrom promotes an existing Blueprint or PhonyBlueprint into a cached
// one. It panics on any other wrapped type; wrapping arbitrary values has no
// meaningful cache identity.
func CachedFrom(loc Locator, v any) *CachedBlueprint {
	if loc.store == nil {
		panic("blueprint: cached blueprint with a nil store")
	}
	switch v.(type) {
	case *Blueprint, *PhonyBlueprint:
	default:
		panic(fmt.Sprintf("blueprint: cannot cache %T, want *Blueprint or *PhonyBlueprint", v))
	}

	key := loc.key
	if key == "" {
		key = DeriveKey(v)
	}
	return &CachedBlueprint{
		ref:     CacheRef{Store: loc.store, Key: key},
		wrapped: v.(Decomposable),
	}
}

// Ref returns the store slot this blueprint is bound to.
func (c *CachedBlueprint) Ref() CacheRef { return c.ref }

// Wrapped returns the underlying *Blueprint or *PhonyBlueprint.
func (c *CachedBlueprint) Wrapped() any { return c.wrapped }

// Children implements Decomposable by delegating to the wrapped value.
func (c *CachedBlueprint) Children() []any { return c.wrapped.Children() }

// Rebuild implements Decomposable by delegating to the wrapped value.
func (c *CachedBlueprint) Rebuild(ctx context.Context, resolved []any) (any, error) {
	return c.wrapped.Rebuild(ctx, resolved)
}

// String returns the canonical textual rendering of the wrapped value.
func (c *CachedBlueprint) String() string { return canonicalText(c.wrapped) }
