package engine

import (
	"context"

	"github.com/vk/bluegraph/blueprint"
	"github.com/vk/bluegraph/depgraph"
)

// Construct resolves any blueprint-bearing value to its final result: build
// the dependency graph, reduce it against the caches, run the stages, return
// the value the root rebuilds to. Plain values come back unchanged.
func Construct(ctx context.Context, value any, opts ...Option) (any, error) {
	g, err := depgraph.Build(ctx, value)
	if err != nil {
		return nil, err
	}
	return Execute(ctx, g, opts...)
}

// IsCached reports whether constructing cb in readonly mode would succeed:
// every cache-bearing node still reachable after cache substitution already
// exists in its store. A populated slot shadows misses in the dead subgraph
// above it.
func IsCached(ctx context.Context, cb *blueprint.CachedBlueprint) (bool, error) {
	g, err := depgraph.Build(ctx, cb)
	if err != nil {
		return false, err
	}
	nodes, loaded, err := substituteCached(ctx, g)
	if err != nil {
		return false, err
	}
	nodes, loaded = pruneUnreachable(nodes, loaded)
	return checkReadonly(nodes, loaded) == nil, nil
}
