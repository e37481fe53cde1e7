package depgraph

import (
	"context"
	"reflect"

	"github.com/vk/bluegraph/blueprint"
	"github.com/vk/bluegraph/internal/ctxlog"
)

// Constructor produces a node's value from its already-resolved dependency
// values, in dependency-index order.
type Constructor func(ctx context.Context, inputs []any) (any, error)

// Node is one deduplicated value of the graph: how to construct it, which
// node indices it consumes, and optionally the cache slot it is bound to.
type Node struct {
	Construct Constructor
	Deps      []int
	Cache     *blueprint.CacheRef
}

// Graph is the transient result of one Build call. Nodes only ever reference
// strictly smaller indices, so the slice order is already a valid build
// order; the scheduler exists to make it width-bounded and parallel. The
// root value's node is last.
type Graph struct {
	Nodes []Node
}

// Terminal returns the index of the root value's node.
func (g *Graph) Terminal() int { return len(g.Nodes) - 1 }

// Deps returns the dependency-index lists of all nodes, in node order.
func (g *Graph) Deps() [][]int {
	out := make([][]int, len(g.Nodes))
	for i, n := range g.Nodes {
		out[i] = n.Deps
	}
	return out
}

// Build walks root depth-first through blueprint.Extract and appends one
// node per distinct value. Distinct-but-equal blueprints stay distinct;
// revisiting the same reference is a memo hit and costs nothing. The walk
// follows value containment only, so the resulting graph is acyclic by
// construction.
func Build(ctx context.Context, root any) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	b := &builder{memo: make(map[any]int)}
	if _, err := b.visit(ctx, root); err != nil {
		return nil, err
	}
	logger.Debug("Build: dependency graph constructed.", "node_count", len(b.graph.Nodes))
	return &b.graph, nil
}

type builder struct {
	graph Graph
	memo  map[any]int
}

// visit resolves one value to its node index, creating the node on first
// sight. Children are resolved before their parent is appended, which is
// what guarantees the no-forward-reference invariant.
func (b *builder) visit(ctx context.Context, v any) (int, error) {
	key, keyed := memoKey(v)
	if keyed {
		if idx, ok := b.memo[key]; ok {
			return idx, nil
		}
	}

	children, rebuild := blueprint.Extract(v)
	deps := make([]int, len(children))
	for i, child := range children {
		idx, err := b.visit(ctx, child)
		if err != nil {
			return 0, err
		}
		deps[i] = idx
	}

	node := Node{
		Construct: Constructor(rebuild),
		Deps:      deps,
	}
	if cb, ok := v.(*blueprint.CachedBlueprint); ok {
		ref := cb.Ref()
		node.Cache = &ref
	}

	b.graph.Nodes = append(b.graph.Nodes, node)
	idx := len(b.graph.Nodes) - 1
	if keyed {
		b.memo[key] = idx
	}
	return idx, nil
}

// memoKey reports whether a value can key the identity memo. The blueprint
// kinds are pointers, so Go gives them reference identity for free. Other
// comparable values are memoized by value, which can only merge equal
// constants and is therefore harmless. Uncomparable values are walked once
// per occurrence. The check must be on the value, not the type: an array or
// struct type can be comparable while a particular value holds a slice in an
// interface field and would blow up the map lookup.
func memoKey(v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	if reflect.ValueOf(v).Comparable() {
		return v, true
	}
	return nil, false
}
