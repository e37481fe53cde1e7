package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/copystructure"
	"github.com/vk/bluegraph/cachestore"
	"github.com/vk/bluegraph/depgraph"
	"github.com/vk/bluegraph/internal/ctxlog"
	"github.com/vk/bluegraph/schedule"
)

// ReadonlyError aborts a readonly execution before any computation: it lists
// every cache slot that would have to be computed. A consumer process seeing
// this error knows exactly which slots its producer has not populated yet.
type ReadonlyError struct {
	Keys []string
}

// Error implements the error interface.
func (e *ReadonlyError) Error() string {
	return fmt.Sprintf("readonly execution requires %d uncached slot(s): %s", len(e.Keys), strings.Join(e.Keys, ", "))
}

// Option configures Execute and Construct.
type Option func(*options)

type options struct {
	policy   Policy
	copy     bool
	readonly bool
}

func newOptions(opts []Option) options {
	o := options{policy: Serial(), copy: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPolicy selects the execution policy. The default runs serially.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithoutCopy disables the defensive deep copy of argument bundles before
// dispatch. The copy only guards against constructors mutating a memoized
// value shared by other consumers; the real contract is that constructors
// never mutate their inputs. Disable it when that contract is trusted or
// when results hold values copystructure cannot traverse.
func WithoutCopy() Option {
	return func(o *options) { o.copy = false }
}

// WithReadonly forbids computation: execution succeeds only if every cache
// slot still needed after reduction is already populated. Together with
// deterministic derived keys this is how producer and consumer processes
// cooperate without locking.
func WithReadonly() Option {
	return func(o *options) { o.readonly = true }
}

// Execute reduces and runs a dependency graph, returning the terminal
// node's value. Any constructor error aborts the whole call immediately:
// no partial result, no retry.
func Execute(ctx context.Context, g *depgraph.Graph, opts ...Option) (any, error) {
	o := newOptions(opts)
	logger := ctxlog.FromContext(ctx)

	if len(g.Nodes) == 0 {
		return nil, nil
	}

	nodes, loaded, err := substituteCached(ctx, g)
	if err != nil {
		return nil, err
	}
	nodes, loaded = pruneUnreachable(nodes, loaded)
	logger.Debug("Execute: graph reduced.", "node_count", len(nodes))

	if o.readonly {
		if err := checkReadonly(nodes, loaded); err != nil {
			return nil, err
		}
	}

	deps := make([][]int, len(nodes))
	for i, n := range nodes {
		deps[i] = n.Deps
	}
	stages, err := schedule.Stages(deps, o.policy.Width())
	if err != nil {
		return nil, err
	}
	logger.Debug("Execute: stages computed.", "stage_count", len(stages), "width", o.policy.Width())

	return runStages(ctx, nodes, loaded, stages, o)
}

// substituteCached replaces the constructor of every node whose cache slot
// is already populated with a loader and cuts its dependency edges, which
// may leave its upstream subgraph dead. The returned loaded set marks nodes
// whose results must not be saved again.
func substituteCached(ctx context.Context, g *depgraph.Graph) ([]depgraph.Node, []bool, error) {
	nodes := make([]depgraph.Node, len(g.Nodes))
	copy(nodes, g.Nodes)
	loaded := make([]bool, len(nodes))

	for i := range nodes {
		ref := nodes[i].Cache
		if ref == nil {
			continue
		}
		ok, err := ref.Store.Exists(ctx, ref.Key)
		if err != nil {
			return nil, nil, fmt.Errorf("checking cache slot %q: %w", ref.Key, err)
		}
		if !ok {
			continue
		}
		store, key := ref.Store, ref.Key
		nodes[i].Construct = func(ctx context.Context, _ []any) (any, error) {
			return store.Load(ctx, key)
		}
		nodes[i].Deps = nil
		loaded[i] = true
	}
	return nodes, loaded, nil
}

// pruneUnreachable drops every node the terminal node no longer depends on,
// compactly renumbering the survivors. Keeping the original relative order
// preserves the no-forward-reference invariant.
func pruneUnreachable(nodes []depgraph.Node, loaded []bool) ([]depgraph.Node, []bool) {
	reachable := make([]bool, len(nodes))
	stack := []int{len(nodes) - 1}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[v] {
			continue
		}
		reachable[v] = true
		stack = append(stack, nodes[v].Deps...)
	}

	remap := make([]int, len(nodes))
	kept := nodes[:0:0]
	keptLoaded := loaded[:0:0]
	for i, n := range nodes {
		if !reachable[i] {
			continue
		}
		remap[i] = len(kept)
		renumbered := make([]int, len(n.Deps))
		for j, d := range n.Deps {
			renumbered[j] = remap[d]
		}
		n.Deps = renumbered
		kept = append(kept, n)
		keptLoaded = append(keptLoaded, loaded[i])
	}
	return kept, keptLoaded
}

// checkReadonly fails if any surviving node still carries an unresolved
// cache slot, listing all of them.
func checkReadonly(nodes []depgraph.Node, loaded []bool) error {
	var keys []string
	for i, n := range nodes {
		if n.Cache != nil && !loaded[i] {
			keys = append(keys, cachestore.DisplayName(n.Cache.Store)+": "+n.Cache.Key)
		}
	}
	if len(keys) > 0 {
		return &ReadonlyError{Keys: keys}
	}
	return nil
}

// runStages executes the reduced graph stage by stage, persisting freshly
// computed cached results and reclaiming results once their last consuming
// stage has finished.
func runStages(ctx context.Context, nodes []depgraph.Node, loaded []bool, stages [][]int, o options) (any, error) {
	logger := ctxlog.FromContext(ctx)
	terminal := len(nodes) - 1

	stageOf := make([]int, len(nodes))
	for s, stage := range stages {
		for _, v := range stage {
			stageOf[v] = s
		}
	}

	reclaimAt := reclaimPlan(nodes, stages, stageOf)

	results := make([]any, len(nodes))
	for s, stage := range stages {
		tasks := make([]Task, len(stage))
		for i, v := range stage {
			inputs := make([]any, len(nodes[v].Deps))
			for j, d := range nodes[v].Deps {
				inputs[j] = results[d]
			}
			if o.copy && len(inputs) > 0 {
				copied, err := copystructure.Copy(inputs)
				if err != nil {
					return nil, fmt.Errorf("stage %d: copying argument bundle: %w", s, err)
				}
				inputs = copied.([]any)
			}
			construct := nodes[v].Construct
			tasks[i] = func(ctx context.Context) (any, error) {
				return construct(ctx, inputs)
			}
		}

		logger.Debug("Execute: dispatching stage.", "stage", s, "node_count", len(stage))
		stageResults, err := o.policy.Map(ctx, tasks)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", s, err)
		}
		for i, v := range stage {
			results[v] = stageResults[i]
		}

		if err := persistStage(ctx, nodes, loaded, stage, results); err != nil {
			return nil, err
		}

		for _, v := range reclaimAt[s] {
			results[v] = nil
		}
	}

	return results[terminal], nil
}

// reclaimPlan lists, per stage, the nodes whose result slot can be emptied
// once that stage completes: each node is reclaimed at its last consuming
// stage, or its own stage if nothing consumes it. The terminal node is never
// reclaimed; it is the return value.
func reclaimPlan(nodes []depgraph.Node, stages [][]int, stageOf []int) [][]int {
	terminal := len(nodes) - 1
	plan := make([][]int, len(stages))
	for v := range nodes {
		if v == terminal {
			continue
		}
		last := stageOf[v]
		for w, n := range nodes {
			for _, d := range n.Deps {
				if d == v && stageOf[w] > last {
					last = stageOf[w]
				}
			}
		}
		plan[last] = append(plan[last], v)
	}
	return plan
}

// persistStage saves the stage's freshly computed cached results, batching
// all saves targeting the same store into one open/close cycle.
func persistStage(ctx context.Context, nodes []depgraph.Node, loaded []bool, stage []int, results []any) error {
	var pending map[cachestore.Store]map[string]any
	for _, v := range stage {
		ref := nodes[v].Cache
		if ref == nil || loaded[v] {
			continue
		}
		if pending == nil {
			pending = make(map[cachestore.Store]map[string]any)
		}
		if pending[ref.Store] == nil {
			pending[ref.Store] = make(map[string]any)
		}
		pending[ref.Store][ref.Key] = results[v]
	}

	for store, entries := range pending {
		if bw, ok := store.(cachestore.BatchWriter); ok {
			if err := bw.SaveBatch(ctx, entries); err != nil {
				return fmt.Errorf("saving to %s: %w", cachestore.DisplayName(store), err)
			}
			continue
		}
		for key, value := range entries {
			if err := store.Save(ctx, key, value); err != nil {
				return fmt.Errorf("saving %q to %s: %w", key, cachestore.DisplayName(store), err)
			}
		}
	}
	return nil
}
