package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bluegraph/blueprint"
	"github.com/vk/bluegraph/depgraph"
)

// counting wraps a call and counts its invocations.
type counting struct {
	calls atomic.Int64
}

func (c *counting) fn(name string, call blueprint.CallFunc) blueprint.Func {
	return blueprint.Func{
		Name: name,
		Call: func(ctx context.Context, args []any, params map[string]any) (any, error) {
			c.calls.Add(1)
			return call(ctx, args, params)
		},
	}
}

var addFunc = blueprint.Func{
	Name: "add",
	Call: func(ctx context.Context, args []any, params map[string]any) (any, error) {
		total := 0
		for _, a := range args {
			total += a.(int)
		}
		return total, nil
	},
}

func TestConstructAdd(t *testing.T) {
	got, err := Construct(context.Background(), blueprint.B(addFunc, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}

func TestConstructPlainValue(t *testing.T) {
	got, err := Construct(context.Background(), "just a value")
	require.NoError(t, err)
	assert.Equal(t, "just a value", got)
}

func TestConstructNested(t *testing.T) {
	inner := blueprint.B(addFunc, 1, 2)
	outer := blueprint.B(addFunc, inner, 10)

	got, err := Construct(context.Background(), outer)
	require.NoError(t, err)
	assert.Equal(t, 13, got)
}

func TestConstructContainers(t *testing.T) {
	a := blueprint.B(addFunc, 1, 1)
	b := blueprint.B(addFunc, 2, 2)

	got, err := Construct(context.Background(), map[string]any{
		"a":  a,
		"b":  b,
		"xs": []any{a, 5},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 2, "b": 4, "xs": []any{2, 5}}, got)
}

// makeMatrix/multiply scenario: two distinct blueprints with identical
// arguments are each constructed once; a reused instance is not rebuilt.
func TestMemoizationPerInstance(t *testing.T) {
	var c counting
	makeMatrix := c.fn("makeMatrix", func(ctx context.Context, args []any, params map[string]any) (any, error) {
		rows, cols := args[0].(int), args[1].(int)
		m := make([][]float64, rows)
		for i := range m {
			m[i] = make([]float64, cols)
			for j := range m[i] {
				m[i][j] = 1
			}
		}
		return m, nil
	})
	multiply := blueprint.Func{
		Name: "multiply",
		Call: func(ctx context.Context, args []any, params map[string]any) (any, error) {
			a, b := args[0].([][]float64), args[1].([][]float64)
			out := make([][]float64, len(a))
			for i := range a {
				out[i] = make([]float64, len(b[0]))
				for j := range out[i] {
					for k := range b {
						out[i][j] += a[i][k] * b[k][j]
					}
				}
			}
			return out, nil
		},
	}

	t.Run("distinct instances build independently", func(t *testing.T) {
		c.calls.Store(0)
		got, err := Construct(context.Background(),
			blueprint.B(multiply, blueprint.B(makeMatrix, 3, 3), blueprint.B(makeMatrix, 3, 1)))
		require.NoError(t, err)
		assert.Equal(t, int64(2), c.calls.Load())
		m := got.([][]float64)
		require.Len(t, m, 3)
		assert.Equal(t, []float64{3}, m[0])
	})

	t.Run("shared instance builds once", func(t *testing.T) {
		c.calls.Store(0)
		shared := blueprint.B(makeMatrix, 3, 3)
		_, err := Construct(context.Background(), blueprint.B(multiply, shared, shared))
		require.NoError(t, err)
		assert.Equal(t, int64(1), c.calls.Load())
	})
}

func TestConstructorFailureAborts(t *testing.T) {
	boom := errors.New("boom")
	var afterCalls atomic.Int64
	failing := blueprint.Func{
		Name: "fail",
		Call: func(ctx context.Context, args []any, params map[string]any) (any, error) {
			return nil, boom
		},
	}
	after := blueprint.Func{
		Name: "after",
		Call: func(ctx context.Context, args []any, params map[string]any) (any, error) {
			afterCalls.Add(1)
			return args[0], nil
		},
	}

	_, err := Construct(context.Background(), blueprint.B(after, blueprint.B(failing)))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), afterCalls.Load(), "no work may run past a failed stage")
}

func TestCopyProtectsSharedResults(t *testing.T) {
	leaf := blueprint.Func{
		Name: "xs",
		Call: func(ctx context.Context, args []any, params map[string]any) (any, error) {
			return []int{1, 2, 3}, nil
		},
	}
	mutator := blueprint.Func{
		Name: "mutate",
		Call: func(ctx context.Context, args []any, params map[string]any) (any, error) {
			xs := args[0].([]int)
			xs[0] = 999 // breaks the purity contract on purpose
			return xs[0], nil
		},
	}
	reader := blueprint.Func{
		Name: "read",
		Call: func(ctx context.Context, args []any, params map[string]any) (any, error) {
			return args[0].([]int)[0], nil
		},
	}

	shared := blueprint.B(leaf)
	root := blueprint.B(addFunc, blueprint.B(mutator, shared), blueprint.B(reader, shared))

	// Width 1 forces the mutator and reader into different stages, so the
	// reader would observe the mutation without the defensive copy.
	got, err := Construct(context.Background(), root, WithPolicy(Mapper(Serial().Map, 1)))
	require.NoError(t, err)
	assert.Equal(t, 1000, got)

	got, err = Construct(context.Background(), root, WithPolicy(Mapper(Serial().Map, 1)), WithoutCopy())
	require.NoError(t, err)
	assert.Equal(t, 1998, got, "without the copy the mutation is visible downstream")
}

func TestReclaimPlan(t *testing.T) {
	// Serial chain with a long-lived leaf: node 0 feeds node 1 and the
	// terminal, so it must survive until stage 3 despite being ready at 0.
	nodes := []depgraph.Node{
		{},
		{Deps: []int{0}},
		{Deps: []int{1}},
		{Deps: []int{2, 0}},
	}
	stages := [][]int{{0}, {1}, {2}, {3}}
	stageOf := []int{0, 1, 2, 3}

	plan := reclaimPlan(nodes, stages, stageOf)

	require.Len(t, plan, 4)
	assert.Empty(t, plan[0])
	assert.Empty(t, plan[1], "leaf consumed again later must not be dropped early")
	assert.Equal(t, []int{1}, plan[2])
	assert.Equal(t, []int{0, 2}, plan[3])

	// Each non-terminal slot is emptied exactly once, the terminal never.
	seen := make(map[int]int)
	for _, stage := range plan {
		for _, v := range stage {
			seen[v]++
		}
	}
	assert.Equal(t, map[int]int{0: 1, 1: 1, 2: 1}, seen)
}

func TestResultSurvivesUntilLastConsumer(t *testing.T) {
	leaf := blueprint.Func{
		Name: "xs",
		Call: func(ctx context.Context, args []any, params map[string]any) (any, error) {
			return []int{7}, nil
		},
	}
	first := blueprint.Func{
		Name: "first",
		Call: func(ctx context.Context, args []any, params map[string]any) (any, error) {
			return args[0].([]int)[0], nil
		},
	}
	both := blueprint.Func{
		Name: "both",
		Call: func(ctx context.Context, args []any, params map[string]any) (any, error) {
			require.NotNil(t, args[1], "leaf result reclaimed before its last consumer")
			return args[0].(int) + args[1].([]int)[0], nil
		},
	}

	shared := blueprint.B(leaf)
	a := blueprint.B(first, shared)
	b := blueprint.B(addFunc, a)
	root := blueprint.B(both, b, shared)

	// Width 1 stretches the graph into one node per stage, so the shared
	// leaf's first and last consumers land three stages apart.
	got, err := Construct(context.Background(), root, WithPolicy(Mapper(Serial().Map, 1)))
	require.NoError(t, err)
	assert.Equal(t, 14, got)
}

func TestExecuteHandBuiltGraph(t *testing.T) {
	// Execute accepts graphs not produced by depgraph.Build.
	g := &depgraph.Graph{Nodes: []depgraph.Node{
		{Construct: func(ctx context.Context, _ []any) (any, error) { return 2, nil }},
		{Construct: func(ctx context.Context, in []any) (any, error) { return in[0].(int) * 10, nil }, Deps: []int{0}},
	}}

	got, err := Execute(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 20, got)
}

func TestExecuteEmptyGraph(t *testing.T) {
	got, err := Execute(context.Background(), &depgraph.Graph{})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExecuteDeadNodeElimination(t *testing.T) {
	var deadCalls atomic.Int64
	g := &depgraph.Graph{Nodes: []depgraph.Node{
		{Construct: func(ctx context.Context, _ []any) (any, error) {
			deadCalls.Add(1)
			return nil, nil
		}},
		{Construct: func(ctx context.Context, _ []any) (any, error) { return 5, nil }},
		{Construct: func(ctx context.Context, in []any) (any, error) { return in[0], nil }, Deps: []int{1}},
	}}

	got, err := Execute(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 5, got)
	assert.Equal(t, int64(0), deadCalls.Load(), "unreachable node must not run")
}

func TestPoolPolicyOrderPreserving(t *testing.T) {
	var mu sync.Mutex
	running, peak := 0, 0
	slow := blueprint.Func{
		Name: "slow",
		Call: func(ctx context.Context, args []any, params map[string]any) (any, error) {
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()
			defer func() {
				mu.Lock()
				running--
				mu.Unlock()
			}()
			return args[0], nil
		},
	}

	items := make([]any, 8)
	for i := range items {
		items[i] = blueprint.B(slow, i)
	}

	got, err := Construct(context.Background(), items, WithPolicy(Pool(4)))
	require.NoError(t, err)

	// Index-stable results regardless of completion order.
	want := make([]any, 8)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, 4, "pool must bound concurrency")
}

func TestPoolPolicyFailFast(t *testing.T) {
	boom := errors.New("boom")
	flaky := blueprint.Func{
		Name: "flaky",
		Call: func(ctx context.Context, args []any, params map[string]any) (any, error) {
			if args[0].(int) == 3 {
				return nil, boom
			}
			return args[0], nil
		},
	}

	items := make([]any, 6)
	for i := range items {
		items[i] = blueprint.B(flaky, i)
	}

	_, err := Construct(context.Background(), items, WithPolicy(Pool(2)))
	assert.ErrorIs(t, err, boom)
}

func TestMapperPolicy(t *testing.T) {
	var mapped atomic.Int64
	custom := Mapper(func(ctx context.Context, tasks []Task) ([]any, error) {
		mapped.Add(1)
		results := make([]any, len(tasks))
		for i, task := range tasks {
			v, err := task(ctx)
			if err != nil {
				return nil, err
			}
			results[i] = v
		}
		return results, nil
	}, 2)

	got, err := Construct(context.Background(), blueprint.B(addFunc, 1, 2, 3), WithPolicy(custom))
	require.NoError(t, err)
	assert.Equal(t, 6, got)
	assert.Positive(t, mapped.Load(), "custom mapper must receive the stages")
	assert.Equal(t, 2, custom.Width())
}
