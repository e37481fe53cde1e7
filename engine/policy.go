package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is one node's pending construction, closed over its argument bundle.
type Task func(ctx context.Context) (any, error)

// Policy dispatches the independent tasks of one stage. Map must be
// order-preserving: results[i] belongs to tasks[i] regardless of completion
// order. A non-zero Width becomes the scheduler's stage width, trading
// smaller stages (more frequent cache checkpoints, lower peak memory) for
// less intra-stage parallelism.
type Policy interface {
	Width() int
	Map(ctx context.Context, tasks []Task) ([]any, error)
}

// Serial returns the default policy: tasks run one after another on the
// calling goroutine, stages stay unbounded.
func Serial() Policy { return serialPolicy{} }

type serialPolicy struct{}

func (serialPolicy) Width() int { return 0 }

func (serialPolicy) Map(ctx context.Context, tasks []Task) ([]any, error) {
	results := make([]any, len(tasks))
	for i, task := range tasks {
		v, err := task(ctx)
		if err != nil {
			return nil, err
		}
		results[i] = v
	}
	return results, nil
}

// Pool returns a policy running up to workers tasks concurrently. The bound
// doubles as the stage width, so no stage ever holds more nodes than can run
// at once.
func Pool(workers int) Policy {
	if workers < 1 {
		workers = 1
	}
	return poolPolicy{workers: workers}
}

type poolPolicy struct {
	workers int
}

func (p poolPolicy) Width() int { return p.workers }

func (p poolPolicy) Map(ctx context.Context, tasks []Task) ([]any, error) {
	results := make([]any, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			v, err := task(gctx)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MapFunc is a caller-supplied order-preserving parallel-map primitive.
type MapFunc func(ctx context.Context, tasks []Task) ([]any, error)

// Mapper wraps an external parallel-map primitive (a process pool, a
// distributed dispatcher) into a Policy. width <= 0 leaves stages unbounded.
func Mapper(fn MapFunc, width int) Policy {
	return mapperPolicy{fn: fn, width: width}
}

type mapperPolicy struct {
	fn    MapFunc
	width int
}

func (m mapperPolicy) Width() int { return m.width }

func (m mapperPolicy) Map(ctx context.Context, tasks []Task) ([]any, error) {
	return m.fn(ctx, tasks)
}
