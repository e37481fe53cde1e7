// Package mathfns provides the built-in numeric pipeline functions.
package mathfns

import (
	"context"
	"fmt"

	"github.com/vk/bluegraph/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the numeric functions with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("add", add)
	r.Register("mul", mul)
	r.Register("sum", sum)
}

// add returns the sum of its positional arguments plus an optional "offset"
// parameter.
func add(ctx context.Context, args []any, params map[string]any) (any, error) {
	total := 0.0
	for i, a := range args {
		f, err := toFloat(a)
		if err != nil {
			return nil, fmt.Errorf("add: argument %d: %w", i, err)
		}
		total += f
	}
	if off, ok := params["offset"]; ok {
		f, err := toFloat(off)
		if err != nil {
			return nil, fmt.Errorf("add: offset: %w", err)
		}
		total += f
	}
	return total, nil
}

// mul returns the product of its positional arguments.
func mul(ctx context.Context, args []any, params map[string]any) (any, error) {
	product := 1.0
	for i, a := range args {
		f, err := toFloat(a)
		if err != nil {
			return nil, fmt.Errorf("mul: argument %d: %w", i, err)
		}
		product *= f
	}
	return product, nil
}

// sum flattens one sequence argument and adds its elements.
func sum(ctx context.Context, args []any, params map[string]any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("sum: want exactly one sequence argument, got %d", len(args))
	}
	xs, ok := args[0].([]any)
	if !ok {
		return nil, fmt.Errorf("sum: want a sequence, got %T", args[0])
	}
	total := 0.0
	for i, x := range xs {
		f, err := toFloat(x)
		if err != nil {
			return nil, fmt.Errorf("sum: element %d: %w", i, err)
		}
		total += f
	}
	return total, nil
}

// toFloat widens the numeric types a pipeline or a cache load can produce.
func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
