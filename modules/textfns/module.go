// Package textfns provides the built-in string pipeline functions.
package textfns

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/bluegraph/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the string functions with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("concat", concat)
	r.Register("upper", upper)
	r.Register("join", join)
}

func concat(ctx context.Context, args []any, params map[string]any) (any, error) {
	var sb strings.Builder
	for _, a := range args {
		fmt.Fprintf(&sb, "%v", a)
	}
	return sb.String(), nil
}

func upper(ctx context.Context, args []any, params map[string]any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("upper: want exactly one argument, got %d", len(args))
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("upper: want a string, got %T", args[0])
	}
	return strings.ToUpper(s), nil
}

// join joins one sequence of strings with a "sep" parameter (default ",").
func join(ctx context.Context, args []any, params map[string]any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("join: want exactly one sequence argument, got %d", len(args))
	}
	xs, ok := args[0].([]any)
	if !ok {
		return nil, fmt.Errorf("join: want a sequence, got %T", args[0])
	}
	sep := ","
	if s, ok := params["sep"].(string); ok {
		sep = s
	}
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%v", x)
	}
	return strings.Join(parts, sep), nil
}
