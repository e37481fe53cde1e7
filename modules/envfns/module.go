// Package envfns exposes process environment variables to pipelines.
package envfns

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vk/bluegraph/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("env", env)
	r.Register("env_all", envAll)
}

// env reads a single variable; an optional "default" parameter covers the
// unset case.
func env(ctx context.Context, args []any, params map[string]any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("env: want exactly one name argument, got %d", len(args))
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("env: want a string name, got %T", args[0])
	}
	if v, ok := os.LookupEnv(name); ok {
		return v, nil
	}
	if def, ok := params["default"]; ok {
		return def, nil
	}
	return "", nil
}

// envAll snapshots the whole environment as a map.
func envAll(ctx context.Context, args []any, params map[string]any) (any, error) {
	envMap := make(map[string]any)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = pair[1]
		}
	}
	return envMap, nil
}
