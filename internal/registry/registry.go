package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vk/bluegraph/blueprint"
)

// Module is the interface all function modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the named functions available to one application instance.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]blueprint.Func
}

// New creates an empty Registry and installs the given modules.
func New(modules ...Module) *Registry {
	r := &Registry{funcs: make(map[string]blueprint.Func)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register installs a named function. Registering the same name twice is a
// programming error and panics.
func (r *Registry) Register(name string, call blueprint.CallFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.funcs[name]; dup {
		panic(fmt.Sprintf("registry: function %q registered twice", name))
	}
	r.funcs[name] = blueprint.Func{Name: name, Call: call}
}

// Lookup resolves a function identifier.
func (r *Registry) Lookup(name string) (blueprint.Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns all registered identifiers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
