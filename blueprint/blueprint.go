package blueprint

import (
	"context"
	"errors"
	"fmt"
)

// ErrImmutable is returned when mutating a blueprint that was not built with
// MutableB.
var ErrImmutable = errors.New("blueprint is immutable")

// MissingParamError reports an access to a named parameter that was never
// supplied.
type MissingParamError struct {
	Func string
	Name string
}

// Error implements the error interface.
func (e *MissingParamError) Error() string {
	return fmt.Sprintf("function %q has no parameter %q", e.Func, e.Name)
}

// CallFunc is the signature every blueprinted function resolves to: ordered
// positional arguments plus named parameters. Implementations must be pure
// and must not mutate their inputs; the engine's deep-copy pass is only a
// defensive approximation of that contract.
type CallFunc func(ctx context.Context, args []any, params map[string]any) (any, error)

// Func identifies a callable: a stable name used for rendering and derived
// cache keys, and the call itself.
type Func struct {
	Name string
	Call CallFunc
}

// Param is one named parameter of a blueprint, created with P. Params keep
// their declaration order and names are unique within one blueprint.
type Param struct {
	Name  string
	Value any
}

// P builds a named parameter for use in the variadic tail of B, MutableB or
// CachedB, mirroring keyword arguments: B(f, 1, 2, P("scale", 3)).
func P(name string, value any) Param {
	return Param{Name: name, Value: value}
}

// Blueprint is a deferred call: a function identifier, ordered positional
// arguments and ordered unique-keyed named parameters. Arguments may be
// plain values or further blueprint-bearing values. Identity, not content,
// is what the graph builder deduplicates on.
type Blueprint struct {
	fn      Func
	args    []any
	params  []Param
	mutable bool
}

// B constructs an immutable blueprint. Entries of type Param in the variadic
// tail become named parameters; everything before them is positional. B
// panics on a nil call, a positional value after a named one, or a duplicate
// parameter name. All three are programming errors, not runtime conditions.
func B(fn Func, argsAndParams ...any) *Blueprint {
	return newBlueprint(fn, argsAndParams, false)
}

// MutableB constructs a blueprint whose arguments may be patched in place
// with SetArg and SetParam. Patching keeps the blueprint's identity, so a
// graph built afterwards still evaluates it once.
func MutableB(fn Func, argsAndParams ...any) *Blueprint {
	return newBlueprint(fn, argsAndParams, true)
}

func newBlueprint(fn Func, argsAndParams []any, mutable bool) *Blueprint {
	if fn.Call == nil {
		panic(fmt.Sprintf("blueprint: function %q has a nil call", fn.Name))
	}

	b := &Blueprint{fn: fn, mutable: mutable}
	seen := make(map[string]struct{})
	for _, v := range argsAndParams {
		p, named := v.(Param)
		if !named {
			if len(b.params) > 0 {
				panic(fmt.Sprintf("blueprint: function %q: positional argument after named parameter %q", fn.Name, b.params[len(b.params)-1].Name))
			}
			b.args = append(b.args, v)
			continue
		}
		if _, dup := seen[p.Name]; dup {
			panic(fmt.Sprintf("blueprint: function %q: duplicate parameter %q", fn.Name, p.Name))
		}
		seen[p.Name] = struct{}{}
		b.params = append(b.params, p)
	}
	return b
}

// Func returns the blueprint's function.
func (b *Blueprint) Func() Func { return b.fn }

// NumArgs returns the number of positional arguments.
func (b *Blueprint) NumArgs() int { return len(b.args) }

// Arg returns the i-th positional argument. Out-of-range indices panic with
// slice semantics.
func (b *Blueprint) Arg(i int) any { return b.args[i] }

// Params returns a copy of the named parameters in declaration order.
func (b *Blueprint) Params() []Param {
	out := make([]Param, len(b.params))
	copy(out, b.params)
	return out
}

// Param returns the value of the named parameter, or a MissingParamError if
// it was never supplied.
func (b *Blueprint) Param(name string) (any, error) {
	for _, p := range b.params {
		if p.Name == name {
			return p.Value, nil
		}
	}
	return nil, &MissingParamError{Func: b.fn.Name, Name: name}
}

// SetArg patches the i-th positional argument in place. Only blueprints
// built with MutableB accept it.
func (b *Blueprint) SetArg(i int, value any) error {
	if !b.mutable {
		return fmt.Errorf("function %q: %w", b.fn.Name, ErrImmutable)
	}
	if i < 0 || i >= len(b.args) {
		return fmt.Errorf("function %q: argument index %d out of range [0,%d)", b.fn.Name, i, len(b.args))
	}
	b.args[i] = value
	return nil
}

// SetParam patches an existing named parameter in place. Only blueprints
// built with MutableB accept it; an unknown name is a MissingParamError.
func (b *Blueprint) SetParam(name string, value any) error {
	if !b.mutable {
		return fmt.Errorf("function %q: %w", b.fn.Name, ErrImmutable)
	}
	for i := range b.params {
		if b.params[i].Name == name {
			b.params[i].Value = value
			return nil
		}
	}
	return &MissingParamError{Func: b.fn.Name, Name: name}
}

// Children implements Decomposable: positional arguments followed by named
// parameter values in declaration order.
func (b *Blueprint) Children() []any {
	out := make([]any, 0, len(b.args)+len(b.params))
	out = append(out, b.args...)
	for _, p := range b.params {
		out = append(out, p.Value)
	}
	return out
}

// Rebuild implements Decomposable: it performs the deferred call, re-pairing
// the resolved tail with the original parameter names.
func (b *Blueprint) Rebuild(ctx context.Context, resolved []any) (any, error) {
	if len(resolved) != len(b.args)+len(b.params) {
		return nil, fmt.Errorf("function %q: got %d resolved children, want %d", b.fn.Name, len(resolved), len(b.args)+len(b.params))
	}
	args := resolved[:len(b.args)]
	params := make(map[string]any, len(b.params))
	for i, p := range b.params {
		params[p.Name] = resolved[len(b.args)+i]
	}
	return b.fn.Call(ctx, args, params)
}

// String returns the canonical textual rendering, the same text derived
// cache keys are built from.
func (b *Blueprint) String() string { return canonicalText(b) }
