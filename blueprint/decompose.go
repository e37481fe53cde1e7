package blueprint

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// RebuildFunc reassembles a value from its resolved children. It must
// satisfy the round-trip law: rebuilding the unmodified children of a value
// yields that value back.
type RebuildFunc func(ctx context.Context, resolved []any) (any, error)

// Decomposable is the decomposition contract. A value either implements it
// directly, has an ExtractorFunc registered for its type, or falls under the
// built-in reflection cases (slices, arrays, maps, struct fields). Anything
// else is opaque: zero children, rebuilt as itself.
type Decomposable interface {
	Children() []any
	Rebuild(ctx context.Context, resolved []any) (any, error)
}

// ExtractorFunc decomposes values of one registered type.
type ExtractorFunc func(v any) (children []any, rebuild RebuildFunc)

var (
	extractorsMu sync.RWMutex
	extractors   = make(map[reflect.Type]ExtractorFunc)
)

// RegisterExtractor installs a custom extractor for the dynamic type of
// sample. It takes precedence over the built-in reflection cases but not
// over a Decomposable implementation on the type itself.
func RegisterExtractor(sample any, fn ExtractorFunc) {
	extractorsMu.Lock()
	defer extractorsMu.Unlock()
	extractors[reflect.TypeOf(sample)] = fn
}

// Extract decomposes any value into its ordered children and a rebuild
// function. It never fails; values with no known shape are opaque.
func Extract(v any) ([]any, RebuildFunc) {
	if v == nil {
		return nil, opaque(v)
	}
	if d, ok := v.(Decomposable); ok {
		return d.Children(), d.Rebuild
	}

	extractorsMu.RLock()
	custom, ok := extractors[reflect.TypeOf(v)]
	extractorsMu.RUnlock()
	if ok {
		return custom(v)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return nil, opaque(v)
		}
		return extractSequence(rv)
	case reflect.Array:
		return extractSequence(rv)
	case reflect.Map:
		if rv.IsNil() {
			return nil, opaque(v)
		}
		return extractMap(rv)
	case reflect.Struct:
		return extractStruct(rv)
	default:
		return nil, opaque(v)
	}
}

// opaque rebuilds the original value unchanged.
func opaque(v any) RebuildFunc {
	return func(ctx context.Context, resolved []any) (any, error) {
		return v, nil
	}
}

// extractSequence handles slices and arrays: children are the elements in
// order, rebuild reshapes them into a sequence of the same type and length.
func extractSequence(rv reflect.Value) ([]any, RebuildFunc) {
	n := rv.Len()
	children := make([]any, n)
	for i := 0; i < n; i++ {
		children[i] = rv.Index(i).Interface()
	}

	t := rv.Type()
	rebuild := func(ctx context.Context, resolved []any) (any, error) {
		if len(resolved) != n {
			return nil, fmt.Errorf("sequence %s: got %d resolved elements, want %d", t, len(resolved), n)
		}
		var out reflect.Value
		if t.Kind() == reflect.Slice {
			out = reflect.MakeSlice(t, n, n)
		} else {
			out = reflect.New(t).Elem()
		}
		for i, r := range resolved {
			if err := assign(out.Index(i), r); err != nil {
				return nil, fmt.Errorf("sequence %s, element %d: %w", t, i, err)
			}
		}
		return out.Interface(), nil
	}
	return children, rebuild
}

// extractMap handles maps: children are all keys followed by all values,
// keys ordered by their canonical rendering so the enumeration is stable
// despite Go's randomized map iteration. Rebuild zips resolved keys with
// resolved values pairwise; keys may themselves have been blueprints.
func extractMap(rv reflect.Value) ([]any, RebuildFunc) {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return canonicalValue(keys[i].Interface()) < canonicalValue(keys[j].Interface())
	})

	n := len(keys)
	children := make([]any, 0, 2*n)
	for _, k := range keys {
		children = append(children, k.Interface())
	}
	for _, k := range keys {
		children = append(children, rv.MapIndex(k).Interface())
	}

	t := rv.Type()
	rebuild := func(ctx context.Context, resolved []any) (any, error) {
		if len(resolved) != 2*n {
			return nil, fmt.Errorf("map %s: got %d resolved children, want %d", t, len(resolved), 2*n)
		}
		out := reflect.MakeMapWithSize(t, n)
		for i := 0; i < n; i++ {
			k := reflect.New(t.Key()).Elem()
			if err := assign(k, resolved[i]); err != nil {
				return nil, fmt.Errorf("map %s, key %d: %w", t, i, err)
			}
			val := reflect.New(t.Elem()).Elem()
			if err := assign(val, resolved[n+i]); err != nil {
				return nil, fmt.Errorf("map %s, value %d: %w", t, i, err)
			}
			out.SetMapIndex(k, val)
		}
		return out.Interface(), nil
	}
	return children, rebuild
}

// extractStruct handles fixed-field records: children are the exported
// field values in declared order, rebuild reassembles the same struct type.
// Unexported fields are carried over from the original value untouched.
func extractStruct(rv reflect.Value) ([]any, RebuildFunc) {
	t := rv.Type()
	var fields []int
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			fields = append(fields, i)
		}
	}

	children := make([]any, len(fields))
	for i, fi := range fields {
		children[i] = rv.Field(fi).Interface()
	}

	orig := rv
	rebuild := func(ctx context.Context, resolved []any) (any, error) {
		if len(resolved) != len(fields) {
			return nil, fmt.Errorf("struct %s: got %d resolved fields, want %d", t, len(resolved), len(fields))
		}
		out := reflect.New(t).Elem()
		out.Set(orig)
		for i, fi := range fields {
			if err := assign(out.Field(fi), resolved[i]); err != nil {
				return nil, fmt.Errorf("struct %s, field %s: %w", t, t.Field(fi).Name, err)
			}
		}
		return out.Interface(), nil
	}
	return children, rebuild
}

// assign places a resolved child into a typed destination, reporting a
// shape error when the constructed value no longer fits the container it
// came from.
func assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(dst.Type()) {
		return fmt.Errorf("cannot place %T into %s", v, dst.Type())
	}
	dst.Set(rv)
	return nil
}
