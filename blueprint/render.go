package blueprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/vk/bluegraph/cachestore"
)

// maxDerivedKeyLen bounds the readable form of a derived group key. Longer
// canonical texts, and texts containing a path separator, are replaced by a
// content hash so keys stay usable as file-store slot names.
const maxDerivedKeyLen = 200

// DeriveKey computes the group key CachedFrom uses when the locator does not
// carry an explicit one: the canonical text of function, arguments and
// parameters, or its sha256 when the text is too long or path-unsafe.
// Identical computations therefore derive identical keys across runs, as
// long as every argument has a stable rendering.
func DeriveKey(v any) string {
	text := canonicalText(v)
	if len(text) > maxDerivedKeyLen || strings.ContainsAny(text, `/\`) {
		sum := sha256.Sum256([]byte(text))
		return hex.EncodeToString(sum[:])
	}
	return text
}

// canonicalText renders a blueprint as name(arg,...,param=value,...). The
// phony and cached wrappers render as their stand-in and wrapped value.
func canonicalText(v any) string {
	switch b := v.(type) {
	case *Blueprint:
		var sb strings.Builder
		sb.WriteString(b.fn.Name)
		sb.WriteByte('(')
		for i, a := range b.args {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(canonicalValue(a))
		}
		for i, p := range b.params {
			if i > 0 || len(b.args) > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(p.Name)
			sb.WriteByte('=')
			sb.WriteString(canonicalValue(p.Value))
		}
		sb.WriteByte(')')
		return sb.String()
	case *PhonyBlueprint:
		return canonicalText(b.standIn)
	case *CachedBlueprint:
		return canonicalText(b.wrapped)
	default:
		return canonicalValue(v)
	}
}

// canonicalValue renders an arbitrary argument deterministically: maps are
// sorted by rendered key, sequences keep their order, strings are quoted.
// Values without a stable rendering (pointers, closures) fall back to %v and
// are exactly the cases where callers must supply explicit group keys.
func canonicalValue(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case *Blueprint, *PhonyBlueprint, *CachedBlueprint:
		return canonicalText(v)
	case string:
		return fmt.Sprintf("%q", v)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = canonicalValue(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ",") + "]"
	case reflect.Map:
		parts := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			parts = append(parts, canonicalValue(k.Interface())+":"+canonicalValue(rv.MapIndex(k).Interface()))
		}
		sort.Strings(parts)
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Render produces the serialization record of a blueprint: the function
// identifier under "function", positional arguments keyed by 1-based
// position, named parameters keyed by name. A CachedBlueprint merges its
// store name and group key into the record; a PhonyBlueprint renders as its
// stand-in. Nested blueprint values render recursively. Non-blueprint values
// render to nil.
func Render(v any) map[string]any {
	switch b := v.(type) {
	case *Blueprint:
		record := make(map[string]any, 1+len(b.args)+len(b.params))
		record["function"] = b.fn.Name
		for i, a := range b.args {
			record[fmt.Sprintf("%d", i+1)] = renderValue(a)
		}
		for _, p := range b.params {
			record[p.Name] = renderValue(p.Value)
		}
		return record
	case *PhonyBlueprint:
		return Render(b.standIn)
	case *CachedBlueprint:
		record := Render(b.wrapped)
		record["store"] = cachestore.DisplayName(b.ref.Store)
		record["key"] = b.ref.Key
		return record
	default:
		return nil
	}
}

// renderValue maps one argument into its record form.
func renderValue(v any) any {
	switch v.(type) {
	case *Blueprint, *PhonyBlueprint, *CachedBlueprint:
		return Render(v)
	default:
		return v
	}
}
