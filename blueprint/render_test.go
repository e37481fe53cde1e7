package blueprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bluegraph/cachestore"
)

func TestRenderRecord(t *testing.T) {
	b := B(addFunc, 1, "two", P("offset", 3))

	record := Render(b)
	assert.Equal(t, map[string]any{
		"function": "add",
		"1":        1,
		"2":        "two",
		"offset":   3,
	}, record)
}

func TestRenderNested(t *testing.T) {
	inner := B(addFunc, 5)
	b := B(addFunc, inner)

	record := Render(b)
	require.IsType(t, map[string]any{}, record["1"])
	assert.Equal(t, "add", record["1"].(map[string]any)["function"])
}

func TestRenderCachedMergesLocator(t *testing.T) {
	store := cachestore.NewMemStore("results")
	cb := CachedB(At(store, "slot-7"), addFunc, 1)

	record := Render(cb)
	assert.Equal(t, "add", record["function"])
	assert.Equal(t, "results", record["store"])
	assert.Equal(t, "slot-7", record["key"])
}

func TestRenderPhonyUsesStandIn(t *testing.T) {
	standIn := B(addFunc, 1, 2)
	ph := Phony([]any{B(addFunc, 9)}, standIn)

	assert.Equal(t, Render(standIn), Render(ph))
}

func TestRenderNonBlueprint(t *testing.T) {
	assert.Nil(t, Render(42))
}

func TestDeriveKeyStable(t *testing.T) {
	a := B(addFunc, 1, 2, P("offset", 3))
	b := B(addFunc, 1, 2, P("offset", 3))

	// Distinct instances, identical contents: identical keys across runs.
	assert.Equal(t, DeriveKey(a), DeriveKey(b))
	assert.Equal(t, `add(1,2,offset=3)`, DeriveKey(a))

	// Different contents, different keys.
	assert.NotEqual(t, DeriveKey(a), DeriveKey(B(addFunc, 1, 2, P("offset", 4))))
}

func TestDeriveKeyMapArgsStable(t *testing.T) {
	mk := func() *Blueprint {
		return B(addFunc, map[string]int{"b": 2, "a": 1, "c": 3})
	}
	key := DeriveKey(mk())
	for i := 0; i < 20; i++ {
		require.Equal(t, key, DeriveKey(mk()))
	}
}

func TestDeriveKeyHashFallback(t *testing.T) {
	t.Run("path separator", func(t *testing.T) {
		key := DeriveKey(B(addFunc, "a/b"))
		assert.Len(t, key, 64)
		assert.NotContains(t, key, "/")
	})

	t.Run("over length", func(t *testing.T) {
		key := DeriveKey(B(addFunc, strings.Repeat("x", 500)))
		assert.Len(t, key, 64)
	})

	t.Run("hash is content-stable", func(t *testing.T) {
		long := strings.Repeat("y", 500)
		assert.Equal(t, DeriveKey(B(addFunc, long)), DeriveKey(B(addFunc, long)))
	})
}

func TestAutoDerivedLocator(t *testing.T) {
	store := cachestore.NewMemStore("s")

	auto := CachedB(In(store), addFunc, 1, 2)
	explicit := CachedB(At(store, "mine"), addFunc, 1, 2)

	assert.Equal(t, "add(1,2)", auto.Ref().Key)
	assert.Equal(t, "mine", explicit.Ref().Key)
	assert.Same(t, store, auto.Ref().Store)
}
