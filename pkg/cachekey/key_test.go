package cachekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkls/throttle-async-function/errors"
)

type request struct {
	Path  string `json:"path"`
	Limit int    `json:"limit"`
}

type requestReordered struct {
	Limit int    `json:"limit"`
	Path  string `json:"path"`
}

func keyers() map[string]Keyer {
	return map[string]Keyer{
		"sha256":     SHA256Keyer{},
		"xxhash":     XXHashKeyer{},
		"structural": StructuralKeyer{},
	}
}

func TestKey_Deterministic(t *testing.T) {
	for name, keyer := range keyers() {
		t.Run(name, func(t *testing.T) {
			args := []any{"users", 42, map[string]any{"active": true}}

			first, err := keyer.Key(args)
			require.NoError(t, err)
			second, err := keyer.Key(args)
			require.NoError(t, err)

			assert.Equal(t, first, second)
			assert.NotEmpty(t, first)
		})
	}
}

func TestKey_MapOrderIndependent(t *testing.T) {
	// Go randomizes map iteration, so repeated derivations of the same map
	// exercise order independence directly.
	for name, keyer := range keyers() {
		t.Run(name, func(t *testing.T) {
			m := map[string]any{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5}

			reference, err := keyer.Key([]any{m})
			require.NoError(t, err)

			for i := 0; i < 20; i++ {
				key, err := keyer.Key([]any{map[string]any{"e": 5, "d": 4, "c": 3, "b": 2, "a": 1}})
				require.NoError(t, err)
				assert.Equal(t, reference, key)
			}
		})
	}
}

func TestKey_StructFieldOrderIndependent(t *testing.T) {
	// Serializing keyers see both structs as the same sorted JSON object.
	for name, keyer := range map[string]Keyer{"sha256": SHA256Keyer{}, "xxhash": XXHashKeyer{}} {
		t.Run(name, func(t *testing.T) {
			a, err := keyer.Key([]any{request{Path: "users", Limit: 10}})
			require.NoError(t, err)
			b, err := keyer.Key([]any{requestReordered{Limit: 10, Path: "users"}})
			require.NoError(t, err)

			assert.Equal(t, a, b)
		})
	}
}

func TestKey_DistinctArguments(t *testing.T) {
	for name, keyer := range keyers() {
		t.Run(name, func(t *testing.T) {
			a, err := keyer.Key([]any{"users", 1})
			require.NoError(t, err)
			b, err := keyer.Key([]any{"users", 2})
			require.NoError(t, err)
			c, err := keyer.Key([]any{})
			require.NoError(t, err)

			assert.NotEqual(t, a, b)
			assert.NotEqual(t, a, c)
			assert.NotEqual(t, b, c)
		})
	}
}

func TestKey_NestedStructures(t *testing.T) {
	for name, keyer := range keyers() {
		t.Run(name, func(t *testing.T) {
			a, err := keyer.Key([]any{map[string]any{
				"filter": map[string]any{"status": "open", "owner": "kate"},
				"page":   1,
			}})
			require.NoError(t, err)

			b, err := keyer.Key([]any{map[string]any{
				"page":   1,
				"filter": map[string]any{"owner": "kate", "status": "open"},
			}})
			require.NoError(t, err)

			assert.Equal(t, a, b)
		})
	}
}

func TestKey_NotSerializable(t *testing.T) {
	keyer := SHA256Keyer{}

	_, err := keyer.Key([]any{make(chan int)})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestKey_ArgumentOrderMatters(t *testing.T) {
	// Field order is normalized away; positional argument order is not.
	for name, keyer := range keyers() {
		t.Run(name, func(t *testing.T) {
			a, err := keyer.Key([]any{"first", "second"})
			require.NoError(t, err)
			b, err := keyer.Key([]any{"second", "first"})
			require.NoError(t, err)

			assert.NotEqual(t, a, b)
		})
	}
}
