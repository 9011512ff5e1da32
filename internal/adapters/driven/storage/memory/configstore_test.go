package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStoreFrom_CopiesValues(t *testing.T) {
	seed := map[string]any{"context.max_chars": 4000}
	store := NewConfigStoreFrom(seed)

	seed["context.max_chars"] = 1
	assert.Equal(t, 4000, store.GetInt("context.max_chars"))
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("embedding.provider", "ollama"))
	require.NoError(t, store.Set("embedding.provider", "openai"))

	val, ok := store.Get("embedding.provider")
	assert.True(t, ok)
	assert.Equal(t, "openai", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_GetString(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{"a": "x", "b": 12})

	assert.Equal(t, "x", store.GetString("a"))
	assert.Equal(t, "", store.GetString("b"))
	assert.Equal(t, "", store.GetString("missing"))
}

func TestConfigStore_GetInt(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"int", 42, 42},
		{"int64", int64(7), 7},
		{"float64 truncates", 12.9, 12},
		{"numeric string", " 250 ", 250},
		{"bad string", "lots", 0},
		{"bool", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewConfigStoreFrom(map[string]any{"k": tt.value})
			assert.Equal(t, tt.want, store.GetInt("k"))
		})
	}
	assert.Equal(t, 0, NewConfigStore().GetInt("missing"))
}

func TestConfigStore_GetBool(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"true", true, true},
		{"false", false, false},
		{"string true", "true", true},
		{"string 1", "1", true},
		{"string false", "false", false},
		{"garbage", "maybe", false},
		{"int", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewConfigStoreFrom(map[string]any{"k": tt.value})
			assert.Equal(t, tt.want, store.GetBool("k"))
		})
	}
}

func TestConfigStore_GetStringSlice(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  []string
	}{
		{"slice", []string{"a", "b"}, []string{"a", "b"}},
		{"any slice skips non strings", []any{"a", 3, "b"}, []string{"a", "b"}},
		{"comma string", "sheet-1, sheet-2,,", []string{"sheet-1", "sheet-2"}},
		{"empty string", "", nil},
		{"wrong type", 9, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewConfigStoreFrom(map[string]any{"k": tt.value})
			assert.Equal(t, tt.want, store.GetStringSlice("k"))
		})
	}
	assert.Nil(t, NewConfigStore().GetStringSlice("missing"))
}

func TestConfigStore_SaveLoadPath(t *testing.T) {
	store := NewConfigStore()
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("indexing.batch_size", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("indexing.batch_size")
		}()
	}
	wg.Wait()

	_, ok := store.Get("indexing.batch_size")
	assert.True(t, ok)
}
