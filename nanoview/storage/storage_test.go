package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns a fresh instance of every Store implementation
func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	jsonStore, err := NewJSONFileStore(filepath.Join(dir, "data", "store.json"))
	require.NoError(t, err)

	sqliteFile, err := NewSQLiteStore(filepath.Join(dir, "store.db"))
	require.NoError(t, err)

	sqliteMemory, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)

	return map[string]Store{
		"memory":        NewMemoryStore(),
		"json":          jsonStore,
		"sqlite file":   sqliteFile,
		"sqlite memory": sqliteMemory,
	}
}

func TestStoreContract(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("absent key", func(t *testing.T) {
				data, ok, err := store.Load("missing")
				require.NoError(t, err)
				assert.False(t, ok)
				assert.Nil(t, data)
			})

			t.Run("save then load", func(t *testing.T) {
				require.NoError(t, store.Save("team", []byte(`[{"id":"1"}]`)))

				data, ok, err := store.Load("team")
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, `[{"id":"1"}]`, string(data))
			})

			t.Run("save replaces", func(t *testing.T) {
				require.NoError(t, store.Save("team", []byte(`[]`)))

				data, ok, err := store.Load("team")
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, `[]`, string(data))
			})

			t.Run("keys are independent", func(t *testing.T) {
				require.NoError(t, store.Save("inventory", []byte("not json at all")))

				data, _, err := store.Load("inventory")
				require.NoError(t, err)
				assert.Equal(t, "not json at all", string(data))

				data, _, err = store.Load("team")
				require.NoError(t, err)
				assert.Equal(t, `[]`, string(data))
			})

			t.Run("keys are listed", func(t *testing.T) {
				lister, ok := store.(Lister)
				require.True(t, ok, "every backend lists its keys")
				keys, err := lister.Keys()
				require.NoError(t, err)
				assert.Equal(t, []string{"inventory", "team"}, keys)
			})

			t.Run("closed store", func(t *testing.T) {
				require.NoError(t, store.Close())

				_, _, err := store.Load("team")
				assert.True(t, errors.Is(err, ErrClosed), "expected ErrClosed, got %v", err)
				err = store.Save("team", []byte(`[]`))
				assert.True(t, errors.Is(err, ErrClosed), "expected ErrClosed, got %v", err)
			})
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		store, err := Open(BackendJSON, filepath.Join(dir, "a.json"))
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		assert.IsType(t, &JSONFileStore{}, store)
	})

	t.Run("empty backend means json", func(t *testing.T) {
		store, err := Open("", filepath.Join(dir, "b.json"))
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		assert.IsType(t, &JSONFileStore{}, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		store, err := Open(BackendSQLite, ":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		assert.IsType(t, &SQLiteStore{}, store)
	})

	t.Run("memory", func(t *testing.T) {
		store, err := Open(BackendMemory, "")
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Open("redis", "localhost")
		assert.Error(t, err)
	})

	t.Run("json needs a path", func(t *testing.T) {
		_, err := Open(BackendJSON, "")
		assert.Error(t, err)
	})
}
