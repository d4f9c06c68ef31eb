// ABOUTME: Tests for the dedupe persistence backends
// ABOUTME: Covers JSON and SQLite round-trips, missing storage, and clearing

package dedupe

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sampleEntries() map[string]int64 {
	return map[string]int64{
		"!jobs:example.org_$abc":  1_700_000_000,
		"!jobs:example.org_$def":  1_700_000_060,
		"-1001234567890_42":       1_699_999_999,
		"unicode_ключ":            1,
		"!other:example.org_$xyz": 1_700_000_120,
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(sampleEntries()))

	loaded, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, sampleEntries(), loaded)
}

func TestFileStore_ReferenceFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"1234_5678": 1700000000}`), 0644))

	loaded, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"1234_5678": 1_700_000_000}, loaded)
}

func TestFileStore_MissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestFileStore_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte(`["not", "an", "object"]`), 0644))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "cache.json"))

	require.NoError(t, store.Save(sampleEntries()))
	require.NoError(t, store.Save(map[string]int64{"a_b": 1}))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "cache.json", files[0].Name())
}

func TestFileStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store := NewFileStore(path)

	assert.ErrorIs(t, store.Clear(), ErrNoCache)

	require.NoError(t, store.Save(sampleEntries()))
	require.NoError(t, store.Clear())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(sampleEntries()))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	loaded, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, sampleEntries(), loaded)
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Save(sampleEntries()))
	require.NoError(t, store.Save(map[string]int64{"only_one": 7}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"only_one": 7}, loaded)
}

func TestSQLiteStore_MissingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)

	assert.ErrorIs(t, store.Clear(), ErrNoCache)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "load of a missing database must not create it")
}

func TestSQLiteStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(sampleEntries()))
	require.NoError(t, store.Clear())

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		backend string
		want    any
		wantErr bool
	}{
		{backend: "", want: &FileStore{}},
		{backend: BackendJSON, want: &FileStore{}},
		{backend: BackendSQLite, want: &SQLiteStore{}},
		{backend: "redis", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			store, err := OpenStore(tt.backend, filepath.Join(dir, "cache"))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, store)
			assert.Equal(t, filepath.Join(dir, "cache"), store.Location())
		})
	}
}

func TestCache_SQLiteBackedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)

	cache := Open(store, time.Hour, 10)
	require.NoError(t, cache.Insert("!room:example.org", "$event"))
	want := cache.Snapshot()
	require.NoError(t, cache.Close())

	store2, err := NewSQLiteStore(path)
	require.NoError(t, err)
	reloaded := Open(store2, time.Hour, 10)
	t.Cleanup(func() { reloaded.Close() })

	assert.Equal(t, want, reloaded.Snapshot())
	assert.True(t, reloaded.Exists("!room:example.org", "$event"))
}
