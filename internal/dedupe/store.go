// ABOUTME: Persistence backends for the dedupe cache
// ABOUTME: JSON file store (reference format) with atomic replace, plus backend selection

package dedupe

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoCache is returned by Store.Clear when there is nothing to delete.
var ErrNoCache = errors.New("cache storage not found")

// Store persists the cache's key to timestamp mapping.
type Store interface {
	// Load returns the stored mapping. A store that does not exist yet
	// returns an empty map and no error.
	Load() (map[string]int64, error)

	// Save replaces the stored mapping with entries.
	Save(entries map[string]int64) error

	// Clear deletes the persisted data. Returns ErrNoCache if none exists.
	Clear() error

	// Location describes where the data lives, for logs and CLI output.
	Location() string

	// Close releases resources held by the store.
	Close() error
}

// Backend names accepted by OpenStore.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// OpenStore returns the Store for the named backend at path.
// An empty backend selects JSON.
func OpenStore(backend, path string) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewFileStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// FileStore keeps the cache as a JSON object in a single file.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore for path. The file is not touched until
// Load or Save is called.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the JSON mapping. A missing file yields an empty map; malformed
// content is reported as an error.
func (s *FileStore) Load() (map[string]int64, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]int64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	entries := map[string]int64{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding cache file: %w", err)
	}
	return entries, nil
}

// Save writes entries to a temp file next to the target and renames it into
// place, so a crash mid-write never leaves a truncated cache behind.
func (s *FileStore) Save(entries map[string]int64) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp cache file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// Clear removes the cache file.
func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNoCache
	}
	if err != nil {
		return fmt.Errorf("removing cache file: %w", err)
	}
	return nil
}

// Location returns the file path.
func (s *FileStore) Location() string {
	return s.path
}

// Close is a no-op; the file is only open during Load and Save.
func (s *FileStore) Close() error {
	return nil
}
