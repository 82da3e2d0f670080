// Package prefs persists user preferences between runs as a small JSON
// key-value file under the user config directory.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	appDirName = "coaching-core"
	fileName   = "prefs.json"
)

// Store is a write-through key-value store; every Set lands on disk before
// returning.
type Store struct {
	mu     sync.Mutex
	path   string
	values map[string]json.RawMessage
}

type StoreOption func(*Store)

// WithPath overrides the backing file location.
func WithPath(path string) StoreOption {
	return func(s *Store) { s.path = path }
}

// Open loads the preference file, creating an empty store when none exists
// yet. A corrupt file is an error; silently discarding saved preferences is
// worse than failing loudly.
func Open(opts ...StoreOption) (*Store, error) {
	store := &Store{values: make(map[string]json.RawMessage)}
	for _, opt := range opts {
		opt(store)
	}

	if store.path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate user config dir: %w", err)
		}
		store.path = filepath.Join(configDir, appDirName, fileName)
	}

	raw, err := os.ReadFile(store.path)
	if errors.Is(err, fs.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	if err := json.Unmarshal(raw, &store.values); err != nil {
		return nil, fmt.Errorf("failed to parse preferences: %w", err)
	}
	return store, nil
}

// Get decodes the value stored under key into out. Reports whether the key
// was present.
func (s *Store) Get(key string, out any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("failed to decode preference %q: %w", key, err)
	}
	return true, nil
}

// Set stores value under key and persists the file.
func (s *Store) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode preference %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = raw
	return s.persistLocked()
}

// Delete removes key and persists the file. Deleting an absent key is a
// no-op that still succeeds.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.persistLocked()
}

// persistLocked writes the whole store atomically: temp file then rename,
// so a crash mid-write never corrupts existing preferences.
func (s *Store) persistLocked() error {
	raw, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create preferences dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}
