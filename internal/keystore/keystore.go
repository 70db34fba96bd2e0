// ABOUTME: Persisted client-side key space for the hirescore CLI
// ABOUTME: Stores the auth token and chat watermark as JSON in the state directory

package keystore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Fixed key names of the persisted client key space. These mirror the keys
// the product documents for its clients; anything else stored here is
// ignored on load.
const (
	KeyAuthToken    = "auth_token"
	KeyChatLastSeen = "chat_last_seen_id"
)

const stateFileName = "state.json"

// Store is a small file-backed string key-value space. It is not a secret
// store: values are written world-unreadable but otherwise in the clear,
// matching the accessible key space the product assumes on every client.
type Store struct {
	dir string

	mu     sync.Mutex
	values map[string]string
	loaded bool
}

// New creates a store rooted at the given state directory. The directory is
// created lazily on first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) file() string {
	return filepath.Join(s.dir, stateFileName)
}

// load reads the state file once. A missing or corrupt file starts fresh.
func (s *Store) load() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.values = map[string]string{}

	data, err := os.ReadFile(s.file())
	if err != nil {
		return
	}
	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return
	}
	s.values = values
}

// save writes the state file via a temp file and rename so a crash mid-write
// never leaves a truncated key space behind.
func (s *Store) save() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.file() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.file())
}

// Get returns the value for key, or "" when absent.
func (s *Store) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return s.values[key]
}

// Set stores and persists a value. An empty value deletes the key.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	if value == "" {
		delete(s.values, key)
	} else {
		s.values[key] = value
	}
	return s.save()
}

// Delete removes a key and persists the change.
func (s *Store) Delete(key string) error {
	return s.Set(key, "")
}
