// Package storage is the client's durable key/value store: a single JSON
// file holding the auth token and the cached user.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// TokenKey holds the raw bearer token.
	TokenKey = "realtivo_token"
	// UserKey holds the JSON-encoded decoded user.
	UserKey = "realtivo_user"
)

// DefaultFile is used when no path is configured.
const DefaultFile = "realtivo.json"

// FileStore persists string values under string keys in a JSON file.
// Every mutation rewrites the file through a temp file and rename, so a
// single key is never observed half written.
type FileStore struct {
	Path string

	mu     sync.Mutex
	values map[string]string
}

// NewFileStore returns a store backed by path, or DefaultFile when empty.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFile
	}
	return &FileStore{Path: path, values: map[string]string{}}
}

// Load reads the file. A missing file is an empty store.
func (fs *FileStore) Load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.values = map[string]string{}
	f, err := os.Open(fs.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&fs.values); err != nil {
		fs.values = map[string]string{}
		return fmt.Errorf("decode %s: %w", fs.Path, err)
	}
	return nil
}

// Get returns the value stored under key.
func (fs *FileStore) Get(key string) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	v, ok := fs.values[key]
	return v, ok
}

// Set stores value under key and persists the store.
func (fs *FileStore) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.values == nil {
		fs.values = map[string]string{}
	}
	fs.values[key] = value
	return fs.save()
}

// Delete removes keys and persists the store.
func (fs *FileStore) Delete(keys ...string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, k := range keys {
		delete(fs.values, k)
	}
	return fs.save()
}

func (fs *FileStore) save() error {
	dir := filepath.Dir(fs.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".realtivo-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(fs.values); err != nil {
		tmp.Close()
		return fmt.Errorf("encode store: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fs.Path)
}
