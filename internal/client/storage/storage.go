// Package storage persists client state (credential, cached user, pending
// tasks) in a single JSON file of string keys and string values.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
)

// DefaultFile is the storage file used when no path is configured.
const DefaultFile = "todo_storage.json"

// CorruptSuffix is appended to a storage file that failed to parse.
const CorruptSuffix = ".corrupt"

// ErrCorrupt marks a storage file that exists but is not a JSON object of
// string values.
var ErrCorrupt = errors.New("storage file is corrupt")

// LocalStorage is a file-backed string key-value store. Every mutation is
// written through to disk.
type LocalStorage struct {
	path  string
	log   *zap.Logger
	mu    sync.Mutex
	items map[string]string
}

// NewLocalStorage returns an empty store bound to path. Call Load to read
// existing contents.
func NewLocalStorage(path string, log *zap.Logger) *LocalStorage {
	if path == "" {
		path = DefaultFile
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalStorage{path: path, log: log, items: make(map[string]string)}
}

// Path returns the backing file path.
func (ls *LocalStorage) Path() string {
	return ls.path
}

// Load reads the backing file. A missing file is an empty store. A file that
// is not a JSON object leaves the store empty and returns an error.
func (ls *LocalStorage) Load() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.items = make(map[string]string)

	data, err := os.ReadFile(ls.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read storage: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	items := make(map[string]string)
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("parse storage: %w: %w", ErrCorrupt, err)
	}
	ls.items = items
	return nil
}

// LoadOrReset is Load for callers that must keep running. A corrupt file is
// logged, moved aside to path+CorruptSuffix and the store starts empty.
// Read errors other than corruption are still returned.
func (ls *LocalStorage) LoadOrReset() error {
	err := ls.Load()
	if !errors.Is(err, ErrCorrupt) {
		return err
	}

	backup := ls.path + CorruptSuffix
	ls.log.Error("local storage is corrupt, starting empty",
		zap.String("path", ls.path),
		zap.String("backup", backup),
		zap.Error(err),
	)
	if err := os.Rename(ls.path, backup); err != nil {
		ls.log.Warn("failed to move corrupt storage aside", zap.Error(err))
	}
	return nil
}

// Save writes the whole store to disk.
func (ls *LocalStorage) Save() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.saveLocked()
}

func (ls *LocalStorage) saveLocked() error {
	data, err := json.MarshalIndent(ls.items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode storage: %w", err)
	}
	if err := os.WriteFile(ls.path, data, 0600); err != nil {
		return fmt.Errorf("write storage: %w", err)
	}
	return nil
}

// GetItem returns the value stored under key.
func (ls *LocalStorage) GetItem(key string) (string, bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	v, ok := ls.items[key]
	return v, ok
}

// SetItem stores value under key and persists the store.
func (ls *LocalStorage) SetItem(key, value string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.items[key] = value
	return ls.saveLocked()
}

// RemoveItem deletes key and persists the store. Removing a missing key is
// not an error and does not touch the file.
func (ls *LocalStorage) RemoveItem(key string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if _, ok := ls.items[key]; !ok {
		return nil
	}
	delete(ls.items, key)
	return ls.saveLocked()
}
