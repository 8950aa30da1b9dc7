package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one stored value.
type Entry struct {
	Value     string `json:"value"`
	UpdatedAt int64  `json:"updated_at"`
}

// MemoryStorage keeps entries in process memory. Nothing survives a restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]map[string]Entry
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make(map[string]map[string]Entry)}
}

func (m *MemoryStorage) Get(_ context.Context, namespace, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[namespace][key]
	return e.Value, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, namespace, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.entries[namespace]
	if !ok {
		ns = make(map[string]Entry)
		m.entries[namespace] = ns
	}
	ns[key] = Entry{Value: value, UpdatedAt: time.Now().Unix()}
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, namespace string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	removeKeys(m.entries, namespace, keys)
	return nil
}

// Purge drops entries not updated since cutoff and reports how many went.
func (m *MemoryStorage) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return purge(m.entries, cutoff), nil
}

// FileStorage persists entries as one JSON document, rewritten after every
// mutation.
type FileStorage struct {
	// Namespaces maps namespace -> key -> entry.
	Namespaces map[string]map[string]Entry `json:"namespaces"`

	path string
	mu   sync.Mutex
}

// OpenFileStorage loads path, starting empty when the file does not exist.
func OpenFileStorage(path string) (*FileStorage, error) {
	fs := &FileStorage{path: path}
	if err := fs.Load(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Load re-reads the file.
func (fs *FileStorage) Load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			fs.Namespaces = make(map[string]map[string]Entry)
			return nil
		}
		return fmt.Errorf("open storage: %w", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(fs); err != nil {
		return fmt.Errorf("decode storage %s: %w", fs.path, err)
	}
	if fs.Namespaces == nil {
		fs.Namespaces = make(map[string]map[string]Entry)
	}
	return nil
}

// save writes to a temp file and renames it over the target. Callers hold mu.
func (fs *FileStorage) save() error {
	if dir := filepath.Dir(fs.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	tmp := fs.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	if err := json.NewEncoder(f).Encode(fs); err != nil {
		f.Close()
		return fmt.Errorf("encode storage: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	return os.Rename(tmp, fs.path)
}

func (fs *FileStorage) Get(_ context.Context, namespace, key string) (string, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, ok := fs.Namespaces[namespace][key]
	return e.Value, ok, nil
}

func (fs *FileStorage) Set(_ context.Context, namespace, key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	ns, ok := fs.Namespaces[namespace]
	if !ok {
		ns = make(map[string]Entry)
		fs.Namespaces[namespace] = ns
	}
	ns[key] = Entry{Value: value, UpdatedAt: time.Now().Unix()}
	return fs.save()
}

func (fs *FileStorage) Remove(_ context.Context, namespace string, keys ...string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !removeKeys(fs.Namespaces, namespace, keys) {
		return nil
	}
	return fs.save()
}

// Purge drops entries not updated since cutoff.
func (fs *FileStorage) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := purge(fs.Namespaces, cutoff)
	if n == 0 {
		return 0, nil
	}
	return n, fs.save()
}

func removeKeys(all map[string]map[string]Entry, namespace string, keys []string) bool {
	ns, ok := all[namespace]
	if !ok {
		return false
	}
	changed := false
	for _, k := range keys {
		if _, ok := ns[k]; ok {
			delete(ns, k)
			changed = true
		}
	}
	if len(ns) == 0 {
		delete(all, namespace)
	}
	return changed
}

func purge(all map[string]map[string]Entry, cutoff time.Time) int64 {
	var n int64
	limit := cutoff.Unix()
	for name, ns := range all {
		for k, e := range ns {
			if e.UpdatedAt < limit {
				delete(ns, k)
				n++
			}
		}
		if len(ns) == 0 {
			delete(all, name)
		}
	}
	return n
}
