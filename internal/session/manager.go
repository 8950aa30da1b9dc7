package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/gophtodo/internal/client/storage"
)

// Manager hands out one Store per storage namespace, loading each from
// storage on first use.
type Manager struct {
	auth    Authenticator
	storage storage.Storage
	log     *zap.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(auth Authenticator, st storage.Storage, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		auth:    auth,
		storage: st,
		log:     log,
		stores:  make(map[string]*Store),
	}
}

// Get returns the Store of namespace. A Store whose load failed is still
// returned, anonymous. Loading happens outside the lock; when two callers
// race, the first Store cached wins.
func (m *Manager) Get(ctx context.Context, namespace string) *Store {
	m.mu.Lock()
	s, ok := m.stores[namespace]
	m.mu.Unlock()
	if ok {
		return s
	}

	s = New(m.auth, m.storage, namespace, m.log)
	if err := s.Load(ctx); err != nil {
		m.log.Warn("session load failed", zap.String("namespace", namespace), zap.Error(err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.stores[namespace]; ok {
		return cached
	}
	m.stores[namespace] = s
	return s
}

// Forget drops the cached Store of namespace. Persisted data is untouched.
func (m *Manager) Forget(namespace string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, namespace)
}

// Len returns the number of cached stores.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}
