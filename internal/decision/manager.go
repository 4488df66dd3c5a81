package decision

import (
	"sync"
)

// Manager owns the decision stores, one per study uid. A store lives while
// its study view does; Release drops it only when no local edits would be
// lost.
type Manager struct {
	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager creates an empty store manager.
func NewManager() *Manager {
	return &Manager{stores: make(map[string]*Store)}
}

// GetOrCreate returns the store for a study, creating it on first access.
func (m *Manager) GetOrCreate(studyUID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	store, ok := m.stores[studyUID]
	if !ok {
		store = NewStore(studyUID)
		m.stores[studyUID] = store
	}
	return store
}

// Get returns the store for a study, or nil when none exists.
func (m *Manager) Get(studyUID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stores[studyUID]
}

// Release discards the store unless it carries unsubmitted reviewer edits.
// Returns whether the store was removed.
func (m *Manager) Release(studyUID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	store, ok := m.stores[studyUID]
	if !ok {
		return true
	}
	if store.HasUserChanges() {
		return false
	}
	delete(m.stores, studyUID)
	return true
}

// Len returns the number of live stores.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}
