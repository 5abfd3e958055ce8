package importer

import "sync"

// SessionStore is the registry that owns all ImportSession instances.
// It is injected into the engine so a durable or distributed backing
// store can be substituted without touching engine logic; the default
// is the in-process MemorySessionStore.
//
// Stores hand out *ImportSession pointers; the sessions themselves
// carry their own locking, so a store only needs to make the registry
// operations safe for concurrent use.
type SessionStore interface {
	Put(s *ImportSession)
	Get(id string) (*ImportSession, bool)
	Delete(id string)
	All() []*ImportSession
}

// MemorySessionStore is a process-lifetime session registry.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*ImportSession
}

// NewMemorySessionStore creates an empty registry.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*ImportSession),
	}
}

// Put registers a session, replacing any session with the same id.
func (m *MemorySessionStore) Put(s *ImportSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Get returns the session with the given id.
func (m *MemorySessionStore) Get(id string) (*ImportSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete removes a session. Removing an absent id is a no-op.
func (m *MemorySessionStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// All returns the registered sessions in unspecified order.
func (m *MemorySessionStore) All() []*ImportSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*ImportSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Len returns the number of registered sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
