package session

import (
	"context"
	"sync"
)

// MemoryStore keeps session state in a process-local map. Suitable for
// tests and single-node deployments without persistence.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*State
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*State)}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id].Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*State) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.sessions[id].Clone()
	if err := fn(state); err != nil {
		return err
	}
	m.sessions[id] = state
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
