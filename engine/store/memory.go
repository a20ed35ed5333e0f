package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/nathoo/brewcore/engine/state"
	"github.com/nathoo/brewcore/types"
)

// MemoryBackend keeps records in memory. It is used for tests and for
// sessions that need no durability.
type MemoryBackend struct {
	mu      sync.Mutex
	records map[uuid.UUID]*types.ActorRecord
	writes  int
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: map[uuid.UUID]*types.ActorRecord{}}
}

// LoadRecord returns a copy of the stored record.
func (m *MemoryBackend) LoadRecord(id uuid.UUID) (*types.ActorRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return state.Clone(r), nil
}

// SaveRecord stores a copy of r.
func (m *MemoryBackend) SaveRecord(r *types.ActorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = state.Clone(r)
	m.writes++
	return nil
}

// Writes returns how many times SaveRecord was called.
func (m *MemoryBackend) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
