package persona

import (
	"context"
	"sync"
	"time"

	"github.com/rishi-narain/ad-tester/internal/models"
)

// MemoryStore is an in-process catalog. Every mutation swaps in a new
// snapshot, so readers holding an older one are unaffected.
type MemoryStore struct {
	mu       sync.RWMutex
	current  *Snapshot
	defaults []models.Persona
}

// NewMemoryStore seeds the store with the given personas.
func NewMemoryStore(seed []models.Persona) *MemoryStore {
	return &MemoryStore{
		current:  NewSnapshot(seed),
		defaults: append([]models.Persona(nil), seed...),
	}
}

func (m *MemoryStore) Snapshot(_ context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, nil
}

func (m *MemoryStore) List(ctx context.Context) ([]models.Persona, error) {
	snap, _ := m.Snapshot(ctx)
	return snap.All(), nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*models.Persona, error) {
	snap, _ := m.Snapshot(ctx)
	p, ok := snap.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) Create(_ context.Context, p *models.Persona) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.current.Get(p.ID); exists {
		return ErrAlreadyExists
	}
	p.Position = m.current.Len()
	p.UpdatedAt = time.Now()
	m.current = NewSnapshot(append(m.current.All(), *p))
	return nil
}

func (m *MemoryStore) Update(_ context.Context, p *models.Persona) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.current.All()
	i, ok := m.current.index[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.Position = all[i].Position
	p.UpdatedAt = time.Now()
	all[i] = *p
	m.current = NewSnapshot(all)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.current.index[id]
	if !ok {
		return ErrNotFound
	}
	all := m.current.All()
	m.current = NewSnapshot(append(all[:i], all[i+1:]...))
	return nil
}

// Reset restores the seed personas.
func (m *MemoryStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = NewSnapshot(m.defaults)
	return nil
}
