package persona

import (
	"context"
	"errors"

	"github.com/rishi-narain/ad-tester/internal/models"
)

var (
	ErrNotFound      = errors.New("persona not found")
	ErrAlreadyExists = errors.New("persona with this ID already exists")
)

// Catalog hands out a point-in-time view of the personas. Evaluations
// take one snapshot per request and never see later admin edits.
type Catalog interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Snapshot is an immutable, ordered view of the catalog.
type Snapshot struct {
	personas []models.Persona
	index    map[string]int
}

// NewSnapshot copies personas in the given order. Later duplicates of
// an ID are dropped.
func NewSnapshot(personas []models.Persona) *Snapshot {
	s := &Snapshot{
		personas: make([]models.Persona, 0, len(personas)),
		index:    make(map[string]int, len(personas)),
	}
	for _, p := range personas {
		if _, dup := s.index[p.ID]; dup {
			continue
		}
		s.index[p.ID] = len(s.personas)
		s.personas = append(s.personas, p)
	}
	return s
}

// All returns the personas in catalog order. The slice is a copy.
func (s *Snapshot) All() []models.Persona {
	out := make([]models.Persona, len(s.personas))
	copy(out, s.personas)
	return out
}

// Get looks a persona up by ID.
func (s *Snapshot) Get(id string) (models.Persona, bool) {
	i, ok := s.index[id]
	if !ok {
		return models.Persona{}, false
	}
	return s.personas[i], true
}

func (s *Snapshot) Len() int {
	return len(s.personas)
}
