package persona

import (
	"context"

	"github.com/rishi-narain/ad-tester/internal/models"
)

// Store is the admin-facing catalog. Implemented by MemoryStore and
// repository.PersonaRepository.
type Store interface {
	Catalog
	List(ctx context.Context) ([]models.Persona, error)
	Get(ctx context.Context, id string) (*models.Persona, error)
	Create(ctx context.Context, p *models.Persona) error
	Update(ctx context.Context, p *models.Persona) error
	Delete(ctx context.Context, id string) error
	Reset(ctx context.Context) error
}
