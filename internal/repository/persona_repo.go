package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rishi-narain/ad-tester/internal/models"
	"github.com/rishi-narain/ad-tester/internal/persona"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// PersonaRepository is the database-backed persona.Store. Snapshots are
// cached until the next write.
type PersonaRepository struct {
	db       *sqlx.DB
	defaults []models.Persona
	logger   *zap.Logger

	mu       sync.RWMutex
	snapshot *persona.Snapshot
	gen      uint64
}

var _ persona.Store = (*PersonaRepository)(nil)

// NewPersonaRepository seeds the table with defaults when it is empty.
func NewPersonaRepository(ctx context.Context, db *sqlx.DB, defaults []models.Persona, logger *zap.Logger) (*PersonaRepository, error) {
	r := &PersonaRepository{db: db, defaults: defaults, logger: logger}

	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM personas"); err != nil {
		return nil, fmt.Errorf("failed to count personas: %w", err)
	}
	if count == 0 {
		if err := r.Reset(ctx); err != nil {
			return nil, fmt.Errorf("failed to seed personas: %w", err)
		}
		logger.Info("Seeded default personas", zap.Int("count", len(defaults)))
	}

	return r, nil
}

func (r *PersonaRepository) Snapshot(ctx context.Context) (*persona.Snapshot, error) {
	r.mu.RLock()
	snap, gen := r.snapshot, r.gen
	r.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	snap = persona.NewSnapshot(all)

	// a write during the load makes this snapshot stale; hand it out
	// but do not cache it
	r.mu.Lock()
	if r.gen == gen {
		r.snapshot = snap
	}
	r.mu.Unlock()
	return snap, nil
}

func (r *PersonaRepository) invalidate() {
	r.mu.Lock()
	r.snapshot = nil
	r.gen++
	r.mu.Unlock()
}

func (r *PersonaRepository) List(ctx context.Context) ([]models.Persona, error) {
	var personas []models.Persona
	query := `SELECT id, title, description, system_prompt, position, updated_at FROM personas ORDER BY position, id`
	if err := r.db.SelectContext(ctx, &personas, query); err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	return personas, nil
}

func (r *PersonaRepository) Get(ctx context.Context, id string) (*models.Persona, error) {
	var p models.Persona
	query := r.db.Rebind(`SELECT id, title, description, system_prompt, position, updated_at FROM personas WHERE id = ?`)
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persona.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get persona: %w", err)
	}
	return &p, nil
}

func (r *PersonaRepository) Create(ctx context.Context, p *models.Persona) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM personas WHERE id = ?`), p.ID); err != nil {
		return fmt.Errorf("failed to check persona: %w", err)
	}
	if exists > 0 {
		return persona.ErrAlreadyExists
	}

	if err := tx.GetContext(ctx, &p.Position, `SELECT COALESCE(MAX(position) + 1, 0) FROM personas`); err != nil {
		return fmt.Errorf("failed to get next position: %w", err)
	}
	p.UpdatedAt = now()

	if err := insertPersona(ctx, tx, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit persona: %w", err)
	}

	r.invalidate()
	r.logger.Info("Persona created", zap.String("persona_id", p.ID))
	return nil
}

func (r *PersonaRepository) Update(ctx context.Context, p *models.Persona) error {
	p.UpdatedAt = now()
	query := r.db.Rebind(`UPDATE personas SET title = ?, description = ?, system_prompt = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, p.Title, p.Description, p.SystemPrompt, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update persona: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return persona.ErrNotFound
	}

	r.invalidate()
	r.logger.Info("Persona updated", zap.String("persona_id", p.ID))
	return nil
}

func (r *PersonaRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM personas WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete persona: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return persona.ErrNotFound
	}

	r.invalidate()
	r.logger.Info("Persona deleted", zap.String("persona_id", id))
	return nil
}

// Reset replaces the table contents with the defaults.
func (r *PersonaRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM personas`); err != nil {
		return fmt.Errorf("failed to clear personas: %w", err)
	}
	ts := now()
	for i := range r.defaults {
		p := r.defaults[i]
		p.Position = i
		p.UpdatedAt = ts
		if err := insertPersona(ctx, tx, &p); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	r.invalidate()
	return nil
}

func insertPersona(ctx context.Context, tx *sqlx.Tx, p *models.Persona) error {
	query := tx.Rebind(`INSERT INTO personas (id, title, description, system_prompt, position, updated_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, query, p.ID, p.Title, p.Description, p.SystemPrompt, p.Position, p.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert persona %s: %w", p.ID, err)
	}
	return nil
}

// now is UTC truncated to seconds so sqlite's text timestamps compare in
// order.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
