package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rishi-narain/ad-tester/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const recentActivityLimit = 10

// EvaluationRepository stores tracked evaluations and the users behind them.
type EvaluationRepository interface {
	TrackEvaluation(ctx context.Context, rec *models.EvaluationRecord) error
	ListEvaluations(ctx context.Context) ([]models.EvaluationRecord, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

type evaluationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	clock  func() time.Time
}

func NewEvaluationRepository(db *sqlx.DB, logger *zap.Logger) EvaluationRepository {
	return &evaluationRepository{db: db, logger: logger, clock: now}
}

// TrackEvaluation inserts the record and upserts its user in one transaction.
func (r *evaluationRepository) TrackEvaluation(ctx context.Context, rec *models.EvaluationRecord) error {
	rec.Timestamp = rec.Timestamp.UTC().Truncate(time.Second)
	if rec.Timestamp.IsZero() {
		rec.Timestamp = r.clock()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if rec.UserID != nil {
		upsert := tx.Rebind(`
			INSERT INTO users (id, first_seen, last_active, total_evaluations)
			VALUES (?, ?, ?, 1)
			ON CONFLICT (id) DO UPDATE SET
				last_active = excluded.last_active,
				total_evaluations = users.total_evaluations + 1`)
		if _, err := tx.ExecContext(ctx, upsert, *rec.UserID, rec.Timestamp, rec.Timestamp); err != nil {
			return fmt.Errorf("failed to upsert user: %w", err)
		}
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO evaluations (id, created_at, persona_id, persona_title, resonance_score, content_type, reverse_mode, user_id)
		VALUES (:id, :created_at, :persona_id, :persona_title, :resonance_score, :content_type, :reverse_mode, :user_id)`, rec)
	if err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit evaluation: %w", err)
	}

	r.logger.Debug("Evaluation tracked", zap.String("id", rec.ID), zap.String("persona_id", rec.PersonaID))
	return nil
}

// ListEvaluations returns every tracked evaluation, newest first.
func (r *evaluationRepository) ListEvaluations(ctx context.Context) ([]models.EvaluationRecord, error) {
	records := []models.EvaluationRecord{}
	query := `
		SELECT id, created_at, persona_id, persona_title, resonance_score, content_type, reverse_mode, user_id
		FROM evaluations
		ORDER BY created_at DESC, id`
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return records, nil
}

// ListUsers returns users, most recently active first.
func (r *evaluationRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	query := `SELECT id, first_seen, last_active, total_evaluations FROM users ORDER BY last_active DESC, id`
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Stats builds the admin dashboard summary.
func (r *evaluationRepository) Stats(ctx context.Context) (*models.Stats, error) {
	current := r.clock()
	startOfDay := time.Date(current.Year(), current.Month(), current.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := current.Add(-7 * 24 * time.Hour)

	var totals struct {
		Total   int     `db:"total"`
		Average float64 `db:"average"`
		Today   int     `db:"today"`
		Week    int     `db:"week"`
	}
	query := r.db.Rebind(`
		SELECT
			COUNT(*) AS total,
			COALESCE(AVG(resonance_score), 0) AS average,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS today,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS week
		FROM evaluations`)
	if err := r.db.GetContext(ctx, &totals, query, startOfDay, weekAgo); err != nil {
		return nil, fmt.Errorf("failed to count evaluations: %w", err)
	}

	stats := &models.Stats{
		TotalEvaluations:    totals.Total,
		AverageScore:        float64(int(totals.Average*10+0.5)) / 10,
		EvaluationsToday:    totals.Today,
		EvaluationsThisWeek: totals.Week,
	}

	if err := r.db.GetContext(ctx, &stats.TotalUsers, `SELECT COUNT(*) FROM users`); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	stats.EvaluationsByPersona = []models.PersonaCount{}
	byPersona := `
		SELECT persona_title AS persona, COUNT(*) AS count
		FROM evaluations
		GROUP BY persona_title
		ORDER BY count DESC, persona`
	if err := r.db.SelectContext(ctx, &stats.EvaluationsByPersona, byPersona); err != nil {
		return nil, fmt.Errorf("failed to group evaluations: %w", err)
	}
	if len(stats.EvaluationsByPersona) > 0 {
		stats.TopPersona = stats.EvaluationsByPersona[0].Persona
	}

	var recent []models.EvaluationRecord
	recentQuery := r.db.Rebind(`
		SELECT id, created_at, persona_id, persona_title, resonance_score, content_type, reverse_mode, user_id
		FROM evaluations
		ORDER BY created_at DESC, id
		LIMIT ?`)
	if err := r.db.SelectContext(ctx, &recent, recentQuery, recentActivityLimit); err != nil {
		return nil, fmt.Errorf("failed to load recent activity: %w", err)
	}
	stats.RecentActivity = make([]models.Activity, 0, len(recent))
	for _, rec := range recent {
		kind := "evaluation"
		if rec.ReverseMode {
			kind = "reverse_evaluation"
		}
		stats.RecentActivity = append(stats.RecentActivity, models.Activity{
			ID:        rec.ID,
			Type:      kind,
			Timestamp: rec.Timestamp,
			Details:   fmt.Sprintf("%s scored %d (%s)", rec.PersonaTitle, rec.ResonanceScore, rec.ContentType),
		})
	}

	return stats, nil
}
