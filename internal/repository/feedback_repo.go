package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rishi-narain/ad-tester/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// FeedbackRepository stores thumbs and written feedback.
type FeedbackRepository interface {
	Create(ctx context.Context, fb *models.Feedback) error
	List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error)
}

type feedbackRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewFeedbackRepository(db *sqlx.DB, logger *zap.Logger) FeedbackRepository {
	return &feedbackRepository{db: db, logger: logger}
}

type feedbackRow struct {
	ID           string         `db:"id"`
	Type         string         `db:"type"`
	Page         string         `db:"page"`
	Data         string         `db:"data"`
	EvaluationID sql.NullString `db:"evaluation_id"`
	PersonaID    sql.NullString `db:"persona_id"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r *feedbackRepository) Create(ctx context.Context, fb *models.Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	fb.Timestamp = now()

	data, err := json.Marshal(fb.Data)
	if err != nil {
		return fmt.Errorf("failed to encode feedback data: %w", err)
	}

	query := r.db.Rebind(`
		INSERT INTO feedback (id, type, page, data, evaluation_id, persona_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.db.ExecContext(ctx, query,
		fb.ID,
		string(fb.Type),
		fb.Page,
		string(data),
		nullString(fb.EvaluationID),
		nullString(fb.PersonaID),
		fb.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	r.logger.Info("Feedback stored",
		zap.String("id", fb.ID),
		zap.String("type", string(fb.Type)),
		zap.String("page", fb.Page))
	return nil
}

// List returns feedback newest first, optionally narrowed by page and type.
func (r *feedbackRepository) List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Page != "" {
		where = append(where, "page = ?")
		args = append(args, filter.Page)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}

	query := `SELECT id, type, page, data, evaluation_id, persona_id, created_at FROM feedback`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	var rows []feedbackRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	out := make([]models.Feedback, 0, len(rows))
	for _, row := range rows {
		fb := models.Feedback{
			ID:           row.ID,
			Type:         models.FeedbackType(row.Type),
			Timestamp:    row.CreatedAt,
			Page:         row.Page,
			EvaluationID: row.EvaluationID.String,
			PersonaID:    row.PersonaID.String,
		}
		if err := json.Unmarshal([]byte(row.Data), &fb.Data); err != nil {
			r.logger.Warn("Skipping corrupt feedback data", zap.String("id", row.ID), zap.Error(err))
			continue
		}
		out = append(out, fb)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
