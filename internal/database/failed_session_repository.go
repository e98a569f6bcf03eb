package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/engprogress/pkg/models"
)

// FailedSessionRepository handles database operations for the failed session outbox
type FailedSessionRepository struct {
	q sqlx.ExtContext
}

// NewFailedSessionRepository creates a repository over a DB or a transaction
func NewFailedSessionRepository(q sqlx.ExtContext) *FailedSessionRepository {
	return &FailedSessionRepository{q: q}
}

// Create stores an abandoned session update
func (r *FailedSessionRepository) Create(ctx context.Context, userID string, session models.Session, cause error, now time.Time) (*models.FailedSession, error) {
	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	f := &models.FailedSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      session.Kind,
		Payload:   string(payload),
		LastError: errorText(cause),
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO failed_sessions (id, user_id, kind, payload, attempts, last_error, created_at, updated_at)
		VALUES (:id, :user_id, :kind, :payload, :attempts, :last_error, :created_at, :updated_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.q, query, f); err != nil {
		return nil, fmt.Errorf("failed to record failed session: %w", err)
	}
	return f, nil
}

// List returns the oldest failed sessions with fewer than maxAttempts replays
func (r *FailedSessionRepository) List(ctx context.Context, limit, maxAttempts int) ([]models.FailedSession, error) {
	failed := []models.FailedSession{}
	query := r.q.Rebind(`
		SELECT * FROM failed_sessions
		WHERE attempts < ?
		ORDER BY created_at
		LIMIT ?
	`)
	if err := sqlx.SelectContext(ctx, r.q, &failed, query, maxAttempts, limit); err != nil {
		return nil, fmt.Errorf("failed to list failed sessions: %w", err)
	}
	return failed, nil
}

// Delete removes a failed session
func (r *FailedSessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, r.q.Rebind("DELETE FROM failed_sessions WHERE id = ?"), id); err != nil {
		return fmt.Errorf("failed to delete failed session: %w", err)
	}
	return nil
}

// MarkAttempt counts one more unsuccessful replay
func (r *FailedSessionRepository) MarkAttempt(ctx context.Context, id string, cause error, now time.Time) error {
	query := r.q.Rebind(`
		UPDATE failed_sessions
		SET attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE id = ?
	`)
	if _, err := r.q.ExecContext(ctx, query, errorText(cause), now, id); err != nil {
		return fmt.Errorf("failed to update failed session: %w", err)
	}
	return nil
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
