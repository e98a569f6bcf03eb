package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/engprogress/internal/progress"
	"github.com/example/engprogress/pkg/models"
)

// LearningProgressRepository handles database operations for the per-user aggregate
type LearningProgressRepository struct {
	q sqlx.ExtContext
}

// NewLearningProgressRepository creates a repository over a DB or a transaction
func NewLearningProgressRepository(q sqlx.ExtContext) *LearningProgressRepository {
	return &LearningProgressRepository{q: q}
}

// GetByUser returns the aggregate of a user, or nil if there is none
func (r *LearningProgressRepository) GetByUser(ctx context.Context, userID string) (*models.LearningProgress, error) {
	var p models.LearningProgress
	err := sqlx.GetContext(ctx, r.q, &p, r.q.Rebind("SELECT * FROM learning_progress WHERE user_id = ?"), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learning progress: %w", err)
	}
	return &p, nil
}

// Create inserts a new aggregate. A second aggregate for the same user is a conflict.
func (r *LearningProgressRepository) Create(ctx context.Context, p *models.LearningProgress) error {
	query := `
		INSERT INTO learning_progress (
			id, user_id, estimated_proficiency_level, overall_score, learning_trajectory,
			strengths, weaknesses, last_lesson_completed_at, last_assessment_completed_at,
			version, created_at, updated_at
		) VALUES (
			:id, :user_id, :estimated_proficiency_level, :overall_score, :learning_trajectory,
			:strengths, :weaknesses, :last_lesson_completed_at, :last_assessment_completed_at,
			:version, :created_at, :updated_at
		)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.q, query, p); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("learning progress for user %s already exists: %w", p.UserID, progress.ErrConflict)
		}
		return fmt.Errorf("failed to create learning progress: %w", err)
	}
	return nil
}

type versionedProgress struct {
	models.LearningProgress
	ExpectedVersion int64 `db:"expected_version"`
}

// UpdateVersioned writes p only if the stored version still equals expected
func (r *LearningProgressRepository) UpdateVersioned(ctx context.Context, p *models.LearningProgress, expected int64) error {
	query := `
		UPDATE learning_progress SET
			estimated_proficiency_level = :estimated_proficiency_level,
			overall_score = :overall_score,
			learning_trajectory = :learning_trajectory,
			strengths = :strengths,
			weaknesses = :weaknesses,
			last_lesson_completed_at = :last_lesson_completed_at,
			last_assessment_completed_at = :last_assessment_completed_at,
			version = :version,
			updated_at = :updated_at
		WHERE id = :id AND version = :expected_version
	`
	result, err := sqlx.NamedExecContext(ctx, r.q, query, versionedProgress{LearningProgress: *p, ExpectedVersion: expected})
	if err != nil {
		return fmt.Errorf("failed to update learning progress: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("learning progress %s is no longer at version %d: %w", p.ID, expected, progress.ErrConflict)
	}
	return nil
}
