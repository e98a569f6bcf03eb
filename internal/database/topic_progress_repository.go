package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/engprogress/pkg/models"
)

// TopicProgressRepository handles database operations for topic progress
type TopicProgressRepository struct {
	q sqlx.ExtContext
}

// NewTopicProgressRepository creates a repository over a DB or a transaction
func NewTopicProgressRepository(q sqlx.ExtContext) *TopicProgressRepository {
	return &TopicProgressRepository{q: q}
}

// GetByName returns one topic of an aggregate, or nil if it was never studied
func (r *TopicProgressRepository) GetByName(ctx context.Context, aggregateID, name string) (*models.TopicProgress, error) {
	var t models.TopicProgress
	query := r.q.Rebind("SELECT * FROM topic_progress WHERE learning_progress_id = ? AND topic_name = ?")
	err := sqlx.GetContext(ctx, r.q, &t, query, aggregateID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic progress: %w", err)
	}
	return &t, nil
}

// ListByAggregate returns all topics of an aggregate, most recently studied first
func (r *TopicProgressRepository) ListByAggregate(ctx context.Context, aggregateID string) ([]models.TopicProgress, error) {
	topics := []models.TopicProgress{}
	query := r.q.Rebind(`
		SELECT * FROM topic_progress
		WHERE learning_progress_id = ?
		ORDER BY last_studied_at DESC, topic_name
	`)
	if err := sqlx.SelectContext(ctx, r.q, &topics, query, aggregateID); err != nil {
		return nil, fmt.Errorf("failed to list topic progress: %w", err)
	}
	return topics, nil
}

// Upsert inserts the topic or updates the existing row with the same
// (learning_progress_id, topic_name). t.ID is set to the stored row's id.
func (r *TopicProgressRepository) Upsert(ctx context.Context, t *models.TopicProgress) error {
	query := `
		INSERT INTO topic_progress (
			id, learning_progress_id, topic_name, mastery_level, score, last_studied_at,
			related_lesson_ids, related_assessment_ids, created_at, updated_at
		) VALUES (
			:id, :learning_progress_id, :topic_name, :mastery_level, :score, :last_studied_at,
			:related_lesson_ids, :related_assessment_ids, :created_at, :updated_at
		)
		ON CONFLICT (learning_progress_id, topic_name) DO UPDATE SET
			mastery_level = excluded.mastery_level,
			score = excluded.score,
			last_studied_at = excluded.last_studied_at,
			related_lesson_ids = excluded.related_lesson_ids,
			related_assessment_ids = excluded.related_assessment_ids,
			updated_at = excluded.updated_at
		RETURNING id
	`
	id, err := namedReturningID(ctx, r.q, query, t)
	if err != nil {
		return fmt.Errorf("failed to upsert topic progress %q: %w", t.TopicName, err)
	}
	t.ID = id
	return nil
}

// namedReturningID runs a named statement ending in RETURNING id
func namedReturningID(ctx context.Context, q sqlx.ExtContext, query string, arg interface{}) (string, error) {
	rows, err := sqlx.NamedQueryContext(ctx, q, query, arg)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var id string
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", err
		}
		return "", sql.ErrNoRows
	}
	if err := rows.Scan(&id); err != nil {
		return "", err
	}
	return id, rows.Err()
}
