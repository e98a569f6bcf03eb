package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/engprogress/pkg/models"
)

// WordProgressRepository handles database operations for word progress
type WordProgressRepository struct {
	q sqlx.ExtContext
}

// NewWordProgressRepository creates a repository over a DB or a transaction
func NewWordProgressRepository(q sqlx.ExtContext) *WordProgressRepository {
	return &WordProgressRepository{q: q}
}

// GetByWord returns one word of an aggregate, or nil if it was never attempted
func (r *WordProgressRepository) GetByWord(ctx context.Context, aggregateID, word string) (*models.WordProgress, error) {
	var w models.WordProgress
	query := r.q.Rebind("SELECT * FROM word_progress WHERE learning_progress_id = ? AND word = ?")
	err := sqlx.GetContext(ctx, r.q, &w, query, aggregateID, word)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word progress: %w", err)
	}
	return &w, nil
}

// ListByAggregate returns all words of an aggregate in alphabetical order
func (r *WordProgressRepository) ListByAggregate(ctx context.Context, aggregateID string) ([]models.WordProgress, error) {
	words := []models.WordProgress{}
	query := r.q.Rebind("SELECT * FROM word_progress WHERE learning_progress_id = ? ORDER BY word")
	if err := sqlx.SelectContext(ctx, r.q, &words, query, aggregateID); err != nil {
		return nil, fmt.Errorf("failed to list word progress: %w", err)
	}
	return words, nil
}

// GetByMasteryLevels returns the words of an aggregate that sit at any of levels
func (r *WordProgressRepository) GetByMasteryLevels(ctx context.Context, aggregateID string, levels []models.MasteryLevel) ([]models.WordProgress, error) {
	words := []models.WordProgress{}
	if len(levels) == 0 {
		return words, nil
	}
	names := make([]string, 0, len(levels))
	for _, l := range levels {
		names = append(names, l.String())
	}

	query, args, err := sqlx.In(`
		SELECT * FROM word_progress
		WHERE learning_progress_id = ? AND mastery_level IN (?)
		ORDER BY last_reviewed_at, word
	`, aggregateID, names)
	if err != nil {
		return nil, fmt.Errorf("failed to build mastery level query: %w", err)
	}
	if err := sqlx.SelectContext(ctx, r.q, &words, r.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get words by mastery level: %w", err)
	}
	return words, nil
}

// Upsert inserts the word or updates the existing row with the same
// (learning_progress_id, word). first_seen_at is never overwritten.
func (r *WordProgressRepository) Upsert(ctx context.Context, w *models.WordProgress) error {
	query := `
		INSERT INTO word_progress (
			id, learning_progress_id, word, translation, mastery_level, times_correct, times_incorrect,
			first_seen_at, last_reviewed_at, related_lesson_step_ids, related_assessment_step_ids,
			created_at, updated_at
		) VALUES (
			:id, :learning_progress_id, :word, :translation, :mastery_level, :times_correct, :times_incorrect,
			:first_seen_at, :last_reviewed_at, :related_lesson_step_ids, :related_assessment_step_ids,
			:created_at, :updated_at
		)
		ON CONFLICT (learning_progress_id, word) DO UPDATE SET
			translation = excluded.translation,
			mastery_level = excluded.mastery_level,
			times_correct = excluded.times_correct,
			times_incorrect = excluded.times_incorrect,
			last_reviewed_at = excluded.last_reviewed_at,
			related_lesson_step_ids = excluded.related_lesson_step_ids,
			related_assessment_step_ids = excluded.related_assessment_step_ids,
			updated_at = excluded.updated_at
		RETURNING id
	`
	id, err := namedReturningID(ctx, r.q, query, w)
	if err != nil {
		return fmt.Errorf("failed to upsert word progress %q: %w", w.Word, err)
	}
	w.ID = id
	return nil
}
