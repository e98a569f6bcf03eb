package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/engprogress/internal/logger"
	"github.com/example/engprogress/internal/progress"
	"github.com/example/engprogress/pkg/models"
)

// SQLStore implements progress.Store and progress.FailureQueue on top of sqlx.
// It works with both the sqlite3 and the postgres driver.
type SQLStore struct {
	db  *sqlx.DB
	log *logger.Logger
	now func() time.Time
}

var (
	_ progress.Store        = (*SQLStore)(nil)
	_ progress.FailureQueue = (*SQLStore)(nil)
)

// NewSQLStore creates a store over an open database with the schema applied
func NewSQLStore(db *sqlx.DB, log *logger.Logger) *SQLStore {
	if log == nil {
		log = logger.NewNop()
	}
	return &SQLStore{
		db:  db,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// DB returns the underlying connection pool
func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

func (s *SQLStore) GetAggregate(ctx context.Context, userID string) (*models.LearningProgress, error) {
	return NewLearningProgressRepository(s.db).GetByUser(ctx, userID)
}

func (s *SQLStore) GetTopic(ctx context.Context, aggregateID, topicName string) (*models.TopicProgress, error) {
	return NewTopicProgressRepository(s.db).GetByName(ctx, aggregateID, topicName)
}

func (s *SQLStore) GetWord(ctx context.Context, aggregateID, word string) (*models.WordProgress, error) {
	return NewWordProgressRepository(s.db).GetByWord(ctx, aggregateID, word)
}

func (s *SQLStore) GetWordsByMasteryLevels(ctx context.Context, aggregateID string, levels []models.MasteryLevel) ([]models.WordProgress, error) {
	return NewWordProgressRepository(s.db).GetByMasteryLevels(ctx, aggregateID, levels)
}

func (s *SQLStore) ListTopics(ctx context.Context, aggregateID string) ([]models.TopicProgress, error) {
	return NewTopicProgressRepository(s.db).ListByAggregate(ctx, aggregateID)
}

func (s *SQLStore) ListWords(ctx context.Context, aggregateID string) ([]models.WordProgress, error) {
	return NewWordProgressRepository(s.db).ListByAggregate(ctx, aggregateID)
}

// Commit writes the aggregate with an optimistic version check, then upserts
// every staged topic and word, all in one transaction.
func (s *SQLStore) Commit(ctx context.Context, changes progress.Changes) (*models.LearningProgress, error) {
	if changes.Aggregate == nil {
		return nil, fmt.Errorf("commit without learning progress")
	}
	now := s.now()
	agg := changes.Aggregate.Clone()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	progressRepo := NewLearningProgressRepository(tx)
	if changes.ExpectedVersion == 0 {
		if agg.ID == "" {
			agg.ID = uuid.NewString()
		}
		agg.Version = 1
		agg.CreatedAt = now
		agg.UpdatedAt = now
		if err := progressRepo.Create(ctx, agg); err != nil {
			return nil, err
		}
	} else {
		agg.Version = changes.ExpectedVersion + 1
		agg.UpdatedAt = now
		if err := progressRepo.UpdateVersioned(ctx, agg, changes.ExpectedVersion); err != nil {
			return nil, err
		}
	}

	topicRepo := NewTopicProgressRepository(tx)
	for _, staged := range changes.Topics {
		t := staged.Clone()
		t.LearningProgressID = agg.ID
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = now
		if err := topicRepo.Upsert(ctx, t); err != nil {
			return nil, err
		}
	}

	wordRepo := NewWordProgressRepository(tx)
	for _, staged := range changes.Words {
		w := staged.Clone()
		w.LearningProgressID = agg.ID
		if w.ID == "" {
			w.ID = uuid.NewString()
		}
		if w.CreatedAt.IsZero() {
			w.CreatedAt = now
		}
		w.UpdatedAt = now
		if err := wordRepo.Upsert(ctx, w); err != nil {
			return nil, err
		}
	}

	if changes.ResolvesFailure != "" {
		if err := NewFailedSessionRepository(tx).Delete(ctx, changes.ResolvesFailure); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit progress: %w", err)
	}
	tx = nil

	s.log.Debug("Committed learning progress",
		"user_id", agg.UserID,
		"version", agg.Version,
		"topics", len(changes.Topics),
		"words", len(changes.Words),
	)
	return agg, nil
}

func (s *SQLStore) RecordFailure(ctx context.Context, userID string, session models.Session, cause error) error {
	f, err := NewFailedSessionRepository(s.db).Create(ctx, userID, session, cause, s.now())
	if err != nil {
		return err
	}
	s.log.Info("Recorded failed session",
		"id", f.ID,
		"user_id", userID,
		"session_id", session.ID,
	)
	return nil
}

func (s *SQLStore) ListFailed(ctx context.Context, limit, maxAttempts int) ([]models.FailedSession, error) {
	return NewFailedSessionRepository(s.db).List(ctx, limit, maxAttempts)
}

func (s *SQLStore) DeleteFailed(ctx context.Context, id string) error {
	return NewFailedSessionRepository(s.db).Delete(ctx, id)
}

func (s *SQLStore) MarkFailedAttempt(ctx context.Context, id string, cause error) error {
	return NewFailedSessionRepository(s.db).MarkAttempt(ctx, id, cause, s.now())
}
