package progress

import (
	"context"
	"errors"

	"github.com/example/engprogress/pkg/models"
)

// ErrConflict is returned by Store.Commit when the aggregate changed since it was loaded
var ErrConflict = errors.New("learning progress was modified concurrently")

// Changes is everything one session writes. Store.Commit applies it atomically.
type Changes struct {
	// Aggregate is the recomputed root record. A zero ID means it does not exist yet.
	Aggregate *models.LearningProgress
	// ExpectedVersion is the version the aggregate had when it was loaded, 0 for a new one
	ExpectedVersion int64
	Topics          []*models.TopicProgress
	Words           []*models.WordProgress
	// ResolvesFailure is the failed-session row this commit replays. It is
	// deleted in the same transaction so a session can never land twice.
	ResolvesFailure string
}

// Store is the persistence contract the orchestrator needs. Reads return nil, nil
// for missing rows. Topics are unique per (aggregate, topic name) and words per
// (aggregate, word).
type Store interface {
	GetAggregate(ctx context.Context, userID string) (*models.LearningProgress, error)
	GetTopic(ctx context.Context, aggregateID, topicName string) (*models.TopicProgress, error)
	GetWord(ctx context.Context, aggregateID, word string) (*models.WordProgress, error)
	GetWordsByMasteryLevels(ctx context.Context, aggregateID string, levels []models.MasteryLevel) ([]models.WordProgress, error)
	ListTopics(ctx context.Context, aggregateID string) ([]models.TopicProgress, error)
	ListWords(ctx context.Context, aggregateID string) ([]models.WordProgress, error)

	// Commit upserts the aggregate, topics and words in one transaction and
	// returns the stored aggregate with its new version. It fails with
	// ErrConflict if the stored version differs from ExpectedVersion.
	Commit(ctx context.Context, changes Changes) (*models.LearningProgress, error)
}

// FailureSink receives session updates that were abandoned so they can be replayed
type FailureSink interface {
	RecordFailure(ctx context.Context, userID string, session models.Session, cause error) error
}

// FailureQueue is a FailureSink that can also be drained
type FailureQueue interface {
	FailureSink
	ListFailed(ctx context.Context, limit, maxAttempts int) ([]models.FailedSession, error)
	DeleteFailed(ctx context.Context, id string) error
	MarkFailedAttempt(ctx context.Context, id string, cause error) error
}
