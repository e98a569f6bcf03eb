package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/engprogress/internal/progress"
	"github.com/example/engprogress/pkg/models"
)

// MemoryStore keeps progress in maps. It follows the same contract as SQLStore
// and serves tests and embedders that need no database.
type MemoryStore struct {
	mu         sync.RWMutex
	aggregates map[string]*models.LearningProgress         // by user id
	topics     map[string]map[string]*models.TopicProgress // by aggregate id, topic name
	words      map[string]map[string]*models.WordProgress  // by aggregate id, word
	failed     map[string]*models.FailedSession
	now        func() time.Time
}

var (
	_ progress.Store        = (*MemoryStore)(nil)
	_ progress.FailureQueue = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		aggregates: make(map[string]*models.LearningProgress),
		topics:     make(map[string]map[string]*models.TopicProgress),
		words:      make(map[string]map[string]*models.WordProgress),
		failed:     make(map[string]*models.FailedSession),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) GetAggregate(ctx context.Context, userID string) (*models.LearningProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.aggregates[userID].Clone(), nil
}

func (m *MemoryStore) GetTopic(ctx context.Context, aggregateID, topicName string) (*models.TopicProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.topics[aggregateID][topicName].Clone(), nil
}

func (m *MemoryStore) GetWord(ctx context.Context, aggregateID, word string) (*models.WordProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.words[aggregateID][word].Clone(), nil
}

func (m *MemoryStore) GetWordsByMasteryLevels(ctx context.Context, aggregateID string, levels []models.MasteryLevel) ([]models.WordProgress, error) {
	wanted := make(map[models.MasteryLevel]bool, len(levels))
	for _, l := range levels {
		wanted[l] = true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	words := []models.WordProgress{}
	for _, w := range m.words[aggregateID] {
		if wanted[w.MasteryLevel] {
			words = append(words, *w.Clone())
		}
	}
	sort.Slice(words, func(i, j int) bool {
		if !words[i].LastReviewedAt.Equal(words[j].LastReviewedAt) {
			return words[i].LastReviewedAt.Before(words[j].LastReviewedAt)
		}
		return words[i].Word < words[j].Word
	})
	return words, nil
}

func (m *MemoryStore) ListTopics(ctx context.Context, aggregateID string) ([]models.TopicProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	topics := []models.TopicProgress{}
	for _, t := range m.topics[aggregateID] {
		topics = append(topics, *t.Clone())
	}
	sort.Slice(topics, func(i, j int) bool {
		if !topics[i].LastStudiedAt.Equal(topics[j].LastStudiedAt) {
			return topics[i].LastStudiedAt.After(topics[j].LastStudiedAt)
		}
		return topics[i].TopicName < topics[j].TopicName
	})
	return topics, nil
}

func (m *MemoryStore) ListWords(ctx context.Context, aggregateID string) ([]models.WordProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	words := []models.WordProgress{}
	for _, w := range m.words[aggregateID] {
		words = append(words, *w.Clone())
	}
	sort.Slice(words, func(i, j int) bool { return words[i].Word < words[j].Word })
	return words, nil
}

// Commit applies changes under the write lock, so it is atomic
func (m *MemoryStore) Commit(ctx context.Context, changes progress.Changes) (*models.LearningProgress, error) {
	if changes.Aggregate == nil {
		return nil, fmt.Errorf("commit without learning progress")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	agg := changes.Aggregate.Clone()
	stored := m.aggregates[agg.UserID]
	switch {
	case changes.ExpectedVersion == 0 && stored != nil:
		return nil, fmt.Errorf("learning progress for user %s already exists: %w", agg.UserID, progress.ErrConflict)
	case changes.ExpectedVersion != 0 && (stored == nil || stored.Version != changes.ExpectedVersion):
		return nil, fmt.Errorf("learning progress of user %s is no longer at version %d: %w", agg.UserID, changes.ExpectedVersion, progress.ErrConflict)
	}

	if stored == nil {
		if agg.ID == "" {
			agg.ID = uuid.NewString()
		}
		agg.Version = 1
		agg.CreatedAt = now
		m.topics[agg.ID] = make(map[string]*models.TopicProgress)
		m.words[agg.ID] = make(map[string]*models.WordProgress)
	} else {
		agg.ID = stored.ID
		agg.Version = stored.Version + 1
		agg.CreatedAt = stored.CreatedAt
	}
	agg.UpdatedAt = now
	m.aggregates[agg.UserID] = agg

	for _, staged := range changes.Topics {
		t := staged.Clone()
		t.LearningProgressID = agg.ID
		if prev, ok := m.topics[agg.ID][t.TopicName]; ok {
			t.ID = prev.ID
			t.CreatedAt = prev.CreatedAt
		} else {
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			t.CreatedAt = now
		}
		t.UpdatedAt = now
		m.topics[agg.ID][t.TopicName] = t
	}

	for _, staged := range changes.Words {
		w := staged.Clone()
		w.LearningProgressID = agg.ID
		if prev, ok := m.words[agg.ID][w.Word]; ok {
			w.ID = prev.ID
			w.CreatedAt = prev.CreatedAt
			w.FirstSeenAt = prev.FirstSeenAt
		} else {
			if w.ID == "" {
				w.ID = uuid.NewString()
			}
			w.CreatedAt = now
		}
		w.UpdatedAt = now
		m.words[agg.ID][w.Word] = w
	}

	if changes.ResolvesFailure != "" {
		delete(m.failed, changes.ResolvesFailure)
	}

	return agg.Clone(), nil
}

func (m *MemoryStore) RecordFailure(ctx context.Context, userID string, session models.Session, cause error) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	f := &models.FailedSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      session.Kind,
		Payload:   string(payload),
		LastError: errorText(cause),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.failed[f.ID] = f
	return nil
}

func (m *MemoryStore) ListFailed(ctx context.Context, limit, maxAttempts int) ([]models.FailedSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	failed := []models.FailedSession{}
	for _, f := range m.failed {
		if f.Attempts < maxAttempts {
			failed = append(failed, *f)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].CreatedAt.Before(failed[j].CreatedAt) })
	if limit > 0 && len(failed) > limit {
		failed = failed[:limit]
	}
	return failed, nil
}

func (m *MemoryStore) DeleteFailed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failed, id)
	return nil
}

func (m *MemoryStore) MarkFailedAttempt(ctx context.Context, id string, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.failed[id]
	if !ok {
		return fmt.Errorf("failed session %s not found", id)
	}
	f.Attempts++
	f.LastError = errorText(cause)
	f.UpdatedAt = m.now()
	return nil
}
