package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/engprogress/internal/progress"
	"github.com/example/engprogress/pkg/models"
)

type contractStore interface {
	progress.Store
	progress.FailureQueue
}

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db, nil)
}

// forEachStore runs the same contract test against every Store implementation
func forEachStore(t *testing.T, fn func(t *testing.T, s contractStore)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
}

var studiedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func score(v int) *int { return &v }

func newAggregate(userID string) *models.LearningProgress {
	p := models.NewLearningProgress(userID)
	p.OverallScore = score(56)
	p.LearningTrajectory = models.Accelerating
	p.Strengths = models.StringList{"grammar"}
	return p
}

func topic(name string, level models.MasteryLevel, s int) *models.TopicProgress {
	return &models.TopicProgress{
		TopicName:            name,
		MasteryLevel:         level,
		Score:                s,
		LastStudiedAt:        studiedAt,
		RelatedLessonIDs:     models.StringList{"L1"},
		RelatedAssessmentIDs: models.StringList{},
	}
}

func word(w string, level models.MasteryLevel, reviewed time.Time) *models.WordProgress {
	return &models.WordProgress{
		Word:                     w,
		MasteryLevel:             level,
		TimesCorrect:             1,
		FirstSeenAt:              reviewed,
		LastReviewedAt:           reviewed,
		RelatedLessonStepIDs:     models.StringList{"s1"},
		RelatedAssessmentStepIDs: models.StringList{},
	}
}

func TestStore_MissingRowsAreNil(t *testing.T) {
	forEachStore(t, func(t *testing.T, s contractStore) {
		ctx := context.Background()

		agg, err := s.GetAggregate(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, agg)

		tp, err := s.GetTopic(ctx, "missing", "Travel")
		require.NoError(t, err)
		assert.Nil(t, tp)

		wp, err := s.GetWord(ctx, "missing", "apple")
		require.NoError(t, err)
		assert.Nil(t, wp)
	})
}

func TestStore_CommitNewAggregate(t *testing.T) {
	forEachStore(t, func(t *testing.T, s contractStore) {
		ctx := context.Background()
		committed, err := s.Commit(ctx, progress.Changes{
			Aggregate: newAggregate("u1"),
			Topics:    []*models.TopicProgress{topic("Travel", models.Learning, 80)},
			Words:     []*models.WordProgress{word("apple", models.Learning, studiedAt)},
		})
		require.NoError(t, err)
		require.NotEmpty(t, committed.ID)
		assert.EqualValues(t, 1, committed.Version)

		got, err := s.GetAggregate(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, committed.ID, got.ID)
		assert.Equal(t, 56, got.Score())
		assert.Equal(t, models.Accelerating, got.LearningTrajectory)
		assert.Equal(t, models.StringList{"grammar"}, got.Strengths)
		assert.Empty(t, got.Weaknesses)
		assert.Nil(t, got.LastLessonCompletedAt)

		tp, err := s.GetTopic(ctx, got.ID, "Travel")
		require.NoError(t, err)
		require.NotNil(t, tp)
		assert.Equal(t, got.ID, tp.LearningProgressID)
		assert.Equal(t, models.Learning, tp.MasteryLevel)
		assert.Equal(t, 80, tp.Score)
		assert.True(t, studiedAt.Equal(tp.LastStudiedAt))
		assert.Equal(t, models.StringList{"L1"}, tp.RelatedLessonIDs)

		wp, err := s.GetWord(ctx, got.ID, "apple")
		require.NoError(t, err)
		require.NotNil(t, wp)
		assert.Equal(t, 1, wp.TimesCorrect)
		assert.Nil(t, wp.Translation)
	})
}

func TestStore_VersionConflict(t *testing.T) {
	forEachStore(t, func(t *testing.T, s contractStore) {
		ctx := context.Background()
		first, err := s.Commit(ctx, progress.Changes{Aggregate: newAggregate("u1")})
		require.NoError(t, err)

		next := first.Clone()
		next.OverallScore = score(70)
		second, err := s.Commit(ctx, progress.Changes{Aggregate: next, ExpectedVersion: 1})
		require.NoError(t, err)
		assert.EqualValues(t, 2, second.Version)

		// a writer that loaded version 1 has lost the race
		stale := first.Clone()
		stale.OverallScore = score(10)
		_, err = s.Commit(ctx, progress.Changes{Aggregate: stale, ExpectedVersion: 1})
		require.ErrorIs(t, err, progress.ErrConflict)
		assert.True(t, IsTransient(err))

		got, err := s.GetAggregate(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 70, got.Score())
		assert.EqualValues(t, 2, got.Version)
	})
}

func TestStore_SecondCreateConflicts(t *testing.T) {
	forEachStore(t, func(t *testing.T, s contractStore) {
		ctx := context.Background()
		_, err := s.Commit(ctx, progress.Changes{Aggregate: newAggregate("u1")})
		require.NoError(t, err)

		_, err = s.Commit(ctx, progress.Changes{Aggregate: newAggregate("u1")})
		assert.ErrorIs(t, err, progress.ErrConflict)
	})
}

func TestStore_UpsertKeepsIdentity(t *testing.T) {
	forEachStore(t, func(t *testing.T, s contractStore) {
		ctx := context.Background()
		agg, err := s.Commit(ctx, progress.Changes{
			Aggregate: newAggregate("u1"),
			Topics:    []*models.TopicProgress{topic("Travel", models.Seen, 40)},
			Words:     []*models.WordProgress{word("apple", models.Seen, studiedAt)},
		})
		require.NoError(t, err)
		before, err := s.GetWord(ctx, agg.ID, "apple")
		require.NoError(t, err)

		later := studiedAt.Add(48 * time.Hour)
		w := word("apple", models.Learning, later)
		w.TimesCorrect = 2
		translation := "manzana"
		w.Translation = &translation
		_, err = s.Commit(ctx, progress.Changes{
			Aggregate:       agg,
			ExpectedVersion: agg.Version,
			Topics:          []*models.TopicProgress{topic("Travel", models.Learning, 60)},
			Words:           []*models.WordProgress{w},
		})
		require.NoError(t, err)

		after, err := s.GetWord(ctx, agg.ID, "apple")
		require.NoError(t, err)
		assert.Equal(t, before.ID, after.ID)
		assert.True(t, studiedAt.Equal(after.FirstSeenAt), "first_seen_at must survive an update")
		assert.True(t, later.Equal(after.LastReviewedAt))
		assert.Equal(t, 2, after.TimesCorrect)
		require.NotNil(t, after.Translation)
		assert.Equal(t, "manzana", *after.Translation)

		topics, err := s.ListTopics(ctx, agg.ID)
		require.NoError(t, err)
		require.Len(t, topics, 1)
		assert.Equal(t, 60, topics[0].Score)
		assert.Equal(t, models.Learning, topics[0].MasteryLevel)
	})
}

func TestStore_TopicNamesAreCaseSensitive(t *testing.T) {
	forEachStore(t, func(t *testing.T, s contractStore) {
		ctx := context.Background()
		agg, err := s.Commit(ctx, progress.Changes{
			Aggregate: newAggregate("u1"),
			Topics: []*models.TopicProgress{
				topic("travel", models.Seen, 40),
				topic("Travel", models.Seen, 50),
			},
		})
		require.NoError(t, err)

		topics, err := s.ListTopics(ctx, agg.ID)
		require.NoError(t, err)
		assert.Len(t, topics, 2)
	})
}

func TestStore_GetWordsByMasteryLevels(t *testing.T) {
	forEachStore(t, func(t *testing.T, s contractStore) {
		ctx := context.Background()
		agg, err := s.Commit(ctx, progress.Changes{
			Aggregate: newAggregate("u1"),
			Words: []*models.WordProgress{
				word("cherry", models.Seen, studiedAt.Add(2*time.Hour)),
				word("apple", models.Learning, studiedAt),
				word("banana", models.Mastered, studiedAt),
				word("date", models.Seen, studiedAt.Add(time.Hour)),
			},
		})
		require.NoError(t, err)

		words, err := s.GetWordsByMasteryLevels(ctx, agg.ID, []models.MasteryLevel{models.Seen, models.Learning})
		require.NoError(t, err)
		var got []string
		for _, w := range words {
			got = append(got, w.Word)
		}
		assert.Equal(t, []string{"apple", "date", "cherry"}, got)

		none, err := s.GetWordsByMasteryLevels(ctx, agg.ID, nil)
		require.NoError(t, err)
		assert.Empty(t, none)

		all, err := s.ListWords(ctx, agg.ID)
		require.NoError(t, err)
		assert.Len(t, all, 4)
		assert.Equal(t, "apple", all[0].Word)
	})
}

func TestStore_FailedSessionOutbox(t *testing.T) {
	forEachStore(t, func(t *testing.T, s contractStore) {
		ctx := context.Background()
		session := models.Session{
			Kind:   models.KindLesson,
			ID:     "L1",
			Topics: []string{"Travel"},
		}
		require.NoError(t, s.RecordFailure(ctx, "u1", session, errors.New("database is locked")))

		failed, err := s.ListFailed(ctx, 10, 5)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		f := failed[0]
		assert.Equal(t, "u1", f.UserID)
		assert.Equal(t, models.KindLesson, f.Kind)
		assert.Equal(t, "database is locked", f.LastError)
		assert.Contains(t, f.Payload, `"Travel"`)

		for i := 0; i < 5; i++ {
			require.NoError(t, s.MarkFailedAttempt(ctx, f.ID, errors.New("still locked")))
		}
		failed, err = s.ListFailed(ctx, 10, 5)
		require.NoError(t, err)
		assert.Empty(t, failed, "sessions out of attempts are not listed")

		failed, err = s.ListFailed(ctx, 10, 6)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, 5, failed[0].Attempts)
		assert.Equal(t, "still locked", failed[0].LastError)

		require.NoError(t, s.DeleteFailed(ctx, f.ID))
		failed, err = s.ListFailed(ctx, 10, 6)
		require.NoError(t, err)
		assert.Empty(t, failed)
	})
}

func TestSQLStore_CommitRollsBackOnItemFailure(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	// the score check constraint rejects the topic after the aggregate was written
	_, err := s.Commit(ctx, progress.Changes{
		Aggregate: newAggregate("u1"),
		Topics:    []*models.TopicProgress{topic("Travel", models.Seen, 150)},
	})
	require.Error(t, err)

	agg, err := s.GetAggregate(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, agg)
}

func TestOpen_UnsupportedType(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newSQLiteStore(t)
	assert.NoError(t, Migrate(context.Background(), s.DB()))
}

func TestStore_CommitResolvesFailedSession(t *testing.T) {
	forEachStore(t, func(t *testing.T, s contractStore) {
		ctx := context.Background()
		session := models.Session{Kind: models.KindLesson, ID: "L1"}
		require.NoError(t, s.RecordFailure(ctx, "u1", session, errors.New("timeout")))
		failed, err := s.ListFailed(ctx, 10, 5)
		require.NoError(t, err)
		require.Len(t, failed, 1)

		first, err := s.Commit(ctx, progress.Changes{Aggregate: newAggregate("u1")})
		require.NoError(t, err)

		// a losing commit keeps the row for the next pass
		_, err = s.Commit(ctx, progress.Changes{Aggregate: first, ExpectedVersion: 7, ResolvesFailure: failed[0].ID})
		require.ErrorIs(t, err, progress.ErrConflict)
		pending, err := s.ListFailed(ctx, 10, 5)
		require.NoError(t, err)
		assert.Len(t, pending, 1)

		_, err = s.Commit(ctx, progress.Changes{Aggregate: first, ExpectedVersion: first.Version, ResolvesFailure: failed[0].ID})
		require.NoError(t, err)
		pending, err = s.ListFailed(ctx, 10, 5)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}
