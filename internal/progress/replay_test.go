package progress_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/engprogress/internal/database"
	"github.com/example/engprogress/internal/progress"
	"github.com/example/engprogress/pkg/models"
)

func TestReplayFailed(t *testing.T) {
	store := newFaultyStore()
	store.commitErrs = []error{progress.ErrConflict, progress.ErrConflict}
	orch := progress.New(store, progress.WithFailureSink(store))
	ctx := context.Background()

	res := orch.UpdateAfterLesson(ctx, "u1", lesson("L1", 80))
	require.False(t, res.OK())

	stats, err := progress.NewReplayer(orch, store).ReplayFailed(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, progress.ReplayStats{Replayed: 1}, stats)

	agg, err := store.GetAggregate(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.Equal(t, 56, agg.Score())

	failed, err := store.ListFailed(ctx, 10, progress.MaxReplayAttempts)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestReplayFailed_StillFailing(t *testing.T) {
	store := newFaultyStore()
	boom := errors.New("disk full")
	store.commitErrs = []error{boom, boom}
	orch := progress.New(store, progress.WithFailureSink(store))
	ctx := context.Background()

	require.False(t, orch.UpdateAfterLesson(ctx, "u1", lesson("L1", 80)).OK())

	stats, err := progress.NewReplayer(orch, store).ReplayFailed(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, progress.ReplayStats{Failed: 1}, stats)

	failed, err := store.ListFailed(ctx, 10, progress.MaxReplayAttempts)
	require.NoError(t, err)
	require.Len(t, failed, 1, "a failed replay is not queued a second time")
	assert.Equal(t, 1, failed[0].Attempts)
	assert.Contains(t, failed[0].LastError, "disk full")
}

func TestReplayFailed_DiscardsUndecodable(t *testing.T) {
	store := database.NewMemoryStore()
	orch := progress.New(store)
	ctx := context.Background()

	// a session without an id can never be applied
	require.NoError(t, store.RecordFailure(ctx, "u1", models.Session{Kind: models.KindLesson}, errors.New("boom")))

	stats, err := progress.NewReplayer(orch, store).ReplayFailed(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, progress.ReplayStats{Discarded: 1}, stats)

	failed, err := store.ListFailed(ctx, 10, progress.MaxReplayAttempts)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestReplayFailed_CommitDequeuesAtomically(t *testing.T) {
	store := newFaultyStore()
	store.commitErrs = []error{progress.ErrConflict, progress.ErrConflict}
	orch := progress.New(store, progress.WithFailureSink(store))
	ctx := context.Background()

	require.False(t, orch.UpdateAfterLesson(ctx, "u1", lesson("L1", 80)).OK())

	// a separate dequeue would fail; the commit must remove the row by itself
	store.deleteErr = errors.New("connection reset")
	replayer := progress.NewReplayer(orch, store)

	stats, err := replayer.ReplayFailed(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, progress.ReplayStats{Replayed: 1}, stats)

	stats, err = replayer.ReplayFailed(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, progress.ReplayStats{}, stats, "the session is applied once")

	snap, err := orch.Snapshot(ctx, "u1")
	require.NoError(t, err)
	var apple *models.WordProgress
	for i := range snap.Words {
		if snap.Words[i].Word == "apple" {
			apple = &snap.Words[i]
		}
	}
	require.NotNil(t, apple)
	assert.Equal(t, 1, apple.TimesCorrect)
	assert.Equal(t, 1, apple.TimesIncorrect)
	assert.EqualValues(t, 1, snap.Progress.Version)
}
