package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/engprogress/internal/logger"
	"github.com/example/engprogress/internal/progress"
)

type replayerFunc func(ctx context.Context, batch int) (progress.ReplayStats, error)

func (f replayerFunc) ReplayFailed(ctx context.Context, batch int) (progress.ReplayStats, error) {
	return f(ctx, batch)
}

func TestScheduler_RunsReplayJob(t *testing.T) {
	var calls atomic.Int32
	var gotBatch atomic.Int32
	r := replayerFunc(func(ctx context.Context, batch int) (progress.ReplayStats, error) {
		calls.Add(1)
		gotBatch.Store(int32(batch))
		return progress.ReplayStats{Replayed: 1}, nil
	})

	core, logs := observer.New(zapcore.InfoLevel)
	s := New(r, logger.FromZap(zap.New(core)), time.Hour, 7)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 7, gotBatch.Load())
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("Replayed failed sessions").Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_LogsReplayError(t *testing.T) {
	r := replayerFunc(func(ctx context.Context, batch int) (progress.ReplayStats, error) {
		return progress.ReplayStats{}, errors.New("store unavailable")
	})
	core, logs := observer.New(zapcore.ErrorLevel)
	s := New(r, logger.FromZap(zap.New(core)), time.Hour, 0)

	s.replayFailedSessions()
	assert.Equal(t, 1, logs.FilterMessage("Error replaying failed sessions").Len())
	assert.Equal(t, DefaultReplayBatch, s.batch)
}

func TestScheduler_RunNow(t *testing.T) {
	r := replayerFunc(func(ctx context.Context, batch int) (progress.ReplayStats, error) {
		return progress.ReplayStats{Discarded: batch}, nil
	})
	s := New(r, nil, 0, 3)
	stats, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Discarded)
	assert.Equal(t, DefaultReplayInterval, s.interval)
}
