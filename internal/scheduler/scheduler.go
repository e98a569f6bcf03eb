package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/engprogress/internal/logger"
	"github.com/example/engprogress/internal/progress"
)

// Default replay settings
const (
	DefaultReplayInterval = 5 * time.Minute
	DefaultReplayBatch    = 50
)

// Replayer drains queued session updates
type Replayer interface {
	ReplayFailed(ctx context.Context, batch int) (progress.ReplayStats, error)
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	replayer  Replayer
	log       *logger.Logger
	interval  time.Duration
	batch     int
	timeout   time.Duration
}

// New creates a new scheduler instance
func New(replayer Replayer, log *logger.Logger, interval time.Duration, batch int) *Scheduler {
	if interval <= 0 {
		interval = DefaultReplayInterval
	}
	if batch <= 0 {
		batch = DefaultReplayBatch
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		replayer:  replayer,
		log:       log.With("component", "scheduler"),
		interval:  interval,
		batch:     batch,
		timeout:   interval,
	}
}

// Start schedules the replay job and runs it in the background. The first run
// happens immediately.
func (s *Scheduler) Start() error {
	// a slow pass must not overlap the next one
	if _, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.replayFailedSessions); err != nil {
		return fmt.Errorf("failed to schedule replay job: %w", err)
	}
	s.scheduler.StartAsync()
	s.log.Info("Scheduler started", "interval", s.interval.String(), "batch", s.batch)
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.log.Info("Scheduler stopped")
}

// RunNow performs one replay pass synchronously
func (s *Scheduler) RunNow(ctx context.Context) (progress.ReplayStats, error) {
	return s.replayer.ReplayFailed(ctx, s.batch)
}

func (s *Scheduler) replayFailedSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	stats, err := s.RunNow(ctx)
	if err != nil {
		s.log.Error("Error replaying failed sessions", "error", err)
		return
	}
	if stats.Replayed+stats.Failed+stats.Discarded > 0 {
		s.log.Info("Replayed failed sessions",
			"replayed", stats.Replayed, "failed", stats.Failed, "discarded", stats.Discarded)
	}
}
