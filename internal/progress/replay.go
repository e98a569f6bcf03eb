package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/engprogress/pkg/models"
)

// MaxReplayAttempts is how many times a failed session is retried before it is
// left in the queue for an operator
const MaxReplayAttempts = 5

// ReplayStats summarises one replay pass
type ReplayStats struct {
	Replayed  int
	Failed    int
	Discarded int
}

// Replayer re-applies sessions whose update was abandoned
type Replayer struct {
	orch  *Orchestrator
	queue FailureQueue
}

// NewReplayer creates a Replayer draining queue through orch
func NewReplayer(orch *Orchestrator, queue FailureQueue) *Replayer {
	return &Replayer{orch: orch, queue: queue}
}

// ReplayFailed retries up to batch queued sessions. A committed session leaves
// the queue in its commit transaction; failed ones have their attempt counter bumped and
// sessions that can never succeed (malformed payloads) are discarded.
func (r *Replayer) ReplayFailed(ctx context.Context, batch int) (ReplayStats, error) {
	var stats ReplayStats
	pending, err := r.queue.ListFailed(ctx, batch, MaxReplayAttempts)
	if err != nil {
		return stats, fmt.Errorf("list failed sessions: %w", err)
	}

	for _, fs := range pending {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		var s models.Session
		if err := json.Unmarshal([]byte(fs.Payload), &s); err != nil {
			r.discard(ctx, fs, fmt.Errorf("decode payload: %w", err), &stats)
			continue
		}
		if err := ValidateSession(s); err != nil {
			r.discard(ctx, fs, err, &stats)
			continue
		}

		res := r.orch.apply(ctx, fs.UserID, s, fs.ID)
		if res.OK() {
			stats.Replayed++
			continue
		}

		stats.Failed++
		if err := r.queue.MarkFailedAttempt(ctx, fs.ID, res.Err); err != nil {
			r.orch.log.Error("failed to record replay attempt", "id", fs.ID, "error", err)
		}
	}
	return stats, nil
}

func (r *Replayer) discard(ctx context.Context, fs models.FailedSession, cause error, stats *ReplayStats) {
	stats.Discarded++
	r.orch.log.Warn("discarding unreplayable session", "id", fs.ID, "user_id", fs.UserID, "error", cause)
	if err := r.queue.DeleteFailed(ctx, fs.ID); err != nil {
		r.orch.log.Error("failed to discard session", "id", fs.ID, "error", err)
	}
}
