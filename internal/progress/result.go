package progress

import (
	"errors"

	"github.com/example/engprogress/pkg/models"
)

// ErrInvalidOutcome marks a session rejected before any persistence call
var ErrInvalidOutcome = errors.New("invalid session outcome")

// Result reports what a session update did. Progress tracking is best effort, so
// callers may inspect it but are never required to act on it.
type Result struct {
	UserID    string             `json:"user_id"`
	Kind      models.SessionKind `json:"kind"`
	SessionID string             `json:"session_id"`
	// Committed is true once the whole session landed
	Committed bool `json:"committed"`
	// Attempts counts pipeline runs, 2 when a transient commit failure was retried
	Attempts      int `json:"attempts"`
	TopicsUpdated int `json:"topics_updated"`
	WordsUpdated  int `json:"words_updated"`
	// Progress is the committed aggregate
	Progress *models.LearningProgress `json:"progress,omitempty"`
	// Err is the reason the session was abandoned
	Err error `json:"-"`
	// ItemErrors are per-topic or per-word failures that were skipped
	ItemErrors []error `json:"-"`
}

// OK reports whether the session was committed
func (r Result) OK() bool {
	return r.Committed && r.Err == nil
}

// Invalid reports whether the session was rejected as malformed input
func (r Result) Invalid() bool {
	return errors.Is(r.Err, ErrInvalidOutcome)
}
