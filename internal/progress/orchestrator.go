package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/engprogress/internal/logger"
	"github.com/example/engprogress/internal/mastery"
	"github.com/example/engprogress/pkg/models"
)

const (
	// DefaultCommitTimeout bounds one session update including its retry
	DefaultCommitTimeout = 10 * time.Second
	// failureSinkTimeout bounds the write of an abandoned session to the sink
	failureSinkTimeout = 5 * time.Second
)

// Orchestrator applies completed lessons and assessments to a user's learning
// progress. Updates for the same user are serialised; updates for different
// users run independently.
type Orchestrator struct {
	store         Store
	policy        mastery.Policy
	local         *KeyedMutex
	remote        Locker
	sink          FailureSink
	transient     func(error) bool
	log           *logger.Logger
	now           func() time.Time
	commitTimeout time.Duration
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l.With("component", "progress") }
}

// WithPolicy replaces the default aggregation policy
func WithPolicy(p mastery.Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithLocker adds a cross-process lock taken after the in-process one
func WithLocker(l Locker) Option {
	return func(o *Orchestrator) { o.remote = l }
}

// WithFailureSink records abandoned sessions for later replay
func WithFailureSink(s FailureSink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithTransient sets the classifier for commit errors worth one retry.
// ErrConflict is always retried.
func WithTransient(fn func(error) bool) Option {
	return func(o *Orchestrator) { o.transient = fn }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithCommitTimeout bounds each session update; zero disables the bound
func WithCommitTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.commitTimeout = d }
}

// New creates an Orchestrator over store
func New(store Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:         store,
		policy:        mastery.DefaultPolicy(),
		local:         NewKeyedMutex(),
		log:           logger.NewNop(),
		now:           func() time.Time { return time.Now().UTC() },
		commitTimeout: DefaultCommitTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// UpdateAfterLesson applies a completed lesson. It never panics or returns an
// error directly; failures are logged and reported in the Result.
func (o *Orchestrator) UpdateAfterLesson(ctx context.Context, userID string, outcome models.LessonOutcome) Result {
	s, err := LessonSession(outcome)
	if err != nil {
		return o.reject(userID, s, err)
	}
	return o.apply(ctx, userID, s, "")
}

// UpdateAfterAssessment applies a completed assessment, with the same
// best-effort contract as UpdateAfterLesson.
func (o *Orchestrator) UpdateAfterAssessment(ctx context.Context, userID string, outcome models.AssessmentOutcome) Result {
	s, err := AssessmentSession(outcome)
	if err != nil {
		return o.reject(userID, s, err)
	}
	return o.apply(ctx, userID, s, "")
}

// ApplySession applies an already normalised session
func (o *Orchestrator) ApplySession(ctx context.Context, userID string, s models.Session) Result {
	if err := ValidateSession(s); err != nil {
		return o.reject(userID, s, err)
	}
	return o.apply(ctx, userID, s, "")
}

func (o *Orchestrator) reject(userID string, s models.Session, err error) Result {
	o.log.Warn("rejected session outcome", "user_id", userID, "kind", s.Kind, "session_id", s.ID, "error", err)
	return Result{UserID: userID, Kind: s.Kind, SessionID: s.ID, Err: err}
}

// apply runs one session update. replayOf is the outbox row being replayed, or
// empty for a fresh session; a fresh session that is abandoned is queued.
func (o *Orchestrator) apply(ctx context.Context, userID string, s models.Session, replayOf string) Result {
	userID = strings.TrimSpace(userID)
	res := Result{UserID: userID, Kind: s.Kind, SessionID: s.ID}
	if userID == "" {
		res.Err = fmt.Errorf("%w: user id is required", ErrInvalidOutcome)
		o.log.Warn("rejected session outcome", "kind", s.Kind, "session_id", s.ID, "error", res.Err)
		return res
	}

	if o.commitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.commitTimeout)
		defer cancel()
	}

	unlock, err := o.lock(ctx, userID)
	if err != nil {
		return o.abandon(ctx, res, s, fmt.Errorf("acquire user lock: %w", err), replayOf == "")
	}
	defer unlock()

	for attempt := 1; attempt <= 2; attempt++ {
		res.Attempts = attempt
		res.ItemErrors = nil
		err = o.run(ctx, userID, s, replayOf, &res)
		if err == nil {
			res.Committed = true
			o.log.Debug("session committed",
				"user_id", userID, "kind", s.Kind, "session_id", s.ID,
				"topics", res.TopicsUpdated, "words", res.WordsUpdated, "attempts", attempt)
			return res
		}
		if attempt == 1 && o.retryable(err) && ctx.Err() == nil {
			o.log.Warn("retrying session update", "user_id", userID, "session_id", s.ID, "error", err)
			continue
		}
		break
	}
	return o.abandon(ctx, res, s, err, replayOf == "")
}

func (o *Orchestrator) abandon(ctx context.Context, res Result, s models.Session, err error, recordFailure bool) Result {
	res.Err = err
	res.Committed = false
	res.Progress = nil
	o.log.Error("session update abandoned",
		"user_id", res.UserID, "kind", s.Kind, "session_id", s.ID, "attempts", res.Attempts, "error", err)

	if recordFailure && o.sink != nil {
		sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureSinkTimeout)
		defer cancel()
		if serr := o.sink.RecordFailure(sinkCtx, res.UserID, s, err); serr != nil {
			o.log.Error("failed to queue session for replay", "user_id", res.UserID, "session_id", s.ID, "error", serr)
		}
	}
	return res
}

func (o *Orchestrator) retryable(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	return o.transient != nil && o.transient(err)
}

func (o *Orchestrator) lock(ctx context.Context, userID string) (func(), error) {
	unlockLocal, err := o.local.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	if o.remote == nil {
		return unlockLocal, nil
	}
	unlockRemote, err := o.remote.Lock(ctx, userID)
	if err != nil {
		unlockLocal()
		return nil, err
	}
	return func() {
		unlockRemote()
		unlockLocal()
	}, nil
}

// run is one pass of load, stage and commit
func (o *Orchestrator) run(ctx context.Context, userID string, s models.Session, replayOf string, res *Result) error {
	now := o.now()
	completedAt := s.CompletedAt
	if completedAt.IsZero() {
		completedAt = now
	}

	agg, err := o.store.GetAggregate(ctx, userID)
	if err != nil {
		return fmt.Errorf("load aggregate: %w", err)
	}
	fresh := agg == nil
	if fresh {
		agg = models.NewLearningProgress(userID)
	}

	changes := Changes{ExpectedVersion: agg.Version, ResolvesFailure: replayOf}

	effective := mastery.EffectiveScore(s.Text, s.Audio)
	for _, name := range s.Topics {
		var existing *models.TopicProgress
		if !fresh {
			existing, err = o.store.GetTopic(ctx, agg.ID, name)
			if err != nil {
				o.skipItem(res, "topic", name, s, err)
				continue
			}
		}
		topic := o.policy.UpdateTopic(existing, name, s.Kind, s.ID, effective, now)
		topic.LearningProgressID = agg.ID
		changes.Topics = append(changes.Topics, topic)
	}

	// a word may appear in several steps, later attempts build on earlier ones
	staged := make(map[string]*models.WordProgress)
	var order []string
	for _, a := range s.WordAttempts {
		if !a.WasAttempted {
			continue
		}
		existing, ok := staged[a.Word]
		if !ok && !fresh {
			existing, err = o.store.GetWord(ctx, agg.ID, a.Word)
			if err != nil {
				o.skipItem(res, "word", a.Word, s, err)
				continue
			}
		}
		w := mastery.UpdateWord(existing, a, s.Kind, now)
		w.LearningProgressID = agg.ID
		if !ok {
			order = append(order, a.Word)
		}
		staged[a.Word] = w
	}
	for _, word := range order {
		changes.Words = append(changes.Words, staged[word])
	}

	next := o.policy.Recompute(agg, s.Text, s.Audio)
	switch s.Kind {
	case models.KindLesson:
		next.LastLessonCompletedAt = latest(next.LastLessonCompletedAt, completedAt)
	case models.KindAssessment:
		next.LastAssessmentCompletedAt = latest(next.LastAssessmentCompletedAt, completedAt)
	}
	changes.Aggregate = next

	committed, err := o.store.Commit(ctx, changes)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	res.Progress = committed
	res.TopicsUpdated = len(changes.Topics)
	res.WordsUpdated = len(changes.Words)
	return nil
}

// latest keeps completion times monotonic when sessions land out of order
func latest(current *time.Time, completedAt time.Time) *time.Time {
	if current != nil && !completedAt.After(*current) {
		return current
	}
	return &completedAt
}

func (o *Orchestrator) skipItem(res *Result, kind, key string, s models.Session, err error) {
	res.ItemErrors = append(res.ItemErrors, fmt.Errorf("%s %q: %w", kind, key, err))
	o.log.Warn("skipped "+kind+" update", "user_id", res.UserID, "session_id", s.ID, kind, key, "error", err)
}

// Snapshot returns the user's committed aggregate with all topics and words,
// or nil when the user has no progress yet.
func (o *Orchestrator) Snapshot(ctx context.Context, userID string) (*models.ProgressSnapshot, error) {
	agg, err := o.store.GetAggregate(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, fmt.Errorf("load aggregate: %w", err)
	}
	if agg == nil {
		return nil, nil
	}
	topics, err := o.store.ListTopics(ctx, agg.ID)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	words, err := o.store.ListWords(ctx, agg.ID)
	if err != nil {
		return nil, fmt.Errorf("list words: %w", err)
	}
	return &models.ProgressSnapshot{Progress: agg, Topics: topics, Words: words}, nil
}

// PracticeWords returns the user's words currently at any of levels
func (o *Orchestrator) PracticeWords(ctx context.Context, userID string, levels []models.MasteryLevel) ([]models.WordProgress, error) {
	agg, err := o.store.GetAggregate(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, fmt.Errorf("load aggregate: %w", err)
	}
	if agg == nil || len(levels) == 0 {
		return []models.WordProgress{}, nil
	}
	return o.store.GetWordsByMasteryLevels(ctx, agg.ID, levels)
}
