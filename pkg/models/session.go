package models

import "time"

// StepKind identifies what a lesson or assessment step asked of the learner
type StepKind string

const (
	StepNewWord  StepKind = "new_word"
	StepPractice StepKind = "practice"
	StepQuestion StepKind = "question"
)

// Step is the result of one lesson or assessment step
type Step struct {
	ID           string   `json:"id"`
	Kind         StepKind `json:"kind"`
	Word         string   `json:"word,omitempty"`
	Translation  string   `json:"translation,omitempty"`
	WasCorrect   bool     `json:"was_correct"`
	WasAttempted bool     `json:"was_attempted"`
}

// LessonOutcome is reported once per completed lesson
type LessonOutcome struct {
	LessonID     string        `json:"lesson_id"`
	FocusArea    string        `json:"focus_area"`
	TargetSkills []string      `json:"target_skills"`
	Steps        []Step        `json:"steps"`
	Text         *TextMetrics  `json:"text_metrics,omitempty"`
	Audio        *AudioMetrics `json:"audio_metrics,omitempty"`
	CompletedAt  time.Time     `json:"completed_at"`
}

// AssessmentOutcome is reported once per completed assessment
type AssessmentOutcome struct {
	AssessmentID   string        `json:"assessment_id"`
	ProposedTopics []string      `json:"proposed_topics"`
	Steps          []Step        `json:"steps"`
	Text           *TextMetrics  `json:"text_metrics,omitempty"`
	Audio          *AudioMetrics `json:"audio_metrics,omitempty"`
	CompletedAt    time.Time     `json:"completed_at"`
}

// SessionKind distinguishes lessons from assessments
type SessionKind string

const (
	KindLesson     SessionKind = "lesson"
	KindAssessment SessionKind = "assessment"
)

// WordAttempt is one attempt at a word within a session
type WordAttempt struct {
	StepID       string `json:"step_id"`
	Word         string `json:"word"`
	Translation  string `json:"translation,omitempty"`
	WasCorrect   bool   `json:"was_correct"`
	WasAttempted bool   `json:"was_attempted"`
}

// Session is the source-independent view of a completed lesson or assessment
type Session struct {
	Kind         SessionKind   `json:"kind"`
	ID           string        `json:"id"`
	Topics       []string      `json:"topics"`
	WordAttempts []WordAttempt `json:"word_attempts"`
	Text         *TextMetrics  `json:"text_metrics,omitempty"`
	Audio        *AudioMetrics `json:"audio_metrics,omitempty"`
	CompletedAt  time.Time     `json:"completed_at"`
}

// FailedSession is a session update that could not be committed and is queued for replay
type FailedSession struct {
	ID        string      `json:"id" db:"id"`
	UserID    string      `json:"user_id" db:"user_id"`
	Kind      SessionKind `json:"kind" db:"kind"`
	Payload   string      `json:"payload" db:"payload"`
	Attempts  int         `json:"attempts" db:"attempts"`
	LastError string      `json:"last_error" db:"last_error"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// ProgressSnapshot is a committed read-only view of a user's aggregate
type ProgressSnapshot struct {
	Progress *LearningProgress `json:"progress"`
	Topics   []TopicProgress   `json:"topics"`
	Words    []WordProgress    `json:"words"`
}
