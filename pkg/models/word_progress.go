package models

import "time"

// WordProgress tracks a user's attempts at a single word
type WordProgress struct {
	ID                       string       `json:"id" db:"id"`
	LearningProgressID       string       `json:"learning_progress_id" db:"learning_progress_id"`
	Word                     string       `json:"word" db:"word"`
	Translation              *string      `json:"translation,omitempty" db:"translation"`
	MasteryLevel             MasteryLevel `json:"mastery_level" db:"mastery_level"`
	TimesCorrect             int          `json:"times_correct" db:"times_correct"`
	TimesIncorrect           int          `json:"times_incorrect" db:"times_incorrect"`
	FirstSeenAt              time.Time    `json:"first_seen_at" db:"first_seen_at"`
	LastReviewedAt           time.Time    `json:"last_reviewed_at" db:"last_reviewed_at"`
	RelatedLessonStepIDs     StringList   `json:"related_lesson_step_ids" db:"related_lesson_step_ids"`
	RelatedAssessmentStepIDs StringList   `json:"related_assessment_step_ids" db:"related_assessment_step_ids"`
	CreatedAt                time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time    `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy
func (w *WordProgress) Clone() *WordProgress {
	if w == nil {
		return nil
	}
	c := *w
	if w.Translation != nil {
		s := *w.Translation
		c.Translation = &s
	}
	c.RelatedLessonStepIDs = w.RelatedLessonStepIDs.Clone()
	c.RelatedAssessmentStepIDs = w.RelatedAssessmentStepIDs.Clone()
	return &c
}
