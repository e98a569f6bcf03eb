package models

import "time"

// TopicProgress tracks a user's familiarity with one topic
type TopicProgress struct {
	ID                   string       `json:"id" db:"id"`
	LearningProgressID   string       `json:"learning_progress_id" db:"learning_progress_id"`
	TopicName            string       `json:"topic_name" db:"topic_name"`
	MasteryLevel         MasteryLevel `json:"mastery_level" db:"mastery_level"`
	Score                int          `json:"score" db:"score"`
	LastStudiedAt        time.Time    `json:"last_studied_at" db:"last_studied_at"`
	RelatedLessonIDs     StringList   `json:"related_lesson_ids" db:"related_lesson_ids"`
	RelatedAssessmentIDs StringList   `json:"related_assessment_ids" db:"related_assessment_ids"`
	CreatedAt            time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy
func (t *TopicProgress) Clone() *TopicProgress {
	if t == nil {
		return nil
	}
	c := *t
	c.RelatedLessonIDs = t.RelatedLessonIDs.Clone()
	c.RelatedAssessmentIDs = t.RelatedAssessmentIDs.Clone()
	return &c
}
