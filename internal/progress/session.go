package progress

import (
	"fmt"
	"strings"

	"github.com/example/engprogress/internal/mastery"
	"github.com/example/engprogress/pkg/models"
)

// LessonSession normalises a lesson outcome. Topics are the focus area plus
// every target skill; words come from new-word and practice steps.
func LessonSession(o models.LessonOutcome) (models.Session, error) {
	s := models.Session{
		Kind:        models.KindLesson,
		ID:          strings.TrimSpace(o.LessonID),
		Topics:      distinctTopics(append([]string{o.FocusArea}, o.TargetSkills...)),
		Text:        o.Text,
		Audio:       o.Audio,
		CompletedAt: o.CompletedAt,
	}
	for _, step := range o.Steps {
		if step.Kind != models.StepNewWord && step.Kind != models.StepPractice {
			continue
		}
		if a, ok := wordAttempt(step); ok {
			s.WordAttempts = append(s.WordAttempts, a)
		}
	}
	return s, ValidateSession(s)
}

// AssessmentSession normalises an assessment outcome. Topics are the proposed
// topics; words come from question steps.
func AssessmentSession(o models.AssessmentOutcome) (models.Session, error) {
	s := models.Session{
		Kind:        models.KindAssessment,
		ID:          strings.TrimSpace(o.AssessmentID),
		Topics:      distinctTopics(o.ProposedTopics),
		Text:        o.Text,
		Audio:       o.Audio,
		CompletedAt: o.CompletedAt,
	}
	for _, step := range o.Steps {
		if step.Kind != models.StepQuestion {
			continue
		}
		if a, ok := wordAttempt(step); ok {
			s.WordAttempts = append(s.WordAttempts, a)
		}
	}
	return s, ValidateSession(s)
}

// ValidateSession checks a session before anything is read or written
func ValidateSession(s models.Session) error {
	if s.Kind != models.KindLesson && s.Kind != models.KindAssessment {
		return fmt.Errorf("%w: unknown session kind %q", ErrInvalidOutcome, s.Kind)
	}
	if s.ID == "" {
		return fmt.Errorf("%w: %s id is required", ErrInvalidOutcome, s.Kind)
	}
	if err := s.Text.Validate(); err != nil {
		return fmt.Errorf("%w: text metrics: %v", ErrInvalidOutcome, err)
	}
	if err := s.Audio.Validate(); err != nil {
		return fmt.Errorf("%w: audio metrics: %v", ErrInvalidOutcome, err)
	}
	return nil
}

func wordAttempt(step models.Step) (models.WordAttempt, bool) {
	word := mastery.NormalizeWord(step.Word)
	if word == "" {
		return models.WordAttempt{}, false
	}
	return models.WordAttempt{
		StepID:       strings.TrimSpace(step.ID),
		Word:         word,
		Translation:  strings.TrimSpace(step.Translation),
		WasCorrect:   step.WasCorrect,
		WasAttempted: step.WasAttempted,
	}, true
}

// distinctTopics normalises whitespace, drops empties and removes duplicates in order
func distinctTopics(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, raw := range names {
		name := mastery.NormalizeTopic(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
