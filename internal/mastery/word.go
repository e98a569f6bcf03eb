package mastery

import (
	"strings"
	"time"

	"github.com/example/engprogress/pkg/models"
)

// NormalizeWord returns the key a word is tracked under
func NormalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// UpdateWord applies one attempt to a word's record and returns the new record.
// The input record is never modified. An attempt with WasAttempted false is a
// no-op and returns existing as is (nil when there is no record yet).
func UpdateWord(existing *models.WordProgress, attempt models.WordAttempt, kind models.SessionKind, now time.Time) *models.WordProgress {
	if !attempt.WasAttempted {
		return existing
	}

	var w *models.WordProgress
	if existing == nil {
		w = &models.WordProgress{
			Word:                     NormalizeWord(attempt.Word),
			MasteryLevel:             models.NotStarted,
			FirstSeenAt:              now,
			RelatedLessonStepIDs:     models.StringList{},
			RelatedAssessmentStepIDs: models.StringList{},
		}
	} else {
		w = existing.Clone()
	}

	if attempt.WasCorrect {
		w.TimesCorrect++
		w.MasteryLevel = Advance(w.MasteryLevel, true)
	} else {
		w.TimesIncorrect++
		w.MasteryLevel = Regress(w.MasteryLevel)
	}
	// any genuine attempt means the word has at least been seen
	if w.MasteryLevel < models.Seen {
		w.MasteryLevel = models.Seen
	}

	if t := strings.TrimSpace(attempt.Translation); t != "" {
		w.Translation = &t
	}
	w.LastReviewedAt = now

	switch kind {
	case models.KindLesson:
		w.RelatedLessonStepIDs = w.RelatedLessonStepIDs.Union(attempt.StepID)
	case models.KindAssessment:
		w.RelatedAssessmentStepIDs = w.RelatedAssessmentStepIDs.Union(attempt.StepID)
	}
	return w
}
