package mastery

import (
	"strings"
	"time"

	"github.com/example/engprogress/pkg/models"
)

// NormalizeTopic trims a topic label and collapses inner whitespace
func NormalizeTopic(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// EffectiveScore picks the score a session contributes to each topic it touched:
// audio overall performance, then text overall score, then text accuracy, then 0.
func EffectiveScore(text *models.TextMetrics, audio *models.AudioMetrics) int {
	if audio != nil && audio.OverallPerformance != nil {
		return ClampScore(*audio.OverallPerformance)
	}
	if text != nil {
		if text.OverallScore != nil {
			return ClampScore(*text.OverallScore)
		}
		if text.Accuracy != nil {
			return ClampScore(*text.Accuracy)
		}
	}
	return 0
}

// UpdateTopic blends one session's effective score into a topic record and
// returns the new record. The input record is never modified.
func (p Policy) UpdateTopic(existing *models.TopicProgress, name string, kind models.SessionKind, sessionID string, effectiveScore int, now time.Time) *models.TopicProgress {
	score := ClampScore(float64(effectiveScore))

	var t *models.TopicProgress
	if existing == nil {
		t = &models.TopicProgress{
			TopicName:            NormalizeTopic(name),
			MasteryLevel:         models.NotStarted,
			Score:                score,
			RelatedLessonIDs:     models.StringList{},
			RelatedAssessmentIDs: models.StringList{},
		}
	} else {
		t = existing.Clone()
		t.Score = ClampScore(float64(existing.Score+score) / 2)
	}

	t.MasteryLevel = Advance(t.MasteryLevel, score >= p.TopicSuccessThreshold)
	t.LastStudiedAt = now

	switch kind {
	case models.KindLesson:
		t.RelatedLessonIDs = t.RelatedLessonIDs.Union(sessionID)
	case models.KindAssessment:
		t.RelatedAssessmentIDs = t.RelatedAssessmentIDs.Union(sessionID)
	}
	return t
}
