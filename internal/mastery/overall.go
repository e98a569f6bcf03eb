package mastery

import "github.com/example/engprogress/pkg/models"

// Recompute fuses a session's metrics into the user's aggregate and returns the
// updated copy. existing must not be nil; callers start from
// models.NewLearningProgress for a user without history.
func (p Policy) Recompute(existing *models.LearningProgress, text *models.TextMetrics, audio *models.AudioMetrics) *models.LearningProgress {
	next := existing.Clone()
	prior := existing.Score()

	sessionScore := prior
	switch {
	case audio != nil && audio.OverallPerformance != nil:
		sessionScore = ClampScore(*audio.OverallPerformance)
	case text != nil && text.OverallScore != nil:
		sessionScore = ClampScore(*text.OverallScore)
	case text != nil && text.Accuracy != nil:
		sessionScore = ClampScore(*text.Accuracy)
	}

	blended := ClampScore(float64(prior)*p.HistoryWeight + float64(sessionScore)*p.SessionWeight)
	next.OverallScore = &blended

	// proficiency only ratchets upward
	if audio != nil {
		if level, ok := models.ProficiencyFromCEFR(audio.ProficiencyLevel); ok && level.Rank() > next.EstimatedProficiencyLevel.Rank() {
			next.EstimatedProficiencyLevel = level
		}
	}

	if audio != nil && audio.LearningTrajectory.Valid() {
		next.LearningTrajectory = audio.LearningTrajectory
	} else {
		next.LearningTrajectory = p.trajectory(blended - prior)
	}

	var strengths, weaknesses []string
	if text != nil {
		strengths = append(strengths, text.Strengths...)
		weaknesses = append(weaknesses, text.Weaknesses...)
	}
	if audio != nil {
		for _, f := range audio.Strengths {
			strengths = append(strengths, f.Area)
		}
		for _, f := range audio.Weaknesses {
			weaknesses = append(weaknesses, f.Area)
		}
	}
	next.Strengths = MergeTags(next.Strengths, strengths, p.TagCap)
	next.Weaknesses = MergeTags(next.Weaknesses, weaknesses, p.TagCap)

	return next
}

func (p Policy) trajectory(delta int) models.Trajectory {
	switch {
	case delta > p.TrajectoryDelta:
		return models.Accelerating
	case delta < -p.TrajectoryDelta:
		return models.Plateauing
	default:
		return models.Steady
	}
}

// MergeTags unions incoming tags into existing, treating the end of the list as
// most recent. A tag seen again moves to the end. Only the last limit entries are kept.
func MergeTags(existing models.StringList, incoming []string, limit int) models.StringList {
	out := existing.Clone()
	for _, raw := range incoming {
		tag := NormalizeTopic(raw)
		if tag == "" {
			continue
		}
		for i, v := range out {
			if v == tag {
				out = append(out[:i], out[i+1:]...)
				break
			}
		}
		out = append(out, tag)
	}
	if limit > 0 && len(out) > limit {
		out = append(models.StringList{}, out[len(out)-limit:]...)
	}
	return out
}
