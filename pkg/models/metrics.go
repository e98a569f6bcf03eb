package models

import "fmt"

// TextMetrics are correctness metrics computed from a session's typed answers.
// Scores are on a 0-100 scale.
type TextMetrics struct {
	Accuracy     *float64 `json:"accuracy,omitempty"`
	OverallScore *float64 `json:"overall_score,omitempty"`
	Strengths    []string `json:"strengths,omitempty"`
	Weaknesses   []string `json:"weaknesses,omitempty"`
}

// Validate checks score ranges
func (m *TextMetrics) Validate() error {
	if m == nil {
		return nil
	}
	if err := checkPercent("accuracy", m.Accuracy); err != nil {
		return err
	}
	return checkPercent("overall_score", m.OverallScore)
}

// AudioFinding is one strength or weakness surfaced by audio analysis
type AudioFinding struct {
	Area     string   `json:"area"`
	Examples []string `json:"examples,omitempty"`
}

// AudioMetrics are the richer metrics derived from a session's recordings
type AudioMetrics struct {
	OverallPerformance *float64       `json:"overall_performance,omitempty"`
	ProficiencyLevel   string         `json:"proficiency_level,omitempty"`
	LearningTrajectory Trajectory     `json:"learning_trajectory,omitempty"`
	Strengths          []AudioFinding `json:"strengths,omitempty"`
	Weaknesses         []AudioFinding `json:"weaknesses,omitempty"`
}

// Validate checks score ranges and the trajectory enum
func (m *AudioMetrics) Validate() error {
	if m == nil {
		return nil
	}
	if err := checkPercent("overall_performance", m.OverallPerformance); err != nil {
		return err
	}
	if m.LearningTrajectory != "" && !m.LearningTrajectory.Valid() {
		return fmt.Errorf("unknown learning_trajectory %q", m.LearningTrajectory)
	}
	return nil
}

func checkPercent(name string, v *float64) error {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > 100 || *v != *v {
		return fmt.Errorf("%s must be within 0-100, got %v", name, *v)
	}
	return nil
}
