package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProficiencyLevel is the coarse estimate of a learner's overall ability
type ProficiencyLevel string

const (
	Beginner     ProficiencyLevel = "beginner"
	Intermediate ProficiencyLevel = "intermediate"
	Advanced     ProficiencyLevel = "advanced"
)

// Rank orders proficiency levels; unknown values rank below beginner
func (p ProficiencyLevel) Rank() int {
	switch p {
	case Beginner:
		return 0
	case Intermediate:
		return 1
	case Advanced:
		return 2
	default:
		return -1
	}
}

// ProficiencyFromCEFR maps a CEFR band (A1..C2, suffixes like "B2+" allowed) to a proficiency level
func ProficiencyFromCEFR(cefr string) (ProficiencyLevel, bool) {
	s := strings.ToUpper(strings.TrimSpace(cefr))
	if len(s) < 2 {
		return "", false
	}
	switch s[:2] {
	case "A1", "A2":
		return Beginner, true
	case "B1", "B2":
		return Intermediate, true
	case "C1", "C2":
		return Advanced, true
	}
	return "", false
}

// Trajectory classifies recent score movement
type Trajectory string

const (
	Accelerating Trajectory = "accelerating"
	Steady       Trajectory = "steady"
	Plateauing   Trajectory = "plateauing"
)

// Valid reports whether t is one of the three known trajectories
func (t Trajectory) Valid() bool {
	switch t {
	case Accelerating, Steady, Plateauing:
		return true
	}
	return false
}

// StringList is an ordered list of short strings stored as a JSON array in a TEXT column
type StringList []string

// Value encodes the list as JSON
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan decodes a JSON array written by Value
func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode string list: %w", err)
	}
	*l = out
	return nil
}

// Contains reports whether s is in the list
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// Union appends s unless it is already present or empty
func (l StringList) Union(s string) StringList {
	if s == "" || l.Contains(s) {
		return l
	}
	return append(l, s)
}

// Clone returns an independent copy
func (l StringList) Clone() StringList {
	out := make(StringList, len(l))
	copy(out, l)
	return out
}

// LearningProgress is the per-user root aggregate of learning state
type LearningProgress struct {
	ID                        string           `json:"id" db:"id"`
	UserID                    string           `json:"user_id" db:"user_id"`
	EstimatedProficiencyLevel ProficiencyLevel `json:"estimated_proficiency_level" db:"estimated_proficiency_level"`
	OverallScore              *int             `json:"overall_score" db:"overall_score"`
	LearningTrajectory        Trajectory       `json:"learning_trajectory" db:"learning_trajectory"`
	Strengths                 StringList       `json:"strengths" db:"strengths"`
	Weaknesses                StringList       `json:"weaknesses" db:"weaknesses"`
	LastLessonCompletedAt     *time.Time       `json:"last_lesson_completed_at" db:"last_lesson_completed_at"`
	LastAssessmentCompletedAt *time.Time       `json:"last_assessment_completed_at" db:"last_assessment_completed_at"`
	Version                   int64            `json:"version" db:"version"`
	CreatedAt                 time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt                 time.Time        `json:"updated_at" db:"updated_at"`
}

// NewLearningProgress returns the default aggregate for a user with no history
func NewLearningProgress(userID string) *LearningProgress {
	return &LearningProgress{
		UserID:                    userID,
		EstimatedProficiencyLevel: Beginner,
		LearningTrajectory:        Steady,
		Strengths:                 StringList{},
		Weaknesses:                StringList{},
	}
}

// Score returns the overall score, treating a missing score as zero
func (p *LearningProgress) Score() int {
	if p == nil || p.OverallScore == nil {
		return 0
	}
	return *p.OverallScore
}

// Clone returns a deep copy
func (p *LearningProgress) Clone() *LearningProgress {
	if p == nil {
		return nil
	}
	c := *p
	if p.OverallScore != nil {
		v := *p.OverallScore
		c.OverallScore = &v
	}
	if p.LastLessonCompletedAt != nil {
		t := *p.LastLessonCompletedAt
		c.LastLessonCompletedAt = &t
	}
	if p.LastAssessmentCompletedAt != nil {
		t := *p.LastAssessmentCompletedAt
		c.LastAssessmentCompletedAt = &t
	}
	c.Strengths = p.Strengths.Clone()
	c.Weaknesses = p.Weaknesses.Clone()
	return &c
}
