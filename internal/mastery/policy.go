package mastery

import (
	"fmt"
	"math"
)

const (
	// DefaultHistoryWeight is the share of the prior overall score kept in the blend
	DefaultHistoryWeight = 0.3
	// DefaultSessionWeight is the share given to the new session's score
	DefaultSessionWeight = 0.7
	// DefaultTopicSuccessThreshold is the effective score at which a topic session counts as a success
	DefaultTopicSuccessThreshold = 70
	// DefaultTagCap bounds the strengths and weaknesses lists
	DefaultTagCap = 10
	// DefaultTrajectoryDelta is the score movement needed to leave "steady"
	DefaultTrajectoryDelta = 5
)

// Policy holds the tunable constants of the aggregation rules
type Policy struct {
	HistoryWeight         float64 `yaml:"history_weight"`
	SessionWeight         float64 `yaml:"session_weight"`
	TopicSuccessThreshold int     `yaml:"topic_success_threshold"`
	TagCap                int     `yaml:"tag_cap"`
	TrajectoryDelta       int     `yaml:"trajectory_delta"`
}

// DefaultPolicy returns the policy with the standard weights
func DefaultPolicy() Policy {
	return Policy{
		HistoryWeight:         DefaultHistoryWeight,
		SessionWeight:         DefaultSessionWeight,
		TopicSuccessThreshold: DefaultTopicSuccessThreshold,
		TagCap:                DefaultTagCap,
		TrajectoryDelta:       DefaultTrajectoryDelta,
	}
}

// Validate rejects policies that would produce out-of-range scores
func (p Policy) Validate() error {
	if p.HistoryWeight < 0 || p.SessionWeight < 0 {
		return fmt.Errorf("weights must be non-negative")
	}
	if math.Abs(p.HistoryWeight+p.SessionWeight-1) > 1e-9 {
		return fmt.Errorf("history_weight and session_weight must sum to 1, got %v", p.HistoryWeight+p.SessionWeight)
	}
	if p.TopicSuccessThreshold < 0 || p.TopicSuccessThreshold > 100 {
		return fmt.Errorf("topic_success_threshold must be within 0-100, got %d", p.TopicSuccessThreshold)
	}
	if p.TagCap <= 0 {
		return fmt.Errorf("tag_cap must be positive, got %d", p.TagCap)
	}
	if p.TrajectoryDelta < 0 {
		return fmt.Errorf("trajectory_delta must be non-negative, got %d", p.TrajectoryDelta)
	}
	return nil
}

// ClampScore rounds v to the nearest integer within 0-100
func ClampScore(v float64) int {
	if v != v {
		return 0
	}
	r := int(math.Round(v))
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}
