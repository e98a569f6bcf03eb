package mastery

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicyIsValid(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Policy)
	}{
		{"weights do not sum to one", func(p *Policy) { p.SessionWeight = 0.8 }},
		{"negative weight", func(p *Policy) { p.HistoryWeight = -0.3; p.SessionWeight = 1.3 }},
		{"threshold above 100", func(p *Policy) { p.TopicSuccessThreshold = 101 }},
		{"zero cap", func(p *Policy) { p.TagCap = 0 }},
		{"negative delta", func(p *Policy) { p.TrajectoryDelta = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-3))
	assert.Equal(t, 100, ClampScore(140))
	assert.Equal(t, 57, ClampScore(56.5))
	assert.Equal(t, 0, ClampScore(math.NaN()))
}
