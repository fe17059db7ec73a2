package service

import (
	"testing"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestAdvisor_SuggestAny(t *testing.T) {
	adv := NewAdvisor(zap.NewNop())

	tests := []struct {
		name       string
		b1, b2     any
		strategy   domain.Strategy
		confidence float64
		target     domain.Target
	}{
		{
			name:       "time dependent",
			b1:         "In 2020 I lived in Rome",
			b2:         "I live in Paris",
			strategy:   domain.StrategyReframe,
			confidence: 0.82,
			target:     domain.TargetBeliefB,
		},
		{
			name:       "weak source and large gap",
			b1:         map[string]any{"text": "x is true", "source": "unknown", "confidence": 0.3},
			b2:         map[string]any{"text": "x is false", "confidence": 0.9},
			strategy:   domain.StrategyInhibit,
			confidence: 0.9,
			target:     domain.TargetBeliefA,
		},
		{
			name:       "weak source without gap",
			b1:         map[string]any{"text": "x is true", "confidence": 0.7},
			b2:         map[string]any{"text": "x is false", "source": "heuristic", "confidence": 0.7},
			strategy:   domain.StrategyInhibit,
			confidence: 0.65,
			target:     domain.TargetBeliefB,
		},
		{
			name:       "both opinionated",
			b1:         "I believe art matters most",
			b2:         "I think art is overrated",
			strategy:   domain.StrategyDreamResolution,
			confidence: 0.7,
			target:     domain.TargetBoth,
		},
		{
			name:       "weakly held",
			b1:         map[string]any{"text": "cats are fast", "confidence": 0.3},
			b2:         map[string]any{"text": "cats are slow", "confidence": 0.4},
			strategy:   domain.StrategyFlagForReview,
			confidence: 0.52,
			target:     domain.TargetBoth,
		},
		{
			name:       "no signal",
			b1:         map[string]any{"text": "cats are fast", "confidence": 0.8},
			b2:         map[string]any{"text": "cats are slow", "confidence": 0.7},
			strategy:   domain.StrategyInhibit,
			confidence: 0.62,
			target:     domain.TargetBeliefB,
		},
		{
			name:       "garbage input",
			b1:         42,
			b2:         nil,
			strategy:   domain.StrategyInhibit,
			confidence: 0.62,
			target:     domain.TargetBeliefB,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := adv.SuggestAny(tt.b1, tt.b2)
			assert.Equal(t, tt.strategy, res.Strategy)
			assert.InDelta(t, tt.confidence, res.Confidence, 1e-9)
			assert.Equal(t, tt.target, res.Target)
			assert.NotEmpty(t, res.Notes)
			assert.Equal(t, resolverSource, res.Source)
			assert.False(t, res.CreatedAt.IsZero())
		})
	}
}

func TestAdvisor_ReframeOrdersByTime(t *testing.T) {
	adv := NewAdvisor(zap.NewNop())
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	current := &domain.Belief{Text: "I currently live in Paris", Confidence: 0.8, LastUpdated: now}
	past := &domain.Belief{Text: "I live in Rome", Confidence: 0.8, LastUpdated: now.Add(-48 * time.Hour)}

	res := adv.Suggest(current, past)
	assert.Equal(t, domain.StrategyReframe, res.Strategy)
	assert.Equal(t, domain.TargetBeliefB, res.Target)
	assert.Equal(t, past.Text, res.TargetText)
	assert.Equal(t, "Historically: I live in Rome | Currently: I currently live in Paris", res.ReframedBelief)
}

func TestAdvisor_ReframeTargetsWeakerBelief(t *testing.T) {
	adv := NewAdvisor(zap.NewNop())
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	past := &domain.Belief{Text: "In 2020 I lived in Rome", Confidence: 0.9, LastUpdated: now.Add(-48 * time.Hour)}
	current := &domain.Belief{Text: "I live in Paris now", Confidence: 0.3, LastUpdated: now}

	res := adv.Suggest(past, current)
	assert.Equal(t, domain.StrategyReframe, res.Strategy)
	assert.Equal(t, domain.TargetBeliefB, res.Target)
	assert.Equal(t, current.Text, res.TargetText)
	assert.Equal(t, "Historically: In 2020 I lived in Rome | Currently: I live in Paris now", res.ReframedBelief)
}

func TestWeaker(t *testing.T) {
	tests := []struct {
		name   string
		b1, b2 domain.Belief
		want   domain.Target
	}{
		{"clearly lower first", domain.Belief{Confidence: 0.3}, domain.Belief{Confidence: 0.6}, domain.TargetBeliefA},
		{"clearly lower second", domain.Belief{Confidence: 0.9}, domain.Belief{Confidence: 0.7}, domain.TargetBeliefB},
		{"weak first source", domain.Belief{Confidence: 0.5, Source: "auto"}, domain.Belief{Confidence: 0.6}, domain.TargetBeliefA},
		{"both weak sources", domain.Belief{Confidence: 0.5, Source: "auto"}, domain.Belief{Confidence: 0.5, Source: "system"}, domain.TargetBeliefB},
		{"neutral first stance", domain.Belief{Confidence: 0.5, Polarity: 0}, domain.Belief{Confidence: 0.5, Polarity: -1}, domain.TargetBeliefA},
		{"tie", domain.Belief{Confidence: 0.5, Polarity: 1}, domain.Belief{Confidence: 0.5, Polarity: -1}, domain.TargetBeliefB},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, weaker(&tt.b1, &tt.b2))
		})
	}
}

func TestIsTimeDependent(t *testing.T) {
	for _, text := range []string{"As of today it works", "I used to smoke", "Back in 1999", "It is no longer true", "Nowadays people walk"} {
		assert.True(t, isTimeDependent(text), text)
	}
	for _, text := range []string{"Cats are fast", "Snow is cold", "Knowledge is power"} {
		assert.False(t, isTimeDependent(text), text)
	}
}
