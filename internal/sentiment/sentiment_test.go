package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreText(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantLabel Label
	}{
		{
			name:      "Positive headline",
			text:      "Shares surge as earnings beat expectations, strong growth ahead",
			wantLabel: Positive,
		},
		{
			name:      "Negative headline",
			text:      "Stock plunges on weak outlook, sell-off deepens amid recession concern",
			wantLabel: Negative,
		},
		{
			name:      "Non-financial text",
			text:      "The quick brown fox jumps over the lazy dog",
			wantLabel: Neutral,
		},
		{
			name:      "Empty text",
			text:      "",
			wantLabel: Neutral,
		},
		{
			name:      "Balanced text",
			text:      "gain and loss in equal measure",
			wantLabel: Neutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreText(tt.text)
			assert.Equal(t, tt.wantLabel, got.Label)
			assert.GreaterOrEqual(t, got.Score, -1.0)
			assert.LessOrEqual(t, got.Score, 1.0)
		})
	}
}

func TestScoreTextDeterministic(t *testing.T) {
	text := "Record profit and strong growth despite market risk"
	first := ScoreText(text)
	second := ScoreText(text)
	assert.Equal(t, first, second)
}

func TestScoreTextWordBoundaries(t *testing.T) {
	// "upgrade" contains "up" but is not a lexicon word.
	got := ScoreText("analyst upgrade downgrade")
	assert.Equal(t, Neutral, got.Label)
	assert.Zero(t, got.PositiveWords)
	assert.Zero(t, got.NegativeWords)
}

func TestAggregate(t *testing.T) {
	results := []Result{
		{Label: Positive, Score: 1.0},
		{Label: Positive, Score: 0.5},
		{Label: Negative, Score: -0.3},
	}

	got := Aggregate(results)
	assert.Equal(t, Positive, got.Label)
	assert.InDelta(t, 0.4, got.Score, 1e-9)
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil)
	assert.Equal(t, Neutral, got.Label)
	assert.Zero(t, got.Score)
}

func TestAggregateThresholds(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   Label
	}{
		{"Just above threshold", []float64{0.2, 0.1}, Positive},
		{"Inside neutral band", []float64{0.1, 0.05}, Neutral},
		{"Just below threshold", []float64{-0.2, -0.1}, Negative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]Result, len(tt.scores))
			for i, s := range tt.scores {
				results[i] = Result{Score: s}
			}
			assert.Equal(t, tt.want, Aggregate(results).Label)
		})
	}
}
