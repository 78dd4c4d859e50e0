package sentiment

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/azure/brand-pulse/internal/llm/llmtest"
	"github.com/azure/brand-pulse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResult(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected models.SentimentResult
		wantErr  bool
	}{
		{
			name:     "Valid response",
			response: `{"label":"positive","score":72}`,
			expected: models.SentimentResult{Label: "positive", Score: 72},
		},
		{
			name:     "Label normalized",
			response: "```json\n{\"label\":\" Negative \",\"score\":-40}\n```",
			expected: models.SentimentResult{Label: "negative", Score: -40},
		},
		{
			name:     "Out of range score clamped",
			response: `{"label":"positive","score":500}`,
			expected: models.SentimentResult{Label: "positive", Score: 100},
		},
		{
			name:     "Negative out of range clamped",
			response: `{"label":"negative","score":-250}`,
			expected: models.SentimentResult{Label: "negative", Score: -100},
		},
		{
			name:     "Inconsistent label kept",
			response: `{"label":"positive","score":-30}`,
			expected: models.SentimentResult{Label: "positive", Score: -30},
		},
		{
			name:     "Unknown label",
			response: `{"label":"mixed","score":10}`,
			expected: Neutral,
			wantErr:  true,
		},
		{
			name:     "Missing score",
			response: `{"label":"positive"}`,
			expected: Neutral,
			wantErr:  true,
		},
		{
			name:     "No JSON",
			response: "The sentiment is positive.",
			expected: Neutral,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseResult(tt.response)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestClassifier_AnalyzeBatchIsolatesFailures(t *testing.T) {
	fake := &llmtest.Fake{
		Respond: func(prompt string) (string, error) {
			switch {
			case strings.Contains(prompt, "great product"):
				return `{"label":"positive","score":80}`, nil
			case strings.Contains(prompt, "service outage"):
				return "", errors.New("rate limited")
			default:
				return `{"label":"negative","score":-65}`, nil
			}
		},
	}
	c := NewClassifier(fake, 2)

	results := c.AnalyzeBatch(context.Background(), []string{
		"great product overall",
		"the service outage ruined my week",
		"support never answered",
	}, "Acme")

	require.Len(t, results, 3)
	assert.Equal(t, models.SentimentResult{Label: "positive", Score: 80}, results[0])
	assert.Equal(t, Neutral, results[1])
	assert.Equal(t, models.SentimentResult{Label: "negative", Score: -65}, results[2])
}

func TestCalculateAggregate(t *testing.T) {
	results := []models.SentimentResult{
		{Label: "positive", Score: 0.85 * 100},
		{Label: "neutral", Score: 0.10 * 100},
		{Label: "negative", Score: -0.60 * 100},
		{Label: "positive", Score: 0.90 * 100},
		{Label: "positive", Score: 0.70 * 100},
	}

	agg := CalculateAggregate(results)

	assert.InDelta(t, 39.0, agg.Score, 0.01)
	assert.Equal(t, 5, agg.Total)
	assert.Equal(t, 3, agg.Positive)
	assert.Equal(t, 1, agg.Neutral)
	assert.Equal(t, 1, agg.Negative)
}

func TestCalculateAggregate_Empty(t *testing.T) {
	agg := CalculateAggregate(nil)
	assert.Equal(t, Aggregate{}, agg)
}

func TestGenerateHistory_Bounds(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	points := GenerateHistory(150, 24, rand.New(rand.NewSource(7)), now)

	require.Len(t, points, 24)
	for i, p := range points {
		assert.GreaterOrEqual(t, p.Score, -100.0)
		assert.LessOrEqual(t, p.Score, 100.0)
		if i > 0 {
			assert.True(t, p.Timestamp.After(points[i-1].Timestamp))
			assert.Equal(t, time.Hour, p.Timestamp.Sub(points[i-1].Timestamp))
		}
	}
	assert.Equal(t, now, points[23].Timestamp)
	assert.Equal(t, 100.0, points[23].Score)
}

func TestGenerateHistory_Deterministic(t *testing.T) {
	now := time.Now()
	a := GenerateHistory(-20, 12, rand.New(rand.NewSource(42)), now)
	b := GenerateHistory(-20, 12, rand.New(rand.NewSource(42)), now)
	assert.Equal(t, a, b)

	assert.Empty(t, GenerateHistory(10, 0, rand.New(rand.NewSource(1)), now))
}

func TestGenerateHistory_NewestConvergesToCurrent(t *testing.T) {
	points := GenerateHistory(-35.5, 24, rand.New(rand.NewSource(3)), time.Now())
	assert.Equal(t, -35.5, points[len(points)-1].Score)
}

func TestSummarizer_Summarize(t *testing.T) {
	snapshot := &models.SentimentSnapshot{
		Entity: "Acme", Score: 12, Total: 2, PositiveCount: 1, NegativeCount: 1,
		Mentions: []models.Mention{
			{Text: "love it", Sentiment: "positive", Score: 70},
			{Text: "shipping slow", Sentiment: "negative", Score: -40},
		},
	}

	fake := &llmtest.Fake{Fallback: `Summary: {"executive_summary":"Mixed views.","key_themes":[
		{"theme":"Quality","sentiment":"Positive","description":"Product quality praised."},
		{"theme":"Shipping","sentiment":"negative","description":"Delivery is slow."},
		{"theme":"Price","sentiment":"mixed","description":"Opinions vary."}]}`}

	summary := NewSummarizer(fake).Summarize(context.Background(), snapshot)

	assert.Equal(t, "Mixed views.", summary.ExecutiveSummary)
	require.Len(t, summary.KeyThemes, 3)
	assert.Equal(t, "positive", summary.KeyThemes[0].Sentiment)
	assert.Equal(t, "neutral", summary.KeyThemes[2].Sentiment)
	assert.Contains(t, fake.Prompts()[0], "shipping slow")
}

func TestSummarizer_FallbackOnMalformed(t *testing.T) {
	snapshot := &models.SentimentSnapshot{Entity: "Acme"}

	for _, resp := range []string{"no json here", `{"executive_summary":"","key_themes":[]}`, `{"key_themes":"oops"}`} {
		fake := &llmtest.Fake{Fallback: resp}
		summary := NewSummarizer(fake).Summarize(context.Background(), snapshot)
		require.Len(t, summary.KeyThemes, 1)
		assert.Equal(t, "Analysis Error", summary.KeyThemes[0].Theme)
	}
}
