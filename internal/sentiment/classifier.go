// Package sentiment scores texts toward an entity and aggregates the scores.
package sentiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/azure/brand-pulse/internal/fanout"
	"github.com/azure/brand-pulse/internal/llm"
	"github.com/azure/brand-pulse/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	MinScore = -100.0
	MaxScore = 100.0

	defaultConcurrency = 5
	maxAnalyzedChars   = 2000
)

const analyzePrompt = `Analyze the sentiment of the following text toward "%s".

Score bands:
  60 to 100: very positive
  20 to 59: somewhat positive
  -19 to 19: neutral
  -59 to -20: somewhat negative
  -100 to -60: very negative

Text:
"""
%s
"""

Respond with ONLY a JSON object: {"label": "positive" | "neutral" | "negative", "score": <number from -100 to 100>}`

// Neutral is the result used whenever classification fails
var Neutral = models.SentimentResult{Label: models.SentimentNeutral, Score: 0}

// Classifier scores single texts
type Classifier struct {
	classifier  llm.Classifier
	concurrency int
}

func NewClassifier(classifier llm.Classifier, concurrency int) *Classifier {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Classifier{
		classifier:  classifier,
		concurrency: concurrency,
	}
}

// Analyze never fails; call and validation errors yield Neutral
func (c *Classifier) Analyze(ctx context.Context, text, entity string) models.SentimentResult {
	resp, err := c.classifier.Complete(ctx, fmt.Sprintf(analyzePrompt, entity, clip(text, maxAnalyzedChars)))
	if err != nil {
		logrus.WithField("entity", entity).Debugf("Sentiment call failed: %v", err)
		return Neutral
	}

	result, err := ParseResult(resp)
	if err != nil {
		logrus.WithField("entity", entity).Debugf("Invalid sentiment response: %v", err)
		return Neutral
	}
	return result
}

// AnalyzeBatch scores texts with bounded concurrency. Results line up
// with texts and one failure never affects another item.
func (c *Classifier) AnalyzeBatch(ctx context.Context, texts []string, entity string) []models.SentimentResult {
	return fanout.Map(ctx, c.concurrency, texts, func(ctx context.Context, text string) models.SentimentResult {
		return c.Analyze(ctx, text, entity)
	})
}

// ParseResult validates a model answer. The label is kept as returned and
// is not reconciled with the score; the score is clamped to [-100, 100].
func ParseResult(resp string) (models.SentimentResult, error) {
	var parsed struct {
		Label string   `json:"label"`
		Score *float64 `json:"score"`
	}
	if err := llm.DecodeObject(resp, &parsed); err != nil {
		return Neutral, err
	}

	label := strings.ToLower(strings.TrimSpace(parsed.Label))
	switch label {
	case models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative:
	default:
		return Neutral, fmt.Errorf("invalid label %q", parsed.Label)
	}

	if parsed.Score == nil {
		return Neutral, fmt.Errorf("missing score")
	}

	return models.SentimentResult{Label: label, Score: Clamp(*parsed.Score)}, nil
}

// Clamp bounds a score to [-100, 100]
func Clamp(score float64) float64 {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
