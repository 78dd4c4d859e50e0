package sentiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/azure/brand-pulse/internal/llm"
	"github.com/azure/brand-pulse/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	summarySampleSize = 20
	maxKeyThemes      = 5
)

const summaryPrompt = `You are a brand analyst. Summarize public sentiment about "%s".

Overall score: %.1f (scale -100 to 100)
Mentions: %d total, %d positive, %d neutral, %d negative

Sample mentions:
%s
Output as JSON only, no other text:
{
  "executive_summary": "2-3 sentence overview of how people feel and why",
  "key_themes": [
    {"theme": "short name", "sentiment": "positive|neutral|negative", "description": "one sentence"}
  ]
}
Include 3 to 5 key themes.`

// FallbackSummary is returned when the model output cannot be used
func FallbackSummary() models.Summary {
	return models.Summary{
		ExecutiveSummary: "Unable to generate a summary for this analysis.",
		KeyThemes: []models.KeyTheme{{
			Theme:       "Analysis Error",
			Sentiment:   models.SentimentNeutral,
			Description: "The summary could not be generated from the model response.",
		}},
	}
}

// Summarizer writes executive summaries of snapshots
type Summarizer struct {
	classifier llm.Classifier
}

func NewSummarizer(classifier llm.Classifier) *Summarizer {
	return &Summarizer{classifier: classifier}
}

// Summarize never fails; malformed output yields FallbackSummary
func (s *Summarizer) Summarize(ctx context.Context, snapshot *models.SentimentSnapshot) models.Summary {
	var sb strings.Builder
	for i, m := range snapshot.Mentions {
		if i >= summarySampleSize {
			break
		}
		sb.WriteString(fmt.Sprintf("- (%s, %.0f) %s\n", m.Sentiment, m.Score, m.Text))
	}

	prompt := fmt.Sprintf(summaryPrompt, snapshot.Entity, snapshot.Score, snapshot.Total,
		snapshot.PositiveCount, snapshot.NeutralCount, snapshot.NegativeCount, sb.String())

	resp, err := s.classifier.Complete(ctx, prompt)
	if err != nil {
		logrus.WithField("entity", snapshot.Entity).Warnf("Summary call failed: %v", err)
		return FallbackSummary()
	}

	var parsed models.Summary
	if err := llm.DecodeObject(resp, &parsed); err != nil {
		logrus.WithField("entity", snapshot.Entity).Warnf("Invalid summary response: %v", err)
		return FallbackSummary()
	}

	var themes []models.KeyTheme
	for _, t := range parsed.KeyThemes {
		if strings.TrimSpace(t.Theme) == "" {
			continue
		}
		t.Sentiment = strings.ToLower(strings.TrimSpace(t.Sentiment))
		if t.Sentiment != models.SentimentPositive && t.Sentiment != models.SentimentNegative {
			t.Sentiment = models.SentimentNeutral
		}
		themes = append(themes, t)
		if len(themes) == maxKeyThemes {
			break
		}
	}

	if strings.TrimSpace(parsed.ExecutiveSummary) == "" || len(themes) == 0 {
		return FallbackSummary()
	}

	return models.Summary{
		ExecutiveSummary: strings.TrimSpace(parsed.ExecutiveSummary),
		KeyThemes:        themes,
	}
}
