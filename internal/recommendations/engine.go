// Package recommendations turns prioritized topic clusters into response
// strategies and drafts platform-specific posts from them.
package recommendations

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/azure/brand-pulse/internal/clustering"
	"github.com/azure/brand-pulse/internal/fanout"
	"github.com/azure/brand-pulse/internal/llm"
	"github.com/azure/brand-pulse/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	negativeSampleSize = 8
	maxPostIdeas       = 4
	engineConcurrency  = 4
	maxSampleChars     = 280
)

const recommendationPrompt = `You advise the communications team of "%s".

Public discussion topic: %s
%s
Statistics: %d mentions, %d negative, %d neutral, %d positive, average sentiment %.1f (-100 to 100), priority %s.

Sample negative comments:
%s
Output as JSON only, no other text:
{
  "issue": "one sentence describing the core problem people raise",
  "impact": "one sentence on the business impact if it is not addressed",
  "post_ideas": [
    {"id": "1", "title": "short title", "description": "what the post would say", "angle": "e.g. transparency, apology, education, behind-the-scenes, customer story, roadmap"}
  ]
}
Provide 3 to 4 post ideas.`

type recommendationResponse struct {
	Issue     string            `json:"issue"`
	Impact    string            `json:"impact"`
	PostIdeas []models.PostIdea `json:"post_ideas"`
}

// Engine builds recommendations for clusters that need a response
type Engine struct {
	classifier llm.Classifier
}

func NewEngine(classifier llm.Classifier) *Engine {
	return &Engine{classifier: classifier}
}

// Generate handles every addressed cluster independently. A cluster whose
// call or parse fails is dropped. Results are sorted by priority.
func (e *Engine) Generate(ctx context.Context, entity string, clusters []models.TopicCluster) []models.Recommendation {
	var addressed []models.TopicCluster
	for _, c := range clusters {
		if c.ShouldAddress {
			addressed = append(addressed, c)
		}
	}

	results := fanout.Map(ctx, engineConcurrency, addressed, func(ctx context.Context, c models.TopicCluster) *models.Recommendation {
		rec, err := e.generateOne(ctx, entity, c)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"entity": entity,
				"topic":  c.Topic,
			}).Warnf("Dropping recommendation: %v", err)
			return nil
		}
		return rec
	})

	recs := []models.Recommendation{}
	for _, r := range results {
		if r != nil {
			recs = append(recs, *r)
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return clustering.PriorityRank(recs[i].Priority) < clustering.PriorityRank(recs[j].Priority)
	})
	return recs
}

func (e *Engine) generateOne(ctx context.Context, entity string, c models.TopicCluster) (*models.Recommendation, error) {
	var sb strings.Builder
	n := 0
	for _, m := range c.Mentions {
		if m.Sentiment != models.SentimentNegative {
			continue
		}
		sb.WriteString("- " + clip(mentionText(m), maxSampleChars) + "\n")
		n++
		if n == negativeSampleSize {
			break
		}
	}
	if n == 0 {
		sb.WriteString("(none)\n")
	}

	description := ""
	if c.Description != "" {
		description = "Summary: " + c.Description + "\n"
	}

	prompt := fmt.Sprintf(recommendationPrompt, entity, c.Topic, description,
		c.MentionCount, c.NegativeCount, c.NeutralCount, c.PositiveCount,
		c.AverageSentiment, c.Priority, sb.String())

	resp, err := e.classifier.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("classification call failed: %w", err)
	}

	var parsed recommendationResponse
	if err := llm.DecodeObject(resp, &parsed); err != nil {
		return nil, err
	}
	if strings.TrimSpace(parsed.Issue) == "" {
		return nil, fmt.Errorf("response has no issue statement")
	}

	ideas := []models.PostIdea{}
	for _, idea := range parsed.PostIdeas {
		if strings.TrimSpace(idea.Title) == "" {
			continue
		}
		if strings.TrimSpace(idea.ID) == "" {
			idea.ID = uuid.NewString()
		}
		ideas = append(ideas, idea)
		if len(ideas) == maxPostIdeas {
			break
		}
	}
	if len(ideas) == 0 {
		return nil, fmt.Errorf("response has no post ideas")
	}

	return &models.Recommendation{
		Topic:                c.Topic,
		Priority:             c.Priority,
		Issue:                strings.TrimSpace(parsed.Issue),
		Impact:               strings.TrimSpace(parsed.Impact),
		PostIdeas:            ideas,
		AffectedMentionCount: c.MentionCount,
	}, nil
}

func mentionText(m models.Mention) string {
	if m.FullText != "" {
		return m.FullText
	}
	return m.Text
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
