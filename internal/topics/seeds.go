// Package topics generates search topics for an entity.
package topics

import (
	"context"
	"fmt"
	"strings"

	"github.com/azure/brand-pulse/internal/llm"
	"github.com/sirupsen/logrus"
)

const seedPrompt = `You are helping find authentic public discussion about "%[1]s".

Generate %[2]d distinct search phrases for a forum search engine. Rules:
- Every phrase MUST contain the exact name "%[1]s"
- Target personal experiences, opinions, reviews, complaints and praise
- Avoid phrases that would mostly return news, press releases, stock talk or job postings
- Keep each phrase short (2-6 words)

Return ONLY a JSON array of strings, no other text.
Example: ["%[1]s customer service experience", "%[1]s worth it"]`

// SeedGenerator produces search topics for an entity
type SeedGenerator struct {
	classifier llm.Classifier
}

func NewSeedGenerator(classifier llm.Classifier) *SeedGenerator {
	return &SeedGenerator{classifier: classifier}
}

// Generate returns at most k trimmed, distinct, non-empty topics. It never
// returns an empty list; any failure falls back to the entity name alone.
func (g *SeedGenerator) Generate(ctx context.Context, entity string, k int) []string {
	fallback := []string{entity}
	if k <= 0 {
		return fallback
	}

	resp, err := g.classifier.Complete(ctx, fmt.Sprintf(seedPrompt, entity, k))
	if err != nil {
		logrus.WithField("entity", entity).Warnf("Topic generation failed, using entity name: %v", err)
		return fallback
	}

	var raw []string
	if err := llm.DecodeArray(resp, &raw); err != nil {
		logrus.WithField("entity", entity).Warnf("Unparseable topic list, using entity name: %v", err)
		return fallback
	}

	seen := make(map[string]bool)
	var topics []string
	for _, t := range raw {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		topics = append(topics, t)
		if len(topics) == k {
			break
		}
	}

	if len(topics) == 0 {
		return fallback
	}

	logrus.WithField("entity", entity).Debugf("Generated %d search topics", len(topics))
	return topics
}
