// Package clustering groups mentions into named topics and ranks the
// topics by how urgently they need a public response.
package clustering

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/azure/brand-pulse/internal/fanout"
	"github.com/azure/brand-pulse/internal/llm"
	"github.com/azure/brand-pulse/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	FallbackTopic = "General Feedback"

	topicSampleSize       = 30
	descriptionSampleSize = 5
	maxTopics             = 8
	assignConcurrency     = 5
	maxPromptTextChars    = 300
)

const topicsPrompt = `Here are public comments about "%s":

%s
Identify 5 to 8 distinct topics these comments discuss (for example product quality, pricing, customer support).
Use short topic names of 1-4 words.

Return ONLY a JSON array of topic names, e.g. ["Customer Support", "Pricing"]`

const assignPrompt = `Which ONE of these topics best fits the comment about "%s"?

Topics:
%s
Comment:
"""
%s
"""

Respond with ONLY the exact topic name from the list.`

const describePrompt = `Write one sentence describing what people are saying about "%s" regarding the topic "%s".

Comments:
%s
Respond with only the sentence.`

// Clusterer groups mentions into prioritized topics
type Clusterer struct {
	classifier llm.Classifier
}

func NewClusterer(classifier llm.Classifier) *Clusterer {
	return &Clusterer{classifier: classifier}
}

// Cluster assigns every mention to exactly one topic and returns the non-empty
// topics sorted by priority, then by descending mention count
func (c *Clusterer) Cluster(ctx context.Context, entity string, mentions []models.Mention) []models.TopicCluster {
	if len(mentions) == 0 {
		return []models.TopicCluster{}
	}

	topics := c.identifyTopics(ctx, entity, mentions)
	logrus.WithField("entity", entity).Infof("Identified %d topics", len(topics))

	assignments := c.assignTopics(ctx, entity, topics, mentions)

	grouped := make(map[string][]models.Mention, len(topics))
	for i, m := range mentions {
		grouped[assignments[i]] = append(grouped[assignments[i]], m)
	}

	var clusters []models.TopicCluster
	for _, topic := range topics {
		if len(grouped[topic]) == 0 {
			continue
		}
		cluster := NewCluster(topic, grouped[topic])
		clusters = append(clusters, cluster)
	}

	descriptions := fanout.Map(ctx, assignConcurrency, clusters, func(ctx context.Context, cl models.TopicCluster) string {
		return c.describe(ctx, entity, cl)
	})
	for i := range clusters {
		clusters[i].Description = descriptions[i]
	}

	SortClusters(clusters)
	return clusters
}

func (c *Clusterer) identifyTopics(ctx context.Context, entity string, mentions []models.Mention) []string {
	var sb strings.Builder
	for i, m := range mentions {
		if i >= topicSampleSize {
			break
		}
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, clip(mentionText(m), maxPromptTextChars)))
	}

	fallback := []string{FallbackTopic}

	resp, err := c.classifier.Complete(ctx, fmt.Sprintf(topicsPrompt, entity, sb.String()))
	if err != nil {
		logrus.WithField("entity", entity).Warnf("Topic identification failed: %v", err)
		return fallback
	}

	var raw []string
	if err := llm.DecodeArray(resp, &raw); err != nil {
		logrus.WithField("entity", entity).Warnf("Unparseable topic list: %v", err)
		return fallback
	}

	seen := make(map[string]bool)
	var topics []string
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		topics = append(topics, t)
		if len(topics) == maxTopics {
			break
		}
	}
	if len(topics) == 0 {
		return fallback
	}
	return topics
}

func (c *Clusterer) assignTopics(ctx context.Context, entity string, topics []string, mentions []models.Mention) []string {
	if len(topics) == 1 {
		out := make([]string, len(mentions))
		for i := range out {
			out[i] = topics[0]
		}
		return out
	}

	var list strings.Builder
	for _, t := range topics {
		list.WriteString("- " + t + "\n")
	}

	return fanout.Map(ctx, assignConcurrency, mentions, func(ctx context.Context, m models.Mention) string {
		resp, err := c.classifier.Complete(ctx, fmt.Sprintf(assignPrompt, entity, list.String(), clip(mentionText(m), maxPromptTextChars*3)))
		if err != nil {
			logrus.WithField("mention", m.ID).Debugf("Topic assignment failed: %v", err)
			return topics[0]
		}
		return MatchTopic(resp, topics)
	})
}

// MatchTopic maps a free-text answer onto topics case-insensitively,
// defaulting to the first topic
func MatchTopic(answer string, topics []string) string {
	cleaned := strings.ToLower(strings.Trim(strings.TrimSpace(answer), "\"'`.*- "))
	for _, t := range topics {
		if strings.ToLower(t) == cleaned {
			return t
		}
	}

	// Prefer the longest topic name contained in the answer
	best := ""
	for _, t := range topics {
		if strings.Contains(cleaned, strings.ToLower(t)) && len(t) > len(best) {
			best = t
		}
	}
	if best != "" {
		return best
	}
	return topics[0]
}

func (c *Clusterer) describe(ctx context.Context, entity string, cluster models.TopicCluster) string {
	fallback := fmt.Sprintf("Comments about %s related to %s.", entity, strings.ToLower(cluster.Topic))

	var sb strings.Builder
	for i, m := range cluster.Mentions {
		if i >= descriptionSampleSize {
			break
		}
		sb.WriteString("- " + clip(mentionText(m), maxPromptTextChars) + "\n")
	}

	resp, err := c.classifier.Complete(ctx, fmt.Sprintf(describePrompt, entity, cluster.Topic, sb.String()))
	if err != nil {
		return fallback
	}
	desc := strings.Trim(strings.TrimSpace(resp), "\"")
	if desc == "" {
		return fallback
	}
	return desc
}

// NewCluster computes the statistics and priority of a topic
func NewCluster(topic string, mentions []models.Mention) models.TopicCluster {
	cluster := models.TopicCluster{
		Topic:        topic,
		MentionCount: len(mentions),
		Mentions:     mentions,
	}

	var sum float64
	for _, m := range mentions {
		sum += m.Score
		switch m.Sentiment {
		case models.SentimentPositive:
			cluster.PositiveCount++
		case models.SentimentNegative:
			cluster.NegativeCount++
		default:
			cluster.NeutralCount++
		}
	}
	if len(mentions) > 0 {
		cluster.AverageSentiment = sum / float64(len(mentions))
	}

	cluster.ShouldAddress, cluster.Priority = Prioritize(cluster.MentionCount, cluster.NegativeCount, cluster.AverageSentiment)
	return cluster
}

// Prioritize decides whether a topic needs a response and how urgently
func Prioritize(mentionCount, negativeCount int, averageSentiment float64) (bool, string) {
	if mentionCount == 0 {
		return false, models.PriorityLow
	}
	negativePct := float64(negativeCount) / float64(mentionCount) * 100

	shouldAddress := negativePct >= 40 || (negativeCount >= 3 && averageSentiment < -10)
	if !shouldAddress {
		return false, models.PriorityLow
	}
	if negativePct >= 60 || averageSentiment <= -30 {
		return true, models.PriorityHigh
	}
	return true, models.PriorityMedium
}

// PriorityRank orders priorities high first
func PriorityRank(priority string) int {
	switch priority {
	case models.PriorityHigh:
		return 0
	case models.PriorityMedium:
		return 1
	default:
		return 2
	}
}

// SortClusters orders by priority, then by descending mention count
func SortClusters(clusters []models.TopicCluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		pi, pj := PriorityRank(clusters[i].Priority), PriorityRank(clusters[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return clusters[i].MentionCount > clusters[j].MentionCount
	})
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
