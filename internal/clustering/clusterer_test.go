package clustering

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/azure/brand-pulse/internal/llm/llmtest"
	"github.com/azure/brand-pulse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrioritize(t *testing.T) {
	tests := []struct {
		name          string
		mentionCount  int
		negative      int
		average       float64
		shouldAddress bool
		priority      string
	}{
		{name: "60 percent negative is high", mentionCount: 10, negative: 6, average: -5, shouldAddress: true, priority: "high"},
		{name: "40 percent negative is medium", mentionCount: 10, negative: 4, average: -15, shouldAddress: true, priority: "medium"},
		{name: "Low average escalates to high", mentionCount: 10, negative: 4, average: -30, shouldAddress: true, priority: "high"},
		{name: "Three negatives with low average", mentionCount: 20, negative: 3, average: -11, shouldAddress: true, priority: "medium"},
		{name: "Three negatives but mild average", mentionCount: 20, negative: 3, average: -10, shouldAddress: false, priority: "low"},
		{name: "Mostly positive", mentionCount: 10, negative: 1, average: 45, shouldAddress: false, priority: "low"},
		{name: "Empty", mentionCount: 0, shouldAddress: false, priority: "low"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			should, priority := Prioritize(tt.mentionCount, tt.negative, tt.average)
			assert.Equal(t, tt.shouldAddress, should)
			assert.Equal(t, tt.priority, priority)
		})
	}
}

func TestNewCluster_CountsAreConsistent(t *testing.T) {
	mentions := []models.Mention{
		{ID: "1", Sentiment: "negative", Score: -80},
		{ID: "2", Sentiment: "negative", Score: -60},
		{ID: "3", Sentiment: "positive", Score: 40},
		{ID: "4", Sentiment: "neutral", Score: 0},
	}

	c := NewCluster("Support", mentions)

	assert.Equal(t, 4, c.MentionCount)
	assert.Equal(t, c.MentionCount, c.PositiveCount+c.NeutralCount+c.NegativeCount)
	assert.Equal(t, c.MentionCount, len(c.Mentions))
	assert.InDelta(t, -25.0, c.AverageSentiment, 0.001)
	assert.True(t, c.ShouldAddress)
	assert.Equal(t, "medium", c.Priority)
}

func TestMatchTopic(t *testing.T) {
	topics := []string{"Pricing", "Customer Support", "Support"}

	assert.Equal(t, "Pricing", MatchTopic("pricing", topics))
	assert.Equal(t, "Customer Support", MatchTopic("\"Customer Support\".", topics))
	assert.Equal(t, "Customer Support", MatchTopic("The best fit is customer support", topics))
	assert.Equal(t, "Pricing", MatchTopic("Shipping", topics))
}

func TestSortClusters(t *testing.T) {
	clusters := []models.TopicCluster{
		{Topic: "a", Priority: "low", MentionCount: 50},
		{Topic: "b", Priority: "medium", MentionCount: 3},
		{Topic: "c", Priority: "high", MentionCount: 2},
		{Topic: "d", Priority: "medium", MentionCount: 9},
		{Topic: "e", Priority: "high", MentionCount: 7},
	}

	SortClusters(clusters)

	var order []string
	for _, c := range clusters {
		order = append(order, c.Topic)
	}
	assert.Equal(t, []string{"e", "c", "d", "b", "a"}, order)
}

func mentionsFor(prefix, sentiment string, score float64, n int) []models.Mention {
	var out []models.Mention
	for i := 0; i < n; i++ {
		out = append(out, models.Mention{
			ID:        fmt.Sprintf("%s-%d", prefix, i),
			Text:      fmt.Sprintf("%s comment %d", prefix, i),
			Sentiment: sentiment,
			Score:     score,
		})
	}
	return out
}

func TestClusterer_Cluster(t *testing.T) {
	var mentions []models.Mention
	mentions = append(mentions, mentionsFor("billing", "negative", -70, 4)...)
	mentions = append(mentions, mentionsFor("design", "positive", 60, 3)...)

	fake := &llmtest.Fake{
		Respond: func(prompt string) (string, error) {
			switch {
			case strings.Contains(prompt, "Identify 5 to 8 distinct topics"):
				return `["Design", "Billing", "Shipping"]`, nil
			case strings.Contains(prompt, "best fits"):
				if strings.Contains(prompt, "billing comment") {
					return "Billing", nil
				}
				return "design.", nil
			case strings.Contains(prompt, "Write one sentence"):
				if strings.Contains(prompt, `"Billing"`) {
					return "", errors.New("down")
				}
				return `"People like the look."`, nil
			}
			return "", nil
		},
	}

	clusters := NewClusterer(fake).Cluster(context.Background(), "Acme", mentions)

	require.Len(t, clusters, 2)
	assert.Equal(t, "Billing", clusters[0].Topic)
	assert.Equal(t, "high", clusters[0].Priority)
	assert.True(t, clusters[0].ShouldAddress)
	assert.Equal(t, 4, clusters[0].MentionCount)
	assert.Equal(t, "Comments about Acme related to billing.", clusters[0].Description)

	assert.Equal(t, "Design", clusters[1].Topic)
	assert.Equal(t, "low", clusters[1].Priority)
	assert.Equal(t, "People like the look.", clusters[1].Description)
}

func TestClusterer_FallbackTopic(t *testing.T) {
	mentions := mentionsFor("x", "negative", -50, 3)
	fake := &llmtest.Fake{Rules: []llmtest.Rule{
		{Match: "Identify 5 to 8", Response: "sorry"},
		{Match: "Write one sentence", Response: "Complaints."},
	}}

	clusters := NewClusterer(fake).Cluster(context.Background(), "Acme", mentions)

	require.Len(t, clusters, 1)
	assert.Equal(t, FallbackTopic, clusters[0].Topic)
	assert.Equal(t, 3, clusters[0].MentionCount)
	assert.Zero(t, fake.Calls("best fits"))
}

func TestClusterer_Empty(t *testing.T) {
	fake := &llmtest.Fake{}
	assert.Empty(t, NewClusterer(fake).Cluster(context.Background(), "Acme", nil))
	assert.Empty(t, fake.Prompts())
}
