package monitoring

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/azure/brand-pulse/internal/config"
	"github.com/azure/brand-pulse/internal/llm/llmtest"
	"github.com/azure/brand-pulse/internal/models"
	"github.com/azure/brand-pulse/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeSource serves canned posts per topic and replies per permalink
type fakeSource struct {
	posts   map[string][]models.SourceItem
	replies map[string][]models.CommentItem
	panics  bool

	mu       sync.Mutex
	searches []string
	fetched  []string
	limits   []int
}

func (f *fakeSource) GetName() string { return "fake" }
func (f *fakeSource) IsEnabled() bool { return true }

func (f *fakeSource) Search(_ context.Context, topic string, opts sources.SearchOptions) []models.SourceItem {
	if f.panics {
		panic("source exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, topic)
	f.limits = append(f.limits, opts.Limit)
	return f.posts[topic]
}

func (f *fakeSource) FetchReplies(_ context.Context, permalink string) []models.CommentItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, permalink)
	return f.replies[permalink]
}

// MockNotificationService is a mock implementation of the notification service
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendReport(ctx context.Context, report *models.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockNotificationService) SendAlert(ctx context.Context, alert *models.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func post(id, title string) models.SourceItem {
	return models.SourceItem{
		ID:           id,
		Title:        title,
		Body:         "I have been using Acme for a while and my experience has been mixed.",
		CommunityTag: "r/acme",
		Permalink:    "https://www.reddit.com/r/acme/comments/" + id,
	}
}

func comment(id, body string) models.CommentItem {
	return models.CommentItem{ID: id, Body: body, Author: "user_" + id, CommunityTag: "r/other"}
}

func testSource() *fakeSource {
	p1, p2, p3 := post("p1", "Acme support thread"), post("p2", "Acme pricing rant"), post("p3", "Acme review")
	return &fakeSource{
		posts: map[string][]models.SourceItem{
			"Acme support": {p1, p2},
			"Acme pricing": {p2, p3},
		},
		replies: map[string][]models.CommentItem{
			p1.Permalink: {
				comment("c1", "I love Acme, their support team fixed my issue in minutes."),
				comment("c2", "Honestly I love how simple Acme makes everything for me."),
				comment("c3", "I hate that Acme charged me twice and nobody answered."),
			},
			p2.Permalink: {
				comment("c4", "I love the Acme app, it is the best one I have tried."),
				comment("c5", "I hate the new Acme pricing, it is a total ripoff now."),
				comment("c6", "I think Acme is okay for basic use cases, nothing more."),
			},
			p3.Permalink: {
				comment("c7", "I love this too much to ignore, Acme is great."),
			},
		},
	}
}

// scriptedModel answers each pipeline stage by prompt
func scriptedModel(relevant func(prompt string) string) *llmtest.Fake {
	return &llmtest.Fake{Respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "search phrases"):
			return `["Acme support", "Acme pricing"]`, nil
		case strings.Contains(prompt, "You are filtering forum comments"):
			if relevant != nil {
				return relevant(prompt), nil
			}
			return "not json", nil
		case strings.Contains(prompt, "Analyze the sentiment"):
			switch {
			case strings.Contains(prompt, "love"):
				return `{"label": "positive", "score": 80}`, nil
			case strings.Contains(prompt, "hate"):
				return `{"label": "negative", "score": -60}`, nil
			}
			return `{"label": "neutral", "score": 0}`, nil
		case strings.Contains(prompt, "Identify 5 to 8 distinct topics"):
			return `["Billing"]`, nil
		case strings.Contains(prompt, "Write one sentence"):
			return "People are unhappy about charges.", nil
		case strings.Contains(prompt, "You advise the communications team"):
			return `{"issue": "Double charges.", "impact": "Churn.", "post_ideas": [{"id": "1", "title": "Fixing billing", "description": "d", "angle": "transparency"}]}`, nil
		}
		return "", nil
	}}
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.TopicCount = 2
	cfg.TargetPostCount = 4
	cfg.ReplyPostLimit = 2
	cfg.HistoryHours = 24
	return cfg
}

func newTestService(cfg *config.Config, model *llmtest.Fake, source sources.Source, sleeps *[]time.Duration, opts ...Option) *Service {
	opts = append([]Option{
		WithSleep(func(_ context.Context, d time.Duration) { *sleeps = append(*sleeps, d) }),
		WithRand(rand.New(rand.NewSource(42))),
		WithClock(func() time.Time { return testNow }),
	}, opts...)
	return NewService(cfg, model, source, nil, nil, opts...)
}

func TestService_RunAnalysis(t *testing.T) {
	source := testSource()
	var sleeps []time.Duration
	cfg := testConfig()
	svc := newTestService(cfg, scriptedModel(nil), source, &sleeps)

	snap, err := svc.RunAnalysis(context.Background(), "  Acme ")
	require.NoError(t, err)

	assert.Equal(t, []string{"Acme support", "Acme pricing"}, source.searches)
	assert.Equal(t, []int{2, 2}, source.limits)
	assert.Equal(t, []string{
		"https://www.reddit.com/r/acme/comments/p1",
		"https://www.reddit.com/r/acme/comments/p2",
	}, source.fetched)
	assert.Equal(t, []time.Duration{cfg.SearchDelay, cfg.ReplyDelay}, sleeps)

	assert.Equal(t, "Acme", snap.Entity)
	assert.Equal(t, 6, snap.Total)
	assert.Equal(t, 3, snap.PositiveCount)
	assert.Equal(t, 1, snap.NeutralCount)
	assert.Equal(t, 2, snap.NegativeCount)
	assert.InDelta(t, 20.0, snap.Score, 0.01)
	assert.Empty(t, snap.Error)

	require.Len(t, snap.Mentions, 6)
	first := snap.Mentions[0]
	assert.Equal(t, "c1", first.ID)
	assert.Equal(t, "r/acme", first.CommunityTag)
	assert.Equal(t, "https://www.reddit.com/r/acme/comments/p1", first.URL)
	assert.Equal(t, models.SentimentPositive, first.Sentiment)

	require.Len(t, snap.History, 24)
	assert.Equal(t, testNow, snap.History[23].Timestamp)
	assert.InDelta(t, snap.Score, snap.History[23].Score, 0.01)
}

func TestService_FallsBackToPosts(t *testing.T) {
	source := testSource()
	var sleeps []time.Duration
	keepFour := func(string) string { return `["c1", "c2", "c3", "c4"]` }
	svc := newTestService(testConfig(), scriptedModel(keepFour), source, &sleeps)

	snap, err := svc.RunAnalysis(context.Background(), "Acme")
	require.NoError(t, err)

	require.Equal(t, 3, snap.Total)
	var ids []string
	for _, m := range snap.Mentions {
		ids = append(ids, m.ID)
		assert.Equal(t, "r/acme", m.CommunityTag)
	}
	assert.Equal(t, []string{"p1", "p2", "p3"}, ids)
	assert.True(t, strings.HasPrefix(snap.Mentions[0].FullText, "Acme support thread"))
}

func TestService_CapsAnalyzedMentions(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAnalyzedMentions = 4
	var sleeps []time.Duration
	svc := newTestService(cfg, scriptedModel(nil), testSource(), &sleeps)

	snap, err := svc.RunAnalysis(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Total)
	assert.Len(t, snap.Mentions, 4)
}

func TestService_TruncatesMentionText(t *testing.T) {
	long := "I love Acme " + strings.Repeat("and everything about it ", 20)
	m := newMention(models.CandidateItem{ID: "x", Text: long}, models.SentimentResult{Label: "positive", Score: 50})

	assert.Equal(t, long, m.FullText)
	assert.Equal(t, 203, len([]rune(m.Text)))
	assert.True(t, strings.HasSuffix(m.Text, "..."))
}

func TestService_RunAnalysisFailures(t *testing.T) {
	var sleeps []time.Duration

	t.Run("Missing entity", func(t *testing.T) {
		svc := newTestService(testConfig(), scriptedModel(nil), testSource(), &sleeps)
		snap, err := svc.RunAnalysis(context.Background(), " ")
		assert.ErrorIs(t, err, ErrMissingEntity)
		require.NotNil(t, snap)
		assert.Equal(t, ErrMissingEntity.Error(), snap.Error)
	})

	t.Run("No source", func(t *testing.T) {
		svc := newTestService(testConfig(), scriptedModel(nil), nil, &sleeps)
		snap, err := svc.RunAnalysis(context.Background(), "Acme")
		assert.Error(t, err)
		assert.Zero(t, snap.Total)
		assert.NotEmpty(t, snap.Error)
	})

	t.Run("Panic is recovered", func(t *testing.T) {
		source := testSource()
		source.panics = true
		svc := newTestService(testConfig(), scriptedModel(nil), source, &sleeps)

		snap, err := svc.RunAnalysis(context.Background(), "Acme")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "source exploded")
		assert.Equal(t, "Acme", snap.Entity)
		assert.Zero(t, snap.Score)
		assert.Empty(t, snap.Mentions)
		assert.Empty(t, snap.History)
	})
}

func TestService_EmptyCollection(t *testing.T) {
	var sleeps []time.Duration
	svc := newTestService(testConfig(), scriptedModel(nil), &fakeSource{}, &sleeps)

	snap, err := svc.RunAnalysis(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.Score)
	assert.Len(t, snap.History, 24)
}

func TestService_GetMetrics(t *testing.T) {
	var sleeps []time.Duration
	svc := newTestService(testConfig(), scriptedModel(nil), testSource(), &sleeps)

	_, err := svc.RunAnalysis(context.Background(), "Acme")
	require.NoError(t, err)
	_, err = svc.RunAnalysis(context.Background(), "")
	require.Error(t, err)

	metrics := svc.GetMetrics()
	assert.Contains(t, metrics, `"runs": 2`)
	assert.Contains(t, metrics, `"mentions_analyzed": 6`)
	assert.Contains(t, metrics, `"error_count": 1`)
	assert.Contains(t, metrics, `"Acme": 20`)
}
