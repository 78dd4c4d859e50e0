// Package monitoring orchestrates the sentiment pipeline: topic seeds,
// collection, relevance filtering, classification and aggregation, and the
// scheduled watch runs built on top of it.
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/azure/brand-pulse/internal/clustering"
	"github.com/azure/brand-pulse/internal/config"
	"github.com/azure/brand-pulse/internal/llm"
	"github.com/azure/brand-pulse/internal/models"
	"github.com/azure/brand-pulse/internal/notifications"
	"github.com/azure/brand-pulse/internal/recommendations"
	"github.com/azure/brand-pulse/internal/relevance"
	"github.com/azure/brand-pulse/internal/sentiment"
	"github.com/azure/brand-pulse/internal/sources"
	"github.com/azure/brand-pulse/internal/storage"
	"github.com/azure/brand-pulse/internal/topics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const mentionPreviewChars = 200

// ErrMissingEntity is returned when an analysis is requested without an entity
var ErrMissingEntity = errors.New("entity is required")

// Service runs analyses for entities against one source
type Service struct {
	config              *config.Config
	source              sources.Source
	storage             storage.StorageInterface
	notificationService notifications.NotificationInterface

	seeds      *topics.SeedGenerator
	relevance  *relevance.Filter
	sentiment  *sentiment.Classifier
	summarizer *sentiment.Summarizer
	clusterer  *clustering.Clusterer
	engine     *recommendations.Engine
	content    *recommendations.ContentGenerator

	sleep func(ctx context.Context, d time.Duration)
	now   func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	metrics *Metrics
	mu      sync.RWMutex
}

// Metrics holds monitoring metrics
type Metrics struct {
	Runs             int                `json:"runs"`
	MentionsAnalyzed int                `json:"mentions_analyzed"`
	LastRun          time.Time          `json:"last_run"`
	LastRunDuration  string             `json:"last_run_duration"`
	LastScores       map[string]float64 `json:"last_scores"`
	ErrorCount       int                `json:"error_count"`
}

// Option customizes a Service
type Option func(*Service)

// WithSleep replaces the delay used between search and reply requests
func WithSleep(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(s *Service) { s.sleep = sleep }
}

// WithRand sets the random source used for synthetic history
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires every pipeline stage to the same classifier
func NewService(cfg *config.Config, classifier llm.Classifier, source sources.Source, store storage.StorageInterface, notifier notifications.NotificationInterface, opts ...Option) *Service {
	s := &Service{
		config:              cfg,
		source:              source,
		storage:             store,
		notificationService: notifier,

		seeds:      topics.NewSeedGenerator(classifier),
		relevance:  relevance.NewFilter(classifier, cfg.RelevanceBatchSize),
		sentiment:  sentiment.NewClassifier(classifier, cfg.SentimentConcurrency),
		summarizer: sentiment.NewSummarizer(classifier),
		clusterer:  clustering.NewClusterer(classifier),
		engine:     recommendations.NewEngine(classifier),
		content:    recommendations.NewContentGenerator(classifier),

		sleep: sleepContext,
		now:   time.Now,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		metrics: &Metrics{
			LastScores: make(map[string]float64),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// EmptySnapshot is the zeroed payload returned when an analysis fails
func EmptySnapshot(entity string, err error) *models.SentimentSnapshot {
	snap := &models.SentimentSnapshot{
		Entity:   entity,
		Mentions: []models.Mention{},
		History:  []models.HistoryPoint{},
	}
	if err != nil {
		snap.Error = err.Error()
	}
	return snap
}

// RunAnalysis runs the full collection and classification pipeline. It
// always returns a well-formed snapshot; on failure the snapshot is zeroed
// and the error is also returned.
func (s *Service) RunAnalysis(ctx context.Context, entity string) (snap *models.SentimentSnapshot, err error) {
	entity = strings.TrimSpace(entity)
	start := s.now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis panicked: %v", r)
		}
		if err != nil {
			logrus.WithField("entity", entity).Errorf("Analysis failed: %v", err)
			snap = EmptySnapshot(entity, err)
		}
		s.recordRun(entity, snap, s.now().Sub(start), err)
	}()

	if entity == "" {
		return nil, ErrMissingEntity
	}
	if s.source == nil || !s.source.IsEnabled() {
		return nil, fmt.Errorf("no enabled source configured")
	}

	return s.analyze(ctx, entity)
}

func (s *Service) analyze(ctx context.Context, entity string) (*models.SentimentSnapshot, error) {
	log := logrus.WithFields(logrus.Fields{"entity": entity, "source": s.source.GetName()})
	log.Info("Starting analysis")

	seeds := s.seeds.Generate(ctx, entity, s.config.TopicCount)
	if len(seeds) == 0 {
		seeds = []string{entity}
	}
	log.Infof("Generated %d search topics", len(seeds))

	posts := s.collectPosts(ctx, entity, seeds)
	log.Infof("Collected %d unique posts", len(posts))

	comments := s.collectReplies(ctx, posts)
	log.Infof("Collected %d replies", len(comments))

	candidates := s.relevance.Filter(ctx, entity, commentCandidates(comments))
	log.Infof("After relevance filtering: %d candidates", len(candidates))

	if len(candidates) < s.config.MinCommentCandidates {
		log.Warnf("Only %d relevant comments, falling back to posts", len(candidates))
		candidates = postCandidates(posts, s.config.FallbackPostLimit)
	}
	if len(candidates) > s.config.MaxAnalyzedMentions {
		candidates = candidates[:s.config.MaxAnalyzedMentions]
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	results := s.sentiment.AnalyzeBatch(ctx, texts, entity)

	mentions := make([]models.Mention, len(candidates))
	for i, c := range candidates {
		mentions[i] = newMention(c, results[i])
	}

	agg := sentiment.CalculateAggregate(results)
	log.Infof("Analyzed %d mentions, score %.2f", agg.Total, agg.Score)

	s.rngMu.Lock()
	history := sentiment.GenerateHistory(agg.Score, s.config.HistoryHours, s.rng, s.now())
	s.rngMu.Unlock()

	return &models.SentimentSnapshot{
		Entity:        entity,
		Score:         agg.Score,
		Total:         agg.Total,
		PositiveCount: agg.Positive,
		NeutralCount:  agg.Neutral,
		NegativeCount: agg.Negative,
		Mentions:      mentions,
		History:       history,
	}, nil
}

// collectPosts searches each seed topic sequentially with a fixed delay
// before every search except the first, then deduplicates by id
func (s *Service) collectPosts(ctx context.Context, entity string, seeds []string) []models.SourceItem {
	perTopic := (s.config.TargetPostCount + len(seeds) - 1) / len(seeds)
	opts := sources.SearchOptions{
		Limit:      perTopic,
		Timeframe:  s.config.SearchTimeframe,
		EntityName: entity,
	}

	var all []models.SourceItem
	for i, seed := range seeds {
		if i > 0 {
			s.sleep(ctx, s.config.SearchDelay)
		}
		items := s.source.Search(ctx, seed, opts)
		logrus.WithFields(logrus.Fields{"entity": entity, "topic": seed}).Debugf("Search returned %d posts", len(items))
		all = append(all, items...)
	}
	return sources.DeduplicateItems(all)
}

// collectReplies fetches reply trees of the leading posts. Replies inherit
// the post's community tag and carry its title.
func (s *Service) collectReplies(ctx context.Context, posts []models.SourceItem) []models.CommentItem {
	limit := s.config.ReplyPostLimit
	if limit > len(posts) {
		limit = len(posts)
	}

	var all []models.CommentItem
	for i, post := range posts[:limit] {
		if i > 0 {
			s.sleep(ctx, s.config.ReplyDelay)
		}
		for _, c := range s.source.FetchReplies(ctx, post.Permalink) {
			c.CommunityTag = post.CommunityTag
			c.ParentPermalink = post.Permalink
			c.ParentTitle = post.Title
			all = append(all, c)
		}
	}
	return all
}

func commentCandidates(comments []models.CommentItem) []models.CandidateItem {
	out := make([]models.CandidateItem, 0, len(comments))
	for _, c := range comments {
		out = append(out, models.CandidateItem{
			ID:           c.ID,
			Text:         c.Body,
			Author:       c.Author,
			CommunityTag: c.CommunityTag,
			CreatedAt:    c.CreatedAt,
			URL:          c.ParentPermalink,
		})
	}
	return out
}

func postCandidates(posts []models.SourceItem, limit int) []models.CandidateItem {
	if limit > len(posts) {
		limit = len(posts)
	}
	out := make([]models.CandidateItem, 0, limit)
	for _, p := range posts[:limit] {
		text := strings.TrimSpace(p.Title + "\n\n" + p.Body)
		out = append(out, models.CandidateItem{
			ID:           p.ID,
			Text:         text,
			Author:       p.Author,
			CommunityTag: p.CommunityTag,
			CreatedAt:    p.CreatedAt,
			URL:          p.Permalink,
		})
	}
	return out
}

func newMention(c models.CandidateItem, result models.SentimentResult) models.Mention {
	text := c.Text
	if r := []rune(text); len(r) > mentionPreviewChars {
		text = string(r[:mentionPreviewChars]) + "..."
	}
	return models.Mention{
		ID:           c.ID,
		Text:         text,
		FullText:     c.Text,
		Author:       c.Author,
		CommunityTag: c.CommunityTag,
		CreatedAt:    c.CreatedAt,
		URL:          c.URL,
		Sentiment:    result.Label,
		Score:        result.Score,
	}
}

// Summarize writes an executive summary of snapshot
func (s *Service) Summarize(ctx context.Context, snapshot *models.SentimentSnapshot) models.Summary {
	return s.summarizer.Summarize(ctx, snapshot)
}

// AnalyzeTopics clusters mentions and builds recommendations for the
// clusters that need a response
func (s *Service) AnalyzeTopics(ctx context.Context, entity string, mentions []models.Mention) ([]models.TopicCluster, []models.Recommendation) {
	clusters := s.clusterer.Cluster(ctx, entity, mentions)
	recs := s.engine.Generate(ctx, entity, clusters)
	logrus.WithField("entity", entity).Infof("Found %d topics, %d recommendations", len(clusters), len(recs))
	return clusters, recs
}

// GenerateContent drafts one post, or one per platform when all is set
func (s *Service) GenerateContent(ctx context.Context, req recommendations.ContentRequest, all bool) ([]models.PlatformPost, error) {
	if err := req.Validate(!all); err != nil {
		return nil, err
	}
	if all {
		return s.content.GenerateAllPlatforms(ctx, req)
	}
	post, err := s.content.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return []models.PlatformPost{*post}, nil
}

// RunWatch analyzes entity end to end, archives the report and notifies
func (s *Service) RunWatch(ctx context.Context, entity, period string) (*models.Report, error) {
	snap, err := s.RunAnalysis(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("analysis of %s failed: %w", entity, err)
	}

	clusters, recs := s.AnalyzeTopics(ctx, entity, snap.Mentions)
	report := &models.Report{
		ID:              uuid.NewString(),
		Entity:          entity,
		GeneratedAt:     s.now().UTC(),
		Period:          period,
		Snapshot:        snap,
		Clusters:        clusters,
		Recommendations: recs,
	}

	if err := s.storeReport(ctx, report); err != nil {
		return report, err
	}

	if s.notificationService == nil {
		return report, nil
	}
	for _, c := range report.HighPriorityClusters() {
		alert := &models.Alert{
			ID:        uuid.NewString(),
			Type:      "urgent",
			Title:     fmt.Sprintf("%s: %s needs a response", entity, c.Topic),
			Message:   fmt.Sprintf("%d of %d mentions about %s are negative", c.NegativeCount, c.MentionCount, c.Topic),
			Cluster:   &c,
			CreatedAt: report.GeneratedAt,
		}
		if err := s.notificationService.SendAlert(ctx, alert); err != nil {
			logrus.WithField("entity", entity).Warnf("Failed to send alert: %v", err)
		}
	}
	if err := s.notificationService.SendReport(ctx, report); err != nil {
		return report, fmt.Errorf("failed to send report: %w", err)
	}
	return report, nil
}

// RunMonitoring performs a watch run for every configured entity
func (s *Service) RunMonitoring(ctx context.Context) error {
	period := s.config.ReportSchedule
	if period == "" || period == "off" {
		period = "manual"
	}

	var errs []error
	for _, entity := range s.config.WatchEntities {
		if _, err := s.RunWatch(ctx, entity, period); err != nil {
			logrus.WithField("entity", entity).Errorf("Watch run failed: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReportName is the archive key of a report
func ReportName(report *models.Report) string {
	slug := strings.ToLower(strings.Join(strings.Fields(report.Entity), "-"))
	return fmt.Sprintf("reports/%s-%s.json", slug, report.GeneratedAt.Format("2006-01-02-15-04-05"))
}

func (s *Service) storeReport(ctx context.Context, report *models.Report) error {
	if s.storage == nil {
		return nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := s.storage.Store(ctx, ReportName(report), data); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

func (s *Service) recordRun(entity string, snap *models.SentimentSnapshot, duration time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Runs++
	s.metrics.LastRun = s.now()
	s.metrics.LastRunDuration = duration.String()
	if err != nil {
		s.metrics.ErrorCount++
		return
	}
	s.metrics.MentionsAnalyzed += snap.Total
	s.metrics.LastScores[entity] = snap.Score
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
