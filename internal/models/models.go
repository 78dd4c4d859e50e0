package models

import "time"

// Sentiment labels returned by the classifier
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Priority tiers for topic clusters
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Supported publishing platforms
const (
	PlatformTwitter   = "twitter"
	PlatformLinkedIn  = "linkedin"
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
)

// Platforms lists every platform in generation order
var Platforms = []string{PlatformTwitter, PlatformLinkedIn, PlatformFacebook, PlatformInstagram}

// SourceItem is a post returned by a source search
type SourceItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Author       string    `json:"author"`
	CommunityTag string    `json:"community"` // subreddit, "hackernews", ...
	CreatedAt    time.Time `json:"created_at"`
	Permalink    string    `json:"permalink"`
	Score        int       `json:"score"`
}

// CommentItem is one node of a flattened reply tree
type CommentItem struct {
	ID              string    `json:"id"`
	Body            string    `json:"body"`
	Author          string    `json:"author"`
	CommunityTag    string    `json:"community"`
	CreatedAt       time.Time `json:"created_at"`
	ParentPermalink string    `json:"parent_permalink"`
	ParentTitle     string    `json:"parent_title"`
}

// CandidateItem is an item that survived relevance filtering
type CandidateItem struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	Author       string    `json:"author"`
	CommunityTag string    `json:"community"`
	CreatedAt    time.Time `json:"created_at"`
	URL          string    `json:"url"`
}

// SentimentResult is the classifier verdict for one text.
// Label and Score come from the same model answer and are not reconciled.
type SentimentResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"` // [-100, 100]
}

// Mention is a candidate enriched with its sentiment
type Mention struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	FullText     string    `json:"full_text,omitempty"`
	Author       string    `json:"author"`
	CommunityTag string    `json:"community"`
	CreatedAt    time.Time `json:"created_at"`
	URL          string    `json:"url"`
	Sentiment    string    `json:"sentiment"`
	Score        float64   `json:"score"`
}

// HistoryPoint is one sample of the synthetic sentiment trend
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

// SentimentSnapshot is the result of one analysis run
type SentimentSnapshot struct {
	Entity        string         `json:"entity"`
	Score         float64        `json:"score"`
	Total         int            `json:"total"`
	PositiveCount int            `json:"positive"`
	NeutralCount  int            `json:"neutral"`
	NegativeCount int            `json:"negative"`
	Mentions      []Mention      `json:"mentions"`
	History       []HistoryPoint `json:"history"`
	Error         string         `json:"error,omitempty"`
}

// TopicCluster groups mentions sharing a theme.
// MentionCount == PositiveCount+NeutralCount+NegativeCount == len(Mentions)
type TopicCluster struct {
	Topic            string    `json:"topic"`
	Description      string    `json:"description"`
	MentionCount     int       `json:"mention_count"`
	AverageSentiment float64   `json:"average_sentiment"`
	PositiveCount    int       `json:"positive"`
	NeutralCount     int       `json:"neutral"`
	NegativeCount    int       `json:"negative"`
	Mentions         []Mention `json:"mentions"`
	ShouldAddress    bool      `json:"should_address"`
	Priority         string    `json:"priority"`
}

// PostIdea is an abstract response strategy
type PostIdea struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Angle       string `json:"angle"` // free text, e.g. "transparency"
}

// Recommendation is produced for every addressed cluster
type Recommendation struct {
	Topic                string     `json:"topic"`
	Priority             string     `json:"priority"`
	Issue                string     `json:"issue"`
	Impact               string     `json:"impact"`
	PostIdeas            []PostIdea `json:"post_ideas"`
	AffectedMentionCount int        `json:"affected_mention_count"`
}

// PlatformPost is a ready-to-publish draft
type PlatformPost struct {
	Platform            string   `json:"platform"`
	Content             string   `json:"content"`
	Hashtags            []string `json:"hashtags"`
	CharacterCount      int      `json:"character_count"`
	MediaRecommendation string   `json:"media_recommendation"`
}

// KeyTheme is one theme of an executive summary
type KeyTheme struct {
	Theme       string `json:"theme"`
	Sentiment   string `json:"sentiment"`
	Description string `json:"description"`
}

// Summary is the executive digest of a snapshot
type Summary struct {
	ExecutiveSummary string     `json:"executive_summary"`
	KeyThemes        []KeyTheme `json:"key_themes"`
}

// Report is the archived and notified outcome of a scheduled watch run
type Report struct {
	ID              string             `json:"id"`
	Entity          string             `json:"entity"`
	GeneratedAt     time.Time          `json:"generated_at"`
	Period          string             `json:"period"` // "daily", "weekly" or "manual"
	Snapshot        *SentimentSnapshot `json:"snapshot"`
	Clusters        []TopicCluster     `json:"clusters"`
	Recommendations []Recommendation   `json:"recommendations"`
}

// HighPriorityClusters returns the clusters tagged high priority
func (r *Report) HighPriorityClusters() []TopicCluster {
	var out []TopicCluster
	for _, c := range r.Clusters {
		if c.Priority == PriorityHigh {
			out = append(out, c)
		}
	}
	return out
}

// Alert represents an urgent notification
type Alert struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"` // "critical", "urgent", "info"
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Cluster   *TopicCluster `json:"cluster,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
