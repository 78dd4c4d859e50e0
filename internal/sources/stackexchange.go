package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/azure/brand-pulse/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	stackExchangeAPIURL   = "https://api.stackexchange.com/2.3"
	stackExchangeMaxLimit = 100
)

// StackExchangeSource searches one Stack Exchange site, stackoverflow by default
type StackExchangeSource struct {
	client  *resty.Client
	baseURL string
	site    string
	key     string
}

type stackExchangeResponse struct {
	Items          []json.RawMessage `json:"items"`
	QuotaRemaining int               `json:"quota_remaining"`
	Backoff        int               `json:"backoff"`
}

type stackExchangeOwner struct {
	DisplayName string `json:"display_name"`
}

type stackExchangeQuestion struct {
	QuestionID   int64              `json:"question_id"`
	Title        string             `json:"title"`
	Body         string             `json:"body"`
	Tags         []string           `json:"tags"`
	Owner        stackExchangeOwner `json:"owner"`
	CreationDate int64              `json:"creation_date"`
	Score        int                `json:"score"`
	Link         string             `json:"link"`
}

// stackExchangePost is an answer or a comment
type stackExchangePost struct {
	AnswerID     int64              `json:"answer_id"`
	CommentID    int64              `json:"comment_id"`
	Body         string             `json:"body"`
	Owner        stackExchangeOwner `json:"owner"`
	CreationDate int64              `json:"creation_date"`
}

var stackExchangeTimeframes = hackerNewsTimeframes

// NewStackExchangeSource creates a source for site. key is optional and
// only raises the request quota.
func NewStackExchangeSource(site, key, userAgent string) *StackExchangeSource {
	if site == "" {
		site = "stackoverflow"
	}
	if userAgent == "" {
		userAgent = "BrandPulse/1.0"
	}
	return &StackExchangeSource{
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", userAgent),
		baseURL: stackExchangeAPIURL,
		site:    site,
		key:     key,
	}
}

func (s *StackExchangeSource) GetName() string {
	return "stackexchange"
}

func (s *StackExchangeSource) IsEnabled() bool {
	return true // anonymous access is allowed with a lower quota
}

func (s *StackExchangeSource) Search(ctx context.Context, topic string, opts SearchOptions) []models.SourceItem {
	params := map[string]string{
		"q":        topic,
		"sort":     "relevance",
		"order":    "desc",
		"pagesize": strconv.Itoa(rawLimit(opts.Limit, stackExchangeMaxLimit)),
		"filter":   "withbody",
	}
	if window, ok := stackExchangeTimeframes[opts.Timeframe]; ok {
		params["fromdate"] = strconv.FormatInt(time.Now().Add(-window).Unix(), 10)
	}

	raw, ok := s.get(ctx, "/search/advanced", params)
	if !ok {
		return nil
	}

	var items []models.SourceItem
	for _, r := range raw {
		var q stackExchangeQuestion
		if err := json.Unmarshal(r, &q); err != nil || q.QuestionID == 0 {
			continue
		}
		items = append(items, models.SourceItem{
			ID:           fmt.Sprintf("stackexchange_%d", q.QuestionID),
			Title:        htmlToText(q.Title),
			Body:         stackExchangeText(q.Body),
			Author:       q.Owner.DisplayName,
			CommunityTag: s.communityTag(q.Tags),
			CreatedAt:    time.Unix(q.CreationDate, 0).UTC(),
			Permalink:    q.Link,
			Score:        q.Score,
		})
	}

	if opts.EntityName != "" {
		return NewEntityFilter(opts.EntityName).Apply(items, opts.Limit)
	}
	return capItems(items, opts.Limit)
}

// FetchReplies returns the answers of a question followed by its comments
func (s *StackExchangeSource) FetchReplies(ctx context.Context, permalink string) []models.CommentItem {
	id := stackExchangeQuestionID(permalink)
	if id == "" {
		return nil
	}

	params := map[string]string{
		"sort":     "votes",
		"order":    "desc",
		"pagesize": strconv.Itoa(stackExchangeMaxLimit),
		"filter":   "withbody",
	}

	var out []models.CommentItem
	for _, kind := range []string{"answers", "comments"} {
		raw, ok := s.get(ctx, "/questions/"+id+"/"+kind, params)
		if !ok {
			continue
		}
		for _, r := range raw {
			var p stackExchangePost
			if err := json.Unmarshal(r, &p); err != nil {
				continue
			}
			text := stackExchangeText(p.Body)
			if text == "" {
				continue
			}
			postID := p.AnswerID
			if postID == 0 {
				postID = p.CommentID
			}
			out = append(out, models.CommentItem{
				ID:              fmt.Sprintf("stackexchange_%s_%d", strings.TrimSuffix(kind, "s"), postID),
				Body:            text,
				Author:          p.Owner.DisplayName,
				CommunityTag:    s.site,
				CreatedAt:       time.Unix(p.CreationDate, 0).UTC(),
				ParentPermalink: permalink,
			})
		}
	}
	return out
}

func (s *StackExchangeSource) communityTag(tags []string) string {
	if len(tags) == 0 {
		return s.site
	}
	return fmt.Sprintf("%s/%s", s.site, tags[0])
}

// stackExchangeText flattens a post body, dropping code blocks since
// they carry no opinion
func stackExchangeText(body string) string {
	if body == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return htmlToText(body)
	}
	doc.Find("pre").Remove()
	doc.Find("p, li, h1, h2, h3, blockquote").AfterHtml(" ")
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// stackExchangeQuestionID extracts the id of .../questions/<id>/<slug>
func stackExchangeQuestionID(permalink string) string {
	u, err := url.Parse(permalink)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "questions" || parts[i] == "q" {
			if _, err := strconv.ParseInt(parts[i+1], 10, 64); err == nil {
				return parts[i+1]
			}
		}
	}
	return ""
}

func (s *StackExchangeSource) get(ctx context.Context, path string, params map[string]string) ([]json.RawMessage, bool) {
	req := s.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("site", s.site)
	if s.key != "" {
		req.SetQueryParam("key", s.key)
	}

	resp, err := req.Get(s.baseURL + path)
	if err != nil {
		logrus.Debugf("Stack Exchange request %s failed: %v", path, err)
		return nil, false
	}

	if resp.StatusCode() != 200 {
		logrus.Debugf("Stack Exchange API returned status %d for %s", resp.StatusCode(), path)
		return nil, false
	}

	if !isJSONContentType(resp.Header().Get("Content-Type")) {
		return nil, false
	}

	var body stackExchangeResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		logrus.Debugf("Malformed Stack Exchange payload for %s: %v", path, err)
		return nil, false
	}
	if body.Backoff > 0 {
		logrus.Warnf("Stack Exchange asked to back off for %ds", body.Backoff)
	}
	return body.Items, true
}
