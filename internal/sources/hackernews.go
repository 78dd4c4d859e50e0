package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/azure/brand-pulse/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

const (
	hackerNewsSearchURL = "https://hn.algolia.com"
	hackerNewsItemURL   = "https://news.ycombinator.com/item?id="
	hackerNewsMaxLimit  = 1000
)

// HackerNewsSource implements the Algolia Hacker News search API
type HackerNewsSource struct {
	client  *resty.Client
	baseURL string
}

type hackerNewsSearchResponse struct {
	Hits []hackerNewsHit `json:"hits"`
}

type hackerNewsHit struct {
	ObjectID  string `json:"objectID"`
	Title     string `json:"title"`
	StoryText string `json:"story_text"`
	Author    string `json:"author"`
	CreatedAt int64  `json:"created_at_i"`
	Points    int    `json:"points"`
}

type hackerNewsItem struct {
	ID        int64            `json:"id"`
	Author    string           `json:"author"`
	Text      string           `json:"text"`
	CreatedAt int64            `json:"created_at_i"`
	Children  []hackerNewsItem `json:"children"`
}

var hackerNewsTimeframes = map[string]time.Duration{
	"hour":  time.Hour,
	"day":   24 * time.Hour,
	"week":  7 * 24 * time.Hour,
	"month": 30 * 24 * time.Hour,
	"year":  365 * 24 * time.Hour,
}

// NewHackerNewsSource creates a new Hacker News source
func NewHackerNewsSource(userAgent string) *HackerNewsSource {
	if userAgent == "" {
		userAgent = "BrandPulse/1.0"
	}
	return &HackerNewsSource{
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", userAgent),
		baseURL: hackerNewsSearchURL,
	}
}

func (h *HackerNewsSource) GetName() string {
	return "hackernews"
}

func (h *HackerNewsSource) IsEnabled() bool {
	return true // Hacker News API doesn't require authentication
}

func (h *HackerNewsSource) Search(ctx context.Context, topic string, opts SearchOptions) []models.SourceItem {
	params := map[string]string{
		"query":       topic,
		"tags":        "story",
		"hitsPerPage": strconv.Itoa(rawLimit(opts.Limit, hackerNewsMaxLimit)),
	}
	if window, ok := hackerNewsTimeframes[opts.Timeframe]; ok {
		params["numericFilters"] = fmt.Sprintf("created_at_i>%d", time.Now().Add(-window).Unix())
	}

	body, ok := h.get(ctx, "/api/v1/search", params)
	if !ok {
		return nil
	}

	var resp hackerNewsSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		logrus.WithField("topic", topic).Debugf("Malformed Hacker News search payload: %v", err)
		return nil
	}

	var items []models.SourceItem
	for _, hit := range resp.Hits {
		if hit.ObjectID == "" {
			continue
		}
		items = append(items, models.SourceItem{
			ID:           fmt.Sprintf("hackernews_%s", hit.ObjectID),
			Title:        hit.Title,
			Body:         htmlToText(hit.StoryText),
			Author:       hit.Author,
			CommunityTag: "hackernews",
			CreatedAt:    time.Unix(hit.CreatedAt, 0).UTC(),
			Permalink:    hackerNewsItemURL + hit.ObjectID,
			Score:        hit.Points,
		})
	}

	if opts.EntityName != "" {
		return NewEntityFilter(opts.EntityName).Apply(items, opts.Limit)
	}
	return capItems(items, opts.Limit)
}

func (h *HackerNewsSource) FetchReplies(ctx context.Context, permalink string) []models.CommentItem {
	id := hackerNewsItemID(permalink)
	if id == "" {
		return nil
	}

	body, ok := h.get(ctx, "/api/v1/items/"+id, nil)
	if !ok {
		return nil
	}

	var root hackerNewsItem
	if err := json.Unmarshal(body, &root); err != nil {
		return nil
	}

	return flattenHackerNewsComments(root.Children, permalink, nil)
}

func flattenHackerNewsComments(children []hackerNewsItem, permalink string, out []models.CommentItem) []models.CommentItem {
	for _, c := range children {
		if text := htmlToText(c.Text); text != "" {
			out = append(out, models.CommentItem{
				ID:              fmt.Sprintf("hackernews_%d", c.ID),
				Body:            text,
				Author:          c.Author,
				CommunityTag:    "hackernews",
				CreatedAt:       time.Unix(c.CreatedAt, 0).UTC(),
				ParentPermalink: permalink,
			})
		}
		out = flattenHackerNewsComments(c.Children, permalink, out)
	}
	return out
}

func hackerNewsItemID(permalink string) string {
	u, err := url.Parse(permalink)
	if err != nil {
		return ""
	}
	if id := u.Query().Get("id"); id != "" {
		return id
	}
	if u.Host != "" {
		return ""
	}
	return strings.TrimPrefix(permalink, "hackernews_")
}

func (h *HackerNewsSource) get(ctx context.Context, path string, params map[string]string) ([]byte, bool) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(h.baseURL + path)
	if err != nil {
		logrus.Debugf("Hacker News request %s failed: %v", path, err)
		return nil, false
	}

	if resp.StatusCode() != 200 {
		logrus.Debugf("Hacker News API returned status %d for %s", resp.StatusCode(), path)
		return nil, false
	}

	if !isJSONContentType(resp.Header().Get("Content-Type")) {
		return nil, false
	}

	return resp.Body(), true
}

// htmlToText flattens comment markup to plain text
func htmlToText(content string) string {
	if content == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return strings.TrimSpace(content)
	}
	return strings.Join(strings.Fields(extractTextContent(doc)), " ")
}

func extractTextContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}

	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(extractTextContent(c))
		text.WriteString(" ")
	}

	return strings.TrimSpace(text.String())
}
