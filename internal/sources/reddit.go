package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/azure/brand-pulse/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	redditPublicURL = "https://www.reddit.com"
	redditOAuthURL  = "https://oauth.reddit.com"
	redditTokenURL  = "https://www.reddit.com/api/v1/access_token"
	redditMaxLimit  = 100
)

// RedditSource implements Reddit API source. It uses the public JSON
// endpoints unless client credentials are configured.
type RedditSource struct {
	clientID     string
	clientSecret string
	userAgent    string
	client       *resty.Client

	publicURL string
	oauthURL  string
	tokenURL  string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

type redditAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditListing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []redditThing `json:"children"`
	} `json:"data"`
}

type redditThing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type redditPost struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Selftext  string  `json:"selftext"`
	Author    string  `json:"author"`
	Subreddit string  `json:"subreddit"`
	Permalink string  `json:"permalink"`
	Created   float64 `json:"created_utc"`
	Score     int     `json:"score"`
}

type redditComment struct {
	ID        string          `json:"id"`
	Body      string          `json:"body"`
	Author    string          `json:"author"`
	Subreddit string          `json:"subreddit"`
	Created   float64         `json:"created_utc"`
	Replies   json.RawMessage `json:"replies"` // "" or a listing
}

// NewRedditSource creates a new Reddit source
func NewRedditSource(clientID, clientSecret, userAgent string) *RedditSource {
	if userAgent == "" {
		userAgent = "BrandPulse/1.0"
	}
	return &RedditSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		client:       resty.New().SetTimeout(30 * time.Second),
		publicURL:    redditPublicURL,
		oauthURL:     redditOAuthURL,
		tokenURL:     redditTokenURL,
	}
}

func (r *RedditSource) GetName() string {
	return "reddit"
}

// IsEnabled is always true; credentials only switch to the OAuth host
func (r *RedditSource) IsEnabled() bool {
	return true
}

func (r *RedditSource) hasCredentials() bool {
	return r.clientID != "" && r.clientSecret != ""
}

// Search queries Reddit for topic. Any failure yields zero items.
func (r *RedditSource) Search(ctx context.Context, topic string, opts SearchOptions) []models.SourceItem {
	timeframe := opts.Timeframe
	if timeframe == "" {
		timeframe = "month"
	}

	query := url.Values{}
	query.Set("q", topic)
	query.Set("sort", "relevance")
	query.Set("t", timeframe)
	query.Set("type", "link")
	query.Set("limit", strconv.Itoa(rawLimit(opts.Limit, redditMaxLimit)))

	body, ok := r.get(ctx, "/search.json?"+query.Encode())
	if !ok {
		return nil
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		logrus.WithField("topic", topic).Debugf("Malformed Reddit search payload: %v", err)
		return nil
	}

	var items []models.SourceItem
	for _, child := range listing.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var post redditPost
		if err := json.Unmarshal(child.Data, &post); err != nil || post.ID == "" {
			continue
		}
		items = append(items, models.SourceItem{
			ID:           fmt.Sprintf("reddit_%s", post.ID),
			Title:        post.Title,
			Body:         post.Selftext,
			Author:       post.Author,
			CommunityTag: fmt.Sprintf("r/%s", post.Subreddit),
			CreatedAt:    time.Unix(int64(post.Created), 0).UTC(),
			Permalink:    redditPublicURL + post.Permalink,
			Score:        post.Score,
		})
	}

	if opts.EntityName != "" {
		return NewEntityFilter(opts.EntityName).Apply(items, opts.Limit)
	}
	return capItems(items, opts.Limit)
}

// FetchReplies retrieves the comment tree of a post and flattens it
// depth-first. Malformed structures yield an empty list.
func (r *RedditSource) FetchReplies(ctx context.Context, permalink string) []models.CommentItem {
	path := permalink
	if u, err := url.Parse(permalink); err == nil && u.Host != "" {
		path = u.Path
	}
	if path == "" {
		return nil
	}
	path = strings.TrimSuffix(path, "/") + ".json?limit=100&sort=top"

	body, ok := r.get(ctx, path)
	if !ok {
		return nil
	}

	// The response is [postListing, commentListing]
	var listings []json.RawMessage
	if err := json.Unmarshal(body, &listings); err != nil || len(listings) < 2 {
		return nil
	}

	var comments redditListing
	if err := json.Unmarshal(listings[1], &comments); err != nil {
		return nil
	}

	return flattenRedditComments(comments.Data.Children, permalink, nil)
}

func flattenRedditComments(children []redditThing, permalink string, out []models.CommentItem) []models.CommentItem {
	for _, child := range children {
		if child.Kind != "t1" {
			continue
		}
		var c redditComment
		if err := json.Unmarshal(child.Data, &c); err != nil {
			continue
		}
		if c.Body != "" && c.Body != "[deleted]" && c.Body != "[removed]" {
			out = append(out, models.CommentItem{
				ID:              fmt.Sprintf("reddit_%s", c.ID),
				Body:            c.Body,
				Author:          c.Author,
				CommunityTag:    fmt.Sprintf("r/%s", c.Subreddit),
				CreatedAt:       time.Unix(int64(c.Created), 0).UTC(),
				ParentPermalink: permalink,
			})
		}

		if len(c.Replies) > 0 && c.Replies[0] == '{' {
			var nested redditListing
			if err := json.Unmarshal(c.Replies, &nested); err == nil {
				out = flattenRedditComments(nested.Data.Children, permalink, out)
			}
		}
	}
	return out
}

// get performs a GET and returns the body only for a 200 JSON response
func (r *RedditSource) get(ctx context.Context, path string) ([]byte, bool) {
	req := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", r.userAgent)

	base := r.publicURL
	if r.hasCredentials() {
		token, err := r.token(ctx)
		if err != nil {
			logrus.Warnf("Reddit authentication failed, using public endpoint: %v", err)
		} else {
			base = r.oauthURL
			req.SetHeader("Authorization", "Bearer "+token)
		}
	}

	resp, err := req.Get(base + path)
	if err != nil {
		logrus.Debugf("Reddit request %s failed: %v", path, err)
		return nil, false
	}

	if resp.StatusCode() != 200 {
		logrus.Debugf("Reddit API returned status %d for %s", resp.StatusCode(), path)
		return nil, false
	}

	if !isJSONContentType(resp.Header().Get("Content-Type")) {
		logrus.Debugf("Reddit API returned non-JSON content for %s", path)
		return nil, false
	}

	return resp.Body(), true
}

func (r *RedditSource) token(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.accessToken != "" && time.Now().Before(r.tokenExpiry) {
		return r.accessToken, nil
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", r.userAgent).
		SetBasicAuth(r.clientID, r.clientSecret).
		SetFormData(map[string]string{
			"grant_type": "client_credentials",
		}).
		Post(r.tokenURL)
	if err != nil {
		return "", err
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode())
	}

	var authResp redditAuthResponse
	if err := json.Unmarshal(resp.Body(), &authResp); err != nil {
		return "", err
	}
	if authResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}

	r.accessToken = authResp.AccessToken
	r.tokenExpiry = time.Now().Add(time.Duration(authResp.ExpiresIn)*time.Second - time.Minute)
	return r.accessToken, nil
}
