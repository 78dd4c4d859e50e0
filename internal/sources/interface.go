package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/azure/brand-pulse/internal/models"
)

// SearchOptions tunes a single topic search
type SearchOptions struct {
	Limit     int
	Timeframe string // hour, day, week, month, year, all
	// EntityName, when set, enables the strict whole-word entity filter
	EntityName string
}

// Source interface defines the contract for all data sources.
// Transport and shape failures degrade to empty results, never errors.
type Source interface {
	GetName() string
	IsEnabled() bool
	Search(ctx context.Context, topic string, opts SearchOptions) []models.SourceItem
	FetchReplies(ctx context.Context, permalink string) []models.CommentItem
}

// rawLimit is how many results to request so filtering loss is absorbed
func rawLimit(limit, max int) int {
	if limit <= 0 {
		limit = 25
	}
	n := limit * 3
	if n > max {
		n = max
	}
	return n
}

func isJSONContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}

// Credentials carries the optional per-source settings
type Credentials struct {
	RedditClientID     string
	RedditClientSecret string
	StackExchangeSite  string
	StackExchangeKey   string
	UserAgent          string
}

// New returns the named source
func New(name string, creds Credentials) (Source, error) {
	switch name {
	case "reddit":
		return NewRedditSource(creds.RedditClientID, creds.RedditClientSecret, creds.UserAgent), nil
	case "hackernews":
		return NewHackerNewsSource(creds.UserAgent), nil
	case "stackexchange":
		return NewStackExchangeSource(creds.StackExchangeSite, creds.StackExchangeKey, creds.UserAgent), nil
	}
	return nil, fmt.Errorf("unknown source %q", name)
}
