package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/azure/brand-pulse/internal/sources"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Schedule configuration
	ReportSchedule string // "daily", "weekly" or "off"
	TimeZone       string
	WatchEntities  []string

	// Text classification service
	LLMProvider     string // "openai", "anthropic" or "gemini"
	LLMModel        string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GoogleAPIKey    string

	// Source configuration
	Source             string // "reddit", "hackernews" or "stackexchange"
	RedditClientID     string
	RedditClientSecret string
	StackExchangeSite  string
	StackExchangeKey   string
	UserAgent          string
	SearchTimeframe    string

	// Collection tuning
	TopicCount           int
	TargetPostCount      int
	ReplyPostLimit       int
	SearchDelay          time.Duration
	ReplyDelay           time.Duration
	MinCommentCandidates int
	MaxAnalyzedMentions  int
	FallbackPostLimit    int
	RelevanceBatchSize   int
	SentimentConcurrency int
	HistoryHours         int

	// Azure Storage configuration
	StorageAccount   string
	StorageContainer string

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Allowed dashboard origins
	AllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Debug:          getBoolEnv("DEBUG", false),
		ReportSchedule: getEnv("REPORT_SCHEDULE", "off"),
		TimeZone:       getEnv("TIMEZONE", "UTC"),
		WatchEntities:  getSliceEnv("WATCH_ENTITIES", nil),

		LLMProvider:     getEnv("LLM_PROVIDER", "openai"),
		LLMModel:        getEnv("LLM_MODEL", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		GoogleAPIKey:    getEnv("GOOGLE_API_KEY", ""),

		Source:             getEnv("SOURCE", "reddit"),
		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		StackExchangeSite:  getEnv("STACKEXCHANGE_SITE", "stackoverflow"),
		StackExchangeKey:   getEnv("STACKEXCHANGE_KEY", ""),
		UserAgent:          getEnv("USER_AGENT", "BrandPulse/1.0"),
		SearchTimeframe:    getEnv("SEARCH_TIMEFRAME", "month"),
	}
	cfg.applyCollectionEnv()

	cfg.StorageAccount = getEnv("AZURE_STORAGE_ACCOUNT", "")
	cfg.StorageContainer = getEnv("AZURE_STORAGE_CONTAINER", "reports")

	cfg.TeamsWebhookURL = getEnv("TEAMS_WEBHOOK_URL", "")
	cfg.NotificationEmail = getEnv("NOTIFICATION_EMAIL", "")
	cfg.SMTPHost = getEnv("SMTP_HOST", "")
	cfg.SMTPPort = getIntEnv("SMTP_PORT", 587)
	cfg.SMTPUsername = getEnv("SMTP_USERNAME", "")
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", "")

	cfg.AllowedOrigins = getSliceEnv("ALLOWED_ORIGINS", []string{"http://localhost:3000"})

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with collection defaults and no credentials
func Default() *Config {
	cfg := &Config{
		Port:              "8080",
		ReportSchedule:    "off",
		TimeZone:          "UTC",
		LLMProvider:       "openai",
		Source:            "reddit",
		StackExchangeSite: "stackoverflow",
		UserAgent:         "BrandPulse/1.0",
		SearchTimeframe:   "month",
	}
	cfg.applyCollectionEnv()
	return cfg
}

func (c *Config) applyCollectionEnv() {
	c.TopicCount = getIntEnv("TOPIC_COUNT", 5)
	c.TargetPostCount = getIntEnv("TARGET_POST_COUNT", 60)
	c.ReplyPostLimit = getIntEnv("REPLY_POST_LIMIT", 10)
	c.SearchDelay = getDurationEnv("SEARCH_DELAY", time.Second)
	c.ReplyDelay = getDurationEnv("REPLY_DELAY", time.Second)
	c.MinCommentCandidates = getIntEnv("MIN_COMMENT_CANDIDATES", 5)
	c.MaxAnalyzedMentions = getIntEnv("MAX_ANALYZED_MENTIONS", 50)
	c.FallbackPostLimit = getIntEnv("FALLBACK_POST_LIMIT", 30)
	c.RelevanceBatchSize = getIntEnv("RELEVANCE_BATCH_SIZE", 20)
	c.SentimentConcurrency = getIntEnv("SENTIMENT_CONCURRENCY", 5)
	c.HistoryHours = getIntEnv("HISTORY_HOURS", 24)
}

func (c *Config) validate() error {
	switch c.ReportSchedule {
	case "daily", "weekly", "off":
	default:
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily', 'weekly' or 'off'")
	}

	switch c.LLMProvider {
	case "openai", "anthropic", "gemini":
	default:
		return fmt.Errorf("LLM_PROVIDER must be 'openai', 'anthropic' or 'gemini'")
	}

	switch c.Source {
	case "reddit", "hackernews", "stackexchange":
	default:
		return fmt.Errorf("SOURCE must be 'reddit', 'hackernews' or 'stackexchange'")
	}

	if c.ReportSchedule != "off" && len(c.WatchEntities) == 0 {
		return fmt.Errorf("WATCH_ENTITIES is required when REPORT_SCHEDULE is enabled")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	if c.TopicCount < 1 || c.TargetPostCount < 1 {
		return fmt.Errorf("TOPIC_COUNT and TARGET_POST_COUNT must be positive")
	}

	return nil
}

// SourceCredentials returns the settings every source constructor needs
func (c *Config) SourceCredentials() sources.Credentials {
	return sources.Credentials{
		RedditClientID:     c.RedditClientID,
		RedditClientSecret: c.RedditClientSecret,
		StackExchangeSite:  c.StackExchangeSite,
		StackExchangeKey:   c.StackExchangeKey,
		UserAgent:          c.UserAgent,
	}
}

// LLMAPIKey returns the credential for the configured provider
func (c *Config) LLMAPIKey() string {
	switch c.LLMProvider {
	case "anthropic":
		return c.AnthropicAPIKey
	case "gemini":
		return c.GoogleAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
