package recommendations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/azure/brand-pulse/internal/fanout"
	"github.com/azure/brand-pulse/internal/llm"
	"github.com/azure/brand-pulse/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnknownPlatform is returned for platforms without a configuration
	ErrUnknownPlatform = errors.New("unknown platform")
	// ErrMissingFields is returned by ContentRequest.Validate
	ErrMissingFields = errors.New("missing required fields")
)

// PlatformConfig fixes the constraints of one publishing platform
type PlatformConfig struct {
	MaxChars     int
	Tone         string
	HashtagCount int
	Guidance     string
	DefaultMedia string
}

var platformConfigs = map[string]PlatformConfig{
	models.PlatformTwitter: {
		MaxChars:     280,
		Tone:         "concise, direct and conversational",
		HashtagCount: 2,
		Guidance: `- Lead with the key message in the first sentence
- One idea only, no threads
- Plain language, no corporate jargon`,
		DefaultMedia: "Short looping video or a single bold graphic",
	},
	models.PlatformLinkedIn: {
		MaxChars:     3000,
		Tone:         "professional, thoughtful and transparent",
		HashtagCount: 3,
		Guidance: `- Open with a hook that names the issue honestly
- Use short paragraphs separated by blank lines
- Explain what is changing and why it matters to customers
- Close with an invitation to continue the conversation`,
		DefaultMedia: "Professional image or document carousel",
	},
	models.PlatformFacebook: {
		MaxChars:     2000,
		Tone:         "warm, friendly and community-focused",
		HashtagCount: 2,
		Guidance: `- Speak to the community like neighbours
- Share a concrete example or story
- End with a question that invites comments`,
		DefaultMedia: "Photo or short video featuring real people",
	},
	models.PlatformInstagram: {
		MaxChars:     2200,
		Tone:         "authentic, visual and upbeat",
		HashtagCount: 8,
		Guidance: `- The caption accompanies a visual, refer to it naturally
- Keep the first line short enough to read before the fold
- Put hashtags together at the end`,
		DefaultMedia: "Carousel of branded images or a Reel",
	},
}

// mediaRules are checked in order against the post idea angle
var mediaRules = []struct {
	keywords []string
	media    string
}{
	{keywords: []string{"behind", "scenes", "team", "culture"}, media: "Behind-the-scenes photos or video of the team"},
	{keywords: []string{"tutorial", "education", "how-to", "how to", "guide", "tips"}, media: "Step-by-step tutorial video or infographic"},
	{keywords: []string{"data", "transparen", "metric", "report"}, media: "Infographic or chart highlighting the key numbers"},
	{keywords: []string{"customer", "story", "testimonial", "success"}, media: "Customer testimonial video or quote card"},
	{keywords: []string{"apolog", "acknowledg", "accountab"}, media: "Short personal video message from leadership"},
	{keywords: []string{"roadmap", "update", "announce", "launch", "feature"}, media: "Product screenshot or short demo clip"},
}

var hashtagPattern = regexp.MustCompile(`#\w+`)

const contentPrompt = `You are the social media voice of "%s". Write a %s post.

Topic people are discussing: %s
Post idea: %s
Details: %s
Strategic angle: %s

Tone: %s
Guidelines:
%s
- Write in first person as %s ("we", "our")
- Acknowledge concerns openly without being defensive
- Include about %d relevant hashtags
- Stay under %d characters in total

Return only the post text.`

// ContentRequest identifies one post to draft
type ContentRequest struct {
	Entity   string          `json:"entity"`
	Topic    string          `json:"topic"`
	PostIdea models.PostIdea `json:"postIdea"`
	Platform string          `json:"platform"`
}

// Validate reports missing required fields
func (r ContentRequest) Validate(requirePlatform bool) error {
	var missing []string
	if strings.TrimSpace(r.Entity) == "" {
		missing = append(missing, "entity")
	}
	if strings.TrimSpace(r.Topic) == "" {
		missing = append(missing, "topic")
	}
	if strings.TrimSpace(r.PostIdea.Title) == "" {
		missing = append(missing, "postIdea")
	}
	if requirePlatform && strings.TrimSpace(r.Platform) == "" {
		missing = append(missing, "platform")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	return nil
}

// ContentGenerator drafts platform posts
type ContentGenerator struct {
	classifier llm.Classifier
}

func NewContentGenerator(classifier llm.Classifier) *ContentGenerator {
	return &ContentGenerator{classifier: classifier}
}

// LookupPlatform returns the configuration of platform
func LookupPlatform(platform string) (PlatformConfig, bool) {
	cfg, ok := platformConfigs[strings.ToLower(platform)]
	return cfg, ok
}

// Generate drafts a post for req.Platform
func (g *ContentGenerator) Generate(ctx context.Context, req ContentRequest) (*models.PlatformPost, error) {
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	cfg, ok := platformConfigs[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, req.Platform)
	}

	prompt := fmt.Sprintf(contentPrompt, req.Entity, platform, req.Topic,
		req.PostIdea.Title, req.PostIdea.Description, req.PostIdea.Angle,
		cfg.Tone, cfg.Guidance, req.Entity, cfg.HashtagCount, cfg.MaxChars)

	resp, err := g.classifier.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s content: %w", platform, err)
	}

	content := CleanContent(resp)
	if content == "" {
		return nil, fmt.Errorf("empty %s content", platform)
	}

	logrus.WithFields(logrus.Fields{
		"entity":   req.Entity,
		"platform": platform,
	}).Debug("Generated post")

	return &models.PlatformPost{
		Platform:            platform,
		Content:             content,
		Hashtags:            ExtractHashtags(content),
		CharacterCount:      len([]rune(content)),
		MediaRecommendation: MediaRecommendation(req.PostIdea.Angle, platform),
	}, nil
}

// GenerateAllPlatforms drafts every platform concurrently. Any failure
// fails the whole call.
func (g *ContentGenerator) GenerateAllPlatforms(ctx context.Context, req ContentRequest) ([]models.PlatformPost, error) {
	posts, err := fanout.MapErr(ctx, len(models.Platforms), models.Platforms, func(ctx context.Context, platform string) (models.PlatformPost, error) {
		r := req
		r.Platform = platform
		post, err := g.Generate(ctx, r)
		if err != nil {
			return models.PlatformPost{}, err
		}
		return *post, nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// CleanContent strips JSON wrapping and surrounding quotes and unescapes
// literal \n and \" sequences
func CleanContent(raw string) string {
	content := strings.TrimSpace(raw)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSpace(strings.TrimSuffix(content, "```"))

	if strings.HasPrefix(content, "{") {
		if obj, ok := llm.FirstJSONObject(content); ok {
			var wrapped map[string]any
			if err := json.Unmarshal([]byte(obj), &wrapped); err == nil {
				for _, key := range []string{"content", "post", "text"} {
					if s, isString := wrapped[key].(string); isString {
						content = strings.TrimSpace(s)
						break
					}
				}
			}
		}
	}

	if len(content) >= 2 {
		first, last := content[0], content[len(content)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			content = content[1 : len(content)-1]
		}
	}

	content = strings.ReplaceAll(content, `\n`, "\n")
	content = strings.ReplaceAll(content, `\"`, `"`)
	return strings.TrimSpace(content)
}

// ExtractHashtags returns the distinct #word tokens of content in order
func ExtractHashtags(content string) []string {
	tags := []string{}
	seen := make(map[string]bool)
	for _, tag := range hashtagPattern.FindAllString(content, -1) {
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
	}
	return tags
}

// MediaRecommendation matches angle against the rule table, falling back to
// the platform default
func MediaRecommendation(angle, platform string) string {
	lower := strings.ToLower(angle)
	for _, rule := range mediaRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.media
			}
		}
	}
	if cfg, ok := platformConfigs[strings.ToLower(platform)]; ok {
		return cfg.DefaultMedia
	}
	return "Relevant image"
}
