package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/azure/brand-pulse/internal/config"
	"github.com/azure/brand-pulse/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

const (
	reportMentionLimit = 5
	emailMentionLimit  = 10
)

// Service delivers watch reports to Teams and email
type Service struct {
	config *config.Config
	client *resty.Client
	send   func(m *gomail.Message) error
}

var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message card
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	s := &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
	s.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
		return d.DialAndSend(m)
	}
	return s
}

// Enabled reports whether any channel is configured
func (s *Service) Enabled() bool {
	return s.config.TeamsWebhookURL != "" || s.config.NotificationEmail != ""
}

// SendReport sends a report via every configured channel
func (s *Service) SendReport(ctx context.Context, report *models.Report) error {
	var errs []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.postToTeams(ctx, s.buildTeamsMessage(report)); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errs = append(errs, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.WithField("entity", report.Entity).Info("Sent report to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errs = append(errs, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.WithField("entity", report.Entity).Info("Sent report via email")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendAlert posts a single high-priority topic to Teams
func (s *Service) SendAlert(ctx context.Context, alert *models.Alert) error {
	if s.config.TeamsWebhookURL == "" {
		logrus.Infof("Alert not sent, no Teams webhook configured: %s", alert.Title)
		return nil
	}

	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: "D13438",
		Title:      alert.Title,
		Text:       alert.Message,
	}
	if c := alert.Cluster; c != nil {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: c.Topic,
			ActivityText:  c.Description,
			Facts:         clusterFacts(*c),
			Markdown:      true,
		})
	}

	return s.postToTeams(ctx, message)
}

func (s *Service) postToTeams(ctx context.Context, message *TeamsMessage) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)
	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func clusterFacts(c models.TopicCluster) []TeamsFact {
	return []TeamsFact{
		{Name: "Priority", Value: titleCase(c.Priority)},
		{Name: "Mentions", Value: fmt.Sprintf("%d (%d negative)", c.MentionCount, c.NegativeCount)},
		{Name: "Average Sentiment", Value: fmt.Sprintf("%.1f", c.AverageSentiment)},
	}
}

func (s *Service) buildTeamsMessage(report *models.Report) *TeamsMessage {
	high := report.HighPriorityClusters()

	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Brand Pulse: %s (%s)", report.Entity, titleCase(report.Period)),
		Text:    fmt.Sprintf("%d high priority topics need a response", len(high)),
	}
	if len(high) > 0 {
		message.ThemeColor = "D13438"
	}

	if snap := report.Snapshot; snap != nil {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Sentiment",
			Facts: []TeamsFact{
				{Name: "Score", Value: fmt.Sprintf("%.1f", snap.Score)},
				{Name: "Mentions", Value: fmt.Sprintf("%d", snap.Total)},
				{Name: "Positive / Neutral / Negative", Value: fmt.Sprintf("%d / %d / %d", snap.PositiveCount, snap.NeutralCount, snap.NegativeCount)},
				{Name: "Generated", Value: report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
			},
			Markdown: true,
		})
	}

	for _, c := range high {
		section := TeamsSection{
			ActivityTitle: c.Topic,
			ActivityText:  c.Description,
			Facts:         clusterFacts(c),
			Markdown:      true,
		}

		var links []string
		for i, m := range c.Mentions {
			if i >= reportMentionLimit {
				break
			}
			if m.URL != "" {
				links = append(links, fmt.Sprintf("[%s](%s) (%s)", truncate(m.Text, 80), m.URL, m.CommunityTag))
			}
		}
		if len(links) > 0 {
			section.ActivitySubtitle = strings.Join(links, "\n\n")
		}
		message.Sections = append(message.Sections, section)
	}

	for _, rec := range report.Recommendations {
		var ideas []string
		for _, idea := range rec.PostIdeas {
			ideas = append(ideas, fmt.Sprintf("- **%s** (%s)", idea.Title, idea.Angle))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle:    "Recommended response: " + rec.Topic,
			ActivitySubtitle: rec.Issue,
			ActivityText:     strings.Join(ideas, "\n"),
			Markdown:         true,
		})
	}

	return message
}

func (s *Service) sendEmail(report *models.Report) error {
	subject := fmt.Sprintf("Brand Pulse: %s %s report (%d high priority topics)",
		report.Entity, report.Period, len(report.HighPriorityClusters()))

	htmlBody, err := buildEmailHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", buildEmailText(report))
	m.AddAlternative("text/html", htmlBody)

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

const emailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Brand Pulse Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .cluster { border-left: 4px solid #d13438; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Brand Pulse: {{.Report.Entity}}</h1>
        <p>{{.Report.Period | title}} report generated on {{.Report.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    {{with .Report.Snapshot}}
    <div class="summary">
        <h2>Sentiment</h2>
        <p><strong>Score:</strong> {{printf "%.1f" .Score}}</p>
        <p><strong>Mentions:</strong> {{.Total}} ({{.PositiveCount}} positive, {{.NeutralCount}} neutral, {{.NegativeCount}} negative)</p>
    </div>
    {{end}}

    {{if .High}}
    <h2>High Priority Topics</h2>
    {{range .High}}
    <div class="cluster">
        <h3>{{.Topic}}</h3>
        <p>{{.Description}}</p>
        <p class="meta">{{.MentionCount}} mentions, {{.NegativeCount}} negative, average {{printf "%.1f" .AverageSentiment}}</p>
        {{range $i, $m := .Mentions}}{{if lt $i 10}}
        <p><a href="{{$m.URL}}" target="_blank">{{$m.CommunityTag}}</a>: {{$m.Text | truncate 200}}</p>
        {{end}}{{end}}
    </div>
    {{end}}
    {{end}}

    {{if .Report.Recommendations}}
    <h2>Recommended Responses</h2>
    {{range .Report.Recommendations}}
    <h3>{{.Topic}} ({{.Priority}})</h3>
    <p><strong>Issue:</strong> {{.Issue}}</p>
    <p><strong>Impact:</strong> {{.Impact}}</p>
    <ul>{{range .PostIdeas}}<li><strong>{{.Title}}</strong> ({{.Angle}}): {{.Description}}</li>{{end}}</ul>
    {{end}}
    {{end}}

    <hr>
    <p><small>This report was generated automatically by Brand Pulse.</small></p>
</body>
</html>
`

var emailTmpl = template.Must(template.New("email").Funcs(template.FuncMap{
	"title":    titleCase,
	"truncate": func(n int, s string) string { return truncate(s, n) },
}).Parse(emailTemplate))

func buildEmailHTML(report *models.Report) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Report *models.Report
		High   []models.TopicCluster
	}{report, report.HighPriorityClusters()}

	if err := emailTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildEmailText(report *models.Report) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Brand Pulse: %s (%s)\n", report.Entity, titleCase(report.Period)))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	if snap := report.Snapshot; snap != nil {
		text.WriteString("SENTIMENT\n")
		text.WriteString("=========\n")
		text.WriteString(fmt.Sprintf("Score: %.1f\n", snap.Score))
		text.WriteString(fmt.Sprintf("Mentions: %d (%d positive, %d neutral, %d negative)\n",
			snap.Total, snap.PositiveCount, snap.NeutralCount, snap.NegativeCount))
	}

	if high := report.HighPriorityClusters(); len(high) > 0 {
		text.WriteString("\nHIGH PRIORITY TOPICS\n")
		text.WriteString("====================\n")
		for i, c := range high {
			text.WriteString(fmt.Sprintf("\n%d. %s (%d mentions, %d negative)\n", i+1, c.Topic, c.MentionCount, c.NegativeCount))
			if c.Description != "" {
				text.WriteString(fmt.Sprintf("   %s\n", c.Description))
			}
			for j, m := range c.Mentions {
				if j >= emailMentionLimit {
					break
				}
				text.WriteString(fmt.Sprintf("   - %s\n     %s\n", truncate(m.Text, 200), m.URL))
			}
		}
	}

	if len(report.Recommendations) > 0 {
		text.WriteString("\nRECOMMENDED RESPONSES\n")
		text.WriteString("=====================\n")
		for _, rec := range report.Recommendations {
			text.WriteString(fmt.Sprintf("\n%s [%s]\n   Issue: %s\n   Impact: %s\n", rec.Topic, rec.Priority, rec.Issue, rec.Impact))
			for _, idea := range rec.PostIdeas {
				text.WriteString(fmt.Sprintf("   * %s (%s): %s\n", idea.Title, idea.Angle, idea.Description))
			}
		}
	}

	text.WriteString("\n---\nThis report was generated automatically by Brand Pulse.\n")
	return text.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
