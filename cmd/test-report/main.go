package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/azure/brand-pulse/internal/config"
	"github.com/azure/brand-pulse/internal/llm"
	"github.com/azure/brand-pulse/internal/models"
	"github.com/azure/brand-pulse/internal/monitoring"
	"github.com/azure/brand-pulse/internal/sources"
	"github.com/joho/godotenv"
)

const outputDir = "test_output"

// FileStorage writes archived reports under test_output
type FileStorage struct{}

func (FileStorage) Store(_ context.Context, name string, data []byte) error {
	path := filepath.Join(outputDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	fmt.Printf("\n💾 Report saved to: %s\n", path)
	return nil
}

func (FileStorage) Retrieve(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(outputDir, name))
}

func (FileStorage) List(_ context.Context, prefix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(outputDir, prefix+"*"))
	if err != nil {
		return nil, err
	}
	for i, m := range matches {
		matches[i] = strings.TrimPrefix(filepath.ToSlash(m), outputDir+"/")
	}
	return matches, nil
}

func (FileStorage) Delete(_ context.Context, name string) error {
	return os.Remove(filepath.Join(outputDir, name))
}

// TerminalNotifier prints reports instead of sending them
type TerminalNotifier struct{}

func (TerminalNotifier) SendReport(_ context.Context, report *models.Report) error {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Printf("📊 BRAND PULSE REPORT: %s\n", report.Entity)
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("🕒 Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))

	if snap := report.Snapshot; snap != nil {
		fmt.Printf("📈 Score: %.1f over %d mentions\n", snap.Score, snap.Total)
		fmt.Printf("   😊 positive: %d   😐 neutral: %d   😞 negative: %d\n", snap.PositiveCount, snap.NeutralCount, snap.NegativeCount)

		fmt.Println("\n📝 Sample Mentions:")
		for i, m := range snap.Mentions {
			if i >= 5 {
				fmt.Printf("   ... and %d more mentions\n", len(snap.Mentions)-5)
				break
			}
			fmt.Printf("\n   %d. [%s] %s\n", i+1, m.CommunityTag, m.Text)
			fmt.Printf("      💭 %s (%.0f) | 🔗 %s\n", m.Sentiment, m.Score, m.URL)
		}
	}

	if len(report.Clusters) > 0 {
		fmt.Println("\n🗂  Topics:")
		for _, c := range report.Clusters {
			fmt.Printf("   • %-25s %-6s %2d mentions, avg %.1f\n", c.Topic, c.Priority, c.MentionCount, c.AverageSentiment)
		}
	}

	for _, rec := range report.Recommendations {
		fmt.Printf("\n🎯 %s [%s]\n", rec.Topic, rec.Priority)
		fmt.Printf("   Issue:  %s\n   Impact: %s\n", rec.Issue, rec.Impact)
		for _, idea := range rec.PostIdeas {
			fmt.Printf("   - %s (%s)\n", idea.Title, idea.Angle)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	return nil
}

func (TerminalNotifier) SendAlert(_ context.Context, alert *models.Alert) error {
	fmt.Printf("\n🚨 ALERT: %s\n   %s\n", alert.Title, alert.Message)
	return nil
}

func main() {
	entity := flag.String("entity", "", "entity to analyze")
	summarize := flag.Bool("summary", true, "also print an executive summary")
	flag.Parse()
	if *entity == "" && flag.NArg() > 0 {
		*entity = strings.Join(flag.Args(), " ")
	}
	if *entity == "" {
		log.Fatal("usage: test-report -entity <name>")
	}

	fmt.Println("🤖 Brand Pulse - Test Report Generator")
	fmt.Println("======================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	classifier, err := llm.New(ctx, cfg.LLMProvider, cfg.LLMAPIKey(), cfg.LLMModel)
	if err != nil {
		log.Fatalf("Failed to initialize %s client: %v", cfg.LLMProvider, err)
	}
	source, err := sources.New(cfg.Source, cfg.SourceCredentials())
	if err != nil {
		log.Fatalf("Failed to initialize source: %v", err)
	}

	service := monitoring.NewService(cfg, classifier, source, FileStorage{}, TerminalNotifier{})

	fmt.Printf("🔍 Analyzing %q on %s...\n", *entity, source.GetName())
	report, err := service.RunWatch(ctx, *entity, "manual")
	if err != nil {
		log.Fatalf("Report failed: %v", err)
	}

	if *summarize {
		summary := service.Summarize(ctx, report.Snapshot)
		data, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Printf("\n🧾 Summary:\n%s\n", data)
	}
}
