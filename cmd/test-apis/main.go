package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/azure/brand-pulse/internal/config"
	"github.com/azure/brand-pulse/internal/llm"
	"github.com/azure/brand-pulse/internal/sources"
	"github.com/joho/godotenv"
)

func main() {
	entity := flag.String("entity", "Tesla", "entity to search for")
	flag.Parse()

	fmt.Println("🔍 Brand Pulse - API Connectivity Test")
	fmt.Println("======================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fmt.Println("\n📡 Testing sources...")
	fmt.Println(strings.Repeat("-", 40))
	for _, name := range []string{"reddit", "hackernews", "stackexchange"} {
		source, err := sources.New(name, cfg.SourceCredentials())
		if err != nil {
			fmt.Printf("🔸 %s: ❌ %v\n", name, err)
			continue
		}
		testSource(ctx, source, *entity, cfg.SearchTimeframe)
	}

	fmt.Println("\n🧠 Testing text classification service...")
	fmt.Println(strings.Repeat("-", 40))
	testClassifier(ctx, cfg)

	fmt.Println("\n✅ API connectivity test completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Println("   • Configure missing API keys in .env file")
	fmt.Println("   • Run a report with: go run ./cmd/test-report -entity \"" + *entity + "\"")
}

func testSource(ctx context.Context, source sources.Source, entity, timeframe string) {
	fmt.Printf("🔸 Testing %s... ", source.GetName())

	if !source.IsEnabled() {
		fmt.Printf("⚠️  DISABLED\n")
		return
	}

	items := source.Search(ctx, entity, sources.SearchOptions{Limit: 5, Timeframe: timeframe, EntityName: entity})
	if len(items) == 0 {
		fmt.Printf("⚠️  no posts returned (blocked, rate limited or no matches)\n")
		return
	}
	fmt.Printf("✅ SUCCESS (%d posts found)\n", len(items))
	fmt.Printf("   📝 Sample: \"%s\"\n", items[0].Title)

	replies := source.FetchReplies(ctx, items[0].Permalink)
	fmt.Printf("   💬 %d replies on the sample post\n", len(replies))
}

func testClassifier(ctx context.Context, cfg *config.Config) {
	fmt.Printf("🔸 Testing %s... ", cfg.LLMProvider)

	classifier, err := llm.New(ctx, cfg.LLMProvider, cfg.LLMAPIKey(), cfg.LLMModel)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}

	resp, err := classifier.Complete(ctx, `Reply with the JSON array ["ok"] and nothing else.`)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}

	var parsed []string
	if err := llm.DecodeArray(resp, &parsed); err != nil {
		fmt.Printf("⚠️  reachable, but the answer was not JSON: %q\n", resp)
		return
	}
	fmt.Printf("✅ SUCCESS (%v)\n", parsed)
}
