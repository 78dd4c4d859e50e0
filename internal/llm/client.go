// Package llm wraps the text classification service every analysis stage
// prompts. Providers share one interface so stages can be tested with a fake.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Classifier takes a prompt and returns the model's free-form answer
type Classifier interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrNotConfigured is returned by every call of an unconfigured classifier
var ErrNotConfigured = errors.New("text classification service is not configured")

// Unconfigured fails every call uniformly
type Unconfigured struct{}

func (Unconfigured) Complete(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

// New builds the classifier for provider. A missing API key yields an
// Unconfigured classifier rather than an error so the service can still boot.
func New(ctx context.Context, provider, apiKey, model string) (Classifier, error) {
	if apiKey == "" {
		return Unconfigured{}, nil
	}

	switch provider {
	case "openai":
		return NewOpenAIClassifier(apiKey, model), nil
	case "anthropic":
		return NewAnthropicClassifier(apiKey, model), nil
	case "gemini":
		return NewGeminiClassifier(ctx, apiKey, model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
