// Package llmtest provides a scripted llm.Classifier for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"
)

// Rule answers prompts containing Match
type Rule struct {
	Match    string
	Response string
	Err      error
}

// Fake answers each prompt with the first rule whose Match is a substring
// of the prompt. Respond, when set, takes precedence over Rules.
type Fake struct {
	Rules    []Rule
	Respond  func(prompt string) (string, error)
	Fallback string

	mu      sync.Mutex
	prompts []string
}

func (f *Fake) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.Respond != nil {
		return f.Respond(prompt)
	}
	for _, r := range f.Rules {
		if strings.Contains(prompt, r.Match) {
			return r.Response, r.Err
		}
	}
	return f.Fallback, nil
}

// Prompts returns every prompt received so far
func (f *Fake) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// Calls returns how many prompts contained substr
func (f *Fake) Calls(substr string) int {
	n := 0
	for _, p := range f.Prompts() {
		if strings.Contains(p, substr) {
			n++
		}
	}
	return n
}
