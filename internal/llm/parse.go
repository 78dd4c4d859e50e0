package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

func stripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// FirstJSONObject returns the first balanced {...} value in content.
// Braces inside string literals are skipped.
func FirstJSONObject(content string) (string, bool) {
	return firstBalanced(stripFences(content), '{', '}')
}

// FirstJSONArray returns the first balanced [...] value in content
func FirstJSONArray(content string) (string, bool) {
	return firstBalanced(stripFences(content), '[', ']')
}

func firstBalanced(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
			ch := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case ch == '\\':
					escaped = true
				case ch == '"':
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case open:
				depth++
			case close:
				depth--
				if depth == 0 {
					candidate := s[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					i = len(s)
				}
			}
		}
		next := strings.IndexByte(s[start+1:], open)
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// DecodeObject unmarshals the first JSON object of content into v
func DecodeObject(content string, v any) error {
	raw, ok := FirstJSONObject(content)
	if !ok {
		return fmt.Errorf("no JSON object in response: %q", truncate(content, 120))
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// DecodeArray unmarshals the first JSON array of content into v
func DecodeArray(content string, v any) error {
	raw, ok := FirstJSONArray(content)
	if !ok {
		return fmt.Errorf("no JSON array in response: %q", truncate(content, 120))
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
