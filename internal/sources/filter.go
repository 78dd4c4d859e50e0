package sources

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/azure/brand-pulse/internal/models"
)

const entityBodyWindow = 500

// Patterns that reject an otherwise matching item for any entity
var genericDenylist = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwe'?re hiring\b`),
	regexp.MustCompile(`(?i)\bnow hiring\b`),
	regexp.MustCompile(`(?i)\bjob (opening|posting|opportunit(y|ies))\b`),
	regexp.MustCompile(`(?i)\bapply (now|today|here)\b`),
	regexp.MustCompile(`(?i)\[hiring\]`),
}

// Known non-company homonyms and unit usages, keyed by lowercase entity
var homonymDenylist = map[string][]*regexp.Regexp{
	"tesla": {
		regexp.MustCompile(`(?i)\bnikola\s+tesla\b`),
		regexp.MustCompile(`(?i)\btesla\s+coils?\b`),
		// a magnitude followed by the unit counts only next to a field term
		regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*-?\s*teslas?\b.{0,40}\b(mri|magnet(ic)?|field|scanners?|flux)\b`),
		regexp.MustCompile(`(?i)\b(mri|magnet(ic)?|field strength|scanners?|flux)\b.{0,40}\b\d+(\.\d+)?\s*-?\s*teslas?\b`),
	},
	"apple": {
		regexp.MustCompile(`(?i)\bapples?\s+(pie|juice|cider|tree|orchard|sauce)s?\b`),
		regexp.MustCompile(`(?i)\b(green|red|eat|ate|eating)\s+(an\s+)?apples?\b`),
	},
	"amazon": {
		regexp.MustCompile(`(?i)\bamazon\s+(rainforest|river|basin|jungle)\b`),
	},
	"oracle": {
		regexp.MustCompile(`(?i)\boracle\s+of\s+delphi\b`),
	},
	"shell": {
		regexp.MustCompile(`(?i)\b(bash|zsh|unix|linux)\s+shell\b`),
		regexp.MustCompile(`(?i)\bshell\s+(script|command)s?\b`),
	},
}

// EntityPattern compiles a case-insensitive whole-word matcher for name,
// allowing a plural "s"
func EntityPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(strings.TrimSpace(name)) + `s?\b`)
}

// EntityFilter rejects items that do not name the entity as a whole word
// in the title or the start of the body, or that hit a denylist pattern.
type EntityFilter struct {
	pattern  *regexp.Regexp
	denylist []*regexp.Regexp
}

func NewEntityFilter(entity string) *EntityFilter {
	deny := append([]*regexp.Regexp{}, genericDenylist...)
	deny = append(deny, homonymDenylist[strings.ToLower(strings.TrimSpace(entity))]...)
	return &EntityFilter{
		pattern:  EntityPattern(entity),
		denylist: deny,
	}
}

// Matches reports whether an item with the given title and body passes
func (f *EntityFilter) Matches(title, body string) bool {
	head := runePrefix(body, entityBodyWindow)
	if !f.pattern.MatchString(title) && !f.pattern.MatchString(head) {
		return false
	}

	text := title + " " + head
	for _, re := range f.denylist {
		if re.MatchString(text) {
			return false
		}
	}
	return true
}

// Apply filters items and caps the result at limit
func (f *EntityFilter) Apply(items []models.SourceItem, limit int) []models.SourceItem {
	var out []models.SourceItem
	for _, item := range items {
		if limit > 0 && len(out) >= limit {
			break
		}
		if f.Matches(item.Title, item.Body) {
			out = append(out, item)
		}
	}
	return out
}

func capItems(items []models.SourceItem, limit int) []models.SourceItem {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func runePrefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// DeduplicateItems collapses items sharing an id. The last occurrence wins
// and takes the position of that final occurrence.
func DeduplicateItems(items []models.SourceItem) []models.SourceItem {
	last := make(map[string]int, len(items))
	for i, item := range items {
		last[item.ID] = i
	}

	unique := make([]models.SourceItem, 0, len(last))
	for i, item := range items {
		if last[item.ID] == i {
			unique = append(unique, item)
		}
	}
	return unique
}
