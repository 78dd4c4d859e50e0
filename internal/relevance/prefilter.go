package relevance

import (
	"regexp"
	"strings"
	"unicode"
)

const minTextLength = 30

func wordSet(words ...string) *regexp.Regexp {
	escaped := make([]string, len(words))
	for i, w := range words {
		escaped[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
}

var (
	// Any opinion-bearing word, positive, negative or neutral
	sentimentWords = wordSet(
		// positive
		"love", "loved", "loving", "great", "amazing", "awesome", "excellent", "fantastic",
		"best", "happy", "recommend", "recommended", "impressed", "satisfied", "perfect",
		"wonderful", "brilliant", "like", "liked", "enjoy", "enjoyed", "helpful", "reliable",
		"smooth", "worth", "good", "nice", "solid", "outstanding", "thank", "thanks",
		// negative
		"hate", "hated", "terrible", "awful", "worst", "horrible", "disappointed",
		"disappointing", "frustrating", "frustrated", "annoying", "annoyed", "useless",
		"broken", "scam", "ripoff", "rip-off", "poor", "bad", "sucks", "garbage", "angry",
		"regret", "unreliable", "overpriced", "nightmare", "never again", "avoid", "worse",
		"ridiculous", "pathetic", "furious", "waste",
		// neutral opinion
		"think", "feel", "felt", "opinion", "experience", "honestly", "imo", "imho",
		"personally", "seems", "okay", "decent", "mixed", "meh", "average", "switched",
		"tried", "my", "i've", "i'm",
	)

	// Stricter lexicon that overrides news and discussion-prompt rejection
	strongSentimentWords = wordSet(
		"love", "loved", "hate", "hated", "amazing", "terrible", "awful", "worst", "best",
		"horrible", "disappointed", "furious", "scam", "nightmare", "fantastic", "excellent",
		"never again", "garbage", "outstanding", "useless", "pathetic", "ripoff",
	)

	jobPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bwe'?re hiring\b`),
		regexp.MustCompile(`(?i)\bnow hiring\b`),
		regexp.MustCompile(`(?i)\bhiring for\b`),
		regexp.MustCompile(`(?i)\[hiring\]`),
		regexp.MustCompile(`(?i)\bjob (opening|posting|opportunit(y|ies))\b`),
		regexp.MustCompile(`(?i)\bapply (now|today|here)\b`),
		regexp.MustCompile(`(?i)\bjoin our team\b`),
		regexp.MustCompile(`(?i)\bsend (me )?your (resume|cv)\b`),
	}

	promoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(promo|discount|coupon|referral) (code|link)\b`),
		regexp.MustCompile(`(?i)\buse (my|code)\b`),
		regexp.MustCompile(`(?i)\baffiliate\b`),
		regexp.MustCompile(`(?i)\bclick (here|the link)\b`),
		regexp.MustCompile(`(?i)\blimited time offer\b`),
		regexp.MustCompile(`(?i)\bcheck out my\b`),
		regexp.MustCompile(`(?i)\bdm me\b`),
		regexp.MustCompile(`(?i)\bsign up (now|here|using)\b`),
	}

	techSupportPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)^\s*(how (do|can|should) i|how to|is there a way to|does anyone know how|can (someone|anyone) help|need help (with|setting|configuring))\b.*\?\s*$`),
		regexp.MustCompile(`(?i)^\s*(error|exception|stack ?trace)\s*:`),
	}

	newsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(announces?|announced|unveils?|unveiled|press release|breaking|according to|reportedly)\b`),
		regexp.MustCompile(`(?i)\b(quarterly (results|earnings)|earnings (call|report)|stock (price|jumps|falls|drops)|shares (rose|fell|jumped|dropped))\b`),
		regexp.MustCompile(`(?i)\b(launches|launched|acquires|acquired|files for)\b`),
	}

	discussionPromptPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*(what do you (guys |all )?think|thoughts on|what are your thoughts|opinions on|discussion:|discuss:)`),
		regexp.MustCompile(`(?i)^\s*anyone (else )?(tried|using|use)\b`),
	}
)

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// mentionsEntity accepts the full name, or failing that any name token
// longer than three characters
func mentionsEntity(text, entity string) bool {
	lower := strings.ToLower(text)
	name := strings.ToLower(strings.TrimSpace(entity))
	if name == "" {
		return false
	}
	if strings.Contains(lower, name) {
		return true
	}

	tokens := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		if len([]rune(tok)) > 3 && strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// RejectReason returns why the heuristic pre-filter discards text, or ""
// when it survives. Every check is independent; failing one is enough.
func RejectReason(text, entity string) string {
	trimmed := strings.TrimSpace(text)
	switch {
	case len([]rune(trimmed)) < minTextLength:
		return "too short"
	case !sentimentWords.MatchString(trimmed):
		return "no sentiment indicator"
	case !mentionsEntity(trimmed, entity):
		return "entity not mentioned"
	case matchesAny(jobPatterns, trimmed):
		return "job posting"
	case matchesAny(promoPatterns, trimmed):
		return "promotional"
	case matchesAny(techSupportPatterns, trimmed):
		return "technical support question"
	case matchesAny(newsPatterns, trimmed) && !strongSentimentWords.MatchString(trimmed):
		return "news announcement"
	case matchesAny(discussionPromptPatterns, trimmed) && !strongSentimentWords.MatchString(trimmed):
		return "discussion prompt"
	}
	return ""
}
