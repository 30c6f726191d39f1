package matcher

import (
	"regexp"
	"strings"
)

// Provider tags reported in match results.
const (
	TagStaticRule = "static_rule"
	TagRetrieval  = "retrieval_only"
)

// Canned reply texts. The assistant speaks French, matching the
// catalog language.
const (
	GreetingReply = "Bonjour ! Comment puis-je vous aider ?"
	AckReply      = "Souhaitez-vous plus de précisions ?"
	ClarifyReply  = "Pouvez-vous préciser votre question ?"
)

// Degenerate input limits: anything shorter is answered with a
// clarification prompt instead of being embedded.
const (
	minQueryWords = 2
	minQueryChars = 5
)

var (
	// noiseChars matches everything outside the permitted set of word
	// characters, whitespace, hyphens and French accented letters.
	noiseChars = regexp.MustCompile(`[^\w\sàâäéèêëïîôùûüÿçÀÂÄÉÈÊËÏÎÔÙÛÜŸÇ-]`)
	multiSpace = regexp.MustCompile(`\s+`)
)

var (
	greetingPhrases = []string{"bonjour", "hello", "salut", "hi", "bonsoir", "coucou"}
	ackPhrases      = []string{"ok", "oui", "non", "merci", "d'accord", "bien", "parfait", "super"}

	// Lookup tables keyed by the normalized form of each phrase, so
	// membership checks survive the same cleanup the query goes through
	// (e.g. "d'accord" loses its apostrophe).
	greetingSet = buildPhraseSet(greetingPhrases)
	ackSet      = buildPhraseSet(ackPhrases)
)

func buildPhraseSet(phrases []string) map[string]struct{} {
	set := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		set[strings.ToLower(NormalizeQuery(p))] = struct{}{}
	}
	return set
}

// NormalizeQuery strips noise characters and collapses whitespace. The
// cleanup is purely cosmetic: it never changes the words of the query,
// only removes punctuation and surplus spacing before embedding.
func NormalizeQuery(query string) string {
	query = noiseChars.ReplaceAllString(query, " ")
	query = multiSpace.ReplaceAllString(query, " ")
	return strings.TrimSpace(query)
}

// reflexReply returns the canned response for conversational filler
// (greetings and bare acknowledgments). Checked before any vector
// math and before the degenerate-input rejection: "hi" or "ok" must
// hit the reflex path even though they are too short to embed.
func reflexReply(normalized string) (string, bool) {
	lower := strings.ToLower(normalized)
	if _, ok := greetingSet[lower]; ok {
		return GreetingReply, true
	}
	if _, ok := ackSet[lower]; ok {
		return AckReply, true
	}
	return "", false
}

// isTooShort reports whether the normalized query carries too little
// signal to be worth embedding.
func isTooShort(normalized string) bool {
	if len([]rune(normalized)) < minQueryChars {
		return true
	}
	return len(strings.Fields(normalized)) < minQueryWords
}
