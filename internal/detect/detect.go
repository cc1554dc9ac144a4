// Package detect implements deterministic rule-based context detection.
// Three detectors (layer, topic, technology) share the same scoring shape:
// lowercase the input, tokenize on non-word boundaries, and award points
// per keyword for phrase, whole-word, or partial matches. Registries are
// read-mostly; custom keywords append under a brief write lock so
// detection stays safe for unlimited concurrent calls.
package detect

import (
	"regexp"
	"strings"
)

// Match point values shared by all three detectors.
const (
	scorePhrase  = 2.0 // exact substring/phrase match
	scoreAllWord = 1.5 // every word of a multi-word keyword present as tokens
	scorePartial = 0.5 // only some words present
)

// normalizeDivisor scales a tag's raw score into a confidence:
// confidence = min(raw / (keywordCount * normalizeDivisor), 1.0).
const normalizeDivisor = 0.3

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// tokenize lowercases text and splits it into a word set.
func tokenize(text string) (string, map[string]bool) {
	lower := strings.ToLower(text)
	tokens := make(map[string]bool)
	for _, tok := range tokenSplit.Split(lower, -1) {
		if tok != "" {
			tokens[tok] = true
		}
	}
	return lower, tokens
}

// scoreKeyword awards points for one keyword against the prepared input.
func scoreKeyword(lower string, tokens map[string]bool, keyword string) float64 {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return 0
	}

	if strings.Contains(lower, kw) {
		return scorePhrase
	}

	words := strings.Fields(kw)
	if len(words) < 2 {
		return 0
	}

	matched := 0
	for _, w := range words {
		if tokens[w] {
			matched++
		}
	}
	switch {
	case matched == len(words):
		return scoreAllWord
	case matched > 0:
		return scorePartial
	default:
		return 0
	}
}

// normalizeScore converts a raw tag score to a confidence in [0,1].
func normalizeScore(raw float64, keywordCount int) float64 {
	if keywordCount == 0 || raw <= 0 {
		return 0
	}
	conf := raw / (float64(keywordCount) * normalizeDivisor)
	if conf > 1.0 {
		return 1.0
	}
	return conf
}
