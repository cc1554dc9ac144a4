// Package ranking scores and orders directives against a detected task
// context. Scoring is pure arithmetic over the directive and context;
// no call shares state with any other, so batches parallelize freely.
package ranking

import (
	"strings"

	"dirigent/internal/config"
	"dirigent/internal/types"
)

// Sub-score constants (0-100 scale before weighting).
const (
	severityMustScore   = 100.0
	severityShouldScore = 50.0
	severityMayScore    = 25.0

	relevancePhrase    = 100.0
	relevanceWholeWord = 60.0
	relevanceFuzzy     = 30.0
	relevanceDefault   = 50.0 // no keywords supplied

	layerExact    = 100.0
	layerNeutral  = 40.0 // wildcard on either side
	layerAdjacent = 50.0 // distance 1
	layerNear     = 30.0 // distance 2
	layerFar      = 10.0

	topicMatchUnit = 20.0
	techMatchUnit  = 25.0

	authoritativeScore = 100.0
	sectionBonus       = 40.0 // heuristic when no explicit flag is set

	fuzzyMinFragment = 3
)

// sectionCriticalKeywords triggers the authoritativeness bonus for
// unflagged directives whose section reads as critical.
var sectionCriticalKeywords = []string{
	"security", "transaction", "authentication", "authorization",
	"compliance", "data integrity",
}

// ScoringEngine computes weighted directive scores. Weights are
// validated at construction and immutable afterwards.
type ScoringEngine struct {
	weights config.ScoringWeights
}

// NewScoringEngine validates the weights and builds an engine.
// Invalid weights fail fast here, never at call time.
func NewScoringEngine(weights config.ScoringWeights) (*ScoringEngine, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &ScoringEngine{weights: weights}, nil
}

// Score computes a directive's normalized score against the context.
// mode may be ModeNone. Pure and deterministic.
func (s *ScoringEngine) Score(d types.Directive, taskCtx *types.TaskContext, mode Mode) types.RankedDirective {
	breakdown := types.ScoreBreakdown{
		Severity:          severityScore(d.Severity),
		Relevance:         relevanceScore(d, taskCtx.Keywords),
		LayerMatch:        layerScore(d, taskCtx.Layer),
		TopicMatch:        topicScore(d, taskCtx.Topics),
		TechMatch:         techScore(d, taskCtx.Technologies),
		Authoritativeness: authorityScore(d),
	}

	weighted := breakdown.Severity*s.weights.Severity +
		breakdown.Relevance*s.weights.Relevance +
		breakdown.LayerMatch*s.weights.LayerMatch +
		breakdown.TopicMatch*s.weights.TopicMatch +
		breakdown.TechMatch*s.weights.TechMatch +
		breakdown.Authoritativeness*s.weights.Authoritativeness

	score := weighted / 100.0
	score = applyMode(score, d, mode)
	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}

	return types.RankedDirective{
		Directive: d,
		Score:     score,
		Breakdown: breakdown,
	}
}

func severityScore(sev types.Severity) float64 {
	switch sev {
	case types.SeverityMust:
		return severityMustScore
	case types.SeverityShould:
		return severityShouldScore
	default:
		return severityMayScore
	}
}

// relevanceScore awards the best match level any context keyword reaches
// in the directive text.
func relevanceScore(d types.Directive, keywords []string) float64 {
	if len(keywords) == 0 {
		return relevanceDefault
	}

	text := strings.ToLower(d.Text)
	words := wordSet(text)

	best := 0.0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}

		switch {
		case words[kw]:
			// Single word present as a whole token.
			if best < relevanceWholeWord {
				best = relevanceWholeWord
			}
		case strings.Contains(text, kw):
			if strings.Contains(kw, " ") {
				// Multi-word phrase found verbatim.
				return relevancePhrase
			}
			if best < relevanceFuzzy {
				best = relevanceFuzzy
			}
		case len(kw) >= fuzzyMinFragment && fuzzyContains(text, kw):
			if best < relevanceFuzzy {
				best = relevanceFuzzy
			}
		}
		if best == relevancePhrase {
			return best
		}
	}
	return best
}

// fuzzyContains reports whether any >=3-char prefix fragment of the
// keyword appears in the text.
func fuzzyContains(text, kw string) bool {
	for l := len(kw); l >= fuzzyMinFragment; l-- {
		if strings.Contains(text, kw[:l]) {
			return true
		}
	}
	return false
}

// layerScore takes the best score across the directive's layer tags.
func layerScore(d types.Directive, ctxLayer types.LayerTag) float64 {
	if len(d.Layers) == 0 {
		return layerNeutral
	}

	best := 0.0
	for _, dl := range d.Layers {
		var s float64
		switch {
		case dl == ctxLayer:
			s = layerExact
		case dl == types.LayerWildcard || ctxLayer == types.LayerWildcard:
			s = layerNeutral
		default:
			switch types.LayerDistance(dl, ctxLayer) {
			case 1:
				s = layerAdjacent
			case 2:
				s = layerNear
			default:
				s = layerFar
			}
		}
		if s > best {
			best = s
		}
	}
	return best
}

func topicScore(d types.Directive, topics []string) float64 {
	matched := intersectionCount(d.Topics, topics)
	s := topicMatchUnit * float64(matched)
	if s > 100 {
		return 100
	}
	return s
}

func techScore(d types.Directive, techs []string) float64 {
	matched := intersectionCount(d.Technologies, techs)
	s := techMatchUnit * float64(matched)
	if s > 100 {
		return 100
	}
	return s
}

// authorityScore prefers the explicit flag; the section-keyword bonus is
// a weaker heuristic for unflagged directives.
func authorityScore(d types.Directive) float64 {
	if d.Authoritative {
		return authoritativeScore
	}
	section := strings.ToLower(d.Section)
	for _, kw := range sectionCriticalKeywords {
		if strings.Contains(section, kw) {
			return sectionBonus
		}
	}
	return 0
}

// intersectionCount is the case-insensitive set intersection size.
func intersectionCount(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[strings.ToLower(s)] = true
	}
	count := 0
	seen := make(map[string]bool, len(b))
	for _, s := range b {
		s = strings.ToLower(s)
		if set[s] && !seen[s] {
			seen[s] = true
			count++
		}
	}
	return count
}

var wordSplitter = strings.NewReplacer(
	".", " ", ",", " ", ";", " ", ":", " ", "(", " ", ")", " ",
	"[", " ", "]", " ", "{", " ", "}", " ", "\"", " ", "'", " ",
	"!", " ", "?", " ", "/", " ", "\n", " ", "\t", " ",
)

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(wordSplitter.Replace(text)) {
		set[w] = true
	}
	return set
}
