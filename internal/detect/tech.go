package detect

import (
	"sort"
	"strings"

	"dirigent/internal/types"
)

// DefaultTechThreshold is the inclusion bar for technology detection.
const DefaultTechThreshold = 0.5

// Supporting-keyword scoring. Each matched supporting keyword adds
// supportingBonus to the matched weight, capped at supportingCap.
const (
	supportingBonus = 0.3
	supportingCap   = 0.9
)

// TechDetector finds technologies named or implied by the text.
type TechDetector struct {
	registry  *TechRegistry
	threshold float64
}

// NewTechDetector creates a detector with the default threshold.
func NewTechDetector(registry *TechRegistry) *TechDetector {
	return NewTechDetectorWithThreshold(registry, DefaultTechThreshold)
}

// NewTechDetectorWithThreshold creates a detector with a custom threshold.
func NewTechDetectorWithThreshold(registry *TechRegistry, threshold float64) *TechDetector {
	if registry == nil {
		registry = NewTechRegistry()
	}
	return &TechDetector{registry: registry, threshold: threshold}
}

// Detect returns all technologies clearing the threshold, sorted by
// confidence descending. Confidence is matchedWeight / maxPossibleWeight
// where max possible is one exact alias hit plus the supporting cap.
// A technology needs at least one alias hit; supporting keywords alone
// never trigger a detection. Pure and deterministic.
func (d *TechDetector) Detect(text string) []types.TechDetection {
	lower, tokens := tokenize(text)
	entries := d.registry.snapshot()

	maxPossible := scorePhrase + supportingCap

	var results []types.TechDetection
	for _, entry := range entries {
		var aliasWeight float64
		for _, alias := range entry.Aliases {
			s := aliasScore(lower, tokens, alias)
			if s == scorePhrase {
				// Exact phrase hit: no further aliases can do better.
				aliasWeight = s
				break
			}
			if s > aliasWeight {
				aliasWeight = s
			}
		}
		if aliasWeight == 0 {
			continue
		}

		var bonus float64
		for _, sup := range entry.Supporting {
			if scoreKeyword(lower, tokens, sup) > 0 {
				bonus += supportingBonus
				if bonus >= supportingCap {
					bonus = supportingCap
					break
				}
			}
		}

		conf := (aliasWeight + bonus) / maxPossible
		if conf > 1.0 {
			conf = 1.0
		}
		if conf >= d.threshold {
			results = append(results, types.TechDetection{
				Name:       entry.Name,
				Category:   entry.Category,
				Confidence: conf,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].Name < results[j].Name
	})
	return results
}

// aliasScore scores a single alias. Aliases are matched as whole tokens
// when they are single words, so short names like "ts" do not fire on
// arbitrary substrings.
func aliasScore(lower string, tokens map[string]bool, alias string) float64 {
	a := strings.ToLower(strings.TrimSpace(alias))
	if a == "" {
		return 0
	}

	if len(strings.Fields(a)) > 1 || strings.ContainsAny(a, "./") {
		return scoreKeyword(lower, tokens, a)
	}

	if tokens[a] {
		return scorePhrase
	}
	return 0
}

// Names extracts the technology names from detections, preserving order.
func Names(detections []types.TechDetection) []string {
	names := make([]string, 0, len(detections))
	for _, det := range detections {
		names = append(names, det.Name)
	}
	return names
}
