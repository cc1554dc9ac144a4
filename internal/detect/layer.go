package detect

import (
	"sort"

	"dirigent/internal/types"
)

// DefaultLayerThreshold is the confidence below which layer detection
// declines to commit and returns the wildcard.
const DefaultLayerThreshold = 0.5

// maxLayerAlternates caps how many runner-up layers a wildcard result carries.
const maxLayerAlternates = 3

// LayerDetector resolves free text to a single architectural layer.
type LayerDetector struct {
	registry  *LayerRegistry
	threshold float64
}

// NewLayerDetector creates a detector with the default threshold.
func NewLayerDetector(registry *LayerRegistry) *LayerDetector {
	return NewLayerDetectorWithThreshold(registry, DefaultLayerThreshold)
}

// NewLayerDetectorWithThreshold creates a detector with a custom threshold.
func NewLayerDetectorWithThreshold(registry *LayerRegistry, threshold float64) *LayerDetector {
	if registry == nil {
		registry = NewLayerRegistry()
	}
	return &LayerDetector{registry: registry, threshold: threshold}
}

type layerCandidate struct {
	layer      types.LayerTag
	raw        float64
	confidence float64
	indicators []string
}

// Detect scores every layer against the text and returns the single best
// match. If the best confidence is below the threshold, it returns the
// wildcard layer with confidence 0 and the top candidates as alternates.
// Pure and deterministic; safe for concurrent use.
func (d *LayerDetector) Detect(text string) types.LayerDetection {
	lower, tokens := tokenize(text)
	tags, entries := d.registry.snapshot()

	candidates := make([]layerCandidate, 0, len(tags))
	for _, tag := range tags {
		keywords := entries[tag]
		var raw float64
		var indicators []string
		for _, kw := range keywords {
			s := scoreKeyword(lower, tokens, kw)
			if s > 0 {
				raw += s
				indicators = append(indicators, kw)
			}
		}
		candidates = append(candidates, layerCandidate{
			layer:      tag,
			raw:        raw,
			confidence: normalizeScore(raw, len(keywords)),
			indicators: indicators,
		})
	}

	// Highest confidence first; equal confidences break on tag name so
	// repeated calls agree.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].confidence != candidates[j].confidence {
			return candidates[i].confidence > candidates[j].confidence
		}
		return candidates[i].layer < candidates[j].layer
	})

	best := candidates[0]
	if best.raw == 0 || best.confidence < d.threshold {
		return types.LayerDetection{
			Layer:      types.LayerWildcard,
			Confidence: 0,
			Alternates: topAlternates(candidates),
		}
	}

	return types.LayerDetection{
		Layer:      best.layer,
		Confidence: best.confidence,
		Indicators: best.indicators,
	}
}

func topAlternates(candidates []layerCandidate) []types.LayerAlt {
	var alts []types.LayerAlt
	for _, c := range candidates {
		if c.raw == 0 || len(alts) == maxLayerAlternates {
			break
		}
		alts = append(alts, types.LayerAlt{Layer: c.layer, Confidence: c.confidence})
	}
	return alts
}
