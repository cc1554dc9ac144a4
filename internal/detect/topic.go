package detect

import (
	"sort"

	"dirigent/internal/types"
)

// DefaultTopicThreshold is used when the caller passes a non-positive
// threshold to Detect.
const DefaultTopicThreshold = 0.5

// TopicDetector finds every topic the text clears a confidence bar for.
type TopicDetector struct {
	registry *TopicRegistry
}

// NewTopicDetector creates a topic detector.
func NewTopicDetector(registry *TopicRegistry) *TopicDetector {
	if registry == nil {
		registry = NewTopicRegistry()
	}
	return &TopicDetector{registry: registry}
}

// Detect returns all topics with confidence >= threshold, sorted by
// confidence descending. The threshold is per call; non-positive values
// use DefaultTopicThreshold. Pure and deterministic.
func (d *TopicDetector) Detect(text string, threshold float64) []types.TopicDetection {
	if threshold <= 0 {
		threshold = DefaultTopicThreshold
	}

	lower, tokens := tokenize(text)
	topics, entries := d.registry.snapshot()

	var results []types.TopicDetection
	for _, topic := range topics {
		keywords := entries[topic]
		var raw float64
		var matched []string
		for _, kw := range keywords {
			s := scoreKeyword(lower, tokens, kw)
			if s > 0 {
				raw += s
				matched = append(matched, kw)
			}
		}

		conf := normalizeScore(raw, len(keywords))
		if conf >= threshold {
			results = append(results, types.TopicDetection{
				Topic:      topic,
				Confidence: conf,
				Keywords:   matched,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].Topic < results[j].Topic
	})
	return results
}

// Keywords returns the union of matched keywords across all detected
// topics, in first-seen order. Used by the detection engine to augment
// provider results.
func Keywords(detections []types.TopicDetection) []string {
	seen := make(map[string]bool)
	var out []string
	for _, det := range detections {
		for _, kw := range det.Keywords {
			if !seen[kw] {
				seen[kw] = true
				out = append(out, kw)
			}
		}
	}
	return out
}
