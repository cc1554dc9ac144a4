package config

import (
	"fmt"
	"math"
)

// weightSumTolerance is the allowed drift from 1.0 for the weight sum.
const weightSumTolerance = 0.01

// ScoringWeights are the six factor weights for directive scoring.
// Weights must be non-negative and sum to 1.0 within tolerance. A
// ScoringWeights value is immutable once validated; to change weights,
// construct and validate a replacement.
type ScoringWeights struct {
	Severity          float64 `json:"severity"`
	Relevance         float64 `json:"relevance"`
	LayerMatch        float64 `json:"layer_match"`
	TopicMatch        float64 `json:"topic_match"`
	TechMatch         float64 `json:"tech_match"`
	Authoritativeness float64 `json:"authoritativeness"`
}

// DefaultScoringWeights returns the standard weighting.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Severity:          0.30,
		Relevance:         0.25,
		LayerMatch:        0.20,
		TopicMatch:        0.15,
		TechMatch:         0.05,
		Authoritativeness: 0.05,
	}
}

// Sum returns the total of all six weights.
func (w ScoringWeights) Sum() float64 {
	return w.Severity + w.Relevance + w.LayerMatch + w.TopicMatch + w.TechMatch + w.Authoritativeness
}

// Validate checks non-negativity and the sum constraint.
func (w ScoringWeights) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"severity", w.Severity},
		{"relevance", w.Relevance},
		{"layer_match", w.LayerMatch},
		{"topic_match", w.TopicMatch},
		{"tech_match", w.TechMatch},
		{"authoritativeness", w.Authoritativeness},
	}
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("weight %s is negative: %v", f.name, f.value)
		}
	}

	if sum := w.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weights must sum to 1.0 (±%.2f), got %.4f", weightSumTolerance, sum)
	}
	return nil
}
