// Package types provides shared type definitions used across dirigent packages.
// This package exists to break import cycles between detect, provider, engine,
// ranking, and budget. Types in this package should be foundational data
// structures with no complex dependencies.
package types

import (
	"strings"
	"time"
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity is the strength of a directive.
type Severity string

const (
	SeverityMust   Severity = "MUST"
	SeverityShould Severity = "SHOULD"
	SeverityMay    Severity = "MAY"
)

// ParseSeverity normalizes a severity string. Unknown values map to MAY,
// the weakest interpretation.
func ParseSeverity(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MUST":
		return SeverityMust
	case "SHOULD":
		return SeverityShould
	default:
		return SeverityMay
	}
}

// Rank returns an ordering value for sorting: MUST > SHOULD > MAY.
func (s Severity) Rank() int {
	switch s {
	case SeverityMust:
		return 3
	case SeverityShould:
		return 2
	default:
		return 1
	}
}

// =============================================================================
// LAYERS
// =============================================================================

// LayerTag identifies an architectural tier a directive applies to.
type LayerTag string

const (
	// LayerWildcard means "no confident match" or "applies everywhere".
	LayerWildcard LayerTag = "*"

	LayerPresentation   LayerTag = "1-Presentation"
	LayerApplication    LayerTag = "2-Application"
	LayerDomain         LayerTag = "3-Domain"
	LayerInfrastructure LayerTag = "4-Infrastructure"
	LayerData           LayerTag = "5-Data"
	LayerTesting        LayerTag = "6-Testing"
	LayerCrossCutting   LayerTag = "7-CrossCutting"
)

// OrderedLayers is the fixed layer ordering used for adjacency scoring.
// The wildcard is not part of the ordering.
var OrderedLayers = []LayerTag{
	LayerPresentation,
	LayerApplication,
	LayerDomain,
	LayerInfrastructure,
	LayerData,
	LayerTesting,
	LayerCrossCutting,
}

// LayerDistance returns the absolute distance between two layers in
// OrderedLayers, or -1 if either layer is unknown or the wildcard.
func LayerDistance(a, b LayerTag) int {
	ai, bi := -1, -1
	for i, l := range OrderedLayers {
		if l == a {
			ai = i
		}
		if l == b {
			bi = i
		}
	}
	if ai < 0 || bi < 0 {
		return -1
	}
	if ai > bi {
		return ai - bi
	}
	return bi - ai
}

// =============================================================================
// DIRECTIVE
// =============================================================================

// Directive is a single coding rule with severity and tagging metadata.
// Directives are owned by the knowledge store; the core reads but never
// mutates them. Budgeting works on copies.
type Directive struct {
	ID           string   `json:"id" yaml:"id"`
	Text         string   `json:"text" yaml:"text"`
	Severity     Severity `json:"severity" yaml:"severity"`
	Topics       []string `json:"topics,omitempty" yaml:"topics,omitempty"`
	Layers       []LayerTag `json:"layers,omitempty" yaml:"layers,omitempty"`
	Technologies []string `json:"technologies,omitempty" yaml:"technologies,omitempty"`
	Section      string   `json:"section,omitempty" yaml:"section,omitempty"`
	SourcePath   string   `json:"source_path,omitempty" yaml:"source_path,omitempty"`

	// Optional enrichment blocks. Truncation drops these before touching text.
	Rationale   string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Example     string `json:"example,omitempty" yaml:"example,omitempty"`
	AntiPattern string `json:"anti_pattern,omitempty" yaml:"anti_pattern,omitempty"`

	// Authoritative marks a directive as canonical for its section.
	Authoritative bool `json:"authoritative,omitempty" yaml:"authoritative,omitempty"`
}

// HasLayer reports whether the directive is tagged with the given layer
// (or the wildcard).
func (d *Directive) HasLayer(layer LayerTag) bool {
	for _, l := range d.Layers {
		if l == layer || l == LayerWildcard {
			return true
		}
	}
	return false
}

// =============================================================================
// TASK CONTEXT
// =============================================================================

// TaskContext is the structured signal extracted from a free-text task
// description. Produced fresh per detection call; immutable once returned.
type TaskContext struct {
	Layer        LayerTag `json:"layer"`
	Topics       []string `json:"topics"`
	Keywords     []string `json:"keywords"`
	Technologies []string `json:"technologies"`

	// Confidence is in [0,1].
	Confidence float64 `json:"confidence"`
}

// DetectionDiagnostics annotates a detection result for observability.
// Diagnostics never change the decision.
type DetectionDiagnostics struct {
	RequestID     string        `json:"request_id"`
	Elapsed       time.Duration `json:"elapsed"`
	ModelProvider string        `json:"model_provider,omitempty"`
	FallbackUsed  bool          `json:"fallback_used"`

	// Raw sub-results from the rule-based detectors, when they ran.
	LayerResult *LayerDetection  `json:"layer_result,omitempty"`
	TopicResult []TopicDetection `json:"topic_result,omitempty"`
}

// DetectionResult bundles the context with its diagnostics.
type DetectionResult struct {
	Context     TaskContext          `json:"context"`
	Diagnostics DetectionDiagnostics `json:"diagnostics"`
}

// =============================================================================
// DETECTOR SUB-RESULTS
// =============================================================================

// LayerDetection is the layer detector's raw output.
type LayerDetection struct {
	Layer      LayerTag   `json:"layer"`
	Confidence float64    `json:"confidence"`
	Indicators []string   `json:"indicators,omitempty"`
	Alternates []LayerAlt `json:"alternates,omitempty"`
}

// LayerAlt is a lower-ranked layer candidate.
type LayerAlt struct {
	Layer      LayerTag `json:"layer"`
	Confidence float64  `json:"confidence"`
}

// TopicDetection is a single topic the topic detector cleared.
type TopicDetection struct {
	Topic      string   `json:"topic"`
	Confidence float64  `json:"confidence"`
	Keywords   []string `json:"keywords,omitempty"`
}

// TechCategory buckets detected technologies.
type TechCategory string

const (
	TechFrontend  TechCategory = "frontend"
	TechBackend   TechCategory = "backend"
	TechDatabase  TechCategory = "database"
	TechORM       TechCategory = "orm"
	TechLanguage  TechCategory = "language"
	TechCloud     TechCategory = "cloud"
	TechContainer TechCategory = "container"
	TechTesting   TechCategory = "testing"
	TechAPI       TechCategory = "api"
)

// TechDetection is a single technology the tech detector cleared.
type TechDetection struct {
	Name       string       `json:"name"`
	Category   TechCategory `json:"category"`
	Confidence float64      `json:"confidence"`
}

// =============================================================================
// SCORING RESULTS
// =============================================================================

// ScoreBreakdown holds the unweighted sub-scores, each in [0,100].
type ScoreBreakdown struct {
	Severity          float64 `json:"severity"`
	Relevance         float64 `json:"relevance"`
	LayerMatch        float64 `json:"layer_match"`
	TopicMatch        float64 `json:"topic_match"`
	TechMatch         float64 `json:"tech_match"`
	Authoritativeness float64 `json:"authoritativeness"`
}

// RankedDirective is a directive with its final normalized score.
// Created per ranking call; never persisted.
type RankedDirective struct {
	Directive Directive      `json:"directive"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// =============================================================================
// PROVIDER HEALTH
// =============================================================================

// HealthStatus is a provider's availability state.
type HealthStatus string

const (
	StatusHealthy     HealthStatus = "healthy"
	StatusUnavailable HealthStatus = "unavailable"
)

// ProviderHealth is one provider's health snapshot. Entries are replaced
// whole, never partially written.
type ProviderHealth struct {
	Status      HealthStatus  `json:"status"`
	Latency     time.Duration `json:"latency"`
	LastChecked time.Time     `json:"last_checked"`
	Details     string        `json:"details,omitempty"`
}

// Healthy reports whether the snapshot is in the healthy state.
func (h ProviderHealth) Healthy() bool {
	return h.Status == StatusHealthy
}
