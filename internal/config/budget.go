package config

import "fmt"

// TokenBudgetConfig tunes the token budget manager.
//
// The truncation thresholds are tunable defaults, not load-bearing
// constants; they bound which directives are worth shortening instead of
// dropping outright.
type TokenBudgetConfig struct {
	// OverheadTokens is reserved off the top of every budget for
	// formatting added by the downstream renderer.
	OverheadTokens int `json:"overhead_tokens"`

	// MinDirectiveTokens is the smallest remaining budget for which
	// truncation is still attempted.
	MinDirectiveTokens int `json:"min_directive_tokens"`

	// MaxSingleDirectivePercentage caps how much of the available budget
	// a single truncated directive may claim (0-1].
	MaxSingleDirectivePercentage float64 `json:"max_single_directive_percentage"`

	// TruncationEnabled toggles truncation entirely. When false,
	// directives either fit whole or are excluded.
	TruncationEnabled bool `json:"truncation_enabled"`

	// TruncationScoreBar is the normalized score at or above which a
	// non-MUST directive qualifies for truncation.
	TruncationScoreBar float64 `json:"truncation_score_bar"`
}

// DefaultTokenBudgetConfig returns sensible defaults.
func DefaultTokenBudgetConfig() TokenBudgetConfig {
	return TokenBudgetConfig{
		OverheadTokens:               20,
		MinDirectiveTokens:           15,
		MaxSingleDirectivePercentage: 0.40,
		TruncationEnabled:            true,
		TruncationScoreBar:           0.5,
	}
}

// Validate checks the budget tuning values.
func (c TokenBudgetConfig) Validate() error {
	if c.OverheadTokens < 0 {
		return fmt.Errorf("overhead_tokens must be >= 0, got %d", c.OverheadTokens)
	}
	if c.MinDirectiveTokens < 1 {
		return fmt.Errorf("min_directive_tokens must be >= 1, got %d", c.MinDirectiveTokens)
	}
	if c.MaxSingleDirectivePercentage <= 0 || c.MaxSingleDirectivePercentage > 1 {
		return fmt.Errorf("max_single_directive_percentage must be in (0,1], got %v", c.MaxSingleDirectivePercentage)
	}
	if c.TruncationScoreBar < 0 || c.TruncationScoreBar > 1 {
		return fmt.Errorf("truncation_score_bar must be in [0,1], got %v", c.TruncationScoreBar)
	}
	return nil
}

// PerformanceConfig tunes the ranking pipeline.
type PerformanceConfig struct {
	// MaxCandidates is the ceiling above which severity pre-filtering
	// kicks in before scoring.
	MaxCandidates int `json:"max_candidates"`

	// BatchSize is the candidate count above which scoring runs in
	// parallel batches. Results are identical either way.
	BatchSize int `json:"batch_size"`

	// ScoreThreshold drops directives scoring below it after scoring.
	ScoreThreshold float64 `json:"score_threshold"`
}

// DefaultPerformanceConfig returns sensible defaults.
func DefaultPerformanceConfig() PerformanceConfig {
	return PerformanceConfig{
		MaxCandidates:  1000,
		BatchSize:      100,
		ScoreThreshold: 0.1,
	}
}

// Validate checks the performance tuning values.
func (c PerformanceConfig) Validate() error {
	if c.MaxCandidates < 1 {
		return fmt.Errorf("max_candidates must be >= 1, got %d", c.MaxCandidates)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be >= 1, got %d", c.BatchSize)
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return fmt.Errorf("score_threshold must be in [0,1], got %v", c.ScoreThreshold)
	}
	return nil
}
