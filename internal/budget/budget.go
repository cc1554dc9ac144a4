// Package budget packs ranked directives into a token allowance using
// a greedy skip-and-continue walk. Estimation is a character heuristic;
// nothing here tokenizes for a real model.
package budget

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"dirigent/internal/config"
	"dirigent/internal/logging"
	"dirigent/internal/types"
)

const (
	charsPerToken = 4
	minTokens     = 5
)

// Selection reports what made it into the budget and what it cost.
type Selection struct {
	Selected        []types.RankedDirective `json:"selected"`
	TokensUsed      int                     `json:"tokensUsed"`
	TokensRemaining int                     `json:"tokensRemaining"`
	TruncatedCount  int                     `json:"truncatedCount"`
	ExcludedCount   int                     `json:"excludedCount"`
}

// Manager applies token budgets. Safe for concurrent use; it holds no
// mutable state after construction.
type Manager struct {
	cfg    config.TokenBudgetConfig
	logger *zap.Logger
}

// NewManager validates the config and builds a budget manager.
func NewManager(cfg config.TokenBudgetConfig) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("token budget config: %w", err)
	}
	return &Manager{cfg: cfg, logger: logging.Get(logging.CategoryBudget)}, nil
}

// EstimateTokens approximates the token cost of a text as one token per
// four characters, rounded up, with a floor of five for any non-empty
// text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := (len(text) + charsPerToken - 1) / charsPerToken
	if n < minTokens {
		return minTokens
	}
	return n
}

// DirectiveTokens is the combined cost of every content field the
// directive would inject.
func DirectiveTokens(d types.Directive) int {
	return EstimateTokens(d.Text) +
		EstimateTokens(d.Rationale) +
		EstimateTokens(d.Example) +
		EstimateTokens(d.AntiPattern)
}

// Apply packs the ranked slice, which must already be sorted best
// first, into the budget. It never reorders; a directive that does not
// fit is skipped and the walk continues with the next one.
func (m *Manager) Apply(ranked []types.RankedDirective, budget int) (*Selection, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("token budget must be positive, got %d", budget)
	}

	sel := &Selection{Selected: []types.RankedDirective{}}

	available := budget - m.cfg.OverheadTokens
	if available <= 0 {
		sel.ExcludedCount = len(ranked)
		sel.TokensRemaining = 0
		m.logger.Warn("budget smaller than reserved overhead, selecting nothing",
			zap.Int("budget", budget),
			zap.Int("overhead", m.cfg.OverheadTokens))
		return sel, nil
	}

	remaining := available
	for i, rd := range ranked {
		if remaining < minTokens {
			// Nothing meaningful fits anymore.
			sel.ExcludedCount += len(ranked) - i
			break
		}

		cost := DirectiveTokens(rd.Directive)
		if cost <= remaining {
			sel.Selected = append(sel.Selected, rd)
			remaining -= cost
			continue
		}

		if truncated, ok := m.truncate(rd, remaining, available); ok {
			sel.Selected = append(sel.Selected, truncated)
			remaining -= DirectiveTokens(truncated.Directive)
			sel.TruncatedCount++
			continue
		}

		sel.ExcludedCount++
	}

	sel.TokensUsed = available - remaining
	sel.TokensRemaining = remaining
	return sel, nil
}

// truncate attempts to shrink a directive into the remaining budget.
// Only high-priority directives qualify, the target must stay above the
// minimum viable size, and no single directive may claim more than the
// configured share of the whole available budget.
func (m *Manager) truncate(rd types.RankedDirective, remaining, available int) (types.RankedDirective, bool) {
	if !m.cfg.TruncationEnabled {
		return rd, false
	}
	highPriority := rd.Directive.Severity == types.SeverityMust ||
		rd.Score >= m.cfg.TruncationScoreBar
	if !highPriority {
		return rd, false
	}

	target := remaining
	maxShare := int(float64(available) * m.cfg.MaxSingleDirectivePercentage)
	if target > maxShare {
		target = maxShare
	}
	if target < m.cfg.MinDirectiveTokens {
		return rd, false
	}

	d := rd.Directive

	// Optional blocks go first when the body alone already busts the
	// target, otherwise shortening the text would gut the rule while
	// keeping its garnish.
	if EstimateTokens(d.Text) > target {
		d.Example = ""
		d.AntiPattern = ""
		d.Rationale = ""
		d.Text = shortenText(d.Text, target)
		if DirectiveTokens(d) > target || EstimateTokens(d.Text) < minTokens {
			return rd, false
		}
		rd.Directive = d
		return rd, true
	}

	// Body fits; trim rationale, then drop the example blocks.
	if DirectiveTokens(d) > target {
		allowance := target - EstimateTokens(d.Text) - EstimateTokens(d.Example) - EstimateTokens(d.AntiPattern)
		if allowance >= minTokens {
			d.Rationale = shortenText(d.Rationale, allowance)
		} else {
			d.Rationale = ""
		}
	}
	if DirectiveTokens(d) > target {
		d.Example = ""
		d.AntiPattern = ""
	}
	if DirectiveTokens(d) > target {
		d.Rationale = ""
	}
	if DirectiveTokens(d) > target {
		return rd, false
	}
	rd.Directive = d
	return rd, true
}

// shortenText cuts text to roughly maxTokens worth of characters at a
// word boundary.
func shortenText(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	maxChars := maxTokens * charsPerToken
	if len(text) <= maxChars {
		return text
	}
	cut := text[:maxChars]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " \t\n")
}
