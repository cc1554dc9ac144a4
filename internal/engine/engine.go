// Package engine composes the provider manager and the rule-based
// detectors into three-tier context detection.
//
// Tier 1 asks the model-backed provider chain. Tier 2 runs the
// deterministic detectors when no provider answers. Tier 3 is the
// ultimate fallback: a wildcard context with nominal confidence, reached
// only if tier 2 itself panics. Detection never returns an error to the
// caller; failures demote to the next tier.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dirigent/internal/logging"
	"dirigent/internal/provider"
	"dirigent/internal/types"
)

// tier3Confidence is the fixed confidence of the ultimate fallback.
const tier3Confidence = 0.1

// Options tune one detection call.
type Options struct {
	// IncludeKeywords merges rule-based topic keywords into the result.
	IncludeKeywords bool
}

// Engine performs three-tier context detection.
type Engine struct {
	manager *provider.Manager
	rules   *provider.RuleBasedProvider
	logger  *zap.Logger
}

// New creates an engine. The manager may be nil, in which case every
// call resolves through the rule-based tier. A nil rules provider gets a
// default one; tier 2 must always exist.
func New(manager *provider.Manager, rules *provider.RuleBasedProvider) *Engine {
	if rules == nil {
		rules = provider.NewRuleBasedProvider("rule-based")
	}
	return &Engine{
		manager: manager,
		rules:   rules,
		logger:  logging.Get(logging.CategoryEngine),
	}
}

// Detect resolves a TaskContext for the text. It never fails: the worst
// case is the tier-3 wildcard result. Diagnostics annotate which path
// answered but never change the decision.
func (e *Engine) Detect(ctx context.Context, text string, opts Options) types.DetectionResult {
	start := time.Now()
	diag := types.DetectionDiagnostics{
		RequestID: uuid.NewString(),
	}

	// Tier 1: model-backed chain.
	if e.manager != nil {
		if det, err := e.manager.DetectWithFallback(ctx, text); err == nil {
			taskCtx := *det.Context
			if opts.IncludeKeywords {
				taskCtx.Keywords = mergeKeywords(taskCtx.Keywords, e.ruleKeywords(ctx, text))
			}
			diag.ModelProvider = det.Provider
			diag.FallbackUsed = det.FallbackUsed
			diag.Elapsed = time.Since(start)
			return types.DetectionResult{Context: taskCtx, Diagnostics: diag}
		} else {
			e.logger.Debug("provider chain exhausted, using rule-based tier", zap.Error(err))
		}
	}

	// Tier 2: rule-based detectors, shielded by tier 3.
	result := e.detectRuleBased(ctx, text, opts, diag, start)
	return result
}

// detectRuleBased runs tier 2 and guards it with the tier-3 recover.
func (e *Engine) detectRuleBased(ctx context.Context, text string, opts Options, diag types.DetectionDiagnostics, start time.Time) (result types.DetectionResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("rule-based detection panicked", zap.Any("panic", r))
			diag.FallbackUsed = true
			diag.Elapsed = time.Since(start)
			result = types.DetectionResult{
				Context: types.TaskContext{
					Layer:        types.LayerWildcard,
					Topics:       []string{},
					Keywords:     []string{},
					Technologies: []string{},
					Confidence:   tier3Confidence,
				},
				Diagnostics: diag,
			}
		}
	}()

	taskCtx, layerRes, topicRes := e.rules.DetectWithSubResults(ctx, text)
	out := *taskCtx
	if !opts.IncludeKeywords {
		out.Keywords = nil
	}

	diag.FallbackUsed = true
	diag.LayerResult = layerRes
	diag.TopicResult = topicRes
	diag.Elapsed = time.Since(start)
	return types.DetectionResult{Context: out, Diagnostics: diag}
}

// ruleKeywords collects topic keywords for tier-1 augmentation.
func (e *Engine) ruleKeywords(ctx context.Context, text string) []string {
	taskCtx, _, _ := e.rules.DetectWithSubResults(ctx, text)
	return taskCtx.Keywords
}

// mergeKeywords unions two keyword lists, preserving first-seen order.
func mergeKeywords(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, kw := range list {
			if kw != "" && !seen[kw] {
				seen[kw] = true
				out = append(out, kw)
			}
		}
	}
	return out
}
