package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dirigent/internal/budget"
	"dirigent/internal/config"
	"dirigent/internal/logging"
	"dirigent/internal/types"
)

// ErrNilContext is returned when rank is called without a task context.
var ErrNilContext = errors.New("ranking: task context is required")

// Options tunes a single Rank call.
type Options struct {
	// Mode biases scores toward a kind of work. Empty means neutral.
	Mode Mode

	// MaxItems caps the returned list after sorting. Zero means no cap.
	MaxItems int

	// TokenBudget, when positive, packs the sorted list into a token
	// allowance as the final step.
	TokenBudget int

	// MinScore overrides the configured score threshold. Zero keeps the
	// configured default; a negative value disables filtering.
	MinScore float64
}

// Result carries the ranked directives plus the budget report when a
// token budget was applied.
type Result struct {
	Directives []types.RankedDirective
	Budget     *budget.Selection
}

// Ranker runs the full pipeline: pre-filter, score, threshold, sort,
// cap, budget. A Ranker is safe for concurrent use.
type Ranker struct {
	scorer   *ScoringEngine
	budgeter *budget.Manager
	perf     config.PerformanceConfig
	logger   *zap.Logger
}

// NewRanker builds a ranker from configuration. Weight and performance
// validation happens here so Rank itself cannot fail on config.
func NewRanker(weights config.ScoringWeights, perf config.PerformanceConfig, budgetCfg config.TokenBudgetConfig) (*Ranker, error) {
	scorer, err := NewScoringEngine(weights)
	if err != nil {
		return nil, fmt.Errorf("scoring weights: %w", err)
	}
	if err := perf.Validate(); err != nil {
		return nil, fmt.Errorf("performance config: %w", err)
	}
	budgeter, err := budget.NewManager(budgetCfg)
	if err != nil {
		return nil, err
	}
	return &Ranker{
		scorer:   scorer,
		budgeter: budgeter,
		perf:     perf,
		logger:   logging.Get(logging.CategoryRanking),
	}, nil
}

// Rank scores candidates against the task context and returns them best
// first. An empty candidate list is not an error; a nil context is.
func (r *Ranker) Rank(ctx context.Context, candidates []types.Directive, taskCtx *types.TaskContext, opts Options) (*Result, error) {
	if taskCtx == nil {
		return nil, ErrNilContext
	}
	if len(candidates) == 0 {
		return &Result{Directives: []types.RankedDirective{}}, nil
	}

	if len(candidates) > r.perf.MaxCandidates {
		before := len(candidates)
		candidates = r.preFilter(candidates)
		r.logger.Debug("severity pre-filter applied",
			zap.Int("before", before),
			zap.Int("after", len(candidates)))
	}

	scored, err := r.scoreAll(ctx, candidates, taskCtx, opts.Mode)
	if err != nil {
		return nil, err
	}

	threshold := r.perf.ScoreThreshold
	if opts.MinScore != 0 {
		threshold = opts.MinScore
	}
	if threshold > 0 {
		kept := scored[:0]
		for _, rd := range scored {
			if rd.Score >= threshold {
				kept = append(kept, rd)
			}
		}
		scored = kept
	}

	sortRanked(scored)
	mustBeSorted(scored)

	if opts.MaxItems > 0 && len(scored) > opts.MaxItems {
		scored = scored[:opts.MaxItems]
	}

	result := &Result{Directives: scored}
	if opts.TokenBudget > 0 {
		sel, err := r.budgeter.Apply(scored, opts.TokenBudget)
		if err != nil {
			return nil, err
		}
		result.Directives = sel.Selected
		result.Budget = sel
	}
	return result, nil
}

// preFilter trims an oversized candidate set by severity. Every MUST
// survives unconditionally, even past the cap; SHOULD and MAY fill the
// remainder in input order.
func (r *Ranker) preFilter(candidates []types.Directive) []types.Directive {
	kept := make([]types.Directive, 0, r.perf.MaxCandidates)
	for _, d := range candidates {
		if d.Severity == types.SeverityMust {
			kept = append(kept, d)
		}
	}
	for _, sev := range []types.Severity{types.SeverityShould, types.SeverityMay} {
		for _, d := range candidates {
			if len(kept) >= r.perf.MaxCandidates {
				return kept
			}
			if d.Severity == sev {
				kept = append(kept, d)
			}
		}
	}
	return kept
}

// scoreAll scores every candidate. Large sets are split into batches
// scored concurrently; each batch writes into its own slice region, so
// the output is identical to the sequential path.
func (r *Ranker) scoreAll(ctx context.Context, candidates []types.Directive, taskCtx *types.TaskContext, mode Mode) ([]types.RankedDirective, error) {
	out := make([]types.RankedDirective, len(candidates))

	if len(candidates) <= r.perf.BatchSize {
		for i, d := range candidates {
			out[i] = r.scorer.Score(d, taskCtx, mode)
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(candidates); start += r.perf.BatchSize {
		end := start + r.perf.BatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				out[i] = r.scorer.Score(candidates[i], taskCtx, mode)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// sortRanked orders by score descending, then severity descending, then
// ID ascending. The full tie-break makes the order total, so plain
// sort.Slice is already deterministic.
func sortRanked(rds []types.RankedDirective) {
	sort.Slice(rds, func(i, j int) bool {
		if rds[i].Score != rds[j].Score {
			return rds[i].Score > rds[j].Score
		}
		ri, rj := rds[i].Directive.Severity.Rank(), rds[j].Directive.Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return rds[i].Directive.ID < rds[j].Directive.ID
	})
}

// mustBeSorted panics when the pipeline is about to hand out an
// unsorted list or a negative score. That state means a bug in this
// package, not bad input.
func mustBeSorted(rds []types.RankedDirective) {
	for i := range rds {
		if rds[i].Score < 0 {
			panic(fmt.Sprintf("ranking: negative score %f for %s", rds[i].Score, rds[i].Directive.ID))
		}
		if i > 0 && rds[i].Score > rds[i-1].Score {
			panic(fmt.Sprintf("ranking: output not sorted at index %d (%f > %f)", i, rds[i].Score, rds[i-1].Score))
		}
	}
}
