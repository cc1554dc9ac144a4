package ranking

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirigent/internal/config"
	"dirigent/internal/types"
)

func newTestRanker(t *testing.T, perf config.PerformanceConfig) *Ranker {
	t.Helper()
	r, err := NewRanker(config.DefaultScoringWeights(), perf, config.DefaultTokenBudgetConfig())
	require.NoError(t, err)
	return r
}

func domainContext() *types.TaskContext {
	return &types.TaskContext{
		Layer:        types.LayerDomain,
		Topics:       []string{"validation"},
		Keywords:     []string{"invariant"},
		Technologies: []string{"go"},
		Confidence:   0.8,
	}
}

func TestNewRanker_RejectsBadWeights(t *testing.T) {
	for _, sum := range []float64{0.8, 1.2} {
		w := config.ScoringWeights{
			Severity:          sum - 0.25 - 0.20 - 0.15 - 0.05 - 0.05,
			Relevance:         0.25,
			LayerMatch:        0.20,
			TopicMatch:        0.15,
			TechMatch:         0.05,
			Authoritativeness: 0.05,
		}
		_, err := NewRanker(w, config.DefaultPerformanceConfig(), config.DefaultTokenBudgetConfig())
		assert.Error(t, err, "weight sum %v should be rejected", sum)
	}
}

func TestRank_EmptyCandidates(t *testing.T) {
	r := newTestRanker(t, config.DefaultPerformanceConfig())

	res, err := r.Rank(context.Background(), nil, domainContext(), Options{})
	require.NoError(t, err)
	require.NotNil(t, res.Directives)
	assert.Empty(t, res.Directives)
}

func TestRank_NilContext(t *testing.T) {
	r := newTestRanker(t, config.DefaultPerformanceConfig())

	_, err := r.Rank(context.Background(), []types.Directive{{ID: "a", Text: "x", Severity: types.SeverityMust}}, nil, Options{})
	require.ErrorIs(t, err, ErrNilContext)
}

func TestRank_MatchingLayerOutscoresMismatch(t *testing.T) {
	r := newTestRanker(t, config.DefaultPerformanceConfig())
	d := types.Directive{
		ID:       "dom-1",
		Text:     "Enforce every invariant inside the aggregate root",
		Severity: types.SeverityMust,
		Layers:   []types.LayerTag{types.LayerDomain},
	}

	match, err := r.Rank(context.Background(), []types.Directive{d},
		&types.TaskContext{Layer: types.LayerDomain}, Options{})
	require.NoError(t, err)
	require.Len(t, match.Directives, 1)

	mismatch, err := r.Rank(context.Background(), []types.Directive{d},
		&types.TaskContext{Layer: types.LayerPresentation}, Options{})
	require.NoError(t, err)
	require.Len(t, mismatch.Directives, 1)

	assert.Greater(t, match.Directives[0].Score, mismatch.Directives[0].Score)
	assert.Equal(t, 100.0, match.Directives[0].Breakdown.LayerMatch)
}

func TestRank_ThresholdDropsNoise(t *testing.T) {
	r := newTestRanker(t, config.DefaultPerformanceConfig())
	in := []types.Directive{
		{
			ID:       "relevant",
			Text:     "Validate every invariant before persisting",
			Severity: types.SeverityMust,
			Layers:   []types.LayerTag{types.LayerDomain},
			Topics:   []string{"validation"},
		},
		{
			// MAY, wrong layer, no shared topics or keywords.
			ID:       "noise",
			Text:     "Prefer tabs in generated reports",
			Severity: types.SeverityMay,
			Layers:   []types.LayerTag{types.LayerPresentation},
		},
	}

	res, err := r.Rank(context.Background(), in, &types.TaskContext{
		Layer:    types.LayerInfrastructure,
		Keywords: []string{"invariant"},
	}, Options{})
	require.NoError(t, err)

	ids := directiveIDs(res.Directives)
	assert.Contains(t, ids, "relevant")
	assert.NotContains(t, ids, "noise")
}

func TestRank_SortOrderAndTieBreaks(t *testing.T) {
	r := newTestRanker(t, config.DefaultPerformanceConfig())
	// Identical content, so identical scores; severity then ID decide.
	text := "Keep domain services free of transport concerns"
	in := []types.Directive{
		{ID: "b", Text: text, Severity: types.SeverityShould, Layers: []types.LayerTag{types.LayerDomain}},
		{ID: "c", Text: text, Severity: types.SeverityMust, Layers: []types.LayerTag{types.LayerDomain}},
		{ID: "a", Text: text, Severity: types.SeverityShould, Layers: []types.LayerTag{types.LayerDomain}},
	}

	res, err := r.Rank(context.Background(), in, &types.TaskContext{Layer: types.LayerDomain}, Options{})
	require.NoError(t, err)
	require.Len(t, res.Directives, 3)

	assert.Equal(t, []string{"c", "a", "b"}, directiveIDs(res.Directives))
	for i := 1; i < len(res.Directives); i++ {
		assert.GreaterOrEqual(t, res.Directives[i-1].Score, res.Directives[i].Score)
	}
}

func TestRank_MaxItems(t *testing.T) {
	r := newTestRanker(t, config.DefaultPerformanceConfig())
	in := syntheticDirectives(10, types.SeverityMust)

	res, err := r.Rank(context.Background(), in, domainContext(), Options{MaxItems: 3})
	require.NoError(t, err)
	assert.Len(t, res.Directives, 3)
}

func TestRank_ParallelMatchesSequential(t *testing.T) {
	in := syntheticDirectives(50, types.SeverityShould)
	taskCtx := domainContext()

	seqPerf := config.DefaultPerformanceConfig()
	parPerf := config.DefaultPerformanceConfig()
	parPerf.BatchSize = 7

	seq, err := newTestRanker(t, seqPerf).Rank(context.Background(), in, taskCtx, Options{})
	require.NoError(t, err)
	par, err := newTestRanker(t, parPerf).Rank(context.Background(), in, taskCtx, Options{})
	require.NoError(t, err)

	assert.Equal(t, seq.Directives, par.Directives)
}

func TestRank_SeverityPreFilterKeepsEveryMust(t *testing.T) {
	perf := config.DefaultPerformanceConfig()
	perf.MaxCandidates = 10
	r := newTestRanker(t, perf)

	var in []types.Directive
	in = append(in, syntheticDirectives(8, types.SeverityMay)...)
	for i := 0; i < 8; i++ {
		in = append(in, types.Directive{
			ID:       fmt.Sprintf("must-%02d", i),
			Text:     "Validate every invariant before persisting changes",
			Severity: types.SeverityMust,
			Layers:   []types.LayerTag{types.LayerDomain},
		})
	}
	in = append(in, syntheticDirectives(8, types.SeverityShould)...)

	res, err := r.Rank(context.Background(), in, domainContext(), Options{MinScore: -1})
	require.NoError(t, err)

	musts := 0
	for _, rd := range res.Directives {
		if rd.Directive.Severity == types.SeverityMust {
			musts++
		}
	}
	assert.Equal(t, 8, musts, "pre-filter must never drop a MUST directive")
	assert.LessOrEqual(t, len(res.Directives), perf.MaxCandidates)
}

func TestRank_DebugModeBoostsErrorHandling(t *testing.T) {
	r := newTestRanker(t, config.DefaultPerformanceConfig())
	d := types.Directive{
		ID:       "wrap",
		Text:     "Wrap errors with operation context before returning",
		Severity: types.SeverityShould,
		Layers:   []types.LayerTag{types.LayerDomain},
		Topics:   []string{"error-handling"},
	}
	taskCtx := &types.TaskContext{Layer: types.LayerDomain}

	plain, err := r.Rank(context.Background(), []types.Directive{d}, taskCtx, Options{})
	require.NoError(t, err)
	debug, err := r.Rank(context.Background(), []types.Directive{d}, taskCtx, Options{Mode: ModeDebug})
	require.NoError(t, err)

	require.Len(t, plain.Directives, 1)
	require.Len(t, debug.Directives, 1)
	assert.Greater(t, debug.Directives[0].Score, plain.Directives[0].Score)
	assert.LessOrEqual(t, debug.Directives[0].Score, 1.0)
}

func TestRank_TokenBudgetApplied(t *testing.T) {
	r := newTestRanker(t, config.DefaultPerformanceConfig())
	in := syntheticDirectives(20, types.SeverityMust)

	res, err := r.Rank(context.Background(), in, domainContext(), Options{TokenBudget: 200})
	require.NoError(t, err)
	require.NotNil(t, res.Budget)
	assert.Equal(t, res.Budget.Selected, res.Directives)
	assert.Less(t, len(res.Directives), 20)
	assert.LessOrEqual(t, res.Budget.TokensUsed, 200)
}

func TestParseMode(t *testing.T) {
	for _, c := range []struct {
		in   string
		want Mode
	}{
		{"", ModeNone},
		{"Architect", ModeArchitect},
		{"code", ModeCode},
		{" debug ", ModeDebug},
	} {
		got, err := ParseMode(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}

	_, err := ParseMode("refactor")
	assert.Error(t, err)
}

func directiveIDs(rds []types.RankedDirective) []string {
	ids := make([]string, len(rds))
	for i, rd := range rds {
		ids[i] = rd.Directive.ID
	}
	return ids
}

func syntheticDirectives(n int, sev types.Severity) []types.Directive {
	out := make([]types.Directive, n)
	for i := range out {
		out[i] = types.Directive{
			ID:       fmt.Sprintf("%s-%03d", sev, i),
			Text:     fmt.Sprintf("Validate the invariant for record %03d before any write is committed to storage", i),
			Severity: sev,
			Layers:   []types.LayerTag{types.LayerDomain},
			Topics:   []string{"validation"},
		}
	}
	return out
}
