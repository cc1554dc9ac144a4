package provider

import (
	"context"

	"golang.org/x/sync/errgroup"

	"dirigent/internal/config"
	"dirigent/internal/detect"
	"dirigent/internal/types"
)

// Confidence blend for rule-based results: the layer signal dominates,
// topics refine. Capped below 1.0 because keyword heuristics are never
// certain.
const (
	layerBlendWeight = 0.6
	topicBlendWeight = 0.4
	ruleBasedCap     = 0.95
)

// RuleBasedProvider wraps the deterministic detectors behind the
// ModelProvider interface so they can terminate a fallback chain.
type RuleBasedProvider struct {
	name   string
	layers *detect.LayerDetector
	topics *detect.TopicDetector
	techs  *detect.TechDetector
}

// NewRuleBasedProvider creates a rule-based provider with default
// registries.
func NewRuleBasedProvider(name string) *RuleBasedProvider {
	return NewRuleBasedProviderWithDetectors(name,
		detect.NewLayerDetector(nil),
		detect.NewTopicDetector(nil),
		detect.NewTechDetector(nil),
	)
}

// NewRuleBasedProviderWithDetectors creates a provider over caller-owned
// detectors, so custom keyword registries are shared.
func NewRuleBasedProviderWithDetectors(name string, layers *detect.LayerDetector, topics *detect.TopicDetector, techs *detect.TechDetector) *RuleBasedProvider {
	return &RuleBasedProvider{
		name:   name,
		layers: layers,
		topics: topics,
		techs:  techs,
	}
}

// Name implements ModelProvider.
func (p *RuleBasedProvider) Name() string { return p.name }

// Kind implements ModelProvider.
func (p *RuleBasedProvider) Kind() string { return config.KindRuleBased }

// IsAvailable always reports true; the detectors do no I/O.
func (p *RuleBasedProvider) IsAvailable(ctx context.Context) bool { return true }

// DetectContext implements ModelProvider.
func (p *RuleBasedProvider) DetectContext(ctx context.Context, text string) (*types.TaskContext, error) {
	taskCtx, _, _ := p.DetectWithSubResults(ctx, text)
	return taskCtx, nil
}

// DetectWithSubResults runs the three detectors concurrently and also
// returns the raw layer and topic sub-results for diagnostics. The
// detectors share no mutable state, so the fan-out needs no locking.
func (p *RuleBasedProvider) DetectWithSubResults(ctx context.Context, text string) (*types.TaskContext, *types.LayerDetection, []types.TopicDetection) {
	var (
		layerRes types.LayerDetection
		topicRes []types.TopicDetection
		techRes  []types.TechDetection
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		layerRes = p.layers.Detect(text)
		return nil
	})
	g.Go(func() error {
		topicRes = p.topics.Detect(text, 0)
		return nil
	})
	g.Go(func() error {
		techRes = p.techs.Detect(text)
		return nil
	})
	_ = g.Wait() // detectors never return errors

	topics := make([]string, 0, len(topicRes))
	topicConf := 0.0
	for i, det := range topicRes {
		topics = append(topics, det.Topic)
		if i == 0 {
			topicConf = det.Confidence
		}
	}

	combined := layerRes.Confidence*layerBlendWeight + topicConf*topicBlendWeight
	if combined > ruleBasedCap {
		combined = ruleBasedCap
	}

	taskCtx := &types.TaskContext{
		Layer:        layerRes.Layer,
		Topics:       topics,
		Keywords:     detect.Keywords(topicRes),
		Technologies: detect.Names(techRes),
		Confidence:   combined,
	}
	return taskCtx, &layerRes, topicRes
}
