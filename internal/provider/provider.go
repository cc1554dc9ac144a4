// Package provider implements the model provider abstraction for context
// detection: an interface over remote-API, local-inference, and rule-based
// detectors, plus the Manager which owns the fallback chain and the
// provider health cache.
package provider

import (
	"context"

	"dirigent/internal/config"
	"dirigent/internal/types"
)

// ModelProvider is the capability every detection backend implements.
// The Manager depends only on this interface.
type ModelProvider interface {
	// Name identifies the provider in diagnostics and health snapshots.
	Name() string

	// Kind is one of the config.Kind* constants.
	Kind() string

	// IsAvailable performs a cheap, timeout-bounded availability probe.
	IsAvailable(ctx context.Context) bool

	// DetectContext extracts a TaskContext from free text. Failures are
	// returned as errors; the Manager treats them as fallback triggers,
	// never as fatal.
	DetectContext(ctx context.Context, text string) (*types.TaskContext, error)
}

// New constructs a provider from its spec. Unknown kinds are a
// construction-time error.
func New(spec config.ProviderSpec) (ModelProvider, error) {
	switch spec.Kind {
	case config.KindRemoteAPI:
		return NewRemoteAPIProvider(RemoteAPIConfig{
			Name:    spec.Name,
			BaseURL: spec.Endpoint,
			APIKey:  spec.ResolveAPIKey(),
			Model:   spec.Model,
		}), nil
	case config.KindGemini:
		return NewGeminiProvider(spec.Name, spec.ResolveAPIKey(), spec.Model)
	case config.KindLocalInference:
		return NewLocalInferenceProvider(spec.Name, spec.Endpoint, spec.Model), nil
	case config.KindRuleBased:
		return NewRuleBasedProvider(spec.Name), nil
	default:
		return nil, &UnknownKindError{Kind: spec.Kind}
	}
}

// UnknownKindError reports an unrecognized provider kind.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return "unknown provider kind: " + e.Kind
}
