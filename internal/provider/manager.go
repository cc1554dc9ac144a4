package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"dirigent/internal/config"
	"dirigent/internal/logging"
	"dirigent/internal/types"
)

// ErrNoProviderAvailable is returned when the chain is empty or every
// configured provider is down.
var ErrNoProviderAvailable = errors.New("no provider available")

// Manager owns the provider chain and the health cache. It does no work
// at construction time; health monitoring runs only between Start and
// Stop, so tests can construct a Manager and drive probes manually.
type Manager struct {
	mu        sync.RWMutex
	primary   ModelProvider
	fallbacks []ModelProvider

	healthMu sync.RWMutex
	health   map[string]types.ProviderHealth

	timeout       time.Duration
	checkInterval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
	logger *zap.Logger
}

// Detection is a successful detection plus provenance.
type Detection struct {
	Context      *types.TaskContext
	Provider     string
	FallbackUsed bool
}

// NewManager creates a manager from configuration, constructing every
// declared provider. Unknown kinds fail construction.
func NewManager(cfg config.ProviderConfig) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	built := make(map[string]ModelProvider, len(cfg.Specs))
	for _, spec := range cfg.Specs {
		p, err := New(spec)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", spec.Name, err)
		}
		built[spec.Name] = p
	}

	m := &Manager{
		health:        make(map[string]types.ProviderHealth),
		timeout:       cfg.Timeout(),
		checkInterval: cfg.HealthCheckInterval(),
		logger:        logging.Get(logging.CategoryProvider),
	}
	if cfg.Primary != "" {
		m.primary = built[cfg.Primary]
	}
	for _, name := range cfg.Fallbacks {
		m.fallbacks = append(m.fallbacks, built[name])
	}
	return m, nil
}

// NewManagerWithProviders wires a manager directly from provider values.
// Used by tests and by callers that build providers themselves.
func NewManagerWithProviders(primary ModelProvider, fallbacks []ModelProvider, timeout, checkInterval time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if checkInterval <= 0 {
		checkInterval = time.Minute
	}
	return &Manager{
		primary:       primary,
		fallbacks:     append([]ModelProvider(nil), fallbacks...),
		health:        make(map[string]types.ProviderHealth),
		timeout:       timeout,
		checkInterval: checkInterval,
		logger:        logging.Get(logging.CategoryProvider),
	}
}

// =============================================================================
// PROVIDER LIST (copy-on-write)
// =============================================================================

// SetPrimary swaps the primary provider. Safe while requests are in flight.
func (m *Manager) SetPrimary(p ModelProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primary = p
}

// AddFallback appends a fallback provider.
func (m *Manager) AddFallback(p ModelProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks = append(append([]ModelProvider(nil), m.fallbacks...), p)
}

// RemoveProvider removes a provider by name from both slots.
func (m *Manager) RemoveProvider(name string) {
	m.mu.Lock()
	if m.primary != nil && m.primary.Name() == name {
		m.primary = nil
	}
	kept := make([]ModelProvider, 0, len(m.fallbacks))
	for _, p := range m.fallbacks {
		if p.Name() != name {
			kept = append(kept, p)
		}
	}
	m.fallbacks = kept
	m.mu.Unlock()

	m.healthMu.Lock()
	delete(m.health, name)
	m.healthMu.Unlock()
}

// snapshot returns the current chain without holding the lock across I/O.
func (m *Manager) snapshot() (ModelProvider, []ModelProvider) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.primary, m.fallbacks
}

// =============================================================================
// AVAILABILITY
// =============================================================================

// PrimaryProvider returns the primary if it currently reports available.
// An unavailable or unconfigured primary returns ErrNoProviderAvailable;
// callers fall through to the fallback chain, this is not fatal.
func (m *Manager) PrimaryProvider(ctx context.Context) (ModelProvider, error) {
	primary, _ := m.snapshot()
	if primary == nil {
		return nil, ErrNoProviderAvailable
	}
	if !m.available(ctx, primary) {
		return nil, ErrNoProviderAvailable
	}
	return primary, nil
}

// FallbackProviders returns the configured fallbacks that currently
// report available, preserving configured order.
func (m *Manager) FallbackProviders(ctx context.Context) []ModelProvider {
	_, fallbacks := m.snapshot()
	var out []ModelProvider
	for _, p := range fallbacks {
		if m.available(ctx, p) {
			out = append(out, p)
		}
	}
	return out
}

// available consults the health cache first; unknown providers get a
// bounded live probe whose result seeds the cache.
func (m *Manager) available(ctx context.Context, p ModelProvider) bool {
	m.healthMu.RLock()
	entry, ok := m.health[p.Name()]
	m.healthMu.RUnlock()
	if ok {
		return entry.Healthy()
	}
	return m.probe(ctx, p).Healthy()
}

// probe runs one timeout-bounded availability check and atomically
// replaces the provider's health entry.
func (m *Manager) probe(ctx context.Context, p ModelProvider) types.ProviderHealth {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	ok := p.IsAvailable(probeCtx)
	latency := time.Since(start)

	entry := types.ProviderHealth{
		Status:      types.StatusHealthy,
		Latency:     latency,
		LastChecked: time.Now(),
	}
	if !ok {
		entry.Status = types.StatusUnavailable
		entry.Details = "availability probe failed"
	}

	m.healthMu.Lock()
	m.health[p.Name()] = entry
	m.healthMu.Unlock()

	return entry
}

// HealthSnapshot returns a copy of the health cache for reporting.
func (m *Manager) HealthSnapshot() map[string]types.ProviderHealth {
	m.healthMu.RLock()
	defer m.healthMu.RUnlock()
	out := make(map[string]types.ProviderHealth, len(m.health))
	for name, entry := range m.health {
		out[name] = entry
	}
	return out
}

// =============================================================================
// DETECTION WITH FALLBACK
// =============================================================================

// DetectWithFallback tries the primary, then each available fallback in
// order. Every attempt is wrapped in the hard per-call timeout; the first
// success wins. If every attempt fails, the aggregate error names the
// last failure.
func (m *Manager) DetectWithFallback(ctx context.Context, text string) (*Detection, error) {
	primary, _ := m.snapshot()

	var attempts []error

	if primary != nil && m.available(ctx, primary) {
		result, err := m.callProvider(ctx, primary, text)
		if err == nil {
			return &Detection{Context: result, Provider: primary.Name(), FallbackUsed: false}, nil
		}
		if !callerCanceled(ctx, err) {
			m.markUnavailable(primary.Name(), err)
		}
		attempts = append(attempts, fmt.Errorf("%s: %w", primary.Name(), err))
		m.logger.Warn("primary provider failed, falling back",
			zap.String("provider", primary.Name()), zap.Error(err))
	}

	for _, p := range m.FallbackProviders(ctx) {
		result, err := m.callProvider(ctx, p, text)
		if err == nil {
			return &Detection{Context: result, Provider: p.Name(), FallbackUsed: true}, nil
		}
		if !callerCanceled(ctx, err) {
			m.markUnavailable(p.Name(), err)
		}
		attempts = append(attempts, fmt.Errorf("%s: %w", p.Name(), err))
		m.logger.Warn("fallback provider failed",
			zap.String("provider", p.Name()), zap.Error(err))
	}

	if len(attempts) == 0 {
		return nil, ErrNoProviderAvailable
	}
	last := attempts[len(attempts)-1]
	return nil, fmt.Errorf("all providers failed (last: %v): %w", last, errors.Join(attempts...))
}

// callProvider wraps one DetectContext call in the hard timeout. Expiry
// is a provider failure, not a system fault.
func (m *Manager) callProvider(ctx context.Context, p ModelProvider, text string) (*types.TaskContext, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	result, err := p.DetectContext(callCtx, text)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("provider returned no context")
	}
	return result, nil
}

// callerCanceled reports whether a failed call was the caller's own
// cancellation rather than a provider fault. The parent context must be
// dead too, otherwise the cancellation came from the per-call timeout.
func callerCanceled(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) && ctx.Err() != nil
}

// markUnavailable demotes a provider's health entry after a failed call
// so subsequent requests skip it until the next successful probe.
func (m *Manager) markUnavailable(name string, err error) {
	m.healthMu.Lock()
	m.health[name] = types.ProviderHealth{
		Status:      types.StatusUnavailable,
		LastChecked: time.Now(),
		Details:     err.Error(),
	}
	m.healthMu.Unlock()
}

// =============================================================================
// HEALTH MONITOR LIFECYCLE
// =============================================================================

// Start launches the background health monitor. Calling Start twice
// without Stop is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.stopCh != nil {
		m.mu.Unlock()
		return
	}
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	go m.monitorLoop(stopCh, doneCh)
}

// Stop halts the monitor and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	stopCh, doneCh := m.stopCh, m.doneCh
	m.stopCh, m.doneCh = nil, nil
	m.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

func (m *Manager) monitorLoop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	// Seed the cache immediately so the first requests see fresh health.
	m.ProbeAll(context.Background())

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.ProbeAll(context.Background())
		}
	}
}

// ProbeAll probes every configured provider concurrently, one bounded
// goroutine per provider so a slow probe cannot stall the others.
func (m *Manager) ProbeAll(ctx context.Context) {
	primary, fallbacks := m.snapshot()

	var providers []ModelProvider
	if primary != nil {
		providers = append(providers, primary)
	}
	providers = append(providers, fallbacks...)

	var wg sync.WaitGroup
	for _, p := range providers {
		wg.Add(1)
		go func(p ModelProvider) {
			defer wg.Done()
			entry := m.probe(ctx, p)
			m.logger.Debug("health probe",
				zap.String("provider", p.Name()),
				zap.String("status", string(entry.Status)),
				zap.Duration("latency", entry.Latency))
		}(p)
	}
	wg.Wait()
}
