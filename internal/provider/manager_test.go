package provider

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"dirigent/internal/config"
	"dirigent/internal/types"
)

// fakeProvider is a controllable ModelProvider for manager tests.
type fakeProvider struct {
	name      string
	available bool
	delay     time.Duration
	err       error
	result    *types.TaskContext
	calls     atomic.Int64
}

func (f *fakeProvider) Name() string                            { return f.name }
func (f *fakeProvider) Kind() string                            { return config.KindRemoteAPI }
func (f *fakeProvider) IsAvailable(ctx context.Context) bool    { return f.available }
func (f *fakeProvider) DetectContext(ctx context.Context, text string) (*types.TaskContext, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func goodContext() *types.TaskContext {
	return &types.TaskContext{Layer: types.LayerDomain, Confidence: 0.8}
}

// verifyNoLeaks ignores the opencensus stats worker, which a transitive
// dependency launches from init and never stops.
func verifyNoLeaks(t *testing.T) {
	goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func TestDetectWithFallback_PrimaryWins(t *testing.T) {
	primary := &fakeProvider{name: "primary", available: true, result: goodContext()}
	fallback := &fakeProvider{name: "fallback", available: true, result: goodContext()}
	m := NewManagerWithProviders(primary, []ModelProvider{fallback}, time.Second, time.Minute)

	det, err := m.DetectWithFallback(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, "primary", det.Provider)
	assert.False(t, det.FallbackUsed)
	assert.Equal(t, int64(0), fallback.calls.Load())
}

func TestDetectWithFallback_PrimaryFailsFallbackAnswers(t *testing.T) {
	primary := &fakeProvider{name: "primary", available: true, err: errors.New("boom")}
	fallback := &fakeProvider{name: "fallback", available: true, result: goodContext()}
	m := NewManagerWithProviders(primary, []ModelProvider{fallback}, time.Second, time.Minute)

	det, err := m.DetectWithFallback(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, "fallback", det.Provider)
	assert.True(t, det.FallbackUsed)

	// The failed primary is demoted in the health cache.
	health := m.HealthSnapshot()
	assert.Equal(t, types.StatusUnavailable, health["primary"].Status)
}

func TestDetectWithFallback_AllFail(t *testing.T) {
	primary := &fakeProvider{name: "primary", available: true, err: errors.New("p down")}
	fallback := &fakeProvider{name: "fallback", available: true, err: errors.New("f down")}
	m := NewManagerWithProviders(primary, []ModelProvider{fallback}, time.Second, time.Minute)

	_, err := m.DetectWithFallback(context.Background(), "task")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "f down")
}

func TestDetectWithFallback_TimeoutIsBounded(t *testing.T) {
	timeout := 50 * time.Millisecond
	primary := &fakeProvider{name: "primary", available: true, delay: time.Second, result: goodContext()}
	fallback := &fakeProvider{name: "fallback", available: true, delay: time.Second, result: goodContext()}
	m := NewManagerWithProviders(primary, []ModelProvider{fallback}, timeout, time.Minute)

	start := time.Now()
	_, err := m.DetectWithFallback(context.Background(), "task")
	elapsed := time.Since(start)

	require.Error(t, err)
	// timeout * (1 + fallbackCount), plus scheduling slack.
	assert.Less(t, elapsed, timeout*2+timeout)
}

func TestDetectWithFallback_CallerCancelKeepsHealth(t *testing.T) {
	primary := &fakeProvider{name: "primary", available: true, delay: time.Second, result: goodContext()}
	m := NewManagerWithProviders(primary, nil, time.Minute, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := m.DetectWithFallback(ctx, "task")
	require.ErrorIs(t, err, context.Canceled)

	// The caller giving up says nothing about the provider.
	health := m.HealthSnapshot()
	assert.NotEqual(t, types.StatusUnavailable, health["primary"].Status)

	primary.delay = 0
	det, err := m.DetectWithFallback(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, "primary", det.Provider)
}

func TestDetectWithFallback_SkipsUnavailableProviders(t *testing.T) {
	primary := &fakeProvider{name: "primary", available: false, result: goodContext()}
	fallback := &fakeProvider{name: "fallback", available: true, result: goodContext()}
	m := NewManagerWithProviders(primary, []ModelProvider{fallback}, time.Second, time.Minute)

	det, err := m.DetectWithFallback(context.Background(), "task")
	require.NoError(t, err)
	assert.True(t, det.FallbackUsed)
	assert.Equal(t, int64(0), primary.calls.Load())
}

func TestDetectWithFallback_NothingConfigured(t *testing.T) {
	m := NewManagerWithProviders(nil, nil, time.Second, time.Minute)
	_, err := m.DetectWithFallback(context.Background(), "task")
	assert.ErrorIs(t, err, ErrNoProviderAvailable)
}

func TestPrimaryProvider(t *testing.T) {
	t.Run("available", func(t *testing.T) {
		primary := &fakeProvider{name: "primary", available: true}
		m := NewManagerWithProviders(primary, nil, time.Second, time.Minute)
		p, err := m.PrimaryProvider(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "primary", p.Name())
	})

	t.Run("unavailable", func(t *testing.T) {
		primary := &fakeProvider{name: "primary", available: false}
		m := NewManagerWithProviders(primary, nil, time.Second, time.Minute)
		_, err := m.PrimaryProvider(context.Background())
		assert.ErrorIs(t, err, ErrNoProviderAvailable)
	})
}

func TestFallbackProviders_PreservesOrder(t *testing.T) {
	a := &fakeProvider{name: "a", available: true}
	b := &fakeProvider{name: "b", available: false}
	c := &fakeProvider{name: "c", available: true}
	m := NewManagerWithProviders(nil, []ModelProvider{a, b, c}, time.Second, time.Minute)

	got := m.FallbackProviders(context.Background())
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name())
	assert.Equal(t, "c", got[1].Name())
}

func TestProbeAll_PopulatesSnapshot(t *testing.T) {
	primary := &fakeProvider{name: "primary", available: true}
	fallback := &fakeProvider{name: "fallback", available: false}
	m := NewManagerWithProviders(primary, []ModelProvider{fallback}, time.Second, time.Minute)

	m.ProbeAll(context.Background())

	health := m.HealthSnapshot()
	require.Len(t, health, 2)
	assert.Equal(t, types.StatusHealthy, health["primary"].Status)
	assert.Equal(t, types.StatusUnavailable, health["fallback"].Status)
	assert.False(t, health["primary"].LastChecked.IsZero())
}

func TestManager_StartStop(t *testing.T) {
	defer verifyNoLeaks(t)

	primary := &fakeProvider{name: "primary", available: true}
	m := NewManagerWithProviders(primary, nil, time.Second, 10*time.Millisecond)

	m.Start()
	m.Start() // second Start is a no-op

	// Give the monitor a couple of cycles.
	assert.Eventually(t, func() bool {
		return len(m.HealthSnapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	m.Stop()
	m.Stop() // second Stop is a no-op
}

func TestManager_ReconfigureWhileRunning(t *testing.T) {
	defer verifyNoLeaks(t)

	primary := &fakeProvider{name: "primary", available: true, result: goodContext()}
	m := NewManagerWithProviders(primary, nil, time.Second, 5*time.Millisecond)
	m.Start()
	defer m.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			_, _ = m.DetectWithFallback(context.Background(), "task")
		}
	}()

	replacement := &fakeProvider{name: "replacement", available: true, result: goodContext()}
	for i := 0; i < 20; i++ {
		m.AddFallback(&fakeProvider{name: "extra", available: true, result: goodContext()})
		m.RemoveProvider("extra")
		m.SetPrimary(replacement)
		m.SetPrimary(primary)
	}
	<-done
}

func TestNewManager_UnknownKindFails(t *testing.T) {
	cfg := config.DefaultProviderConfig()
	cfg.Specs = []config.ProviderSpec{{Name: "x", Kind: "quantum"}}
	_, err := NewManager(cfg)
	require.Error(t, err)
}

func TestNewManager_BuildsChain(t *testing.T) {
	cfg := config.DefaultProviderConfig()
	cfg.Specs = []config.ProviderSpec{
		{Name: "rules", Kind: config.KindRuleBased},
		{Name: "local", Kind: config.KindLocalInference},
	}
	cfg.Primary = "local"
	cfg.Fallbacks = []string{"rules"}

	m, err := NewManager(cfg)
	require.NoError(t, err)
	_, fallbacks := m.snapshot()
	require.Len(t, fallbacks, 1)
	assert.Equal(t, "rules", fallbacks[0].Name())
}
