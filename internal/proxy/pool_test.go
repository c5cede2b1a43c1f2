package proxy

import (
	"math/rand"
	"testing"
	"time"

	"github.com/autodidact-ai/curator/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(t *testing.T, cfg common.ProxyConfig) (*Pool, *time.Time) {
	t.Helper()

	if cfg.Strategy == "" {
		cfg.Strategy = StrategyRoundRobin
	}
	if cfg.MaxConsecutiveFailures == 0 {
		cfg.MaxConsecutiveFailures = 3
	}
	if cfg.CooldownMinutes == 0 {
		cfg.CooldownMinutes = 30
	}

	pool := NewPool(&cfg)

	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	pool.now = func() time.Time { return now }
	pool.rng = rand.New(rand.NewSource(1))
	return pool, &now
}

func TestSelectDirectWhenNoEndpoints(t *testing.T) {
	pool, _ := testPool(t, common.ProxyConfig{AllowDirect: true})

	ep, err := pool.Select()
	require.NoError(t, err)
	assert.Nil(t, ep, "empty pool with direct allowed should return nil endpoint")
}

func TestSelectErrorWhenDirectDisallowed(t *testing.T) {
	pool, _ := testPool(t, common.ProxyConfig{AllowDirect: false})

	_, err := pool.Select()
	assert.ErrorIs(t, err, ErrNoAvailableEndpoint)
}

func TestSelectRoundRobin(t *testing.T) {
	pool, _ := testPool(t, common.ProxyConfig{
		Endpoints: []string{"http://p1:8080", "http://p2:8080", "http://p3:8080"},
		Strategy:  StrategyRoundRobin,
	})

	var got []string
	for i := 0; i < 6; i++ {
		ep, err := pool.Select()
		require.NoError(t, err)
		require.NotNil(t, ep)
		got = append(got, ep.URL)
	}

	assert.Equal(t, []string{
		"http://p1:8080", "http://p2:8080", "http://p3:8080",
		"http://p1:8080", "http://p2:8080", "http://p3:8080",
	}, got)
}

func TestDeactivationAfterConsecutiveFailures(t *testing.T) {
	pool, _ := testPool(t, common.ProxyConfig{
		Endpoints:              []string{"http://p1:8080"},
		MaxConsecutiveFailures: 3,
	})

	ep, err := pool.Select()
	require.NoError(t, err)

	pool.RecordOutcome(ep, false, time.Second)
	pool.RecordOutcome(ep, false, time.Second)
	assert.True(t, ep.IsActive, "endpoint should survive failures below the limit")

	pool.RecordOutcome(ep, false, time.Second)
	assert.False(t, ep.IsActive, "endpoint should deactivate at the failure limit")
}

func TestSuccessResetsConsecutiveFailures(t *testing.T) {
	pool, _ := testPool(t, common.ProxyConfig{
		Endpoints: []string{"http://p1:8080"},
	})

	ep, err := pool.Select()
	require.NoError(t, err)

	pool.RecordOutcome(ep, false, time.Second)
	pool.RecordOutcome(ep, false, time.Second)
	pool.RecordOutcome(ep, true, time.Second)
	assert.Equal(t, 0, ep.ConsecutiveFailures)

	pool.RecordOutcome(ep, false, time.Second)
	assert.True(t, ep.IsActive, "failure streak must restart after a success")
}

func TestCooldownReactivation(t *testing.T) {
	pool, now := testPool(t, common.ProxyConfig{
		Endpoints:              []string{"http://p1:8080"},
		MaxConsecutiveFailures: 1,
		CooldownMinutes:        30,
		AllowDirect:            true,
	})

	ep, err := pool.Select()
	require.NoError(t, err)
	pool.RecordOutcome(ep, false, time.Second)
	require.False(t, ep.IsActive)

	// still cooling: pool falls back to direct
	*now = now.Add(10 * time.Minute)
	got, err := pool.Select()
	require.NoError(t, err)
	assert.Nil(t, got)

	// past cooldown: endpoint comes back on the next selection
	*now = now.Add(25 * time.Minute)
	got, err = pool.Select()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "http://p1:8080", got.URL)
	assert.Equal(t, 0, got.ConsecutiveFailures)
}

func TestLatencyMovingAverage(t *testing.T) {
	pool, _ := testPool(t, common.ProxyConfig{
		Endpoints: []string{"http://p1:8080"},
	})

	ep, err := pool.Select()
	require.NoError(t, err)

	pool.RecordOutcome(ep, true, 1*time.Second)
	assert.Equal(t, 1*time.Second, ep.AvgResponseTime, "first sample seeds the average")

	pool.RecordOutcome(ep, true, 2*time.Second)
	// 1s*0.7 + 2s*0.3
	assert.Equal(t, 1300*time.Millisecond, ep.AvgResponseTime)
}

func TestPerformanceScore(t *testing.T) {
	pool, now := testPool(t, common.ProxyConfig{
		Endpoints: []string{"http://p1:8080"},
		Strategy:  StrategyPerformance,
	})
	ep := pool.endpoints[0]

	assert.InDelta(t, 0.5, pool.score(ep), 1e-9, "untried endpoint scores neutral")

	pool.RecordOutcome(ep, true, 2*time.Second)
	// success rate 1.0, latency 2s/10s, success just now
	want := 0.5*1.0 + 0.3*(1-0.2) + 0.2*1.0
	assert.InDelta(t, want, pool.score(ep), 1e-9)

	*now = now.Add(12 * time.Hour)
	want = 0.5*1.0 + 0.3*(1-0.2) + 0.2*0.5
	assert.InDelta(t, want, pool.score(ep), 1e-9)
}

func TestPerformanceSelectionPrefersHealthy(t *testing.T) {
	pool, _ := testPool(t, common.ProxyConfig{
		Endpoints:              []string{"http://good:8080", "http://bad:8080"},
		Strategy:               StrategyPerformance,
		MaxConsecutiveFailures: 100,
	})

	good, bad := pool.endpoints[0], pool.endpoints[1]
	for i := 0; i < 10; i++ {
		pool.RecordOutcome(good, true, 500*time.Millisecond)
	}
	for i := 0; i < 10; i++ {
		pool.RecordOutcome(bad, i%5 == 0, 8*time.Second)
	}

	counts := map[string]int{}
	for i := 0; i < 1000; i++ {
		ep, err := pool.Select()
		require.NoError(t, err)
		counts[ep.URL]++
	}

	assert.Greater(t, counts["http://good:8080"], counts["http://bad:8080"],
		"healthy endpoint should win most selections: %v", counts)
	assert.Greater(t, counts["http://bad:8080"], 0,
		"weak endpoint still gets probing traffic")
}

func TestRecordOutcomeDirectIsNoop(t *testing.T) {
	pool, _ := testPool(t, common.ProxyConfig{AllowDirect: true})
	pool.RecordOutcome(nil, true, time.Second)
	assert.Equal(t, 0, pool.Stats().TotalRequests)
}

func TestStats(t *testing.T) {
	pool, _ := testPool(t, common.ProxyConfig{
		Endpoints:              []string{"http://p1:8080", "http://p2:8080"},
		MaxConsecutiveFailures: 1,
	})

	p1, p2 := pool.endpoints[0], pool.endpoints[1]
	pool.RecordOutcome(p1, true, time.Second)
	pool.RecordOutcome(p1, true, time.Second)
	pool.RecordOutcome(p2, false, time.Second)

	stats := pool.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.CoolingDown)
	assert.Equal(t, 3, stats.TotalRequests)
	assert.Equal(t, 2, stats.SuccessfulRequests)
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate, 1e-9)

	details := pool.EndpointDetails()
	assert.Len(t, details, 2)
}
