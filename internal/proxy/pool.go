// Package proxy manages a pool of outbound proxy endpoints with health
// tracking, cooldown, and selection strategies.
package proxy

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/autodidact-ai/curator/internal/common"
	"github.com/autodidact-ai/curator/internal/models"
	"github.com/ternarybob/arbor"
)

// Selection strategies.
const (
	StrategyRoundRobin  = "round_robin"
	StrategyRandom      = "random"
	StrategyPerformance = "performance"
)

// ErrNoAvailableEndpoint is returned by Select when every configured endpoint
// is cooling down and direct connections are disallowed.
var ErrNoAvailableEndpoint = errors.New("no proxy endpoint available")

// latencyCeiling is the response time treated as a zero latency score.
const latencyCeiling = 10 * time.Second

// recencyWindow is how long a success keeps contributing to the score.
const recencyWindow = 24 * time.Hour

// emaSampleWeight is the weight of the newest latency sample in the
// exponential moving average.
const emaSampleWeight = 0.3

// Pool tracks proxy endpoint health and hands out endpoints per the
// configured strategy. Statistics are per process and reset on restart.
type Pool struct {
	mu        sync.Mutex
	endpoints []*models.ProxyEndpoint
	strategy  string

	maxConsecutiveFailures int
	cooldown               time.Duration
	allowDirect            bool

	rrIndex int
	now     func() time.Time
	rng     *rand.Rand
	logger  arbor.ILogger
}

// NewPool builds a pool from the proxy configuration. An empty endpoint list
// is valid: Select returns nil (direct connection) when AllowDirect is set.
func NewPool(cfg *common.ProxyConfig) *Pool {
	endpoints := make([]*models.ProxyEndpoint, 0, len(cfg.Endpoints))
	for _, url := range cfg.Endpoints {
		endpoints = append(endpoints, &models.ProxyEndpoint{
			URL:      url,
			IsActive: true,
		})
	}

	return &Pool{
		endpoints:              endpoints,
		strategy:               cfg.Strategy,
		maxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		cooldown:               time.Duration(cfg.CooldownMinutes) * time.Minute,
		allowDirect:            cfg.AllowDirect,
		now:                    time.Now,
		rng:                    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:                 common.GetLogger().WithPrefix("proxy"),
	}
}

// Size returns the number of configured endpoints.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// Select returns the endpoint to use for the next request. A nil endpoint
// with nil error means connect directly. Endpoints past their cooldown are
// reactivated here rather than by a background timer.
func (p *Pool) Select() (*models.ProxyEndpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.endpoints) == 0 {
		if p.allowDirect {
			return nil, nil
		}
		return nil, ErrNoAvailableEndpoint
	}

	p.reactivateCooled()

	active := make([]*models.ProxyEndpoint, 0, len(p.endpoints))
	for _, ep := range p.endpoints {
		if ep.IsActive {
			active = append(active, ep)
		}
	}

	if len(active) == 0 {
		if p.allowDirect {
			p.logger.Warn().Msg("All proxy endpoints cooling down, falling back to direct connection")
			return nil, nil
		}
		return nil, ErrNoAvailableEndpoint
	}

	var chosen *models.ProxyEndpoint
	switch p.strategy {
	case StrategyRandom:
		chosen = active[p.rng.Intn(len(active))]
	case StrategyPerformance:
		chosen = p.selectByPerformance(active)
	default:
		chosen = active[p.rrIndex%len(active)]
		p.rrIndex++
	}

	chosen.LastUsed = p.now()
	return chosen, nil
}

// reactivateCooled flips endpoints back to active once their cooldown has
// elapsed since the last failure. Caller holds the lock.
func (p *Pool) reactivateCooled() {
	now := p.now()
	for _, ep := range p.endpoints {
		if ep.IsActive {
			continue
		}
		if now.Sub(ep.LastFailure) >= p.cooldown {
			ep.IsActive = true
			ep.ConsecutiveFailures = 0
			p.logger.Info().Str("endpoint", ep.Masked()).Msg("Proxy endpoint reactivated after cooldown")
		}
	}
}

// selectByPerformance picks an endpoint with probability proportional to its
// health score, so weaker endpoints still get occasional traffic to recover.
// Caller holds the lock.
func (p *Pool) selectByPerformance(active []*models.ProxyEndpoint) *models.ProxyEndpoint {
	total := 0.0
	scores := make([]float64, len(active))
	for i, ep := range active {
		// floor keeps untried endpoints selectable
		s := p.score(ep)
		if s < 0.05 {
			s = 0.05
		}
		scores[i] = s
		total += s
	}

	target := p.rng.Float64() * total
	for i, ep := range active {
		target -= scores[i]
		if target <= 0 {
			return ep
		}
	}
	return active[len(active)-1]
}

// score rates an endpoint on success rate, latency, and recency of its last
// success. Range 0.0 to 1.0; an untried endpoint scores a neutral 0.5.
func (p *Pool) score(ep *models.ProxyEndpoint) float64 {
	if ep.TotalRequests == 0 {
		return 0.5
	}

	latencyScore := 1 - minFloat(1, ep.AvgResponseTime.Seconds()/latencyCeiling.Seconds())

	recencyScore := 0.0
	if !ep.LastSuccess.IsZero() {
		since := p.now().Sub(ep.LastSuccess)
		recencyScore = 1 - minFloat(1, since.Hours()/recencyWindow.Hours())
	}

	return 0.5*ep.SuccessRate() + 0.3*latencyScore + 0.2*recencyScore
}

// RecordOutcome updates endpoint health after a request. A nil endpoint means
// the request went direct and there is nothing to track. Failures past the
// consecutive-failure limit put the endpoint into cooldown.
func (p *Pool) RecordOutcome(ep *models.ProxyEndpoint, success bool, elapsed time.Duration) {
	if ep == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ep.TotalRequests++
	if success {
		ep.SuccessfulRequests++
		ep.ConsecutiveFailures = 0
		ep.LastSuccess = p.now()

		if ep.AvgResponseTime == 0 {
			ep.AvgResponseTime = elapsed
		} else {
			ep.AvgResponseTime = time.Duration(
				float64(ep.AvgResponseTime)*(1-emaSampleWeight) + float64(elapsed)*emaSampleWeight)
		}
		return
	}

	ep.FailedRequests++
	ep.ConsecutiveFailures++
	ep.LastFailure = p.now()

	if ep.IsActive && ep.ConsecutiveFailures >= p.maxConsecutiveFailures {
		ep.IsActive = false
		p.logger.Warn().
			Str("endpoint", ep.Masked()).
			Int("consecutive_failures", ep.ConsecutiveFailures).
			Str("cooldown", p.cooldown.String()).
			Msg("Proxy endpoint deactivated")
	}
}

// Statistics is an aggregate snapshot of pool health.
type Statistics struct {
	Total              int     `json:"total"`
	Active             int     `json:"active"`
	CoolingDown        int     `json:"cooling_down"`
	TotalRequests      int     `json:"total_requests"`
	SuccessfulRequests int     `json:"successful_requests"`
	SuccessRate        float64 `json:"success_rate"`
}

// Stats returns aggregate counters across all endpoints.
func (p *Pool) Stats() Statistics {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Statistics{Total: len(p.endpoints)}
	for _, ep := range p.endpoints {
		if ep.IsActive {
			stats.Active++
		} else {
			stats.CoolingDown++
		}
		stats.TotalRequests += ep.TotalRequests
		stats.SuccessfulRequests += ep.SuccessfulRequests
	}
	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.SuccessfulRequests) / float64(stats.TotalRequests)
	}
	return stats
}

// EndpointDetails returns a per-endpoint health summary with credentials
// masked, for operator reporting.
func (p *Pool) EndpointDetails() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	details := make([]string, 0, len(p.endpoints))
	for _, ep := range p.endpoints {
		state := "active"
		if !ep.IsActive {
			state = "cooling"
		}
		details = append(details, fmt.Sprintf("%s %s score=%.2f success=%.0f%% requests=%d",
			ep.Masked(), state, p.score(ep), ep.SuccessRate()*100, ep.TotalRequests))
	}
	return details
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
