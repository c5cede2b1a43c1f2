package models

import (
	"strings"
	"time"
)

// ProxyEndpoint is one candidate egress path with rolling health statistics.
// A nil *ProxyEndpoint means "direct connection, no proxy". Statistics are
// scoped to the owning worker process; replicas converge on good endpoints
// independently rather than through shared state.
type ProxyEndpoint struct {
	URL                 string
	TotalRequests       int
	SuccessfulRequests  int
	FailedRequests      int
	ConsecutiveFailures int
	AvgResponseTime     time.Duration
	LastUsed            time.Time
	LastSuccess         time.Time
	LastFailure         time.Time
	IsActive            bool
}

// SuccessRate returns the lifetime success ratio, 0 when unused.
func (e *ProxyEndpoint) SuccessRate() float64 {
	if e.TotalRequests == 0 {
		return 0
	}
	return float64(e.SuccessfulRequests) / float64(e.TotalRequests)
}

// Masked returns the endpoint URL with credentials hidden, safe for logging.
func (e *ProxyEndpoint) Masked() string {
	if e == nil {
		return "direct"
	}
	at := strings.LastIndex(e.URL, "@")
	if at < 0 {
		return e.URL
	}
	scheme := ""
	if i := strings.Index(e.URL, "//"); i >= 0 {
		scheme = e.URL[:i+2]
	}
	return scheme + "*****@" + e.URL[at+1:]
}
