package fetch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodidact-ai/curator/internal/common"
	"github.com/autodidact-ai/curator/internal/interfaces"
	"github.com/autodidact-ai/curator/internal/models"
	"github.com/autodidact-ai/curator/internal/proxy"
)

// scriptedSource returns canned outcomes in sequence.
type scriptedSource struct {
	outcomes []error
	calls    int
	used     []*models.ProxyEndpoint
}

func (s *scriptedSource) FetchTranscript(ctx context.Context, url string, endpoint *models.ProxyEndpoint) (*interfaces.Transcript, error) {
	s.used = append(s.used, endpoint)
	var err error
	if s.calls < len(s.outcomes) {
		err = s.outcomes[s.calls]
	}
	s.calls++
	if err != nil {
		return nil, err
	}
	return &interfaces.Transcript{Text: "transcript text"}, nil
}

func fetchService(t *testing.T, source interfaces.TranscriptSource, proxyCfg common.ProxyConfig) *Service {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Fetch.RatePerSecond = 1000 // keep tests fast
	cfg.Fetch.Burst = 1000
	if proxyCfg.Strategy == "" {
		proxyCfg.Strategy = proxy.StrategyRoundRobin
	}
	if proxyCfg.MaxConsecutiveFailures == 0 {
		proxyCfg.MaxConsecutiveFailures = 3
	}
	if proxyCfg.CooldownMinutes == 0 {
		proxyCfg.CooldownMinutes = 30
	}
	return NewService(source, proxy.NewPool(&proxyCfg), &cfg.Fetch)
}

func TestFetchSuccessFirstAttempt(t *testing.T) {
	source := &scriptedSource{}
	svc := fetchService(t, source, common.ProxyConfig{AllowDirect: true})

	got, err := svc.Fetch(context.Background(), "https://example.com/v/1")
	require.NoError(t, err)
	assert.Equal(t, "transcript text", got.Text)
	assert.Equal(t, 1, source.calls)
}

func TestFetchRotatesOnTransientFailure(t *testing.T) {
	source := &scriptedSource{outcomes: []error{errors.New("connect timeout"), nil}}
	svc := fetchService(t, source, common.ProxyConfig{
		Endpoints: []string{"http://p1:8080", "http://p2:8080"},
	})

	got, err := svc.Fetch(context.Background(), "https://example.com/v/1")
	require.NoError(t, err)
	assert.Equal(t, "transcript text", got.Text)
	require.Len(t, source.used, 2)
	assert.NotEqual(t, source.used[0].URL, source.used[1].URL, "retry must rotate to a different endpoint")

	stats := svc.Pool().Stats()
	assert.Equal(t, 2, stats.TotalRequests)
	assert.Equal(t, 1, stats.SuccessfulRequests)
}

func TestFetchNoTranscriptIsTerminal(t *testing.T) {
	source := &scriptedSource{outcomes: []error{interfaces.ErrNoTranscript}}
	svc := fetchService(t, source, common.ProxyConfig{
		Endpoints: []string{"http://p1:8080"},
	})

	_, err := svc.Fetch(context.Background(), "https://example.com/v/1")
	assert.ErrorIs(t, err, interfaces.ErrNoTranscript)
	assert.Equal(t, 1, source.calls, "terminal outcome must not be retried")

	// the endpoint did its job, its health must not suffer
	stats := svc.Pool().Stats()
	assert.Equal(t, 1, stats.SuccessfulRequests)
}

func TestFetchExhaustsAttemptBudget(t *testing.T) {
	transient := errors.New("tls handshake failed")
	source := &scriptedSource{outcomes: []error{transient, transient, transient}}
	svc := fetchService(t, source, common.ProxyConfig{AllowDirect: true})

	_, err := svc.Fetch(context.Background(), "https://example.com/v/1")
	require.Error(t, err)
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, source.calls)
}
