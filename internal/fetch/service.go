// Package fetch retrieves transcripts and metadata from content pages,
// rotating through the proxy pool and rate limiting outbound requests.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/autodidact-ai/curator/internal/common"
	"github.com/autodidact-ai/curator/internal/interfaces"
	"github.com/autodidact-ai/curator/internal/proxy"
)

// Service wraps a TranscriptSource with proxy rotation, a global rate limit,
// and per-attempt timeouts. One Fetch call makes up to AttemptsPerDelivery
// attempts through different endpoints before giving up; the stage retry
// budget sits above this in the pipeline.
type Service struct {
	source   interfaces.TranscriptSource
	pool     *proxy.Pool
	limiter  *rate.Limiter
	attempts int
	timeout  time.Duration
	logger   arbor.ILogger
}

// NewService creates a fetch service.
func NewService(source interfaces.TranscriptSource, pool *proxy.Pool, cfg *common.FetchConfig) *Service {
	return &Service{
		source:   source,
		pool:     pool,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		attempts: cfg.AttemptsPerDelivery,
		timeout:  cfg.RequestTimeoutDuration(),
		logger:   common.GetLogger().WithPrefix("fetch"),
	}
}

// Fetch retrieves the transcript for a content URL.
//
// Outcomes are tri-state: a transcript, ErrNoTranscript (terminal, the
// endpoint is not penalized because the content itself lacks captions), or a
// transient error after the attempt budget is spent.
func (s *Service) Fetch(ctx context.Context, url string) (*interfaces.Transcript, error) {
	var lastErr error

	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		endpoint, err := s.pool.Select()
		if err != nil {
			return nil, fmt.Errorf("no egress path for fetch: %w", err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		start := time.Now()
		transcript, err := s.source.FetchTranscript(attemptCtx, url, endpoint)
		elapsed := time.Since(start)
		cancel()

		if err == nil {
			s.pool.RecordOutcome(endpoint, true, elapsed)
			s.logger.Debug().
				Str("url", url).
				Str("endpoint", endpoint.Masked()).
				Dur("elapsed", elapsed).
				Int("attempt", attempt).
				Msg("Transcript fetched")
			return transcript, nil
		}

		if errors.Is(err, interfaces.ErrNoTranscript) {
			// the endpoint worked, the content has no transcript
			s.pool.RecordOutcome(endpoint, true, elapsed)
			return nil, err
		}

		s.pool.RecordOutcome(endpoint, false, elapsed)
		s.logger.Warn().
			Err(err).
			Str("url", url).
			Str("endpoint", endpoint.Masked()).
			Int("attempt", attempt).
			Msg("Fetch attempt failed")
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("fetch failed after %d attempts: %w", s.attempts, lastErr)
}

// Pool exposes the proxy pool for health reporting.
func (s *Service) Pool() *proxy.Pool {
	return s.pool
}
