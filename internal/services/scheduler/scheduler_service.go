// Package scheduler runs the periodic maintenance report: queue depths,
// lifecycle counts, and proxy pool health.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/autodidact-ai/curator/internal/common"
	"github.com/autodidact-ai/curator/internal/interfaces"
	"github.com/autodidact-ai/curator/internal/models"
	"github.com/autodidact-ai/curator/internal/proxy"
)

// Service runs the maintenance report on a cron schedule.
type Service struct {
	cron      *cron.Cron
	schedule  string
	queues    []interfaces.Queue
	lifecycle interfaces.LifecycleStore
	index     interfaces.VectorIndex
	pool      *proxy.Pool
	logger    arbor.ILogger
}

// NewService creates the scheduler. It does nothing until Start is called.
func NewService(cfg *common.SchedulerConfig, queues []interfaces.Queue, lifecycle interfaces.LifecycleStore, index interfaces.VectorIndex, pool *proxy.Pool) *Service {
	return &Service{
		cron:      cron.New(),
		schedule:  cfg.Schedule,
		queues:    queues,
		lifecycle: lifecycle,
		index:     index,
		pool:      pool,
		logger:    common.GetLogger().WithPrefix("scheduler"),
	}
}

// Start registers the report job and starts the cron loop.
func (s *Service) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runReport); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.schedule).Msg("Maintenance scheduler started")
	return nil
}

// Stop stops the cron loop and waits for a running report to finish.
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Maintenance scheduler stopped")
}

func (s *Service) runReport() {
	ctx := context.Background()

	for _, q := range s.queues {
		depth, err := q.Depth(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Str("queue", q.Name()).Msg("Failed to read queue depth")
			continue
		}
		s.logger.Info().Str("queue", q.Name()).Int("depth", depth).Msg("Queue depth")
	}

	for _, status := range []models.ContentStatus{
		models.StatusPendingReview,
		models.StatusErrorFetch,
		models.StatusErrorValidation,
		models.StatusErrorIngestion,
		models.StatusIngested,
	} {
		count, err := s.lifecycle.CountByStatus(ctx, status)
		if err != nil {
			s.logger.Warn().Err(err).Str("status", string(status)).Msg("Failed to count lifecycle status")
			continue
		}
		if count > 0 {
			s.logger.Info().Str("status", string(status)).Int("count", count).Msg("Lifecycle status count")
		}
	}

	if indexed, err := s.index.Count(ctx); err == nil {
		s.logger.Info().Int("entries", indexed).Msg("Vector index size")
	}

	stats := s.pool.Stats()
	if stats.Total > 0 {
		s.logger.Info().
			Int("active", stats.Active).
			Int("cooling_down", stats.CoolingDown).
			Int("requests", stats.TotalRequests).
			Str("success_rate", fmt.Sprintf("%.0f%%", stats.SuccessRate*100)).
			Msg("Proxy pool health")
		for _, line := range s.pool.EndpointDetails() {
			s.logger.Debug().Msg(line)
		}
	}
}
