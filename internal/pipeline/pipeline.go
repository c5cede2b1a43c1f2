// Package pipeline wires the stage queues, worker pools, and stage handlers
// into the content curation flow: fetch, quality gate, ingest.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/autodidact-ai/curator/internal/common"
	"github.com/autodidact-ai/curator/internal/fetch"
	"github.com/autodidact-ai/curator/internal/interfaces"
	"github.com/autodidact-ai/curator/internal/models"
	"github.com/autodidact-ai/curator/internal/queue"
)

// Pipeline owns the stage queues and the worker pools that consume them.
//
// Delivery semantics are at-least-once end to end: the worker acks every
// delivery after its handler returns, and the handlers republish for retry
// themselves. Lifecycle status writes are idempotent, so a redelivered
// message replays its effects safely.
type Pipeline struct {
	config *common.Config

	newQueue       interfaces.Queue
	fetchedQueue   interfaces.Queue
	validatedQueue interfaces.Queue
	ingestedQueue  interfaces.Queue

	lifecycle interfaces.LifecycleStore
	index     interfaces.VectorIndex
	fetcher   *fetch.Service
	events    interfaces.EventService

	pools  []*queue.WorkerPool
	logger arbor.ILogger
}

// Queues groups the four stage queues in pipeline order.
type Queues struct {
	New       interfaces.Queue
	Fetched   interfaces.Queue
	Validated interfaces.Queue
	Ingested  interfaces.Queue
}

// New creates the pipeline. Call Start to launch the consumers.
func New(cfg *common.Config, queues Queues, lifecycle interfaces.LifecycleStore, index interfaces.VectorIndex, fetcher *fetch.Service, events interfaces.EventService) *Pipeline {
	return &Pipeline{
		config:         cfg,
		newQueue:       queues.New,
		fetchedQueue:   queues.Fetched,
		validatedQueue: queues.Validated,
		ingestedQueue:  queues.Ingested,
		lifecycle:      lifecycle,
		index:          index,
		fetcher:        fetcher,
		events:         events,
		logger:         common.GetLogger().WithPrefix("pipeline"),
	}
}

// Start launches the stage worker pools as competing consumers.
func (p *Pipeline) Start() {
	poll := p.config.Queue.PollIntervalDuration()

	p.pools = []*queue.WorkerPool{
		queue.NewWorkerPool(p.newQueue, p.handleFetch, p.config.Queue.FetchWorkers, poll, p.logger.WithPrefix("fetch")),
		queue.NewWorkerPool(p.fetchedQueue, p.handleQualityGate, p.config.Queue.QualityWorkers, poll, p.logger.WithPrefix("quality")),
		queue.NewWorkerPool(p.validatedQueue, p.handleIngest, p.config.Queue.IngestWorkers, poll, p.logger.WithPrefix("ingest")),
	}
	for _, pool := range p.pools {
		pool.Start()
	}

	p.logger.Info().
		Int("fetch_workers", p.config.Queue.FetchWorkers).
		Int("quality_workers", p.config.Queue.QualityWorkers).
		Int("ingest_workers", p.config.Queue.IngestWorkers).
		Msg("Pipeline started")
}

// Stop stops all stage worker pools.
func (p *Pipeline) Stop() {
	for _, pool := range p.pools {
		pool.Stop()
	}
	p.logger.Info().Msg("Pipeline stopped")
}

// Queues returns the stage queues in pipeline order, for depth reporting.
func (p *Pipeline) Queues() []interfaces.Queue {
	return []interfaces.Queue{p.newQueue, p.fetchedQueue, p.validatedQueue, p.ingestedQueue}
}

// beginStage claims the item for a stage by writing its working status.
// Writing the status the item already holds is a no-op success, so a
// redelivered message re-enters its stage cleanly. An invalid transition
// means the item has already moved on (a stale duplicate delivery); the
// delivery is dropped with proceed=false.
func (p *Pipeline) beginStage(ctx context.Context, contentID string, status models.ContentStatus) (bool, error) {
	err := p.lifecycle.SetStatus(ctx, contentID, status, nil)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, models.ErrInvalidTransition) {
		p.logger.Warn().
			Str("content_id", contentID).
			Str("stage_status", string(status)).
			Err(err).
			Msg("Stale delivery for item that already moved on, dropping")
		return false, nil
	}
	return false, err
}

// retryOrFail is the shared stage retry policy. While the retry budget
// lasts, the task goes back on the same queue with exponential backoff; once
// spent, the item lands in the stage's terminal error status. Both paths
// return nil because the failure has been routed.
func (p *Pipeline) retryOrFail(ctx context.Context, q interfaces.Queue, task models.TaskMessage, failStatus models.ContentStatus, cause error) error {
	if task.Attributes.RetryCount >= task.Attributes.MaxRetries {
		p.logger.Warn().
			Str("content_id", task.ContentID).
			Str("status", string(failStatus)).
			Int("retries", task.Attributes.RetryCount).
			Err(cause).
			Msg("Retry budget exhausted")

		return p.lifecycle.SetStatus(ctx, task.ContentID, failStatus, &interfaces.StatusUpdate{
			Reason: cause.Error(),
		})
	}

	task.Attributes.RetryCount++
	delay := p.backoff(task.Attributes.RetryCount)

	p.logger.Info().
		Str("content_id", task.ContentID).
		Str("queue", q.Name()).
		Int("retry", task.Attributes.RetryCount).
		Int("max_retries", task.Attributes.MaxRetries).
		Dur("delay", delay).
		Err(cause).
		Msg("Requeueing for retry")

	if err := q.EnqueueDelayed(ctx, task, delay); err != nil {
		return fmt.Errorf("failed to requeue %s: %w", task.ContentID, err)
	}
	return nil
}

// backoff doubles the initial delay per retry, capped at the configured max.
func (p *Pipeline) backoff(retry int) time.Duration {
	delay := p.config.Pipeline.RetryBackoffDuration()
	for i := 1; i < retry; i++ {
		delay *= 2
		if delay >= p.config.Pipeline.RetryBackoffMaxDuration() {
			return p.config.Pipeline.RetryBackoffMaxDuration()
		}
	}
	if max := p.config.Pipeline.RetryBackoffMaxDuration(); delay > max {
		delay = max
	}
	return delay
}

// publishNext puts a fresh envelope on the downstream queue. The retry
// counter restarts per stage.
func (p *Pipeline) publishNext(ctx context.Context, q interfaces.Queue, contentID string, payload any) error {
	task, err := models.NewTaskMessage(contentID, p.config.Pipeline.MaxRetries, payload)
	if err != nil {
		return fmt.Errorf("failed to build task for %s: %w", contentID, err)
	}
	return q.Enqueue(ctx, task)
}
