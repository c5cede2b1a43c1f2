package queue

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/autodidact-ai/curator/internal/interfaces"
	"github.com/autodidact-ai/curator/internal/models"
)

// Handler processes one received message. Stage handlers own retry and
// terminal-status routing and return nil once the outcome is recorded; a
// non-nil error means the delivery could not be recorded at all, so the
// worker skips the ack and lets the visibility timeout redeliver it.
type Handler func(ctx context.Context, msg *interfaces.QueueMessage) error

// WorkerPool runs a fixed number of competing consumers against one queue.
type WorkerPool struct {
	queue        interfaces.Queue
	handler      Handler
	concurrency  int
	pollInterval time.Duration
	logger       arbor.ILogger
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewWorkerPool creates a pool of consumers for the given queue.
func NewWorkerPool(queue interfaces.Queue, handler Handler, concurrency int, pollInterval time.Duration, logger arbor.ILogger) *WorkerPool {
	if concurrency <= 0 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		queue:        queue,
		handler:      handler,
		concurrency:  concurrency,
		pollInterval: pollInterval,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	wp.logger.Info().
		Str("queue", wp.queue.Name()).
		Int("concurrency", wp.concurrency).
		Msg("Starting worker pool")

	for i := 0; i < wp.concurrency; i++ {
		go wp.worker(i)
	}
}

// Stop signals all workers to exit after their current message.
func (wp *WorkerPool) Stop() {
	wp.logger.Info().
		Str("queue", wp.queue.Name()).
		Msg("Stopping worker pool")
	wp.cancel()
}

func (wp *WorkerPool) worker(workerID int) {
	// Stagger worker starts to reduce badger transaction conflicts
	stagger := (wp.pollInterval / time.Duration(wp.concurrency)) * time.Duration(workerID)
	if stagger > 0 {
		select {
		case <-wp.ctx.Done():
			return
		case <-time.After(stagger):
		}
	}

	wp.logger.Debug().
		Int("worker_id", workerID).
		Str("queue", wp.queue.Name()).
		Msg("Worker started")

	ticker := time.NewTicker(wp.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().
				Int("worker_id", workerID).
				Msg("Worker stopped")
			return

		case <-ticker.C:
			// Drain everything visible before going back to sleep
			for wp.processOne(workerID) {
				if wp.ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// processOne receives and handles a single message. Returns true when a
// message was consumed, so the caller keeps draining.
func (wp *WorkerPool) processOne(workerID int) bool {
	msg, ack, err := wp.queue.Receive(wp.ctx)
	if err != nil {
		if !errors.Is(err, models.ErrNoMessage) {
			wp.logger.Warn().
				Err(err).
				Int("worker_id", workerID).
				Msg("Error receiving message")
		}
		return false
	}

	wp.logger.Debug().
		Str("message_id", msg.ID).
		Str("content_id", msg.Task.ContentID).
		Int("worker_id", workerID).
		Msg("Processing message")

	start := time.Now()
	handlerErr := wp.handler(wp.ctx, msg)
	duration := time.Since(start)

	if handlerErr != nil {
		// no ack: the message reappears after the visibility timeout
		wp.logger.Error().
			Err(handlerErr).
			Str("message_id", msg.ID).
			Str("content_id", msg.Task.ContentID).
			Dur("duration", duration).
			Int("worker_id", workerID).
			Msg("Handler failed, leaving message for redelivery")
		return true
	}

	wp.logger.Debug().
		Str("message_id", msg.ID).
		Str("content_id", msg.Task.ContentID).
		Dur("duration", duration).
		Int("worker_id", workerID).
		Msg("Message processed")

	if err := ack(); err != nil {
		wp.logger.Warn().
			Err(err).
			Str("message_id", msg.ID).
			Msg("Failed to ack message")
	}

	return true
}
