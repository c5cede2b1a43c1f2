// Package app is the composition root: it builds the storage, queue, proxy,
// and pipeline components from configuration and manages their lifecycle.
package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/autodidact-ai/curator/internal/common"
	"github.com/autodidact-ai/curator/internal/fetch"
	"github.com/autodidact-ai/curator/internal/interfaces"
	"github.com/autodidact-ai/curator/internal/models"
	"github.com/autodidact-ai/curator/internal/pipeline"
	"github.com/autodidact-ai/curator/internal/proxy"
	"github.com/autodidact-ai/curator/internal/queue"
	"github.com/autodidact-ai/curator/internal/services/events"
	"github.com/autodidact-ai/curator/internal/services/scheduler"
	storagebadger "github.com/autodidact-ai/curator/internal/storage/badger"
)

// App holds all application components and dependencies.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	DB *storagebadger.BadgerDB

	EventService interfaces.EventService
	Lifecycle    interfaces.LifecycleStore
	Index        interfaces.VectorIndex
	ProxyPool    *proxy.Pool
	Fetcher      *fetch.Service

	Pipeline  *pipeline.Pipeline
	Scheduler *scheduler.Service
}

// New builds the application graph. Nothing runs until Start is called.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	db, err := storagebadger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	eventService := events.NewService(logger)
	lifecycle := storagebadger.NewLifecycleStorage(db, eventService, logger)
	index := storagebadger.NewIndexStorage(db, logger)

	pool := proxy.NewPool(&config.Proxy)
	source := fetch.NewHTTPSource(&config.Fetch)
	fetcher := fetch.NewService(source, pool, &config.Fetch)

	// stage queues share the storage DB
	rawDB := db.Store().Badger()
	visibility := config.Queue.VisibilityTimeoutDuration()

	queues := pipeline.Queues{}
	for _, binding := range []struct {
		name   string
		target *interfaces.Queue
	}{
		{models.QueueContentNew, &queues.New},
		{models.QueueContentFetched, &queues.Fetched},
		{models.QueueContentValidated, &queues.Validated},
		{models.QueueContentIngested, &queues.Ingested},
	} {
		q, err := queue.NewBadgerQueue(rawDB, binding.name, visibility, config.Queue.MaxReceive)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create queue %s: %w", binding.name, err)
		}
		*binding.target = q
	}

	pipe := pipeline.New(config, queues, lifecycle, index, fetcher, eventService)

	sched := scheduler.NewService(&config.Scheduler, pipe.Queues(), lifecycle, index, pool)

	app := &App{
		Config:       config,
		Logger:       logger,
		DB:           db,
		EventService: eventService,
		Lifecycle:    lifecycle,
		Index:        index,
		ProxyPool:    pool,
		Fetcher:      fetcher,
		Pipeline:     pipe,
		Scheduler:    sched,
	}

	app.subscribeEventLog()

	return app, nil
}

// subscribeEventLog mirrors lifecycle events into the structured log.
func (a *App) subscribeEventLog() {
	logStatus := func(ctx context.Context, event interfaces.Event) error {
		change, ok := event.Payload.(interfaces.StatusChange)
		if !ok {
			return nil
		}
		entry := a.Logger.Info().
			Str("content_id", change.ContentID).
			Str("from", change.From).
			Str("to", change.To)
		if change.Reason != "" {
			entry = entry.Str("reason", change.Reason)
		}
		entry.Msg("Lifecycle event")
		return nil
	}

	if err := a.EventService.Subscribe(interfaces.EventStatusChanged, logStatus); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to subscribe event log")
	}
}

// Start launches the pipeline workers and the maintenance scheduler.
func (a *App) Start() error {
	a.Pipeline.Start()

	if a.Config.Scheduler.Enabled {
		if err := a.Scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	return nil
}

// Close stops the workers and releases the database.
func (a *App) Close() {
	a.Pipeline.Stop()
	if a.Config.Scheduler.Enabled {
		a.Scheduler.Stop()
	}
	if a.EventService != nil {
		a.EventService.Close()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
	a.Logger.Info().Msg("Application stopped")
}
