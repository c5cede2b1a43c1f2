package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/autodidact-ai/curator/internal/interfaces"
	"github.com/autodidact-ai/curator/internal/models"
)

// ErrNotFound is returned when no lifecycle record exists for a content ID.
var ErrNotFound = errors.New("content item not found")

// ErrAlreadyExists is returned by Create when the content ID is taken.
var ErrAlreadyExists = errors.New("content item already exists")

// LifecycleStorage implements the LifecycleStore interface on badgerhold.
// Every status change is validated against the lifecycle state machine before
// it is persisted, and published on the event bus after.
type LifecycleStorage struct {
	db     *BadgerDB
	events interfaces.EventService
	logger arbor.ILogger
}

// NewLifecycleStorage creates a LifecycleStorage. The event service may be
// nil in tests; status changes are then persisted without notification.
func NewLifecycleStorage(db *BadgerDB, events interfaces.EventService, logger arbor.ILogger) interfaces.LifecycleStore {
	return &LifecycleStorage{
		db:     db,
		events: events,
		logger: logger,
	}
}

func (s *LifecycleStorage) Create(ctx context.Context, item *models.ContentItem) error {
	if item.ID == "" {
		return fmt.Errorf("content ID is required")
	}

	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.LastUpdatedAt = now

	if err := s.db.Store().Insert(item.ID, item); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, item.ID)
		}
		return fmt.Errorf("failed to create content item: %w", err)
	}
	return nil
}

func (s *LifecycleStorage) Get(ctx context.Context, id string) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := s.db.Store().Get(id, &item); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}
	return &item, nil
}

// SetStatus validates and applies a status change. Writing the status the
// item already has is a no-op success so redelivered messages can replay
// their writes. Update fields are applied only when the transition is real.
func (s *LifecycleStorage) SetStatus(ctx context.Context, id string, status models.ContentStatus, update *interfaces.StatusUpdate) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if item.Status == status {
		s.logger.Debug().
			Str("content_id", id).
			Str("status", string(status)).
			Msg("Status already applied, skipping")
		return nil
	}

	from := item.Status
	if err := item.Transition(status); err != nil {
		return err
	}

	reason := ""
	if update != nil {
		if update.Score != nil {
			item.QualityScore = update.Score
		}
		if update.Breakdown != nil {
			item.QualityBreakdown = update.Breakdown
		}
		if update.Reason != "" {
			item.RejectionReason = update.Reason
		}
		reason = update.Reason
	}

	if err := s.db.Store().Upsert(item.ID, item); err != nil {
		return fmt.Errorf("failed to persist status change: %w", err)
	}

	s.logger.Info().
		Str("content_id", id).
		Str("from", string(from)).
		Str("to", string(status)).
		Msg("Content status changed")

	if s.events != nil {
		err := s.events.Publish(ctx, interfaces.Event{
			Type: interfaces.EventStatusChanged,
			Payload: interfaces.StatusChange{
				ContentID: id,
				From:      string(from),
				To:        string(status),
				Reason:    reason,
			},
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("content_id", id).Msg("Failed to publish status change event")
		}
	}

	return nil
}

func (s *LifecycleStorage) ListByStatus(ctx context.Context, status models.ContentStatus, limit int) ([]*models.ContentItem, error) {
	query := badgerhold.Where("Status").Eq(status).Index("Status")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var items []models.ContentItem
	if err := s.db.Store().Find(&items, query); err != nil {
		return nil, fmt.Errorf("failed to list content items: %w", err)
	}

	result := make([]*models.ContentItem, len(items))
	for i := range items {
		result[i] = &items[i]
	}
	return result, nil
}

func (s *LifecycleStorage) CountByStatus(ctx context.Context, status models.ContentStatus) (int, error) {
	count, err := s.db.Store().Count(&models.ContentItem{}, badgerhold.Where("Status").Eq(status).Index("Status"))
	if err != nil {
		return 0, fmt.Errorf("failed to count content items: %w", err)
	}
	return int(count), nil
}
