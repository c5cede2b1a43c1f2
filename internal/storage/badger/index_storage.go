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

// ErrEntryNotFound is returned when no index entry exists for a content ID.
var ErrEntryNotFound = errors.New("index entry not found")

// IndexStorage implements the VectorIndex interface on badgerhold. Embedding
// generation happens downstream of this store; the pipeline only guarantees
// the searchable record exists exactly once per content ID.
type IndexStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewIndexStorage creates an IndexStorage instance.
func NewIndexStorage(db *BadgerDB, logger arbor.ILogger) interfaces.VectorIndex {
	return &IndexStorage{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts or replaces the entry keyed by content ID. A redelivered
// ingestion with identical content is a silent no-op that preserves the
// original timestamps.
func (s *IndexStorage) Upsert(ctx context.Context, entry *models.IndexEntry) error {
	if entry.ContentID == "" {
		return fmt.Errorf("content ID is required")
	}

	now := time.Now()

	var existing models.IndexEntry
	err := s.db.Store().Get(entry.ContentID, &existing)
	switch {
	case err == nil:
		if existing.SameContent(entry) {
			s.logger.Debug().
				Str("content_id", entry.ContentID).
				Msg("Index entry unchanged, skipping upsert")
			return nil
		}
		entry.CreatedAt = existing.CreatedAt
		entry.UpdatedAt = now
	case errors.Is(err, badgerhold.ErrNotFound):
		entry.CreatedAt = now
		entry.UpdatedAt = now
	default:
		return fmt.Errorf("failed to read index entry: %w", err)
	}

	if err := s.db.Store().Upsert(entry.ContentID, entry); err != nil {
		return fmt.Errorf("failed to upsert index entry: %w", err)
	}
	return nil
}

func (s *IndexStorage) Get(ctx context.Context, contentID string) (*models.IndexEntry, error) {
	var entry models.IndexEntry
	if err := s.db.Store().Get(contentID, &entry); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, contentID)
		}
		return nil, fmt.Errorf("failed to get index entry: %w", err)
	}
	return &entry, nil
}

func (s *IndexStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.IndexEntry{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count index entries: %w", err)
	}
	return int(count), nil
}
