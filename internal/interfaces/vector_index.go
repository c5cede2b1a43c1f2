package interfaces

import (
	"context"

	"github.com/autodidact-ai/curator/internal/models"
)

// VectorIndex is the searchable index the ingestion stage writes to. The
// concrete store (embedding generation included) is an external collaborator;
// this contract only requires idempotent upserts keyed by content ID.
type VectorIndex interface {
	// Upsert inserts or replaces the entry. Re-upserting identical content
	// for an existing content ID must silently succeed without creating a
	// duplicate.
	Upsert(ctx context.Context, entry *models.IndexEntry) error

	Get(ctx context.Context, contentID string) (*models.IndexEntry, error)
	Count(ctx context.Context) (int, error)
}
