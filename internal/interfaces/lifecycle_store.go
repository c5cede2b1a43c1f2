package interfaces

import (
	"context"

	"github.com/autodidact-ai/curator/internal/models"
)

// StatusUpdate carries the optional fields written alongside a status change.
type StatusUpdate struct {
	Score     *float64
	Breakdown *models.QualityBreakdown
	Reason    string
}

// LifecycleStore persists the per-item lifecycle record. Writes are
// single-row upserts keyed by content ID; no cross-row transactions are
// required, so concurrent workers never contend beyond one key.
type LifecycleStore interface {
	Create(ctx context.Context, item *models.ContentItem) error
	Get(ctx context.Context, id string) (*models.ContentItem, error)

	// SetStatus validates the transition against the state machine, applies
	// the optional update fields and persists the row. Re-applying the
	// current status is a no-op success (at-least-once replay).
	SetStatus(ctx context.Context, id string, status models.ContentStatus, update *StatusUpdate) error

	ListByStatus(ctx context.Context, status models.ContentStatus, limit int) ([]*models.ContentItem, error)
	CountByStatus(ctx context.Context, status models.ContentStatus) (int, error)
}
