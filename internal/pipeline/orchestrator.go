package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/autodidact-ai/curator/internal/common"
	"github.com/autodidact-ai/curator/internal/interfaces"
	"github.com/autodidact-ai/curator/internal/models"
)

// ErrDuplicate is returned by Submit when the content is already in the
// pipeline or finished in a non-resubmittable state.
var ErrDuplicate = errors.New("content already submitted")

// ErrNotPendingReview is returned by the review actions when the item is not
// parked in pending_review.
var ErrNotPendingReview = errors.New("content is not pending review")

var urlValidator = validator.New()

// BatchResult is the per-URL outcome of SubmitBatch.
type BatchResult struct {
	SourceURL string `json:"source_url"`
	ContentID string `json:"content_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Submit admits a content URL into the pipeline. The content ID is derived
// from the URL, so submitting the same URL twice is rejected unless the
// previous run ended in a retryable error state.
func (p *Pipeline) Submit(ctx context.Context, sourceURL string, hints models.ClassificationHints) (string, error) {
	if err := urlValidator.Var(sourceURL, "required,url"); err != nil {
		return "", fmt.Errorf("invalid source url %q", sourceURL)
	}

	contentID := common.ContentID(sourceURL)

	existing, err := p.lifecycle.Get(ctx, contentID)
	switch {
	case err == nil:
		if !existing.Status.IsResubmittable() {
			return "", fmt.Errorf("%w: %s is %s", ErrDuplicate, contentID, existing.Status)
		}
		// error states accept a fresh start
		if err := p.lifecycle.SetStatus(ctx, contentID, models.StatusDiscovered, &interfaces.StatusUpdate{
			Reason: "resubmitted after " + string(existing.Status),
		}); err != nil {
			return "", err
		}
	default:
		item := &models.ContentItem{
			ID:        contentID,
			SourceURL: sourceURL,
			Status:    models.StatusDiscovered,
			Hints:     hints,
		}
		if err := p.lifecycle.Create(ctx, item); err != nil {
			return "", err
		}
	}

	if err := p.publishNext(ctx, p.newQueue, contentID, models.FetchTask{
		SourceURL: sourceURL,
		Hints:     hints,
	}); err != nil {
		return "", err
	}

	p.logger.Info().
		Str("content_id", contentID).
		Str("url", sourceURL).
		Msg("Content submitted")

	if p.events != nil {
		if err := p.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventContentSubmitted,
			Payload: interfaces.StatusChange{ContentID: contentID, To: string(models.StatusDiscovered)},
		}); err != nil {
			p.logger.Warn().Err(err).Str("content_id", contentID).Msg("Failed to publish submission event")
		}
	}

	return contentID, nil
}

// SubmitBatch admits many URLs, continuing past individual failures.
func (p *Pipeline) SubmitBatch(ctx context.Context, sourceURLs []string, hints models.ClassificationHints) []BatchResult {
	results := make([]BatchResult, 0, len(sourceURLs))
	for _, url := range sourceURLs {
		contentID, err := p.Submit(ctx, url, hints)
		result := BatchResult{SourceURL: url, ContentID: contentID}
		if err != nil {
			result.Error = err.Error()
			result.ContentID = ""
		}
		results = append(results, result)
	}
	return results
}

// Approve re-admits a pending_review item. The transcript is fetched again
// and the item bypasses the quality gate on its way to ingestion, carrying
// the score recorded when the gate first evaluated it.
func (p *Pipeline) Approve(ctx context.Context, contentID string) error {
	item, err := p.lifecycle.Get(ctx, contentID)
	if err != nil {
		return err
	}
	if item.Status != models.StatusPendingReview {
		return fmt.Errorf("%w: %s is %s", ErrNotPendingReview, contentID, item.Status)
	}

	if err := p.lifecycle.SetStatus(ctx, contentID, models.StatusApproved, &interfaces.StatusUpdate{
		Reason: "approved by review",
	}); err != nil {
		return err
	}

	p.logger.Info().Str("content_id", contentID).Msg("Review approved, re-admitting")

	return p.publishNext(ctx, p.newQueue, contentID, models.FetchTask{
		SourceURL:  item.SourceURL,
		Hints:      item.Hints,
		BypassGate: true,
	})
}

// Reject closes out a pending_review item permanently. A rejected item can
// never be resubmitted; re-admission requires a fresh review decision on a
// different submission.
func (p *Pipeline) Reject(ctx context.Context, contentID, reason string) error {
	item, err := p.lifecycle.Get(ctx, contentID)
	if err != nil {
		return err
	}
	if item.Status != models.StatusPendingReview {
		return fmt.Errorf("%w: %s is %s", ErrNotPendingReview, contentID, item.Status)
	}

	if reason == "" {
		reason = "rejected by review"
	}

	if err := p.lifecycle.SetStatus(ctx, contentID, models.StatusRejected, &interfaces.StatusUpdate{
		Reason: reason,
	}); err != nil {
		return err
	}

	p.logger.Info().Str("content_id", contentID).Str("reason", reason).Msg("Review rejected")
	return nil
}
