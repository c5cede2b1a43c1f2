package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/autodidact-ai/curator/internal/interfaces"
	"github.com/autodidact-ai/curator/internal/models"
)

// handleFetch consumes content.new. It retrieves the transcript through the
// proxy pool and publishes the fetched content downstream. Outcomes:
// success moves the item to fetched, a missing transcript is a terminal
// skip, anything else burns a retry.
func (p *Pipeline) handleFetch(ctx context.Context, msg *interfaces.QueueMessage) error {
	proceed, err := p.beginStage(ctx, msg.Task.ContentID, models.StatusFetching)
	if err != nil || !proceed {
		return err
	}

	var task models.FetchTask
	if err := msg.Task.DecodePayload(&task); err != nil {
		// malformed payload cannot be retried into shape
		return p.lifecycle.SetStatus(ctx, msg.Task.ContentID, models.StatusErrorFetch, &interfaces.StatusUpdate{
			Reason: fmt.Sprintf("malformed fetch payload: %v", err),
		})
	}

	transcript, err := p.fetcher.Fetch(ctx, task.SourceURL)
	if err != nil {
		if errors.Is(err, interfaces.ErrNoTranscript) {
			p.logger.Info().
				Str("content_id", msg.Task.ContentID).
				Str("url", task.SourceURL).
				Msg("No transcript available, skipping")
			return p.lifecycle.SetStatus(ctx, msg.Task.ContentID, models.StatusSkippedNoTranscript, &interfaces.StatusUpdate{
				Reason: "transcript unavailable",
			})
		}
		return p.retryOrFail(ctx, p.newQueue, msg.Task, models.StatusErrorFetch, err)
	}

	if err := p.lifecycle.SetStatus(ctx, msg.Task.ContentID, models.StatusFetched, nil); err != nil {
		return err
	}

	if task.BypassGate {
		return p.readmit(ctx, msg.Task.ContentID, task, transcript)
	}

	return p.publishNext(ctx, p.fetchedQueue, msg.Task.ContentID, models.FetchedContent{
		SourceURL:  task.SourceURL,
		Transcript: transcript.Text,
		Metadata:   transcript.Metadata,
		Hints:      task.Hints,
	})
}

// readmit routes a review-approved item straight to ingestion, reusing the
// score persisted when the gate first evaluated it. The transcript is fresh
// because raw text is not retained across the review pause.
func (p *Pipeline) readmit(ctx context.Context, contentID string, task models.FetchTask, transcript *interfaces.Transcript) error {
	item, err := p.lifecycle.Get(ctx, contentID)
	if err != nil {
		return err
	}

	score := 0.0
	if item.QualityScore != nil {
		score = *item.QualityScore
	}
	var breakdown models.QualityBreakdown
	if item.QualityBreakdown != nil {
		breakdown = *item.QualityBreakdown
	}

	if err := p.lifecycle.SetStatus(ctx, contentID, models.StatusScoring, nil); err != nil {
		return err
	}
	if err := p.lifecycle.SetStatus(ctx, contentID, models.StatusApproved, &interfaces.StatusUpdate{
		Reason: "re-admitted by review",
	}); err != nil {
		return err
	}

	p.logger.Info().
		Str("content_id", contentID).
		Str("score", fmt.Sprintf("%.2f", score)).
		Msg("Review re-admission, bypassing quality gate")

	return p.publishNext(ctx, p.validatedQueue, contentID, models.ValidatedContent{
		SourceURL:        task.SourceURL,
		Transcript:       transcript.Text,
		Metadata:         transcript.Metadata,
		QualityScore:     score,
		QualityBreakdown: breakdown,
	})
}
