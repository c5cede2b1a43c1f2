package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/autodidact-ai/curator/internal/interfaces"
	"github.com/autodidact-ai/curator/internal/models"
	"github.com/autodidact-ai/curator/internal/scoring"
)

// handleQualityGate consumes content.fetched. It scores the content and
// routes it: at or above the threshold it goes downstream for ingestion,
// below it parks in pending_review for a human decision.
func (p *Pipeline) handleQualityGate(ctx context.Context, msg *interfaces.QueueMessage) error {
	proceed, err := p.beginStage(ctx, msg.Task.ContentID, models.StatusScoring)
	if err != nil || !proceed {
		return err
	}

	var content models.FetchedContent
	if err := msg.Task.DecodePayload(&content); err != nil {
		return p.lifecycle.SetStatus(ctx, msg.Task.ContentID, models.StatusErrorValidation, &interfaces.StatusUpdate{
			Reason: fmt.Sprintf("malformed fetched payload: %v", err),
		})
	}

	query := p.queryContext(msg.Task.ContentID, content)

	score, err := scoring.Score(scoring.MetricsFrom(query, content.Transcript, content.Metadata))
	if err != nil {
		// scoring is deterministic, retrying the same input cannot help
		return p.lifecycle.SetStatus(ctx, msg.Task.ContentID, models.StatusErrorValidation, &interfaces.StatusUpdate{
			Reason: fmt.Sprintf("scoring failed: %v", err),
		})
	}

	overall := score.Overall
	breakdown := score.Breakdown()
	threshold := p.config.Pipeline.QualityThreshold

	if !scoring.PassesThreshold(score, threshold) {
		p.logger.Info().
			Str("content_id", msg.Task.ContentID).
			Str("score", fmt.Sprintf("%.2f", overall)).
			Str("threshold", fmt.Sprintf("%.2f", threshold)).
			Msg("Below quality threshold, parking for review")

		return p.lifecycle.SetStatus(ctx, msg.Task.ContentID, models.StatusPendingReview, &interfaces.StatusUpdate{
			Score:     &overall,
			Breakdown: &breakdown,
			Reason:    fmt.Sprintf("quality score %.2f below threshold %.2f", overall, threshold),
		})
	}

	if err := p.lifecycle.SetStatus(ctx, msg.Task.ContentID, models.StatusApproved, &interfaces.StatusUpdate{
		Score:     &overall,
		Breakdown: &breakdown,
	}); err != nil {
		return err
	}

	p.logger.Info().
		Str("content_id", msg.Task.ContentID).
		Str("score", fmt.Sprintf("%.2f", overall)).
		Msg("Quality gate passed")

	return p.publishNext(ctx, p.validatedQueue, msg.Task.ContentID, models.ValidatedContent{
		SourceURL:        content.SourceURL,
		Transcript:       content.Transcript,
		Metadata:         content.Metadata,
		QualityScore:     overall,
		QualityBreakdown: breakdown,
	})
}

// queryContext derives the relevance query from the classification hints,
// falling back to the video title when no hints were supplied.
func (p *Pipeline) queryContext(contentID string, content models.FetchedContent) string {
	if content.Hints.IsZero() {
		p.logger.Warn().
			Str("content_id", contentID).
			Msg("No classification hints, falling back to title for relevance query")
		return content.Metadata.Title
	}

	parts := make([]string, 0, 3)
	for _, part := range []string{content.Hints.Domain, content.Hints.Subdomain, content.Hints.Difficulty} {
		if part == "" {
			continue
		}
		parts = append(parts, strings.ToLower(strings.ReplaceAll(part, "_", " ")))
	}
	return strings.Join(parts, " ")
}
