package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/autodidact-ai/curator/internal/interfaces"
	"github.com/autodidact-ai/curator/internal/models"
)

// handleIngest consumes content.validated. It writes the searchable index
// entry, closes out the lifecycle, and announces the ingestion downstream.
func (p *Pipeline) handleIngest(ctx context.Context, msg *interfaces.QueueMessage) error {
	proceed, err := p.beginStage(ctx, msg.Task.ContentID, models.StatusIngesting)
	if err != nil || !proceed {
		return err
	}

	var content models.ValidatedContent
	if err := msg.Task.DecodePayload(&content); err != nil {
		return p.lifecycle.SetStatus(ctx, msg.Task.ContentID, models.StatusErrorIngestion, &interfaces.StatusUpdate{
			Reason: fmt.Sprintf("malformed validated payload: %v", err),
		})
	}

	item, err := p.lifecycle.Get(ctx, msg.Task.ContentID)
	if err != nil {
		return err
	}

	entry := &models.IndexEntry{
		ContentID:        msg.Task.ContentID,
		SourceURL:        content.SourceURL,
		Title:            content.Metadata.Title,
		ChannelName:      content.Metadata.ChannelName,
		Text:             content.Transcript,
		WordCount:        len(strings.Fields(content.Transcript)),
		QualityScore:     content.QualityScore,
		QualityBreakdown: content.QualityBreakdown,
		Hints:            item.Hints,
	}

	if err := p.index.Upsert(ctx, entry); err != nil {
		return p.retryOrFail(ctx, p.validatedQueue, msg.Task, models.StatusErrorIngestion, err)
	}

	if err := p.lifecycle.SetStatus(ctx, msg.Task.ContentID, models.StatusIngested, nil); err != nil {
		return err
	}

	p.logger.Info().
		Str("content_id", msg.Task.ContentID).
		Str("title", content.Metadata.Title).
		Int("words", entry.WordCount).
		Msg("Content ingested")

	if err := p.publishNext(ctx, p.ingestedQueue, msg.Task.ContentID, models.IngestionNotice{
		SourceURL: content.SourceURL,
		Score:     content.QualityScore,
	}); err != nil {
		return err
	}

	if p.events != nil {
		if err := p.events.Publish(ctx, interfaces.Event{
			Type: interfaces.EventContentIngested,
			Payload: interfaces.StatusChange{
				ContentID: msg.Task.ContentID,
				To:        string(models.StatusIngested),
			},
		}); err != nil {
			p.logger.Warn().Err(err).Str("content_id", msg.Task.ContentID).Msg("Failed to publish ingestion event")
		}
	}

	return nil
}
