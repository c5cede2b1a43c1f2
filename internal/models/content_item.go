package models

import (
	"errors"
	"fmt"
	"time"
)

// ContentStatus is the lifecycle state of a content item.
type ContentStatus string

const (
	StatusDiscovered          ContentStatus = "discovered"
	StatusFetching            ContentStatus = "fetching"
	StatusFetched             ContentStatus = "fetched"
	StatusScoring             ContentStatus = "scoring"
	StatusApproved            ContentStatus = "approved"
	StatusIngesting           ContentStatus = "ingesting"
	StatusIngested            ContentStatus = "ingested"
	StatusPendingReview       ContentStatus = "pending_review"
	StatusRejected            ContentStatus = "rejected"
	StatusSkippedNoTranscript ContentStatus = "skipped_no_transcript"
	StatusErrorFetch          ContentStatus = "error_fetch"
	StatusErrorValidation     ContentStatus = "error_validation"
	StatusErrorIngestion      ContentStatus = "error_ingestion"
)

// ErrInvalidTransition is returned when a status change violates the lifecycle
// state machine.
var ErrInvalidTransition = errors.New("invalid status transition")

// validTransitions is the lifecycle state machine. A missing entry means the
// state is terminal (no automatic processing continues from it).
var validTransitions = map[ContentStatus][]ContentStatus{
	StatusDiscovered: {StatusFetching},
	StatusFetching:   {StatusFetched, StatusSkippedNoTranscript, StatusErrorFetch},
	StatusFetched:    {StatusScoring},
	StatusScoring:    {StatusApproved, StatusPendingReview, StatusErrorValidation},
	StatusApproved:   {StatusIngesting, StatusFetching},
	StatusIngesting:  {StatusIngested, StatusErrorIngestion},
	// pending_review is the only paused state: a human review action moves it
	// to approved (re-admission) or rejected (terminal).
	StatusPendingReview: {StatusApproved, StatusRejected},
	// Terminal error states accept a fresh orchestrator submission.
	StatusErrorFetch:      {StatusDiscovered},
	StatusErrorValidation: {StatusDiscovered},
	StatusErrorIngestion:  {StatusDiscovered},
}

// CanTransitionTo reports whether the state machine allows moving to next.
// Re-applying the current status is always allowed so that status writes stay
// idempotent under at-least-once message redelivery.
func (s ContentStatus) CanTransitionTo(next ContentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further automatic processing occurs from s.
func (s ContentStatus) IsTerminal() bool {
	switch s {
	case StatusIngested, StatusRejected, StatusSkippedNoTranscript,
		StatusErrorFetch, StatusErrorValidation, StatusErrorIngestion:
		return true
	}
	return false
}

// IsResubmittable reports whether a fresh Submit may restart the pipeline for
// an item in this state. Rejected and skipped items stay closed: re-admitting
// a rejected item requires an explicit human approval, and re-fetching a video
// without a transcript cannot change the outcome.
func (s ContentStatus) IsResubmittable() bool {
	switch s {
	case StatusErrorFetch, StatusErrorValidation, StatusErrorIngestion:
		return true
	}
	return false
}

// ClassificationHints is optional caller-supplied metadata used to derive the
// query context for relevance scoring.
type ClassificationHints struct {
	Domain     string `json:"domain,omitempty"`
	Subdomain  string `json:"subdomain,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// IsZero reports whether no hints were supplied.
func (h ClassificationHints) IsZero() bool {
	return h.Domain == "" && h.Subdomain == "" && h.Difficulty == ""
}

// QualityBreakdown holds the five factor scores persisted alongside the
// overall quality score.
type QualityBreakdown struct {
	Relevance    float64 `json:"relevance"`
	Authority    float64 `json:"authority"`
	Engagement   float64 `json:"engagement"`
	Freshness    float64 `json:"freshness"`
	Completeness float64 `json:"completeness"`
}

// ContentItem is the persisted lifecycle record for one piece of content.
// Items are never deleted, only transitioned, so the store doubles as an audit
// trail and guards against re-fetching already-rejected content.
type ContentItem struct {
	ID               string              `json:"id" badgerhold:"key"`
	SourceURL        string              `json:"source_url"`
	Status           ContentStatus       `json:"status" badgerhold:"index"`
	QualityScore     *float64            `json:"quality_score,omitempty"`
	QualityBreakdown *QualityBreakdown   `json:"quality_breakdown,omitempty"`
	RejectionReason  string              `json:"rejection_reason,omitempty"`
	Hints            ClassificationHints `json:"hints,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	LastUpdatedAt    time.Time           `json:"last_updated_at"`
}

// Transition validates and applies a status change.
func (c *ContentItem) Transition(next ContentStatus) error {
	if !c.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, next)
	}
	c.Status = next
	c.LastUpdatedAt = time.Now()
	return nil
}
