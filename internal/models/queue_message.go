package models

import (
	"encoding/json"
	"errors"
)

// ErrNoMessage is returned when the queue is empty.
var ErrNoMessage = errors.New("no messages in queue")

// Stage queue names. Topology is fixed and linear: each stage consumes one
// queue and publishes to the next.
const (
	QueueContentNew       = "content.new"
	QueueContentFetched   = "content.fetched"
	QueueContentValidated = "content.validated"
	QueueContentIngested  = "content.ingested"
)

// MessageAttributes travel outside the payload body so retry state can be
// inspected without deserializing the stage payload. RetryCount never
// decreases within a stage; each stage publishes downstream with a fresh
// counter.
type MessageAttributes struct {
	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// TaskMessage is the envelope carried on every stage queue.
type TaskMessage struct {
	ContentID  string            `json:"content_id"`
	Attributes MessageAttributes `json:"attributes"`
	Payload    json.RawMessage   `json:"payload"`
}

// NewTaskMessage builds an envelope with a freshly marshalled stage payload
// and a zero retry counter.
func NewTaskMessage(contentID string, maxRetries int, payload any) (TaskMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return TaskMessage{}, err
	}
	return TaskMessage{
		ContentID:  contentID,
		Attributes: MessageAttributes{MaxRetries: maxRetries},
		Payload:    body,
	}, nil
}

// DecodePayload unmarshals the stage payload into the given typed payload
// struct. A decode failure is a contract violation (FatalError), not a
// transient one.
func (m TaskMessage) DecodePayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// FetchTask is the payload on content.new. BypassGate marks a human-review
// re-admission: the transcript is re-fetched (raw text is not retained after
// gate processing) and the item skips the quality gate on its way to
// ingestion.
type FetchTask struct {
	SourceURL  string              `json:"source_url"`
	Hints      ClassificationHints `json:"hints,omitempty"`
	BypassGate bool                `json:"bypass_gate,omitempty"`
}

// FetchedContent is the payload on content.fetched.
type FetchedContent struct {
	SourceURL  string              `json:"source_url"`
	Transcript string              `json:"transcript"`
	Metadata   ContentMetadata     `json:"metadata"`
	Hints      ClassificationHints `json:"hints,omitempty"`
}

// ValidatedContent is the payload on content.validated.
type ValidatedContent struct {
	SourceURL        string           `json:"source_url"`
	Transcript       string           `json:"transcript"`
	Metadata         ContentMetadata  `json:"metadata"`
	QualityScore     float64          `json:"quality_score"`
	QualityBreakdown QualityBreakdown `json:"quality_breakdown"`
}

// IngestionNotice is the payload on content.ingested, consumed by external
// observers (dashboard, batch callers).
type IngestionNotice struct {
	SourceURL string  `json:"source_url"`
	Score     float64 `json:"score"`
}
