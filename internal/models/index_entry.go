package models

import "time"

// IndexEntry is the record written to the vector index, keyed by content ID
// so redelivered ingestion messages upsert instead of duplicating.
type IndexEntry struct {
	ContentID        string              `json:"content_id" badgerhold:"key"`
	SourceURL        string              `json:"source_url"`
	Title            string              `json:"title"`
	ChannelName      string              `json:"channel_name,omitempty"`
	Text             string              `json:"text"`
	WordCount        int                 `json:"word_count"`
	QualityScore     float64             `json:"quality_score"`
	QualityBreakdown QualityBreakdown    `json:"quality_breakdown"`
	Hints            ClassificationHints `json:"hints,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// SameContent reports whether other carries identical indexable content, in
// which case a repeated upsert is a silent no-op.
func (e *IndexEntry) SameContent(other *IndexEntry) bool {
	return e.Text == other.Text &&
		e.Title == other.Title &&
		e.QualityScore == other.QualityScore
}
