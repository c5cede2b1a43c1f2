package models

import "time"

// ContentMetadata is the descriptive metadata returned by a transcript
// fetch. Counts default to zero when the backend cannot supply them; the
// quality scorer treats missing signals as low, not as errors.
type ContentMetadata struct {
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	ChannelName     string     `json:"channel_name,omitempty"`
	SubscriberCount int64      `json:"subscriber_count,omitempty"`
	IsVerified      bool       `json:"is_verified,omitempty"`
	ViewCount       int64      `json:"view_count,omitempty"`
	LikeCount       int64      `json:"like_count,omitempty"`
	CommentCount    int64      `json:"comment_count,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
	HasCaptions     bool       `json:"has_captions,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
}
