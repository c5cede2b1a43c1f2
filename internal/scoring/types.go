// Package scoring provides pure calculation functions for content quality
// assessment. All functions are stateless and perform no I/O.
package scoring

import (
	"time"

	"github.com/autodidact-ai/curator/internal/models"
)

// Factor weights for the overall score. Must sum to 1.0.
const (
	WeightRelevance    = 0.30
	WeightAuthority    = 0.25
	WeightEngagement   = 0.20
	WeightFreshness    = 0.15
	WeightCompleteness = 0.10
)

// Relevance sub-weights
const (
	RelevanceWeightTitle       = 0.40
	RelevanceWeightDescription = 0.30
	RelevanceWeightTranscript  = 0.20
	RelevanceWeightTags        = 0.10
)

// Authority sub-weights
const (
	AuthorityWeightSubscribers = 0.40
	AuthorityWeightVerified    = 0.30
	AuthorityWeightViews       = 0.30
)

// Engagement sub-weights
const (
	EngagementWeightLikes    = 0.60
	EngagementWeightComments = 0.40
)

// Completeness sub-weights
const (
	CompletenessWeightTranscript  = 0.40
	CompletenessWeightDuration    = 0.30
	CompletenessWeightCaptions    = 0.20
	CompletenessWeightDescription = 0.10
)

// Metrics is the raw input for quality scoring: the query context the content
// is judged against, the fetched text, and the engagement signals.
type Metrics struct {
	Query       string
	Title       string
	Description string
	Transcript  string
	Tags        []string

	ChannelName     string
	SubscriberCount int64
	IsVerified      bool
	ViewCount       int64

	LikeCount    int64
	CommentCount int64

	PublishedAt *time.Time

	DurationSeconds int
	HasCaptions     bool

	// Now is the evaluation reference time for freshness. Zero means
	// time.Now(); tests pin it for deterministic results.
	Now time.Time
}

// MetricsFrom builds scoring input from fetched content.
func MetricsFrom(query, transcript string, meta models.ContentMetadata) Metrics {
	return Metrics{
		Query:           query,
		Title:           meta.Title,
		Description:     meta.Description,
		Transcript:      transcript,
		Tags:            meta.Tags,
		ChannelName:     meta.ChannelName,
		SubscriberCount: meta.SubscriberCount,
		IsVerified:      meta.IsVerified,
		ViewCount:       meta.ViewCount,
		LikeCount:       meta.LikeCount,
		CommentCount:    meta.CommentCount,
		PublishedAt:     meta.PublishedAt,
		DurationSeconds: meta.DurationSeconds,
		HasCaptions:     meta.HasCaptions,
	}
}

// RelevanceComponents holds relevance calculation details
type RelevanceComponents struct {
	QueryTerms       int     `json:"query_terms"`
	TitleScore       float64 `json:"title_score"`
	DescriptionScore float64 `json:"description_score"`
	TranscriptScore  float64 `json:"transcript_score"`
	TagScore         float64 `json:"tag_score"`
}

// RelevanceResult is the output of CalculateRelevance
type RelevanceResult struct {
	Score      float64             `json:"score"` // 0.0 to 1.0
	Components RelevanceComponents `json:"components"`
	Reasoning  string              `json:"reasoning"`
}

// AuthorityComponents holds authority calculation details
type AuthorityComponents struct {
	SubscriberScore float64 `json:"subscriber_score"`
	VerifiedScore   float64 `json:"verified_score"`
	ViewScore       float64 `json:"view_score"`
}

// AuthorityResult is the output of CalculateAuthority
type AuthorityResult struct {
	Score      float64             `json:"score"` // 0.0 to 1.0
	Components AuthorityComponents `json:"components"`
	Reasoning  string              `json:"reasoning"`
}

// EngagementComponents holds engagement calculation details
type EngagementComponents struct {
	LikeRatio    float64 `json:"like_ratio"`
	LikeScore    float64 `json:"like_score"`
	CommentScore float64 `json:"comment_score"`
}

// EngagementResult is the output of CalculateEngagement
type EngagementResult struct {
	Score      float64              `json:"score"` // 0.0 to 1.0
	Components EngagementComponents `json:"components"`
	Reasoning  string               `json:"reasoning"`
}

// FreshnessResult is the output of CalculateFreshness
type FreshnessResult struct {
	Score     float64 `json:"score"` // 0.0 to 1.0
	AgeDays   int     `json:"age_days"`
	KnownDate bool    `json:"known_date"`
	Reasoning string  `json:"reasoning"`
}

// CompletenessComponents holds completeness calculation details
type CompletenessComponents struct {
	TranscriptWords  int     `json:"transcript_words"`
	TranscriptScore  float64 `json:"transcript_score"`
	DurationScore    float64 `json:"duration_score"`
	CaptionScore     float64 `json:"caption_score"`
	DescriptionScore float64 `json:"description_score"`
}

// CompletenessResult is the output of CalculateCompleteness
type CompletenessResult struct {
	Score      float64                `json:"score"` // 0.0 to 1.0
	Components CompletenessComponents `json:"components"`
	Reasoning  string                 `json:"reasoning"`
}

// QualityScore combines the five factor results with the weighted overall
// score. Overall is always recomputed from the factors, never set on its own.
type QualityScore struct {
	Overall      float64            `json:"overall"`
	Relevance    RelevanceResult    `json:"relevance"`
	Authority    AuthorityResult    `json:"authority"`
	Engagement   EngagementResult   `json:"engagement"`
	Freshness    FreshnessResult    `json:"freshness"`
	Completeness CompletenessResult `json:"completeness"`
}

// Breakdown returns the persisted five-factor tuple.
func (q QualityScore) Breakdown() models.QualityBreakdown {
	return models.QualityBreakdown{
		Relevance:    q.Relevance.Score,
		Authority:    q.Authority.Score,
		Engagement:   q.Engagement.Score,
		Freshness:    q.Freshness.Score,
		Completeness: q.Completeness.Score,
	}
}
