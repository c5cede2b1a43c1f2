package scoring

import (
	"errors"
	"fmt"
)

// ErrEmptyMetrics is returned when there is nothing to score: no query
// context and no content text. Scoring is deterministic, so callers must not
// retry this error.
var ErrEmptyMetrics = errors.New("metrics carry no scoreable content")

// Score calculates the comprehensive quality score for content.
//
// The overall score is the fixed convex combination of the five factors:
// relevance*0.30 + authority*0.25 + engagement*0.20 + freshness*0.15 +
// completeness*0.10. Deterministic: identical metrics produce identical
// factor values and overall.
func Score(m Metrics) (QualityScore, error) {
	if m.Query == "" && m.Title == "" && m.Transcript == "" {
		return QualityScore{}, ErrEmptyMetrics
	}

	relevance := CalculateRelevance(m)
	authority := CalculateAuthority(m)
	engagement := CalculateEngagement(m)
	freshness := CalculateFreshness(m)
	completeness := CalculateCompleteness(m)

	overall := relevance.Score*WeightRelevance +
		authority.Score*WeightAuthority +
		engagement.Score*WeightEngagement +
		freshness.Score*WeightFreshness +
		completeness.Score*WeightCompleteness

	return QualityScore{
		Overall:      ClampFloat64(overall, 0, 1),
		Relevance:    relevance,
		Authority:    authority,
		Engagement:   engagement,
		Freshness:    freshness,
		Completeness: completeness,
	}, nil
}

// PassesThreshold reports whether the overall score meets the supplied
// minimum. The threshold is caller-owned so the same scorer serves both
// relaxed pre-filtering and the final gate.
func PassesThreshold(score QualityScore, minThreshold float64) bool {
	return score.Overall >= minThreshold
}

// String renders a human-readable breakdown for logs and review queues.
func (q QualityScore) String() string {
	return fmt.Sprintf(
		"Quality Score: %.2f\n"+
			"  Relevance:    %.2f (30%%)\n"+
			"  Authority:    %.2f (25%%)\n"+
			"  Engagement:   %.2f (20%%)\n"+
			"  Freshness:    %.2f (15%%)\n"+
			"  Completeness: %.2f (10%%)",
		q.Overall, q.Relevance.Score, q.Authority.Score,
		q.Engagement.Score, q.Freshness.Score, q.Completeness.Score)
}
