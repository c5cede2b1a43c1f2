package scoring

import (
	"fmt"
	"time"
)

// CalculateFreshness scores content recency on a step decay curve.
// Score: 0.0 to 1.0
//
// <30d=1.0, <180d=0.9, <365d=0.7, <730d=0.5, <1095d=0.3, else 0.2.
// An unknown publish date scores a neutral 0.5 rather than a penalty.
func CalculateFreshness(m Metrics) FreshnessResult {
	if m.PublishedAt == nil {
		return FreshnessResult{
			Score:     0.5,
			KnownDate: false,
			Reasoning: "Neutral: publish date unknown",
		}
	}

	now := m.Now
	if now.IsZero() {
		now = time.Now()
	}

	ageDays := int(now.Sub(*m.PublishedAt).Hours() / 24)

	var score float64
	switch {
	case ageDays < 30:
		score = 1.0
	case ageDays < 180:
		score = 0.9
	case ageDays < 365:
		score = 0.7
	case ageDays < 730:
		score = 0.5
	case ageDays < 1095:
		score = 0.3
	default:
		score = 0.2
	}

	return FreshnessResult{
		Score:     score,
		AgeDays:   ageDays,
		KnownDate: true,
		Reasoning: fmt.Sprintf("Content is %d days old", ageDays),
	}
}
