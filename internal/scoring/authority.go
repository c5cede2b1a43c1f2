package scoring

import (
	"fmt"
	"math"
)

// logAudienceDivisor normalizes log10 audience counts so that roughly a
// million subscribers or views approaches a full score.
const logAudienceDivisor = 6.5

// CalculateAuthority scores source credibility and reach.
// Score: 0.0 to 1.0
//
// - subscriber count on a log10 curve (40%)
// - verification flag, unverified channels keep half credit (30%)
// - view count on a log10 curve (30%)
func CalculateAuthority(m Metrics) AuthorityResult {
	subscriberScore := 0.0
	if m.SubscriberCount > 0 {
		subscriberScore = math.Min(1, math.Log10(float64(m.SubscriberCount))/logAudienceDivisor)
	}

	verifiedScore := 0.5
	if m.IsVerified {
		verifiedScore = 1.0
	}

	viewScore := 0.0
	if m.ViewCount > 0 {
		viewScore = math.Min(1, math.Log10(float64(m.ViewCount))/logAudienceDivisor)
	}

	score := subscriberScore*AuthorityWeightSubscribers +
		verifiedScore*AuthorityWeightVerified +
		viewScore*AuthorityWeightViews

	return AuthorityResult{
		Score: ClampFloat64(score, 0, 1),
		Components: AuthorityComponents{
			SubscriberScore: subscriberScore,
			VerifiedScore:   verifiedScore,
			ViewScore:       viewScore,
		},
		Reasoning: fmt.Sprintf("%d subscribers, %d views, verified=%t",
			m.SubscriberCount, m.ViewCount, m.IsVerified),
	}
}
