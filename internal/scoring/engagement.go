package scoring

import (
	"fmt"
	"math"
)

// goodLikeRatio is the like-to-view ratio treated as a full engagement score.
const goodLikeRatio = 0.05

// CalculateEngagement scores user interaction.
// Score: 0.0 to 1.0
//
// - like-to-view ratio scaled against a 5% "good" ratio (60%)
// - comment volume on a log10 curve (40%)
func CalculateEngagement(m Metrics) EngagementResult {
	likeRatio := 0.0
	likeScore := 0.0
	if m.ViewCount > 0 {
		likeRatio = float64(m.LikeCount) / float64(m.ViewCount)
		likeScore = math.Min(1, likeRatio/goodLikeRatio)
	}

	commentScore := 0.0
	if m.CommentCount > 0 {
		commentScore = math.Min(1, math.Log10(float64(m.CommentCount)+1)/3.5)
	}

	score := likeScore*EngagementWeightLikes + commentScore*EngagementWeightComments

	return EngagementResult{
		Score: ClampFloat64(score, 0, 1),
		Components: EngagementComponents{
			LikeRatio:    likeRatio,
			LikeScore:    likeScore,
			CommentScore: commentScore,
		},
		Reasoning: fmt.Sprintf("like ratio %.3f, %d comments", likeRatio, m.CommentCount),
	}
}
