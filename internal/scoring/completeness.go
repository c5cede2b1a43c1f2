package scoring

import (
	"fmt"
	"strings"
)

// CalculateCompleteness scores content depth and metadata richness.
// Score: 0.0 to 1.0
//
// - transcript word count buckets (40%)
// - duration sweet-spot: 10-30 min is ideal lecture length (30%)
// - caption availability (20%)
// - description word count buckets (10%)
func CalculateCompleteness(m Metrics) CompletenessResult {
	transcriptWords := countWords(m.Transcript)
	var transcriptScore float64
	switch {
	case transcriptWords >= 500:
		transcriptScore = 1.0
	case transcriptWords >= 200:
		transcriptScore = 0.7
	case transcriptWords >= 100:
		transcriptScore = 0.5
	default:
		transcriptScore = 0.3
	}

	durationMin := float64(m.DurationSeconds) / 60
	var durationScore float64
	switch {
	case durationMin >= 10 && durationMin <= 30:
		durationScore = 1.0
	case durationMin >= 5 && durationMin < 10:
		durationScore = 0.8
	case durationMin > 30 && durationMin <= 60:
		durationScore = 0.9
	case durationMin < 5:
		durationScore = 0.5
	default:
		durationScore = 0.7
	}

	captionScore := 0.3
	if m.HasCaptions {
		captionScore = 1.0
	}

	descWords := countWords(m.Description)
	var descScore float64
	switch {
	case descWords >= 50:
		descScore = 1.0
	case descWords >= 20:
		descScore = 0.7
	default:
		descScore = 0.4
	}

	score := transcriptScore*CompletenessWeightTranscript +
		durationScore*CompletenessWeightDuration +
		captionScore*CompletenessWeightCaptions +
		descScore*CompletenessWeightDescription

	return CompletenessResult{
		Score: ClampFloat64(score, 0, 1),
		Components: CompletenessComponents{
			TranscriptWords:  transcriptWords,
			TranscriptScore:  transcriptScore,
			DurationScore:    durationScore,
			CaptionScore:     captionScore,
			DescriptionScore: descScore,
		},
		Reasoning: fmt.Sprintf("%d transcript words, %.0f min, captions=%t",
			transcriptWords, durationMin, m.HasCaptions),
	}
}

func countWords(text string) int {
	if text == "" {
		return 0
	}
	return len(strings.Fields(text))
}
