package scoring

import "fmt"

// transcriptSampleBytes limits how much transcript text participates in
// relevance matching; the opening of a lecture names its topic.
const transcriptSampleBytes = 500

// CalculateRelevance scores query-content alignment.
// Score: 0.0 to 1.0
//
// Keyword overlap between the query context and:
// - title (40%)
// - description (30%)
// - first ~500 chars of transcript (20%)
// - tags (10%)
//
// Each field overlap is normalized by the query term count.
func CalculateRelevance(m Metrics) RelevanceResult {
	queryTerms := ExtractKeywords(m.Query)

	if len(queryTerms) == 0 {
		return RelevanceResult{
			Score:      0,
			Components: RelevanceComponents{},
			Reasoning:  "No usable query terms: relevance cannot be assessed",
		}
	}

	norm := float64(len(queryTerms))

	titleScore := ClampFloat64(float64(keywordOverlap(queryTerms, ExtractKeywords(m.Title)))/norm, 0, 1)
	descScore := ClampFloat64(float64(keywordOverlap(queryTerms, ExtractKeywords(m.Description)))/norm, 0, 1)

	sample := m.Transcript
	if len(sample) > transcriptSampleBytes {
		sample = sample[:transcriptSampleBytes]
	}
	transcriptScore := ClampFloat64(float64(keywordOverlap(queryTerms, ExtractKeywords(sample)))/norm, 0, 1)

	tagTerms := make(map[string]struct{})
	for _, tag := range m.Tags {
		for word := range ExtractKeywords(tag) {
			tagTerms[word] = struct{}{}
		}
	}
	tagScore := ClampFloat64(float64(keywordOverlap(queryTerms, tagTerms))/norm, 0, 1)

	score := titleScore*RelevanceWeightTitle +
		descScore*RelevanceWeightDescription +
		transcriptScore*RelevanceWeightTranscript +
		tagScore*RelevanceWeightTags

	return RelevanceResult{
		Score: ClampFloat64(score, 0, 1),
		Components: RelevanceComponents{
			QueryTerms:       len(queryTerms),
			TitleScore:       titleScore,
			DescriptionScore: descScore,
			TranscriptScore:  transcriptScore,
			TagScore:         tagScore,
		},
		Reasoning: fmt.Sprintf("Matched %d query terms: title=%.2f desc=%.2f transcript=%.2f tags=%.2f",
			len(queryTerms), titleScore, descScore, transcriptScore, tagScore),
	}
}
