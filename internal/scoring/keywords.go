package scoring

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// stopWords are excluded from keyword extraction. Matches the filter used for
// relevance matching across all text fields.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "but": {}, "for": {},
	"with": {}, "from": {}, "was": {}, "are": {}, "been": {},
	"have": {}, "has": {}, "had": {}, "does": {}, "did": {}, "will": {},
	"would": {}, "should": {}, "could": {}, "may": {}, "might": {},
	"must": {}, "can": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"you": {}, "she": {}, "they": {}, "what": {}, "which": {}, "who": {},
	"when": {}, "where": {}, "why": {}, "how": {}, "all": {}, "each": {},
	"every": {}, "both": {}, "few": {}, "more": {}, "most": {}, "other": {},
	"some": {}, "such": {}, "nor": {}, "not": {}, "only": {}, "own": {},
	"same": {}, "than": {}, "too": {}, "very": {}, "just": {},
}

// ExtractKeywords tokenizes text into a lowercased, stop-word-filtered set of
// terms longer than two characters.
func ExtractKeywords(text string) map[string]struct{} {
	keywords := make(map[string]struct{})
	if text == "" {
		return keywords
	}

	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords[word] = struct{}{}
	}
	return keywords
}

// keywordOverlap counts terms present in both sets.
func keywordOverlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	count := 0
	for word := range a {
		if _, ok := b[word]; ok {
			count++
		}
	}
	return count
}
