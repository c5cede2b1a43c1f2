package scoring

import "testing"

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty text",
			text: "",
			want: nil,
		},
		{
			name: "lowercases and strips punctuation",
			text: "Learn PIANO, fast!",
			want: []string{"learn", "piano", "fast"},
		},
		{
			name: "filters stop words and short tokens",
			text: "the piano is an art",
			want: []string{"piano", "art"},
		},
		{
			name: "keeps digits",
			text: "python3 tutorial",
			want: []string{"python3", "tutorial"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractKeywords(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for _, w := range tt.want {
				if _, ok := got[w]; !ok {
					t.Errorf("ExtractKeywords(%q) missing %q", tt.text, w)
				}
			}
		})
	}
}

func TestKeywordOverlap(t *testing.T) {
	a := ExtractKeywords("learn piano beginners")
	b := ExtractKeywords("piano basics complete beginners guide")

	if got := keywordOverlap(a, b); got != 2 {
		t.Errorf("keywordOverlap() = %d, want 2", got)
	}
	if got := keywordOverlap(a, map[string]struct{}{}); got != 0 {
		t.Errorf("keywordOverlap() with empty set = %d, want 0", got)
	}
}
