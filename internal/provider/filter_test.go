package provider

import (
	"sort"
	"testing"

	"emojisync/pkg/models"
)

func emojiSet(names ...string) map[string]models.Emoji {
	emojis := make(map[string]models.Emoji, len(names))
	for _, name := range names {
		emojis[name] = models.EmojiFromURL(name, "https://emoji.example.com/"+name+".png")
	}
	return emojis
}

func sortedNames(emojis map[string]models.Emoji) []string {
	names := make([]string, 0, len(emojis))
	for name := range emojis {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		input    []string
		expected []string
	}{
		{
			name:     "empty filter passes everything",
			filter:   Filter{},
			input:    []string{"partyparrot", "catjam"},
			expected: []string{"catjam", "partyparrot"},
		},
		{
			name:     "include only",
			filter:   Filter{Include: []string{"party*"}},
			input:    []string{"partyparrot", "party_blob", "catjam"},
			expected: []string{"party_blob", "partyparrot"},
		},
		{
			name:     "exclude only",
			filter:   Filter{Exclude: []string{"*-old"}},
			input:    []string{"partyparrot", "partyparrot-old"},
			expected: []string{"partyparrot"},
		},
		{
			name:     "exclude wins over include",
			filter:   Filter{Include: []string{"party*"}, Exclude: []string{"*blob"}},
			input:    []string{"partyparrot", "party_blob", "catjam", "thumbsup"},
			expected: []string{"partyparrot"},
		},
		{
			name:     "include matching nothing",
			filter:   Filter{Include: []string{"dog*"}},
			input:    []string{"partyparrot", "catjam"},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.filter.Apply(emojiSet(tt.input...))
			got := sortedNames(result)
			if len(got) != len(tt.expected) {
				t.Fatalf("filtered names = %v; want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("filtered names = %v; want %v", got, tt.expected)
					break
				}
			}
		})
	}
}

func TestFilterEmptyReturnsSameMap(t *testing.T) {
	emojis := emojiSet("partyparrot")
	result := Filter{}.Apply(emojis)
	if len(result) != 1 {
		t.Fatalf("expected 1 emoji, got %d", len(result))
	}
	if _, ok := result["partyparrot"]; !ok {
		t.Error("partyparrot missing from unfiltered result")
	}
}
