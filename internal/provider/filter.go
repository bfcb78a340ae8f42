package provider

import (
	"path"

	"emojisync/internal/config"
	"emojisync/pkg/models"
)

// Filter screens emoji names against include/exclude glob patterns.
// Exclusion is evaluated first: a name matching both an exclude and an
// include pattern is excluded.
type Filter struct {
	Include []string
	Exclude []string
}

// NewFilter builds a Filter from provider config.
func NewFilter(f config.Filters) Filter {
	return Filter{
		Include: f.IncludePatterns,
		Exclude: f.ExcludePatterns,
	}
}

// Empty reports whether the filter passes everything through.
func (f Filter) Empty() bool {
	return len(f.Include) == 0 && len(f.Exclude) == 0
}

// Apply returns the subset of emojis whose names pass the filter.
func (f Filter) Apply(emojis map[string]models.Emoji) map[string]models.Emoji {
	if f.Empty() {
		return emojis
	}

	filtered := make(map[string]models.Emoji, len(emojis))
	for name, emoji := range emojis {
		if matchAny(f.Exclude, name) {
			continue
		}
		if len(f.Include) > 0 && !matchAny(f.Include, name) {
			continue
		}
		filtered[name] = emoji
	}
	return filtered
}

// matchAny reports whether any pattern matches name. Malformed
// patterns never match; config validation rejects them up front.
func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
