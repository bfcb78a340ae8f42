package provider

import (
	"github.com/sirupsen/logrus"

	"emojisync/pkg/models"
)

// maxAliasDepth caps alias chain walks so cycles terminate.
const maxAliasDepth = 10

// ResolveAliases replaces alias records with copies of their target's
// URL and format. Aliases whose chain never reaches a concrete emoji
// within maxAliasDepth hops (broken targets, cycles) are dropped from
// the result without error; losing one bad alias must not fail a sync.
func ResolveAliases(emojis map[string]models.Emoji, log *logrus.Entry) map[string]models.Emoji {
	resolved := make(map[string]models.Emoji, len(emojis))

	// First pass: concrete emojis carry over as-is.
	for name, emoji := range emojis {
		if !emoji.IsAlias() {
			resolved[name] = emoji
		}
	}

	// Second pass: walk each alias chain through the original mapping.
	for name, emoji := range emojis {
		if !emoji.IsAlias() {
			continue
		}

		target := emoji.AliasOf
		for depth := 0; depth < maxAliasDepth; depth++ {
			next, ok := emojis[target]
			if !ok || !next.IsAlias() {
				break
			}
			target = next.AliasOf
		}

		// Only a concrete end of chain counts; landing on another
		// alias means the walk ran out of hops.
		targetEmoji, ok := emojis[target]
		if !ok || targetEmoji.IsAlias() {
			if log != nil {
				log.Debugf("dropping alias %q: target %q does not resolve", name, target)
			}
			continue
		}

		resolved[name] = models.Emoji{
			Name:   name,
			URL:    targetEmoji.URL,
			Format: targetEmoji.Format,
		}
	}

	return resolved
}
