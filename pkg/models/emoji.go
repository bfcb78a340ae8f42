package models

import (
	"net/url"
	"path"
	"strings"
)

// Format is an emoji image format, named by its file extension.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatJPG  Format = "jpg"
	FormatWebP Format = "webp"
)

// DefaultFormat is assumed when a format cannot be determined.
const DefaultFormat = FormatPNG

var knownFormats = map[Format]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatGIF:  true,
	FormatJPG:  true,
	FormatWebP: true,
}

// ParseFormat returns the Format matching s (case-insensitive) and whether
// s named a supported format.
func ParseFormat(s string) (Format, bool) {
	f := Format(strings.ToLower(s))
	return f, knownFormats[f]
}

// FormatFromURL derives the format from the extension of the URL path.
// The extension must be a path suffix and match a supported format exactly;
// query parameters and fragments are ignored. Returns "" when the format
// cannot be determined.
func FormatFromURL(rawURL string) Format {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := strings.TrimPrefix(path.Ext(u.Path), ".")
	if ext == "" {
		return ""
	}
	if f, ok := ParseFormat(ext); ok {
		return f
	}
	return ""
}

// Emoji is a single named emoji from a provider. Either URL or AliasOf is
// set when it comes out of a provider's raw listing; alias resolution
// replaces alias entries with concrete URL entries before anything is
// handed to the cache or downloader.
type Emoji struct {
	Name      string
	URL       string
	AliasOf   string
	Format    Format
	SizeBytes int64
}

// IsAlias reports whether the emoji is an alias for another emoji.
func (e Emoji) IsAlias() bool {
	return e.AliasOf != ""
}

// EmojiFromURL builds a concrete emoji record, deriving the format from
// the URL path where possible.
func EmojiFromURL(name, rawURL string) Emoji {
	return Emoji{
		Name:   name,
		URL:    rawURL,
		Format: FormatFromURL(rawURL),
	}
}

// EmojiFromAlias builds an alias record pointing at target.
func EmojiFromAlias(name, target string) Emoji {
	return Emoji{
		Name:    name,
		AliasOf: target,
	}
}
