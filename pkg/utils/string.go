package utils

import (
	"regexp"
	"strings"
)

// MultipleSpaces matches any sequence of whitespace (including newlines).
var MultipleSpaces = regexp.MustCompile(`\s+`)

var (
	linkPattern     = regexp.MustCompile(`(?i)https?://\S+`)
	emailPattern    = regexp.MustCompile(`[\w.-]+@[\w.-]+`)
	digitRunPattern = regexp.MustCompile(`\b\d{3,}\b`)
	anglePattern    = regexp.MustCompile(`[<>]`)
)

// CompressAllWhitespace replaces all whitespace sequences (including newlines) with a single space.
func CompressAllWhitespace(s string) string {
	return strings.TrimSpace(MultipleSpaces.ReplaceAllString(s, " "))
}

// MaskSensitive replaces URLs, email-like patterns, and digit runs of three or
// more with placeholder tokens. Runs on every snippet before it is embedded in
// a model prompt so that links, addresses, and phone numbers never leave the
// process in raw form.
func MaskSensitive(s string) string {
	if s == "" {
		return ""
	}

	s = linkPattern.ReplaceAllString(s, "[link]")
	s = emailPattern.ReplaceAllString(s, "[email]")
	s = digitRunPattern.ReplaceAllString(s, "[number]")

	return strings.TrimSpace(s)
}

// SanitizeField strips angle brackets and surrounding whitespace from a
// model-supplied field so it is safe to render in any host surface.
func SanitizeField(s string) string {
	return strings.TrimSpace(anglePattern.ReplaceAllString(s, ""))
}

// TruncateWithEllipsis caps s at maxLen characters, replacing the tail with
// "..." when truncation occurs. maxLen must be at least 4.
func TruncateWithEllipsis(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	return string(runes[:maxLen-3]) + "..."
}
