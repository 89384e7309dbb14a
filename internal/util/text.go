package util

import (
	"regexp"
	"strings"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	// Two or more letters, digits or underscores.
	word = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)
)

// NormalizeWhitespace trims and collapses whitespace to single spaces.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// NormalizeName lower-cases a display name for lookups.
func NormalizeName(s string) string {
	return strings.ToLower(NormalizeWhitespace(s))
}

// Tokenize lower-cases s and returns its words of two or more characters.
// Punctuation and single characters are dropped.
func Tokenize(s string) []string {
	return word.FindAllString(strings.ToLower(s), -1)
}

// Snippet shortens s to at most n runes, appending an ellipsis when cut.
func Snippet(s string, n int) string {
	s = NormalizeWhitespace(s)
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
