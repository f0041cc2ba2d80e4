package search

import (
	"regexp"
	"strings"
)

var (
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	mentionPattern = regexp.MustCompile(`@[A-Za-z0-9_.]+`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// BuildQuery derives the corroboration query from post text: links and
// @-mentions carry no searchable signal and are stripped, whitespace is
// collapsed, and the result is truncated to maxLen runes on a word boundary
// where possible.
func BuildQuery(text string, maxLen int) string {
	q := urlPattern.ReplaceAllString(text, " ")
	q = mentionPattern.ReplaceAllString(q, " ")
	q = spacePattern.ReplaceAllString(q, " ")
	q = strings.TrimSpace(q)

	runes := []rune(q)
	if len(runes) <= maxLen {
		return q
	}
	truncated := string(runes[:maxLen])
	if idx := strings.LastIndex(truncated, " "); idx > maxLen/2 {
		truncated = truncated[:idx]
	}
	return strings.TrimSpace(truncated)
}
