package utils

import "unicode/utf8"

const ellipsis = "..."

// Truncate shortens s to at most maxLen runes, marking the cut with "...".
// Fact values carry currency symbols, so the cut never splits a rune.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= len(ellipsis) {
		return ellipsis[:maxLen]
	}

	runes := []rune(s)
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}
