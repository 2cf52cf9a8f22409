package util

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var reSpaces = regexp.MustCompile(`\s+`)

// NormalizeSpaces folds compatibility characters (NFKC, so full-width digits
// and non-breaking spaces become ASCII) and collapses whitespace runs.
func NormalizeSpaces(input string) string {
	input = norm.NFKC.String(input)
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// SplitLines returns the non-empty trimmed lines of text.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// HasLetters reports whether s contains at least one letter.
func HasLetters(s string) bool {
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || r > 0x7f {
			return true
		}
	}
	return false
}
