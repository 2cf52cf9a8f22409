package util

import (
	"regexp"
	"strings"
)

// trailingQty matches a quantity at the end of a free-text line, with an
// optional unit word ("3", "2 days", "1.5 hrs", "x4", "qty: 10").
var trailingQty = regexp.MustCompile(`(?i)(?:^|\s)((?:qty[:.]?\s*|x\s?)?\d+(?:[.,]\d+)?\s*(?:ea|each|pcs?|units?|hrs?|hours?|days?|wks?|weeks?|months?|loads?|lm|m2|m3|m|kg|t|l)?\.?)\s*$`)

// SplitQuantity separates a trailing quantity from a free-text line. The
// quantity is returned exactly as written; it is never parsed as a number.
// ok is false when the line has no trailing quantity or nothing would be
// left of the description.
func SplitQuantity(line string) (description, quantity string, ok bool) {
	line = NormalizeSpaces(line)
	m := trailingQty.FindStringSubmatchIndex(line)
	if m == nil {
		return line, "", false
	}
	description = strings.TrimSpace(strings.TrimRight(line[:m[2]], " -:;|,"))
	if !HasLetters(description) {
		return line, "", false
	}
	return description, strings.TrimSpace(line[m[2]:m[3]]), true
}

// LooksLikeQuantity reports whether a cell holds a quantity on its own.
func LooksLikeQuantity(cell string) bool {
	cell = NormalizeSpaces(cell)
	if cell == "" {
		return false
	}
	m := trailingQty.FindStringSubmatchIndex(cell)
	return m != nil && strings.TrimSpace(cell[:m[2]]) == ""
}
