package matcher

import "strings"

// Normalize turns a raw completion into a comparable label: surrounding
// whitespace is trimmed and one wrapping quotation mark is removed from each
// end. When the result would still start or end with a quote, nothing is
// stripped, so Normalize(Normalize(x)) == Normalize(x) for every x.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	stripped := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, `"`), `"`))
	if strings.HasPrefix(stripped, `"`) || strings.HasSuffix(stripped, `"`) {
		return s
	}
	return stripped
}
