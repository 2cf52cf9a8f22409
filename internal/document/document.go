// Package document turns supplier paperwork into an internal.Document: the
// supplier name as printed plus the raw line items. Nothing here interprets
// quantities or touches the catalog.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"supplymatch/internal"
	"supplymatch/internal/util"
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

var (
	supplierLine = regexp.MustCompile(`(?i)^(?:supplier|vendor|from|bill from|supplied by)\s*[:\-]\s*(.+)$`)

	ignorePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^--+$`),
		regexp.MustCompile(`(?i)^(thanks|thank you|cheers)`),
		regexp.MustCompile(`(?i)^(kind |best )?regards`),
		regexp.MustCompile(`(?i)^(ph|tel|phone|mob|mobile)[:\s.]`),
		regexp.MustCompile(`(?i)^e-?mail[:\s]`),
		regexp.MustCompile(`(?i)^(abn|acn|gst|invoice|date|due|page)\b`),
		regexp.MustCompile(`(?i)^(sub\s?)?total\b`),
		regexp.MustCompile(`(?i)^http`),
	}
)

// Load reads path and parses it by extension.
func Load(path string) (internal.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return internal.Document{}, err
	}
	return Parse(filepath.Base(path), content)
}

// Parse dispatches on the extension of name. Line numbers are assigned in
// document order starting at 1.
func Parse(name string, content []byte) (internal.Document, error) {
	var (
		doc internal.Document
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".json":
		doc, err = ParseDocAI(content)
	case ".xlsx", ".xlsm":
		doc, err = ParseXLSX(content)
	case ".html", ".htm":
		doc, err = ParseHTML(content)
	case ".pdf":
		doc, err = ParsePDF(content)
	case ".eml":
		doc, err = ParseEmail(content)
	case ".txt":
		doc = ParseText(string(content))
	default:
		return internal.Document{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return internal.Document{}, fmt.Errorf("parse %s: %w", name, err)
	}
	renumber(doc.LineItems)
	return doc, nil
}

// ParseText reads free text, one line item per line with a trailing quantity.
func ParseText(text string) internal.Document {
	supplier, items := parseLines(text)
	return internal.Document{Source: internal.SourceEmail, SupplierName: supplier, LineItems: items}
}

func parseLines(text string) (string, []internal.LineItem) {
	supplier := ""
	items := []internal.LineItem{}
	for _, line := range util.SplitLines(text) {
		line = util.NormalizeSpaces(line)
		if m := supplierLine.FindStringSubmatch(line); m != nil {
			if supplier == "" {
				supplier = strings.TrimSpace(m[1])
			}
			continue
		}
		if isLikelyNoise(line) {
			continue
		}
		desc, qty, ok := util.SplitQuantity(line)
		if !ok {
			continue
		}
		items = append(items, internal.LineItem{Description: desc, Quantity: qty})
	}
	return supplier, items
}

func isLikelyNoise(line string) bool {
	for _, re := range ignorePatterns {
		if re.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

func renumber(items []internal.LineItem) {
	for i := range items {
		items[i].LineNo = i + 1
	}
}
