package document

import (
	"bytes"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"supplymatch/internal"
)

// ParsePDF extracts the text layer page by page and reads it as free text.
// Scanned PDFs without a text layer yield no line items.
func ParsePDF(content []byte) (internal.Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return internal.Document{}, err
	}

	var text strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			for j, word := range row.Content {
				if j > 0 {
					text.WriteByte(' ')
				}
				text.WriteString(word.S)
			}
			text.WriteByte('\n')
		}
	}

	supplier, items := parseLines(text.String())
	return internal.Document{Source: internal.SourcePDF, SupplierName: supplier, LineItems: items}, nil
}
