package document

import (
	"bytes"

	"github.com/xuri/excelize/v2"

	"supplymatch/internal"
)

// ParseXLSX reads every sheet. Each sheet gets its own header inference; the
// first supplier found wins.
func ParseXLSX(content []byte) (internal.Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return internal.Document{}, err
	}
	defer f.Close()

	doc := internal.Document{Source: internal.SourceXLSX, LineItems: []internal.LineItem{}}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		t := newTableReader()
		for _, row := range rows {
			t.add(row)
		}
		if doc.SupplierName == "" {
			doc.SupplierName = t.supplier
		}
		doc.LineItems = append(doc.LineItems, t.items...)
	}
	return doc, nil
}
