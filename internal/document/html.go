package document

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"supplymatch/internal"
	"supplymatch/internal/util"
)

// ParseHTML reads line items from every <table> in the page. The supplier is
// taken from a table row or, failing that, from a "Supplier: X" line in the
// page text.
func ParseHTML(content []byte) (internal.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return internal.Document{}, err
	}
	out := parseHTMLDocument(doc)
	out.Source = internal.SourceHTMLTable
	return out, nil
}

func parseHTMLDocument(doc *goquery.Document) internal.Document {
	out := internal.Document{LineItems: []internal.LineItem{}}
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		// nested tables are visited on their own
		if table.Find("table").Length() > 0 {
			return
		}
		t := newTableReader()
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, cell.Text())
			})
			t.add(cells)
		})
		if out.SupplierName == "" {
			out.SupplierName = t.supplier
		}
		out.LineItems = append(out.LineItems, t.items...)
	})

	if out.SupplierName == "" {
		doc.Find("table").Remove()
		for _, line := range util.SplitLines(doc.Text()) {
			if m := supplierLine.FindStringSubmatch(util.NormalizeSpaces(line)); m != nil {
				out.SupplierName = strings.TrimSpace(m[1])
				break
			}
		}
	}
	return out
}
