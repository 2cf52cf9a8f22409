package document

import (
	"strings"

	"supplymatch/internal"
	"supplymatch/internal/util"
)

var (
	descriptionProbes = []string{"description", "item", "equipment", "product", "plant", "name", "details"}
	quantityProbes    = []string{"qty", "quantity", "hours", "days", "units", "no."}
	supplierProbes    = []string{"supplier", "vendor", "bill from", "supplied by"}
)

func findHeaderIndex(headers []string, keys []string) int {
	for _, key := range keys {
		for i, h := range headers {
			if strings.Contains(h, key) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	return ""
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, util.NormalizeSpaces(c))
	}
	return out
}

// tableReader turns the rows of one table into line items. Column roles come
// from the first header row it recognises; rows before that are scanned for a
// "Supplier: X" pair.
type tableReader struct {
	descIdx  int
	qtyIdx   int
	header   bool
	supplier string
	items    []internal.LineItem
}

func newTableReader() *tableReader {
	return &tableReader{descIdx: -1, qtyIdx: -1, items: []internal.LineItem{}}
}

func (t *tableReader) add(row []string) {
	cells := normalizeCells(row)
	if len(cells) == 0 || strings.Join(cells, "") == "" {
		return
	}

	if !t.header {
		lower := make([]string, len(cells))
		for i, c := range cells {
			lower[i] = strings.ToLower(c)
		}
		if t.supplier == "" {
			if idx := findHeaderIndex(lower, supplierProbes); idx >= 0 {
				if v := firstNonEmpty(cells[idx+1:]...); v != "" {
					t.supplier = v
					return
				}
				if m := supplierLine.FindStringSubmatch(cells[idx]); m != nil {
					t.supplier = strings.TrimSpace(m[1])
					return
				}
			}
		}
		desc := findHeaderIndex(lower, descriptionProbes)
		qty := findHeaderIndex(lower, quantityProbes)
		if desc >= 0 && qty >= 0 && desc != qty {
			t.descIdx, t.qtyIdx, t.header = desc, qty, true
			return
		}
	}

	desc, qty := t.split(cells)
	if desc == "" || !util.HasLetters(desc) || isLikelyNoise(desc) {
		return
	}
	t.items = append(t.items, internal.LineItem{Description: desc, Quantity: qty})
}

func (t *tableReader) split(cells []string) (string, string) {
	if t.header {
		return pickCell(cells, t.descIdx), pickCell(cells, t.qtyIdx)
	}
	// No header: first text cell is the description, the first quantity-like
	// cell after it is the quantity.
	for i, c := range cells {
		if !util.HasLetters(c) {
			continue
		}
		for _, rest := range cells[i+1:] {
			if util.LooksLikeQuantity(rest) {
				return c, rest
			}
		}
		if d, q, ok := util.SplitQuantity(c); ok {
			return d, q
		}
		return "", ""
	}
	return "", ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
