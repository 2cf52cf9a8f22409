package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"supplymatch/internal"
)

// docAIPayload is the flattened Document AI invoice export: one supplier
// name and a list of line items keyed by entity type.
type docAIPayload struct {
	SupplierName any              `json:"supplier_name"`
	LineItems    []map[string]any `json:"line_items"`
}

const (
	docAIDescriptionKey = "line_item/description"
	docAIQuantityKey    = "line_item/quantity"
)

func ParseDocAI(content []byte) (internal.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var payload docAIPayload
	if err := dec.Decode(&payload); err != nil {
		return internal.Document{}, err
	}
	if payload.LineItems == nil && payload.SupplierName == nil {
		return internal.Document{}, errors.New("no supplier_name or line_items")
	}

	doc := internal.Document{
		Source:       internal.SourceDocAI,
		SupplierName: strings.TrimSpace(scalarText(payload.SupplierName)),
		LineItems:    make([]internal.LineItem, 0, len(payload.LineItems)),
	}
	for _, raw := range payload.LineItems {
		doc.LineItems = append(doc.LineItems, internal.LineItem{
			Description: scalarText(raw[docAIDescriptionKey]),
			Quantity:    scalarText(raw[docAIQuantityKey]),
		})
	}
	return doc, nil
}

// scalarText renders a JSON scalar as text. Numbers keep their literal form.
func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
