package internal

import (
	"encoding/json"
	"strings"
)

// ID is a catalog identity kept as the JSON literal the catalog sent, so a
// numeric 1 stays 1 and a string "1" stays "1" on the way out. A value that is
// not a valid JSON literal is treated as plain text.
type ID string

// TextID wraps s as a JSON string identity.
func TextID(s string) ID {
	b, _ := json.Marshal(s)
	return ID(b)
}

func (id ID) String() string {
	var s string
	if strings.HasPrefix(string(id), `"`) && json.Unmarshal([]byte(id), &s) == nil {
		return s
	}
	return string(id)
}

func (id ID) MarshalJSON() ([]byte, error) {
	switch {
	case id == "":
		return []byte("null"), nil
	case isScalarLiteral(string(id)):
		return []byte(id), nil
	default:
		return json.Marshal(string(id))
	}
}

// isScalarLiteral accepts a JSON string or number, nothing else.
func isScalarLiteral(s string) bool {
	if s == "" || !json.Valid([]byte(s)) {
		return false
	}
	c := s[0]
	return c == '"' || c == '-' || (c >= '0' && c <= '9')
}

func (id *ID) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*id = ""
		return nil
	}
	*id = ID(raw)
	return nil
}

type DocumentSource string

const (
	SourceDocAI     DocumentSource = "docai_json"
	SourceXLSX      DocumentSource = "xlsx"
	SourceHTMLTable DocumentSource = "html_table"
	SourcePDF       DocumentSource = "pdf"
	SourceEmail     DocumentSource = "email"
	SourceAPI       DocumentSource = "api"
)

type Supplier struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

type Item struct {
	ID          ID      `json:"id"`
	Supplier    string  `json:"supplier"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Rate        float64 `json:"rate"`
}

// LineItem is one row extracted from a document. Quantity is kept as the raw
// text the extractor produced.
type LineItem struct {
	LineNo      int    `json:"line_no"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
}

type Document struct {
	Source       DocumentSource `json:"source"`
	SupplierName string         `json:"supplier_name"`
	LineItems    []LineItem     `json:"line_items"`
}

type CombinedRecord struct {
	ID          ID      `json:"id"`
	Supplier    string  `json:"supplier"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Rate        float64 `json:"rate"`
	Quantity    string  `json:"quantity"`
}

// Combine copies every catalog field of item and injects the document quantity.
func Combine(item Item, line LineItem) CombinedRecord {
	return CombinedRecord{
		ID:          item.ID,
		Supplier:    item.Supplier,
		Description: item.Description,
		Price:       item.Price,
		Rate:        item.Rate,
		Quantity:    line.Quantity,
	}
}

type Unmatched struct {
	LineNo      int    `json:"line_no"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
}

type ItemFailure struct {
	LineNo      int    `json:"line_no"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Err         error  `json:"-"`
	Message     string `json:"error"`
}

type Result struct {
	RunID     string           `json:"run_id"`
	Supplier  string           `json:"supplier"`
	Records   []CombinedRecord `json:"records"`
	Unmatched []Unmatched      `json:"unmatched"`
	Failures  []ItemFailure    `json:"failures"`
}
