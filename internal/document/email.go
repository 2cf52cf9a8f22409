package document

import (
	"bytes"
	"net/mail"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"

	"supplymatch/internal"
)

// ParseEmail reads a raw RFC 5322 message. HTML tables in the body take
// precedence over the plain text part; supported attachments are appended in
// order. The supplier comes from the body, then attachments, then the sender
// display name.
func ParseEmail(raw []byte) (internal.Document, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return internal.Document{}, err
	}

	doc := internal.Document{Source: internal.SourceEmail, LineItems: []internal.LineItem{}}
	if env.HTML != "" {
		if h, err := goquery.NewDocumentFromReader(strings.NewReader(env.HTML)); err == nil {
			parsed := parseHTMLDocument(h)
			doc.SupplierName = parsed.SupplierName
			doc.LineItems = append(doc.LineItems, parsed.LineItems...)
		}
	}
	if len(doc.LineItems) == 0 && env.Text != "" {
		supplier, items := parseLines(env.Text)
		if doc.SupplierName == "" {
			doc.SupplierName = supplier
		}
		doc.LineItems = append(doc.LineItems, items...)
	}

	for _, att := range env.Attachments {
		name := strings.TrimSpace(att.FileName)
		if name == "" {
			continue
		}
		var (
			extra internal.Document
			err   error
		)
		switch strings.ToLower(filepath.Ext(name)) {
		case ".xlsx", ".xlsm":
			extra, err = ParseXLSX(att.Content)
		case ".pdf":
			extra, err = ParsePDF(att.Content)
		case ".json":
			extra, err = ParseDocAI(att.Content)
		default:
			continue
		}
		if err != nil {
			continue
		}
		if doc.SupplierName == "" {
			doc.SupplierName = extra.SupplierName
		}
		doc.LineItems = append(doc.LineItems, extra.LineItems...)
	}

	if doc.SupplierName == "" {
		if addr, err := mail.ParseAddress(env.GetHeader("From")); err == nil {
			doc.SupplierName = strings.TrimSpace(addr.Name)
		}
	}
	return doc, nil
}
