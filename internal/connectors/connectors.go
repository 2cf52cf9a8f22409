// Package connectors pulls supplier mail into the listener inbox as raw .eml
// files. Parsing happens later, in the document package.
package connectors

import (
	"context"
	"time"
)

type Message struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt time.Time
	Raw        []byte
}

type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]Message, error)
}
