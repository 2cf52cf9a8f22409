package listener

import (
	"context"
	"fmt"

	"supplymatch/internal/config"
	"supplymatch/internal/connectors"
	"supplymatch/internal/connectors/gmail"
	"supplymatch/internal/connectors/imap"
)

// NewMailConnector returns the connector for provider ("gmail" or "imap").
func NewMailConnector(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmail.NewConnector(ctx, cfg)
	case "imap":
		return imap.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %q", provider)
	}
}
