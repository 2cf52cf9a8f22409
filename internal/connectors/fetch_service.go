package connectors

import (
	"context"

	"supplymatch/internal/logging"
)

type FetchService struct {
	connector MailConnector
	store     *InboxStore
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(connector MailConnector, store *InboxStore) *FetchService {
	return &FetchService{connector: connector, store: store}
}

func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, err
	}

	log := logging.FromContext(ctx)
	stored := 0
	for _, msg := range messages {
		path, isNew, err := s.store.Store(msg)
		if err != nil {
			return FetchResult{Fetched: len(messages), Stored: stored}, err
		}
		if !isNew {
			continue
		}
		stored++
		log.Info().
			Str("provider", msg.Provider).
			Str("message_id", msg.MessageID).
			Str("from", msg.From).
			Str("subject", msg.Subject).
			Time("received_at", msg.ReceivedAt).
			Str("file", path).
			Msg("mail stored in inbox")
	}

	return FetchResult{Fetched: len(messages), Stored: stored}, nil
}
