package sink

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/repositories"
	"context"
	"fmt"
	"log/slog"
)

var _ contract.EventSink = JournalSink{}

// JournalSink persists every relayed message, other events are ignored.
type JournalSink struct {
	repository repositories.IMessageRepository
	log        *slog.Logger
}

func NewJournalSink(repository repositories.IMessageRepository, log *slog.Logger) JournalSink {
	return JournalSink{repository: repository, log: log}
}

func (j JournalSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageRelayed:
		return j.repository.StoreMessage(ToDiskMessage(evt.Message))
	default:
		j.log.Debug(fmt.Sprintf("Not journaled event : %T", evt))
		return nil
	}
}

func ToDiskMessage(m domain.Message) repositories.DiskMessage {
	return repositories.DiskMessage{
		ID:         string(m.ID),
		Session:    string(m.SessionID),
		Text:       m.Text,
		Sender:     string(m.Sender),
		Origin:     string(m.Origin),
		Connection: string(m.ConnectionID),
		ClientID:   string(m.ClientID),
		At:         m.Timestamp,
	}
}

func FromDiskMessage(dm repositories.DiskMessage) domain.Message {
	return domain.Message{
		ID:           domain.MessageID(dm.ID),
		SessionID:    domain.SessionID(dm.Session),
		Text:         dm.Text,
		Sender:       domain.Sender(dm.Sender),
		Origin:       domain.Sender(dm.Origin),
		ConnectionID: domain.ConnectionID(dm.Connection),
		ClientID:     domain.MessageID(dm.ClientID),
		Timestamp:    dm.At,
	}
}
