package event

import (
	"chat-relay/domain"
	"time"
)

type DomainEvent interface {
	SessionID() domain.SessionID
}

// MessageRelayed carries a stamped message to a participant or a permanent sink.
type MessageRelayed struct {
	Message domain.Message
}

func (m MessageRelayed) SessionID() domain.SessionID {
	return m.Message.SessionID
}

// MessageRejected is only ever delivered to the connection that sent the message.
type MessageRejected struct {
	Session domain.SessionID
	Reason  string
	At      time.Time
}

func (m MessageRejected) SessionID() domain.SessionID {
	return m.Session
}

// HistoryServed answers a history request on the requesting connection.
type HistoryServed struct {
	Session  domain.SessionID
	Messages []domain.Message
	Cursor   *string
}

func (h HistoryServed) SessionID() domain.SessionID {
	return h.Session
}
