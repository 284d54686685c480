package websocket

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"encoding/json"
	"fmt"
)

// Event names of the wire protocol.
const (
	EventChatMessage = "chat message"
	EventJoin        = "join"
	EventHistory     = "history"
	EventError       = "error"
)

// Envelope is the single frame shape exchanged in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinPayload struct {
	SessionID domain.SessionID `json:"sessionId"`
}

type HistoryRequest struct {
	SessionID domain.SessionID `json:"sessionId"`
	Cursor    *string          `json:"cursor,omitempty"`
}

type HistoryResponse struct {
	SessionID domain.SessionID `json:"sessionId"`
	Messages  []domain.Message `json:"messages"`
	Cursor    *string          `json:"cursor,omitempty"`
}

type ErrorPayload struct {
	SessionID domain.SessionID `json:"sessionId,omitempty"`
	Message   string           `json:"message"`
}

func Encode(name string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: name, Data: raw})
}

// Decode reads an envelope and its payload in one go.
func Decode(frame []byte, data any) (string, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return "", err
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return env.Event, err
		}
	}
	return env.Event, nil
}

// toFrame maps a domain event to its outbound frame.
func toFrame(e event.DomainEvent) ([]byte, error) {
	switch evt := e.(type) {
	case event.MessageRelayed:
		return Encode(EventChatMessage, evt.Message)
	case event.MessageRejected:
		return Encode(EventError, ErrorPayload{SessionID: evt.Session, Message: evt.Reason})
	case event.HistoryServed:
		messages := evt.Messages
		if messages == nil {
			messages = []domain.Message{}
		}
		return Encode(EventHistory, HistoryResponse{SessionID: evt.Session, Messages: messages, Cursor: evt.Cursor})
	default:
		return nil, fmt.Errorf("no frame for event %T", e)
	}
}
