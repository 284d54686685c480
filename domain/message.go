// Package domain contains core concepts of the relay.
// This file defines Message values and related rules.
// Relayed messages are immutable once stamped.
package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

type SessionID string

type Sender string

const (
	SenderUser   Sender = "user"
	SenderServer Sender = "server"
)

// MessageID accepts both JSON strings and JSON numbers,
// browsers send Date.now() as a number.
type MessageID string

func (id *MessageID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = MessageID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = MessageID(n.String())
	return nil
}

// RawMessage is the ingress payload as sent by a client.
// Only SessionID and Text are trusted, everything else is re-stamped.
type RawMessage struct {
	ID        MessageID  `json:"id,omitempty"`
	SessionID SessionID  `json:"sessionId" validate:"required"`
	Text      string     `json:"text" validate:"required"`
	Sender    Sender     `json:"sender,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Message is the stamped copy delivered to participants.
// ID is always generated by the relay, the id the client sent is echoed as ClientID.
type Message struct {
	ID           MessageID    `json:"id"`
	ClientID     MessageID    `json:"clientId,omitempty"`
	SessionID    SessionID    `json:"sessionId"`
	Text         string       `json:"text"`
	Sender       Sender       `json:"sender"`
	Origin       Sender       `json:"origin"`
	ConnectionID ConnectionID `json:"-"`
	Timestamp    time.Time    `json:"timestamp"`
}

// Stamp builds the relayed copy of raw. The raw value is left untouched.
func Stamp(raw RawMessage, id MessageID, from ConnectionID, at time.Time) Message {
	origin := raw.Sender
	if origin == "" {
		origin = SenderUser
	}
	return Message{
		ID:           id,
		ClientID:     raw.ID,
		SessionID:    raw.SessionID,
		Text:         raw.Text,
		Sender:       SenderServer,
		Origin:       origin,
		ConnectionID: from,
		Timestamp:    at,
	}
}

// MillisID formats a wall-clock derived identifier.
func MillisID(ms int64) MessageID {
	return MessageID(strconv.FormatInt(ms, 10))
}
