package domain

import (
	"chat-relay/errors"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMessageID_UnmarshalJSON(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		name     string
		input    string
		expected MessageID
	}{
		{"Numeric id from a browser", `{"id":1735689600000,"text":"hi","sessionId":"1"}`, "1735689600000"},
		{"String id", `{"id":"abc","text":"hi","sessionId":"1"}`, "abc"},
		{"Null id", `{"id":null,"text":"hi","sessionId":"1"}`, ""},
		{"Missing id", `{"text":"hi","sessionId":"1"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw RawMessage
			req.NoError(json.Unmarshal([]byte(tt.input), &raw))
			req.Equal(tt.expected, raw.ID)
			req.Equal(SessionID("1"), raw.SessionID)
		})
	}
}

func TestStamp_DoesNotMutateRaw(t *testing.T) {
	req := require.New(t)
	at := time.Now().UTC()

	// Given a message sent by a browser without id
	raw := RawMessage{SessionID: "s1", Text: "hi", Sender: SenderUser}

	// When it is stamped
	msg := Stamp(raw, "42", "conn-1", at)

	// Then the copy carries the server provenance
	req.Equal(SenderServer, msg.Sender)
	req.Equal(SenderUser, msg.Origin)
	req.Equal(MessageID("42"), msg.ID)
	req.Equal(ConnectionID("conn-1"), msg.ConnectionID)
	req.Equal(at, msg.Timestamp)

	// And the original is untouched
	req.Equal(SenderUser, raw.Sender)
	req.Empty(raw.ID)
}

func TestStamp_ClientIDIsNeverTheMessageID(t *testing.T) {
	req := require.New(t)
	raw := RawMessage{ID: "1700000000000", SessionID: "s1", Text: "hi"}

	msg := Stamp(raw, "42", "conn-1", time.Now())

	req.Equal(MessageID("42"), msg.ID)
	req.Equal(MessageID("1700000000000"), msg.ClientID)
	req.Equal(SenderUser, msg.Origin)

	data, err := json.Marshal(msg)
	req.NoError(err)
	req.Contains(string(data), `"clientId":"1700000000000"`)
}

func TestValidateRawMessage(t *testing.T) {
	tests := []struct {
		name    string
		raw     RawMessage
		wantErr bool
	}{
		{"Valid message", RawMessage{SessionID: "s1", Text: "hi"}, false},
		{"Empty text", RawMessage{SessionID: "s1"}, true},
		{"Empty session", RawMessage{Text: "hi"}, true},
		{"Empty message", RawMessage{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRawMessage(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, errors.ErrInvalidMessage)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestMessage_MarshalJSON_HidesConnection(t *testing.T) {
	req := require.New(t)
	msg := Message{ID: "1", SessionID: "s1", Text: "hi", Sender: SenderServer, Origin: SenderUser, ConnectionID: "secret"}

	data, err := json.Marshal(msg)
	req.NoError(err)
	req.NotContains(string(data), "secret")
	req.Contains(string(data), `"sender":"server"`)
	req.Contains(string(data), `"sessionId":"s1"`)
}
