package websocket

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectionSink_Consume(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	sink := NewConnectionSink(1)
	evt := event.MessageRelayed{Message: domain.Message{ID: "1", SessionID: "s1", Text: "hi"}}

	// Given a queue of one
	req.NoError(sink.Consume(ctx, evt))

	// When it is full, the next frame is dropped without blocking
	req.ErrorIs(sink.Consume(ctx, evt), errors.ErrOutboundQueueFull)

	var msg domain.Message
	name, err := Decode(<-sink.Frames(), &msg)
	req.NoError(err)
	req.Equal(EventChatMessage, name)
	req.Equal("hi", msg.Text)
}

func TestConnectionSink_Closed(t *testing.T) {
	req := require.New(t)
	sink := NewConnectionSink(4)

	sink.Close()
	sink.Close()

	err := sink.Consume(context.Background(), event.MessageRelayed{})
	req.ErrorIs(err, errors.ErrConnectionNotActive)
}

func TestToFrame_History(t *testing.T) {
	req := require.New(t)

	frame, err := toFrame(event.HistoryServed{Session: "s1"})

	req.NoError(err)
	req.JSONEq(`{"event":"history","data":{"sessionId":"s1","messages":[]}}`, string(frame))
}
