package sink_test

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"chat-relay/repositories"
	"chat-relay/sink"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestJournalSink_Consume(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIMessageRepository(ctrl)
	// Silencing logs for clean test output
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := sink.NewJournalSink(mockRepo, logger)
	at := time.Now().UTC()

	t.Run("Relayed message is stored", func(t *testing.T) {
		msg := domain.Message{
			ID:           "1",
			SessionID:    "general",
			Text:         "hello",
			Sender:       domain.SenderServer,
			Origin:       domain.SenderUser,
			ConnectionID: "c1",
			Timestamp:    at,
		}
		mockRepo.EXPECT().StoreMessage(repositories.DiskMessage{
			ID:         "1",
			Session:    "general",
			Text:       "hello",
			Sender:     "server",
			Origin:     "user",
			Connection: "c1",
			At:         at,
		}).Return(nil).Times(1)

		req.NoError(s.Consume(context.Background(), event.MessageRelayed{Message: msg}))
	})

	t.Run("Storage failure is returned", func(t *testing.T) {
		mockRepo.EXPECT().StoreMessage(gomock.Any()).Return(errors.New("disk full")).Times(1)

		err := s.Consume(context.Background(), event.MessageRelayed{})

		req.Error(err)
	})

	t.Run("Other events are ignored", func(t *testing.T) {
		req.NoError(s.Consume(context.Background(), event.MessageRejected{Session: "general"}))
	})
}

func TestJournalSink_RoundTrip(t *testing.T) {
	req := require.New(t)
	msg := domain.Message{
		ID:           "42",
		SessionID:    "general",
		Text:         "hello",
		Sender:       domain.SenderServer,
		Origin:       domain.SenderUser,
		ConnectionID: "c1",
		ClientID:     "1700000000000",
		Timestamp:    time.Unix(0, 1000).UTC(),
	}

	req.Equal(msg, sink.FromDiskMessage(sink.ToDiskMessage(msg)))
}
