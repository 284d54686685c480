package services

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRelayService_Connect(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	orchestrator := mocks.NewMockIOrchestrator(ctrl)
	sink := mocks.NewMockEventSink(ctrl)
	service := NewRelayService(log, orchestrator)

	var registered domain.Connection
	orchestrator.EXPECT().Connect(gomock.Any(), sink).
		DoAndReturn(func(conn domain.Connection, _ any) error {
			registered = conn
			return nil
		}).Times(1)

	conn, err := service.Connect(sink)

	req.NoError(err)
	req.Equal(registered, conn)
	_, err = uuid.Parse(string(conn.ID))
	req.NoError(err)
	req.False(conn.ConnectedAt.IsZero())
}

func TestRelayService_Connect_Rejected(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	orchestrator := mocks.NewMockIOrchestrator(ctrl)
	service := NewRelayService(log, orchestrator)

	orchestrator.EXPECT().Connect(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("%w: c1", errors.ErrDuplicateConnection)).Times(1)

	_, err := service.Connect(mocks.NewMockEventSink(ctrl))

	req.ErrorIs(err, errors.ErrDuplicateConnection)
}

func TestRelayService_Delegates(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	orchestrator := mocks.NewMockIOrchestrator(ctrl)
	service := NewRelayService(log, orchestrator)

	raw := domain.RawMessage{Text: "hi", SessionID: "s1"}
	stamped := domain.Message{ID: "1", SessionID: "s1", Text: "hi", Sender: domain.SenderServer}
	gomock.InOrder(
		orchestrator.EXPECT().Join(domain.ConnectionID("c1"), domain.SessionID("s1")).Return(nil),
		orchestrator.EXPECT().Ingest(ctx, domain.ConnectionID("c1"), raw).Return(stamped, nil),
		orchestrator.EXPECT().History(domain.SessionID("s1"), nil).Return([]domain.Message{stamped}, nil, nil),
		orchestrator.EXPECT().Disconnect(domain.ConnectionID("c1")),
	)

	req.NoError(service.JoinSession("c1", "s1"))
	msg, err := service.PostMessage(ctx, "c1", raw)
	req.NoError(err)
	req.Equal(stamped, msg)
	messages, cursor, err := service.GetMessages("s1", nil)
	req.NoError(err)
	req.Nil(cursor)
	req.Equal([]domain.Message{stamped}, messages)
	service.Disconnect("c1")
}
