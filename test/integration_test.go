package test

import (
	"chat-relay/domain"
	"chat-relay/infrastructure/websocket"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	gws "github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// Test_Scenario runs the whole relay (websocket, orchestrator, moderation, badger journal)
// and checks a relayed message comes back censored through the history.
func Test_Scenario(t *testing.T) {
	req := require.New(t)
	// Reduced to 16 Mo for testing
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	// 1. Build the relay with a persistent journal
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	supervisor := workers.NewSupervisor(log, 200*time.Millisecond)
	messageRepository := repositories.NewMessageRepository(db, log, lo.ToPtr(100))
	orchestrator, err := runtime.NewOrchestrator(log, supervisor, messageRepository, runtime.Config{
		FanoutPolicy:      runtime.FanoutSession,
		BufferSize:        1000,
		SinkTimeout:       3 * time.Second,
		HeartbeatInterval: time.Hour,
		ModerationEnabled: true,
		CharReplacement:   '*',
		HistoryLimit:      100,
	})
	req.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	orchestratorDone := make(chan struct{})
	go func() {
		defer close(orchestratorDone)
		_ = orchestrator.Start(ctx)
	}()

	server := websocket.NewServer(log, services.NewRelayService(log, orchestrator), websocket.DefaultConfig("*"))
	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		server.CloseAll()
		httpServer.Close()
		cancel()
		<-orchestratorDone
	})

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"
	alice, _, err := gws.DefaultDialer.Dial(url, nil)
	req.NoError(err)
	defer alice.Close()
	bob, _, err := gws.DefaultDialer.Dial(url, nil)
	req.NoError(err)
	defer bob.Close()

	write := func(conn *gws.Conn, name string, data any) {
		frame, err := websocket.Encode(name, data)
		req.NoError(err)
		req.NoError(conn.WriteMessage(gws.TextMessage, frame))
	}
	read := func(conn *gws.Conn, data any) string {
		req.NoError(conn.SetReadDeadline(time.Now().Add(3 * time.Second)))
		_, frame, err := conn.ReadMessage()
		req.NoError(err)
		name, err := websocket.Decode(frame, data)
		req.NoError(err)
		return name
	}

	// 2. Bob joins and waits for the empty history, so the join is handled
	write(bob, websocket.EventJoin, websocket.JoinPayload{SessionID: "lobby"})
	var history websocket.HistoryResponse
	write(bob, websocket.EventHistory, websocket.HistoryRequest{SessionID: "lobby"})
	req.Equal(websocket.EventHistory, read(bob, &history))
	req.Empty(history.Messages)

	// 3. Alice talks without joining first
	write(alice, websocket.EventChatMessage, domain.RawMessage{SessionID: "lobby", Text: "what a bastard"})

	var received domain.Message
	req.Equal(websocket.EventChatMessage, read(bob, &received))
	req.Equal("what a *******", received.Text)
	req.Equal(domain.SenderServer, received.Sender)

	// 4. The journal eventually holds the censored copy
	req.Eventually(func() bool {
		messages, _, err := messageRepository.GetMessages("lobby", nil)
		return err == nil && len(messages) == 1
	}, 3*time.Second, 20*time.Millisecond)

	write(bob, websocket.EventHistory, websocket.HistoryRequest{SessionID: "lobby"})
	req.Equal(websocket.EventHistory, read(bob, &history))
	req.Len(history.Messages, 1)
	req.Equal(received.ID, history.Messages[0].ID)
	req.Equal("what a *******", history.Messages[0].Text)
	req.Nil(history.Cursor)
	req.Equal(uint64(1), orchestrator.Stats().Relayed)
}
