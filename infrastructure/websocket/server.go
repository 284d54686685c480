// Package websocket adapts browser sockets to the relay.
// Every frame is a JSON envelope {"event": ..., "data": ...}.
package websocket

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/services"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Config struct {
	// AllowedOrigin is matched against the Origin header, "*" allows any.
	AllowedOrigin        string
	ConnectionBufferSize int
	MaxMessageBytes      int64
	WriteTimeout         time.Duration
	PongTimeout          time.Duration
	PingInterval         time.Duration
}

func DefaultConfig(allowedOrigin string) Config {
	return Config{
		AllowedOrigin:        allowedOrigin,
		ConnectionBufferSize: 64,
		MaxMessageBytes:      64 * 1024,
		WriteTimeout:         10 * time.Second,
		PongTimeout:          60 * time.Second,
		PingInterval:         54 * time.Second,
	}
}

type Server struct {
	log      *slog.Logger
	service  services.IRelayService
	config   Config
	upgrader websocket.Upgrader

	mu      sync.Mutex
	sockets map[domain.ConnectionID]*websocket.Conn
}

func NewServer(log *slog.Logger, service services.IRelayService, config Config) *Server {
	s := &Server{
		log:     log,
		service: service,
		config:  config,
		sockets: make(map[domain.ConnectionID]*websocket.Conn),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler exposes the socket endpoint and a plain health probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeWS)
	mux.HandleFunc("/healthz", s.health)
	return mux
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.config.AllowedOrigin == "*" {
		return true
	}
	return origin == s.config.AllowedOrigin
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	stats := s.service.Stats()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"connections": stats.Connections,
		"sessions":    stats.Sessions,
	})
}

// ServeWS upgrades the request and blocks until the socket is gone.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "origin", r.Header.Get("Origin"), "error", err)
		return
	}

	sink := NewConnectionSink(s.config.ConnectionBufferSize)
	conn, err := s.service.Connect(sink)
	if err != nil {
		s.log.Error("Connection refused by the relay", "error", err)
		_ = socket.Close()
		return
	}
	s.track(conn.ID, socket)
	s.log.Info("Client connected", "connection_id", conn.ID, "remote_addr", r.RemoteAddr)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(socket, sink)
	}()

	s.readLoop(r.Context(), conn.ID, socket, sink)

	// Unregister first so no fan-out targets a closing socket
	s.service.Disconnect(conn.ID)
	sink.Close()
	<-writerDone
	s.untrack(conn.ID)
	_ = socket.Close()
	s.log.Info("Client disconnected", "connection_id", conn.ID)
}

func (s *Server) readLoop(ctx context.Context, connectionID domain.ConnectionID,
	socket *websocket.Conn, sink *ConnectionSink) {
	socket.SetReadLimit(s.config.MaxMessageBytes)
	_ = socket.SetReadDeadline(time.Now().Add(s.config.PongTimeout))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(s.config.PongTimeout))
	})

	for {
		_, frame, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("Websocket read error", "connection_id", connectionID, "error", err)
			}
			return
		}
		_ = socket.SetReadDeadline(time.Now().Add(s.config.PongTimeout))
		s.handleFrame(ctx, connectionID, frame, sink)
	}
}

// handleFrame never closes the connection: a bad frame only earns an error frame.
func (s *Server) handleFrame(ctx context.Context, connectionID domain.ConnectionID,
	frame []byte, sink *ConnectionSink) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		s.reject(ctx, sink, "", fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err))
		return
	}

	switch env.Event {
	case EventChatMessage:
		var raw domain.RawMessage
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			s.reject(ctx, sink, "", fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err))
			return
		}
		if _, err := s.service.PostMessage(ctx, connectionID, raw); err != nil {
			s.reject(ctx, sink, raw.SessionID, err)
		}
	case EventJoin:
		var payload JoinPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			s.reject(ctx, sink, "", fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err))
			return
		}
		if err := s.service.JoinSession(connectionID, payload.SessionID); err != nil {
			s.reject(ctx, sink, payload.SessionID, err)
		}
	case EventHistory:
		var request HistoryRequest
		if err := json.Unmarshal(env.Data, &request); err != nil {
			s.reject(ctx, sink, "", fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err))
			return
		}
		messages, cursor, err := s.service.GetMessages(request.SessionID, request.Cursor)
		if err != nil {
			s.log.Error("History lookup failed", "session_id", request.SessionID, "error", err)
			s.reject(ctx, sink, request.SessionID, err)
			return
		}
		s.deliver(ctx, sink, event.HistoryServed{Session: request.SessionID, Messages: messages, Cursor: cursor})
	default:
		s.reject(ctx, sink, "", fmt.Errorf("%w: %q", errors.ErrUnknownEvent, env.Event))
	}
}

func (s *Server) reject(ctx context.Context, sink *ConnectionSink, sessionID domain.SessionID, err error) {
	s.log.Debug("Frame rejected", "session_id", sessionID, "error", err)
	s.deliver(ctx, sink, event.MessageRejected{Session: sessionID, Reason: err.Error(), At: time.Now().UTC()})
}

func (s *Server) deliver(ctx context.Context, sink *ConnectionSink, e event.DomainEvent) {
	if err := sink.Consume(ctx, e); err != nil {
		s.log.Warn("Reply dropped", "session_id", e.SessionID(), "error", err)
	}
}

// writeLoop is the only goroutine writing to the socket.
func (s *Server) writeLoop(socket *websocket.Conn, sink *ConnectionSink) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sink.Done():
			_ = socket.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			_ = socket.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-sink.Frames():
			_ = socket.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := socket.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.log.Debug("Websocket write failed", "error", err)
				// Unblocks the reader, the connection is torn down from there
				_ = socket.Close()
				return
			}
		case <-ticker.C:
			_ = socket.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = socket.Close()
				return
			}
		}
	}
}

func (s *Server) track(id domain.ConnectionID, socket *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets[id] = socket
}

func (s *Server) untrack(id domain.ConnectionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets, id)
}

// CloseAll tells every client the server is going away.
// http.Server.Shutdown does not know about hijacked connections.
func (s *Server) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, socket := range s.sockets {
		deadline := time.Now().Add(time.Second)
		_ = socket.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"), deadline)
		_ = socket.Close()
		s.log.Debug("Socket closed on shutdown", "connection_id", id)
	}
}
