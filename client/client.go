// Package client is a relay client with bounded reconnection, used by the CLI.
package client

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/infrastructure/websocket"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	gws "github.com/gorilla/websocket"
)

type Config struct {
	URL               string
	Origin            string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	BufferSize        int
}

type Client struct {
	log      *slog.Logger
	config   Config
	dialer   *gws.Dialer
	incoming chan websocket.Envelope

	mu      sync.Mutex
	conn    *gws.Conn
	session domain.SessionID
}

func New(log *slog.Logger, config Config) *Client {
	if config.BufferSize <= 0 {
		config.BufferSize = 64
	}
	return &Client{
		log:      log,
		config:   config,
		dialer:   gws.DefaultDialer,
		incoming: make(chan websocket.Envelope, config.BufferSize),
	}
}

// Incoming is closed when Run returns.
func (c *Client) Incoming() <-chan websocket.Envelope {
	return c.incoming
}

// Connect dials the relay, retrying at most ReconnectAttempts times with a fixed delay.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dialWithRetry(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

func (c *Client) dialWithRetry(ctx context.Context) (*gws.Conn, error) {
	header := http.Header{}
	if c.config.Origin != "" {
		header.Set("Origin", c.config.Origin)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.ReconnectAttempts; attempt++ {
		if attempt > 0 {
			c.log.Warn("Relay unreachable, retrying", "attempt", attempt,
				"max_attempts", c.config.ReconnectAttempts, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.ReconnectDelay):
			}
		}
		conn, _, err := c.dialer.DialContext(ctx, c.config.URL, header)
		if err == nil {
			c.log.Debug("Connected to relay", "url", c.config.URL)
			return conn, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", errors.ErrReconnectExhausted, lastErr)
}

// Join switches the client to sessionID, it is joined again after every reconnection.
func (c *Client) Join(sessionID domain.SessionID) error {
	c.mu.Lock()
	c.session = sessionID
	c.mu.Unlock()
	return c.write(websocket.EventJoin, websocket.JoinPayload{SessionID: sessionID})
}

func (c *Client) Send(text string) error {
	c.mu.Lock()
	sessionID := c.session
	c.mu.Unlock()
	now := time.Now().UTC()
	return c.write(websocket.EventChatMessage, domain.RawMessage{
		ID:        domain.MillisID(now.UnixMilli()),
		SessionID: sessionID,
		Text:      text,
		Sender:    domain.SenderUser,
		Timestamp: &now,
	})
}

func (c *Client) History(sessionID domain.SessionID, cursor *string) error {
	return c.write(websocket.EventHistory, websocket.HistoryRequest{SessionID: sessionID, Cursor: cursor})
}

// write holds the lock for the whole frame: gorilla supports a single concurrent writer.
func (c *Client) write(name string, data any) error {
	frame, err := websocket.Encode(name, data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.ErrConnectionNotActive
	}
	return c.conn.WriteMessage(gws.TextMessage, frame)
}

// Run reads frames until ctx is done. A dropped connection is re-established
// with the same bounded policy as Connect, ErrReconnectExhausted is returned when it gives up.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.incoming)
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return errors.ErrConnectionNotActive
		}

		err := c.readAll(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn("Connection to relay lost", "error", err)

		conn, err = c.dialWithRetry(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		c.mu.Lock()
		c.conn = conn
		sessionID := c.session
		c.mu.Unlock()
		if sessionID != "" {
			if err := c.write(websocket.EventJoin, websocket.JoinPayload{SessionID: sessionID}); err != nil {
				c.log.Warn("Rejoin failed", "session_id", sessionID, "error", err)
			}
		}
	}
}

func (c *Client) readAll(ctx context.Context, conn *gws.Conn) error {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env websocket.Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			c.log.Debug("Unreadable frame ignored", "error", err)
			continue
		}
		select {
		case c.incoming <- env:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(gws.CloseMessage,
		gws.FormatCloseMessage(gws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}
