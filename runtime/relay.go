// Package runtime holds the relay state (connections, sessions) and moves messages between them.
// It orchestrates the system without containing transport details.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

type FanoutPolicy string

const (
	// FanoutSession delivers to every current participant of the session, sender included.
	FanoutSession FanoutPolicy = "session"
	// FanoutEcho only sends the stamped copy back to the sender.
	FanoutEcho FanoutPolicy = "echo"
)

func ParseFanoutPolicy(s string) (FanoutPolicy, error) {
	switch FanoutPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case FanoutSession, "":
		return FanoutSession, nil
	case FanoutEcho:
		return FanoutEcho, nil
	default:
		return "", fmt.Errorf("%w: unknown fanout policy %q", errors.ErrInvalidConfig, s)
	}
}

// RelayEngine stamps inbound messages and fans them out to the session participants.
// It is stateless per call: connections and sessions live in the registry and the router.
// Delivery is fire-and-forget, a failing sink is logged and never retried.
type RelayEngine struct {
	log      *slog.Logger
	registry contract.IConnectionRegistry
	router   contract.ISessionRouter
	censor   contract.ICensor
	policy   FanoutPolicy
	ids      *IDGenerator
	events   chan<- event.DomainEvent
	now      func() time.Time

	relayed   atomic.Uint64
	delivered atomic.Uint64
	rejected  atomic.Uint64
	dropped   atomic.Uint64
}

func NewRelayEngine(log *slog.Logger, registry contract.IConnectionRegistry,
	router contract.ISessionRouter, policy FanoutPolicy,
	events chan<- event.DomainEvent) *RelayEngine {
	return &RelayEngine{
		log:      log,
		registry: registry,
		router:   router,
		policy:   policy,
		ids:      NewIDGenerator(time.Now),
		events:   events,
		now:      time.Now,
	}
}

// WithCensor plugs a moderation filter applied to the stamped copy.
func (e *RelayEngine) WithCensor(censor contract.ICensor) *RelayEngine {
	e.censor = censor
	return e
}

// WithClock replaces the wall clock used for ids and timestamps.
func (e *RelayEngine) WithClock(now func() time.Time) *RelayEngine {
	e.now = now
	e.ids = NewIDGenerator(now)
	return e
}

func (e *RelayEngine) Connect(conn domain.Connection, sink contract.EventSink) error {
	if err := e.registry.Register(conn.ID, sink); err != nil {
		e.log.Error("Connection rejected", "connection_id", conn.ID, "error", err)
		return err
	}
	e.log.Debug("Connection registered", "connection_id", conn.ID, "connected_at", conn.ConnectedAt)
	return nil
}

func (e *RelayEngine) Join(connectionID domain.ConnectionID, sessionID domain.SessionID) error {
	if sessionID == "" {
		return fmt.Errorf("%w: empty session", errors.ErrInvalidMessage)
	}
	return e.router.Join(sessionID, connectionID)
}

// Ingest validates, stamps and relays a message received on connectionID.
// Invalid messages are dropped without any fan-out.
func (e *RelayEngine) Ingest(ctx context.Context, connectionID domain.ConnectionID, raw domain.RawMessage) (domain.Message, error) {
	if !e.registry.IsActive(connectionID) {
		e.rejected.Add(1)
		return domain.Message{}, fmt.Errorf("%w: %s", errors.ErrConnectionNotActive, connectionID)
	}
	if err := domain.ValidateRawMessage(raw); err != nil {
		e.rejected.Add(1)
		e.log.Debug("Message dropped", "connection_id", connectionID, "error", err)
		return domain.Message{}, err
	}

	if e.censor != nil {
		censored, words := e.censor.Censor(raw.Text)
		if len(words) > 0 {
			e.log.Info("Message censored", "connection_id", connectionID,
				"session_id", raw.SessionID, "words", len(words))
		}
		raw.Text = censored
	}

	// Disconnected while the message was being checked
	if err := e.router.Join(raw.SessionID, connectionID); err != nil {
		e.rejected.Add(1)
		return domain.Message{}, err
	}
	at := e.router.Stamp(raw.SessionID, e.now().UTC())
	msg := domain.Stamp(raw, e.ids.Next(), connectionID, at)
	e.relayed.Add(1)

	e.fanout(ctx, msg)
	e.publish(msg)
	return msg, nil
}

// fanout delivers to the snapshot of participants taken at ingestion time.
func (e *RelayEngine) fanout(ctx context.Context, msg domain.Message) {
	recipients := e.router.ParticipantsOf(msg.SessionID)
	if e.policy == FanoutEcho {
		recipients = lo.Filter(recipients, func(id domain.ConnectionID, _ int) bool {
			return id == msg.ConnectionID
		})
	}

	evt := event.MessageRelayed{Message: msg}
	for _, id := range recipients {
		sink, ok := e.registry.Sink(id)
		if !ok {
			// Disconnected after the snapshot, the message is lost for this one
			continue
		}
		if err := sink.Consume(ctx, evt); err != nil {
			e.dropped.Add(1)
			e.log.Warn("Delivery failed", "connection_id", id,
				"message_id", msg.ID, "error", err)
			continue
		}
		e.delivered.Add(1)
	}
}

// publish hands the message to the permanent sinks pipeline without blocking the relay.
func (e *RelayEngine) publish(msg domain.Message) {
	if e.events == nil {
		return
	}
	select {
	case e.events <- event.MessageRelayed{Message: msg}:
	default:
		e.log.Warn("Relayed event pipeline full, event lost", "message_id", msg.ID)
	}
}

// Disconnect removes the connection from the registry and from every session
// before returning, so no later fan-out can target it.
func (e *RelayEngine) Disconnect(connectionID domain.ConnectionID) {
	e.registry.Unregister(connectionID)
	e.router.Leave(connectionID)
	e.log.Debug("Connection unregistered", "connection_id", connectionID)
}

func (e *RelayEngine) Stats() domain.RelayStats {
	return domain.RelayStats{
		Connections: e.registry.Count(),
		Sessions:    e.router.Sessions(),
		Relayed:     e.relayed.Load(),
		Delivered:   e.delivered.Load(),
		Rejected:    e.rejected.Load(),
		Dropped:     e.dropped.Load(),
	}
}
