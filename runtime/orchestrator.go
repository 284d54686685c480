package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime/workers"
	"chat-relay/sink"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

//go:embed censored/*
var censoredFolder embed.FS

var _ contract.IOrchestrator = (*Orchestrator)(nil)

type Config struct {
	FanoutPolicy      FanoutPolicy
	BufferSize        int
	SinkTimeout       time.Duration
	HeartbeatInterval time.Duration
	ModerationEnabled bool
	CharReplacement   rune
	// HistoryLimit is the page size of History, zero means unbounded.
	HistoryLimit int
}

// Orchestrator owns the relay state and the background pipeline feeding the permanent sinks.
type Orchestrator struct {
	mu                sync.Mutex
	log               *slog.Logger
	config            Config
	registry          *Registry
	router            *Router
	relay             *RelayEngine
	supervisor        contract.ISupervisor
	permanentSinks    []contract.EventSink
	timeline          *sink.Timeline
	messageRepository repositories.IMessageRepository
	relayedEvents     chan event.DomainEvent
}

// NewOrchestrator builds the relay. messageRepository may be nil when the journal is disabled,
// history is then served from an in-memory timeline.
func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	messageRepository repositories.IMessageRepository, config Config) (*Orchestrator, error) {
	registry := NewRegistry()
	router := NewRouter(registry)
	relayedEvents := make(chan event.DomainEvent, config.BufferSize)
	relay := NewRelayEngine(log, registry, router, config.FanoutPolicy, relayedEvents)

	if config.ModerationEnabled {
		moderator, err := prepareModeration(log, config.CharReplacement)
		if err != nil {
			return nil, err
		}
		relay.WithCensor(moderator)
	}

	o := &Orchestrator{
		log:               log,
		config:            config,
		registry:          registry,
		router:            router,
		relay:             relay,
		supervisor:        supervisor,
		messageRepository: messageRepository,
		relayedEvents:     relayedEvents,
	}
	if messageRepository != nil {
		o.permanentSinks = append(o.permanentSinks, sink.NewJournalSink(messageRepository, log))
	} else {
		o.timeline = sink.NewTimeline(timelineCapacity(config.HistoryLimit), timelineSessions)
		o.permanentSinks = append(o.permanentSinks, o.timeline)
	}
	return o, nil
}

// timelineSessions bounds the in-memory history to the most recently active sessions.
const timelineSessions = 10_000

func timelineCapacity(historyLimit int) int {
	return lo.Max([]int{historyLimit * 10, 1000})
}

// prepareModeration loads censored words and builds the Aho-Corasick automaton.
func prepareModeration(log *slog.Logger, charReplacement rune) (*moderation.Moderator, error) {
	loader := NewCensoredLoader(censoredFolder)
	data, err := loader.LoadAll("censored")
	if err != nil {
		return nil, err
	}

	log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	return moderation.NewModerator(data.Words, charReplacement, log)
}

// Add registers extra permanent sinks, it must be called before Start.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

func (o *Orchestrator) Connect(conn domain.Connection, sink contract.EventSink) error {
	return o.relay.Connect(conn, sink)
}

func (o *Orchestrator) Join(connectionID domain.ConnectionID, sessionID domain.SessionID) error {
	return o.relay.Join(connectionID, sessionID)
}

func (o *Orchestrator) Ingest(ctx context.Context, connectionID domain.ConnectionID, raw domain.RawMessage) (domain.Message, error) {
	return o.relay.Ingest(ctx, connectionID, raw)
}

func (o *Orchestrator) Disconnect(connectionID domain.ConnectionID) {
	o.relay.Disconnect(connectionID)
}

// History returns a page of past messages for the session, newest first.
// An unknown session is an empty page, the miss is only logged.
func (o *Orchestrator) History(sessionID domain.SessionID, cursor *string) ([]domain.Message, *string, error) {
	var messages []domain.Message
	var next *string
	if o.messageRepository == nil {
		messages, next = o.timeline.Page(sessionID, cursor, o.config.HistoryLimit)
	} else {
		diskMessages, diskNext, err := o.messageRepository.GetMessages(string(sessionID), cursor)
		if err != nil {
			return nil, nil, err
		}
		messages = lo.Map(diskMessages, func(item repositories.DiskMessage, _ int) domain.Message {
			return sink.FromDiskMessage(item)
		})
		next = diskNext
	}
	if cursor == nil && len(messages) == 0 {
		o.log.Debug("No history", "session_id", sessionID, "error", errors.ErrUnknownSession)
	}
	return messages, next, nil
}

func (o *Orchestrator) Stats() domain.RelayStats {
	return o.relay.Stats()
}

// Start prepares the background workers then runs the supervisor until ctx is done or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	sinks := append([]contract.EventSink(nil), o.permanentSinks...)
	o.supervisor.Add(
		workers.NewEventFanout(o.log, sinks, o.relayedEvents, o.config.SinkTimeout),
		workers.NewHeartbeatWorker(o.log, o.Stats, o.config.HeartbeatInterval),
		workers.NewChannelCapacityWorker(o.log, []workers.NamedChannel{
			{Name: "relayed_events", Channel: o.relayedEvents},
		}, o.config.HeartbeatInterval),
	)
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers",
		"fanout_policy", o.config.FanoutPolicy, "sinks", len(sinks))
	o.supervisor.Run(ctx)
	return nil
}

// Stop cancels the supervised workers and forgets every connection and session.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
	o.registry.Clear()
	o.router.Clear()
	o.log.Debug("Registry and router cleared")
}
