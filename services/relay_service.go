package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type IRelayService interface {
	Connect(sink contract.EventSink) (domain.Connection, error)
	JoinSession(connectionID domain.ConnectionID, sessionID domain.SessionID) error
	PostMessage(ctx context.Context, connectionID domain.ConnectionID, raw domain.RawMessage) (domain.Message, error)
	GetMessages(sessionID domain.SessionID, cursor *string) ([]domain.Message, *string, error)
	Disconnect(connectionID domain.ConnectionID)
	Stats() domain.RelayStats
}

// RelayService is the entry point used by transports.
// Connection identities are assigned here, transports never pick their own.
type RelayService struct {
	log          *slog.Logger
	orchestrator contract.IOrchestrator
	newID        func() string
	now          func() time.Time
}

func NewRelayService(log *slog.Logger, o contract.IOrchestrator) *RelayService {
	return &RelayService{
		log:          log,
		orchestrator: o,
		newID:        uuid.NewString,
		now:          time.Now,
	}
}

func (s *RelayService) Connect(sink contract.EventSink) (domain.Connection, error) {
	conn := domain.NewConnection(domain.ConnectionID(s.newID()), s.now().UTC())
	if err := s.orchestrator.Connect(conn, sink); err != nil {
		return domain.Connection{}, err
	}
	return conn, nil
}

func (s *RelayService) JoinSession(connectionID domain.ConnectionID, sessionID domain.SessionID) error {
	return s.orchestrator.Join(connectionID, sessionID)
}

func (s *RelayService) PostMessage(ctx context.Context, connectionID domain.ConnectionID, raw domain.RawMessage) (domain.Message, error) {
	return s.orchestrator.Ingest(ctx, connectionID, raw)
}

func (s *RelayService) GetMessages(sessionID domain.SessionID, cursor *string) ([]domain.Message, *string, error) {
	return s.orchestrator.History(sessionID, cursor)
}

func (s *RelayService) Disconnect(connectionID domain.ConnectionID) {
	s.orchestrator.Disconnect(connectionID)
}

func (s *RelayService) Stats() domain.RelayStats {
	return s.orchestrator.Stats()
}
