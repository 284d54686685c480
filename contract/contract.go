//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

type IConnectionRegistry interface {
	Register(id domain.ConnectionID, sink EventSink) error
	Unregister(id domain.ConnectionID)
	IsActive(id domain.ConnectionID) bool
	Sink(id domain.ConnectionID) (EventSink, bool)
	Count() int
	Clear()
}

type ISessionRouter interface {
	Join(sessionID domain.SessionID, connectionID domain.ConnectionID) error
	Leave(connectionID domain.ConnectionID)
	ParticipantsOf(sessionID domain.SessionID) []domain.ConnectionID
	SessionOf(connectionID domain.ConnectionID) (domain.SessionID, bool)
	Stamp(sessionID domain.SessionID, now time.Time) time.Time
	Sessions() int
	Clear()
}

type ICensor interface {
	Censor(text string) (string, []string)
}

type IOrchestrator interface {
	Connect(conn domain.Connection, sink EventSink) error
	Join(connectionID domain.ConnectionID, sessionID domain.SessionID) error
	Ingest(ctx context.Context, connectionID domain.ConnectionID, raw domain.RawMessage) (domain.Message, error)
	Disconnect(connectionID domain.ConnectionID)
	History(sessionID domain.SessionID, cursor *string) ([]domain.Message, *string, error)
	Stats() domain.RelayStats
	Start(ctx context.Context) error
	Stop()
}
