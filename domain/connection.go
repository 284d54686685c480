package domain

import "time"

type ConnectionID string

// Connection is the transport handle as seen by the relay.
type Connection struct {
	ID          ConnectionID
	ConnectedAt time.Time
}

func NewConnection(id ConnectionID, at time.Time) Connection {
	return Connection{ID: id, ConnectedAt: at}
}
