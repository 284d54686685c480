package errors

import "fmt"

var (
	ErrInvalidMessage      = fmt.Errorf("invalid message")
	ErrDuplicateConnection = fmt.Errorf("connection already registered")
	// ErrUnknownSession is only logged: an unknown session reads as an empty one
	ErrUnknownSession      = fmt.Errorf("unknown session")
	ErrConnectionNotActive = fmt.Errorf("connection is not active")
	ErrOutboundQueueFull   = fmt.Errorf("outbound queue is full")
	ErrUnknownEvent        = fmt.Errorf("unknown event")
	ErrIdentityRejected    = fmt.Errorf("identity provider rejected the request")

	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
	ErrInvalidReplacement = fmt.Errorf("replacement must be a single character")
	ErrCorruptedJournal   = fmt.Errorf("corrupted journal entry")
	ErrReconnectExhausted = fmt.Errorf("reconnection attempts exhausted")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
)
