package websocket

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"sync"
)

var _ contract.EventSink = (*ConnectionSink)(nil)

// ConnectionSink is the outbound queue of one websocket.
// Consume never blocks: the relay must not wait for a slow client.
// A single writer goroutine drains Frames.
type ConnectionSink struct {
	frames    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	return &ConnectionSink{
		frames: make(chan []byte, bufferSize),
		done:   make(chan struct{}),
	}
}

func (s *ConnectionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	frame, err := toFrame(e)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return errors.ErrConnectionNotActive
	default:
	}
	select {
	case s.frames <- frame:
		return nil
	case <-s.done:
		return errors.ErrConnectionNotActive
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrOutboundQueueFull
	}
}

func (s *ConnectionSink) Frames() <-chan []byte {
	return s.frames
}

func (s *ConnectionSink) Done() <-chan struct{} {
	return s.done
}

// Close stops accepting frames, pending ones are dropped.
func (s *ConnectionSink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
