package runtime

import (
	"chat-relay/domain"
	"sync"
	"time"
)

// IDGenerator hands out wall-clock derived message ids (Unix milliseconds).
// Ids are strictly increasing for the process lifetime: two messages stamped
// within the same millisecond get consecutive values.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

func (g *IDGenerator) Next() domain.MessageID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return domain.MillisID(ms)
}
