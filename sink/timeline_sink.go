package sink

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/repositories"
	"context"
	"sort"
	"sync"
)

var _ contract.EventSink = (*Timeline)(nil)

// Timeline holds the most recent messages of the most recently active sessions in memory.
// It serves history when the journal is disabled.
type Timeline struct {
	mu          sync.RWMutex
	capacity    int
	maxSessions int
	clock       uint64
	sessions    map[domain.SessionID]*timelineEntry
}

type timelineEntry struct {
	messages []domain.Message // sorted by cursor, oldest first
	touched  uint64
}

// NewTimeline keeps at most capacity messages per session and maxSessions sessions,
// the least recently written session is evicted first. Zero means unbounded.
func NewTimeline(capacity, maxSessions int) *Timeline {
	return &Timeline{
		capacity:    capacity,
		maxSessions: maxSessions,
		sessions:    make(map[domain.SessionID]*timelineEntry),
	}
}

func cursorOf(m domain.Message) string {
	return repositories.Cursor(m.Timestamp, string(m.ID))
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageRelayed:
		t.mu.Lock()
		defer t.mu.Unlock()
		t.clock++

		entry, ok := t.sessions[evt.Message.SessionID]
		if !ok {
			t.evictOldest()
			entry = &timelineEntry{}
			t.sessions[evt.Message.SessionID] = entry
		}
		entry.touched = t.clock

		// Relayed events usually arrive in order, concurrent senders may swap neighbours
		key := cursorOf(evt.Message)
		i := len(entry.messages)
		for i > 0 && cursorOf(entry.messages[i-1]) > key {
			i--
		}
		entry.messages = append(entry.messages, domain.Message{})
		copy(entry.messages[i+1:], entry.messages[i:])
		entry.messages[i] = evt.Message

		if t.capacity > 0 && len(entry.messages) > t.capacity {
			entry.messages = entry.messages[len(entry.messages)-t.capacity:]
		}
	}
	return nil
}

// evictOldest makes room for one more session. Must be called with the lock held.
func (t *Timeline) evictOldest() {
	if t.maxSessions <= 0 || len(t.sessions) < t.maxSessions {
		return
	}
	var oldest domain.SessionID
	var touched uint64
	first := true
	for id, entry := range t.sessions {
		if first || entry.touched < touched {
			oldest, touched, first = id, entry.touched, false
		}
	}
	delete(t.sessions, oldest)
}

// Page returns up to limit messages strictly older than cursor, newest first.
// The cursor has the journal layout and points at the last message served,
// so messages relayed between two calls never shift the next page.
func (t *Timeline) Page(sessionID domain.SessionID, cursor *string, limit int) ([]domain.Message, *string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, ok := t.sessions[sessionID]
	if !ok {
		return []domain.Message{}, nil
	}
	messages := entry.messages
	end := len(messages)
	if cursor != nil {
		end = sort.Search(len(messages), func(i int) bool {
			return cursorOf(messages[i]) >= *cursor
		})
	}
	if end <= 0 {
		return []domain.Message{}, nil
	}
	start := 0
	if limit > 0 && end-limit > 0 {
		start = end - limit
	}

	page := make([]domain.Message, 0, end-start)
	for i := end - 1; i >= start; i-- {
		page = append(page, messages[i])
	}
	if start == 0 {
		return page, nil
	}
	next := cursorOf(messages[start])
	return page, &next
}

func (t *Timeline) Sessions() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
