package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"sync"
)

var _ contract.IConnectionRegistry = (*Registry)(nil)

// Registry tracks active connections and the sink used to reach each of them.
// It holds non-owning references: the transport owns the connection lifecycle.
type Registry struct {
	mu          sync.RWMutex
	connections map[domain.ConnectionID]contract.EventSink
}

func NewRegistry() *Registry {
	return &Registry{connections: make(map[domain.ConnectionID]contract.EventSink)}
}

// Register adds a new active connection.
// A correct transport never reuses an id, the check only guards the invariant.
func (r *Registry) Register(id domain.ConnectionID, sink contract.EventSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[id]; ok {
		return fmt.Errorf("%w: %s", errors.ErrDuplicateConnection, id)
	}
	r.connections[id] = sink
	return nil
}

// Unregister is idempotent.
func (r *Registry) Unregister(id domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.connections, id)
}

func (r *Registry) IsActive(id domain.ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.connections[id]
	return ok
}

func (r *Registry) Sink(id domain.ConnectionID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.connections[id]
	return sink, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// Clear drops every entry, used at service stop.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections = make(map[domain.ConnectionID]contract.EventSink)
}
