package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"sync"
	"time"
)

// stampRetention is how long the last stamp of an empty session is remembered.
const stampRetention = time.Hour

var _ contract.ISessionRouter = (*Router)(nil)

// Router maps sessions to their participants.
// A connection talks in at most one session at a time, like the single active chat of the client.
// Every mutation happens under the same lock, so concurrent join/leave cannot lose updates.
// Last stamps are kept by session id, outside the membership lifecycle.
type Router struct {
	mu        sync.RWMutex
	registry  contract.IConnectionRegistry
	sessions  map[domain.SessionID]*domain.Session
	currentOf map[domain.ConnectionID]domain.SessionID
	lastStamp map[domain.SessionID]time.Time
	retention time.Duration
	lastPrune time.Time
}

func NewRouter(registry contract.IConnectionRegistry) *Router {
	return &Router{
		registry:  registry,
		sessions:  make(map[domain.SessionID]*domain.Session),
		currentOf: make(map[domain.ConnectionID]domain.SessionID),
		lastStamp: make(map[domain.SessionID]time.Time),
		retention: stampRetention,
	}
}

// Join attaches the connection to the session, creating it on the fly.
// Joining another session implicitly leaves the previous one.
// The registry is checked under the router lock: Disconnect unregisters before it leaves,
// so a connection can never be attached back once its Leave has run.
func (r *Router) Join(sessionID domain.SessionID, connectionID domain.ConnectionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.registry.IsActive(connectionID) {
		return fmt.Errorf("%w: %s", errors.ErrConnectionNotActive, connectionID)
	}

	if current, ok := r.currentOf[connectionID]; ok {
		if current == sessionID {
			return nil
		}
		r.detach(current, connectionID)
	}

	session, ok := r.sessions[sessionID]
	if !ok {
		session = domain.NewSession(sessionID)
		r.sessions[sessionID] = session
	}
	session.Add(connectionID)
	r.currentOf[connectionID] = sessionID
	return nil
}

// Leave removes the connection from every session it participates in.
func (r *Router) Leave(connectionID domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.currentOf[connectionID]; ok {
		r.detach(current, connectionID)
	}
	delete(r.currentOf, connectionID)
}

// detach must be called with the lock held.
// Empty sessions are removed to prevent the map from growing forever.
func (r *Router) detach(sessionID domain.SessionID, connectionID domain.ConnectionID) {
	session, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	session.Remove(connectionID)
	if session.Empty() {
		delete(r.sessions, sessionID)
	}
}

// ParticipantsOf returns a snapshot of the active participants.
// An unknown session is not an error, it simply has nobody in it.
func (r *Router) ParticipantsOf(sessionID domain.SessionID) []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return []domain.ConnectionID{}
	}
	res := make([]domain.ConnectionID, 0)
	for _, id := range session.Participants() {
		if r.registry.IsActive(id) {
			res = append(res, id)
		}
	}
	return res
}

func (r *Router) SessionOf(connectionID domain.ConnectionID) (domain.SessionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessionID, ok := r.currentOf[connectionID]
	return sessionID, ok
}

// Stamp returns a timestamp that never goes backwards for the session,
// even when the session emptied and was created again in between.
func (r *Router) Stamp(sessionID domain.SessionID, now time.Time) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := now
	if last, ok := r.lastStamp[sessionID]; ok && now.Before(last) {
		at = last
	}
	r.lastStamp[sessionID] = at
	r.pruneStamps(now)
	return at
}

// pruneStamps forgets empty sessions idle for longer than the retention, at most once per retention.
// Must be called with the lock held.
func (r *Router) pruneStamps(now time.Time) {
	if now.Sub(r.lastPrune) < r.retention {
		return
	}
	r.lastPrune = now
	for id, last := range r.lastStamp {
		if _, live := r.sessions[id]; !live && now.Sub(last) > r.retention {
			delete(r.lastStamp, id)
		}
	}
}

func (r *Router) Sessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Router) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[domain.SessionID]*domain.Session)
	r.currentOf = make(map[domain.ConnectionID]domain.SessionID)
	r.lastStamp = make(map[domain.SessionID]time.Time)
}
