package domain

import (
	"sort"
)

type Set map[ConnectionID]struct{}

// Session groups the connections currently talking in the same chat thread.
type Session struct {
	ID           SessionID
	participants Set
}

func NewSession(id SessionID) *Session {
	return &Session{ID: id, participants: make(Set)}
}

func (s *Session) Add(id ConnectionID) {
	s.participants[id] = struct{}{}
}

func (s *Session) Remove(id ConnectionID) {
	delete(s.participants, id)
}

func (s *Session) Has(id ConnectionID) bool {
	_, ok := s.participants[id]
	return ok
}

func (s *Session) Empty() bool {
	return len(s.participants) == 0
}

// Participants returns a sorted snapshot.
func (s *Session) Participants() []ConnectionID {
	res := make([]ConnectionID, 0, len(s.participants))
	for id := range s.participants {
		res = append(res, id)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}
