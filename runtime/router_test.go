package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newRouterWith(t *testing.T, ids ...domain.ConnectionID) (*Registry, *Router) {
	t.Helper()
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	for _, id := range ids {
		require.NoError(t, registry.Register(id, mocks.NewMockEventSink(ctrl)))
	}
	return registry, NewRouter(registry)
}

func TestRouter_JoinIsIdempotent(t *testing.T) {
	req := require.New(t)
	_, router := newRouterWith(t, "c1")

	req.NoError(router.Join("s1", "c1"))
	req.NoError(router.Join("s1", "c1"))

	req.Equal([]domain.ConnectionID{"c1"}, router.ParticipantsOf("s1"))
	req.Equal(1, router.Sessions())
}

func TestRouter_JoinAnotherSessionLeavesThePrevious(t *testing.T) {
	req := require.New(t)
	_, router := newRouterWith(t, "c1", "c2")
	req.NoError(router.Join("s1", "c1"))
	req.NoError(router.Join("s1", "c2"))

	// When c1 switches to s2
	req.NoError(router.Join("s2", "c1"))

	// Then s1 only keeps c2
	req.Equal([]domain.ConnectionID{"c2"}, router.ParticipantsOf("s1"))
	req.Equal([]domain.ConnectionID{"c1"}, router.ParticipantsOf("s2"))
	current, ok := router.SessionOf("c1")
	req.True(ok)
	req.Equal(domain.SessionID("s2"), current)
}

func TestRouter_LeaveRemovesEmptySession(t *testing.T) {
	req := require.New(t)
	_, router := newRouterWith(t, "c1")
	req.NoError(router.Join("s1", "c1"))

	router.Leave("c1")
	router.Leave("c1")

	req.Empty(router.ParticipantsOf("s1"))
	req.Equal(0, router.Sessions())
	_, ok := router.SessionOf("c1")
	req.False(ok)
}

func TestRouter_ParticipantsOf_UnknownSession(t *testing.T) {
	req := require.New(t)
	_, router := newRouterWith(t)

	participants := router.ParticipantsOf("nobody")

	req.NotNil(participants)
	req.Empty(participants)
}

func TestRouter_ParticipantsOf_FiltersInactive(t *testing.T) {
	req := require.New(t)
	registry, router := newRouterWith(t, "c1", "c2")
	req.NoError(router.Join("s1", "c1"))
	req.NoError(router.Join("s1", "c2"))

	// Given c2 unregistered without leaving
	registry.Unregister("c2")

	// Then it is no longer a participant
	req.Equal([]domain.ConnectionID{"c1"}, router.ParticipantsOf("s1"))
}

func TestRouter_Stamp_NeverGoesBackwards(t *testing.T) {
	req := require.New(t)
	_, router := newRouterWith(t, "c1")
	req.NoError(router.Join("s1", "c1"))
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	first := router.Stamp("s1", now)
	// Wall clock going backwards
	second := router.Stamp("s1", now.Add(-time.Minute))

	req.Equal(now, first)
	req.False(second.Before(first))
}

func TestRouter_Join_InactiveConnection(t *testing.T) {
	req := require.New(t)
	registry, router := newRouterWith(t, "c1")

	// Given c1 unregistered before its join is handled
	registry.Unregister("c1")

	// Then the join is refused and no session is created
	req.ErrorIs(router.Join("s1", "c1"), errors.ErrConnectionNotActive)
	req.ErrorIs(router.Join("s1", "ghost"), errors.ErrConnectionNotActive)
	req.Equal(0, router.Sessions())
	_, ok := router.SessionOf("c1")
	req.False(ok)
}

func TestRouter_Stamp_SurvivesSessionRecreation(t *testing.T) {
	req := require.New(t)
	_, router := newRouterWith(t, "c1")
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	req.NoError(router.Join("s1", "c1"))
	first := router.Stamp("s1", now)

	// Given s1 emptied then created again while the wall clock went backwards
	router.Leave("c1")
	req.Equal(0, router.Sessions())
	req.NoError(router.Join("s1", "c1"))
	second := router.Stamp("s1", now.Add(-time.Second))

	// Then the new message is not stamped before the previous one
	req.Equal(first, second)
}

func TestRouter_Stamp_PrunesIdleEmptySessions(t *testing.T) {
	req := require.New(t)
	_, router := newRouterWith(t, "c1")
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	req.NoError(router.Join("live", "c1"))
	router.Stamp("live", now)
	router.Stamp("gone", now)

	// When a stamp happens after the retention
	later := now.Add(router.retention + time.Minute)
	router.Stamp("other", later)

	// Then only the empty idle session is forgotten
	req.Contains(router.lastStamp, domain.SessionID("live"))
	req.Contains(router.lastStamp, domain.SessionID("other"))
	req.NotContains(router.lastStamp, domain.SessionID("gone"))
}

func TestRouter_ConcurrentJoinLeave(t *testing.T) {
	req := require.New(t)
	ids := make([]domain.ConnectionID, 0, 50)
	for i := 0; i < 50; i++ {
		ids = append(ids, domain.ConnectionID(fmt.Sprintf("c%02d", i)))
	}
	_, router := newRouterWith(t, ids...)

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id domain.ConnectionID) {
			defer wg.Done()
			if err := router.Join("s1", id); err != nil {
				t.Error(err)
			}
		}(id)
	}
	wg.Wait()
	req.Len(router.ParticipantsOf("s1"), 50)

	for _, id := range ids[:25] {
		wg.Add(1)
		go func(id domain.ConnectionID) {
			defer wg.Done()
			router.Leave(id)
		}(id)
	}
	wg.Wait()
	req.Equal(ids[25:], router.ParticipantsOf("s1"))
}
