package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRegistry_RegisterAndUnregister(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	sink := mocks.NewMockEventSink(ctrl)

	// Given a registered connection
	req.NoError(registry.Register("c1", sink))
	req.True(registry.IsActive("c1"))
	req.Equal(1, registry.Count())
	found, ok := registry.Sink("c1")
	req.True(ok)
	req.Equal(sink, found)

	// When it is unregistered twice
	registry.Unregister("c1")
	registry.Unregister("c1")

	// Then it is gone and the second call is a no-op
	req.False(registry.IsActive("c1"))
	req.Equal(0, registry.Count())
	_, ok = registry.Sink("c1")
	req.False(ok)
}

func TestRegistry_DuplicateRegister(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()

	req.NoError(registry.Register("c1", mocks.NewMockEventSink(ctrl)))
	err := registry.Register("c1", mocks.NewMockEventSink(ctrl))

	req.ErrorIs(err, errors.ErrDuplicateConnection)
	req.Equal(1, registry.Count())
}

func TestRegistry_IsActive_Unknown(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	req.False(registry.IsActive(domain.ConnectionID("ghost")))
}

func TestRegistry_Clear(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	req.NoError(registry.Register("c1", mocks.NewMockEventSink(ctrl)))
	req.NoError(registry.Register("c2", mocks.NewMockEventSink(ctrl)))

	registry.Clear()

	req.Equal(0, registry.Count())
	req.False(registry.IsActive("c1"))
}
