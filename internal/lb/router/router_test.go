package router

import (
	"testing"

	"github.com/sindrigils/chatroom/internal/lb/hashring"
	"github.com/sindrigils/chatroom/internal/lb/registry"
	"github.com/sindrigils/chatroom/internal/lb/types"
	"github.com/stretchr/testify/require"
)

func newTestRouter() (*Router, *registry.Registry) {
	reg := registry.New(map[types.BackendID]string{
		"s1": "http://localhost:3001",
		"s2": "http://localhost:3002",
		"s3": "http://localhost:3003",
	})
	ring := hashring.Build([]types.BackendID{"s1", "s2", "s3"}, reg)
	return New(reg, ring), reg
}

func TestRoute_StickyHit(t *testing.T) {
	rt, _ := newTestRouter()
	backend, ok := rt.Route(types.RoutingKey{HasSticky: true, StickyBackend: "s2"})
	require.True(t, ok)
	require.Equal(t, types.BackendID("s2"), backend.ID)
}

func TestRoute_StickyInvalidFallsBackToHash(t *testing.T) {
	rt, reg := newTestRouter()
	reg.SetHealth("s2", false)

	backend, ok := rt.Route(types.RoutingKey{
		HasSticky:     true,
		StickyBackend: "s2",
		HasUser:       true,
		UserID:        "42",
	})
	require.True(t, ok)
	require.NotEqual(t, types.BackendID("s2"), backend.ID)
}

func TestRoute_NoHintsFallsBackToLeastLoaded(t *testing.T) {
	rt, reg := newTestRouter()
	reg.Inc("s2")
	reg.Inc("s3")

	backend, ok := rt.Route(types.RoutingKey{})
	require.True(t, ok)
	require.Equal(t, types.BackendID("s1"), backend.ID)
}

func TestRoute_NoBackendsReturnsFalse(t *testing.T) {
	rt := New(registry.New(map[types.BackendID]string{}), hashring.Build(nil, registry.New(map[types.BackendID]string{})))
	_, ok := rt.Route(types.RoutingKey{})
	require.False(t, ok)
}
