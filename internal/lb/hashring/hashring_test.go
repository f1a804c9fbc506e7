package hashring

import (
	"testing"

	"github.com/sindrigils/chatroom/internal/lb/types"
	"github.com/stretchr/testify/require"
)

type fakeHealth struct {
	healthy map[types.BackendID]bool
}

func (f fakeHealth) ByID(id types.BackendID) (types.Backend, bool) {
	h, ok := f.healthy[id]
	if !ok {
		return types.Backend{}, false
	}
	return types.Backend{ID: id, Healthy: h}, true
}

func TestForUser_DeterministicAcrossRestarts(t *testing.T) {
	ids := []types.BackendID{"s1", "s2", "s3"}
	health := fakeHealth{healthy: map[types.BackendID]bool{"s1": true, "s2": true, "s3": true}}

	ring1 := Build(ids, health)
	ring2 := Build(ids, health)

	backend1, ok1 := ring1.ForUser("42")
	backend2, ok2 := ring2.ForUser("42")

	require.True(t, ok1)
	require.True(t, ok2)
	require.Equal(t, backend1, backend2)
}

func TestForUser_SkipsUnhealthy(t *testing.T) {
	ids := []types.BackendID{"s1", "s2", "s3"}
	health := fakeHealth{healthy: map[types.BackendID]bool{"s1": false, "s2": true, "s3": false}}
	ring := Build(ids, health)

	for _, user := range []string{"1", "2", "3", "42", "alice", "bob"} {
		backend, ok := ring.ForUser(user)
		require.True(t, ok)
		require.Equal(t, types.BackendID("s2"), backend)
	}
}

func TestForUser_NoneHealthyReturnsFalse(t *testing.T) {
	ids := []types.BackendID{"s1", "s2"}
	health := fakeHealth{healthy: map[types.BackendID]bool{"s1": false, "s2": false}}
	ring := Build(ids, health)

	_, ok := ring.ForUser("42")
	require.False(t, ok)
}

func TestForUser_EmptyRing(t *testing.T) {
	ring := Build(nil, fakeHealth{healthy: map[types.BackendID]bool{}})
	_, ok := ring.ForUser("42")
	require.False(t, ok)
}
