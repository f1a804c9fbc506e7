package registry

import (
	"sync"
	"testing"

	"github.com/sindrigils/chatroom/internal/lb/types"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return New(map[types.BackendID]string{
		"s1": "http://localhost:3001",
		"s2": "http://localhost:3002",
		"s3": "http://localhost:3003",
	})
}

func TestLeastLoaded_IgnoresHealth(t *testing.T) {
	r := newTestRegistry()
	r.SetHealth("s1", false)
	r.Inc("s2")
	r.Inc("s2")
	r.Inc("s3")

	backend, ok := r.LeastLoaded()
	require.True(t, ok)
	require.Equal(t, types.BackendID("s1"), backend.ID, "leastLoaded must consider unhealthy replicas too")
}

func TestLeastLoadedHealthy_SkipsUnhealthy(t *testing.T) {
	r := newTestRegistry()
	r.SetHealth("s1", false)
	r.Inc("s2")
	r.Inc("s2")
	r.Inc("s3")

	backend, ok := r.LeastLoadedHealthy()
	require.True(t, ok)
	require.Equal(t, types.BackendID("s3"), backend.ID)
}

func TestIncDec_NeverUnderflows(t *testing.T) {
	r := newTestRegistry()
	r.Dec("s1")
	r.Dec("s1")
	backend, _ := r.ByID("s1")
	require.Equal(t, int64(0), backend.ActiveConnections)
}

func TestIncDec_ConcurrentBalancesOut(t *testing.T) {
	r := newTestRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Inc("s1")
			r.Dec("s1")
		}()
	}
	wg.Wait()

	backend, _ := r.ByID("s1")
	require.Equal(t, int64(0), backend.ActiveConnections)
}

func TestByID_UnknownReturnsFalse(t *testing.T) {
	r := newTestRegistry()
	_, ok := r.ByID("does-not-exist")
	require.False(t, ok)
}
