package health

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sindrigils/chatroom/internal/lb/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRegistry struct {
	mu      sync.Mutex
	backend types.Backend
	probed  int
}

func (f *fakeRegistry) List() []types.Backend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []types.Backend{f.backend}
}

func (f *fakeRegistry) SetHealth(id types.BackendID, healthy bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backend.Healthy = healthy
}

func (f *fakeRegistry) TouchProbe(id types.BackendID) {
	f.mu.Lock()
	f.probed++
	f.mu.Unlock()
}

type fakeWS struct {
	mu      sync.Mutex
	drained []types.BackendID
}

func (f *fakeWS) CloseByBackend(backend types.BackendID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drained = append(f.drained, backend)
	return 3
}

func TestProbeOne_TransitionsToUnhealthyDrainsRegistry(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	reg := &fakeRegistry{backend: types.Backend{ID: "s1", BaseURL: down.URL, Healthy: true}}
	ws := &fakeWS{}
	p := New(reg, ws, time.Hour, time.Second, zap.NewNop())

	p.probeOne(t.Context(), reg.backend)

	reg.mu.Lock()
	require.False(t, reg.backend.Healthy)
	reg.mu.Unlock()

	ws.mu.Lock()
	require.Equal(t, []types.BackendID{"s1"}, ws.drained)
	ws.mu.Unlock()
}

func TestProbeOne_NoOpWhenNoTransition(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()

	reg := &fakeRegistry{backend: types.Backend{ID: "s1", BaseURL: up.URL, Healthy: true}}
	ws := &fakeWS{}
	p := New(reg, ws, time.Hour, time.Second, zap.NewNop())

	p.probeOne(t.Context(), reg.backend)

	ws.mu.Lock()
	require.Empty(t, ws.drained, "no drain should happen when the backend stays healthy")
	ws.mu.Unlock()
}

func TestProbeOne_UnreachableBackendCountsAsUnhealthy(t *testing.T) {
	reg := &fakeRegistry{backend: types.Backend{ID: "s1", BaseURL: "http://127.0.0.1:1", Healthy: true}}
	ws := &fakeWS{}
	p := New(reg, ws, time.Hour, time.Second, zap.NewNop())

	p.probeOne(t.Context(), reg.backend)

	reg.mu.Lock()
	require.False(t, reg.backend.Healthy)
	reg.mu.Unlock()
}
