// Package wsregistry implements the WS Connection Registry component,
// grounded on the original load balancer's core/websocket_manager.rs:
// conn_{n} monotonic ids, a dual map (by id, by backend), and a best-effort
// non-blocking close signal fanout used to drain sockets on backend failure.
package wsregistry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sindrigils/chatroom/internal/lb/types"
)

type handle struct {
	id      types.ConnID
	backend types.BackendID
	userID  string
	closeCh chan struct{}
	once    sync.Once
}

func (h *handle) signalClose() {
	h.once.Do(func() { close(h.closeCh) })
}

// Registry tracks every live proxied WebSocket session.
type Registry struct {
	mu         sync.RWMutex
	counter    uint64
	byID       map[types.ConnID]*handle
	byBackend  map[types.BackendID]map[types.ConnID]*handle
}

// New returns an empty WS Connection Registry.
func New() *Registry {
	return &Registry{
		byID:      make(map[types.ConnID]*handle),
		byBackend: make(map[types.BackendID]map[types.ConnID]*handle),
	}
}

// Add creates a handle for a newly-dialed backend connection and returns its
// id plus a receive-only close-signal channel the proxy loop should select on.
func (r *Registry) Add(backend types.BackendID, userID string) (types.ConnID, <-chan struct{}) {
	n := atomic.AddUint64(&r.counter, 1)
	id := types.ConnID(fmt.Sprintf("conn_%d", n))
	h := &handle{id: id, backend: backend, userID: userID, closeCh: make(chan struct{})}

	r.mu.Lock()
	r.byID[id] = h
	if r.byBackend[backend] == nil {
		r.byBackend[backend] = make(map[types.ConnID]*handle)
	}
	r.byBackend[backend][id] = h
	r.mu.Unlock()

	return id, h.closeCh
}

// Remove deletes a handle on session teardown; safe to call more than once.
func (r *Registry) Remove(id types.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	if set, ok := r.byBackend[h.backend]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.byBackend, h.backend)
		}
	}
}

// ListByBackend returns the connection ids currently pinned to a backend.
func (r *Registry) ListByBackend(backend types.BackendID) []types.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byBackend[backend]
	out := make([]types.ConnID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// CloseByBackend delivers a best-effort, non-blocking close signal to every
// handle pinned to backend, removes those handles from both indexes, and
// returns the count of signals actually sent.
func (r *Registry) CloseByBackend(backend types.BackendID) int {
	r.mu.Lock()
	set := r.byBackend[backend]
	handles := make([]*handle, 0, len(set))
	for id, h := range set {
		handles = append(handles, h)
		delete(r.byID, id)
	}
	delete(r.byBackend, backend)
	r.mu.Unlock()

	sent := 0
	for _, h := range handles {
		select {
		case <-h.closeCh:
			// already closed
		default:
			h.signalClose()
			sent++
		}
	}
	return sent
}

var _ types.WSRegistry = (*Registry)(nil)
