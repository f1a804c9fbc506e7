// Package registry implements the Backend Registry component: the set of
// application server replicas, their liveness, and their active-connection
// counters. Grounded on the original load balancer's server_pool.rs for the
// exact leastLoaded semantics (minimum over all replicas, healthy or not).
package registry

import (
	"sync"
	"time"

	"github.com/sindrigils/chatroom/internal/lb/types"
	"github.com/sony/gobreaker"
)

type replica struct {
	id                types.BackendID
	baseURL           string
	healthy           bool
	lastProbe         time.Time
	activeConnections int64
	breaker           *gobreaker.CircuitBreaker
}

// Registry is the concrete, mutex-guarded Backend Registry.
type Registry struct {
	mu       sync.RWMutex
	order    []types.BackendID
	replicas map[types.BackendID]*replica
}

// New builds a Registry from a set of (id, baseURL) pairs. Each replica gets
// its own circuit breaker, returned by Breaker; the HTTP and WebSocket proxies
// do not route their calls through it, so it does not stop forwards to a
// failing replica.
func New(specs map[types.BackendID]string) *Registry {
	r := &Registry{replicas: make(map[types.BackendID]*replica, len(specs))}
	for id, baseURL := range specs {
		r.order = append(r.order, id)
		r.replicas[id] = &replica{
			id:      id,
			baseURL: baseURL,
			healthy: true,
			breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:        string(id),
				MaxRequests: 5,
				Interval:    time.Minute,
				Timeout:     15 * time.Second,
			}),
		}
	}
	return r
}

func snapshot(rep *replica) types.Backend {
	return types.Backend{
		ID:                rep.id,
		BaseURL:           rep.baseURL,
		Healthy:           rep.healthy,
		LastProbe:         rep.lastProbe,
		ActiveConnections: rep.activeConnections,
	}
}

// List returns a consistent snapshot of every replica.
func (r *Registry) List() []types.Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Backend, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, snapshot(r.replicas[id]))
	}
	return out
}

// ByID returns one replica's snapshot.
func (r *Registry) ByID(id types.BackendID) (types.Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.replicas[id]
	if !ok {
		return types.Backend{}, false
	}
	return snapshot(rep), true
}

// Healthy returns the snapshots of currently healthy replicas.
func (r *Registry) Healthy() []types.Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Backend, 0, len(r.order))
	for _, id := range r.order {
		if rep := r.replicas[id]; rep.healthy {
			out = append(out, snapshot(rep))
		}
	}
	return out
}

// LeastLoaded returns the replica with the minimum activeConnections across
// ALL replicas, healthy or not — the historical behavior documented in
// spec.md §4.1 and §9. Callers that want the tightened "healthy only" policy
// should filter Healthy() themselves; see router.Router's PreferHealthyLeastLoaded.
func (r *Registry) LeastLoaded() (types.Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *replica
	for _, id := range r.order {
		rep := r.replicas[id]
		if best == nil || rep.activeConnections < best.activeConnections {
			best = rep
		}
	}
	if best == nil {
		return types.Backend{}, false
	}
	return snapshot(best), true
}

// LeastLoadedHealthy is the tightened alternative mentioned as an open
// question in spec.md §9: minimum over healthy replicas only.
func (r *Registry) LeastLoadedHealthy() (types.Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *replica
	for _, id := range r.order {
		rep := r.replicas[id]
		if !rep.healthy {
			continue
		}
		if best == nil || rep.activeConnections < best.activeConnections {
			best = rep
		}
	}
	if best == nil {
		return types.Backend{}, false
	}
	return snapshot(best), true
}

// SetHealth updates a replica's liveness flag.
func (r *Registry) SetHealth(id types.BackendID, healthy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rep, ok := r.replicas[id]; ok {
		rep.healthy = healthy
	}
}

// TouchProbe records the time of the most recent probe attempt.
func (r *Registry) TouchProbe(id types.BackendID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rep, ok := r.replicas[id]; ok {
		rep.lastProbe = time.Now()
	}
}

// Inc increments a replica's active connection counter; call before forwarding.
func (r *Registry) Inc(id types.BackendID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rep, ok := r.replicas[id]; ok {
		rep.activeConnections++
	}
}

// Dec decrements a replica's active connection counter, guarded against
// underflow so a duplicate release on an error path can never go negative.
func (r *Registry) Dec(id types.BackendID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rep, ok := r.replicas[id]; ok && rep.activeConnections > 0 {
		rep.activeConnections--
	}
}

// Breaker returns the circuit breaker guarding calls to one replica.
func (r *Registry) Breaker(id types.BackendID) *gobreaker.CircuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rep, ok := r.replicas[id]; ok {
		return rep.breaker
	}
	return nil
}

var _ types.BackendRegistry = (*Registry)(nil)
