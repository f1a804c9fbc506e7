// Package router implements the Router component (spec.md §4.6): given a
// RoutingKey, pick a backend by priority sticky -> user hash -> least-loaded.
package router

import (
	"github.com/sindrigils/chatroom/internal/lb/types"
)

// Registry is the subset of the Backend Registry the router needs.
type Registry interface {
	ByID(id types.BackendID) (types.Backend, bool)
	LeastLoaded() (types.Backend, bool)
	LeastLoadedHealthy() (types.Backend, bool)
}

// Router picks a backend for each inbound request.
type Router struct {
	registry Registry
	ring     types.HashRing

	// PreferHealthyLeastLoaded tightens spec.md §4.1's documented historical
	// "ignore health" fallback to "healthy only", per the open question in
	// spec.md §9. Defaults to false to match the default testable scenarios.
	PreferHealthyLeastLoaded bool
}

// New builds a Router over a registry and hash ring.
func New(registry Registry, ring types.HashRing) *Router {
	return &Router{registry: registry, ring: ring}
}

// Route implements the priority chain documented in spec.md §4.6.
func (rt *Router) Route(key types.RoutingKey) (types.Backend, bool) {
	if key.HasSticky {
		if backend, ok := rt.registry.ByID(key.StickyBackend); ok && backend.Healthy {
			return backend, true
		}
	}

	if key.HasUser {
		if id, ok := rt.ring.ForUser(key.UserID); ok {
			if backend, ok := rt.registry.ByID(id); ok {
				return backend, true
			}
		}
	}

	if rt.PreferHealthyLeastLoaded {
		return rt.registry.LeastLoadedHealthy()
	}
	return rt.registry.LeastLoaded()
}

var _ types.Router = (*Router)(nil)
