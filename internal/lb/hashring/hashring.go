// Package hashring implements the Hash Ring component: a consistent-hash map
// from user identity to backend id, grounded on the original load balancer's
// routing/hash_ring.rs (BTreeMap ring, 150 virtual nodes per replica,
// clockwise walk with wraparound, skip-unhealthy). The original hashes virtual
// node keys with Rust's SipHash-based DefaultHasher, which has no portable Go
// equivalent; FNV-1a is substituted here since spec.md only requires the
// mapping be "stable across restarts with the same hash function," not
// cross-language bit-compatibility (see DESIGN.md Open Question #1).
package hashring

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/sindrigils/chatroom/internal/lb/types"
)

const virtualNodesPerReplica = 150

type vnode struct {
	hash    uint64
	backend types.BackendID
}

// HealthChecker reports whether a backend is currently healthy; satisfied by
// registry.Registry.
type HealthChecker interface {
	ByID(id types.BackendID) (types.Backend, bool)
}

// Ring is the immutable consistent-hash ring; liveness is consulted live
// through the HealthChecker on every lookup.
type Ring struct {
	nodes   []vnode
	healthy HealthChecker
}

// Build constructs the ring once at startup from the given backend ids. The
// node set and ordering never change afterward; only liveness, read through
// healthy, varies.
func Build(backendIDs []types.BackendID, healthy HealthChecker) *Ring {
	nodes := make([]vnode, 0, len(backendIDs)*virtualNodesPerReplica)
	for _, id := range backendIDs {
		for i := 0; i < virtualNodesPerReplica; i++ {
			key := fmt.Sprintf("%s-%d", id, i)
			nodes = append(nodes, vnode{hash: hashKey(key), backend: id})
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].hash != nodes[j].hash {
			return nodes[i].hash < nodes[j].hash
		}
		return nodes[i].backend < nodes[j].backend
	})
	return &Ring{nodes: nodes, healthy: healthy}
}

func hashKey(key string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return h.Sum64()
}

// ForUser hashes userID, walks the ring clockwise from that point (wrapping
// around), and returns the first virtual node whose backend is currently
// healthy. Ties in hash value are broken by ring order (see Build's sort).
func (r *Ring) ForUser(userID string) (types.BackendID, bool) {
	if len(r.nodes) == 0 {
		return "", false
	}
	target := hashKey(userID)
	start := sort.Search(len(r.nodes), func(i int) bool { return r.nodes[i].hash >= target })

	seen := make(map[types.BackendID]bool, len(r.nodes))
	for i := 0; i < len(r.nodes); i++ {
		idx := (start + i) % len(r.nodes)
		candidate := r.nodes[idx].backend
		if seen[candidate] {
			continue
		}
		seen[candidate] = true
		if backend, ok := r.healthy.ByID(candidate); ok && backend.Healthy {
			return candidate, true
		}
	}
	return "", false
}

var _ types.HashRing = (*Ring)(nil)
