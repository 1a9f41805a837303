package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("backend")

// --------------------------------------------------------------------------
// Static Resolver
// --------------------------------------------------------------------------

// StaticResolver resolves shard cookies against a fixed member table. It is
// used for deployments with a known, config-provided cluster layout and as
// the resolver of choice in tests.
//
// Refreshing a shard rotates to the next member in the table and bumps the
// session token, mimicking a leader change.
type StaticResolver struct {
	mu      sync.Mutex
	members []string // replica addresses, index = replica id
	window  int
	// per-cookie state so repeated refreshes keep rotating
	current map[uint64]*ShardBackendInfo
	session uint64
}

// NewStaticResolver creates a resolver over the given member addresses.
// window is the transmit window advertised for every backend.
func NewStaticResolver(members []string, window int) *StaticResolver {
	return &StaticResolver{
		members: members,
		window:  window,
		current: make(map[uint64]*ShardBackendInfo),
	}
}

// GetBackendInfo implements InfoResolver.
func (r *StaticResolver) GetBackendInfo(ctx context.Context, cookie uint64) (Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.members) == 0 {
		return nil, fmt.Errorf("no members configured")
	}

	if info, ok := r.current[cookie]; ok {
		return info, nil
	}

	// Deterministic initial placement: cookie modulo member count
	replica := cookie % uint64(len(r.members))
	info := r.newBackendLocked(cookie, replica)
	log.Debugf("resolved cookie %d to %v", cookie, info)
	return info, nil
}

// RefreshBackendInfo implements InfoResolver.
func (r *StaticResolver) RefreshBackendInfo(ctx context.Context, cookie uint64, stale Info) (Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.members) == 0 {
		return nil, fmt.Errorf("no members configured")
	}

	// Rotate away from the stale replica
	replica := uint64(0)
	if prev, ok := stale.(*ShardBackendInfo); ok {
		replica = (prev.ReplicaID + 1) % uint64(len(r.members))
	}
	info := r.newBackendLocked(cookie, replica)
	log.Infof("refreshed cookie %d from %v to %v", cookie, stale, info)
	return info, nil
}

// newBackendLocked allocates a descriptor with a fresh session token and
// records it as the cookie's current backend. Caller holds r.mu.
func (r *StaticResolver) newBackendLocked(cookie, replica uint64) *ShardBackendInfo {
	r.session++
	info := &ShardBackendInfo{
		ReplicaID: replica,
		Address:   r.members[replica],
		Session:   r.session,
		Window:    r.window,
	}
	r.current[cookie] = info
	return info
}
