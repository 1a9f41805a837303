package backend

import (
	"context"
	"time"

	"github.com/lni/dragonboat/v4"
)

// --------------------------------------------------------------------------
// NodeHost Resolver
// --------------------------------------------------------------------------

// leaderSource is the slice of the dragonboat NodeHost API this resolver
// needs. *dragonboat.NodeHost satisfies it.
type leaderSource interface {
	GetLeaderID(shardID uint64) (uint64, uint64, bool, error)
}

var _ leaderSource = (*dragonboat.NodeHost)(nil)

// NodeHostResolver resolves shard cookies through a co-located dragonboat
// NodeHost: the cookie is used as the raft shard id and the shard's current
// leader replica becomes the backend. The raft term doubles as the session
// token, so a leader change always yields a new session.
type NodeHostResolver struct {
	nh      leaderSource
	members map[uint64]string // replica id -> address
	window  int
	poll    time.Duration
}

// NewNodeHostResolver creates a resolver backed by the given NodeHost.
// members maps replica ids to their transport addresses.
func NewNodeHostResolver(nh *dragonboat.NodeHost, members map[uint64]string, window int) *NodeHostResolver {
	return &NodeHostResolver{
		nh:      nh,
		members: members,
		window:  window,
		poll:    100 * time.Millisecond,
	}
}

// GetBackendInfo implements InfoResolver. It polls the NodeHost until the
// shard has a valid leader or the context expires.
func (r *NodeHostResolver) GetBackendInfo(ctx context.Context, cookie uint64) (Info, error) {
	return r.awaitLeader(ctx, cookie, 0)
}

// RefreshBackendInfo implements InfoResolver. It waits until the leader
// differs from the stale replica or a new term has started.
func (r *NodeHostResolver) RefreshBackendInfo(ctx context.Context, cookie uint64, stale Info) (Info, error) {
	staleSession := uint64(0)
	if stale != nil {
		staleSession = stale.SessionToken()
	}
	return r.awaitLeader(ctx, cookie, staleSession)
}

// awaitLeader polls for a leader whose term is newer than afterSession.
func (r *NodeHostResolver) awaitLeader(ctx context.Context, cookie, afterSession uint64) (Info, error) {
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		leaderID, term, valid, err := r.nh.GetLeaderID(cookie)
		if err != nil {
			log.Warningf("leader lookup for shard %d failed: %v", cookie, err)
		} else if valid && term > afterSession {
			addr, ok := r.members[leaderID]
			if !ok {
				log.Warningf("leader %d of shard %d has no known address", leaderID, cookie)
			} else {
				return &ShardBackendInfo{
					ReplicaID: leaderID,
					Address:   addr,
					Session:   term,
					Window:    r.window,
				}, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ErrResolveTimeout
		case <-ticker.C:
		}
	}
}
