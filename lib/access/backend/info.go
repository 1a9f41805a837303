package backend

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Backend Descriptor
// --------------------------------------------------------------------------

// Info describes a single backend replica as seen by the client. The
// coordinator treats it as opaque except for the session token and the
// transmit window.
type Info interface {
	fmt.Stringer

	// SessionToken returns the monotonic per-connection session identifier.
	// A connected connection is bound to exactly one token; a changed token
	// always means a new connection instance.
	SessionToken() uint64

	// MaxMessages returns the number of requests that may be in flight to
	// this backend at any one time.
	MaxMessages() int
}

// ShardBackendInfo is the concrete descriptor used by the bundled resolvers.
type ShardBackendInfo struct {
	// ReplicaID is the cluster-wide id of the replica currently owning the
	// shard.
	ReplicaID uint64
	// Address is the replica's transport endpoint.
	Address string
	// Session is the session token under which the backend accepts traffic.
	Session uint64
	// Window is the maximum number of in-flight requests.
	Window int
}

func (b *ShardBackendInfo) SessionToken() uint64 { return b.Session }
func (b *ShardBackendInfo) MaxMessages() int     { return b.Window }

func (b *ShardBackendInfo) String() string {
	return fmt.Sprintf("Backend{replica=%d, address=%s, session=%d, window=%d}",
		b.ReplicaID, b.Address, b.Session, b.Window)
}
