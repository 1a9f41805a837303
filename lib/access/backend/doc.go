// Package backend describes where a shard's authoritative replica currently
// lives and how the client finds out.
//
// An Info is an opaque descriptor of one backend replica. The
// coordinator only relies on its equality, its session token and its
// transmit window; everything else is private to the resolver and the
// transport.
//
// An InfoResolver performs the (potentially slow) lookup from shard
// cookie to Info. Two implementations are provided:
//
//   - StaticResolver resolves against a fixed in-process table, suitable for
//     single-cluster deployments with a known member list and for tests.
//   - NodeHostResolver asks a co-located dragonboat NodeHost for the current
//     leader of the raft shard backing a cookie.
//
// Resolvers are called from the coordinator's actor goroutine via a spawned
// goroutine; implementations must be safe for concurrent use.
package backend
