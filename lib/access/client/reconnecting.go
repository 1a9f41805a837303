package client

import (
	"github.com/ValentinKolb/dAX/lib/access/backend"
	"github.com/ValentinKolb/dAX/lib/access/concepts"
)

// --------------------------------------------------------------------------
// Reconnecting Variant
// --------------------------------------------------------------------------

// ReconnectingConnection replaces a ConnectedConnection whose transport has
// signaled failure. It inherits the predecessor's in-flight and buffered
// entries (in that order) for later replay, buffers new entries, and keeps
// the stale backend descriptor around so the resolver can avoid answering
// with the replica that just failed.
//
// Straggler responses from the old session are still accepted: a reply that
// matches an inherited entry completes it and removes it from the replay
// set.
type ReconnectingConnection struct {
	connectionBase
	stale backend.Info
}

// newReconnectingConnection creates the variant from a frozen predecessor.
// entries is the predecessor's replay view, already in enqueue order.
func newReconnectingConnection(from *ConnectedConnection, entries []*ConnectionEntry) *ReconnectingConnection {
	return &ReconnectingConnection{
		connectionBase: connectionBase{
			context:  from.context,
			cookie:   from.cookie,
			behavior: from.behavior,
			pending:  entries,
		},
		stale: from.BackendInfo(),
	}
}

// BackendInfo returns the descriptor of the backend that failed.
func (c *ReconnectingConnection) BackendInfo() backend.Info {
	return c.stale
}

// Enqueue implements Connection.
func (c *ReconnectingConnection) Enqueue(req *concepts.Request, callback func(concepts.Response)) {
	c.EnqueueEntry(NewConnectionEntry(req, callback))
}

// ReceiveResponse implements Connection. Responses from sessions other than
// the stale backend's cannot belong to an inherited entry and are dropped.
func (c *ReconnectingConnection) ReceiveResponse(env concepts.ResponseEnvelope) {
	if c.stale != nil && env.Session() != c.stale.SessionToken() {
		metricDroppedResponses.Inc()
		log.Debugf("%s: connection %d dropping response from session %d (expected %d)",
			c.context.PersistenceID(), c.cookie, env.Session(), c.stale.SessionToken())
		return
	}
	c.connectionBase.ReceiveResponse(env)
}

// Poison implements Connection.
func (c *ReconnectingConnection) Poison(cause *concepts.RequestError) {
	c.poison(c, cause)
}
