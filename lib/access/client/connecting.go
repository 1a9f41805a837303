package client

import (
	"github.com/ValentinKolb/dAX/lib/access/concepts"
)

// --------------------------------------------------------------------------
// Connecting Variant
// --------------------------------------------------------------------------

// ConnectingConnection is the initial variant of a shard connection, created
// lazily on the first GetConnection miss. No backend is known yet: entries
// are buffered until resolution succeeds and the behavior replaces this
// instance with a ConnectedConnection.
type ConnectingConnection struct {
	connectionBase
}

// newConnectingConnection creates the variant. Resolution is scheduled by
// the behavior, not here, so construction stays side-effect free.
func newConnectingConnection(context *Context, cookie uint64, behavior *Behavior) *ConnectingConnection {
	return &ConnectingConnection{
		connectionBase: connectionBase{
			context:  context,
			cookie:   cookie,
			behavior: behavior,
		},
	}
}

// Enqueue implements Connection.
func (c *ConnectingConnection) Enqueue(req *concepts.Request, callback func(concepts.Response)) {
	c.EnqueueEntry(NewConnectionEntry(req, callback))
}

// Poison implements Connection.
func (c *ConnectingConnection) Poison(cause *concepts.RequestError) {
	c.poison(c, cause)
}
