package client

import (
	"github.com/ValentinKolb/dAX/lib/access/backend"
	"github.com/ValentinKolb/dAX/lib/access/concepts"
)

// --------------------------------------------------------------------------
// Connected Variant
// --------------------------------------------------------------------------

// ConnectedConnection is the only variant that transmits. It is bound to
// exactly one backend descriptor: the session token is immutable for the
// lifetime of the instance, a changed token always arrives as a replacement
// instance built by the behavior.
//
// Transmission is windowed: at most backend.MaxMessages() entries are in
// flight at any time, the rest wait in the pending queue. A failed transmit
// is treated as a transport signal and asks the behavior to reconnect the
// shard.
type ConnectedConnection struct {
	connectionBase

	backend     backend.Info
	transmitter RequestTransmitter

	// guarded by connectionBase.mu
	txSequence uint64
	inflight   []*ConnectionEntry
	failed     bool
}

// newConnectedConnection creates the variant bound to the given backend.
func newConnectedConnection(context *Context, cookie uint64, behavior *Behavior,
	info backend.Info, transmitter RequestTransmitter) *ConnectedConnection {
	return &ConnectedConnection{
		connectionBase: connectionBase{
			context:  context,
			cookie:   cookie,
			behavior: behavior,
		},
		backend:     info,
		transmitter: transmitter,
	}
}

// BackendInfo returns the backend this connection transmits to.
func (c *ConnectedConnection) BackendInfo() backend.Info {
	return c.backend
}

// Enqueue implements Connection.
func (c *ConnectedConnection) Enqueue(req *concepts.Request, callback func(concepts.Response)) {
	c.EnqueueEntry(NewConnectionEntry(req, callback))
}

// EnqueueEntry implements Connection. Entries transmit immediately while the
// window has room and the transport has not failed; otherwise they wait in
// the pending queue, bounded by the configured ceiling.
func (c *ConnectedConnection) EnqueueEntry(entry *ConnectionEntry) {
	c.mu.Lock()

	if c.poisoned != nil {
		cause := c.poisoned
		c.mu.Unlock()
		entry.CompleteWith(cause)
		return
	}

	if c.forwarder != nil {
		metricForwardedEntries.Inc()
		c.forwarder.ForwardEntry(entry)
		c.mu.Unlock()
		return
	}

	if !c.failed && len(c.inflight) < c.window() {
		c.inflight = append(c.inflight, entry)
		c.transmitLocked(entry)
		c.mu.Unlock()
		metricEntriesEnqueued.Inc()
		return
	}

	if len(c.pending) >= c.context.Config().QueueLimit {
		c.mu.Unlock()
		metricQueueOverflows.Inc()
		entry.CompleteWith(concepts.NewQueueOverflowError(c.context.Config().QueueLimit))
		return
	}

	c.pending = append(c.pending, entry)
	c.mu.Unlock()
	metricEntriesEnqueued.Inc()
}

// ReceiveResponse implements Connection. Responses are matched against the
// in-flight window by request sequence; a match frees window room, which is
// immediately refilled from the pending queue.
func (c *ConnectedConnection) ReceiveResponse(env concepts.ResponseEnvelope) {
	if env.Session() != c.backend.SessionToken() {
		metricDroppedResponses.Inc()
		log.Debugf("%s: connection %d dropping response from session %d (expected %d)",
			c.context.PersistenceID(), c.cookie, env.Session(), c.backend.SessionToken())
		return
	}

	resp := env.Message()

	c.mu.Lock()
	entry := c.removeInflightLocked(resp.Sequence())
	if entry != nil {
		// Refill the transmit window in enqueue order
		for !c.failed && len(c.pending) > 0 && len(c.inflight) < c.window() {
			next := c.pending[0]
			c.pending = c.pending[1:]
			c.inflight = append(c.inflight, next)
			c.transmitLocked(next)
		}
	}
	c.mu.Unlock()

	if entry == nil {
		metricDroppedResponses.Inc()
		log.Infof("%s: connection %d ignoring unmatched response %s",
			c.context.PersistenceID(), c.cookie, resp)
		return
	}
	entry.Complete(resp)
}

// StartReplay implements Connection. The replay view is the in-flight window
// followed by the pending queue, which is exactly enqueue order.
func (c *ConnectedConnection) StartReplay() []*ConnectionEntry {
	c.demoteInflight()
	return c.connectionBase.StartReplay()
}

// Poison implements Connection.
func (c *ConnectedConnection) Poison(cause *concepts.RequestError) {
	c.demoteInflight()
	c.poison(c, cause)
}

// demoteInflight moves the in-flight window back to the head of the pending
// queue so the shared queue discipline sees every outstanding entry.
func (c *ConnectedConnection) demoteInflight() {
	c.mu.Lock()
	if len(c.inflight) > 0 {
		c.pending = append(c.inflight, c.pending...)
		c.inflight = nil
	}
	c.mu.Unlock()
}

// removeInflightLocked extracts the in-flight entry with the given request
// sequence. Caller holds mu.
func (c *ConnectedConnection) removeInflightLocked(sequence uint64) *ConnectionEntry {
	for i, e := range c.inflight {
		if e.Request.Sequence == sequence {
			c.inflight = append(c.inflight[:i], c.inflight[i+1:]...)
			return e
		}
	}
	return nil
}

// window returns the transmit window, defaulting defensively when the
// backend descriptor carries none.
func (c *ConnectedConnection) window() int {
	if w := c.backend.MaxMessages(); w > 0 {
		return w
	}
	return 1
}

// transmitLocked frames and ships one entry. Caller holds mu. A transmit
// failure marks the connection failed and asks the behavior to reconnect;
// the entry stays in flight and will be replayed onto the successor.
func (c *ConnectedConnection) transmitLocked(entry *ConnectionEntry) {
	c.txSequence++
	env := &concepts.RequestEnvelope{
		Envelope: concepts.Envelope{
			SessionToken: c.backend.SessionToken(),
			TxSequence:   c.txSequence,
		},
		Message: entry.Request,
	}

	if err := c.transmitter.Transmit(c.backend, env); err != nil {
		if !c.failed {
			c.failed = true
			log.Warningf("%s: connection %d transmit to %v failed: %v",
				c.context.PersistenceID(), c.cookie, c.backend, err)
			c.behavior.requestReconnect(c)
		}
	}
}
