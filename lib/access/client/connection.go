package client

import (
	"sync"

	"github.com/ValentinKolb/dAX/lib/access/concepts"
)

// --------------------------------------------------------------------------
// Connection Interface
// --------------------------------------------------------------------------

// Connection is one shard's connection object. Exactly one instance exists
// per shard cookie at any time; the behavior replaces instances atomically
// under the connection map's write lock as the shard moves through its
// lifecycle.
//
// Enqueue and EnqueueEntry may be called from any goroutine. All other
// methods are reserved to the behavior's actor goroutine.
type Connection interface {
	// Cookie returns the shard cookie. Immutable across variant changes.
	Cookie() uint64

	// Enqueue appends a request to the connection. The callback is invoked
	// exactly once, with the response or with a failure.
	Enqueue(req *concepts.Request, callback func(concepts.Response))

	// EnqueueEntry appends an already-created entry. Used by forwarders and
	// reconnect cohorts.
	EnqueueEntry(entry *ConnectionEntry)

	// ReceiveResponse delivers an inbound response envelope. Responses that
	// match no pending entry are logged and dropped.
	ReceiveResponse(env concepts.ResponseEnvelope)

	// Poison completes every buffered and in-flight entry with cause, marks
	// the connection terminal and asks the behavior to drop it from the map.
	Poison(cause *concepts.RequestError)

	// StartReplay atomically freezes the connection's queue and returns its
	// entries in enqueue order. Until FinishReplay is called, producers
	// block on enqueue; afterwards their entries are routed through the
	// installed forwarder.
	StartReplay() []*ConnectionEntry

	// FinishReplay installs the forwarder receiving all future entries and
	// releases producers blocked since StartReplay.
	FinishReplay(forwarder ReconnectForwarder)

	// Context returns the owning client's context.
	Context() *Context
}

// --------------------------------------------------------------------------
// Shared Connection Core
// --------------------------------------------------------------------------

// connectionBase carries the queue discipline shared by all variants.
//
// Locking: mu protects every mutable field. StartReplay acquires mu and
// FinishReplay releases it - the behavior holds the queue closed for the
// whole replay, which is what blocks producers out of the transition window.
type connectionBase struct {
	context  *Context
	cookie   uint64
	behavior *Behavior

	mu        sync.Mutex
	pending   []*ConnectionEntry
	forwarder ReconnectForwarder
	poisoned  *concepts.RequestError
	replaying bool
}

func (c *connectionBase) Cookie() uint64 {
	return c.cookie
}

func (c *connectionBase) Context() *Context {
	return c.context
}

// EnqueueEntry implements the buffering discipline of the non-transmitting
// variants: entries accumulate in pending up to the configured ceiling.
func (c *connectionBase) EnqueueEntry(entry *ConnectionEntry) {
	c.mu.Lock()

	if c.poisoned != nil {
		cause := c.poisoned
		c.mu.Unlock()
		entry.CompleteWith(cause)
		return
	}

	if c.forwarder != nil {
		// Keep the lock while forwarding so stragglers reach the successor
		// in arrival order
		metricForwardedEntries.Inc()
		c.forwarder.ForwardEntry(entry)
		c.mu.Unlock()
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

// ReceiveResponse matches the response against the pending queue. For the
// buffering variants the only legitimate matches are stragglers for entries
// that were in flight before the variant took over.
func (c *connectionBase) ReceiveResponse(env concepts.ResponseEnvelope) {
	resp := env.Message()

	c.mu.Lock()
	entry := c.removePendingLocked(resp.Sequence())
	c.mu.Unlock()

	if entry == nil {
		metricDroppedResponses.Inc()
		log.Infof("%s: connection %d ignoring unmatched response %s",
			c.context.PersistenceID(), c.cookie, resp)
		return
	}
	entry.Complete(resp)
}

// removePendingLocked extracts the pending entry with the given sequence.
// Caller holds mu.
func (c *connectionBase) removePendingLocked(sequence uint64) *ConnectionEntry {
	for i, e := range c.pending {
		if e.Request.Sequence == sequence {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return e
		}
	}
	return nil
}

// StartReplay freezes the queue. mu stays held until FinishReplay.
func (c *connectionBase) StartReplay() []*ConnectionEntry {
	c.mu.Lock()
	if c.replaying {
		panic("startReplay on a connection already replaying")
	}
	c.replaying = true

	entries := c.pending
	c.pending = nil
	return entries
}

// FinishReplay installs the forwarder and reopens the queue.
func (c *connectionBase) FinishReplay(forwarder ReconnectForwarder) {
	if !c.replaying {
		panic("finishReplay without startReplay")
	}
	c.replaying = false
	c.forwarder = forwarder
	c.mu.Unlock()
}

// poison is the shared terminal transition. self is the variant the behavior
// should drop from the map.
func (c *connectionBase) poison(self Connection, cause *concepts.RequestError) {
	c.mu.Lock()
	if c.poisoned != nil {
		c.mu.Unlock()
		return
	}
	c.poisoned = cause
	entries := c.pending
	c.pending = nil
	c.mu.Unlock()

	log.Infof("%s: poisoning connection %d: %v", c.context.PersistenceID(), c.cookie, cause)
	metricConnectionsPoisoned.Inc()

	for _, e := range entries {
		e.CompleteWith(cause)
	}

	c.behavior.removeConnection(self)
}
