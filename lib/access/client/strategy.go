package client

// --------------------------------------------------------------------------
// Strategy Interfaces
// --------------------------------------------------------------------------

// Strategy is the application-specific half of a client behavior. The
// coordinator drives the connection lifecycle; the strategy decides what the
// connections mean to the application.
//
// ConnectionUp and HaltClient are invoked on the actor goroutine.
// ConnectionUp additionally runs under the connection map's write lock and
// must therefore never block.
type Strategy interface {
	// OnCommand handles any command the base behavior does not recognize.
	// Returning false stops the client actor.
	OnCommand(cmd any) bool

	// ConnectionUp is invoked when a new connection has been established,
	// before any previous connection is frozen. Implementations prepare
	// higher-level state (e.g. rewrite transaction history pointers) and
	// return the cohort that completes the transition. The returned cohort
	// must be non-nil.
	ConnectionUp(newConn *ConnectedConnection) ConnectCohort

	// HaltClient is invoked at most once, when the client is terminally
	// failed. Implementations flush their state; no further activity happens
	// after it returns.
	HaltClient(cause error)
}

// ConnectCohort participates in exactly one reconnect transition.
type ConnectCohort interface {
	// FinishReconnect replays previously-enqueued entries onto the new
	// connection. Implementations may rewrite each entry, must preserve the
	// relative order of the entries they keep, and return the forwarder that
	// will receive any straggler entries arriving on the old connection
	// after this call returns.
	FinishReconnect(entries []*ConnectionEntry) ReconnectForwarder
}

// ReconnectForwarder redirects entries that land on a replaced connection
// during the brief transition window. Implementations apply the same rewrite
// to a forwarded entry that FinishReconnect applied to replayed ones.
type ReconnectForwarder interface {
	// ForwardEntry hands one straggler entry over to the successor
	// connection. Called in arrival order, serialized by the old
	// connection's queue.
	ForwardEntry(entry *ConnectionEntry)
}

// --------------------------------------------------------------------------
// Default Forwarder
// --------------------------------------------------------------------------

// EnqueueForwarder is the trivial forwarder: it re-enqueues stragglers onto
// the successor connection unchanged. Cohorts that do not rewrite entries
// can return it directly.
type EnqueueForwarder struct {
	Successor Connection
}

// ForwardEntry implements ReconnectForwarder.
func (f *EnqueueForwarder) ForwardEntry(entry *ConnectionEntry) {
	f.Successor.EnqueueEntry(entry)
}

// --------------------------------------------------------------------------
// Passthrough Strategy
// --------------------------------------------------------------------------

// PassthroughStrategy is the minimal strategy: replay entries unchanged,
// ignore unknown commands, log terminal failure. Applications with
// higher-level session state implement their own.
type PassthroughStrategy struct{}

// OnCommand implements Strategy.
func (PassthroughStrategy) OnCommand(cmd any) bool {
	log.Warningf("ignoring unhandled command %v", cmd)
	return true
}

// ConnectionUp implements Strategy.
func (PassthroughStrategy) ConnectionUp(newConn *ConnectedConnection) ConnectCohort {
	return &passthroughCohort{successor: newConn}
}

// HaltClient implements Strategy.
func (PassthroughStrategy) HaltClient(cause error) {
	log.Errorf("client halted: %v", cause)
}

// passthroughCohort re-enqueues replayed entries verbatim and forwards
// stragglers the same way.
type passthroughCohort struct {
	successor Connection
}

func (c *passthroughCohort) FinishReconnect(entries []*ConnectionEntry) ReconnectForwarder {
	for _, e := range entries {
		c.successor.EnqueueEntry(e)
	}
	return &EnqueueForwarder{Successor: c.successor}
}
