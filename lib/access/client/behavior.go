package client

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ValentinKolb/dAX/lib/access/backend"
	"github.com/ValentinKolb/dAX/lib/access/concepts"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("client")

// InternalCommand is a trusted actor-local callable the behavior executes to
// effect state transitions. Resolver completions and timer callbacks do not
// use it: they are posted to the executor directly as plain closures.
type InternalCommand func(b *Behavior)

// --------------------------------------------------------------------------
// Behavior
// --------------------------------------------------------------------------

// Behavior is the actor-hosted connection coordinator. It owns the shard to
// connection map, drives backend resolution and performs the reconnect
// transition.
//
// The map is concurrent to allow lookups, but connection transitions are
// complex enough that it is additionally protected by an InversibleLock:
// the write side is taken during transitions, the optimistic read side when
// new connections are introduced via GetConnection. The lock fails readers
// out of potential AB/BA deadlocks with an *InversionError, which must be
// propagated up, releasing stamps as it goes; the initial entry point then
// calls AwaitResolution before retrying.
type Behavior struct {
	context         *Context
	connections     *xsync.MapOf[uint64, Connection]
	connectionsLock InversibleLock
	resolver        backend.InfoResolver
	strategy        Strategy
	transmitter     RequestTransmitter
	halted          atomic.Bool
}

// NewBehavior creates the coordinator. It starts processing as soon as
// messages are delivered via Tell or connections are requested via
// GetConnection; the context's executor is its actor goroutine.
func NewBehavior(ctx *Context, resolver backend.InfoResolver, strategy Strategy,
	transmitter RequestTransmitter) *Behavior {
	return &Behavior{
		context:     ctx,
		connections: xsync.NewMapOf[uint64, Connection](),
		resolver:    resolver,
		strategy:    strategy,
		transmitter: transmitter,
	}
}

// Identifier returns the client identity this behavior acts for.
func (b *Behavior) Identifier() concepts.ClientID {
	return b.context.Identifier()
}

// Context returns the client context.
func (b *Behavior) Context() *Context {
	return b.context
}

// --------------------------------------------------------------------------
// Producer API
// --------------------------------------------------------------------------

// GetConnection returns the shard's current connection, creating a
// Connecting instance on first use.
//
// The lookup is optimistic: if a transition invalidates the read stamp the
// lookup retries, and if the write side is held outright an *InversionError
// is returned. Callers holding stamps on other locks must release them,
// await resolution and retry from their outermost entry point.
func (b *Behavior) GetConnection(shard uint64) (Connection, error) {
	for {
		stamp, err := b.connectionsLock.OptimisticRead()
		if err != nil {
			return nil, err
		}

		// Insertion is safe without the write lock: creation is idempotent
		// and publishes nothing beyond the map entry, and a racing writer
		// invalidates the stamp below.
		conn, _ := b.connections.LoadOrCompute(shard, func() Connection {
			return b.createConnection(shard)
		})

		if b.connectionsLock.Validate(stamp) {
			// No write lock in-between, the lookup is authoritative
			return conn, nil
		}
	}
}

// Tell delivers a message to the behavior: a response envelope from the
// transport, an InternalCommand, or any application command understood by
// the strategy.
func (b *Behavior) Tell(msg any) {
	b.context.Execute(func() {
		b.onReceiveCommand(msg)
	})
}

// --------------------------------------------------------------------------
// Command Dispatch (actor goroutine)
// --------------------------------------------------------------------------

func (b *Behavior) onReceiveCommand(cmd any) {
	switch v := cmd.(type) {
	case InternalCommand:
		v(b)
	case *concepts.SuccessEnvelope:
		b.onResponse(v)
	case *concepts.FailureEnvelope:
		b.internalOnRequestFailure(v)
	default:
		if !b.strategy.OnCommand(cmd) {
			b.context.executor.StopAsync()
		}
	}
}

// onResponse routes an envelope to the connection owning its shard cookie.
func (b *Behavior) onResponse(env concepts.ResponseEnvelope) {
	cookie := concepts.ExtractCookie(env.Message().Target())
	if conn, ok := b.connections.Load(cookie); ok {
		conn.ReceiveResponse(env)
	} else {
		metricDroppedResponses.Inc()
		log.Infof("%s: ignoring unknown response %s", b.context.PersistenceID(), env)
	}
}

func (b *Behavior) internalOnRequestFailure(env *concepts.FailureEnvelope) {
	cause := env.Failure.Cause
	if concepts.IsRetiredGeneration(cause) {
		log.Errorf("%s: current generation %s has been superseded: %v",
			b.context.PersistenceID(), b.Identifier(), cause)
		b.halt(cause)
		return
	}

	b.onResponse(env)
}

// halt is the terminal transition of the whole client: flush application
// state, poison every connection and stop the actor. Idempotent.
func (b *Behavior) halt(cause *concepts.RequestError) {
	if !b.halted.CompareAndSwap(false, true) {
		return
	}

	b.strategy.HaltClient(cause)
	b.poisonAll(cause)
	b.context.executor.StopAsync()
}

// poisonAll poisons every connection and clears the map.
func (b *Behavior) poisonAll(cause *concepts.RequestError) {
	stamp := b.connectionsLock.WriteLock()
	defer b.connectionsLock.UnlockWrite(stamp)

	b.connections.Range(func(_ uint64, conn Connection) bool {
		conn.Poison(cause)
		return true
	})
	b.connections.Clear()
}

// --------------------------------------------------------------------------
// Connection Map Maintenance
// --------------------------------------------------------------------------

// createConnection builds the initial Connecting variant and kicks off
// resolution. Called from inside the map's compute-if-absent.
func (b *Behavior) createConnection(shard uint64) Connection {
	conn := newConnectingConnection(b.context, shard, b)
	metricConnectionsCreated.Inc()
	b.resolveConnection(shard, conn)
	return conn
}

// removeConnection drops the map entry if it still points to conn.
func (b *Behavior) removeConnection(conn Connection) {
	b.connections.Compute(conn.Cookie(), func(old Connection, loaded bool) (Connection, bool) {
		if loaded && old == conn {
			return nil, true
		}
		return old, !loaded
	})
	log.Debugf("%s: removed connection %d", b.context.PersistenceID(), conn.Cookie())
}

// replaceConnection swaps the map entry from old to next, by identity.
func (b *Behavior) replaceConnection(shard uint64, old, next Connection) {
	b.connections.Compute(shard, func(cur Connection, loaded bool) (Connection, bool) {
		if loaded && cur == old {
			return next, false
		}
		return cur, !loaded
	})
}

// --------------------------------------------------------------------------
// Backend Resolution
// --------------------------------------------------------------------------

// resolveConnection asks the resolver for the shard's backend; the
// completion is re-dispatched onto the actor goroutine.
func (b *Behavior) resolveConnection(shard uint64, conn Connection) {
	log.Debugf("%s: resolving shard %d connection %v", b.context.PersistenceID(), shard, conn)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), b.context.Config().ResolveTimeout)
		info, err := b.resolver.GetBackendInfo(ctx, shard)
		cancel()
		b.context.Execute(func() {
			b.backendConnectFinished(shard, conn, info, err)
		})
	}()
}

// refreshConnection re-resolves a shard whose previous backend failed.
func (b *Behavior) refreshConnection(shard uint64, conn *ReconnectingConnection) {
	log.Debugf("%s: refreshing shard %d connection %v", b.context.PersistenceID(), shard, conn)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), b.context.Config().ResolveTimeout)
		info, err := b.resolver.RefreshBackendInfo(ctx, shard, conn.BackendInfo())
		cancel()
		b.context.Execute(func() {
			b.backendConnectFinished(shard, conn, info, err)
		})
	}()
}

// backendConnectFinished handles a resolution completion on the actor
// goroutine.
func (b *Behavior) backendConnectFinished(shard uint64, conn Connection, info backend.Info, failure error) {
	if failure != nil {
		if backend.IsResolveTimeout(failure) {
			if cur, ok := b.connections.Load(shard); !ok || cur != conn {
				// The connection removed itself; no point in continuing
				log.Infof("%s: stopping resolution of shard %d on stale connection %v",
					b.context.PersistenceID(), shard, conn)
				return
			}

			metricResolveTimeouts.Inc()
			log.Debugf("%s: timed out resolving shard %d, scheduling retry in %v",
				b.context.PersistenceID(), shard, b.context.Config().ResolveRetryDelay)
			b.context.ExecuteAfter(func() {
				if cur, ok := b.connections.Load(shard); !ok || cur != conn {
					// Superseded while the retry was pending; quit silently
					return
				}
				b.reresolve(shard, conn)
			}, b.context.Config().ResolveRetryDelay)
			return
		}

		log.Errorf("%s: failed to resolve shard %d: %v", b.context.PersistenceID(), shard, failure)
		conn.Poison(concepts.AsRequestError(failure))
		return
	}

	log.Debugf("%s: resolved shard %d to %v", b.context.PersistenceID(), shard, info)
	b.connectionUp(shard, conn, info)
}

// reresolve repeats the resolution appropriate for the connection variant.
func (b *Behavior) reresolve(shard uint64, conn Connection) {
	if rc, ok := conn.(*ReconnectingConnection); ok {
		b.refreshConnection(shard, rc)
	} else {
		b.resolveConnection(shard, conn)
	}
}

// --------------------------------------------------------------------------
// Reconnect / Replay Transition
// --------------------------------------------------------------------------

// connectionUp runs the connect transition for a freshly resolved backend:
//
//  1. build the new Connected instance
//  2. let the strategy prepare higher-level state (ConnectionUp cohort)
//  3. freeze the old connection and obtain its entries in enqueue order
//  4. have the cohort replay them onto the new connection
//  5. install the cohort's forwarder for stragglers
//  6. publish the new connection in the map, by identity
//
// All of it happens under the write lock so no producer can observe a state
// where both connections are reachable. A panicking strategy hook is fatal
// for the whole client.
func (b *Behavior) connectionUp(shard uint64, conn Connection, info backend.Info) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s: connect transition for shard %d failed: %v",
				b.context.PersistenceID(), shard, r)
			b.halt(concepts.NewRuntimeRequestError(
				fmt.Sprintf("connect transition for shard %d failed: %v", shard, r), nil))
		}
	}()

	stamp := b.connectionsLock.WriteLock()
	defer b.connectionsLock.UnlockWrite(stamp)

	newConn := newConnectedConnection(b.context, shard, b, info, b.transmitter)
	log.Debugf("%s: resolving connection %v to %v", b.context.PersistenceID(), conn, newConn)

	cohort := b.strategy.ConnectionUp(newConn)
	if cohort == nil {
		panic("strategy returned nil connect cohort")
	}

	// Freeze the old connection and get the replay view of its entries
	entries := conn.StartReplay()
	metricReplayedEntries.Add(len(entries))

	// Hand the entries to the cohort; whatever happens, the old queue must
	// be reopened or poisoning would deadlock on it
	var forwarder ReconnectForwarder
	func() {
		defer func() {
			if forwarder == nil {
				forwarder = &EnqueueForwarder{Successor: newConn}
			}
			conn.FinishReplay(forwarder)
		}()
		forwarder = cohort.FinishReconnect(entries)
	}()

	// Make sure new lookups pick up the new connection
	b.replaceConnection(shard, conn, newConn)
	log.Debugf("%s: replaced connection %v with %v", b.context.PersistenceID(), conn, newConn)
}

// requestReconnect is called by a Connected connection whose transport
// failed. It may run on any goroutine and with connection locks held, so the
// actual transition is posted as an internal command.
func (b *Behavior) requestReconnect(conn *ConnectedConnection) {
	b.context.Execute(func() {
		b.reconnectConnection(conn)
	})
}

// reconnectConnection swaps a Connected for a Reconnecting variant and
// schedules a backend refresh.
func (b *Behavior) reconnectConnection(old *ConnectedConnection) {
	stamp := b.connectionsLock.WriteLock()

	if cur, ok := b.connections.Load(old.Cookie()); !ok || cur != Connection(old) {
		// Already superseded, nothing to do
		b.connectionsLock.UnlockWrite(stamp)
		return
	}

	// The Reconnecting variant inherits in-flight and buffered entries, in
	// enqueue order, for the eventual replay
	entries := old.StartReplay()
	newConn := newReconnectingConnection(old, entries)
	old.FinishReplay(&EnqueueForwarder{Successor: newConn})
	b.replaceConnection(old.Cookie(), old, newConn)

	b.connectionsLock.UnlockWrite(stamp)

	metricReconnects.Inc()
	log.Infof("%s: connection %d to %v reconnecting", b.context.PersistenceID(),
		old.Cookie(), old.BackendInfo())

	b.refreshConnection(old.Cookie(), newConn)
}
