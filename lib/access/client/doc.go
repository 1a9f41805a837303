// Package client implements the connection coordinator of the dAX access
// library.
//
// For every shard a client has ever touched, the coordinator maintains one
// connection object that buffers outbound requests and correlates inbound
// responses. A connection moves through a strict lifecycle:
//
//	Connecting -> Connected -> Reconnecting -> Connected -> ... -> poisoned
//
// The Behavior drives all lifecycle transitions on a single actor goroutine
// (see lib/actor), while any number of producer goroutines concurrently call
// GetConnection and enqueue requests on the returned connection.
//
// The shard-to-connection map is protected by an InversibleLock: producers
// take optimistic read stamps, transitions take the exclusive write side. A
// producer that hits an in-progress transition receives an *InversionError;
// it must release any stamps it holds, call AwaitResolution and retry from
// its outermost entry point.
//
// The reconnect transition never loses, duplicates or reorders requests of a
// single shard: buffered entries are replayed onto the new connection in
// enqueue order and entries enqueued during the transition window are routed
// through a ReconnectForwarder behind them.
package client
