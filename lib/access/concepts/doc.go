// Package concepts defines the identifier and message model shared between
// the client coordinator and the backend replicas.
//
// The package is intentionally free of any transport or serialization
// concerns. It provides three layers:
//
//  1. Identifiers: ClientID, LocalHistoryID and TransactionID form a
//     hierarchy of immutable keys. Each request-routable identifier exposes
//     a shard cookie, an opaque uint64 that partitions client traffic onto
//     backend shards.
//
//  2. Messages and envelopes: Request, RequestSuccess and RequestFailure are
//     the logical messages exchanged with a backend. On the wire they travel
//     inside envelopes which additionally carry the session token and the
//     transmit sequence of the connection that sent them.
//
//  3. Errors: RequestError is the uniform failure type attached to failed
//     requests. It carries a numeric return code so callers can distinguish
//     retryable conditions (sequencing hiccups) from terminal ones
//     (retired generation).
package concepts
