package client

import (
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dAX/lib/access/concepts"
)

// --------------------------------------------------------------------------
// Connection Entry
// --------------------------------------------------------------------------

// ConnectionEntry is one pending request inside a connection's queue. Once
// enqueued, an entry is completed exactly once: by a matching response, by
// poisoning, or by a later layer after a reconnect replay.
type ConnectionEntry struct {
	Request    *concepts.Request
	EnqueuedAt time.Time

	callback func(concepts.Response)
	done     atomic.Bool
}

// NewConnectionEntry creates an entry for the given request. callback may be
// nil for fire-and-forget requests.
func NewConnectionEntry(req *concepts.Request, callback func(concepts.Response)) *ConnectionEntry {
	return &ConnectionEntry{
		Request:    req,
		EnqueuedAt: time.Now(),
		callback:   callback,
	}
}

// Complete invokes the entry's callback with the given response. Only the
// first call has any effect; later calls are dropped with a log message, as
// they indicate a response raced with poisoning or replay.
func (e *ConnectionEntry) Complete(resp concepts.Response) {
	if !e.done.CompareAndSwap(false, true) {
		log.Debugf("entry %s already completed, dropping %s", e.Request, resp)
		return
	}
	metricEntriesCompleted.Inc()
	if e.callback != nil {
		e.callback(resp)
	}
}

// CompleteWith completes the entry with a RequestFailure carrying cause.
func (e *ConnectionEntry) CompleteWith(cause *concepts.RequestError) {
	e.Complete(concepts.NewRequestFailure(e.Request, cause))
}

// Completed reports whether the entry has already been completed.
func (e *ConnectionEntry) Completed() bool {
	return e.done.Load()
}
