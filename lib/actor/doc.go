// Package actor provides the minimal single-threaded execution model the
// client coordinator runs on.
//
// An Executor owns exactly one goroutine. Commands submitted from any
// goroutine via Execute are appended to a two-lane multi-producer mailbox
// and executed one at a time, in arrival order, on the executor goroutine.
// ExecuteAfter schedules a command for later submission through an internal
// timer heap; its bookkeeping travels in the mailbox's system lane, ahead of
// queued user commands.
//
// This gives the coordinator the two properties it needs:
//
//   - all state transitions are serialized on one goroutine, so command
//     handlers never race with each other
//   - completions of asynchronous work (backend resolution) can be
//     re-dispatched onto that goroutine as ordinary commands
//
// The executor makes no fairness guarantees between producers; commands from
// a single producer are executed in submission order.
package actor
