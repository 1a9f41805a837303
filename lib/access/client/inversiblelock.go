package client

import (
	"sync"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Inversion Error
// --------------------------------------------------------------------------

// InversionError is returned by InversibleLock.OptimisticRead when the write
// side is held. Returning instead of blocking forces the reader out of any
// AB/BA cycle it may be part of: a reader holding a stamp on lock A while
// reading lock B cannot deadlock against a writer holding B and waiting for
// A, because the reader backs out instead of waiting.
//
// The receiver must release every stamp it holds, call AwaitResolution and
// retry from its outermost entry point.
type InversionError struct {
	resolved <-chan struct{}
}

// Error implements the error interface.
func (e *InversionError) Error() string {
	return "lock inverted: write in progress, await resolution and retry"
}

// AwaitResolution parks the caller until the writer that caused the
// inversion has released the lock.
func (e *InversionError) AwaitResolution() {
	<-e.resolved
}

// --------------------------------------------------------------------------
// InversibleLock
// --------------------------------------------------------------------------

// InversibleLock is an optimistic many-reader / single-writer lock.
//
// Readers call OptimisticRead, perform their work without blocking and then
// Validate the stamp; a false result means a writer was active in between
// and the read must be discarded. While the write side is held,
// OptimisticRead fails fast with an *InversionError instead of blocking.
//
// The lock is backed by a strictly monotonic sequence counter: even while
// unlocked, odd while write-locked. Writers are serialized among themselves;
// beyond eventual writer progress there is no fairness guarantee.
type InversibleLock struct {
	writers sync.Mutex
	seq     atomic.Uint64
	latch   atomic.Pointer[chan struct{}]
}

// OptimisticRead returns a stamp to be checked with Validate after the read
// work is done. If the write side is currently held it returns an
// *InversionError carrying the writer's resolution latch.
func (l *InversibleLock) OptimisticRead() (uint64, error) {
	for {
		stamp := l.seq.Load()
		if stamp&1 == 0 {
			return stamp, nil
		}

		// Write in progress. The latch is published before the sequence goes
		// odd, but may already be cleared if the writer just finished - in
		// that case simply try again.
		if latch := l.latch.Load(); latch != nil {
			return 0, &InversionError{resolved: *latch}
		}
	}
}

// Validate returns true if no writer has acquired the lock since the stamp
// was taken. On false the caller must discard everything it read and retry.
func (l *InversibleLock) Validate(stamp uint64) bool {
	return l.seq.Load() == stamp
}

// WriteLock acquires the exclusive write side, blocking until any other
// writer has finished. The returned stamp must be passed to UnlockWrite.
func (l *InversibleLock) WriteLock() uint64 {
	l.writers.Lock()

	latch := make(chan struct{})
	l.latch.Store(&latch)

	// Readers observing the odd sequence are now guaranteed to find the
	// latch
	return l.seq.Add(1)
}

// UnlockWrite releases the write side. The stamp must be the one returned by
// the matching WriteLock call; anything else indicates lock misuse and
// panics.
func (l *InversibleLock) UnlockWrite(stamp uint64) {
	if l.seq.Load() != stamp || stamp&1 == 0 {
		panic("unlockWrite with mismatched stamp")
	}

	l.seq.Add(1)
	latch := l.latch.Swap(nil)
	l.writers.Unlock()

	// Wake every reader parked in AwaitResolution
	close(*latch)
}
