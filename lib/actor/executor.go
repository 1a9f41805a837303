package actor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("actor")

// --------------------------------------------------------------------------
// Executor
// --------------------------------------------------------------------------

// Executor runs commands one at a time on a dedicated goroutine. See the
// package documentation for the execution model.
type Executor struct {
	name    string
	mbox    *mailbox
	timers  *timerHeap
	stopped atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewExecutor creates and starts an executor. name is used for logging only.
func NewExecutor(name string) *Executor {
	e := &Executor{
		name:   name,
		mbox:   newMailbox(),
		timers: newTimerHeap(),
		done:   make(chan struct{}),
	}
	e.wg.Add(1)
	go e.run()
	return e
}

// Execute submits a command for execution on the executor goroutine.
// Returns false if the executor has already stopped, in which case the
// command is dropped.
//
// Thread-safety: may be called from any goroutine, including from a command
// currently executing.
func (e *Executor) Execute(cmd Command) bool {
	return e.mbox.Push(cmd)
}

// ExecuteAfter submits a command after the given delay has elapsed. The
// delay is measured on the executor goroutine; a stopped executor drops the
// command. Arming the timer travels through the mailbox's system lane so a
// backlog of user commands cannot postpone deadline bookkeeping.
func (e *Executor) ExecuteAfter(cmd Command, delay time.Duration) bool {
	deadline := time.Now().Add(delay).UnixNano()
	return e.mbox.PushSystem(func() {
		e.timers.Schedule(deadline, cmd)
	})
}

// Stop shuts the executor down. Commands already in the mailbox are still
// executed; pending timers are discarded. Stop returns after the executor
// goroutine has exited and is safe to call more than once, but must not be
// called from a command (it would deadlock on its own drain).
func (e *Executor) Stop() {
	if e.stopped.CompareAndSwap(false, true) {
		e.mbox.Close()
	}
	e.wg.Wait()
}

// StopAsync requests shutdown without waiting. It is the form commands
// themselves may use.
func (e *Executor) StopAsync() {
	if e.stopped.CompareAndSwap(false, true) {
		e.mbox.Close()
	}
}

// Done returns a channel closed once the executor goroutine has exited.
func (e *Executor) Done() <-chan struct{} {
	return e.done
}

// --------------------------------------------------------------------------
// Executor Loop
// --------------------------------------------------------------------------

// run is the executor goroutine: it interleaves mailbox commands with due
// timers, sleeping until the earliest deadline when the mailbox is idle.
func (e *Executor) run() {
	defer e.wg.Done()
	defer close(e.done)

	log.Debugf("executor %s started", e.name)

	// Reused sleep timer; nil while no deadline is armed
	var sleep *time.Timer
	defer func() {
		if sleep != nil {
			sleep.Stop()
		}
	}()

	for {
		// Fire everything that is already due
		now := time.Now().UnixNano()
		for {
			item, ok := e.timers.PopDue(now)
			if !ok {
				break
			}
			item.Cmd()
		}

		// Arm the sleep timer for the next deadline, if any
		var wake <-chan time.Time
		if head, ok := e.timers.Peek(); ok {
			d := time.Duration(head.Deadline - now)
			if d < 0 {
				d = 0
			}
			if sleep == nil {
				sleep = time.NewTimer(d)
			} else {
				if !sleep.Stop() {
					select {
					case <-sleep.C:
					default:
					}
				}
				sleep.Reset(d)
			}
			wake = sleep.C
		}

		select {
		case cmd, ok := <-e.mbox.Recv():
			if !ok {
				log.Debugf("executor %s stopped", e.name)
				return
			}
			cmd()
		case <-wake:
			// loop to fire due timers
		}
	}
}
