package actor

import (
	"sync"
)

// Command is a unit of work executed on the executor goroutine.
type Command func()

// mailbox is the executor's unbounded multi-producer command queue.
//
// It carries two lanes: system commands (timer arming and other
// executor-internal bookkeeping) overtake user commands, so a backlog of
// application work cannot delay deadline handling. Within a lane, delivery
// is FIFO across all producers.
//
// Producers append under a mutex and a pump goroutine hands batches to the
// consumer channel. With nothing queued the pump parks on a condition
// variable, which fits a mostly-idle actor better than a spinning dequeue.
type mailbox struct {
	mu     sync.Mutex
	ready  *sync.Cond
	system []Command
	user   []Command
	closed bool

	out chan Command
}

// newMailbox creates the mailbox and starts its pump goroutine.
func newMailbox() *mailbox {
	m := &mailbox{
		out: make(chan Command),
	}
	m.ready = sync.NewCond(&m.mu)
	go m.pump()
	return m
}

// Push appends a command to the user lane.
// Returns false if the mailbox has been closed.
//
// Thread-safety: may be called concurrently from any goroutine.
func (m *mailbox) Push(cmd Command) bool {
	return m.push(cmd, false)
}

// PushSystem appends a command to the system lane. System commands are
// delivered before any queued user command.
func (m *mailbox) PushSystem(cmd Command) bool {
	return m.push(cmd, true)
}

func (m *mailbox) push(cmd Command, system bool) bool {
	if cmd == nil {
		return false
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	if system {
		m.system = append(m.system, cmd)
	} else {
		m.user = append(m.user, cmd)
	}
	m.mu.Unlock()

	m.ready.Signal()
	return true
}

// Recv returns the consumer channel. Closed after Close once every queued
// command has been delivered.
func (m *mailbox) Recv() <-chan Command {
	return m.out
}

// Close rejects further pushes. Commands already queued still drain.
func (m *mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.ready.Signal()
}

// pump moves batches from the lanes to the consumer channel, system lane
// first.
func (m *mailbox) pump() {
	for {
		m.mu.Lock()
		for len(m.system) == 0 && len(m.user) == 0 && !m.closed {
			m.ready.Wait()
		}
		system, user := m.system, m.user
		m.system, m.user = nil, nil
		closed := m.closed
		m.mu.Unlock()

		for _, cmd := range system {
			m.out <- cmd
		}
		for _, cmd := range user {
			m.out <- cmd
		}

		if closed {
			// Pushes that raced the close may have landed after this batch
			// was taken; the close is only final once both lanes stay empty
			m.mu.Lock()
			drained := len(m.system) == 0 && len(m.user) == 0
			m.mu.Unlock()
			if drained {
				close(m.out)
				return
			}
		}
	}
}
