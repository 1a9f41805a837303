package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dAX/lib/access/backend"
	"github.com/ValentinKolb/dAX/lib/access/concepts"
	"github.com/ValentinKolb/dAX/lib/actor"
)

// --------------------------------------------------------------------------
// Test doubles
// --------------------------------------------------------------------------

// testStrategy records strategy callbacks; unless overridden it behaves like
// PassthroughStrategy
type testStrategy struct {
	mu       sync.Mutex
	halts    []error
	commands []any
	onUp     func(*ConnectedConnection) ConnectCohort
}

func (s *testStrategy) OnCommand(cmd any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
	return true
}

func (s *testStrategy) ConnectionUp(newConn *ConnectedConnection) ConnectCohort {
	if s.onUp != nil {
		return s.onUp(newConn)
	}
	return &passthroughCohort{successor: newConn}
}

func (s *testStrategy) HaltClient(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halts = append(s.halts, cause)
}

func (s *testStrategy) haltCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.halts)
}

// testTransmitter records every successfully transmitted envelope and can be
// switched into a failing mode to simulate transport loss
type testTransmitter struct {
	mu      sync.Mutex
	sent    []*concepts.RequestEnvelope
	failing bool
}

func (t *testTransmitter) Transmit(_ backend.Info, env *concepts.RequestEnvelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failing {
		return errors.New("transport down")
	}
	t.sent = append(t.sent, env)
	return nil
}

func (t *testTransmitter) setFailing(failing bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failing = failing
}

func (t *testTransmitter) sentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}

// sequences returns the request sequences of transmitted envelopes,
// restricted to one session token if session != 0
func (t *testTransmitter) sequences(session uint64) []uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var seqs []uint64
	for _, env := range t.sent {
		if session == 0 || env.SessionToken == session {
			seqs = append(seqs, env.Message.Sequence)
		}
	}
	return seqs
}

// testResolver scripts resolution outcomes per call
type testResolver struct {
	mu           sync.Mutex
	getCalls     int
	refreshCalls int

	// onGet/onRefresh receive the 1-based call count
	onGet     func(call int, cookie uint64) (backend.Info, error)
	onRefresh func(call int, cookie uint64, stale backend.Info) (backend.Info, error)
}

func (r *testResolver) GetBackendInfo(ctx context.Context, cookie uint64) (backend.Info, error) {
	r.mu.Lock()
	r.getCalls++
	call := r.getCalls
	fn := r.onGet
	r.mu.Unlock()

	if fn == nil {
		<-ctx.Done()
		return nil, backend.ErrResolveTimeout
	}
	return fn(call, cookie)
}

func (r *testResolver) RefreshBackendInfo(ctx context.Context, cookie uint64, stale backend.Info) (backend.Info, error) {
	r.mu.Lock()
	r.refreshCalls++
	call := r.refreshCalls
	fn := r.onRefresh
	r.mu.Unlock()

	if fn == nil {
		<-ctx.Done()
		return nil, backend.ErrResolveTimeout
	}
	return fn(call, cookie, stale)
}

func (r *testResolver) gets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getCalls
}

// --------------------------------------------------------------------------
// Environment
// --------------------------------------------------------------------------

type testEnv struct {
	executor    *actor.Executor
	behavior    *Behavior
	strategy    *testStrategy
	transmitter *testTransmitter
	resolver    *testResolver
	id          concepts.ClientID
}

func newTestEnv(t *testing.T, cfg Config, resolver *testResolver) *testEnv {
	t.Helper()

	env := &testEnv{
		executor:    actor.NewExecutor("test-client"),
		strategy:    &testStrategy{},
		transmitter: &testTransmitter{},
		resolver:    resolver,
		id:          concepts.ClientID{FrontendName: "test-frontend", Generation: 1},
	}
	ctx := NewContext(env.id, env.executor, cfg)
	env.behavior = NewBehavior(ctx, resolver, env.strategy, env.transmitter)

	t.Cleanup(func() {
		env.executor.StopAsync()
		select {
		case <-env.executor.Done():
		case <-time.After(2 * time.Second):
			t.Errorf("executor did not stop")
		}
	})
	return env
}

// testConfig returns a configuration with test-friendly timings
func testConfig() Config {
	return Config{
		QueueLimit:        100,
		ResolveTimeout:    time.Hour,
		ResolveRetryDelay: time.Hour,
	}
}

// connection resolves a shard's connection, honouring the inversion protocol
func (env *testEnv) connection(t *testing.T, shard uint64) Connection {
	t.Helper()
	for {
		conn, err := env.behavior.GetConnection(shard)
		if err == nil {
			return conn
		}
		var inv *InversionError
		if errors.As(err, &inv) {
			inv.AwaitResolution()
			continue
		}
		t.Fatalf("GetConnection failed: %v", err)
	}
}

// request builds a request routed to shard with the given sequence
func (env *testEnv) request(shard, seq uint64) *concepts.Request {
	return &concepts.Request{
		Target: concepts.TransactionID{
			History: concepts.LocalHistoryID{Client: env.id, History: 1, Cookie: shard},
			Txn:     seq,
		},
		Sequence: seq,
	}
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func testBackend(session uint64, window int) *backend.ShardBackendInfo {
	return &backend.ShardBackendInfo{
		ReplicaID: session % 2,
		Address:   "test:1",
		Session:   session,
		Window:    window,
	}
}

func successEnvelope(req *concepts.Request, session uint64) *concepts.SuccessEnvelope {
	return &concepts.SuccessEnvelope{
		Envelope: concepts.Envelope{SessionToken: session},
		Success: &concepts.RequestSuccess{
			ReplyTo:       req.Target,
			ReplySequence: req.Sequence,
		},
	}
}

func failureEnvelope(req *concepts.Request, session uint64, cause *concepts.RequestError) *concepts.FailureEnvelope {
	return &concepts.FailureEnvelope{
		Envelope: concepts.Envelope{SessionToken: session},
		Failure: &concepts.RequestFailure{
			ReplyTo:       req.Target,
			ReplySequence: req.Sequence,
			Cause:         cause,
		},
	}
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, timeout time.Duration, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", msg)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// recordingCallback collects completions of one entry
type recordingCallback struct {
	mu        sync.Mutex
	responses []concepts.Response
}

func (c *recordingCallback) fn(resp concepts.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, resp)
}

func (c *recordingCallback) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.responses)
}

func (c *recordingCallback) last() concepts.Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.responses) == 0 {
		return nil
	}
	return c.responses[len(c.responses)-1]
}
