package client

import (
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dAX/lib/access/backend"
	"github.com/ValentinKolb/dAX/lib/access/concepts"
)

// TestColdResolve drives the initial transition: Connecting appears on first
// lookup, entries buffered before resolution reach the backend in order
func TestColdResolve(t *testing.T) {
	resolver := &testResolver{
		onGet: func(_ int, _ uint64) (backend.Info, error) {
			return testBackend(1, 32), nil
		},
	}
	env := newTestEnv(t, testConfig(), resolver)

	conn := env.connection(t, 7)
	if conn.Cookie() != 7 {
		t.Fatalf("connection cookie mismatch: %d", conn.Cookie())
	}

	cb := &recordingCallback{}
	req := env.request(7, 1)
	conn.Enqueue(req, cb.fn)

	// The entry is delivered to backend session 1 after the transition
	waitFor(t, time.Second, "transmit", func() bool {
		return len(env.transmitter.sequences(1)) == 1
	})
	if got := env.transmitter.sequences(1); got[0] != 1 {
		t.Errorf("expected seq 1 transmitted, got %v", got)
	}

	// The published variant is now Connected
	waitFor(t, time.Second, "connected variant", func() bool {
		_, ok := env.connection(t, 7).(*ConnectedConnection)
		return ok
	})

	// The response completes the entry
	env.behavior.Tell(successEnvelope(req, 1))
	waitFor(t, time.Second, "completion", func() bool { return cb.count() == 1 })
	if _, ok := cb.last().(*concepts.RequestSuccess); !ok {
		t.Errorf("expected success completion, got %v", cb.last())
	}
}

// TestTransportFailureAndReconnect covers the reconnect transition: in-flight
// entries are replayed onto the refreshed backend in their original order,
// entries enqueued during the transition are ordered after them
func TestTransportFailureAndReconnect(t *testing.T) {
	refreshGate := make(chan struct{})
	resolver := &testResolver{
		onGet: func(_ int, _ uint64) (backend.Info, error) {
			return testBackend(1, 32), nil
		},
		onRefresh: func(_ int, _ uint64, _ backend.Info) (backend.Info, error) {
			<-refreshGate
			return testBackend(2, 32), nil
		},
	}
	env := newTestEnv(t, testConfig(), resolver)

	// Establish the connection and put five entries in flight
	env.connection(t, 1)
	waitFor(t, time.Second, "connected variant", func() bool {
		_, ok := env.connection(t, 1).(*ConnectedConnection)
		return ok
	})
	for seq := uint64(1); seq <= 5; seq++ {
		env.connection(t, 1).Enqueue(env.request(1, seq), nil)
	}
	if got := env.transmitter.sequences(1); len(got) != 5 {
		t.Fatalf("expected 5 entries in flight, got %v", got)
	}

	// Transport signal: the next transmit fails, the behavior swaps in a
	// Reconnecting variant
	env.transmitter.setFailing(true)
	env.connection(t, 1).Enqueue(env.request(1, 6), nil)
	waitFor(t, time.Second, "reconnecting variant", func() bool {
		_, ok := env.connection(t, 1).(*ReconnectingConnection)
		return ok
	})
	env.transmitter.setFailing(false)

	// An entry enqueued mid-transition buffers behind the inherited ones
	env.connection(t, 1).Enqueue(env.request(1, 7), nil)

	// Let the refresh complete and the replay run
	close(refreshGate)
	waitFor(t, time.Second, "replay", func() bool {
		return len(env.transmitter.sequences(2)) == 7
	})

	got := env.transmitter.sequences(2)
	for i, seq := range got {
		if seq != uint64(i+1) {
			t.Fatalf("replay order violated: %v", got)
		}
	}

	// The published variant is a fresh Connected bound to session 2
	conn, ok := env.connection(t, 1).(*ConnectedConnection)
	if !ok {
		t.Fatalf("expected Connected after reconnect")
	}
	if conn.BackendInfo().SessionToken() != 2 {
		t.Errorf("expected session 2, got %d", conn.BackendInfo().SessionToken())
	}
}

// TestRetiredGenerationHaltsClient covers the terminal path: halt exactly
// once, every connection poisoned, actor stopped
func TestRetiredGenerationHaltsClient(t *testing.T) {
	resolver := &testResolver{
		onGet: func(_ int, cookie uint64) (backend.Info, error) {
			return testBackend(cookie+1, 32), nil
		},
	}
	env := newTestEnv(t, testConfig(), resolver)

	// Two shards with one in-flight entry each
	cb1, cb2 := &recordingCallback{}, &recordingCallback{}
	env.connection(t, 1).Enqueue(env.request(1, 1), cb1.fn)
	env.connection(t, 2).Enqueue(env.request(2, 1), cb2.fn)
	waitFor(t, time.Second, "transmits", func() bool { return env.transmitter.sentCount() == 2 })

	retired := concepts.NewRetiredGenerationError(2)
	env.behavior.Tell(failureEnvelope(env.request(1, 1), 2, retired))
	env.behavior.Tell(failureEnvelope(env.request(2, 1), 3, retired))

	select {
	case <-env.executor.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("actor did not stop on retired generation")
	}

	if got := env.strategy.haltCount(); got != 1 {
		t.Errorf("HaltClient invoked %d times, expected exactly once", got)
	}

	// Every entry completed with the retired-generation cause
	for i, cb := range []*recordingCallback{cb1, cb2} {
		if cb.count() != 1 {
			t.Fatalf("shard %d entry completed %d times", i+1, cb.count())
		}
		failure := cb.last().(*concepts.RequestFailure)
		if !concepts.IsRetiredGeneration(failure.Cause) {
			t.Errorf("shard %d entry completed with %v", i+1, failure.Cause)
		}
	}
}

// TestResolveTimeoutRetries covers retry-on-timeout: the same Connecting
// instance is reused across attempts and no duplicate entries surface
func TestResolveTimeoutRetries(t *testing.T) {
	resolver := &testResolver{
		onGet: func(call int, _ uint64) (backend.Info, error) {
			if call <= 2 {
				return nil, backend.ErrResolveTimeout
			}
			return testBackend(1, 32), nil
		},
	}
	cfg := testConfig()
	cfg.ResolveRetryDelay = 20 * time.Millisecond
	env := newTestEnv(t, cfg, resolver)

	first := env.connection(t, 9)
	cb := &recordingCallback{}
	first.Enqueue(env.request(9, 1), cb.fn)

	// While the retries run, lookups keep returning the same instance
	waitFor(t, time.Second, "second attempt", func() bool { return resolver.gets() >= 2 })
	if env.connection(t, 9) != first {
		t.Errorf("Connecting instance must be stable across retries")
	}

	waitFor(t, 2*time.Second, "successful resolution", func() bool {
		_, ok := env.connection(t, 9).(*ConnectedConnection)
		return ok
	})
	if got := resolver.gets(); got != 3 {
		t.Errorf("expected 3 resolution attempts, got %d", got)
	}

	// The buffered entry went out exactly once
	if got := env.transmitter.sequences(1); len(got) != 1 || got[0] != 1 {
		t.Errorf("expected a single transmit of seq 1, got %v", got)
	}
}

// TestRetrySuppressedOnSupersededConnection covers the stale-retry path: a
// pending retry observes the connection is gone and quits silently
func TestRetrySuppressedOnSupersededConnection(t *testing.T) {
	resolver := &testResolver{
		onGet: func(_ int, _ uint64) (backend.Info, error) {
			return nil, backend.ErrResolveTimeout
		},
	}
	cfg := testConfig()
	cfg.ResolveRetryDelay = 50 * time.Millisecond
	env := newTestEnv(t, cfg, resolver)

	conn := env.connection(t, 3)
	waitFor(t, time.Second, "first attempt", func() bool { return resolver.gets() == 1 })

	// Remove the connection before the retry fires
	done := make(chan struct{})
	env.behavior.Tell(InternalCommand(func(b *Behavior) {
		conn.Poison(concepts.NewRuntimeRequestError("superseded", nil))
		close(done)
	}))
	<-done

	time.Sleep(200 * time.Millisecond)
	if got := resolver.gets(); got != 1 {
		t.Errorf("retry should have been suppressed, saw %d attempts", got)
	}
}

// TestRemoveConnectionByIdentity verifies remove is a no-op when the map
// entry no longer matches
func TestRemoveConnectionByIdentity(t *testing.T) {
	resolver := &testResolver{
		onGet: func(_ int, _ uint64) (backend.Info, error) {
			return testBackend(1, 32), nil
		},
	}
	env := newTestEnv(t, testConfig(), resolver)

	stale := env.connection(t, 5)
	waitFor(t, time.Second, "connected variant", func() bool {
		_, ok := env.connection(t, 5).(*ConnectedConnection)
		return ok
	})
	current := env.connection(t, 5)

	// stale was replaced by the transition; removing it must not disturb
	// the current connection
	env.behavior.removeConnection(stale)
	if env.connection(t, 5) != current {
		t.Errorf("remove of a stale connection must be a no-op")
	}
}

// TestPoisonAllIdempotent verifies a second poison-all pass has no effect
func TestPoisonAllIdempotent(t *testing.T) {
	resolver := &testResolver{
		onGet: func(_ int, _ uint64) (backend.Info, error) {
			return testBackend(1, 32), nil
		},
	}
	env := newTestEnv(t, testConfig(), resolver)

	cb := &recordingCallback{}
	env.connection(t, 1).Enqueue(env.request(1, 1), cb.fn)
	waitFor(t, time.Second, "transmit", func() bool { return env.transmitter.sentCount() == 1 })

	cause := concepts.NewRuntimeRequestError("shutdown", nil)
	done := make(chan struct{})
	env.behavior.Tell(InternalCommand(func(b *Behavior) {
		b.poisonAll(cause)
		b.poisonAll(cause)
		close(done)
	}))
	<-done

	if cb.count() != 1 {
		t.Errorf("entry completed %d times across two poison-all passes", cb.count())
	}
}

// TestGetConnectionConcurrent hammers the optimistic lookup from many
// producers while transitions are happening underneath
func TestGetConnectionConcurrent(t *testing.T) {
	resolver := &testResolver{
		onGet: func(_ int, cookie uint64) (backend.Info, error) {
			return testBackend(cookie+1, 32), nil
		},
	}
	env := newTestEnv(t, testConfig(), resolver)

	const producers = 8
	const lookups = 200

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < lookups; i++ {
				shard := uint64(i % 4)
				conn := env.connection(t, shard)
				if conn.Cookie() != shard {
					t.Errorf("lookup returned connection for cookie %d, wanted %d", conn.Cookie(), shard)
					return
				}
			}
		}(p)
	}
	wg.Wait()
}
