package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/dAX/cmd/util"
	"github.com/ValentinKolb/dAX/lib/access/backend"
	"github.com/ValentinKolb/dAX/lib/access/client"
	"github.com/ValentinKolb/dAX/lib/access/common"
	"github.com/ValentinKolb/dAX/lib/access/concepts"
	"github.com/ValentinKolb/dAX/lib/actor"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// ClientCommands is the parent of all coordinator-facing commands
	ClientCommands = &cobra.Command{
		Use:   "client",
		Short: "Drive a connection coordinator against a cluster",
	}

	demoCmd = &cobra.Command{
		Use:     "demo",
		Short:   "Run a loopback demo of the connection coordinator",
		Long:    "Starts a coordinator against a simulated cluster: every transmitted request is echoed back as a success, exercising resolution, the transmit window and response correlation.",
		RunE:    runDemo,
		PreRunE: processConfig,
	}
)

func init() {
	util.SetupCoordinatorFlags(ClientCommands)
	ClientCommands.AddCommand(demoCmd)
	ClientCommands.AddCommand(perfCmd)

	key := "shards"
	demoCmd.Flags().Int(key, 4, util.WrapString("Number of shards to spread requests over"))
	key = "requests"
	demoCmd.Flags().Int(key, 100, util.WrapString("Number of requests to send"))
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	util.InitCoordinatorConfig()
	return common.InitLoggers(viper.GetString("log-level"))
}

// --------------------------------------------------------------------------
// Coordinator setup shared by demo and perf
// --------------------------------------------------------------------------

// harness bundles a coordinator wired to a loopback transmitter: every
// request envelope is immediately answered with a success envelope, which
// drives the full enqueue/transmit/correlate cycle in-process.
type harness struct {
	executor *actor.Executor
	behavior *client.Behavior
	id       concepts.ClientID
}

func newHarness() *harness {
	h := &harness{
		executor: actor.NewExecutor("dax-client"),
		id:       concepts.ClientID{FrontendName: uuid.NewString(), Generation: 1},
	}

	resolver := backend.NewStaticResolver(util.GetMembers(), viper.GetInt("window"))
	ctx := client.NewContext(h.id, h.executor, util.GetCoordinatorConfig())

	transmitter := client.TransmitterFunc(func(info backend.Info, env *concepts.RequestEnvelope) error {
		h.behavior.Tell(&concepts.SuccessEnvelope{
			Envelope: concepts.Envelope{SessionToken: env.SessionToken, TxSequence: env.TxSequence},
			Success: &concepts.RequestSuccess{
				ReplyTo:       env.Message.Target,
				ReplySequence: env.Message.Sequence,
			},
		})
		return nil
	})

	h.behavior = client.NewBehavior(ctx, resolver, client.PassthroughStrategy{}, transmitter)
	return h
}

func (h *harness) close() {
	h.executor.Stop()
}

// connection resolves a shard's connection, honouring the inversion
// protocol: on an InversionError the stamp-free caller awaits resolution and
// retries from scratch.
func (h *harness) connection(shard uint64) client.Connection {
	for {
		conn, err := h.behavior.GetConnection(shard)
		if err == nil {
			return conn
		}
		if inv, ok := err.(*client.InversionError); ok {
			inv.AwaitResolution()
			continue
		}
		panic(err)
	}
}

// target builds the transaction identifier routing to the given shard.
func (h *harness) target(shard, txn uint64) concepts.Identifier {
	return concepts.TransactionID{
		History: concepts.LocalHistoryID{Client: h.id, History: 1, Cookie: shard},
		Txn:     txn,
	}
}

// --------------------------------------------------------------------------
// Demo command
// --------------------------------------------------------------------------

func runDemo(_ *cobra.Command, _ []string) error {
	shards := viper.GetInt("shards")
	requests := viper.GetInt("requests")

	h := newHarness()
	defer h.close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, failed := 0, 0

	seqs := make([]uint64, shards)

	start := time.Now()
	for i := 0; i < requests; i++ {
		shard := uint64(i % shards)
		seqs[shard]++

		req := &concepts.Request{
			Target:   h.target(shard, uint64(i)),
			Sequence: seqs[shard],
		}

		wg.Add(1)
		h.connection(shard).Enqueue(req, func(resp concepts.Response) {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			if _, ok := resp.(*concepts.RequestSuccess); ok {
				succeeded++
			} else {
				failed++
			}
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Minute):
		return fmt.Errorf("timed out waiting for responses (%d/%d done)", succeeded+failed, requests)
	}

	fmt.Printf("\n%d requests over %d shards in %v (%d succeeded, %d failed)\n",
		requests, shards, time.Since(start).Round(time.Millisecond), succeeded, failed)
	return nil
}
