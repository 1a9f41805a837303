package client

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ValentinKolb/dAX/cmd/util"
	"github.com/ValentinKolb/dAX/lib/access/concepts"
	"github.com/puzpuzpuz/xsync/v3"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Benchmark the connection coordinator",
		Long:    "Hammers a loopback coordinator from multiple producer goroutines and reports request round-trip latencies.",
		RunE:    runPerf,
		PreRunE: processConfig,
	}
)

func init() {
	key := "threads"
	perfCmd.Flags().Int(key, 10, util.WrapString("Number of producer goroutines"))
	key = "perf-requests"
	perfCmd.Flags().Int(key, 10000, util.WrapString("Requests per producer goroutine"))
	key = "perf-shards"
	perfCmd.Flags().Int(key, 8, util.WrapString("Number of shards to spread requests over"))
	key = "csv"
	perfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func runPerf(_ *cobra.Command, _ []string) error {
	threads := viper.GetInt("threads")
	requests := viper.GetInt("perf-requests")
	shards := viper.GetInt("perf-shards")

	h := newHarness()
	defer h.close()

	latency := gometrics.NewTimer()
	perShard := xsync.NewMapOf[uint64, *xsync.Counter]()

	var wg sync.WaitGroup
	wg.Add(threads)

	start := time.Now()
	for t := 0; t < threads; t++ {
		go func(producer int) {
			defer wg.Done()

			var inner sync.WaitGroup
			for i := 0; i < requests; i++ {
				shard := uint64((producer + i) % shards)

				// Sequences are made unique per connection by owning
				// producer and index
				req := &concepts.Request{
					Target:   h.target(shard, uint64(i)),
					Sequence: uint64(producer)<<32 | uint64(i),
				}

				enqueued := time.Now()
				inner.Add(1)
				h.connection(shard).Enqueue(req, func(concepts.Response) {
					latency.UpdateSince(enqueued)
					inner.Done()
				})

				counter, _ := perShard.LoadOrCompute(shard, func() *xsync.Counter {
					return xsync.NewCounter()
				})
				counter.Inc()
			}
			inner.Wait()
		}(t)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// Report
	total := int64(threads * requests)
	snap := latency.Snapshot()
	ps := snap.Percentiles([]float64{0.5, 0.95, 0.99})

	fmt.Printf("\n%d requests (%d threads x %d) over %d shards in %v\n",
		total, threads, requests, shards, elapsed.Round(time.Millisecond))
	fmt.Printf("  %-12s: %.0f req/s\n", "throughput", float64(total)/elapsed.Seconds())
	fmt.Printf("  %-12s: %v\n", "mean", time.Duration(int64(snap.Mean())))
	fmt.Printf("  %-12s: %v\n", "p50", time.Duration(int64(ps[0])))
	fmt.Printf("  %-12s: %v\n", "p95", time.Duration(int64(ps[1])))
	fmt.Printf("  %-12s: %v\n", "p99", time.Duration(int64(ps[2])))

	fmt.Println("\nper-shard request counts:")
	perShard.Range(func(shard uint64, counter *xsync.Counter) bool {
		fmt.Printf("  shard %-4d: %d\n", shard, counter.Value())
		return true
	})

	if path := viper.GetString("csv"); path != "" {
		return writeCSV(path, total, elapsed, snap)
	}
	return nil
}

// writeCSV saves the benchmark summary for later comparison
func writeCSV(path string, total int64, elapsed time.Duration, snap gometrics.Timer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	ps := snap.Percentiles([]float64{0.5, 0.95, 0.99})
	rows := [][]string{
		{"requests", "elapsed_ms", "mean_ns", "p50_ns", "p95_ns", "p99_ns"},
		{
			strconv.FormatInt(total, 10),
			strconv.FormatInt(elapsed.Milliseconds(), 10),
			strconv.FormatInt(int64(snap.Mean()), 10),
			strconv.FormatInt(int64(ps[0]), 10),
			strconv.FormatInt(int64(ps[1]), 10),
			strconv.FormatInt(int64(ps[2]), 10),
		},
	}
	return w.WriteAll(rows)
}
