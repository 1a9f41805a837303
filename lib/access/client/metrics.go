package client

import (
	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Coordinator Metrics
// --------------------------------------------------------------------------

// Counters are registered in the default VictoriaMetrics set; embedders
// expose them by mounting metrics.WritePrometheus on their telemetry
// endpoint.
var (
	metricConnectionsCreated = metrics.GetOrCreateCounter(`dax_client_connections_created_total`)
	metricReconnects         = metrics.GetOrCreateCounter(`dax_client_reconnects_total`)
	metricReplayedEntries    = metrics.GetOrCreateCounter(`dax_client_replayed_entries_total`)
	metricForwardedEntries   = metrics.GetOrCreateCounter(`dax_client_forwarded_entries_total`)

	metricEntriesEnqueued  = metrics.GetOrCreateCounter(`dax_client_entries_enqueued_total`)
	metricEntriesCompleted = metrics.GetOrCreateCounter(`dax_client_entries_completed_total`)
	metricQueueOverflows   = metrics.GetOrCreateCounter(`dax_client_queue_overflows_total`)

	metricConnectionsPoisoned = metrics.GetOrCreateCounter(`dax_client_connections_poisoned_total`)
	metricResolveTimeouts     = metrics.GetOrCreateCounter(`dax_client_resolve_timeouts_total`)
	metricDroppedResponses    = metrics.GetOrCreateCounter(`dax_client_dropped_responses_total`)
)
