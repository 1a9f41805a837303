// Package cmd implements the command-line interface for the dAX distributed
// datastore access client. It provides a hierarchical command structure with
// operations for exercising and benchmarking the connection coordinator.
//
// The package is organized into several subpackages:
//
//   - client: Commands for driving a coordinator against a cluster (demo, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dax -help for a list of all commands.
package cmd
