package client

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// Config holds the tuning knobs of one client coordinator.
type Config struct {
	// QueueLimit is the per-connection buffering ceiling. Entries beyond it
	// are completed immediately with a queue-overflow failure.
	QueueLimit int

	// ResolveTimeout bounds a single backend resolution attempt.
	ResolveTimeout time.Duration

	// ResolveRetryDelay is the pause before re-attempting a timed-out
	// resolution while the connection is still current.
	ResolveRetryDelay time.Duration
}

// DefaultConfig returns the configuration used when no overrides are given.
func DefaultConfig() Config {
	return Config{
		QueueLimit:        1000,
		ResolveTimeout:    30 * time.Second,
		ResolveRetryDelay: 5 * time.Second,
	}
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Connection Queues")
	addField("Queue Limit", strconv.Itoa(c.QueueLimit))

	addSection("Backend Resolution")
	addField("Resolve Timeout", c.ResolveTimeout.String())
	addField("Retry Delay", c.ResolveRetryDelay.String())

	return sb.String()
}
