// Package orchestrator runs the encounter scan loop and owns the active hunt.
package orchestrator

import "time"

// Scheduler defaults
const (
	// Delay before every capture
	DefaultPacingDelay = time.Second

	// Scan attempts per battle before giving up
	DefaultMaxAttempts = 3

	// Work queue capacity; only the worker and Stop enqueue
	WorkQueueSize = 4

	// Event subscriber buffer for sinks started by the manager
	EventBuffer = 32
)
