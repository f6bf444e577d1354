// Package server exposes the tracker's query API and event stream over HTTP.
package server

import "time"

// Server configuration constants
const (
	// Inbound websocket messages allowed per connection per window
	RateLimitMessages = 10
	RateLimitWindow   = time.Second

	// Per-connection event buffer; a slow client misses events past this
	EventBuffer = 64

	// Deadline for one websocket write
	WriteTimeout = 5 * time.Second

	// Largest accepted request body
	MaxBodyBytes = 1 << 16
)
