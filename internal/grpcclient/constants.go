// Package grpcclient provides a client for an out-of-process OCR gRPC server
package grpcclient

import "time"

// Client configuration defaults
const (
	// Keepalive configuration
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// Per-call deadline for one recognition
	DefaultCallTimeout = 5 * time.Second
)
