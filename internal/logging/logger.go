// Package logging is the narrow logging seam the server and CLI share.
// Services hold a Logger, never a concrete backend; each tags itself once
// with With("module", ...) and passes the request or sweep context to every
// call so context-scoped attributes reach the handler.
package logging

import "context"

// Logger accepts alternating key-value args after the message:
//
//	log.Warn(ctx, "expiry notice failed", "trustee_id", id, "error", err)
type Logger interface {
	// Info records normal operation: startup, shutdown, deliveries.
	Info(ctx context.Context, msg string, args ...any)

	// Warn records a condition the caller absorbed, such as a single
	// trustee notification failing inside a fan-out.
	Warn(ctx context.Context, msg string, args ...any)

	// Error records a failure surfaced to the caller.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a logger that stamps every record with the given pairs.
	With(args ...any) Logger
}
