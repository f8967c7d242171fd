// Package engine provides the cross-cutting concerns shared by every
// other component: a cooperative stop token and a telemetry event bus.
// There is no other shared mutable state in the system.
package engine

import "sync/atomic"

// StopToken is a single boolean, shared by every goroutine spawned for
// one logical operation. It is consulted at every suspension point
// (network read/write, channel send, file I/O, timed accept) with
// relaxed ordering, and treated as a fast-path exit.
type StopToken struct {
	stopped atomic.Bool
}

func NewStopToken() *StopToken {
	return &StopToken{}
}

// Stop sets the token. Idempotent.
func (s *StopToken) Stop() {
	s.stopped.Store(true)
}

// Stopped reports whether the token has been set.
func (s *StopToken) Stopped() bool {
	return s.stopped.Load()
}
