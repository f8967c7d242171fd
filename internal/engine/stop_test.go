package engine

import "testing"

func TestStopTokenStartsUnset(t *testing.T) {
	s := NewStopToken()
	if s.Stopped() {
		t.Fatal("expected fresh stop token to be unset")
	}
}

func TestStopTokenIdempotent(t *testing.T) {
	s := NewStopToken()
	s.Stop()
	s.Stop()
	if !s.Stopped() {
		t.Fatal("expected stop token to be set")
	}
}

func TestEmitNonBlockingAfterStop(t *testing.T) {
	sink := NewSink(0)
	stop := NewStopToken()
	stop.Stop()
	// Must not deadlock even though nobody is reading from sink.
	Emit(sink, stop, Event{Kind: EventCancelled})
}
