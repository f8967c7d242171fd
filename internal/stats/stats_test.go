package stats

import (
	"testing"
	"time"
)

func TestAdaptChunkSizeStaysInBounds(t *testing.T) {
	speeds := []float64{0, 1, 100, 1e6, 1e9, 1e12, 50000, 0, 1e15}
	size := DefaultChunkSize
	for _, s := range speeds {
		size = AdaptChunkSize(size, s)
		if size < MinChunkSize || size > MaxChunkSize {
			t.Fatalf("chunk size %d escaped [%d,%d] for speed %v", size, MinChunkSize, MaxChunkSize, s)
		}
	}
}

func TestAdaptChunkSizeDamping(t *testing.T) {
	// A huge jump in throughput must not let the chunk size more than
	// 1.5x in a single step.
	current := MinChunkSize
	next := AdaptChunkSize(current, 1e9)
	if float64(next) > float64(current)*1.5+1 {
		t.Errorf("grew too fast: %d -> %d", current, next)
	}

	current = MaxChunkSize
	next = AdaptChunkSize(current, 0)
	if float64(next) < float64(current)*(2.0/3.0)-1 {
		t.Errorf("shrank too fast: %d -> %d", current, next)
	}
}

func TestWindowBoundedAtTen(t *testing.T) {
	tr := NewTransfer(1000000, 1)
	for i := 0; i < 50; i++ {
		tr.Update(1000, 1000, 1000)
		if tr.WindowLen() > 10 {
			t.Fatalf("window length %d exceeds 10", tr.WindowLen())
		}
	}
}

func TestSpeedRequiresTwoSamples(t *testing.T) {
	tr := NewTransfer(1000, 1)
	if tr.SpeedBytesPerSec() != 0 {
		t.Errorf("expected 0 speed with no samples")
	}
	tr.Update(100, 100, 100)
	if tr.SpeedBytesPerSec() != 0 {
		t.Errorf("expected 0 speed with a single sample")
	}
}

func TestETAUnavailableBelowThreshold(t *testing.T) {
	tr := NewTransfer(1000000, 1)
	if _, ok := tr.ETA(); ok {
		t.Error("expected ETA unavailable with no throughput data")
	}
}

func TestFormatSpeedBuckets(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{500, "500 B/s"},
		{2048, "2.00 KB/s"},
		{5 * 1024 * 1024, "5.00 MB/s"},
		{3 * 1024 * 1024 * 1024, "3.00 GB/s"},
	}
	for _, c := range cases {
		if got := FormatSpeed(c.in); got != c.want {
			t.Errorf("FormatSpeed(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatDurationBuckets(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.in); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
