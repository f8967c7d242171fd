// Package stats tracks per-transfer throughput with a bounded sliding
// window and derives the adaptive chunk-size controller from it. Speed
// and ETA are always computed from the window's first and last sample —
// there is no cumulative average.
package stats

import (
	"time"
)

const (
	windowSize       = 10
	MinChunkSize     = 16 * 1024
	MaxChunkSize     = 512 * 1024
	DefaultChunkSize = 64 * 1024
	targetChunkMS    = 75.0
	growFactor       = 1.5
	shrinkFactor     = 2.0 / 3.0
)

type sample struct {
	at    time.Time
	bytes uint64
}

// Transfer accumulates byte counters and a bounded speed-sample window
// for one file transfer (send or receive side).
type Transfer struct {
	totalBytes     uint64
	transferred    uint64
	beforeCompress uint64
	afterCompress  uint64

	samples []sample

	chunkSize int

	filesCompleted int
	filesTotal     int

	startedAt time.Time
}

func NewTransfer(totalBytes uint64, filesTotal int) *Transfer {
	return &Transfer{
		totalBytes: totalBytes,
		chunkSize:  DefaultChunkSize,
		filesTotal: filesTotal,
		startedAt:  time.Now(),
	}
}

// Update records a chunk of file bytes transferred (the uncompressed
// count that progress and ETA are measured against) along with its
// pre/post compression sizes, pushes a new sample into the sliding window, and re-derives the
// chunk-size controller.
func (t *Transfer) Update(transferredDelta, beforeCompressDelta, afterCompressDelta uint64) {
	t.transferred += transferredDelta
	t.beforeCompress += beforeCompressDelta
	t.afterCompress += afterCompressDelta

	t.samples = append(t.samples, sample{at: time.Now(), bytes: t.transferred})
	for len(t.samples) > windowSize {
		t.samples = t.samples[1:]
	}

	t.chunkSize = AdaptChunkSize(t.chunkSize, t.SpeedBytesPerSec())
}

// SpeedBytesPerSec derives instantaneous throughput purely from the
// first and last samples currently in the window.
func (t *Transfer) SpeedBytesPerSec() float64 {
	if len(t.samples) < 2 {
		return 0
	}
	first := t.samples[0]
	last := t.samples[len(t.samples)-1]
	elapsed := last.at.Sub(first.at).Seconds()
	if elapsed < 0.001 {
		return 0
	}
	return float64(last.bytes-first.bytes) / elapsed
}

// ETA returns the estimated remaining duration, or false if the current
// speed is too low to produce a meaningful estimate.
func (t *Transfer) ETA() (time.Duration, bool) {
	speed := t.SpeedBytesPerSec()
	if speed < 1.0 {
		return 0, false
	}
	if t.transferred >= t.totalBytes {
		return 0, true
	}
	remaining := float64(t.totalBytes - t.transferred)
	return time.Duration(remaining / speed * float64(time.Second)), true
}

func (t *Transfer) ChunkSize() int { return t.chunkSize }

func (t *Transfer) ProgressPercent() float64 {
	if t.totalBytes == 0 {
		return 100
	}
	return float64(t.transferred) / float64(t.totalBytes) * 100
}

// CompressionRatio returns the fraction of bytes saved by compression,
// or false if no compressed bytes have been recorded yet.
func (t *Transfer) CompressionRatio() (float64, bool) {
	if t.beforeCompress == 0 {
		return 0, false
	}
	saved := float64(t.beforeCompress-t.afterCompress) / float64(t.beforeCompress)
	return saved, true
}

func (t *Transfer) FileCompleted() {
	t.filesCompleted++
}

func (t *Transfer) FilesCompleted() int { return t.filesCompleted }
func (t *Transfer) FilesTotal() int     { return t.filesTotal }
func (t *Transfer) Transferred() uint64 { return t.transferred }
func (t *Transfer) TotalBytes() uint64  { return t.totalBytes }
func (t *Transfer) Elapsed() time.Duration {
	return time.Since(t.startedAt)
}

// WindowLen reports the current sample-window length; exported so
// property tests can assert it never exceeds 10.
func (t *Transfer) WindowLen() int { return len(t.samples) }

// AdaptChunkSize recomputes the target chunk size so that one chunk
// takes about targetChunkMS milliseconds to send at the given
// throughput, then rate-limits the change (grow ≤1.5x, shrink ≥0.667x
// per step) and clamps to [MinChunkSize, MaxChunkSize]. It is a pure
// function so callers and tests can drive it with adversarial
// throughput sequences directly.
func AdaptChunkSize(current int, speedBytesPerSec float64) int {
	optimal := int(speedBytesPerSec * targetChunkMS / 1000.0)
	optimal = clamp(optimal, MinChunkSize, MaxChunkSize)

	next := current
	if optimal > current {
		next = min(int(float64(current)*growFactor), optimal)
	} else if optimal < current {
		next = max(int(float64(current)*shrinkFactor), optimal)
	}
	return clamp(next, MinChunkSize, MaxChunkSize)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
