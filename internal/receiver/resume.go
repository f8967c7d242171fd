// Package receiver implements the per-connection receive state machine:
// demuxing wire messages, deciding resume position, writing files to
// disk (directly, or via the streaming extractor bridge for
// tar.<codec> archives), and driving the speedtest server mirror.
package receiver

import (
	"os"

	"fileferry/internal/quickhash"
)

// Decision is the pure resume-decision record derived from existing
// on-disk size, the sender's declared size, and (when relevant) a
// quick-hash comparison. It is a pure function of those three inputs so
// it can be tested directly against spec.md's three named outcomes.
type Decision struct {
	// StartOffset is where the receiver should start accepting bytes:
	// equal to ExpectedSize means "skip entirely".
	StartOffset uint64
	Skip        bool
}

// DecideResume implements the exact branch table from spec.md §3:
//   - existing ≥ expected ∧ hash matches → skip entirely
//   - existing ≥ expected ∧ hash mismatches → overwrite from zero
//   - existing < expected → resume at existing size (no hash check)
//
// quickHash == 0 means the sender supplied no usable fingerprint (e.g.
// an empty file), so resume is never attempted and this always returns
// a from-zero decision.
func DecideResume(existingSize, expectedSize, quickHash uint64, currentHash func() (uint64, error)) (Decision, error) {
	if quickHash == 0 {
		return Decision{StartOffset: 0}, nil
	}
	if existingSize >= expectedSize {
		h, err := currentHash()
		if err != nil {
			return Decision{}, err
		}
		if h == quickHash {
			return Decision{StartOffset: expectedSize, Skip: true}, nil
		}
		return Decision{StartOffset: 0}, nil
	}
	return Decision{StartOffset: existingSize}, nil
}

// DecideResumeForPath is the disk-backed convenience wrapper DecideResume
// needs in production: it stats path and, only when a hash comparison
// is actually required, computes the local quick-hash.
func DecideResumeForPath(path string, expectedSize, quickHash uint64) (Decision, error) {
	info, err := os.Stat(path)
	var existingSize uint64
	if err == nil {
		existingSize = uint64(info.Size())
	} else if !os.IsNotExist(err) {
		return Decision{}, err
	}
	return DecideResume(existingSize, expectedSize, quickHash, func() (uint64, error) {
		return quickhash.File(path)
	})
}
