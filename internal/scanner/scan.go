package scanner

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"fileferry/internal/engine"
)

const (
	batchSize      = 32
	probeTimeout   = 100 * time.Millisecond
	progressPeriod = time.Second
)

// Scan sweeps every subnet's host range (octets 1-254) for a server
// listening on port, probing batchSize addresses at a time so the
// sweep finishes in seconds rather than minutes. It emits
// EventScanProgress at most once per second, EventServerFound as each
// live host answers, and a final EventScanCompleted.
func Scan(subnets []Subnet, port int, sink engine.Sink, stop *engine.StopToken) ([]string, error) {
	if len(subnets) == 0 {
		return nil, fmt.Errorf("scanner: no subnets to scan")
	}

	var found []string
	lastProgress := time.Time{}

	for subnetIdx, subnet := range subnets {
		engine.Emit(sink, stop, engine.Event{Kind: engine.EventScanProgress, Reason: fmt.Sprintf("subnet %d/%d: %s", subnetIdx+1, len(subnets), subnet), Percent: 0})

		for batchStart := 1; batchStart < 255; batchStart += batchSize {
			if stop.Stopped() {
				engine.Emit(sink, stop, engine.Event{Kind: engine.EventCancelled, Reason: "scan stopped"})
				return found, fmt.Errorf("scanner: %w", engine.ErrCancelled)
			}

			batchEnd := batchStart + batchSize
			if batchEnd > 255 {
				batchEnd = 255
			}

			var g errgroup.Group
			results := make(chan string, batchEnd-batchStart)
			for host := batchStart; host < batchEnd; host++ {
				addr := subnet.Addr(byte(host))
				g.Go(func() error {
					if probe(addr, port) {
						results <- addr
					}
					return nil
				})
			}
			g.Wait()
			close(results)
			for addr := range results {
				found = append(found, addr)
				engine.Emit(sink, stop, engine.Event{Kind: engine.EventServerFound, Target: addr})
			}

			if time.Since(lastProgress) >= progressPeriod {
				lastProgress = time.Now()
				subnetProgress := float64(batchEnd) / 254.0
				totalProgress := (float64(subnetIdx) + subnetProgress) / float64(len(subnets)) * 100
				engine.Emit(sink, stop, engine.Event{Kind: engine.EventScanProgress, Reason: fmt.Sprintf("%s%d", subnet.Base(), batchEnd), Percent: int(totalProgress)})
			}
		}
	}

	engine.Emit(sink, stop, engine.Event{Kind: engine.EventScanCompleted, FilesCount: len(found)})
	return found, nil
}

func probe(addr string, port int) bool {
	target := fmt.Sprintf("%s:%d", addr, port)
	conn, err := net.DialTimeout("tcp", target, probeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
