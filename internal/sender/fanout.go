package sender

import (
	"context"

	"golang.org/x/sync/errgroup"

	"fileferry/internal/engine"
)

// SendToTargets runs SendToTarget against every address concurrently,
// one goroutine per target, and emits EventAllCompleted once every
// target's goroutine has returned (success or failure; a failed
// target's error is reported via EventConnectionError/EventFileError
// from inside SendToTarget, not returned here, so one bad target never
// cancels the others).
func SendToTargets(ctx context.Context, addrs []string, files []File, opts Options, sink engine.Sink, stop *engine.StopToken) {
	var g errgroup.Group
	for idx, addr := range addrs {
		g.Go(func() error {
			_ = SendToTarget(ctx, idx, addr, files, opts, sink, stop)
			return nil
		})
	}
	g.Wait()
	engine.Emit(sink, stop, engine.Event{Kind: engine.EventAllCompleted})
}
