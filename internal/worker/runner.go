package worker

import (
	"context"
)

// contains the loop that continuously pulls jobs from the mailbox
// and executes them using the Worker.

// Start blocks, handling jobs until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("starting worker")
	for {
		job, ok := w.mb.TakeContext(ctx)
		if !ok {
			w.log.Info("worker stopped")
			return
		}
		_, _ = w.Handle(ctx, job)
	}
}
