// Package worker runs backup jobs taken from a mailbox, one at a time.
package worker

import (
	"context"

	"github.com/raoulx24/config-archiver/internal/archiver"
	"github.com/raoulx24/config-archiver/internal/logging"
	"github.com/raoulx24/config-archiver/internal/mailbox"
)

// Runner performs one backup run. *archiver.Archiver implements it.
type Runner interface {
	Run(ctx context.Context) (archiver.Result, error)
}

// Worker serialises backup runs requested through the mailbox.
type Worker struct {
	runner Runner
	log    logging.Logger
	mb     *mailbox.Mailbox[Job]
	done   func(archiver.Result, error)
}

// New creates a worker. done, when non-nil, is called after every run.
func New(runner Runner, log logging.Logger, mb *mailbox.Mailbox[Job], done func(archiver.Result, error)) *Worker {
	return &Worker{
		runner: runner,
		log:    log,
		mb:     mb,
		done:   done,
	}
}

// Handle runs one job synchronously.
func (w *Worker) Handle(ctx context.Context, job Job) (archiver.Result, error) {
	w.log.Info("starting backup", "reason", job.Reason)

	res, err := w.runner.Run(ctx)
	if err != nil {
		w.log.Error("backup failed", "reason", job.Reason, "error", err)
	} else {
		w.log.Info("backup completed successfully", "archive", res.Archive.Name, "issues", len(res.Issues))
	}

	if w.done != nil {
		w.done(res, err)
	}
	return res, err
}
