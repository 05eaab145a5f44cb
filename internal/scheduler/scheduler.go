// Package scheduler turns a cron expression into backup jobs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/raoulx24/config-archiver/internal/logging"
	"github.com/raoulx24/config-archiver/internal/mailbox"
	"github.com/raoulx24/config-archiver/internal/worker"
)

// Scheduler puts a job into the mailbox every time the schedule fires.
type Scheduler struct {
	mu    sync.Mutex
	c     *cron.Cron
	spec  string
	entry cron.EntryID

	mb  *mailbox.Mailbox[worker.Job]
	log logging.Logger
}

// New creates a stopped scheduler for spec (standard 5-field cron syntax or
// a descriptor such as "@daily").
func New(spec string, mb *mailbox.Mailbox[worker.Job], log logging.Logger, opts ...cron.Option) (*Scheduler, error) {
	opts = append([]cron.Option{cron.WithLogger(cronLogger{log: log})}, opts...)
	s := &Scheduler{
		c:   cron.New(opts...),
		mb:  mb,
		log: log,
	}
	if err := s.UpdateSpec(spec); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateSpec replaces the schedule. The old schedule stays active when
// spec does not parse.
func (s *Scheduler) UpdateSpec(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if spec == s.spec && s.entry != 0 {
		return nil
	}

	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parsing schedule %q: %w", spec, err)
	}

	if s.entry != 0 {
		s.c.Remove(s.entry)
	}
	s.entry = s.c.Schedule(sched, cron.FuncJob(func() { s.Trigger("schedule") }))
	s.spec = spec
	s.log.Info("backup schedule set", "cron", spec)
	return nil
}

// Trigger requests a run outside the schedule.
func (s *Scheduler) Trigger(reason string) {
	s.mb.Put(worker.Job{Reason: reason, Requested: time.Now()})
}

// Next returns the next time the schedule fires, or the zero time when the
// scheduler is not running.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	id := s.entry
	s.mu.Unlock()
	return s.c.Entry(id).Next
}

func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop halts the schedule. The returned context is done once a
// Trigger already in progress has returned.
func (s *Scheduler) Stop() context.Context {
	return s.c.Stop()
}

// cronLogger routes cron's own diagnostics into our logger.
type cronLogger struct {
	log logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
