// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

// Package scheduler runs a job on a cron schedule. A tick that fires while
// the previous run is still active is skipped, and stopping waits for the
// in-flight run to complete.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/toeirei/keysync/internal/logging"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context)

// Scheduler wraps a single cron entry.
type Scheduler struct {
	cron *cron.Cron
	id   cron.EntryID

	mu  sync.Mutex
	ctx context.Context
	// active counts jobs that are running or about to run.
	active sync.WaitGroup
}

// New parses spec (standard five-field cron or a descriptor such as
// "@every 1m") and registers job under it. The scheduler is not started.
func New(spec string, job Job) (*Scheduler, error) {
	l := cronLogger{}
	s := &Scheduler{ctx: context.Background()}
	s.cron = cron.New(
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
	id, err := s.cron.AddFunc(spec, func() {
		s.active.Add(1)
		defer s.active.Done()
		job(s.jobContext())
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s.id = id
	return s, nil
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Trigger runs the job immediately through the same chain as scheduled ticks,
// so it is skipped when a run is already active. It blocks until the job
// returns or is skipped.
func (s *Scheduler) Trigger() {
	s.cron.Entry(s.id).WrappedJob.Run()
}

// Run starts the schedule and blocks until ctx is cancelled. Jobs receive a
// context that is not cancelled with ctx, so a run in flight at shutdown
// completes before Run returns. With runNow the job also runs once at start.
func (s *Scheduler) Run(ctx context.Context, runNow bool) error {
	s.mu.Lock()
	s.ctx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	logging.Debugf("scheduler: started, next run at %s", s.cron.Entry(s.id).Next)

	if runNow {
		s.active.Add(1)
		go func() {
			defer s.active.Done()
			s.Trigger()
		}()
	}

	<-ctx.Done()
	logging.Infof("scheduler: stopping, waiting for the active run to finish")
	<-s.cron.Stop().Done()
	// Stop only tracks ticks started by cron, not Trigger calls.
	s.active.Wait()
	return nil
}

// cronLogger forwards robfig/cron log lines to the keysync logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.L.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.L.Error("cron: "+msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
