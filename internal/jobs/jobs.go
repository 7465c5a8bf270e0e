// Package jobs runs periodic maintenance tasks on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"moonjin/internal/metrics"
)

// Job is one named unit of scheduled work.
type Job struct {
	Name     string
	Schedule string
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	log  logrus.FieldLogger
}

func NewScheduler(log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cron.PrintfLogger(log))),
		log:  log,
	}
}

// Add registers job. Overlapping runs of the same job are skipped.
func (s *Scheduler) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("jobs: %s has no run func", job.Name)
	}
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.PrintfLogger(s.log))).
		Then(cron.FuncJob(func() { s.run(job) }))
	if _, err := s.cron.AddJob(job.Schedule, wrapped); err != nil {
		return fmt.Errorf("jobs: schedule %s %q: %w", job.Name, job.Schedule, err)
	}
	return nil
}

func (s *Scheduler) run(job Job) {
	ctx := context.Background()
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	start := time.Now()
	err := job.Run(ctx)
	metrics.RecordJobRun(job.Name, err == nil)
	entry := s.log.WithFields(logrus.Fields{"job": job.Name, "duration": time.Since(start)})
	if err != nil {
		entry.WithError(err).Error("job failed")
		return
	}
	entry.Debug("job done")
}

// RunNow executes job synchronously, outside the schedule.
func (s *Scheduler) RunNow(job Job) {
	s.run(job)
}

func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("jobs: stop timed out with jobs still running")
	}
}
