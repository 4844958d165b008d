package provisioning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSchedule runs at local midnight.
const DefaultSchedule = "0 0 * * *"

type Runner interface {
	Run(ctx context.Context) (Report, error)
}

type SchedulerConfig struct {
	Spec         string // standard 5-field cron spec or descriptor
	Location     *time.Location
	RunOnStartup bool
	Timeout      time.Duration // per run, 0 means none
}

// Scheduler triggers a Runner on a cron schedule. It is independent of the
// HTTP server and shares state with it only through the ledger.
type Scheduler struct {
	runner Runner
	cfg    SchedulerConfig
	cron   *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewScheduler parses the cron expression but does not start anything.
func NewScheduler(r Runner, cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Spec == "" {
		cfg.Spec = DefaultSchedule
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	logger := cron.PrintfLogger(logrus.StandardLogger())
	s := &Scheduler{
		runner: r,
		cfg:    cfg,
		done:   make(chan struct{}),
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
	if _, err := s.cron.AddFunc(cfg.Spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("provisioning schedule %q: %w", cfg.Spec, err)
	}
	return s, nil
}

// Start begins scheduling. Runs stop when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()

	if s.cfg.RunOnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runOnce()
		}()
	}

	go func() {
		defer close(s.done)
		<-s.ctx.Done()
		<-s.cron.Stop().Done()
		s.wg.Wait()
	}()

	logrus.WithFields(logrus.Fields{
		"spec":     s.cfg.Spec,
		"next_run": s.Next(),
	}).Info("provisioning scheduler started")
}

// Stop cancels in-flight runs and waits for them to return.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	logrus.Info("provisioning scheduler stopped")
}

// Next is the next scheduled fire time, zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) runOnce() {
	ctx := s.ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	rep, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		logrus.Info("scheduled provisioning skipped: run in progress")
	case err != nil:
		logrus.WithError(err).WithField("run_id", rep.RunID).Error("scheduled provisioning failed")
	}
}
