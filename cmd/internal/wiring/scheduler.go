package wiring

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/velmie/stockrelay"
)

// Job is a periodic maintenance task.
type Job func(ctx context.Context) error

// Scheduler runs maintenance jobs on cron specs. A job still running when its next
// tick fires is skipped, and a panicking job is logged and recovered.
type Scheduler struct {
	cron   *cron.Cron
	logger stockrelay.Logger
}

// NewScheduler builds a Scheduler. Specs accept an optional seconds field and descriptors such as @every 1m.
func NewScheduler(logger stockrelay.Logger) *Scheduler {
	if logger == nil {
		logger = stockrelay.NopLogger{}
	}
	cl := cronLogger{logger: logger}

	return &Scheduler{
		cron: cron.New(
			cron.WithParser(cron.NewParser(
				cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor,
			)),
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
		),
		logger: logger,
	}
}

// Add registers job under name. ctx is passed to every invocation.
func (s *Scheduler) Add(ctx context.Context, name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		if err := job(ctx); err != nil {
			s.logger.Warn("scheduled job failed", "job", name, "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}

	return nil
}

// Len reports the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler until ctx is done, then waits for running jobs.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}

type cronLogger struct {
	logger stockrelay.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
