// Package jobs runs the periodic maintenance tasks.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	SessionSweepSpec = "@every 10m"
	ProExpirySpec    = "@hourly"

	runTimeout = time.Minute
)

type SessionSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type ProExpirer interface {
	ExpireProMemberships(ctx context.Context, now time.Time) (int64, error)
}

type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func New(logger *slog.Logger, sessions SessionSweeper, users ProExpirer) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		logger: logger.With("component", "jobs"),
	}
	if _, err := s.cron.AddFunc(SessionSweepSpec, s.run("sweep_sessions", func(ctx context.Context) (int64, error) {
		return sessions.Sweep(ctx)
	})); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(ProExpirySpec, s.run("expire_pro", func(ctx context.Context) (int64, error) {
		return users.ExpireProMemberships(ctx, time.Now())
	})); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) run(name string, job func(ctx context.Context) (int64, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		n, err := job(ctx)
		if err != nil {
			s.logger.Error("job failed", "job", name, "error", err)
			return
		}
		if n > 0 {
			s.logger.Info("job finished", "job", name, "affected", n)
		}
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
