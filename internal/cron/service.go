package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
	"github.com/angelmondragon/hwinventory-backend/pkg/metrics"
)

const defaultInterval = time.Hour

type ServiceParams struct {
	Logger   *logger.Logger
	Jobs     []Job
	Lock     Lock
	Metrics  *metrics.MaintenanceMetrics
	Interval time.Duration
}

// Service runs its jobs in order once per cycle, under Lock so only one worker
// per environment does the work.
type Service struct {
	logg     *logger.Logger
	jobs     []Job
	lock     Lock
	metrics  *metrics.MaintenanceMetrics
	interval time.Duration
}

func NewService(p ServiceParams) (*Service, error) {
	if p.Logger == nil || p.Lock == nil {
		return nil, errors.New("cron service needs a logger and a lock")
	}
	seen := make(map[string]bool, len(p.Jobs))
	for _, job := range p.Jobs {
		if job == nil {
			return nil, errors.New("nil maintenance job")
		}
		if seen[job.Name()] {
			return nil, fmt.Errorf("maintenance job %q registered twice", job.Name())
		}
		seen[job.Name()] = true
	}
	if p.Interval <= 0 {
		p.Interval = defaultInterval
	}
	return &Service{
		logg:     p.Logger,
		jobs:     append([]Job(nil), p.Jobs...),
		lock:     p.Lock,
		metrics:  p.Metrics,
		interval: p.Interval,
	}, nil
}

// Run starts a cycle right away and then one interval after each cycle ends,
// so a slow cycle never overlaps the next. It returns when ctx is done.
func (s *Service) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "maintenance cycle finished with errors", err)
		}
		timer.Reset(s.interval)
	}
}

// RunOnce runs every job, including those after a failure, and returns the
// failures combined. A cycle skipped because another worker holds the lock is
// not an error.
func (s *Service) RunOnce(ctx context.Context) (err error) {
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire maintenance lock: %w", err)
	}
	if !held {
		s.logg.Info(ctx, "maintenance lock held elsewhere, cycle skipped")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", relErr.Error()), "maintenance lock not released")
		}
	}()

	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return multierr.Append(err, ctx.Err())
		}
		if jobErr := s.run(ctx, job); jobErr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", job.Name(), jobErr))
		}
	}
	return err
}

func (s *Service) run(ctx context.Context, job Job) error {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	started := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(started)
	s.metrics.ObserveRun(job.Name(), elapsed, err)

	ctx = s.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "maintenance job failed", err)
		return err
	}
	s.logg.Info(ctx, "maintenance job done")
	return nil
}
