package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job is a function run on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context) error
}

// Scheduler runs registered jobs until stopped. Each job gets its own goroutine,
// so a slow job never delays another.
type Scheduler struct {
	logger *slog.Logger
	jobs   []Job
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger: logger,
		jobs:   make([]Job, 0),
	}
}

// AddJob registers a job. Jobs added after Start are picked up on the next Start.
func (s *Scheduler) AddJob(name string, interval time.Duration, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append(s.jobs, Job{
		Name:     name,
		Interval: interval,
		Fn:       fn,
	})
	s.logger.Info("Cron job registered", "name", name, "interval", interval)
}

func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Job(nil), s.jobs...)
}

// Start launches every job. The jobs stop when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	for _, job := range s.jobs {
		if job.Interval <= 0 {
			s.logger.Warn("Cron job skipped, interval must be positive", "name", job.Name)
			continue
		}
		s.wg.Add(1)
		go s.runJob(ctx, job)
	}

	s.logger.Info("Cron scheduler started", "job_count", len(s.jobs))
}

// Stop cancels all jobs and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	s.logger.Info("Stopping cron scheduler...")
	cancel()
	s.wg.Wait()
	s.logger.Info("Cron scheduler stopped")
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Cron job stopping", "name", job.Name)
			return
		case <-ticker.C:
			s.executeJob(ctx, job)
		}
	}
}

func (s *Scheduler) executeJob(ctx context.Context, job Job) error {
	start := time.Now()
	s.logger.Debug("Cron job starting", "name", job.Name)

	if err := job.Fn(ctx); err != nil {
		s.logger.Error("Cron job failed", "name", job.Name, "error", err, "duration", time.Since(start))
		return fmt.Errorf("%s: %w", job.Name, err)
	}
	s.logger.Debug("Cron job completed", "name", job.Name, "duration", time.Since(start))
	return nil
}

// RunOnce runs every job a single time in registration order and joins their errors.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, job := range s.Jobs() {
		if err := s.executeJob(ctx, job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
