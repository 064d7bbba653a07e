// Package worker runs the engine's periodic sweeps on tickers.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one periodic sweep.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// Scheduler runs each job on its own ticker until the context ends. A failing run is
// logged and the job fires again on its next tick.
type Scheduler struct {
	jobs   []Job
	logger *logrus.Logger

	// RunOnStart fires every job once before waiting for the first tick.
	RunOnStart bool
}

func NewScheduler(logger *logrus.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs, logger: logger}
}

// Run blocks until ctx is cancelled and every job loop has returned.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		if job.Every <= 0 {
			s.logger.WithField("job", job.Name).Warn("job has no interval, not scheduled")
			continue
		}
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.loop(ctx, job)
		}(job)
	}
	s.logger.WithField("jobs", len(s.jobs)).Info("scheduler started")
	wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Every)
	defer ticker.Stop()

	if s.RunOnStart {
		s.runJob(ctx, job)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runJob(ctx, job)
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	start := time.Now()
	log := s.logger.WithField("job", job.Name)
	if err := job.Run(ctx); err != nil {
		log.WithField("error", err).Error("job failed")
		return
	}
	log.WithField("duration", time.Since(start)).Debug("job finished")
}

// RunOnce runs the named job a single time, for manual triggers.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name == name {
			return job.Run(ctx)
		}
	}
	return fmt.Errorf("unknown job %q", name)
}
