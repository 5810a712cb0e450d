// Package scheduler runs periodic background maintenance for mediabunny.
// Today that means sweeping finished conversion jobs past their retention
// window; it uses robfig/cron as the timing engine.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mediabunnygo/mediabunny/internal/repository"
)

// RetentionConfig configures the retention sweep.
type RetentionConfig struct {
	// CronSchedule is a 6-field (seconds-first) cron expression. Empty disables the sweep.
	CronSchedule string
	// MaxAge is how long a finished job's record is kept before it is deleted.
	MaxAge time.Duration
}

// RetentionScheduler periodically deletes finished job records older than
// a configured age.
type RetentionScheduler struct {
	mu sync.Mutex

	jobs   repository.JobRepository
	logger *slog.Logger
	parser cron.Parser

	cronScheduler *cron.Cron
	config        RetentionConfig

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRetentionScheduler creates a scheduler that sweeps finished jobs from repo.
func NewRetentionScheduler(jobs repository.JobRepository, config RetentionConfig) *RetentionScheduler {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &RetentionScheduler{
		jobs:   jobs,
		logger: slog.Default(),
		parser: parser,
		cronScheduler: cron.New(cron.WithParser(parser), cron.WithChain(
			cron.Recover(cron.DefaultLogger),
		)),
		config: config,
	}
}

// WithLogger sets a custom logger.
func (s *RetentionScheduler) WithLogger(logger *slog.Logger) *RetentionScheduler {
	s.logger = logger
	return s
}

// Start validates the configured cron expression, registers the sweep, and
// starts the underlying cron engine. A disabled or empty schedule is a no-op.
func (s *RetentionScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return fmt.Errorf("retention scheduler already started")
	}
	if s.config.CronSchedule == "" {
		s.logger.Info("retention sweep disabled: no cron schedule configured")
		return nil
	}

	if _, err := s.parser.Parse(s.config.CronSchedule); err != nil {
		return fmt.Errorf("invalid retention cron schedule %q: %w", s.config.CronSchedule, err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cronScheduler.AddFunc(s.config.CronSchedule, s.sweep); err != nil {
		return fmt.Errorf("registering retention sweep: %w", err)
	}

	s.cronScheduler.Start()
	s.logger.Info("retention scheduler started",
		slog.String("cron", s.config.CronSchedule),
		slog.Duration("max_age", s.config.MaxAge))

	return nil
}

// Stop stops the cron engine, waiting for an in-flight sweep to finish.
func (s *RetentionScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	stopCtx := s.cronScheduler.Stop()
	<-stopCtx.Done()
	s.ctx, s.cancel = nil, nil
}

// sweep deletes finished job records older than the retention window.
func (s *RetentionScheduler) sweep() {
	s.mu.Lock()
	ctx := s.ctx
	maxAge := s.config.MaxAge
	s.mu.Unlock()
	if ctx == nil {
		return
	}

	cutoff := time.Now().Add(-maxAge)
	n, err := s.jobs.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("retention sweep failed", slog.Any("error", err))
		return
	}
	if n > 0 {
		s.logger.Info("retention sweep removed finished jobs", slog.Int64("count", n), slog.Time("cutoff", cutoff))
	}
}

// SweepNow runs the sweep immediately, outside of the cron schedule. Useful
// for CLI-triggered maintenance and tests.
func (s *RetentionScheduler) SweepNow(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.config.MaxAge)
	return s.jobs.DeleteFinishedBefore(ctx, cutoff)
}
