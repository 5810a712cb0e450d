// Package service wires the conversion controller to persisted job records,
// the shape the HTTP job handlers and the CLI's convert command both drive.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mediabunnygo/mediabunny/internal/codecbackend"
	"github.com/mediabunnygo/mediabunny/internal/convert/core"
	"github.com/mediabunnygo/mediabunny/internal/demux"
	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/repository"
)

// JobService submits conversion jobs, persists their lifecycle, and exposes
// lookups for the HTTP and CLI surfaces.
type JobService struct {
	repo     repository.JobRepository
	registry *codecbackend.Registry
	logger   *slog.Logger

	mu          sync.Mutex
	controllers map[string]*core.Controller
}

// NewJobService creates a JobService backed by repo and registry.
func NewJobService(repo repository.JobRepository, registry *codecbackend.Registry) *JobService {
	return &JobService{
		repo:        repo,
		registry:    registry,
		logger:      slog.Default(),
		controllers: make(map[string]*core.Controller),
	}
}

// WithLogger sets a custom logger.
func (s *JobService) WithLogger(logger *slog.Logger) *JobService {
	s.logger = logger
	return s
}

// Submit builds a controller for in/sink/opts, persists a pending job
// record, and starts the conversion in the background. It returns
// immediately with the created job record.
func (s *JobService) Submit(ctx context.Context, inputPath, outputPath string, in demux.Input, sink mux.Adapter, opts core.Options) (*repository.Job, error) {
	ctrl, err := core.NewBuilder().
		WithInput(in).
		WithSink(sink).
		WithRegistry(s.registry).
		WithOptions(opts).
		WithLogger(s.logger).
		Build(ctx)
	if err != nil {
		return nil, err
	}

	job := &repository.Job{
		ID:         repository.NewJobID(),
		InputPath:  inputPath,
		OutputPath: outputPath,
		Status:     repository.JobStatusPending,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("service: persisting job: %w", err)
	}

	s.mu.Lock()
	s.controllers[job.ID] = ctrl
	s.mu.Unlock()

	ctrl.OnProgress(func(frac float64) {
		s.updateProgress(job.ID, frac)
	})

	go s.run(job.ID, ctrl)

	return job, nil
}

func (s *JobService) run(jobID string, ctrl *core.Controller) {
	ctx := context.Background()

	now := time.Now()
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil || job == nil {
		s.logger.Error("job disappeared before start", "job_id", jobID)
		return
	}
	job.Status = repository.JobStatusRunning
	job.StartedAt = &now
	if err := s.repo.Update(ctx, job); err != nil {
		s.logger.Error("updating job to running", "job_id", jobID, "error", err)
	}

	runErr := ctrl.Execute(ctx)

	finished := time.Now()
	job.FinishedAt = &finished
	switch {
	case runErr == nil:
		job.Status = repository.JobStatusCompleted
		job.Progress = 1
	case core.KindOf(runErr) == core.KindCancelled:
		job.Status = repository.JobStatusCancelled
		job.ErrorKind = string(core.KindCancelled)
	default:
		job.Status = repository.JobStatusFailed
		job.ErrorKind = string(core.KindOf(runErr))
		job.ErrorDetail = runErr.Error()
	}
	if err := s.repo.Update(ctx, job); err != nil {
		s.logger.Error("updating job to terminal state", "job_id", jobID, "error", err)
	}

	s.mu.Lock()
	delete(s.controllers, jobID)
	s.mu.Unlock()
}

func (s *JobService) updateProgress(jobID string, frac float64) {
	ctx := context.Background()
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil || job == nil {
		return
	}
	job.Progress = frac
	if err := s.repo.Update(ctx, job); err != nil {
		s.logger.Warn("updating job progress", "job_id", jobID, "error", err)
	}
}

// GetByID returns one job record, or nil if it doesn't exist.
func (s *JobService) GetByID(ctx context.Context, id string) (*repository.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// GetAll returns every job record, newest first.
func (s *JobService) GetAll(ctx context.Context) ([]*repository.Job, error) {
	return s.repo.GetAll(ctx)
}

// Cancel requests cancellation of a running job's controller. Returns an
// error if the job isn't currently running.
func (s *JobService) Cancel(jobID string) error {
	s.mu.Lock()
	ctrl, ok := s.controllers[jobID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("service: job %s is not running", jobID)
	}
	ctrl.Cancel()
	return nil
}
