// Package repository provides GORM-backed persistence for conversion jobs.
package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/oklog/ulid/v2"
)

// JobStatus is the lifecycle state of a conversion job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job is a persisted record of one conversion run.
type Job struct {
	ID          string    `gorm:"primarykey;size:26"`
	InputPath   string    `gorm:"not null"`
	OutputPath  string    `gorm:"not null"`
	Status      JobStatus `gorm:"index;not null"`
	Progress    float64   `gorm:"not null;default:0"`
	ErrorKind   string
	ErrorDetail string
	CreatedAt   time.Time `gorm:"index"`
	StartedAt   *time.Time
	FinishedAt  *time.Time
}

// TableName fixes the table name regardless of Go naming convention changes.
func (Job) TableName() string {
	return "conversion_jobs"
}

// NewJobID generates a new lexicographically sortable job identifier.
func NewJobID() string {
	return ulid.Make().String()
}

// JobRepository persists and queries Job records.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, id string) (*Job, error)
	GetAll(ctx context.Context) ([]*Job, error)
	Update(ctx context.Context, job *Job) error
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type jobRepo struct {
	db *gorm.DB
}

// NewJobRepository creates a GORM-backed JobRepository.
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepo{db: db}
}

func (r *jobRepo) Create(ctx context.Context, job *Job) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("creating job: %w", err)
	}
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*Job, error) {
	var job Job
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting job by ID: %w", err)
	}
	return &job, nil
}

func (r *jobRepo) GetAll(ctx context.Context) ([]*Job, error) {
	var jobs []*Job
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("getting all jobs: %w", err)
	}
	return jobs, nil
}

func (r *jobRepo) Update(ctx context.Context, job *Job) error {
	if err := r.db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("updating job %s: %w", job.ID, err)
	}
	return nil
}

// DeleteFinishedBefore removes completed/failed/cancelled jobs whose
// FinishedAt predates cutoff, returning the number of rows removed.
func (r *jobRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status IN ?", []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCancelled}).
		Where("finished_at IS NOT NULL AND finished_at < ?", cutoff).
		Delete(&Job{})
	if res.Error != nil {
		return 0, fmt.Errorf("deleting finished jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
