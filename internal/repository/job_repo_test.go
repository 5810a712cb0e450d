package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Job{}))
	return db
}

func TestJobRepoCreateAndGet(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()

	job := &Job{ID: NewJobID(), InputPath: "in.mp4", OutputPath: "out.webm", Status: JobStatusPending, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, job))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, job.InputPath, got.InputPath)
}

func TestJobRepoGetByIDMissing(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	got, err := repo.GetByID(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestJobRepoUpdate(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()

	job := &Job{ID: NewJobID(), Status: JobStatusPending, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, job))

	job.Status = JobStatusRunning
	job.Progress = 0.5
	require.NoError(t, repo.Update(ctx, job))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, JobStatusRunning, got.Status)
	require.InDelta(t, 0.5, got.Progress, 0.0001)
}

func TestJobRepoDeleteFinishedBefore(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	j1 := &Job{ID: NewJobID(), Status: JobStatusCompleted, CreatedAt: old, FinishedAt: &old}
	j2 := &Job{ID: NewJobID(), Status: JobStatusCompleted, CreatedAt: recent, FinishedAt: &recent}
	j3 := &Job{ID: NewJobID(), Status: JobStatusRunning, CreatedAt: recent}
	require.NoError(t, repo.Create(ctx, j1))
	require.NoError(t, repo.Create(ctx, j2))
	require.NoError(t, repo.Create(ctx, j3))

	n, err := repo.DeleteFinishedBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
