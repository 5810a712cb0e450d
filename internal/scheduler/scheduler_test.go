package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mediabunnygo/mediabunny/internal/repository"
)

func newTestJobRepo(t *testing.T) repository.JobRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&repository.Job{}))
	return repository.NewJobRepository(db)
}

func TestRetentionSchedulerStartRejectsBadCron(t *testing.T) {
	s := NewRetentionScheduler(newTestJobRepo(t), RetentionConfig{CronSchedule: "not a cron", MaxAge: time.Hour})
	require.Error(t, s.Start(context.Background()))
}

func TestRetentionSchedulerDisabledIsNoop(t *testing.T) {
	s := NewRetentionScheduler(newTestJobRepo(t), RetentionConfig{})
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}

func TestRetentionSchedulerSweepNowDeletesOldFinishedJobs(t *testing.T) {
	repo := newTestJobRepo(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	require.NoError(t, repo.Create(ctx, &repository.Job{
		ID: repository.NewJobID(), Status: repository.JobStatusCompleted,
		CreatedAt: old, FinishedAt: &old,
	}))
	require.NoError(t, repo.Create(ctx, &repository.Job{
		ID: repository.NewJobID(), Status: repository.JobStatusCompleted,
		CreatedAt: recent, FinishedAt: &recent,
	}))

	s := NewRetentionScheduler(repo, RetentionConfig{MaxAge: 24 * time.Hour})
	n, err := s.SweepNow(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestRetentionSchedulerStartAndStop(t *testing.T) {
	s := NewRetentionScheduler(newTestJobRepo(t), RetentionConfig{CronSchedule: "0 0 3 * * *", MaxAge: time.Hour})
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
