package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/trading-analyzer/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.AnalyzeExportJob {
	t.Helper()
	var job *jobs.AnalyzeExportJob
	require.Eventually(t, func() bool {
		var err error
		job, err = store.GetJob(context.Background(), jobID)
		return err == nil && job.Status == want
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestQueue_ProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 2, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		j := job.(*jobs.AnalyzeExportJob)
		j.Result = &jobs.JobResult{FileName: "futures.xlsx", TotalPnL: 40}
		return nil
	}))

	job := &jobs.AnalyzeExportJob{GCSURI: "gs://bucket/futures.xlsx", BatchID: "b1"}
	require.NoError(t, q.PublishAnalyzeExport(ctx, job))
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, 3, job.MaxRetries)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	require.NotNil(t, done.Result)
	assert.Equal(t, 40.0, done.Result.TotalPnL)
	assert.NotNil(t, done.CompletedAt)

	require.NoError(t, q.Stop(context.Background()))
}

func TestQueue_PermanentErrorIsNotRetried(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		calls.Add(1)
		return jobs.Permanent(errors.New("corrupt workbook"))
	}))

	job := &jobs.AnalyzeExportJob{GCSURI: "gs://bucket/bad.xlsx"}
	require.NoError(t, q.PublishAnalyzeExport(ctx, job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, "corrupt workbook", failed.Error)
	assert.Equal(t, 0, failed.RetryCount)
	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, q.Stop(context.Background()))
}

func fastBackoff(int) time.Duration { return 10 * time.Millisecond }

func TestQueue_TransientErrorIsRetried(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store, WithBackoff(fastBackoff))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		if calls.Add(1) == 1 {
			return errors.New("storage unavailable")
		}
		return nil
	}))

	job := &jobs.AnalyzeExportJob{GCSURI: "gs://bucket/spot.csv"}
	require.NoError(t, q.PublishAnalyzeExport(ctx, job))

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 1, done.RetryCount)
	assert.Empty(t, done.Error)

	require.NoError(t, q.Stop(context.Background()))
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(1, 1, nil)
	require.NoError(t, q.Close())

	err := q.PublishAnalyzeExport(context.Background(), &jobs.AnalyzeExportJob{GCSURI: "gs://b/a.csv"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueue_RetriesExhausted(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store, WithMaxRetries(2), WithBackoff(fastBackoff))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		calls.Add(1)
		return errors.New("storage unavailable")
	}))

	job := &jobs.AnalyzeExportJob{GCSURI: "gs://bucket/spot.csv"}
	require.NoError(t, q.PublishAnalyzeExport(ctx, job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 2, failed.RetryCount)
	assert.Equal(t, 2, failed.MaxRetries)
	assert.Equal(t, "storage unavailable", failed.Error)
	assert.Equal(t, int32(3), calls.Load())

	require.NoError(t, q.Stop(context.Background()))
}

func TestQueue_RetryAfterStopFails(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store, WithBackoff(func(int) time.Duration { return 50 * time.Millisecond }))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		return errors.New("storage unavailable")
	}))

	job := &jobs.AnalyzeExportJob{GCSURI: "gs://bucket/spot.csv"}
	require.NoError(t, q.PublishAnalyzeExport(ctx, job))

	waitForStatus(t, store, job.JobID, jobs.JobStatusRetrying)
	require.NoError(t, q.Stop(context.Background()))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Contains(t, failed.Error, "storage unavailable")
	assert.Contains(t, failed.Error, ErrQueueClosed.Error())
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{4, 8 * time.Second},
		{6, 30 * time.Second},
		{80, 30 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExponentialBackoff(tt.attempt), "attempt %d", tt.attempt)
	}
}
