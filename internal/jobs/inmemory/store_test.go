package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/trading-analyzer/internal/jobs"
)

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, j := range []*jobs.AnalyzeExportJob{
		{JobID: "c", BatchID: "b1", Status: jobs.JobStatusCompleted},
		{JobID: "a", BatchID: "b1", Status: jobs.JobStatusFailed},
		{JobID: "b", BatchID: "b2", Status: jobs.JobStatusCompleted},
	} {
		j.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.SaveJob(ctx, j))
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all oldest first", jobs.JobFilter{}, []string{"c", "a", "b"}},
		{"by batch", jobs.JobFilter{BatchID: "b1"}, []string{"c", "a"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusCompleted}, []string{"c", "b"}},
		{"limit and offset", jobs.JobFilter{Offset: 1, Limit: 1}, []string{"a"}},
		{"offset past end", jobs.JobFilter{Offset: 5}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListJobs(ctx, tt.filter)
			require.NoError(t, err)
			ids := []string{}
			for _, j := range got {
				ids = append(ids, j.JobID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_GetJobReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.SaveJob(ctx, &jobs.AnalyzeExportJob{JobID: "x", Status: jobs.JobStatusPending}))

	got, err := store.GetJob(ctx, "x")
	require.NoError(t, err)
	got.Status = jobs.JobStatusFailed

	again, err := store.GetJob(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, again.Status)
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	assert.Error(t, store.SaveJob(ctx, &jobs.AnalyzeExportJob{}))

	_, err := store.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)

	err = store.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, "x")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestStore_ResultIsCopied(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	job := &jobs.AnalyzeExportJob{JobID: "x", Result: &jobs.JobResult{Alerts: []string{"[WARNING] a"}}}
	require.NoError(t, store.SaveJob(ctx, job))
	job.Result.Alerts[0] = "changed"

	got, err := store.GetJob(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"[WARNING] a"}, got.Result.Alerts)
}

func TestStore_SummarizeBatch(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	for _, j := range []*jobs.AnalyzeExportJob{
		{JobID: "a", BatchID: "b1", Status: jobs.JobStatusCompleted, Result: &jobs.JobResult{TotalPnL: 100}},
		{JobID: "b", BatchID: "b1", Status: jobs.JobStatusCompleted, Result: &jobs.JobResult{TotalPnL: -30}},
		{JobID: "c", BatchID: "b1", Status: jobs.JobStatusRetrying},
		{JobID: "d", BatchID: "b2", Status: jobs.JobStatusFailed},
	} {
		require.NoError(t, store.SaveJob(ctx, j))
	}

	sum, err := store.SummarizeBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, jobs.BatchSummary{BatchID: "b1", Total: 3, Retrying: 1, Completed: 2, TotalPnL: 70}, sum)

	sum, err = store.SummarizeBatch(ctx, "b2")
	require.NoError(t, err)
	assert.True(t, sum.Done)
	assert.Equal(t, 1, sum.Failed)

	sum, err = store.SummarizeBatch(ctx, "none")
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
	assert.False(t, sum.Done)
}
