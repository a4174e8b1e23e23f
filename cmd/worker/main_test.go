package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/trading-analyzer/internal/jobs"
	"github.com/dvloznov/trading-analyzer/internal/jobs/inmemory"
)

func TestWaitForBatch(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()

	require.NoError(t, store.SaveJob(ctx, &jobs.AnalyzeExportJob{JobID: "a", BatchID: "b1", Status: jobs.JobStatusCompleted}))
	require.NoError(t, store.SaveJob(ctx, &jobs.AnalyzeExportJob{JobID: "b", BatchID: "b1", Status: jobs.JobStatusRunning}))
	require.NoError(t, store.SaveJob(ctx, &jobs.AnalyzeExportJob{JobID: "c", BatchID: "other", Status: jobs.JobStatusPending}))

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = store.SaveJob(ctx, &jobs.AnalyzeExportJob{JobID: "b", BatchID: "b1", Status: jobs.JobStatusFailed, Error: "corrupt"})
	}()

	list, err := waitForBatch(ctx, store, "b1", 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	sum := jobs.Summarize("b1", list)
	assert.True(t, sum.Done)
	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 1, sum.Failed)
}

func TestWaitForBatch_Cancelled(t *testing.T) {
	store := inmemory.NewStore()
	require.NoError(t, store.SaveJob(context.Background(), &jobs.AnalyzeExportJob{JobID: "a", BatchID: "b1", Status: jobs.JobStatusRunning}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	list, err := waitForBatch(ctx, store, "b1", 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, list, 1)
}

func TestPrintBatch(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	list := []*jobs.AnalyzeExportJob{
		{GCSURI: "gs://b/ok.csv", Status: jobs.JobStatusCompleted, Result: &jobs.JobResult{TotalPnL: 120.5, TotalTrades: 4, GlobalWinRate: 75}},
		{GCSURI: "gs://b/empty.csv", Status: jobs.JobStatusCompleted, Result: &jobs.JobResult{NoTradingData: true}},
		{GCSURI: "gs://b/bad.xlsx", Status: jobs.JobStatusFailed, Error: "corrupt workbook"},
	}

	var buf bytes.Buffer
	printBatch(&buf, list)

	assert.Equal(t, "OK    gs://b/ok.csv: pnl 120.50, 4 trades, win rate 75.0%\n"+
		"EMPTY gs://b/empty.csv: no PnL column found\n"+
		"FAIL  gs://b/bad.xlsx: corrupt workbook\n"+
		"\n3 exports, 1 failed, total pnl 120.50\n", buf.String())
}
