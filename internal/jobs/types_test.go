package jobs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermanent(t *testing.T) {
	base := errors.New("corrupt workbook")

	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(base))
	assert.True(t, IsPermanent(Permanent(base)))
	assert.True(t, IsPermanent(fmt.Errorf("handler: %w", Permanent(base))))
	assert.ErrorIs(t, Permanent(base), base)
}

func TestJobStatus_Finished(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobStatusPending, false},
		{JobStatusRunning, false},
		{JobStatusRetrying, false},
		{JobStatusCompleted, true},
		{JobStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Finished())
		})
	}
}

func TestSummarize(t *testing.T) {
	list := []*AnalyzeExportJob{
		{Status: JobStatusCompleted, Result: &JobResult{TotalPnL: 250}},
		{Status: JobStatusCompleted},
		{Status: JobStatusFailed},
		{Status: JobStatusPending},
		{Status: JobStatusRunning},
	}

	sum := Summarize("b1", list)
	assert.Equal(t, BatchSummary{
		BatchID:   "b1",
		Total:     5,
		Pending:   1,
		Running:   1,
		Completed: 2,
		Failed:    1,
		TotalPnL:  250,
	}, sum)

	done := Summarize("b1", list[:3])
	assert.True(t, done.Done)

	assert.False(t, Summarize("empty", nil).Done)
}
