package jobs

import (
	"context"
	"errors"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeAnalyzeExport represents the analysis of one stored export.
	JobTypeAnalyzeExport JobType = "analyze_export"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// Finished reports whether no further processing will happen for the job.
func (s JobStatus) Finished() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobResult is the headline of a finished analysis.
type JobResult struct {
	AnalysisID    string   `json:"analysis_id"`
	FileName      string   `json:"file_name"`
	TotalPnL      float64  `json:"total_pnl"`
	TotalTrades   int      `json:"total_trades"`
	GlobalWinRate float64  `json:"global_win_rate"`
	BestAccount   string   `json:"best_account,omitempty"`
	WorstAccount  string   `json:"worst_account,omitempty"`
	NoTradingData bool     `json:"no_trading_data"`
	Alerts        []string `json:"alerts,omitempty"`
}

// AnalyzeExportJob represents a job to analyse one export stored in GCS.
type AnalyzeExportJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// BatchID groups the jobs created from one prefix listing.
	BatchID string `json:"batch_id,omitempty"`

	// GCSURI is the GCS URI of the export to analyse.
	GCSURI string `json:"gcs_uri"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`

	// Result is set once the job completed.
	Result *JobResult `json:"result,omitempty"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *AnalyzeExportJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *AnalyzeExportJob) GetType() JobType {
	return JobTypeAnalyzeExport
}

// GetStatus implements the Job interface.
func (j *AnalyzeExportJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
// This abstraction allows for different queue implementations (in-memory, Cloud Tasks, Pub/Sub).
type Publisher interface {
	// PublishAnalyzeExport publishes an export analysis job.
	PublishAnalyzeExport(ctx context.Context, job *AnalyzeExportJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
// This abstraction allows for different queue implementations (in-memory, Cloud Tasks, Pub/Sub).
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
// Errors wrapped with Permanent are not retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *AnalyzeExportJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*AnalyzeExportJob, error)

	// ListJobs retrieves jobs with optional filtering, oldest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*AnalyzeExportJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error

	// SummarizeBatch counts the jobs of a batch by status.
	SummarizeBatch(ctx context.Context, batchID string) (BatchSummary, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// BatchID filters jobs by batch.
	BatchID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}

// ErrJobNotFound is returned by stores for unknown job IDs.
var ErrJobNotFound = errors.New("job not found")

// PermanentError marks a failure that retrying cannot fix, such as an
// unreadable export.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that queues do not retry it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// BatchSummary counts the jobs of one batch by status.
type BatchSummary struct {
	BatchID   string  `json:"batch_id"`
	Total     int     `json:"total"`
	Pending   int     `json:"pending"`
	Running   int     `json:"running"`
	Retrying  int     `json:"retrying"`
	Completed int     `json:"completed"`
	Failed    int     `json:"failed"`
	TotalPnL  float64 `json:"total_pnl"`
	Done      bool    `json:"done"`
}

// Summarize builds the summary of batchID from its jobs. TotalPnL adds up
// the completed jobs only.
func Summarize(batchID string, list []*AnalyzeExportJob) BatchSummary {
	sum := BatchSummary{BatchID: batchID, Total: len(list)}
	for _, j := range list {
		switch j.Status {
		case JobStatusPending:
			sum.Pending++
		case JobStatusRunning:
			sum.Running++
		case JobStatusRetrying:
			sum.Retrying++
		case JobStatusCompleted:
			sum.Completed++
			if j.Result != nil {
				sum.TotalPnL += j.Result.TotalPnL
			}
		case JobStatusFailed:
			sum.Failed++
		}
	}
	sum.Done = sum.Total > 0 && sum.Completed+sum.Failed == sum.Total
	return sum
}
