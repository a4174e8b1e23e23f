package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/dvloznov/trading-analyzer/internal/jobs"
)

// Store keeps analysis jobs in a map guarded by a RWMutex. Jobs are
// deep-copied on the way in and out, so callers never share state with the
// queue's workers.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.AnalyzeExportJob
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*jobs.AnalyzeExportJob),
	}
}

func clone(job *jobs.AnalyzeExportJob) *jobs.AnalyzeExportJob {
	c := *job
	if job.StartedAt != nil {
		t := *job.StartedAt
		c.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	if job.Result != nil {
		r := *job.Result
		r.Alerts = slices.Clone(job.Result.Alerts)
		c.Result = &r
	}
	return &c
}

// SaveJob inserts or replaces a job.
func (s *Store) SaveJob(ctx context.Context, job *jobs.AnalyzeExportJob) error {
	if job.JobID == "" {
		return fmt.Errorf("SaveJob: job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.JobID] = clone(job)
	return nil
}

// GetJob returns a copy of the job with jobID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.AnalyzeExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("GetJob: %s: %w", jobID, jobs.ErrJobNotFound)
	}
	return clone(job), nil
}

// ListJobs returns copies of the matching jobs, oldest first, with ties
// broken by ID.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.AnalyzeExportJob, error) {
	s.mu.RLock()
	result := make([]*jobs.AnalyzeExportJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.BatchID != "" && job.BatchID != filter.BatchID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		result = append(result, clone(job))
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].JobID < result[j].JobID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.AnalyzeExportJob{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// UpdateJobStatus sets the status of a job, and its error when errorMsg is
// not empty.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("UpdateJobStatus: %s: %w", jobID, jobs.ErrJobNotFound)
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}

// SummarizeBatch counts the jobs of batchID by status.
func (s *Store) SummarizeBatch(ctx context.Context, batchID string) (jobs.BatchSummary, error) {
	list, err := s.ListJobs(ctx, jobs.JobFilter{BatchID: batchID})
	if err != nil {
		return jobs.BatchSummary{}, fmt.Errorf("SummarizeBatch: %w", err)
	}
	return jobs.Summarize(batchID, list), nil
}

var _ jobs.JobStore = (*Store)(nil)
