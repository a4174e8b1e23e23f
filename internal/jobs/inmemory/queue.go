package inmemory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/trading-analyzer/internal/jobs"
	"github.com/dvloznov/trading-analyzer/internal/logger"
)

// ErrQueueClosed is returned when publishing to a stopped queue.
var ErrQueueClosed = errors.New("queue is closed")

const (
	defaultMaxRetries = 3
	maxBackoff        = 30 * time.Second
)

// Queue is an in-memory export analysis queue backed by a buffered channel
// and a fixed pool of workers. Jobs are lost on restart.
type Queue struct {
	jobChan   chan *jobs.AnalyzeExportJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	workers   int
	closed    bool

	maxRetries int
	backoff    func(attempt int) time.Duration
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithMaxRetries sets the retry budget given to jobs that do not carry one.
func WithMaxRetries(n int) QueueOption {
	return func(q *Queue) { q.maxRetries = n }
}

// WithBackoff sets the delay before retry number attempt (starting at 1).
func WithBackoff(f func(attempt int) time.Duration) QueueOption {
	return func(q *Queue) { q.backoff = f }
}

// ExponentialBackoff doubles from one second per attempt, capped at 30s.
func ExponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Second << (attempt - 1)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

// NewQueue creates a queue holding up to bufferSize waiting jobs, served by
// workers handlers (at least one).
func NewQueue(bufferSize, workers int, store jobs.JobStore, opts ...QueueOption) *Queue {
	q := &Queue{
		jobChan:    make(chan *jobs.AnalyzeExportJob, max(bufferSize, 1)),
		closeChan:  make(chan struct{}),
		store:      store,
		workers:    max(workers, 1),
		maxRetries: defaultMaxRetries,
		backoff:    ExponentialBackoff,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// PublishAnalyzeExport fills in the job's ID, status, creation time and retry
// budget when unset, saves it and enqueues it. It blocks while the buffer is
// full.
func (q *Queue) PublishAnalyzeExport(ctx context.Context, job *jobs.AnalyzeExportJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.maxRetries
	}

	if err := q.save(ctx, job); err != nil {
		return err
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return ErrQueueClosed
	}
}

// Start launches the workers. They run until ctx is done or Stop is called.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob runs handler once and records the outcome. Transient failures
// are re-enqueued after a backoff until the job's retry budget is spent.
func (q *Queue) processJob(ctx context.Context, job *jobs.AnalyzeExportJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx).With().
		Str("job_id", job.JobID).
		Str("batch_id", job.BatchID).
		Logger()

	now := time.Now()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &now
	job.CompletedAt = nil
	_ = q.save(ctx, job)

	err := handler(logger.WithContext(ctx, log), job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	case jobs.IsPermanent(err) || job.RetryCount >= job.MaxRetries:
		job.Status = jobs.JobStatusFailed
		job.Error = err.Error()
		log.Error().Err(err).Int("retries", job.RetryCount).Msg("Job failed")
	default:
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		job.Error = err.Error()
		delay := q.backoff(job.RetryCount)
		log.Warn().Err(err).Int("attempt", job.RetryCount).Dur("backoff", delay).Msg("Job failed, retrying")
		_ = q.save(ctx, job)
		time.AfterFunc(delay, func() { q.retry(ctx, job) })
		return
	}

	_ = q.save(ctx, job)
}

// retry re-enqueues job. A job that cannot be re-enqueued because the
// queue stopped is recorded as failed.
func (q *Queue) retry(ctx context.Context, job *jobs.AnalyzeExportJob) {
	job.Status = jobs.JobStatusPending
	job.StartedAt = nil
	job.CompletedAt = nil

	if err := q.PublishAnalyzeExport(ctx, job); err != nil {
		completedAt := time.Now()
		job.Status = jobs.JobStatusFailed
		job.CompletedAt = &completedAt
		job.Error = errors.Join(errors.New(job.Error), err).Error()
		_ = q.save(context.WithoutCancel(ctx), job)
	}
}

func (q *Queue) save(ctx context.Context, job *jobs.AnalyzeExportJob) error {
	if q.store == nil {
		return nil
	}
	return q.store.SaveJob(ctx, job)
}

// Stop closes the queue to new jobs and waits for in-flight jobs, or for
// ctx to end.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue without a deadline.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var (
	_ jobs.Publisher = (*Queue)(nil)
	_ jobs.Consumer  = (*Queue)(nil)
)
