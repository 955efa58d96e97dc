package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Nexora-Open-Source/job-feed-sync/cache"
	"github.com/Nexora-Open-Source/job-feed-sync/monitoring"
	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/Nexora-Open-Source/job-feed-sync/utils"
	"github.com/sirupsen/logrus"
)

// Async job states
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// ErrQueueFull is returned when a job cannot be queued
var ErrQueueFull = errors.New("async sync queue is full")

// SingleFeedRunner runs one feed's sync
type SingleFeedRunner interface {
	RunSingle(ctx context.Context, feedID, triggeredBy string) (*types.SingleSyncSummary, error)
}

// AsyncJob represents a queued single-feed sync
type AsyncJob struct {
	ID          string
	FeedID      string
	TriggeredBy string
	RequestID   string
	CreatedAt   time.Time
}

// AsyncProcessorOptions configures the async processor
type AsyncProcessorOptions struct {
	QueueSize           int
	BackpressureEnabled bool
	RejectThreshold     float64
	WaitTimeout         time.Duration
	// RunTimeout bounds one queued sync. Zero means no bound.
	RunTimeout time.Duration
}

// AsyncProcessor runs admin-triggered single-feed syncs in the background.
// A single worker drains the queue so queued syncs never overlap each other.
type AsyncProcessor struct {
	jobs     chan AsyncJob
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	runner   SingleFeedRunner
	statuses *cache.JobStatusCache
	logger   *logrus.Logger
	opts     AsyncProcessorOptions
}

// NewAsyncProcessor creates a processor and starts its worker
func NewAsyncProcessor(runner SingleFeedRunner, statuses *cache.JobStatusCache, opts AsyncProcessorOptions, logger *logrus.Logger) *AsyncProcessor {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 50
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 5 * time.Second
	}

	processor := &AsyncProcessor{
		jobs:     make(chan AsyncJob, opts.QueueSize),
		quit:     make(chan struct{}),
		runner:   runner,
		statuses: statuses,
		logger:   logger,
		opts:     opts,
	}

	monitoring.UpdateActiveWorkers(1)

	processor.wg.Add(1)
	go processor.worker()

	logger.WithFields(logrus.Fields{
		"queue_size":           opts.QueueSize,
		"backpressure_enabled": opts.BackpressureEnabled,
		"reject_threshold":     opts.RejectThreshold,
		"wait_timeout":         opts.WaitTimeout.String(),
	}).Info("Async sync processor started")

	return processor
}

// SubmitJob queues a sync of feedID and returns the job ID
func (ap *AsyncProcessor) SubmitJob(feedID, triggeredBy, requestID string) (string, error) {
	ctx := context.Background()
	select {
	case <-ap.quit:
		ap.logger.WithField("feed_id", feedID).Warn("Rejecting sync job, processor is stopped")
		return "", fmt.Errorf("%w: processor stopped", ErrQueueFull)
	default:
	}

	jobID := fmt.Sprintf("job_%d_%s", time.Now().UnixNano(), utils.RandomString(8))

	if ap.opts.BackpressureEnabled && ap.opts.RejectThreshold > 0 {
		currentLoad := float64(len(ap.jobs)) / float64(cap(ap.jobs))
		if currentLoad >= ap.opts.RejectThreshold {
			ap.logger.WithFields(logrus.Fields{
				"feed_id":          feedID,
				"current_load":     fmt.Sprintf("%.2f", currentLoad),
				"reject_threshold": fmt.Sprintf("%.2f", ap.opts.RejectThreshold),
				"queue_size":       len(ap.jobs),
			}).Warn("Rejecting sync job due to backpressure")
			return "", fmt.Errorf("%w (load: %.2f%%)", ErrQueueFull, currentLoad*100)
		}
	}

	job := AsyncJob{
		ID:          jobID,
		FeedID:      feedID,
		TriggeredBy: triggeredBy,
		RequestID:   requestID,
		CreatedAt:   time.Now(),
	}

	// The pending status is written before the job becomes visible to the
	// worker so the worker's update always lands last.
	if err := ap.statuses.SetJobStatus(ctx, &types.AsyncJobStatus{
		JobID:       jobID,
		FeedID:      feedID,
		TriggeredBy: triggeredBy,
		Status:      JobPending,
		CreatedAt:   job.CreatedAt,
	}); err != nil {
		return "", fmt.Errorf("record job status: %w", err)
	}

	select {
	case ap.jobs <- job:
		monitoring.UpdateAsyncQueueSize(len(ap.jobs), cap(ap.jobs))
		ap.logger.WithFields(logrus.Fields{
			"job_id":     jobID,
			"feed_id":    feedID,
			"request_id": requestID,
		}).Info("Sync job submitted for async processing")
		return jobID, nil
	case <-ap.quit:
		_ = ap.statuses.InvalidateJob(ctx, jobID)
		return "", fmt.Errorf("%w: processor stopped", ErrQueueFull)
	case <-time.After(ap.opts.WaitTimeout):
		_ = ap.statuses.InvalidateJob(ctx, jobID)
		ap.logger.WithFields(logrus.Fields{
			"feed_id":      feedID,
			"wait_timeout": ap.opts.WaitTimeout.String(),
		}).Warn("Sync job submission timed out")
		return "", fmt.Errorf("%w: timed out after %v", ErrQueueFull, ap.opts.WaitTimeout)
	}
}

// GetJobStatus retrieves the status of a job
func (ap *AsyncProcessor) GetJobStatus(ctx context.Context, jobID string) (*types.AsyncJobStatus, bool) {
	return ap.statuses.GetJobStatus(ctx, jobID)
}

func (ap *AsyncProcessor) worker() {
	defer ap.wg.Done()

	for {
		select {
		case job := <-ap.jobs:
			monitoring.UpdateAsyncQueueSize(len(ap.jobs), cap(ap.jobs))
			ap.processJob(job)
		case <-ap.quit:
			ap.logger.Info("Async sync worker stopping")
			return
		}
	}
}

func (ap *AsyncProcessor) processJob(job AsyncJob) {
	ctx := context.Background()
	start := time.Now()

	status := &types.AsyncJobStatus{
		JobID:       job.ID,
		FeedID:      job.FeedID,
		TriggeredBy: job.TriggeredBy,
		Status:      JobProcessing,
		CreatedAt:   job.CreatedAt,
		StartedAt:   &start,
	}
	ap.saveStatus(ctx, status, job.RequestID)

	runCtx := ctx
	if ap.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, ap.opts.RunTimeout)
		defer cancel()
	}

	summary, err := ap.runner.RunSingle(runCtx, job.FeedID, job.TriggeredBy)

	completed := time.Now()
	status.CompletedAt = &completed
	status.DurationMs = completed.Sub(start).Milliseconds()

	fields := logrus.Fields{
		"job_id":      job.ID,
		"feed_id":     job.FeedID,
		"request_id":  job.RequestID,
		"duration_ms": status.DurationMs,
	}

	if err != nil {
		status.Status = JobFailed
		status.Error = err.Error()
		monitoring.RecordAsyncJob(JobFailed, completed.Sub(start).Seconds())
		ap.logger.WithFields(fields).WithError(err).Warn("Async sync job failed")
	} else {
		status.Status = JobCompleted
		status.JobsImported = summary.JobsImported
		status.TotalItems = summary.TotalItems
		monitoring.RecordAsyncJob(JobCompleted, completed.Sub(start).Seconds())
		fields["jobs_imported"] = summary.JobsImported
		ap.logger.WithFields(fields).Info("Async sync job completed")
	}

	ap.saveStatus(ctx, status, job.RequestID)
}

func (ap *AsyncProcessor) saveStatus(ctx context.Context, status *types.AsyncJobStatus, requestID string) {
	if err := ap.statuses.SetJobStatus(ctx, status); err != nil {
		ap.logger.WithError(err).WithFields(logrus.Fields{
			"job_id":     status.JobID,
			"feed_id":    status.FeedID,
			"request_id": requestID,
			"status":     status.Status,
		}).Error("Failed to record async job status")
	}
}

// Stop shuts down the worker after the job in progress, if any, finishes.
// Jobs still queued keep their pending status until it expires; later submissions are rejected.
func (ap *AsyncProcessor) Stop() {
	ap.stopOnce.Do(func() {
		ap.logger.Info("Stopping async sync processor")
		close(ap.quit)
		ap.wg.Wait()
		monitoring.UpdateActiveWorkers(0)
		ap.logger.Info("Async sync processor stopped")
	})
}
