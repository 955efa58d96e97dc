package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Nexora-Open-Source/job-feed-sync/cache"
	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(t *testing.T, runner SingleFeedRunner, opts AsyncProcessorOptions) *AsyncProcessor {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	backend := cache.NewInMemoryCache(time.Hour)
	t.Cleanup(backend.Close)
	processor := NewAsyncProcessor(runner, cache.NewJobStatusCache(backend, logger, time.Hour), opts, logger)
	t.Cleanup(processor.Stop)
	return processor
}

func waitForStatus(t *testing.T, processor *AsyncProcessor, jobID, want string) *types.AsyncJobStatus {
	t.Helper()
	var status *types.AsyncJobStatus
	require.Eventually(t, func() bool {
		s, ok := processor.GetJobStatus(context.Background(), jobID)
		if !ok {
			return false
		}
		status = s
		return s.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return status
}

func TestAsyncProcessorCompletesJob(t *testing.T) {
	runner := &MockSyncRunner{}
	runner.On("RunSingle", mock.Anything, "feed-1", "admin").Return(&types.SingleSyncSummary{
		Success:      true,
		JobsImported: 5,
		TotalItems:   7,
	}, nil)
	processor := newTestProcessor(t, runner, AsyncProcessorOptions{QueueSize: 5})

	jobID, err := processor.SubmitJob("feed-1", "admin", "req-1")
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	status := waitForStatus(t, processor, jobID, JobCompleted)
	assert.Equal(t, "feed-1", status.FeedID)
	assert.Equal(t, 5, status.JobsImported)
	assert.Equal(t, 7, status.TotalItems)
	assert.NotNil(t, status.StartedAt)
	assert.NotNil(t, status.CompletedAt)
	assert.Empty(t, status.Error)
}

func TestAsyncProcessorRecordsFailure(t *testing.T) {
	runner := &MockSyncRunner{}
	runner.On("RunSingle", mock.Anything, "feed-9", "admin").Return(nil, errors.New("HTTP 404: Not Found"))
	processor := newTestProcessor(t, runner, AsyncProcessorOptions{QueueSize: 5})

	jobID, err := processor.SubmitJob("feed-9", "admin", "req-2")
	require.NoError(t, err)

	status := waitForStatus(t, processor, jobID, JobFailed)
	assert.Equal(t, "HTTP 404: Not Found", status.Error)
	assert.Zero(t, status.JobsImported)
}

// blockingRunner holds the worker until release is closed.
type blockingRunner struct {
	started chan string
	release chan struct{}
}

func (b *blockingRunner) RunSingle(ctx context.Context, feedID, triggeredBy string) (*types.SingleSyncSummary, error) {
	b.started <- feedID
	<-b.release
	return &types.SingleSyncSummary{Success: true}, nil
}

func TestAsyncProcessorRunsSequentially(t *testing.T) {
	runner := &blockingRunner{started: make(chan string, 2), release: make(chan struct{})}
	processor := newTestProcessor(t, runner, AsyncProcessorOptions{QueueSize: 5})

	first, err := processor.SubmitJob("a", "admin", "r1")
	require.NoError(t, err)
	second, err := processor.SubmitJob("b", "admin", "r2")
	require.NoError(t, err)

	assert.Equal(t, "a", <-runner.started)
	status, ok := processor.GetJobStatus(context.Background(), second)
	require.True(t, ok)
	assert.Equal(t, JobPending, status.Status)

	select {
	case id := <-runner.started:
		t.Fatalf("second job %s started while the first was running", id)
	case <-time.After(20 * time.Millisecond):
	}

	close(runner.release)
	assert.Equal(t, "b", <-runner.started)
	waitForStatus(t, processor, first, JobCompleted)
	waitForStatus(t, processor, second, JobCompleted)
}

func TestAsyncProcessorBackpressure(t *testing.T) {
	runner := &blockingRunner{started: make(chan string, 10), release: make(chan struct{})}
	processor := newTestProcessor(t, runner, AsyncProcessorOptions{
		QueueSize:           2,
		BackpressureEnabled: true,
		RejectThreshold:     1.0,
		WaitTimeout:         10 * time.Millisecond,
	})
	t.Cleanup(func() { close(runner.release) })

	_, err := processor.SubmitJob("busy", "admin", "r0")
	require.NoError(t, err)
	<-runner.started

	// The worker is blocked, so two more jobs fill the queue.
	_, err = processor.SubmitJob("q1", "admin", "r1")
	require.NoError(t, err)
	_, err = processor.SubmitJob("q2", "admin", "r2")
	require.NoError(t, err)

	_, err = processor.SubmitJob("q3", "admin", "r3")
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestAsyncProcessorQueueTimeout(t *testing.T) {
	runner := &blockingRunner{started: make(chan string, 10), release: make(chan struct{})}
	processor := newTestProcessor(t, runner, AsyncProcessorOptions{
		QueueSize:   1,
		WaitTimeout: 10 * time.Millisecond,
	})
	t.Cleanup(func() { close(runner.release) })

	_, err := processor.SubmitJob("busy", "admin", "r0")
	require.NoError(t, err)
	<-runner.started
	_, err = processor.SubmitJob("q1", "admin", "r1")
	require.NoError(t, err)

	jobID, err := processor.SubmitJob("q2", "admin", "r2")
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Empty(t, jobID)
}

func TestAsyncProcessorGetJobStatusNotFound(t *testing.T) {
	processor := newTestProcessor(t, &MockSyncRunner{}, AsyncProcessorOptions{})

	status, exists := processor.GetJobStatus(context.Background(), "non-existent-job")
	assert.False(t, exists)
	assert.Nil(t, status)
}

func TestAsyncProcessorStop(t *testing.T) {
	runner := &MockSyncRunner{}
	runner.On("RunSingle", mock.Anything, mock.Anything, mock.Anything).Return(&types.SingleSyncSummary{Success: true}, nil)
	processor := newTestProcessor(t, runner, AsyncProcessorOptions{QueueSize: 5})

	jobID, err := processor.SubmitJob("feed-1", "admin", "req-1")
	require.NoError(t, err)
	waitForStatus(t, processor, jobID, JobCompleted)

	assert.NotPanics(t, func() {
		processor.Stop()
		processor.Stop()
	})

	status, exists := processor.GetJobStatus(context.Background(), jobID)
	assert.True(t, exists)
	assert.NotNil(t, status)
}

func TestAsyncProcessorRejectsJobsAfterStop(t *testing.T) {
	runner := &MockSyncRunner{}
	processor := newTestProcessor(t, runner, AsyncProcessorOptions{QueueSize: 5})
	processor.Stop()

	jobID, err := processor.SubmitJob("feed-1", "admin", "req-1")
	assert.Empty(t, jobID)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Empty(t, processor.jobs)
	runner.AssertNotCalled(t, "RunSingle", mock.Anything, mock.Anything, mock.Anything)
}

// flakyCache fails every write after the first
type flakyCache struct {
	*cache.InMemoryCache
	mu     sync.Mutex
	writes int
}

func (c *flakyCache) Set(ctx context.Context, key string, status *types.AsyncJobStatus, ttl time.Duration) error {
	c.mu.Lock()
	c.writes++
	writes := c.writes
	c.mu.Unlock()
	if writes > 1 {
		return errors.New("redis: connection refused")
	}
	return c.InMemoryCache.Set(ctx, key, status, ttl)
}

func TestAsyncProcessorLogsStatusWriteFailures(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	runner := &MockSyncRunner{}
	runner.On("RunSingle", mock.Anything, "feed-1", "admin").Return(&types.SingleSyncSummary{Success: true}, nil)

	backend := &flakyCache{InMemoryCache: cache.NewInMemoryCache(time.Hour)}
	t.Cleanup(backend.Close)
	processor := NewAsyncProcessor(runner, cache.NewJobStatusCache(backend, logger, time.Hour), AsyncProcessorOptions{QueueSize: 5}, logger)
	t.Cleanup(processor.Stop)

	jobID, err := processor.SubmitJob("feed-1", "admin", "req-1")
	require.NoError(t, err)

	failedWrites := func() []*logrus.Entry {
		var entries []*logrus.Entry
		for _, entry := range hook.AllEntries() {
			if entry.Message == "Failed to record async job status" {
				entries = append(entries, entry)
			}
		}
		return entries
	}
	require.Eventually(t, func() bool { return len(failedWrites()) == 2 }, 2*time.Second, 5*time.Millisecond)

	entry := failedWrites()[1]
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, jobID, entry.Data["job_id"])
	assert.Equal(t, JobCompleted, entry.Data["status"])
	assert.Equal(t, "req-1", entry.Data["request_id"])
	assert.EqualError(t, entry.Data[logrus.ErrorKey].(error), "redis: connection refused")
}

func BenchmarkAsyncProcessorSubmitJob(b *testing.B) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	runner := &MockSyncRunner{}
	runner.On("RunSingle", mock.Anything, mock.Anything, mock.Anything).Return(&types.SingleSyncSummary{Success: true}, nil)
	backend := cache.NewInMemoryCache(time.Hour)
	defer backend.Close()
	processor := NewAsyncProcessor(runner, cache.NewJobStatusCache(backend, logger, time.Hour),
		AsyncProcessorOptions{QueueSize: b.N + 1}, logger)
	defer processor.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		processor.SubmitJob("feed", "admin", "req")
	}
}
