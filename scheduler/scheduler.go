// Package scheduler fires bulk feed syncs on a cron schedule inside the server process.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// TriggeredBy is the audit log trigger name for scheduled runs
const TriggeredBy = "scheduler"

// BulkRunner runs a bulk sync
type BulkRunner interface {
	RunBulk(ctx context.Context, frequency types.SyncFrequency, triggeredBy string) (*types.BulkSyncSummary, error)
}

// Scheduler wraps robfig/cron. Overlapping ticks are skipped so runs stay sequential.
type Scheduler struct {
	cron      *cron.Cron
	runner    BulkRunner
	logger    *logrus.Logger
	spec      string
	frequency types.SyncFrequency
	timeout   time.Duration
}

// New creates a Scheduler firing on spec (standard 5-field cron or @every/@daily descriptors).
// frequency limits each run to feeds with that frequency; empty runs every active feed.
func New(runner BulkRunner, logger *logrus.Logger, spec string, frequency types.SyncFrequency, timeout time.Duration) *Scheduler {
	cronLogger := cron.PrintfLogger(logger)
	return &Scheduler{
		cron:      cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.SkipIfStillRunning(cronLogger))),
		runner:    runner,
		logger:    logger,
		spec:      spec,
		frequency: frequency,
		timeout:   timeout,
	}
}

// Start registers the job and starts the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("cron.AddFunc(%q): %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"schedule":  s.spec,
		"frequency": s.frequency,
	}).Info("Feed sync scheduler started")
	return nil
}

// Stop stops scheduling and waits for a running sync to finish or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Feed sync scheduler stopped before the running sync finished")
		return
	}
	s.logger.Info("Feed sync scheduler stopped")
}

// RunNow triggers an immediate run in the background
func (s *Scheduler) RunNow() {
	s.logger.Info("Triggering immediate feed sync")
	go s.run()
}

func (s *Scheduler) run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	summary, err := s.runner.RunBulk(ctx, s.frequency, TriggeredBy)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled feed sync failed")
		return
	}

	failed := 0
	for _, result := range summary.Results {
		if result.Error != "" {
			failed++
		}
	}
	s.logger.WithFields(logrus.Fields{
		"feeds_processed": summary.FeedsProcessed,
		"feeds_failed":    failed,
		"duration_ms":     summary.DurationMs,
	}).Info("Scheduled feed sync completed")
}
