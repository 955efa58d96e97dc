package feedsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nexora-Open-Source/job-feed-sync/lock"
	"github.com/Nexora-Open-Source/job-feed-sync/monitoring"
	"github.com/Nexora-Open-Source/job-feed-sync/parsers"
	"github.com/Nexora-Open-Source/job-feed-sync/store"
	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/Nexora-Open-Source/job-feed-sync/utils"
	"github.com/sirupsen/logrus"
)

// Orchestrator drives bulk and single-feed sync runs
type Orchestrator struct {
	Feeds      store.FeedStore
	Audit      store.AuditLog
	Fetcher    Fetcher
	Normalizer *Normalizer
	Locker     lock.Locker
	Alerts     *monitoring.AlertManager
	Logger     *logrus.Logger
	// ParserFor selects the parser for a feed type
	ParserFor func(types.FeedType) parsers.Parser
	// RunBudget bounds a bulk run. It is checked between feeds only: a started feed always
	// finishes, and feeds not started in time are reported, not synced. Zero means unbounded.
	RunBudget time.Duration
	Now       func() time.Time
}

// NewOrchestrator creates an Orchestrator with an unlocked, unbudgeted default setup
func NewOrchestrator(feeds store.FeedStore, jobs store.JobStore, audit store.AuditLog, fetch Fetcher, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		Feeds:      feeds,
		Audit:      audit,
		Fetcher:    fetch,
		Normalizer: NewNormalizer(jobs, time.Now),
		Locker:     lock.Noop{},
		Logger:     logger,
		ParserFor:  parsers.For,
		Now:        time.Now,
	}
}

// RunBulk syncs every active feed, or only those with the given frequency when one is
// requested. Per-feed failures are reported in the summary; an error is returned only when
// the feed list cannot be loaded.
func (o *Orchestrator) RunBulk(ctx context.Context, frequency types.SyncFrequency, triggeredBy string) (*types.BulkSyncSummary, error) {
	start := o.Now()
	runID := utils.GenerateRunID()
	logFrequency := frequency
	if logFrequency == "" {
		logFrequency = types.FrequencyDaily
	}

	ctx, span := monitoring.CreateSpan(ctx, "feedsync.RunBulk")
	defer span.End()
	monitoring.SetSpanAttributes(span, map[string]interface{}{
		"run_id":       runID,
		"frequency":    logFrequency,
		"triggered_by": triggeredBy,
	})

	logger := o.Logger.WithFields(logrus.Fields{
		"run_id":       runID,
		"frequency":    logFrequency,
		"triggered_by": triggeredBy,
	})
	logger.Info("Starting bulk feed sync")

	feeds, err := o.Feeds.ListFeeds(ctx, true)
	if err != nil {
		err = fmt.Errorf("load active feeds: %w", err)
		monitoring.SetSpanError(span, err)
		o.appendLog(ctx, &types.SyncLogEntry{
			Type:        types.SyncLogEntryType,
			RunID:       runID,
			Frequency:   string(logFrequency),
			Error:       err.Error(),
			DurationMs:  o.since(start),
			TriggeredBy: triggeredBy,
			Timestamp:   o.Now().UTC(),
		})
		monitoring.RecordSyncRun(ModeBulk, "error", time.Since(start).Seconds())
		logger.WithError(err).Error("Bulk feed sync failed")
		return nil, err
	}
	if frequency != "" {
		feeds = filterByFrequency(feeds, frequency)
	}

	runCtx := ctx
	if o.RunBudget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.RunBudget)
		defer cancel()
	}

	results := make([]types.SyncRunResult, 0, len(feeds))
	jobsImported := 0
	for _, feed := range feeds {
		var (
			result types.SyncRunResult
			err    error
		)
		if runCtx.Err() != nil {
			result = types.SyncRunResult{FeedID: feed.ID, FeedName: feed.FeedName}
			err = ErrRunBudgetExceeded
			if ctx.Err() != nil {
				err = fmt.Errorf("%w: %v", ErrRunCancelled, ctx.Err())
			}
		} else {
			result, err = o.processFeed(runCtx, feed, runID)
		}
		if err != nil {
			result.Error = err.Error()
		}
		jobsImported += result.JobsImported
		results = append(results, result)
	}

	durationMs := o.since(start)
	o.appendLog(ctx, &types.SyncLogEntry{
		Type:         types.SyncLogEntryType,
		RunID:        runID,
		FeedCount:    len(results),
		Frequency:    string(logFrequency),
		Results:      results,
		JobsImported: jobsImported,
		DurationMs:   durationMs,
		TriggeredBy:  triggeredBy,
		Timestamp:    o.Now().UTC(),
	})

	monitoring.RecordSyncRun(ModeBulk, "success", time.Since(start).Seconds())
	logger.WithFields(logrus.Fields{
		"feeds_processed": len(results),
		"jobs_imported":   jobsImported,
		"duration_ms":     durationMs,
	}).Info("Bulk feed sync completed")

	return &types.BulkSyncSummary{
		Success:        true,
		FeedsProcessed: len(results),
		Results:        results,
		DurationMs:     durationMs,
	}, nil
}

// RunSingle syncs one feed. store.ErrFeedNotFound is returned for unknown ids; any other
// failure is returned after the attempt has been recorded on the feed and in the audit log.
func (o *Orchestrator) RunSingle(ctx context.Context, feedID, triggeredBy string) (*types.SingleSyncSummary, error) {
	start := o.Now()
	runID := utils.GenerateRunID()

	ctx, span := monitoring.CreateSpan(ctx, "feedsync.RunSingle")
	defer span.End()
	monitoring.SetSpanAttributes(span, map[string]interface{}{
		"run_id":       runID,
		"feed_id":      feedID,
		"triggered_by": triggeredBy,
	})

	logger := o.Logger.WithFields(logrus.Fields{
		"run_id":       runID,
		"feed_id":      feedID,
		"triggered_by": triggeredBy,
	})

	feed, err := o.Feeds.GetFeed(ctx, feedID)
	if err != nil {
		monitoring.SetSpanError(span, err)
		if !errors.Is(err, store.ErrFeedNotFound) {
			o.recordSingleFailure(ctx, runID, feedID, triggeredBy, start, err)
		}
		return nil, err
	}

	result, err := o.processFeed(ctx, feed, runID)
	if err != nil {
		monitoring.SetSpanError(span, err)
		if errors.Is(err, ErrNoFeedURL) {
			// bulk runs leave misconfigured feeds untouched; an admin attempt is recorded
			o.recordStatus(ctx, logger, feedID, types.SyncStatus{SyncedAt: o.Now().UTC(), Error: err.Error()})
		}
		o.recordSingleFailure(ctx, runID, feedID, triggeredBy, start, err)
		logger.WithError(err).Warn("Single feed sync failed")
		return nil, err
	}

	durationMs := o.since(start)
	o.appendLog(ctx, &types.SyncLogEntry{
		Type:         types.SyncLogEntryType,
		RunID:        runID,
		FeedID:       feedID,
		Frequency:    string(types.FrequencyManual),
		JobsImported: result.JobsImported,
		DurationMs:   durationMs,
		TriggeredBy:  triggeredBy,
		Timestamp:    o.Now().UTC(),
	})

	monitoring.RecordSyncRun(ModeSingle, "success", time.Since(start).Seconds())
	logger.WithFields(logrus.Fields{
		"jobs_imported": result.JobsImported,
		"total_items":   result.TotalItems,
		"duration_ms":   durationMs,
	}).Info("Single feed sync completed")

	return &types.SingleSyncSummary{
		Success:      true,
		JobsImported: result.JobsImported,
		TotalItems:   result.TotalItems,
		DurationMs:   durationMs,
	}, nil
}

func (o *Orchestrator) recordSingleFailure(ctx context.Context, runID, feedID, triggeredBy string, start time.Time, err error) {
	monitoring.RecordSyncRun(ModeSingle, "error", time.Since(start).Seconds())
	o.appendLog(ctx, &types.SyncLogEntry{
		Type:        types.SyncLogEntryType,
		RunID:       runID,
		FeedID:      feedID,
		Frequency:   string(types.FrequencyManual),
		Error:       err.Error(),
		DurationMs:  o.since(start),
		TriggeredBy: triggeredBy,
		Timestamp:   o.Now().UTC(),
	})
}

// processFeed runs fetch, parse, item processing and the status write-back for one feed.
// The returned result carries the counts even when err is non-nil.
// Once started, a feed is not cancelled by ctx; the fetch timeout is its only deadline.
func (o *Orchestrator) processFeed(ctx context.Context, feed *types.FeedSource, runID string) (types.SyncRunResult, error) {
	result := types.SyncRunResult{FeedID: feed.ID, FeedName: feed.FeedName}
	feedType := string(feed.Type())

	ctx, span := monitoring.CreateSpan(context.WithoutCancel(ctx), "feedsync.processFeed")
	defer span.End()
	monitoring.SetSpanAttributes(span, map[string]interface{}{
		"feed_id":   feed.ID,
		"feed_type": feedType,
	})

	logger := o.Logger.WithFields(logrus.Fields{
		"run_id":    runID,
		"feed_id":   feed.ID,
		"feed_name": feed.FeedName,
		"feed_type": feedType,
	})

	if feed.FeedURL == "" {
		logger.Warn("Feed has no URL, skipping")
		monitoring.RecordFeedSync(feedType, "config_error")
		return result, ErrNoFeedURL
	}

	release, err := o.Locker.Acquire(ctx, feed.ID)
	switch {
	case errors.Is(err, lock.ErrLocked):
		logger.Warn("Feed is already being synced, skipping")
		monitoring.RecordFeedSync(feedType, "locked")
		return result, err
	case err != nil:
		logger.WithError(err).Warn("Feed lock unavailable, syncing without it")
	default:
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.WithError(err).Warn("Failed to release feed lock")
			}
		}()
	}

	fetched, err := o.Fetcher.Fetch(ctx, feed.FeedURL)
	if err != nil {
		monitoring.RecordFeedFetch(feedType, "error", 0, -1)
		monitoring.RecordFeedSync(feedType, "fetch_error")
		monitoring.SetSpanError(span, err)
		logger.WithError(err).Warn("Feed fetch failed")
		o.recordStatus(ctx, logger, feed.ID, types.SyncStatus{SyncedAt: o.Now().UTC(), Error: err.Error()})
		if o.Alerts != nil {
			o.Alerts.RaiseFeedFailure(feed.ID, feed.FeedName, err.Error())
		}
		return result, err
	}

	items := o.ParserFor(feed.Type()).Parse(fetched.Body)
	result.TotalItems = len(items)
	monitoring.RecordFeedFetch(feedType, "success", fetched.Duration.Seconds(), len(items))
	monitoring.AddSpanEvent(span, "parsed", map[string]interface{}{"items": len(items)})

	for i, item := range items {
		outcome, err := o.Normalizer.Process(ctx, item, feed)
		if err != nil {
			externalID, externalURL := Identifiers(item)
			logger.WithError(err).WithFields(logrus.Fields{
				"item_index":   i,
				"external_id":  externalID,
				"external_url": externalURL,
			}).Error("Failed to process feed item")
			monitoring.RecordItemOutcome(monitoring.OutcomeFailed)
			result.Failed++
			continue
		}

		monitoring.RecordItemOutcome(string(outcome))
		switch outcome {
		case Created:
			result.JobsImported++
		case Updated:
			result.Updated++
		case Skipped, Discarded:
			result.Skipped++
		}
	}

	status := types.SyncStatus{SyncedAt: o.Now().UTC(), ImportedDelta: int64(result.JobsImported)}
	if err := o.Feeds.RecordSync(ctx, feed.ID, status); err != nil {
		monitoring.RecordFeedSync(feedType, "status_error")
		logger.WithError(err).Error("Failed to record feed sync status")
		return result, fmt.Errorf("record sync status: %w", err)
	}

	monitoring.RecordFeedSync(feedType, "success")
	if o.Alerts != nil {
		o.Alerts.ResolveFeedFailure(feed.ID)
	}
	logger.WithFields(logrus.Fields{
		"total_items":   result.TotalItems,
		"jobs_imported": result.JobsImported,
		"updated":       result.Updated,
		"skipped":       result.Skipped,
		"failed":        result.Failed,
	}).Info("Feed synced")

	return result, nil
}

// recordStatus writes a failure status; a write error is only logged
func (o *Orchestrator) recordStatus(ctx context.Context, logger *logrus.Entry, feedID string, status types.SyncStatus) {
	if err := o.Feeds.RecordSync(context.WithoutCancel(ctx), feedID, status); err != nil {
		logger.WithError(err).Error("Failed to record feed sync status")
	}
}

// appendLog writes an audit entry. Failures are logged and never fail the run.
func (o *Orchestrator) appendLog(ctx context.Context, entry *types.SyncLogEntry) {
	if err := o.Audit.AppendSyncLog(context.WithoutCancel(ctx), entry); err != nil {
		o.Logger.WithError(err).WithFields(logrus.Fields{
			"run_id":  entry.RunID,
			"feed_id": entry.FeedID,
		}).Warn("Failed to write sync log")
	}
}

func (o *Orchestrator) since(start time.Time) int64 {
	return o.Now().Sub(start).Milliseconds()
}

func filterByFrequency(feeds []*types.FeedSource, frequency types.SyncFrequency) []*types.FeedSource {
	filtered := make([]*types.FeedSource, 0, len(feeds))
	for _, feed := range feeds {
		if feed.Frequency() == frequency {
			filtered = append(filtered, feed)
		}
	}
	return filtered
}
