/*
Package feedsync runs job feed synchronization.

A run covers either every active feed (bulk, scheduled) or one feed (single, admin-triggered).
Each feed goes through the same stages:

	fetch -> parse -> process items -> record sync status

Feeds are processed one at a time in the order the feed store returns them, and the items
of a feed in the order its parser emitted them. Errors are contained at the narrowest scope:
a failing item is logged and skipped, a failing feed is reported in its result, and only a
failure to load the feed list aborts a bulk run.
*/
package feedsync

import (
	"context"
	"errors"

	"github.com/Nexora-Open-Source/job-feed-sync/fetcher"
)

// ErrNoFeedURL is the configuration error reported for feeds without a URL
var ErrNoFeedURL = errors.New("No feedUrl")

// ErrRunBudgetExceeded is reported for feeds a bulk run had no time left to start
var ErrRunBudgetExceeded = errors.New("sync run budget exceeded")

// ErrRunCancelled is reported for feeds skipped because the run context ended before they started
var ErrRunCancelled = errors.New("sync run cancelled")

// Fetcher downloads a feed payload
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Result, error)
}

// Run modes
const (
	ModeBulk   = "bulk"
	ModeSingle = "single"
)

// Trigger names written to the audit log
const (
	TriggeredByCron  = "cron"
	TriggeredByAdmin = "admin"
)
