// Package types contains shared types used across the job feed sync service
package types

import (
	"strings"
	"time"
)

// FeedType identifies the payload format a feed publishes
type FeedType string

const (
	FeedTypeRSS       FeedType = "rss"
	FeedTypeOracleHCM FeedType = "oracle-hcm"
	FeedTypeADP       FeedType = "adp"
	FeedTypeAtom      FeedType = "atom"
)

// SyncFrequency is how often the scheduler is expected to pick up a feed
type SyncFrequency string

const (
	FrequencyManual SyncFrequency = "manual"
	FrequencyHourly SyncFrequency = "hourly"
	FrequencyDaily  SyncFrequency = "daily"
	FrequencyWeekly SyncFrequency = "weekly"
)

// ParseScheduledFrequency validates a frequency requested by a scheduled trigger.
// Manual is not a scheduled frequency.
func ParseScheduledFrequency(value string) (SyncFrequency, bool) {
	switch f := SyncFrequency(strings.ToLower(strings.TrimSpace(value))); f {
	case FrequencyHourly, FrequencyDaily, FrequencyWeekly:
		return f, true
	default:
		return "", false
	}
}

// FeedSource is an administrator-configured external job feed.
// The sync pipeline only writes back LastSyncedAt, LastSyncError and TotalJobsImported.
type FeedSource struct {
	ID                 string        `datastore:"-" json:"id"`
	FeedURL            string        `datastore:"feedUrl,noindex" json:"feedUrl"`
	FeedName           string        `datastore:"feedName" json:"feedName"`
	FeedType           FeedType      `datastore:"feedType,noindex" json:"feedType,omitempty"`
	SyncFrequency      SyncFrequency `datastore:"syncFrequency" json:"syncFrequency,omitempty"`
	EmployerID         string        `datastore:"employerId" json:"employerId"`
	EmployerName       string        `datastore:"employerName,noindex" json:"employerName,omitempty"`
	Active             bool          `datastore:"active" json:"active"`
	UpdateExistingJobs bool          `datastore:"updateExistingJobs,noindex" json:"updateExistingJobs"`
	LastSyncedAt       time.Time     `datastore:"lastSyncedAt,omitempty" json:"lastSyncedAt"`
	// Empty means the last sync succeeded.
	LastSyncError     string `datastore:"lastSyncError,noindex" json:"lastSyncError"`
	TotalJobsImported int64  `datastore:"totalJobsImported,noindex" json:"totalJobsImported"`
}

// Type returns the declared feed type, defaulting to rss
func (f *FeedSource) Type() FeedType {
	if f.FeedType == "" {
		return FeedTypeRSS
	}
	return FeedType(strings.ToLower(string(f.FeedType)))
}

// Frequency returns the configured sync frequency, defaulting to daily
func (f *FeedSource) Frequency() SyncFrequency {
	if f.SyncFrequency == "" {
		return FrequencyDaily
	}
	return f.SyncFrequency
}

// Status derives the admin-facing state of a feed
func (f *FeedSource) Status() string {
	switch {
	case f.LastSyncError != "":
		return "error"
	case f.Active:
		return "active"
	default:
		return "paused"
	}
}

// SyncStatus is the write-back applied to a feed after a sync attempt.
// ImportedDelta is added to TotalJobsImported, never assigned.
type SyncStatus struct {
	SyncedAt      time.Time
	Error         string
	ImportedDelta int64
}

// RawItem is one untyped record emitted by a format parser
type RawItem map[string]string

// First returns the first non-empty value among keys
func (r RawItem) First(keys ...string) string {
	for _, key := range keys {
		if value := r[key]; value != "" {
			return value
		}
	}
	return ""
}

// JobRecord is the canonical shape every feed item is normalized into
type JobRecord struct {
	ID           string    `datastore:"-" json:"id,omitempty"`
	Title        string    `datastore:"title,noindex" json:"title"`
	Description  string    `datastore:"description,noindex" json:"description"`
	Location     string    `datastore:"location" json:"location"`
	Status       string    `datastore:"status" json:"status"`
	Active       bool      `datastore:"active" json:"active"`
	Source       string    `datastore:"source" json:"source"`
	FeedID       string    `datastore:"feedId" json:"feedId"`
	ExternalID   string    `datastore:"externalId" json:"externalId,omitempty"`
	ExternalURL  string    `datastore:"externalUrl" json:"externalUrl,omitempty"`
	EmployerID   string    `datastore:"employerId" json:"employerId"`
	EmployerName string    `datastore:"employerName,noindex" json:"employerName,omitempty"`
	PublishedAt  time.Time `datastore:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	CreatedAt    time.Time `datastore:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `datastore:"updatedAt" json:"updatedAt"`
}

// JobUpdate is the mutable subset of a JobRecord a feed may overwrite
type JobUpdate struct {
	Title       string
	Description string
	UpdatedAt   time.Time
}

// SyncRunResult is the outcome of syncing one feed
type SyncRunResult struct {
	FeedID       string `datastore:"feedId" json:"feedId"`
	FeedName     string `datastore:"feedName,noindex" json:"feedName"`
	JobsImported int    `datastore:"jobsImported,noindex" json:"jobsImported"`
	Error        string `datastore:"error,noindex,omitempty" json:"error,omitempty"`

	TotalItems int `datastore:"-" json:"-"`
	Updated    int `datastore:"-" json:"-"`
	Skipped    int `datastore:"-" json:"-"`
	Failed     int `datastore:"-" json:"-"`
}

// BulkSyncSummary is returned by a scheduled run over all active feeds
type BulkSyncSummary struct {
	Success        bool            `json:"success"`
	FeedsProcessed int             `json:"feedsProcessed"`
	Results        []SyncRunResult `json:"results"`
	DurationMs     int64           `json:"durationMs"`
}

// SingleSyncSummary is returned by an admin-triggered run of one feed
type SingleSyncSummary struct {
	Success      bool  `json:"success"`
	JobsImported int   `json:"jobsImported"`
	TotalItems   int   `json:"totalItems"`
	DurationMs   int64 `json:"durationMs"`
}

// SyncLogEntryType is the audit record type written by every sync run
const SyncLogEntryType = "feed_sync"

// SyncLogEntry is an append-only audit record of a sync run
type SyncLogEntry struct {
	Type         string          `datastore:"type" json:"type"`
	RunID        string          `datastore:"runId" json:"runId,omitempty"`
	FeedID       string          `datastore:"feedId,omitempty" json:"feedId,omitempty"`
	FeedCount    int             `datastore:"feedCount,noindex,omitempty" json:"feedCount,omitempty"`
	Frequency    string          `datastore:"frequency" json:"frequency"`
	Results      []SyncRunResult `datastore:"results,noindex,omitempty" json:"results,omitempty"`
	JobsImported int             `datastore:"jobsImported,noindex" json:"jobsImported"`
	Error        string          `datastore:"error,noindex,omitempty" json:"error,omitempty"`
	DurationMs   int64           `datastore:"durationMs,noindex" json:"durationMs"`
	TriggeredBy  string          `datastore:"triggeredBy" json:"triggeredBy"`
	Timestamp    time.Time       `datastore:"timestamp" json:"timestamp"`
}

// AsyncJobStatus represents the status of a queued admin sync
type AsyncJobStatus struct {
	JobID        string     `json:"job_id"`
	FeedID       string     `json:"feed_id"`
	TriggeredBy  string     `json:"triggered_by,omitempty"`
	Status       string     `json:"status"` // pending, processing, completed, failed
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Error        string     `json:"error,omitempty"`
	JobsImported int        `json:"jobs_imported"`
	TotalItems   int        `json:"total_items"`
	DurationMs   int64      `json:"duration_ms,omitempty"`
}
