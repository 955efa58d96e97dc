/*
Package store holds the persistence contracts the sync pipeline depends on and their backends.

	FeedStore  reads feed configurations and writes back their sync status
	JobStore   looks up, inserts and updates canonical job records
	AuditLog   appends sync log entries

Backends: Google Cloud Datastore (default), PostgreSQL and an in-process memory store.
*/
package store

import (
	"context"
	"errors"

	"github.com/Nexora-Open-Source/job-feed-sync/types"
)

// Entity kinds / table names shared by every backend
const (
	KindFeeds    = "rssFeeds"
	KindJobs     = "jobs"
	KindSyncLogs = "cronLogs"
)

// ErrFeedNotFound is returned by GetFeed when no feed has the requested id
var ErrFeedNotFound = errors.New("feed not found")

// ErrJobNotFound is returned by UpdateJob when the job no longer exists
var ErrJobNotFound = errors.New("job not found")

// FeedStore is the feed-config collaborator
type FeedStore interface {
	ListFeeds(ctx context.Context, activeOnly bool) ([]*types.FeedSource, error)
	GetFeed(ctx context.Context, id string) (*types.FeedSource, error)
	// RecordSync sets LastSyncedAt and LastSyncError and adds ImportedDelta to
	// TotalJobsImported as a single atomic write.
	RecordSync(ctx context.Context, id string, status types.SyncStatus) error
}

// JobStore is the job collaborator. Find methods return (nil, nil) when nothing matches.
type JobStore interface {
	FindByExternalID(ctx context.Context, externalID string) (*types.JobRecord, error)
	FindByExternalURL(ctx context.Context, externalURL string) (*types.JobRecord, error)
	InsertJob(ctx context.Context, job *types.JobRecord) (string, error)
	// UpdateJob overwrites only title, description and updatedAt
	UpdateJob(ctx context.Context, id string, update types.JobUpdate) error
}

// AuditLog is the append-only sync log collaborator
type AuditLog interface {
	AppendSyncLog(ctx context.Context, entry *types.SyncLogEntry) error
}

// Store bundles every collaborator a backend provides
type Store interface {
	FeedStore
	JobStore
	AuditLog
	Ping(ctx context.Context) error
	Close() error
}
