package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for local runs and tests
type MemoryStore struct {
	mu        sync.RWMutex
	feeds     map[string]*types.FeedSource
	feedOrder []string
	jobs      map[string]*types.JobRecord
	jobOrder  []string
	logs      []*types.SyncLogEntry
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		feeds: make(map[string]*types.FeedSource),
		jobs:  make(map[string]*types.JobRecord),
	}
}

// PutFeed inserts or replaces a feed configuration. Feeds list in insertion order.
func (s *MemoryStore) PutFeed(feed *types.FeedSource) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if feed.ID == "" {
		feed.ID = uuid.NewString()
	}
	if _, exists := s.feeds[feed.ID]; !exists {
		s.feedOrder = append(s.feedOrder, feed.ID)
	}
	copied := *feed
	s.feeds[feed.ID] = &copied
}

// ListFeeds returns copies of the stored feeds
func (s *MemoryStore) ListFeeds(_ context.Context, activeOnly bool) ([]*types.FeedSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	feeds := make([]*types.FeedSource, 0, len(s.feedOrder))
	for _, id := range s.feedOrder {
		feed := s.feeds[id]
		if activeOnly && !feed.Active {
			continue
		}
		copied := *feed
		feeds = append(feeds, &copied)
	}
	return feeds, nil
}

// GetFeed returns a copy of one feed
func (s *MemoryStore) GetFeed(_ context.Context, id string) (*types.FeedSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	feed, ok := s.feeds[id]
	if !ok {
		return nil, ErrFeedNotFound
	}
	copied := *feed
	return &copied, nil
}

// RecordSync updates the sync status fields under the store lock
func (s *MemoryStore) RecordSync(_ context.Context, id string, status types.SyncStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed, ok := s.feeds[id]
	if !ok {
		return ErrFeedNotFound
	}
	feed.LastSyncedAt = status.SyncedAt
	feed.LastSyncError = status.Error
	feed.TotalJobsImported += status.ImportedDelta
	return nil
}

func (s *MemoryStore) findJob(match func(*types.JobRecord) bool) *types.JobRecord {
	for _, id := range s.jobOrder {
		if job := s.jobs[id]; match(job) {
			copied := *job
			return &copied
		}
	}
	return nil
}

// FindByExternalID returns the first job with externalID
func (s *MemoryStore) FindByExternalID(_ context.Context, externalID string) (*types.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findJob(func(job *types.JobRecord) bool { return job.ExternalID == externalID }), nil
}

// FindByExternalURL returns the first job with externalURL
func (s *MemoryStore) FindByExternalURL(_ context.Context, externalURL string) (*types.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findJob(func(job *types.JobRecord) bool { return job.ExternalURL == externalURL }), nil
}

// InsertJob stores a copy of job
func (s *MemoryStore) InsertJob(_ context.Context, job *types.JobRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	copied := *job
	s.jobs[job.ID] = &copied
	s.jobOrder = append(s.jobOrder, job.ID)
	return job.ID, nil
}

// UpdateJob overwrites title, description and updatedAt
func (s *MemoryStore) UpdateJob(_ context.Context, id string, update types.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	job.Title = update.Title
	job.Description = update.Description
	job.UpdatedAt = update.UpdatedAt
	return nil
}

// AppendSyncLog keeps a copy of entry
func (s *MemoryStore) AppendSyncLog(_ context.Context, entry *types.SyncLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *entry
	s.logs = append(s.logs, &copied)
	return nil
}

// Jobs returns copies of all stored jobs ordered by creation time
func (s *MemoryStore) Jobs() []*types.JobRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*types.JobRecord, 0, len(s.jobOrder))
	for _, id := range s.jobOrder {
		copied := *s.jobs[id]
		jobs = append(jobs, &copied)
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	return jobs
}

// SyncLogs returns copies of the appended audit entries
func (s *MemoryStore) SyncLogs() []*types.SyncLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]*types.SyncLogEntry, 0, len(s.logs))
	for _, entry := range s.logs {
		copied := *entry
		logs = append(logs, &copied)
	}
	return logs
}

// Ping always succeeds
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op
func (s *MemoryStore) Close() error { return nil }
