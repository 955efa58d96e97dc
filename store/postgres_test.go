package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestPostgres connects to TEST_DATABASE_URL or skips the test
func openTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := OpenPostgres(ctx, databaseURL)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresStore_FeedLifecycle(t *testing.T) {
	s := openTestPostgres(t)
	ctx := context.Background()

	feed := &types.FeedSource{
		ID:       "pg-" + uuid.NewString(),
		FeedURL:  "https://example.com/feed.xml",
		FeedName: "PG Feed",
		FeedType: types.FeedTypeRSS,
		Active:   true,
	}
	require.NoError(t, s.PutFeed(ctx, feed))

	got, err := s.GetFeed(ctx, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, "PG Feed", got.FeedName)
	assert.True(t, got.Active)

	syncedAt := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, s.RecordSync(ctx, feed.ID, types.SyncStatus{SyncedAt: syncedAt, ImportedDelta: 4}))
	require.NoError(t, s.RecordSync(ctx, feed.ID, types.SyncStatus{SyncedAt: syncedAt, Error: "HTTP 500", ImportedDelta: 0}))

	got, err = s.GetFeed(ctx, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.TotalJobsImported)
	assert.Equal(t, "HTTP 500", got.LastSyncError)
	assert.True(t, syncedAt.Equal(got.LastSyncedAt))

	active, err := s.ListFeeds(ctx, true)
	require.NoError(t, err)
	found := false
	for _, f := range active {
		if f.ID == feed.ID {
			found = true
		}
	}
	assert.True(t, found)

	_, err = s.GetFeed(ctx, "pg-missing-"+uuid.NewString())
	assert.ErrorIs(t, err, ErrFeedNotFound)
	assert.ErrorIs(t, s.RecordSync(ctx, "pg-missing-"+uuid.NewString(), types.SyncStatus{}), ErrFeedNotFound)
}

func TestPostgresStore_JobLifecycle(t *testing.T) {
	s := openTestPostgres(t)
	ctx := context.Background()

	externalID := "pg-ext-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)
	id, err := s.InsertJob(ctx, &types.JobRecord{
		Title: "Welder", Status: "active", Active: true, Source: "feed", FeedID: "f",
		ExternalID: externalID, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	job, err := s.FindByExternalID(ctx, externalID)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Empty(t, job.ExternalURL)
	assert.True(t, job.PublishedAt.IsZero())

	later := now.Add(time.Hour)
	require.NoError(t, s.UpdateJob(ctx, id, types.JobUpdate{Title: "Senior Welder", Description: "x", UpdatedAt: later}))

	job, err = s.FindByExternalID(ctx, externalID)
	require.NoError(t, err)
	assert.Equal(t, "Senior Welder", job.Title)
	assert.True(t, now.Equal(job.CreatedAt))
	assert.True(t, later.Equal(job.UpdatedAt))

	none, err := s.FindByExternalURL(ctx, "https://example.com/"+uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, s.AppendSyncLog(ctx, &types.SyncLogEntry{
		Type: types.SyncLogEntryType, FeedID: "f", Frequency: "manual", Timestamp: now,
		Results: []types.SyncRunResult{{FeedID: "f", JobsImported: 1}},
	}))
}
