package feedsync

import (
	"context"
	"testing"
	"time"

	"github.com/Nexora-Open-Source/job-feed-sync/store"
	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIdentifiers(t *testing.T) {
	tests := []struct {
		name        string
		item        types.RawItem
		externalID  string
		externalURL string
	}{
		{"guid wins", types.RawItem{"guid": "g", "id": "i", "link": "l", "url": "u"}, "g", "l"},
		{"id before link", types.RawItem{"id": "i", "link": "l"}, "i", "l"},
		{"link as id", types.RawItem{"link": "l"}, "l", "l"},
		{"url only", types.RawItem{"url": "u"}, "u", "u"},
		{"guid without url", types.RawItem{"guid": "g"}, "g", ""},
		{"nothing", types.RawItem{"title": "t"}, "", ""},
		{"empty values ignored", types.RawItem{"guid": "", "link": "l"}, "l", "l"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			externalID, externalURL := Identifiers(tt.item)
			assert.Equal(t, tt.externalID, externalID)
			assert.Equal(t, tt.externalURL, externalURL)
		})
	}
}

func TestNormalizer_CreatesCanonicalRecord(t *testing.T) {
	ctx := context.Background()
	jobs := store.NewMemoryStore()
	n := NewNormalizer(jobs, clockAt(fixedNow))
	feed := &types.FeedSource{ID: "feed-1", EmployerID: "emp-1", EmployerName: "Acme"}

	outcome, err := n.Process(ctx, types.RawItem{
		"guid":        "55",
		"link":        "https://example.com/55",
		"description": "<![CDATA[Great job]]>",
		"pubDate":     "Tue, 05 Mar 2024 08:00:00 -0600",
	}, feed)
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)

	records := jobs.Jobs()
	require.Len(t, records, 1)
	job := records[0]
	assert.Equal(t, DefaultTitle, job.Title)
	assert.Equal(t, "Great job", job.Description)
	assert.Equal(t, "Canada", job.Location)
	assert.Equal(t, "active", job.Status)
	assert.True(t, job.Active)
	assert.Equal(t, "feed", job.Source)
	assert.Equal(t, "feed-1", job.FeedID)
	assert.Equal(t, "55", job.ExternalID)
	assert.Equal(t, "https://example.com/55", job.ExternalURL)
	assert.Equal(t, "emp-1", job.EmployerID)
	assert.Equal(t, "Acme", job.EmployerName)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC), job.PublishedAt)
	assert.Equal(t, fixedNow, job.CreatedAt)
	assert.Equal(t, fixedNow, job.UpdatedAt)
}

func TestNormalizer_DescriptionFallback(t *testing.T) {
	tests := []struct {
		name     string
		item     types.RawItem
		expected string
	}{
		{"description", types.RawItem{"guid": "1", "description": "d", "summary": "s"}, "d"},
		{"summary", types.RawItem{"guid": "1", "summary": "s", "content": "c"}, "s"},
		{"content", types.RawItem{"guid": "1", "content": "<![CDATA[ c ]]>"}, "c"},
		{"none", types.RawItem{"guid": "1"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := store.NewMemoryStore()
			_, err := NewNormalizer(jobs, clockAt(fixedNow)).Process(context.Background(), tt.item, &types.FeedSource{ID: "f"})
			require.NoError(t, err)
			require.Len(t, jobs.Jobs(), 1)
			assert.Equal(t, tt.expected, jobs.Jobs()[0].Description)
		})
	}
}

func TestNormalizer_InvalidDateOmitted(t *testing.T) {
	jobs := store.NewMemoryStore()
	outcome, err := NewNormalizer(jobs, clockAt(fixedNow)).Process(context.Background(),
		types.RawItem{"guid": "1", "title": "Cook", "pubDate": "sometime soon"}, &types.FeedSource{ID: "f"})
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)
	assert.True(t, jobs.Jobs()[0].PublishedAt.IsZero())
}

func TestNormalizer_DiscardsItemsWithoutIdentifiers(t *testing.T) {
	jobs := store.NewMemoryStore()
	outcome, err := NewNormalizer(jobs, clockAt(fixedNow)).Process(context.Background(),
		types.RawItem{"title": "Ghost", "description": "no ids"}, &types.FeedSource{ID: "f"})
	require.NoError(t, err)
	assert.Equal(t, Discarded, outcome)
	assert.Empty(t, jobs.Jobs())
}

func TestNormalizer_UpdateGate(t *testing.T) {
	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	later := created.Add(48 * time.Hour)

	tests := []struct {
		name           string
		updateExisting bool
		outcome        Outcome
		title          string
		description    string
		updatedAt      time.Time
	}{
		{"skip when updates disabled", false, Skipped, "Old title", "Old description", created},
		{"update when enabled", true, Updated, "New title", "New description", later},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			jobs := store.NewMemoryStore()
			_, err := jobs.InsertJob(ctx, &types.JobRecord{
				Title: "Old title", Description: "Old description",
				ExternalID: "55", ExternalURL: "https://example.com/55",
				CreatedAt: created, UpdatedAt: created,
			})
			require.NoError(t, err)

			feed := &types.FeedSource{ID: "f", UpdateExistingJobs: tt.updateExisting}
			outcome, err := NewNormalizer(jobs, clockAt(later)).Process(ctx, types.RawItem{
				"guid": "55", "link": "https://example.com/other", "title": "New title", "description": "New description",
			}, feed)
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, outcome)

			records := jobs.Jobs()
			require.Len(t, records, 1)
			assert.Equal(t, tt.title, records[0].Title)
			assert.Equal(t, tt.description, records[0].Description)
			assert.Equal(t, tt.updatedAt, records[0].UpdatedAt)
			assert.Equal(t, created, records[0].CreatedAt)
			assert.Equal(t, "55", records[0].ExternalID)
			assert.Equal(t, "https://example.com/55", records[0].ExternalURL)
		})
	}
}
