package feedsync

import (
	"context"
	"fmt"
	"time"

	"github.com/Nexora-Open-Source/job-feed-sync/monitoring"
	"github.com/Nexora-Open-Source/job-feed-sync/parsers"
	"github.com/Nexora-Open-Source/job-feed-sync/store"
	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/Nexora-Open-Source/job-feed-sync/utils"
)

const (
	// DefaultTitle is used for items that carry no title
	DefaultTitle = "Untitled Position"
	// JobSource marks records created by the feed pipeline
	JobSource = "feed"
	// JobStatusActive is the status of newly imported records
	JobStatusActive = "active"
)

// Outcome is what processing one item did to the job store
type Outcome string

const (
	Created   Outcome = monitoring.OutcomeCreated
	Updated   Outcome = monitoring.OutcomeUpdated
	Skipped   Outcome = monitoring.OutcomeSkipped
	Discarded Outcome = monitoring.OutcomeDiscarded
)

// Identifiers derives the stable identifiers of an item. externalID prefers guid,
// then id, then link, then url; externalURL prefers link, then url.
func Identifiers(item types.RawItem) (externalID, externalURL string) {
	externalID = item.First(parsers.KeyGUID, parsers.KeyID, parsers.KeyLink, parsers.KeyURL)
	externalURL = item.First(parsers.KeyLink, parsers.KeyURL)
	return externalID, externalURL
}

// Normalizer maps raw items onto canonical job records and deduplicates them
// against the job store.
type Normalizer struct {
	jobs store.JobStore
	now  func() time.Time
}

// NewNormalizer creates a Normalizer writing to jobs
func NewNormalizer(jobs store.JobStore, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{jobs: jobs, now: now}
}

// Process creates, updates or skips the record for item. Items without any identifier
// are discarded before the store is touched.
func (n *Normalizer) Process(ctx context.Context, item types.RawItem, feed *types.FeedSource) (Outcome, error) {
	externalID, externalURL := Identifiers(item)
	if externalID == "" && externalURL == "" {
		return Discarded, nil
	}

	title := item.First(parsers.KeyTitle)
	if title == "" {
		title = DefaultTitle
	}
	description := utils.StripCDATA(item.First(parsers.KeyDescription, parsers.KeySummary, parsers.KeyContent))

	existing, err := n.findExisting(ctx, externalID, externalURL)
	if err != nil {
		return "", err
	}

	if existing != nil {
		if !feed.UpdateExistingJobs {
			return Skipped, nil
		}
		update := types.JobUpdate{Title: title, Description: description, UpdatedAt: n.now().UTC()}
		if err := n.timed("update", func() error { return n.jobs.UpdateJob(ctx, existing.ID, update) }); err != nil {
			return "", err
		}
		return Updated, nil
	}

	job := n.newRecord(item, feed, title, description, externalID, externalURL)
	if err := n.timed("insert", func() error {
		_, err := n.jobs.InsertJob(ctx, job)
		return err
	}); err != nil {
		return "", err
	}
	return Created, nil
}

// findExisting looks up by externalID when present, else by externalURL
func (n *Normalizer) findExisting(ctx context.Context, externalID, externalURL string) (*types.JobRecord, error) {
	var existing *types.JobRecord
	err := n.timed("find", func() error {
		var err error
		if externalID != "" {
			existing, err = n.jobs.FindByExternalID(ctx, externalID)
		} else {
			existing, err = n.jobs.FindByExternalURL(ctx, externalURL)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("duplicate lookup: %w", err)
	}
	return existing, nil
}

func (n *Normalizer) newRecord(item types.RawItem, feed *types.FeedSource, title, description, externalID, externalURL string) *types.JobRecord {
	now := n.now().UTC()

	location := item.First(parsers.KeyLocation)
	if location == "" {
		location = parsers.DefaultLocation
	}

	job := &types.JobRecord{
		Title:        title,
		Description:  description,
		Location:     location,
		Status:       JobStatusActive,
		Active:       true,
		Source:       JobSource,
		FeedID:       feed.ID,
		ExternalID:   externalID,
		ExternalURL:  externalURL,
		EmployerID:   feed.EmployerID,
		EmployerName: feed.EmployerName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if published, ok := utils.ParseDate(item.First(parsers.KeyPubDate)); ok {
		job.PublishedAt = published
	}
	return job
}

func (n *Normalizer) timed(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	status := "success"
	if err != nil {
		status = "error"
	}
	monitoring.RecordStoreOperation(operation, status, time.Since(start).Seconds())
	return err
}
