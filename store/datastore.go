package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"cloud.google.com/go/datastore"
	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/google/uuid"
)

// Transaction is the subset of *datastore.Transaction used by the store
type Transaction interface {
	Get(key *datastore.Key, dst interface{}) error
	Put(key *datastore.Key, src interface{}) (*datastore.PendingKey, error)
}

// DatastoreReaderInterface defines read operations for datastore
type DatastoreReaderInterface interface {
	Get(ctx context.Context, key *datastore.Key, dst interface{}) error
	GetAll(ctx context.Context, q *datastore.Query, dst interface{}) ([]*datastore.Key, error)
}

// DatastoreWriterInterface defines write operations for datastore
type DatastoreWriterInterface interface {
	Put(ctx context.Context, key *datastore.Key, src interface{}) (*datastore.Key, error)
	Transact(ctx context.Context, fn func(tx Transaction) error) error
}

// DatastoreClientInterface combines read and write operations
type DatastoreClientInterface interface {
	DatastoreReaderInterface
	DatastoreWriterInterface
	Close() error
}

// CloudDatastore adapts *datastore.Client to DatastoreClientInterface
type CloudDatastore struct {
	*datastore.Client
}

// Transact runs fn inside a read-write transaction, retrying on contention
func (c CloudDatastore) Transact(ctx context.Context, fn func(tx Transaction) error) error {
	_, err := c.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		return fn(tx)
	})
	return err
}

// DatastoreStore implements Store on Google Cloud Datastore
type DatastoreStore struct {
	client DatastoreClientInterface
}

// NewDatastoreStore wraps a datastore client
func NewDatastoreStore(client DatastoreClientInterface) *DatastoreStore {
	return &DatastoreStore{client: client}
}

// OpenDatastore connects to the Datastore of projectID
func OpenDatastore(ctx context.Context, projectID string) (*DatastoreStore, error) {
	client, err := datastore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore client: %w", err)
	}
	return NewDatastoreStore(CloudDatastore{Client: client}), nil
}

func keyID(key *datastore.Key) string {
	if key == nil {
		return ""
	}
	if key.Name != "" {
		return key.Name
	}
	return strconv.FormatInt(key.ID, 10)
}

// ignoreFieldMismatch tolerates stored properties the Go structs do not declare
func ignoreFieldMismatch(err error) error {
	var mismatch *datastore.ErrFieldMismatch
	if errors.As(err, &mismatch) {
		return nil
	}
	return err
}

func setProperty(props *datastore.PropertyList, name string, value interface{}, noIndex bool) {
	for i := range *props {
		if (*props)[i].Name == name {
			(*props)[i].Value = value
			return
		}
	}
	*props = append(*props, datastore.Property{Name: name, Value: value, NoIndex: noIndex})
}

func int64Property(props datastore.PropertyList, name string) int64 {
	for _, p := range props {
		if p.Name != name {
			continue
		}
		switch v := p.Value.(type) {
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}

func feedKey(id string) *datastore.Key {
	return entityKey(KindFeeds, id)
}

// jobKey resolves ids produced by keyID, including auto-allocated numeric ones
func jobKey(id string) *datastore.Key {
	return entityKey(KindJobs, id)
}

func entityKey(kind, id string) *datastore.Key {
	if numeric, err := strconv.ParseInt(id, 10, 64); err == nil && numeric > 0 {
		return datastore.IDKey(kind, numeric, nil)
	}
	return datastore.NameKey(kind, id, nil)
}

// ListFeeds returns feeds in key order
func (s *DatastoreStore) ListFeeds(ctx context.Context, activeOnly bool) ([]*types.FeedSource, error) {
	query := datastore.NewQuery(KindFeeds)
	if activeOnly {
		query = query.FilterField("active", "=", true)
	}

	var feeds []*types.FeedSource
	keys, err := s.client.GetAll(ctx, query, &feeds)
	if err = ignoreFieldMismatch(err); err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	for i, key := range keys {
		if i < len(feeds) {
			feeds[i].ID = keyID(key)
		}
	}
	return feeds, nil
}

// GetFeed loads one feed by id
func (s *DatastoreStore) GetFeed(ctx context.Context, id string) (*types.FeedSource, error) {
	var feed types.FeedSource
	if err := ignoreFieldMismatch(s.client.Get(ctx, feedKey(id), &feed)); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, ErrFeedNotFound
		}
		return nil, fmt.Errorf("failed to get feed %s: %w", id, err)
	}
	feed.ID = id
	return &feed, nil
}

// RecordSync applies the status write-back and counter increment in one transaction.
// The entity is rewritten as a property list so fields this service does not model survive.
func (s *DatastoreStore) RecordSync(ctx context.Context, id string, status types.SyncStatus) error {
	key := feedKey(id)
	err := s.client.Transact(ctx, func(tx Transaction) error {
		var props datastore.PropertyList
		if err := tx.Get(key, &props); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return ErrFeedNotFound
			}
			return err
		}
		total := int64Property(props, "totalJobsImported") + status.ImportedDelta
		setProperty(&props, "lastSyncedAt", status.SyncedAt, false)
		setProperty(&props, "lastSyncError", status.Error, true)
		setProperty(&props, "totalJobsImported", total, true)
		_, err := tx.Put(key, &props)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to record sync for feed %s: %w", id, err)
	}
	return nil
}

func (s *DatastoreStore) findJob(ctx context.Context, field, value string) (*types.JobRecord, error) {
	query := datastore.NewQuery(KindJobs).FilterField(field, "=", value).Limit(1)

	var jobs []*types.JobRecord
	keys, err := s.client.GetAll(ctx, query, &jobs)
	if err = ignoreFieldMismatch(err); err != nil {
		return nil, fmt.Errorf("failed to query jobs by %s: %w", field, err)
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	if len(keys) > 0 {
		jobs[0].ID = keyID(keys[0])
	}
	return jobs[0], nil
}

// FindByExternalID returns the job previously imported with externalID
func (s *DatastoreStore) FindByExternalID(ctx context.Context, externalID string) (*types.JobRecord, error) {
	return s.findJob(ctx, "externalId", externalID)
}

// FindByExternalURL returns the job previously imported with externalURL
func (s *DatastoreStore) FindByExternalURL(ctx context.Context, externalURL string) (*types.JobRecord, error) {
	return s.findJob(ctx, "externalUrl", externalURL)
}

// InsertJob stores a new job under a generated key
func (s *DatastoreStore) InsertJob(ctx context.Context, job *types.JobRecord) (string, error) {
	id := job.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := s.client.Put(ctx, datastore.NameKey(KindJobs, id, nil), job); err != nil {
		return "", fmt.Errorf("failed to insert job: %w", err)
	}
	job.ID = id
	return id, nil
}

// UpdateJob rewrites the mutable fields of an existing job inside a transaction
func (s *DatastoreStore) UpdateJob(ctx context.Context, id string, update types.JobUpdate) error {
	key := jobKey(id)
	err := s.client.Transact(ctx, func(tx Transaction) error {
		var props datastore.PropertyList
		if err := tx.Get(key, &props); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return ErrJobNotFound
			}
			return err
		}
		setProperty(&props, "title", update.Title, true)
		setProperty(&props, "description", update.Description, true)
		setProperty(&props, "updatedAt", update.UpdatedAt, false)
		_, err := tx.Put(key, &props)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", id, err)
	}
	return nil
}

// AppendSyncLog stores an audit entry
func (s *DatastoreStore) AppendSyncLog(ctx context.Context, entry *types.SyncLogEntry) error {
	if _, err := s.client.Put(ctx, datastore.NameKey(KindSyncLogs, uuid.NewString(), nil), entry); err != nil {
		return fmt.Errorf("failed to append sync log: %w", err)
	}
	return nil
}

// Ping checks connectivity with a keys-only probe of the feeds kind
func (s *DatastoreStore) Ping(ctx context.Context) error {
	query := datastore.NewQuery(KindFeeds).KeysOnly().Limit(1)
	if _, err := s.client.GetAll(ctx, query, nil); err != nil {
		return fmt.Errorf("datastore ping failed: %w", err)
	}
	return nil
}

// Close releases the client
func (s *DatastoreStore) Close() error {
	return s.client.Close()
}
