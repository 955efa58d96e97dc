package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresSchema creates the tables PostgresStore reads and writes
const postgresSchema = `
CREATE TABLE IF NOT EXISTS rss_feeds (
	id                   TEXT PRIMARY KEY,
	feed_url             TEXT NOT NULL DEFAULT '',
	feed_name            TEXT NOT NULL DEFAULT '',
	feed_type            TEXT NOT NULL DEFAULT '',
	sync_frequency       TEXT NOT NULL DEFAULT '',
	employer_id          TEXT NOT NULL DEFAULT '',
	employer_name        TEXT NOT NULL DEFAULT '',
	active               BOOLEAN NOT NULL DEFAULT false,
	update_existing_jobs BOOLEAN NOT NULL DEFAULT false,
	last_synced_at       TIMESTAMPTZ,
	last_sync_error      TEXT,
	total_jobs_imported  BIGINT NOT NULL DEFAULT 0,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	location      TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'active',
	active        BOOLEAN NOT NULL DEFAULT true,
	source        TEXT NOT NULL DEFAULT 'feed',
	feed_id       TEXT NOT NULL DEFAULT '',
	external_id   TEXT,
	external_url  TEXT,
	employer_id   TEXT NOT NULL DEFAULT '',
	employer_name TEXT NOT NULL DEFAULT '',
	published_at  TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS jobs_external_id_idx ON jobs (external_id);
CREATE INDEX IF NOT EXISTS jobs_external_url_idx ON jobs (external_url);

CREATE TABLE IF NOT EXISTS cron_logs (
	id            TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	run_id        TEXT NOT NULL DEFAULT '',
	feed_id       TEXT,
	feed_count    INTEGER NOT NULL DEFAULT 0,
	frequency     TEXT NOT NULL DEFAULT '',
	results       JSONB,
	jobs_imported INTEGER NOT NULL DEFAULT 0,
	error         TEXT,
	duration_ms   BIGINT NOT NULL DEFAULT 0,
	triggered_by  TEXT NOT NULL DEFAULT '',
	timestamp     TIMESTAMPTZ NOT NULL
);
`

const feedColumns = `id, feed_url, feed_name, feed_type, sync_frequency, employer_id, employer_name,
	active, update_existing_jobs, last_synced_at, last_sync_error, total_jobs_imported`

const jobColumns = `id, title, description, location, status, active, source, feed_id,
	external_id, external_url, employer_id, employer_name, published_at, created_at, updated_at`

// PostgresStore implements Store on PostgreSQL through a pgx pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgres connects to databaseURL and verifies the connection
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return NewPostgresStore(pool), nil
}

// Migrate creates the tables if they do not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func scanFeed(row pgx.Row) (*types.FeedSource, error) {
	var (
		feed       types.FeedSource
		feedType   string
		frequency  string
		lastSynced *time.Time
		lastError  *string
	)
	if err := row.Scan(
		&feed.ID, &feed.FeedURL, &feed.FeedName, &feedType, &frequency, &feed.EmployerID, &feed.EmployerName,
		&feed.Active, &feed.UpdateExistingJobs, &lastSynced, &lastError, &feed.TotalJobsImported,
	); err != nil {
		return nil, err
	}
	feed.FeedType = types.FeedType(feedType)
	feed.SyncFrequency = types.SyncFrequency(frequency)
	if lastSynced != nil {
		feed.LastSyncedAt = lastSynced.UTC()
	}
	if lastError != nil {
		feed.LastSyncError = *lastError
	}
	return &feed, nil
}

// ListFeeds returns feeds in creation order
func (s *PostgresStore) ListFeeds(ctx context.Context, activeOnly bool) ([]*types.FeedSource, error) {
	query := `SELECT ` + feedColumns + ` FROM rss_feeds`
	if activeOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rss_feeds: %w", err)
	}
	defer rows.Close()

	var feeds []*types.FeedSource
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

// GetFeed loads one feed by id
func (s *PostgresStore) GetFeed(ctx context.Context, id string) (*types.FeedSource, error) {
	feed, err := scanFeed(s.pool.QueryRow(ctx, `SELECT `+feedColumns+` FROM rss_feeds WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFeedNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feed %s: %w", id, err)
	}
	return feed, nil
}

// RecordSync increments the counter in SQL so concurrent runs never lose an update
func (s *PostgresStore) RecordSync(ctx context.Context, id string, status types.SyncStatus) error {
	var lastError *string
	if status.Error != "" {
		lastError = &status.Error
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE rss_feeds
		 SET last_synced_at = $2, last_sync_error = $3, total_jobs_imported = total_jobs_imported + $4
		 WHERE id = $1`,
		id, status.SyncedAt, lastError, status.ImportedDelta,
	)
	if err != nil {
		return fmt.Errorf("record sync for feed %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFeedNotFound
	}
	return nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func (s *PostgresStore) findJob(ctx context.Context, column, value string) (*types.JobRecord, error) {
	var (
		job         types.JobRecord
		externalID  *string
		externalURL *string
		publishedAt *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE `+column+` = $1 ORDER BY created_at LIMIT 1`, value,
	).Scan(
		&job.ID, &job.Title, &job.Description, &job.Location, &job.Status, &job.Active, &job.Source, &job.FeedID,
		&externalID, &externalURL, &job.EmployerID, &job.EmployerName, &publishedAt, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query jobs by %s: %w", column, err)
	}
	if externalID != nil {
		job.ExternalID = *externalID
	}
	if externalURL != nil {
		job.ExternalURL = *externalURL
	}
	if publishedAt != nil {
		job.PublishedAt = publishedAt.UTC()
	}
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	return &job, nil
}

// FindByExternalID returns the oldest job imported with externalID
func (s *PostgresStore) FindByExternalID(ctx context.Context, externalID string) (*types.JobRecord, error) {
	return s.findJob(ctx, "external_id", externalID)
}

// FindByExternalURL returns the oldest job imported with externalURL
func (s *PostgresStore) FindByExternalURL(ctx context.Context, externalURL string) (*types.JobRecord, error) {
	return s.findJob(ctx, "external_url", externalURL)
}

// InsertJob stores a new job
func (s *PostgresStore) InsertJob(ctx context.Context, job *types.JobRecord) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	var publishedAt *time.Time
	if !job.PublishedAt.IsZero() {
		publishedAt = &job.PublishedAt
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		job.ID, job.Title, job.Description, job.Location, job.Status, job.Active, job.Source, job.FeedID,
		nullable(job.ExternalID), nullable(job.ExternalURL), job.EmployerID, job.EmployerName, publishedAt,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert job: %w", err)
	}
	return job.ID, nil
}

// UpdateJob overwrites title, description and updated_at
func (s *PostgresStore) UpdateJob(ctx context.Context, id string, update types.JobUpdate) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET title = $2, description = $3, updated_at = $4 WHERE id = $1`,
		id, update.Title, update.Description, update.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// AppendSyncLog inserts an audit row; per-feed results are kept as JSONB
func (s *PostgresStore) AppendSyncLog(ctx context.Context, entry *types.SyncLogEntry) error {
	var results []byte
	if len(entry.Results) > 0 {
		encoded, err := json.Marshal(entry.Results)
		if err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
		results = encoded
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO cron_logs (id, type, run_id, feed_id, feed_count, frequency, results, jobs_imported,
		                        error, duration_ms, triggered_by, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12)`,
		uuid.NewString(), entry.Type, entry.RunID, nullable(entry.FeedID), entry.FeedCount, entry.Frequency,
		results, entry.JobsImported, nullable(entry.Error), entry.DurationMs, entry.TriggeredBy, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append sync log: %w", err)
	}
	return nil
}

// PutFeed upserts a feed configuration
func (s *PostgresStore) PutFeed(ctx context.Context, feed *types.FeedSource) error {
	if feed.ID == "" {
		feed.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO rss_feeds (id, feed_url, feed_name, feed_type, sync_frequency, employer_id, employer_name,
		                        active, update_existing_jobs, total_jobs_imported)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   feed_url = EXCLUDED.feed_url, feed_name = EXCLUDED.feed_name, feed_type = EXCLUDED.feed_type,
		   sync_frequency = EXCLUDED.sync_frequency, employer_id = EXCLUDED.employer_id,
		   employer_name = EXCLUDED.employer_name, active = EXCLUDED.active,
		   update_existing_jobs = EXCLUDED.update_existing_jobs`,
		feed.ID, feed.FeedURL, feed.FeedName, string(feed.FeedType), string(feed.SyncFrequency), feed.EmployerID,
		feed.EmployerName, feed.Active, feed.UpdateExistingJobs, feed.TotalJobsImported,
	)
	if err != nil {
		return fmt.Errorf("put feed: %w", err)
	}
	return nil
}

// Ping checks the pool
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases every pooled connection
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
