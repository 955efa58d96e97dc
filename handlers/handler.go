/*
Package handlers provides the HTTP trigger endpoints for feed synchronization.

The Handler struct carries every dependency the endpoints need, so there are no
package-level clients and tests can substitute fakes for the orchestrator and
the async queue.
*/
package handlers

import (
	"context"

	"github.com/Nexora-Open-Source/job-feed-sync/handlers/feed"
	"github.com/Nexora-Open-Source/job-feed-sync/handlers/health"
	"github.com/Nexora-Open-Source/job-feed-sync/store"
	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/sirupsen/logrus"
)

// SyncRunner is the orchestrator surface used by the trigger endpoints
type SyncRunner interface {
	RunBulk(ctx context.Context, frequency types.SyncFrequency, triggeredBy string) (*types.BulkSyncSummary, error)
	RunSingle(ctx context.Context, feedID, triggeredBy string) (*types.SingleSyncSummary, error)
}

// AsyncProcessorInterface defines the interface for async processing
type AsyncProcessorInterface interface {
	SubmitJob(feedID, triggeredBy, requestID string) (string, error)
	GetJobStatus(ctx context.Context, jobID string) (*types.AsyncJobStatus, bool)
}

// Handler contains all service dependencies for HTTP handlers
type Handler struct {
	Syncer         SyncRunner
	AsyncProcessor AsyncProcessorInterface
	Logger         *logrus.Logger

	Feeds  *feed.Handler
	Health *health.Handler
}

// NewHandler creates a new handler instance with injected dependencies.
// async may be nil, in which case ?async=true requests run synchronously.
func NewHandler(syncer SyncRunner, st store.Store, async AsyncProcessorInterface, logger *logrus.Logger, checks ...health.Check) *Handler {
	return &Handler{
		Syncer:         syncer,
		AsyncProcessor: async,
		Logger:         logger,
		Feeds:          feed.NewHandler(st, logger),
		Health:         health.NewHandler(logger, append([]health.Check{{Name: "store", Pinger: st}}, checks...)...),
	}
}
