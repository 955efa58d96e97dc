package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Nexora-Open-Source/job-feed-sync/fetcher"
	"github.com/Nexora-Open-Source/job-feed-sync/lock"
	"github.com/Nexora-Open-Source/job-feed-sync/middleware"
	"github.com/Nexora-Open-Source/job-feed-sync/store"
	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// TriggeredByCron identifies runs started through the scheduled endpoint
const TriggeredByCron = "cron"

// AsyncAccepted is the body returned when a sync is queued
type AsyncAccepted struct {
	JobID   string `json:"job_id"`
	FeedID  string `json:"feed_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HandleCronSync runs every active feed, or only those of one frequency.
//
// @Summary Run the scheduled feed sync
// @Description Syncs all active feeds. When frequency is one of hourly, daily or weekly only feeds with that frequency run; any other value is ignored.
// @Tags Feed Sync
// @Produce json
// @Security CronSecret
// @Param frequency query string false "Sync frequency filter (hourly, daily, weekly)"
// @Success 200 {object} types.BulkSyncSummary "Per-feed results, including feeds that failed"
// @Failure 401 {object} middleware.APIError "Missing or invalid cron secret"
// @Failure 500 {object} middleware.APIError "Cron sync failed"
// @Failure 503 {object} middleware.APIError "Cron secret not configured"
// @Router /cron/sync-feeds [get]
func (h *Handler) HandleCronSync(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFrom(r)

	frequency, _ := types.ParseScheduledFrequency(r.URL.Query().Get("frequency"))

	h.Logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"frequency":  string(frequency),
	}).Info("Processing scheduled sync request")

	// a disconnecting caller does not stop the run; the orchestrator's run budget bounds it
	summary, err := h.Syncer.RunBulk(context.WithoutCancel(r.Context()), frequency, TriggeredByCron)
	if err != nil {
		middleware.ErrorHandlerWithMessage(w, err, middleware.ErrCodeInternalError,
			http.StatusInternalServerError, "Cron sync failed", requestID)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, summary)
}

// HandleAdminSync runs a single feed on behalf of an administrator.
//
// @Summary Sync one feed now
// @Description Fetches, parses and imports one feed. With async=true the sync is queued and a job ID is returned.
// @Tags Feed Sync
// @Produce json
// @Security BearerAuth
// @Param feedId path string true "Feed ID"
// @Param async query bool false "Queue the sync instead of waiting for it"
// @Success 200 {object} types.SingleSyncSummary "Sync completed"
// @Success 202 {object} AsyncAccepted "Sync queued"
// @Failure 401 {object} middleware.APIError "Missing or invalid token"
// @Failure 403 {object} middleware.APIError "Token lacks the admin role"
// @Failure 404 {object} middleware.APIError "Feed not found"
// @Failure 409 {object} middleware.APIError "Sync already in progress"
// @Failure 502 {object} middleware.APIError "Feed could not be fetched"
// @Failure 500 {object} middleware.APIError "Sync failed"
// @Router /admin/feeds/{feedId}/sync [post]
func (h *Handler) HandleAdminSync(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFrom(r)
	feedID := mux.Vars(r)["feedId"]
	if feedID == "" {
		middleware.RespondBadRequest(w, errors.New("feedId is required"), requestID)
		return
	}
	triggeredBy := middleware.TriggeredBy(r.Context())

	logger := h.Logger.WithFields(logrus.Fields{
		"request_id":   requestID,
		"feed_id":      feedID,
		"triggered_by": triggeredBy,
	})

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async && h.AsyncProcessor != nil {
		jobID, err := h.AsyncProcessor.SubmitJob(feedID, triggeredBy, requestID)
		if err != nil {
			logger.WithError(err).Warn("Failed to queue feed sync")
			middleware.RespondServiceUnavailable(w, err, requestID)
			return
		}
		middleware.RespondJSON(w, http.StatusAccepted, AsyncAccepted{
			JobID:   jobID,
			FeedID:  feedID,
			Status:  JobPending,
			Message: fmt.Sprintf("Sync queued. Poll /job-status?job_id=%s for the result.", jobID),
		})
		return
	}

	logger.Info("Processing admin sync request")

	summary, err := h.Syncer.RunSingle(r.Context(), feedID, triggeredBy)
	if err != nil {
		logger.WithError(err).Warn("Admin sync failed")
		RespondSyncError(w, err, requestID)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, summary)
}

// RespondSyncError maps a single-feed sync failure to an HTTP response
func RespondSyncError(w http.ResponseWriter, err error, requestID string) {
	var fetchErr *fetcher.Error
	switch {
	case errors.Is(err, store.ErrFeedNotFound):
		middleware.ErrorHandlerWithMessage(w, err, middleware.ErrCodeNotFound,
			http.StatusNotFound, "Feed not found", requestID)
	case errors.Is(err, lock.ErrLocked):
		middleware.RespondConflict(w, err, requestID)
	case errors.As(err, &fetchErr) && fetchErr.IsHTTPStatus():
		middleware.ErrorHandlerWithMessage(w, err, middleware.ErrCodeExternalAPI,
			http.StatusBadGateway, fetchErr.Message, requestID)
	default:
		middleware.ErrorHandlerWithMessage(w, err, middleware.ErrCodeInternalError,
			http.StatusInternalServerError, "Sync failed", requestID)
	}
}
