package handlers

import (
	"errors"
	"net/http"

	"github.com/Nexora-Open-Source/job-feed-sync/middleware"
	"github.com/sirupsen/logrus"
)

// HandleGetJobStatus reports the state of a sync queued with async=true.
// Statuses expire after ASYNC_JOB_TTL.
//
// @Summary Get async sync job status
// @Tags Feed Sync
// @Produce json
// @Security BearerAuth
// @Param job_id query string true "Job ID"
// @Success 200 {object} types.AsyncJobStatus
// @Failure 400 {object} middleware.APIError
// @Failure 404 {object} middleware.APIError
// @Router /job-status [get]
func (h *Handler) HandleGetJobStatus(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFrom(r)

	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		middleware.RespondBadRequest(w, errors.New("job_id parameter is missing"), requestID)
		return
	}

	if h.AsyncProcessor == nil {
		middleware.RespondNotFound(w, errors.New("async sync is disabled"), requestID)
		return
	}

	jobStatus, exists := h.AsyncProcessor.GetJobStatus(r.Context(), jobID)
	if !exists {
		middleware.RespondNotFound(w, errors.New("job not found"), requestID)
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"job_id":     jobID,
		"status":     jobStatus.Status,
	}).Debug("Job status retrieved")

	middleware.RespondJSON(w, http.StatusOK, jobStatus)
}
