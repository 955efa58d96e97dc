// Package feed provides the admin feed configuration listing
package feed

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Nexora-Open-Source/job-feed-sync/middleware"
	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/sirupsen/logrus"
)

// FeedLister reads feed configurations
type FeedLister interface {
	ListFeeds(ctx context.Context, activeOnly bool) ([]*types.FeedSource, error)
}

// FeedView is a feed configuration with its derived status
type FeedView struct {
	*types.FeedSource
	Status string `json:"status"`
}

// FeedListResponse wraps the listing
type FeedListResponse struct {
	Feeds []FeedView `json:"feeds"`
	Total int        `json:"total"`
}

// Handler contains dependencies for feed handlers
type Handler struct {
	Feeds  FeedLister
	Logger *logrus.Logger
}

// NewHandler creates a new feed handler
func NewHandler(feeds FeedLister, logger *logrus.Logger) *Handler {
	return &Handler{
		Feeds:  feeds,
		Logger: logger,
	}
}

// HandleListFeeds returns configured feeds with their sync status.
//
// @Summary List feed configurations
// @Description Returns every configured feed. status is error when the last sync failed, otherwise active or paused.
// @Tags Feeds
// @Produce json
// @Security BearerAuth
// @Param active query bool false "Only active feeds"
// @Success 200 {object} FeedListResponse
// @Failure 500 {object} middleware.APIError
// @Router /admin/feeds [get]
func (h *Handler) HandleListFeeds(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFrom(r)
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))

	feeds, err := h.Feeds.ListFeeds(r.Context(), activeOnly)
	if err != nil {
		h.Logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to list feeds")
		middleware.RespondInternalError(w, err, requestID)
		return
	}

	views := make([]FeedView, 0, len(feeds))
	for _, f := range feeds {
		views = append(views, FeedView{FeedSource: f, Status: f.Status()})
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id":  requestID,
		"feeds_count": len(views),
	}).Debug("Feed list retrieved")

	middleware.RespondJSON(w, http.StatusOK, FeedListResponse{Feeds: views, Total: len(views)})
}
