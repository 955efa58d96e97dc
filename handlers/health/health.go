// Package health provides health check handlers for the feed sync service
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/Nexora-Open-Source/job-feed-sync/middleware"
	"github.com/sirupsen/logrus"
)

// Version is reported by the health endpoint
var Version = "1.0.0"

var startTime = time.Now()

// Pinger is any backend that can report connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check names a backend probed by the health endpoints
type Check struct {
	Name   string
	Pinger Pinger
}

// HealthStatus represents the health check response structure
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
	Uptime    string            `json:"uptime"`
}

// Handler contains dependencies for health handlers
type Handler struct {
	Checks  []Check
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewHandler creates a new health handler
func NewHandler(logger *logrus.Logger, checks ...Check) *Handler {
	return &Handler{
		Checks:  checks,
		Logger:  logger,
		Timeout: 5 * time.Second,
	}
}

// HandleHealthCheck reports the state of every backend. It always answers
// 200; the body says which services are unhealthy.
//
// @Summary Service health
// @Tags Health
// @Produce json
// @Success 200 {object} HealthStatus
// @Router /health [get]
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   Version,
		Services:  make(map[string]string),
		Uptime:    time.Since(startTime).String(),
	}

	for name, err := range h.probe(r.Context()) {
		if err != nil {
			health.Status = "unhealthy"
			health.Services[name] = "unhealthy: " + err.Error()
			h.Logger.WithFields(logrus.Fields{
				"service": name,
				"error":   err.Error(),
			}).Error("Health check failed")
			continue
		}
		health.Services[name] = "healthy"
	}

	middleware.RespondJSON(w, http.StatusOK, health)
}

// HandleLivenessCheck provides a simple liveness probe
func (h *Handler) HandleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	middleware.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
	})
}

// HandleReadinessCheck answers 503 until every backend responds
func (h *Handler) HandleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFrom(r)

	services := make(map[string]string)
	for name, err := range h.probe(r.Context()) {
		if err != nil {
			middleware.RespondServiceUnavailable(w, err, requestID)
			return
		}
		services[name] = "ready"
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().Format(time.RFC3339),
		"services":  services,
	})
}

func (h *Handler) probe(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	results := make(map[string]error, len(h.Checks))
	for _, check := range h.Checks {
		if check.Pinger == nil {
			continue
		}
		results[check.Name] = check.Pinger.Ping(ctx)
	}
	return results
}
