package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dandantas/adbfleet/internal/model"
	"github.com/go-chi/chi/v5"
)

// DeliveryHistory reads stored webhook delivery logs
type DeliveryHistory interface {
	ListByJob(ctx context.Context, jobID string) ([]model.DeliveryLog, error)
}

// CommandHistory reads the audited adb command log
type CommandHistory interface {
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]model.CommandLog, error)
}

// HistoryHandler serves persisted delivery and command history. Both sources
// are nil when MongoDB is disabled.
type HistoryHandler struct {
	deliveries DeliveryHistory
	commands   CommandHistory
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(deliveries DeliveryHistory, commands CommandHistory) *HistoryHandler {
	return &HistoryHandler{
		deliveries: deliveries,
		commands:   commands,
	}
}

// Deliveries handles GET /api/v1/jobs/{id}/deliveries
func (h *HistoryHandler) Deliveries(w http.ResponseWriter, r *http.Request) {
	if h.deliveries == nil {
		writeError(w, http.StatusServiceUnavailable, "Delivery history requires MongoDB")
		return
	}

	jobID := chi.URLParam(r, "id")
	logs, err := h.deliveries.ListByJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":     jobID,
		"deliveries": logs,
	})
}

// Commands handles GET /api/v1/devices/{id}/commands
func (h *HistoryHandler) Commands(w http.ResponseWriter, r *http.Request) {
	if h.commands == nil {
		writeError(w, http.StatusServiceUnavailable, "Command history requires MongoDB")
		return
	}

	// Enforce max limit
	limit := parseQueryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	deviceID := chi.URLParam(r, "id")
	logs, err := h.commands.ListByDevice(r.Context(), deviceID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"device_id": deviceID,
		"limit":     limit,
		"commands":  logs,
	})
}

// parseQueryInt parses an integer query parameter with a default value
func parseQueryInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}
