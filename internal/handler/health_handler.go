package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dandantas/adbfleet/internal/device"
)

// Pinger is anything whose connectivity can be checked, such as the Mongo client
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueReporter exposes the depth of the command fan-out queue
type QueueReporter interface {
	GetJobQueueLength() int
}

// BreakerReporter exposes the webhook circuit breaker state
type BreakerReporter interface {
	GetCircuitBreakerState() string
}

// HealthHandler handles service health and readiness checks
type HealthHandler struct {
	exec      device.Executor
	db        Pinger
	queue     QueueReporter
	breaker   BreakerReporter
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler. db is nil when Mongo is
// disabled and breaker is nil without a job webhook.
func NewHealthHandler(exec device.Executor, db Pinger, queue QueueReporter, breaker BreakerReporter, version string) *HealthHandler {
	return &HealthHandler{
		exec:      exec,
		db:        db,
		queue:     queue,
		breaker:   breaker,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Timestamp     string `json:"timestamp"`
	ADB           string `json:"adb"`
	MongoDB       string `json:"mongodb"`
	CommandQueue  int    `json:"command_queue"`
	Webhook       string `json:"webhook_circuit,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Ready   bool   `json:"ready"`
	ADB     string `json:"adb"`
	MongoDB string `json:"mongodb"`
}

// Health returns the service health status
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		ADB:           h.adbStatus(r.Context()),
		MongoDB:       h.mongoStatus(r.Context()),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}
	if h.queue != nil {
		response.CommandQueue = h.queue.GetJobQueueLength()
	}
	if h.breaker != nil {
		response.Webhook = h.breaker.GetCircuitBreakerState()
	}
	if response.ADB != "available" {
		response.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, response)
}

// Ready returns the service readiness status. Both adb and, when enabled,
// Mongo must answer.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	response := ReadyResponse{
		ADB:     h.adbStatus(r.Context()),
		MongoDB: h.mongoStatus(r.Context()),
	}
	response.Ready = response.ADB == "available" && response.MongoDB != "disconnected"

	statusCode := http.StatusOK
	if !response.Ready {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, response)
}

func (h *HealthHandler) adbStatus(ctx context.Context) string {
	if err := h.exec.Available(ctx); err != nil {
		return "unavailable"
	}
	return "available"
}

func (h *HealthHandler) mongoStatus(ctx context.Context) string {
	if h.db == nil {
		return "disabled"
	}
	if err := h.db.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}
