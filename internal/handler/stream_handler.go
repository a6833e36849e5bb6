package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dandantas/adbfleet/internal/service"
	"github.com/dandantas/adbfleet/pkg/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// StreamHandler serves live screen streams over SSE and WebSocket
type StreamHandler struct {
	engine   *service.LiveStreamEngine
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a stream handler. WebSocket upgrades follow the CORS origin list.
func NewStreamHandler(engine *service.LiveStreamEngine, cors middleware.CORSConfig) *StreamHandler {
	return &StreamHandler{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				return cors.OriginAllowed(r.Header.Get("Origin"))
			},
		},
	}
}

// SSE handles GET /api/v1/devices/{id}/live-stream
func (h *StreamHandler) SSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	deviceID := chi.URLParam(r, "id")
	stream, err := h.engine.Subscribe(r.Context(), deviceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer stream.Detach()

	logger := middleware.Logger(r.Context()).With("device_id", deviceID)
	logger.Info("SSE client attached")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			logger.Info("SSE client went away")
			return
		case ev, ok := <-stream.Events():
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Error("Failed to encode stream event", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// WebSocket handles GET /api/v1/devices/{id}/live-stream/ws. The subscription is
// made before the upgrade so refusals keep their HTTP status.
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	stream, err := h.engine.Subscribe(r.Context(), deviceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		stream.Detach()
		middleware.Logger(r.Context()).Warn("Failed to upgrade connection", "device_id", deviceID, "error", err)
		return
	}

	go readPump(conn, stream)
	writePump(conn, stream)
}

// readPump discards client messages and detaches the stream once the peer is gone
func readPump(conn *websocket.Conn, stream *service.Stream) {
	defer stream.Detach()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, stream *service.Stream) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		stream.Detach()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-stream.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Stop handles DELETE /api/v1/devices/{id}/live-stream
func (h *StreamHandler) Stop(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	if !h.engine.Unsubscribe(deviceID) {
		writeError(w, http.StatusNotFound, "No active live stream for device")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"device_id": deviceID,
		"stopped":   true,
	})
}

// List handles GET /api/v1/live-streams
func (h *StreamHandler) List(w http.ResponseWriter, r *http.Request) {
	devices := h.engine.ActiveDevices()
	if devices == nil {
		devices = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active_streams": devices,
		"count":          len(devices),
	})
}
