package handler

import (
	"net/http"

	"github.com/dandantas/adbfleet/internal/model"
	"github.com/dandantas/adbfleet/internal/service"
	"github.com/dandantas/adbfleet/pkg/middleware"
	"github.com/go-chi/chi/v5"
)

// DeviceHandler handles device listing, naming and ad-hoc commands
type DeviceHandler struct {
	devices *service.DeviceService
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(devices *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

// DeviceNameRequest renames a device
type DeviceNameRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// CommandRequest runs one adb command on several devices
type CommandRequest struct {
	Devices []string `json:"devices" validate:"required,min=1,dive,required"`
	Command string   `json:"command" validate:"required"`
}

// CommandResponse holds per-device results of a command fan-out
type CommandResponse struct {
	Results map[string]model.CommandResult `json:"results"`
	Total   int                            `json:"total"`
	Success int                            `json:"success"`
	Failed  int                            `json:"failed"`
}

// List handles GET /api/v1/devices
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.ListDevices(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if devices == nil {
		devices = []model.Device{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"devices": devices,
		"count":   len(devices),
	})
}

// GetName handles GET /api/v1/devices/{id}/name
func (h *DeviceHandler) GetName(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	name, ok, err := h.devices.GetName(r.Context(), deviceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Device has no custom name")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"device_id": deviceID,
		"name":      name,
	})
}

// PutName handles PUT /api/v1/devices/{id}/name
func (h *DeviceHandler) PutName(w http.ResponseWriter, r *http.Request) {
	var req DeviceNameRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	deviceID := chi.URLParam(r, "id")
	if err := h.devices.SetName(r.Context(), deviceID, req.Name); err != nil {
		writeServiceError(w, err)
		return
	}

	name, _, _ := h.devices.GetName(r.Context(), deviceID)
	writeJSON(w, http.StatusOK, map[string]string{
		"device_id": deviceID,
		"name":      name,
	})
}

// RunCommand handles POST /api/v1/devices/commands
func (h *DeviceHandler) RunCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	results, err := h.devices.RunCommand(r.Context(), req.Devices, req.Command)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := CommandResponse{Results: results, Total: len(results)}
	for _, result := range results {
		if result.Success {
			response.Success++
		} else {
			response.Failed++
		}
	}

	middleware.Logger(r.Context()).Info("Command fan-out finished",
		"devices", response.Total,
		"failed", response.Failed,
	)
	writeJSON(w, http.StatusOK, response)
}
