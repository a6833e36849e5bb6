package handler

import (
	"net/http"
	"strings"

	"github.com/dandantas/adbfleet/internal/metadata"
	"github.com/dandantas/adbfleet/internal/service"
	"github.com/dandantas/adbfleet/pkg/middleware"
)

// VideoHandler looks up video metadata
type VideoHandler struct {
	videos *service.VideoService
}

// NewVideoHandler creates a new video handler
func NewVideoHandler(videos *service.VideoService) *VideoHandler {
	return &VideoHandler{videos: videos}
}

// DurationsRequest lists the videos to look up
type DurationsRequest struct {
	Videos []string `json:"videos" validate:"required,min=1,dive,url"`
}

func (req *DurationsRequest) normalize() {
	req.Videos = trimEntries(req.Videos)
}

// ChannelRequest names a channel and the tab(s) to list
type ChannelRequest struct {
	ChannelURL    string `json:"channel_url" validate:"required"`
	ContentFilter string `json:"content_filter" validate:"omitempty,oneof=all videos shorts live"`
}

func (req *ChannelRequest) normalize() {
	req.ChannelURL = strings.TrimSpace(req.ChannelURL)
	req.ContentFilter = strings.ToLower(strings.TrimSpace(req.ContentFilter))
}

// Durations handles POST /api/v1/videos/durations
func (h *VideoHandler) Durations(w http.ResponseWriter, r *http.Request) {
	var req DurationsRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"durations": h.videos.Durations(r.Context(), req.Videos),
	})
}

// ChannelVideos handles POST /api/v1/videos/channel
func (h *VideoHandler) ChannelVideos(w http.ResponseWriter, r *http.Request) {
	var req ChannelRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	filter, err := metadata.ParseContentFilter(req.ContentFilter)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	videos, err := h.videos.ChannelVideos(r.Context(), req.ChannelURL, filter)
	if err != nil {
		middleware.Logger(r.Context()).Warn("Channel lookup failed",
			"channel", req.ChannelURL,
			"filter", filter,
			"error", err,
		)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"channel":        req.ChannelURL,
		"content_filter": filter,
		"videos":         videos,
		"count":          len(videos),
	})
}
