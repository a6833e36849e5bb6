package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dandantas/adbfleet/internal/metadata"
	"github.com/dandantas/adbfleet/internal/model"
	"github.com/dandantas/adbfleet/internal/service"
	"github.com/dandantas/adbfleet/pkg/middleware"
	"github.com/go-chi/chi/v5"
)

// JobHandler serves the job endpoints
type JobHandler struct {
	manager *service.JobManager
	youtube *service.YouTubeAutomation
	signIn  *service.GoogleSignIn
}

// NewJobHandler creates a new job handler
func NewJobHandler(manager *service.JobManager, youtube *service.YouTubeAutomation, signIn *service.GoogleSignIn) *JobHandler {
	return &JobHandler{
		manager: manager,
		youtube: youtube,
		signIn:  signIn,
	}
}

// YouTubeJobRequest starts a playlist job. When ChannelURL is set the videos
// are taken from the channel once the job is running and Videos is ignored.
type YouTubeJobRequest struct {
	Devices         []string       `json:"devices" validate:"required,min=1,dive,required"`
	Videos          []string       `json:"videos" validate:"required_without=ChannelURL,dive,url"`
	ChannelURL      string         `json:"channel_url"`
	ContentFilter   string         `json:"content_filter" validate:"omitempty,oneof=all videos shorts live"`
	CustomDurations map[string]int `json:"custom_durations" validate:"omitempty,dive,gt=0"`
}

func (req *YouTubeJobRequest) normalize() {
	req.Devices = trimEntries(req.Devices)
	req.Videos = trimEntries(req.Videos)
	req.ChannelURL = strings.TrimSpace(req.ChannelURL)
	req.ContentFilter = strings.ToLower(strings.TrimSpace(req.ContentFilter))
}

// SignInJobRequest starts a Google sign-in job. Accounts holds inline
// email:password lines and wins over AccountsFile.
type SignInJobRequest struct {
	Devices      []string `json:"devices" validate:"required,min=1,dive,required"`
	AccountsFile string   `json:"accounts_file" validate:"required_without=Accounts"`
	Accounts     string   `json:"accounts" validate:"required_without=AccountsFile"`
}

func (req *SignInJobRequest) normalize() {
	req.Devices = trimEntries(req.Devices)
}

// JobAccepted is returned when a job has been registered
type JobAccepted struct {
	JobID   string          `json:"job_id"`
	Status  model.JobStatus `json:"status"`
	Message string          `json:"message"`
}

// StopResponse reports the outcome of a stop request
type StopResponse struct {
	JobID   string          `json:"job_id"`
	Stopped bool            `json:"stopped"`
	Status  model.JobStatus `json:"status"`
}

// StartYouTube handles POST /api/v1/jobs/youtube
func (h *JobHandler) StartYouTube(w http.ResponseWriter, r *http.Request) {
	var req YouTubeJobRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if req.ChannelURL != "" {
		if _, err := metadata.ChannelTabURL(req.ChannelURL, metadata.ContentVideos); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	runner := h.youtube.Job(service.PlaylistRequest{
		Videos:          req.Videos,
		Channel:         req.ChannelURL,
		Filter:          metadata.ContentFilter(req.ContentFilter),
		CustomDurations: req.CustomDurations,
	})
	h.submit(w, r, runner, req.Devices)
}

// StartSignIn handles POST /api/v1/jobs/google-signin
func (h *JobHandler) StartSignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInJobRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	runner := h.signIn.Job(service.SignInRequest{
		File: req.AccountsFile,
		Text: req.Accounts,
	})
	h.submit(w, r, runner, req.Devices)
}

func (h *JobHandler) submit(w http.ResponseWriter, r *http.Request, runner service.JobRunner, devices []string) {
	job, err := h.manager.Submit(runner, devices)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	middleware.Logger(r.Context()).Info("Job accepted",
		"job_id", job.ID,
		"type", job.Type,
		"devices", len(devices),
	)

	writeJSON(w, http.StatusAccepted, JobAccepted{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "Job started",
	})
}

// Get handles GET /api/v1/jobs/{id}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, ok := h.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Stop handles POST /api/v1/jobs/{id}/stop
func (h *JobHandler) Stop(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	stopped, err := h.manager.RequestStop(jobID)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		writeServiceError(w, err)
		return
	}

	job, _ := h.manager.Get(jobID)
	writeJSON(w, http.StatusOK, StopResponse{
		JobID:   jobID,
		Stopped: stopped,
		Status:  job.Status,
	})
}

// List handles GET /api/v1/jobs. With ?active=true only ids of running jobs are returned.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	if active := parseQueryBool(r, "active"); active != nil && *active {
		ids := h.manager.ListActive()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"active_jobs": ids,
			"count":       len(ids),
		})
		return
	}

	jobs := h.manager.List()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}
