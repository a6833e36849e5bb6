// Package client talks to the fleet HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dandantas/adbfleet/internal/handler"
	"github.com/dandantas/adbfleet/internal/metadata"
	"github.com/dandantas/adbfleet/internal/model"
	"github.com/dandantas/adbfleet/pkg/middleware"
	"github.com/google/uuid"
)

// APIError is a non-2xx answer from the service
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	if len(e.Fields) == 0 {
		return msg
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return msg + " (" + strings.Join(parts, "; ") + ")"
}

// Client is a thin JSON client for the job, stream and device endpoints
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the service at baseURL
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// StartYouTube starts a playlist job
func (c *Client) StartYouTube(ctx context.Context, req handler.YouTubeJobRequest) (handler.JobAccepted, error) {
	var accepted handler.JobAccepted
	err := c.do(ctx, http.MethodPost, "/api/v1/jobs/youtube", req, &accepted)
	return accepted, err
}

// ChannelVideos lists the videos of a channel
func (c *Client) ChannelVideos(ctx context.Context, req handler.ChannelRequest) ([]metadata.ChannelVideo, error) {
	var resp struct {
		Videos []metadata.ChannelVideo `json:"videos"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/videos/channel", req, &resp)
	return resp.Videos, err
}

// StartSignIn starts a Google sign-in job
func (c *Client) StartSignIn(ctx context.Context, req handler.SignInJobRequest) (handler.JobAccepted, error) {
	var accepted handler.JobAccepted
	err := c.do(ctx, http.MethodPost, "/api/v1/jobs/google-signin", req, &accepted)
	return accepted, err
}

// Job fetches a job snapshot
func (c *Client) Job(ctx context.Context, jobID string) (model.Job, error) {
	var job model.Job
	err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+url.PathEscape(jobID), nil, &job)
	return job, err
}

// StopJob requests a stop
func (c *Client) StopJob(ctx context.Context, jobID string) (handler.StopResponse, error) {
	var resp handler.StopResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/jobs/"+url.PathEscape(jobID)+"/stop", nil, &resp)
	return resp, err
}

// Jobs lists every registered job
func (c *Client) Jobs(ctx context.Context) ([]model.Job, error) {
	var resp struct {
		Jobs []model.Job `json:"jobs"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/jobs", nil, &resp)
	return resp.Jobs, err
}

// ActiveJobs lists the ids of jobs that have not finished
func (c *Client) ActiveJobs(ctx context.Context) ([]string, error) {
	var resp struct {
		ActiveJobs []string `json:"active_jobs"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/jobs?active=true", nil, &resp)
	return resp.ActiveJobs, err
}

// WaitJob polls a job until it reaches a terminal status. onUpdate, when set,
// sees every snapshot.
func (c *Client) WaitJob(ctx context.Context, jobID string, interval time.Duration, onUpdate func(model.Job)) (model.Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := c.Job(ctx, jobID)
		if err != nil {
			return job, err
		}
		if onUpdate != nil {
			onUpdate(job)
		}
		if job.Status.IsTerminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Devices lists attached devices with their names
func (c *Client) Devices(ctx context.Context) ([]model.Device, error) {
	var resp struct {
		Devices []model.Device `json:"devices"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/devices", nil, &resp)
	return resp.Devices, err
}

// RenameDevice stores a custom device name
func (c *Client) RenameDevice(ctx context.Context, deviceID, name string) error {
	return c.do(ctx, http.MethodPut, "/api/v1/devices/"+url.PathEscape(deviceID)+"/name",
		handler.DeviceNameRequest{Name: name}, nil)
}

// RunCommand fans a command out to devices
func (c *Client) RunCommand(ctx context.Context, devices []string, command string) (handler.CommandResponse, error) {
	var resp handler.CommandResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/devices/commands",
		handler.CommandRequest{Devices: devices, Command: command}, &resp)
	return resp, err
}

// Streams lists devices with an active live stream
func (c *Client) Streams(ctx context.Context) ([]string, error) {
	var resp struct {
		ActiveStreams []string `json:"active_streams"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/live-streams", nil, &resp)
	return resp.ActiveStreams, err
}

// StopStream ends the live stream of a device
func (c *Client) StopStream(ctx context.Context, deviceID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/devices/"+url.PathEscape(deviceID)+"/live-stream", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.CorrelationIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		var errResp handler.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Message != "" {
			apiErr.Message = errResp.Message
			apiErr.Fields = errResp.Fields
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
