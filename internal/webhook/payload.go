package webhook

import (
	"fmt"
	"time"

	"github.com/dandantas/adbfleet/internal/model"
)

// JobPayload is the body posted to the job webhook
type JobPayload struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
	Details  map[string]interface{} `json:"details"`
}

var statusIcons = map[model.JobStatus]string{
	model.JobStatusCompleted: "✅",
	model.JobStatusError:     "❌",
	model.JobStatusStopped:   "⏹️",
}

// FormatJobPayload describes a finished job for chat-style webhooks
func FormatJobPayload(job model.Job) JobPayload {
	text := fmt.Sprintf("%s Job %s (%s) %s: %s", statusIcons[job.Status], job.ID, job.Type, job.Status, job.Message)

	details := map[string]interface{}{
		"devices":  job.Devices,
		"progress": job.Progress,
		"counters": job.Counters,
	}
	if job.EndedAt != nil {
		details["duration_ms"] = job.EndedAt.Sub(job.CreatedAt).Milliseconds()
	}

	return JobPayload{
		Text: text,
		Metadata: map[string]interface{}{
			"service":   "adbfleet",
			"job_id":    job.ID,
			"job_type":  job.Type,
			"status":    job.Status,
			"severity":  severity(job.Status),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
		Details: details,
	}
}

func severity(status model.JobStatus) string {
	switch status {
	case model.JobStatusError:
		return "error"
	case model.JobStatusStopped:
		return "warning"
	}
	return "info"
}
