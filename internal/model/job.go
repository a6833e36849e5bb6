package model

import (
	"time"
)

// JobStatus is the lifecycle state of a job
type JobStatus string

const (
	JobStatusStarting  JobStatus = "starting"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusError     JobStatus = "error"
	JobStatusStopped   JobStatus = "stopped"
)

// IsTerminal reports whether no further transition is allowed
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusError, JobStatusStopped:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is allowed.
// A stop request may arrive before the executor has started running.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s == next {
		return !s.IsTerminal()
	}
	switch s {
	case JobStatusStarting:
		return next == JobStatusRunning || next == JobStatusStopped
	case JobStatusRunning:
		return next.IsTerminal()
	}
	return false
}

// JobType identifies the automation protocol a job runs
type JobType string

const (
	JobTypeYouTube      JobType = "youtube"
	JobTypeGoogleSignIn JobType = "google_signin"
)

// JobCounters are monotone tallies maintained by the executor
type JobCounters struct {
	DevicesProcessed       int `json:"devices_processed"`
	TotalDevices           int `json:"total_devices"`
	SuccessfulDevices      int `json:"successful_devices"`
	FailedDevices          int `json:"failed_devices"`
	UnitsProcessed         int `json:"units_processed"`
	TotalUnits             int `json:"total_units"`
	SuccessfulDispatches   int `json:"successful_dispatches"`
	FailedDispatches       int `json:"failed_dispatches"`
	DurationLookupFailures int `json:"duration_lookup_failures"`
}

// Add returns the element-wise sum of c and d
func (c JobCounters) Add(d JobCounters) JobCounters {
	c.DevicesProcessed += d.DevicesProcessed
	c.TotalDevices += d.TotalDevices
	c.SuccessfulDevices += d.SuccessfulDevices
	c.FailedDevices += d.FailedDevices
	c.UnitsProcessed += d.UnitsProcessed
	c.TotalUnits += d.TotalUnits
	c.SuccessfulDispatches += d.SuccessfulDispatches
	c.FailedDispatches += d.FailedDispatches
	c.DurationLookupFailures += d.DurationLookupFailures
	return c
}

// covers reports whether every counter in c is at least the one in prev
func (c JobCounters) covers(prev JobCounters) bool {
	return c.DevicesProcessed >= prev.DevicesProcessed &&
		c.TotalDevices >= prev.TotalDevices &&
		c.SuccessfulDevices >= prev.SuccessfulDevices &&
		c.FailedDevices >= prev.FailedDevices &&
		c.UnitsProcessed >= prev.UnitsProcessed &&
		c.TotalUnits >= prev.TotalUnits &&
		c.SuccessfulDispatches >= prev.SuccessfulDispatches &&
		c.FailedDispatches >= prev.FailedDispatches &&
		c.DurationLookupFailures >= prev.DurationLookupFailures
}

// Job is a snapshot of one automation run against a device set
type Job struct {
	ID        string      `json:"job_id"`
	Type      JobType     `json:"type"`
	Status    JobStatus   `json:"status"`
	Progress  int         `json:"progress"`
	Message   string      `json:"message"`
	Devices   []string    `json:"devices"`
	Counters  JobCounters `json:"counters"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	EndedAt   *time.Time  `json:"ended_at,omitempty"`
}

func (j Job) clone() Job {
	j.Devices = append([]string(nil), j.Devices...)
	if j.EndedAt != nil {
		ended := *j.EndedAt
		j.EndedAt = &ended
	}
	return j
}
