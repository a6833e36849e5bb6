package service

import (
	"context"
	"time"

	"github.com/dandantas/adbfleet/internal/model"
)

// JobRun is the handle a JobRunner uses to report progress and observe
// cancellation for one job
type JobRun struct {
	ID      string
	Devices []string

	manager *JobManager
	stop    context.Context
}

// Stopped reports whether a stop was requested for this job
func (r *JobRun) Stopped() bool {
	if r.stop.Err() != nil {
		return true
	}
	job, ok := r.manager.store.Get(r.ID)
	return !ok || job.Status == model.JobStatusStopped
}

// Wait sleeps for d unless a stop arrives first. It reports whether the full
// duration elapsed.
func (r *JobRun) Wait(ctx context.Context, d time.Duration) bool {
	return Sleep(ctx, d, r.stop.Done())
}

// Pause sleeps for d ignoring stop requests, for delays inside a unit of work
// that must not be cut short
func (r *JobRun) Pause(ctx context.Context, d time.Duration) {
	Sleep(ctx, d, nil)
}

// Progress sets progress to floor(index/total*100) and updates the message
func (r *JobRun) Progress(index, total int, message string) {
	percent := 0
	if total > 0 {
		percent = index * 100 / total
	}
	r.manager.update(r.ID, func(j *model.Job) {
		if percent > j.Progress {
			j.Progress = percent
		}
		j.Message = message
	})
}

// Message replaces the status message
func (r *JobRun) Message(message string) {
	r.manager.update(r.ID, func(j *model.Job) {
		j.Message = message
	})
}

// Count adds delta to the job counters
func (r *JobRun) Count(delta model.JobCounters) {
	r.manager.update(r.ID, func(j *model.Job) {
		j.Counters = j.Counters.Add(delta)
	})
}

// Snapshot returns the current state of the job
func (r *JobRun) Snapshot() model.Job {
	job, _ := r.manager.store.Get(r.ID)
	return job
}
