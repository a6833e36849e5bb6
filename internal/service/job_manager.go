package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/dandantas/adbfleet/internal/model"
)

// ErrShuttingDown is returned when a job is submitted during shutdown
var ErrShuttingDown = errors.New("job manager is shutting down")

// JobRunner executes one job protocol. It returns the summary message for a
// job that ran to the end, or an error that moves the job to error.
type JobRunner interface {
	Type() model.JobType
	Run(ctx context.Context, run *JobRun) (string, error)
}

// JobListener is told about every job status transition
type JobListener interface {
	JobChanged(ctx context.Context, job model.Job)
}

// jobHandle lets the manager interrupt waits and join the job goroutine
type jobHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// JobManager owns job goroutines and is the single writer of their status
type JobManager struct {
	store     *model.JobStore
	listeners []JobListener

	// device commands run on baseCtx so a stop request never kills one mid-flight
	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu      sync.Mutex
	handles map[string]*jobHandle
	closed  bool
	wg      sync.WaitGroup
}

// NewJobManager creates a job manager backed by store
func NewJobManager(store *model.JobStore, listeners ...JobListener) *JobManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &JobManager{
		store:      store,
		listeners:  listeners,
		baseCtx:    ctx,
		baseCancel: cancel,
		handles:    make(map[string]*jobHandle),
	}
}

// Submit registers a job in the starting state and runs it on its own goroutine.
// The job is visible to Get before this returns.
func (m *JobManager) Submit(runner JobRunner, devices []string) (model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return model.Job{}, ErrShuttingDown
	}

	job := m.store.Create(runner.Type(), devices)

	stopCtx, cancel := context.WithCancel(context.Background())
	handle := &jobHandle{cancel: cancel, done: make(chan struct{})}
	m.handles[job.ID] = handle
	m.wg.Add(1)

	slog.Info("Job submitted",
		"job_id", job.ID,
		"type", job.Type,
		"devices", len(devices),
	)

	go m.execute(stopCtx, job, runner, handle)

	return job, nil
}

// Get returns a snapshot of a job
func (m *JobManager) Get(jobID string) (model.Job, bool) {
	return m.store.Get(jobID)
}

// List returns every job known to the registry
func (m *JobManager) List() []model.Job {
	return m.store.List()
}

// ListActive returns the ids of non-terminal jobs
func (m *JobManager) ListActive() []string {
	return m.store.ListActive()
}

// RequestStop asks a job to stop. The executor observes the request at its next
// checkpoint or immediately if it is waiting. Listeners hear about the stopped
// job once its goroutine has exited, with the final counters.
func (m *JobManager) RequestStop(jobID string) (bool, error) {
	stopped, err := m.store.RequestStop(jobID)
	if err != nil || !stopped {
		return stopped, err
	}

	m.mu.Lock()
	if handle, ok := m.handles[jobID]; ok {
		handle.cancel()
	}
	m.mu.Unlock()

	slog.Info("Job stop requested", "job_id", jobID)
	return true, nil
}

// Wait blocks until the job goroutine has exited or ctx is done
func (m *JobManager) Wait(ctx context.Context, jobID string) error {
	m.mu.Lock()
	handle, ok := m.handles[jobID]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	select {
	case <-handle.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs, asks every running job to stop and waits for
// their goroutines until ctx expires, after which in-flight commands are killed
func (m *JobManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	ids := make([]string, 0, len(m.handles))
	for id := range m.handles {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	slog.Info("Stopping job manager", "running_jobs", len(ids))

	for _, id := range ids {
		if _, err := m.RequestStop(id); err != nil && !errors.Is(err, model.ErrJobNotFound) {
			slog.Warn("Failed to stop job during shutdown", "job_id", id, "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("All jobs stopped")
		m.baseCancel()
		return nil
	case <-ctx.Done():
		slog.Warn("Timeout waiting for jobs to stop")
		m.baseCancel()
		return ctx.Err()
	}
}

// execute is the single failure boundary of a job goroutine
func (m *JobManager) execute(stopCtx context.Context, job model.Job, runner JobRunner, handle *jobHandle) {
	defer m.wg.Done()
	defer close(handle.done)
	defer func() {
		m.mu.Lock()
		delete(m.handles, job.ID)
		m.mu.Unlock()
		handle.cancel()
	}()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Job panicked",
				"job_id", job.ID,
				"panic", r,
				"stack_trace", string(debug.Stack()),
			)
			m.finish(job.ID, model.JobStatusError, fmt.Sprintf("Error: %v", r))
		}
	}()

	running, err := m.store.Update(job.ID, func(j *model.Job) {
		j.Status = model.JobStatusRunning
		j.Message = "Job started"
	})
	if err != nil {
		slog.Info("Job stopped before it started", "job_id", job.ID, "error", err)
		m.settle(job.ID, "Job stopped before it started")
		return
	}
	m.notify(running)

	slog.Info("Starting job execution",
		"job_id", job.ID,
		"type", job.Type,
	)

	run := &JobRun{
		ID:      job.ID,
		Devices: job.Devices,
		manager: m,
		stop:    stopCtx,
	}

	summary, err := runner.Run(m.baseCtx, run)
	switch {
	case err != nil:
		slog.Error("Job failed", "job_id", job.ID, "error", err)
		m.finish(job.ID, model.JobStatusError, "Error: "+err.Error())
	case run.Stopped():
		slog.Info("Job stopped", "job_id", job.ID, "summary", summary)
		m.settle(job.ID, summary)
	default:
		slog.Info("Job completed", "job_id", job.ID, "summary", summary)
		m.finish(job.ID, model.JobStatusCompleted, summary)
	}
}

func (m *JobManager) finish(jobID string, status model.JobStatus, message string) {
	job, err := m.store.Update(jobID, func(j *model.Job) {
		j.Status = status
		j.Message = message
		if status == model.JobStatusCompleted {
			j.Progress = 100
		}
	})
	if errors.Is(err, model.ErrJobTerminal) {
		// a stop won the race
		m.settle(jobID, message)
		return
	}
	if err != nil {
		slog.Error("Failed to finish job", "job_id", jobID, "status", status, "error", err)
		return
	}
	m.notify(job)
}

// settle writes the closing message of a stopped job and tells the listeners
func (m *JobManager) settle(jobID, message string) {
	job, err := m.store.Amend(jobID, func(j *model.Job) {
		if message != "" {
			j.Message = message
		}
	})
	if err != nil {
		if !errors.Is(err, model.ErrJobTerminal) {
			slog.Error("Failed to settle stopped job", "job_id", jobID, "error", err)
		}
		return
	}
	m.notify(job)
}

// update applies fn to a live job. On a stopped job only counters and the
// message are kept, so work that was in flight at the stop is still counted.
func (m *JobManager) update(jobID string, fn func(*model.Job)) {
	_, err := m.store.Update(jobID, fn)
	if errors.Is(err, model.ErrJobTerminal) {
		_, err = m.store.Amend(jobID, fn)
	}
	if err != nil && !errors.Is(err, model.ErrJobTerminal) {
		slog.Warn("Failed to update job", "job_id", jobID, "error", err)
	}
}

func (m *JobManager) notify(job model.Job) {
	for _, l := range m.listeners {
		l.JobChanged(m.baseCtx, job)
	}
}
