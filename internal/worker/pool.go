package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dandantas/adbfleet/internal/model"
)

// ErrPoolStopped is returned by Submit after Stop
var ErrPoolStopped = errors.New("worker pool is stopped")

// ExecutorFunc runs one command on one device
type ExecutorFunc func(ctx context.Context, command, deviceID string) model.CommandResult

// WorkerPool bounds how many device commands run at once
type WorkerPool struct {
	workers    int
	jobs       chan Job
	executorFn ExecutorFunc
	wg         sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workers int, jobQueueSize int, fn ExecutorFunc) *WorkerPool {
	return &WorkerPool{
		workers:    workers,
		jobs:       make(chan Job, jobQueueSize),
		executorFn: fn,
	}
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	slog.Info("Starting worker pool", "workers", wp.workers)

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop drains queued jobs and waits for the workers to exit
func (wp *WorkerPool) Stop() {
	slog.Info("Stopping worker pool")

	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobs)
	wp.mu.Unlock()

	wp.wg.Wait()

	slog.Info("Worker pool stopped")
}

// Submit queues a job, blocking while the queue is full
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrPoolStopped
	}

	select {
	case wp.jobs <- job:
		slog.Debug("Job submitted to worker pool",
			"device_id", job.DeviceID,
			"correlation_id", job.CorrelationID,
		)
		return nil
	case <-job.Context.Done():
		return job.Context.Err()
	}
}

// Run executes command on every device through the pool and collects the
// results keyed by device id
func (wp *WorkerPool) Run(ctx context.Context, correlationID, command string, devices []string) (map[string]model.CommandResult, error) {
	reply := make(chan Result, len(devices))

	submitted := 0
	for _, deviceID := range devices {
		err := wp.Submit(Job{
			DeviceID:      deviceID,
			Command:       command,
			CorrelationID: correlationID,
			Context:       ctx,
			Reply:         reply,
		})
		if err != nil {
			return nil, err
		}
		submitted++
	}

	results := make(map[string]model.CommandResult, submitted)
	for i := 0; i < submitted; i++ {
		select {
		case r := <-reply:
			results[r.DeviceID] = r.Result
		case <-ctx.Done():
			return results, ctx.Err()
		}
	}
	return results, nil
}

// worker is the worker goroutine that processes jobs
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	slog.Debug("Worker started", "worker_id", id)

	for job := range wp.jobs {
		slog.Debug("Worker processing job",
			"worker_id", id,
			"device_id", job.DeviceID,
			"correlation_id", job.CorrelationID,
		)

		result := wp.executorFn(job.Context, job.Command, job.DeviceID)
		if job.Reply != nil {
			job.Reply <- Result{DeviceID: job.DeviceID, Result: result}
		}
	}

	slog.Debug("Worker stopped", "worker_id", id)
}

// GetJobQueueLength returns the current number of jobs in the queue
func (wp *WorkerPool) GetJobQueueLength() int {
	return len(wp.jobs)
}
