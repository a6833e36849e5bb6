package model

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStore is the process-wide, concurrency-safe registry of jobs.
// Callers only ever see copies; all mutation goes through Update.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewJobStore creates an empty job store
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a new job in the starting state and returns its snapshot
func (s *JobStore) Create(jobType JobType, devices []string) Job {
	now := s.now()
	job := &Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Status:    JobStatusStarting,
		Message:   "Job created",
		Devices:   append([]string(nil), devices...),
		Counters:  JobCounters{TotalDevices: len(devices)},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job

	return job.clone()
}

// Get returns a snapshot of a job
func (s *JobStore) Get(jobID string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return Job{}, false
	}
	return job.clone(), true
}

// Update applies fn to a copy of the job and commits it atomically.
// The change is rejected if it leaves a terminal state, makes an illegal
// transition, lowers progress or any counter, or touches identity fields.
func (s *JobStore) Update(jobID string, fn func(*Job)) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.jobs[jobID]
	if !exists {
		return Job{}, ErrJobNotFound
	}
	if current.Status.IsTerminal() {
		return current.clone(), ErrJobTerminal
	}

	next := current.clone()
	fn(&next)

	if err := checkUpdate(current, &next); err != nil {
		return current.clone(), err
	}

	next.UpdatedAt = s.now()
	if next.Status.IsTerminal() {
		ended := next.UpdatedAt
		next.EndedAt = &ended
	}
	s.jobs[jobID] = &next

	return next.clone(), nil
}

// Amend records the outcome of work that was already in flight when a stop
// request arrived. Only counter increases and the message of a stopped job
// change; status, progress and identity stay as they are.
func (s *JobStore) Amend(jobID string, fn func(*Job)) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.jobs[jobID]
	if !exists {
		return Job{}, ErrJobNotFound
	}
	switch {
	case current.Status == JobStatusStopped:
	case current.Status.IsTerminal():
		return current.clone(), ErrJobTerminal
	default:
		return current.clone(), fmt.Errorf("%w: job is %s", ErrNotStopped, current.Status)
	}

	scratch := current.clone()
	fn(&scratch)
	if !scratch.Counters.covers(current.Counters) {
		return current.clone(), ErrCounterRegression
	}

	next := current.clone()
	next.Counters = scratch.Counters
	next.Message = scratch.Message
	next.UpdatedAt = s.now()
	s.jobs[jobID] = &next

	return next.clone(), nil
}

func checkUpdate(prev *Job, next *Job) error {
	if next.ID != prev.ID || next.Type != prev.Type || !slices.Equal(next.Devices, prev.Devices) || !next.CreatedAt.Equal(prev.CreatedAt) {
		return ErrImmutableField
	}
	if next.Status != prev.Status && !prev.Status.CanTransition(next.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev.Status, next.Status)
	}
	if next.Progress < prev.Progress {
		return fmt.Errorf("%w: %d -> %d", ErrProgressRegression, prev.Progress, next.Progress)
	}
	if next.Progress > 100 {
		next.Progress = 100
	}
	if !next.Counters.covers(prev.Counters) {
		return ErrCounterRegression
	}
	return nil
}

// RequestStop marks a non-terminal job as stopped. It returns false when the
// job had already reached a terminal state, and ErrJobNotFound for unknown ids.
func (s *JobStore) RequestStop(jobID string) (bool, error) {
	_, err := s.Update(jobID, func(j *Job) {
		j.Status = JobStatusStopped
		j.Message = "Stop requested"
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrJobTerminal):
		return false, nil
	default:
		return false, err
	}
}

// ListActive returns the ids of all non-terminal jobs, oldest first
func (s *JobStore) ListActive() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]*Job, 0)
	for _, job := range s.jobs {
		if !job.Status.IsTerminal() {
			active = append(active, job)
		}
	}
	sortByCreation(active)

	ids := make([]string, 0, len(active))
	for _, job := range active {
		ids = append(ids, job.ID)
	}
	return ids
}

// List returns snapshots of all jobs, oldest first
func (s *JobStore) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		all = append(all, job)
	}
	sortByCreation(all)

	out := make([]Job, 0, len(all))
	for _, job := range all {
		out = append(out, job.clone())
	}
	return out
}

// Prune removes terminal jobs that ended before cutoff and returns how many went
func (s *JobStore) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		if job.Status.IsTerminal() && job.EndedAt != nil && job.EndedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

func sortByCreation(jobs []*Job) {
	slices.SortFunc(jobs, func(a, b *Job) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}
