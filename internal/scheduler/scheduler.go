package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner drops finished jobs that ended before cutoff
type Pruner interface {
	Prune(cutoff time.Time) int
}

// Janitor periodically removes finished jobs from the registry
type Janitor struct {
	cron      *cron.Cron
	pruner    Pruner
	retention time.Duration
	now       func() time.Time
}

// NewJanitor schedules pruning on a cron spec such as "@every 10m" or "*/5 * * * *"
func NewJanitor(pruner Pruner, retention time.Duration, spec string) (*Janitor, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	j := &Janitor{
		cron:      cron.New(cron.WithParser(parser)),
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
	}

	if _, err := j.cron.AddFunc(spec, j.Sweep); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", spec, err)
	}
	return j, nil
}

// Start begins running sweeps in the background
func (j *Janitor) Start() {
	slog.Info("Starting job janitor", "retention", j.retention)
	j.cron.Start()
}

// Stop waits for a running sweep to finish or ctx to expire
func (j *Janitor) Stop(ctx context.Context) {
	done := j.cron.Stop().Done()

	select {
	case <-done:
		slog.Info("Job janitor stopped")
	case <-ctx.Done():
		slog.Warn("Timeout waiting for job janitor to stop")
	}
}

// Sweep prunes once
func (j *Janitor) Sweep() {
	cutoff := j.now().UTC().Add(-j.retention)
	if removed := j.pruner.Prune(cutoff); removed > 0 {
		slog.Info("Pruned finished jobs", "count", removed, "cutoff", cutoff.Format(time.RFC3339))
	}
}
