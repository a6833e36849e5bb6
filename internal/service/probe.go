package service

import (
	"context"
	"log/slog"

	"github.com/dandantas/adbfleet/internal/device"
	"github.com/dandantas/adbfleet/internal/script"
)

// ForegroundProbe guesses whether playback has ended by checking which app
// holds focus on each device.
//
// The guess is best effort. A false "ended" only shortens the current wait and
// a missed end only means waiting the full timer; neither affects job status
// or counters.
type ForegroundProbe struct {
	exec  device.Executor
	check script.Check
}

// NewForegroundProbe builds a probe from a catalog check. A check without a
// command yields a nil probe, which never ends a wait early.
func NewForegroundProbe(exec device.Executor, check script.Check) *ForegroundProbe {
	if check.Command == "" {
		return nil
	}
	return &ForegroundProbe{exec: exec, check: check}
}

// PlaybackEnded reports true as soon as one device no longer shows the player
func (p *ForegroundProbe) PlaybackEnded(ctx context.Context, devices []string) bool {
	if p == nil {
		return false
	}

	command, err := script.Render(p.check.Command, nil)
	if err != nil {
		slog.Warn("Failed to render foreground probe", "error", err)
		return false
	}

	for _, deviceID := range devices {
		result := p.exec.Execute(ctx, command, deviceID)
		matched, err := p.check.Match(result.Output)
		if err != nil {
			slog.Warn("Foreground probe check failed", "device_id", deviceID, "error", err)
			continue
		}
		if !result.Success || !matched {
			slog.Debug("Player no longer in focus", "device_id", deviceID)
			return true
		}
	}
	return false
}
