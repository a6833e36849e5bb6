package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dandantas/adbfleet/internal/config"
	"github.com/dandantas/adbfleet/internal/device"
	"github.com/dandantas/adbfleet/internal/metadata"
	"github.com/dandantas/adbfleet/internal/model"
	"github.com/dandantas/adbfleet/internal/script"
)

// DurationPolicy decides what happens when a video duration cannot be looked up
type DurationPolicy string

const (
	// DurationFallback waits the default duration and only logs the failure
	DurationFallback DurationPolicy = "fallback"
	// DurationReport waits the default duration and says so in the job message
	DurationReport DurationPolicy = "report"
	// DurationFail ends the job with an error
	DurationFail DurationPolicy = "fail"
)

// PlaylistTimings are the delays of the playlist protocol
type PlaylistTimings struct {
	DurationBuffer  time.Duration
	DefaultDuration time.Duration
	ProbeInterval   time.Duration
	MessageInterval time.Duration
	DeviceSpacing   time.Duration
	SettleDelay     time.Duration
	Policy          DurationPolicy
}

// PlaylistTimingsFromConfig maps job configuration onto playlist timings
func PlaylistTimingsFromConfig(cfg config.JobConfig) PlaylistTimings {
	return PlaylistTimings{
		DurationBuffer:  cfg.DurationBuffer,
		DefaultDuration: cfg.DefaultDuration,
		ProbeInterval:   cfg.ProbeInterval,
		MessageInterval: cfg.MessageInterval,
		DeviceSpacing:   cfg.DeviceSpacing,
		SettleDelay:     cfg.SettleDelay,
		Policy:          DurationPolicy(cfg.DurationPolicy),
	}
}

// PlaylistRequest describes one playlist job. When Channel is set the video
// list is replaced by the channel's videos matching Filter.
type PlaylistRequest struct {
	Videos  []string
	Channel string
	Filter  metadata.ContentFilter
	// CustomDurations overrides duration lookups, in seconds, keyed by video URL
	CustomDurations map[string]int
}

// YouTubeAutomation plays a list of videos on every device, one video at a time
type YouTubeAutomation struct {
	exec     device.Executor
	catalog  *script.Catalog
	resolver metadata.DurationResolver
	channels metadata.ChannelResolver
	probe    *ForegroundProbe
	timings  PlaylistTimings
}

// NewYouTubeAutomation wires the playlist protocol. resolver may be nil.
func NewYouTubeAutomation(
	exec device.Executor,
	catalog *script.Catalog,
	resolver metadata.DurationResolver,
	timings PlaylistTimings,
) *YouTubeAutomation {
	return &YouTubeAutomation{
		exec:     exec,
		catalog:  catalog,
		resolver: resolver,
		probe:    NewForegroundProbe(exec, catalog.YouTube.Probe),
		timings:  timings,
	}
}

// WithChannels enables channel requests
func (a *YouTubeAutomation) WithChannels(channels metadata.ChannelResolver) *YouTubeAutomation {
	a.channels = channels
	return a
}

// Job returns the runner for one request
func (a *YouTubeAutomation) Job(req PlaylistRequest) JobRunner {
	return &playlistJob{YouTubeAutomation: a, req: req}
}

type playlistJob struct {
	*YouTubeAutomation
	req PlaylistRequest
}

func (j *playlistJob) Type() model.JobType { return model.JobTypeYouTube }

func (j *playlistJob) Run(ctx context.Context, run *JobRun) (string, error) {
	if len(run.Devices) == 0 {
		return "", errors.New("no devices selected")
	}
	videos := j.req.Videos
	if j.req.Channel != "" {
		var err error
		if videos, err = j.channelVideos(ctx, run); err != nil {
			return "", err
		}
	}
	if len(videos) == 0 {
		return "", errors.New("no videos to play")
	}
	if err := j.exec.Available(ctx); err != nil {
		return "", err
	}

	total := len(videos)
	run.Count(model.JobCounters{TotalUnits: total})

	played := 0
	for i, videoURL := range videos {
		if run.Stopped() {
			break
		}

		run.Progress(i, total, fmt.Sprintf("Playing video %d/%d on all devices", i+1, total))

		if err := j.dispatch(ctx, run, videoURL); err != nil {
			return "", err
		}
		if run.Stopped() {
			break
		}

		duration, reported, err := j.duration(ctx, run, i, videoURL)
		if err != nil {
			return "", err
		}
		if !reported {
			run.Message(fmt.Sprintf("Waiting for video %d to complete... (Duration: %s)", i+1, metadata.FormatDuration(duration)))
		}

		if !j.waitForPlayback(ctx, run, i, duration) {
			break
		}

		played++
		run.Count(model.JobCounters{UnitsProcessed: 1})
	}

	if run.Stopped() {
		return fmt.Sprintf("YouTube automation stopped after %d of %d videos on %d devices.", played, total, len(run.Devices)), nil
	}
	return fmt.Sprintf("YouTube automation completed. Played %d videos on %d devices.", played, len(run.Devices)), nil
}

func (j *playlistJob) channelVideos(ctx context.Context, run *JobRun) ([]string, error) {
	filter := j.req.Filter
	if filter == "" {
		filter = metadata.ContentAll
	}
	if j.channels == nil {
		return nil, errors.New("channel lookup is not configured")
	}

	run.Message(fmt.Sprintf("Extracting %s from YouTube channel...", filter))
	videos, err := j.channels.ChannelVideos(ctx, j.req.Channel, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s from channel: %w", filter, err)
	}

	slog.Info("Channel videos extracted",
		"job_id", run.ID,
		"channel", j.req.Channel,
		"filter", filter,
		"count", len(videos),
	)
	run.Message(fmt.Sprintf("Found %d %s from channel", len(videos), filter))
	return metadata.URLs(videos), nil
}

// dispatch starts the video on each device in order. Device failures are counted.
func (j *playlistJob) dispatch(ctx context.Context, run *JobRun, videoURL string) error {
	play, err := script.Render(j.catalog.YouTube.Play, map[string]string{"URL": videoURL})
	if err != nil {
		return err
	}

	for i, deviceID := range run.Devices {
		if run.Stopped() {
			return nil
		}

		result := j.exec.Execute(ctx, play, deviceID)
		if result.Success {
			run.Pause(ctx, j.timings.SettleDelay)
			j.afterPlay(ctx, run, deviceID)
			run.Count(model.JobCounters{SuccessfulDispatches: 1})
		} else {
			slog.Warn("Failed to start video",
				"job_id", run.ID,
				"device_id", deviceID,
				"error", result.Error,
			)
			run.Count(model.JobCounters{FailedDispatches: 1})
		}

		if i < len(run.Devices)-1 && !run.Wait(ctx, j.timings.DeviceSpacing) {
			return nil
		}
	}
	return nil
}

// afterPlay runs the follow-up steps that make sure playback actually starts
func (j *playlistJob) afterPlay(ctx context.Context, run *JobRun, deviceID string) {
	for _, step := range j.catalog.YouTube.AfterPlay {
		command, err := script.Render(step.Command, nil)
		if err != nil {
			slog.Warn("Failed to render step", "step", step.Name, "error", err)
			continue
		}
		if result := j.exec.Execute(ctx, command, deviceID); !result.Success {
			slog.Debug("Step failed",
				"job_id", run.ID,
				"device_id", deviceID,
				"step", step.Name,
				"error", result.Error,
			)
		}
		run.Pause(ctx, time.Duration(step.Wait))
	}
}

// duration resolves how long to wait for a video. reported is true when the
// job message already explains a fallback.
func (j *playlistJob) duration(ctx context.Context, run *JobRun, index int, videoURL string) (d time.Duration, reported bool, err error) {
	if seconds, ok := j.req.CustomDurations[videoURL]; ok && seconds > 0 {
		return time.Duration(seconds) * time.Second, false, nil
	}

	run.Message(fmt.Sprintf("Getting duration for video %d...", index+1))

	err = errors.New("no duration resolver configured")
	if j.resolver != nil {
		if d, err = j.resolver.Resolve(ctx, videoURL); err == nil {
			return d, false, nil
		}
	}

	if j.timings.Policy == DurationFail {
		return 0, false, fmt.Errorf("duration lookup failed for %s: %w", videoURL, err)
	}

	slog.Warn("Duration lookup failed, using default",
		"job_id", run.ID,
		"video_url", videoURL,
		"default", j.timings.DefaultDuration,
		"error", err,
	)
	run.Count(model.JobCounters{DurationLookupFailures: 1})
	if j.timings.Policy == DurationReport {
		run.Message(fmt.Sprintf("Duration lookup failed for video %d, waiting default %s", index+1, metadata.FormatDuration(j.timings.DefaultDuration)))
		return j.timings.DefaultDuration, true, nil
	}
	return j.timings.DefaultDuration, false, nil
}

// waitForPlayback waits duration plus the buffer, probing the devices so the
// wait can end early. It reports false when a stop interrupted the wait.
func (j *playlistJob) waitForPlayback(ctx context.Context, run *JobRun, index int, duration time.Duration) bool {
	deadline := time.Now().Add(duration + j.timings.DurationBuffer)

	lastProbe, lastMessage := time.Now(), time.Now()
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}

		step := remaining
		if j.probe != nil && j.timings.ProbeInterval > 0 && j.timings.ProbeInterval < step {
			step = j.timings.ProbeInterval
		}
		if j.timings.MessageInterval > 0 && j.timings.MessageInterval < step {
			step = j.timings.MessageInterval
		}

		if !run.Wait(ctx, step) {
			return false
		}

		now := time.Now()
		if j.probe != nil && j.timings.ProbeInterval > 0 && now.Sub(lastProbe) >= j.timings.ProbeInterval {
			lastProbe = now
			if j.probe.PlaybackEnded(ctx, run.Devices) {
				slog.Info("Video completion detected early",
					"job_id", run.ID,
					"video", index+1,
					"remaining", time.Until(deadline).Round(time.Second),
				)
				return true
			}
		}
		if j.timings.MessageInterval > 0 && now.Sub(lastMessage) >= j.timings.MessageInterval {
			lastMessage = now
			run.Message(fmt.Sprintf("Video %d playing... (%s remaining, duration: %s)",
				index+1,
				metadata.FormatDuration(time.Until(deadline)),
				metadata.FormatDuration(duration),
			))
		}
	}
}
