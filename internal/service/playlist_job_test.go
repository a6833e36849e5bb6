package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dandantas/adbfleet/internal/device"
	"github.com/dandantas/adbfleet/internal/metadata"
	"github.com/dandantas/adbfleet/internal/model"
)

func TestPlaylistProgressSequence(t *testing.T) {
	store := model.NewJobStore()
	manager := NewJobManager(store)

	var mu sync.Mutex
	var progress []int
	exec := &fakeExecutor{}
	exec.respond = func(command, deviceID string) (model.CommandResult, bool) {
		if strings.HasPrefix(command, "shell am start -d") && deviceID == "d1" {
			mu.Lock()
			progress = append(progress, store.List()[0].Progress)
			mu.Unlock()
		}
		return model.CommandResult{}, false
	}

	resolver := fixedResolver{fn: func(string) (time.Duration, error) { return time.Millisecond, nil }}
	automation := NewYouTubeAutomation(exec, loadTestCatalog(t), resolver, instantTimings())

	job := runToEnd(t, manager, automation.Job(PlaylistRequest{
		Videos: []string{"https://youtu.be/aaaaaaaaaaa", "https://youtu.be/bbbbbbbbbbb", "https://youtu.be/ccccccccccc"},
	}), []string{"d1", "d2"})

	if job.Status != model.JobStatusCompleted {
		t.Fatalf("Expected completed, got %s (%s)", job.Status, job.Message)
	}

	progress = append(progress, job.Progress)
	want := []int{0, 33, 66, 100}
	if len(progress) != len(want) {
		t.Fatalf("Observed progress %v, want %v", progress, want)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Errorf("Progress[%d] = %d, want %d", i, progress[i], want[i])
		}
	}

	if job.Counters.UnitsProcessed != 3 || job.Counters.TotalUnits != 3 {
		t.Errorf("Unexpected unit counters %+v", job.Counters)
	}
	if job.Counters.SuccessfulDispatches != 6 {
		t.Errorf("Expected 6 dispatches, got %d", job.Counters.SuccessfulDispatches)
	}
	if job.Message != "YouTube automation completed. Played 3 videos on 2 devices." {
		t.Errorf("Unexpected summary %q", job.Message)
	}
}

func TestPlaylistStopDuringWait(t *testing.T) {
	manager := NewJobManager(model.NewJobStore())
	exec := &fakeExecutor{}

	reached := make(chan struct{})
	resolver := fixedResolver{fn: func(videoURL string) (time.Duration, error) {
		if strings.Contains(videoURL, "bbbbbbbbbbb") {
			close(reached)
			return time.Hour, nil
		}
		return time.Millisecond, nil
	}}
	automation := NewYouTubeAutomation(exec, loadTestCatalog(t), resolver, instantTimings())

	job, err := manager.Submit(automation.Job(PlaylistRequest{
		Videos: []string{"https://youtu.be/aaaaaaaaaaa", "https://youtu.be/bbbbbbbbbbb", "https://youtu.be/ccccccccccc"},
	}), []string{"d1"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	select {
	case <-reached:
	case <-time.After(5 * time.Second):
		t.Fatal("Second video was never reached")
	}
	if _, err := manager.RequestStop(job.ID); err != nil {
		t.Fatalf("RequestStop() error = %v", err)
	}

	final := waitJob(t, manager, job.ID)
	if final.Status != model.JobStatusStopped {
		t.Fatalf("Expected stopped, got %s", final.Status)
	}
	if final.Counters.UnitsProcessed != 1 {
		t.Errorf("Expected 1 processed unit, got %d", final.Counters.UnitsProcessed)
	}
	if final.Message != "YouTube automation stopped after 1 of 3 videos on 1 devices." {
		t.Errorf("Unexpected stop summary %q", final.Message)
	}
	for _, c := range exec.commands("shell am start -d") {
		if strings.Contains(c.command, "ccccccccccc") {
			t.Error("Third video must never be dispatched after a stop")
		}
	}
}

func TestPlaylistValidation(t *testing.T) {
	tests := []struct {
		name    string
		exec    *fakeExecutor
		videos  []string
		devices []string
		message string
	}{
		{
			name:    "no videos",
			exec:    &fakeExecutor{},
			devices: []string{"d1"},
			message: "Error: no videos to play",
		},
		{
			name:    "no devices",
			exec:    &fakeExecutor{},
			videos:  []string{"https://youtu.be/aaaaaaaaaaa"},
			message: "Error: no devices selected",
		},
		{
			name:    "adb unavailable",
			exec:    &fakeExecutor{availableErr: device.ErrUnavailable},
			videos:  []string{"https://youtu.be/aaaaaaaaaaa"},
			devices: []string{"d1"},
			message: "Error: " + device.ErrUnavailable.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := NewJobManager(model.NewJobStore())
			automation := NewYouTubeAutomation(tt.exec, loadTestCatalog(t), nil, instantTimings())

			job := runToEnd(t, manager, automation.Job(PlaylistRequest{Videos: tt.videos}), tt.devices)

			if job.Status != model.JobStatusError {
				t.Fatalf("Expected error, got %s", job.Status)
			}
			if job.Message != tt.message {
				t.Errorf("Message = %q, want %q", job.Message, tt.message)
			}
			if len(tt.exec.commands("shell am start")) != 0 {
				t.Error("No video should be dispatched")
			}
		})
	}
}

func TestPlaylistDispatchFailureIsCounted(t *testing.T) {
	manager := NewJobManager(model.NewJobStore())
	exec := &fakeExecutor{respond: func(command, deviceID string) (model.CommandResult, bool) {
		if deviceID == "d2" && strings.HasPrefix(command, "shell am start") {
			return model.CommandResult{Success: false, Error: "device offline"}, true
		}
		return model.CommandResult{}, false
	}}
	automation := NewYouTubeAutomation(exec, loadTestCatalog(t), nil, instantTimings())

	job := runToEnd(t, manager, automation.Job(PlaylistRequest{
		Videos: []string{"https://youtu.be/aaaaaaaaaaa"},
	}), []string{"d1", "d2"})

	if job.Status != model.JobStatusCompleted {
		t.Fatalf("Expected completed, got %s", job.Status)
	}
	if job.Counters.SuccessfulDispatches != 1 || job.Counters.FailedDispatches != 1 {
		t.Errorf("Unexpected dispatch counters %+v", job.Counters)
	}
}

func TestPlaylistDurationPolicy(t *testing.T) {
	failing := fixedResolver{fn: func(string) (time.Duration, error) { return 0, errors.New("quota exceeded") }}

	t.Run("fallback counts the failure", func(t *testing.T) {
		manager := NewJobManager(model.NewJobStore())
		automation := NewYouTubeAutomation(&fakeExecutor{}, loadTestCatalog(t), failing, instantTimings())

		job := runToEnd(t, manager, automation.Job(PlaylistRequest{Videos: []string{"https://youtu.be/aaaaaaaaaaa"}}), []string{"d1"})
		if job.Status != model.JobStatusCompleted {
			t.Fatalf("Expected completed, got %s", job.Status)
		}
		if job.Counters.DurationLookupFailures != 1 {
			t.Errorf("Expected 1 lookup failure, got %d", job.Counters.DurationLookupFailures)
		}
	})

	t.Run("fail ends the job", func(t *testing.T) {
		timings := instantTimings()
		timings.Policy = DurationFail
		manager := NewJobManager(model.NewJobStore())
		automation := NewYouTubeAutomation(&fakeExecutor{}, loadTestCatalog(t), failing, timings)

		job := runToEnd(t, manager, automation.Job(PlaylistRequest{Videos: []string{"https://youtu.be/aaaaaaaaaaa"}}), []string{"d1"})
		if job.Status != model.JobStatusError {
			t.Fatalf("Expected error, got %s", job.Status)
		}
		if !strings.Contains(job.Message, "quota exceeded") {
			t.Errorf("Expected lookup error in message, got %q", job.Message)
		}
	})

	t.Run("custom duration skips lookup", func(t *testing.T) {
		timings := instantTimings()
		timings.Policy = DurationFail
		manager := NewJobManager(model.NewJobStore())
		automation := NewYouTubeAutomation(&fakeExecutor{}, loadTestCatalog(t), failing, timings)

		started := time.Now()
		job := runToEnd(t, manager, automation.Job(PlaylistRequest{
			Videos:          []string{"https://youtu.be/aaaaaaaaaaa"},
			CustomDurations: map[string]int{"https://youtu.be/aaaaaaaaaaa": 1},
		}), []string{"d1"})
		if job.Status != model.JobStatusCompleted {
			t.Fatalf("Expected completed, got %s (%s)", job.Status, job.Message)
		}
		if time.Since(started) < time.Second {
			t.Error("Expected the custom one second duration to be waited")
		}
	})
}

func TestPlaylistProbeEndsWaitEarly(t *testing.T) {
	manager := NewJobManager(model.NewJobStore())
	exec := &fakeExecutor{respond: func(command, deviceID string) (model.CommandResult, bool) {
		if strings.HasPrefix(command, "shell dumpsys window") {
			return model.CommandResult{Success: true, Output: "mCurrentFocus=com.android.launcher"}, true
		}
		return model.CommandResult{}, false
	}}
	resolver := fixedResolver{fn: func(string) (time.Duration, error) { return time.Hour, nil }}

	timings := instantTimings()
	timings.ProbeInterval = 5 * time.Millisecond
	automation := NewYouTubeAutomation(exec, loadTestCatalog(t), resolver, timings)

	job := runToEnd(t, manager, automation.Job(PlaylistRequest{Videos: []string{"https://youtu.be/aaaaaaaaaaa"}}), []string{"d1"})
	if job.Status != model.JobStatusCompleted {
		t.Fatalf("Expected completed after early end, got %s", job.Status)
	}
	if len(exec.commands("shell dumpsys window")) == 0 {
		t.Error("Expected the foreground probe to run")
	}
}

// fakeChannels answers channel lookups through fn and records the filters asked for
type fakeChannels struct {
	mu      sync.Mutex
	filters []metadata.ContentFilter
	fn      func(channel string) ([]metadata.ChannelVideo, error)
}

func (f *fakeChannels) ChannelVideos(ctx context.Context, channel string, filter metadata.ContentFilter) ([]metadata.ChannelVideo, error) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()
	return f.fn(channel)
}

func TestPlaylistChannelReplacesVideos(t *testing.T) {
	channels := &fakeChannels{fn: func(channel string) ([]metadata.ChannelVideo, error) {
		return []metadata.ChannelVideo{
			{URL: "https://www.youtube.com/watch?v=aaaaaaaaaaa", Category: "videos"},
			{URL: "https://www.youtube.com/watch?v=bbbbbbbbbbb", Category: "shorts"},
		}, nil
	}}
	exec := &fakeExecutor{}
	manager := NewJobManager(model.NewJobStore())
	automation := NewYouTubeAutomation(exec, loadTestCatalog(t), nil, instantTimings()).WithChannels(channels)

	job := runToEnd(t, manager, automation.Job(PlaylistRequest{
		Videos:  []string{"https://youtu.be/zzzzzzzzzzz"},
		Channel: "@someone",
	}), []string{"d1"})

	if job.Status != model.JobStatusCompleted {
		t.Fatalf("Expected completed, got %s (%s)", job.Status, job.Message)
	}
	if job.Counters.TotalUnits != 2 || job.Counters.UnitsProcessed != 2 {
		t.Errorf("Unexpected unit counters %+v", job.Counters)
	}
	if len(channels.filters) != 1 || channels.filters[0] != metadata.ContentAll {
		t.Errorf("Expected one lookup with the all filter, got %v", channels.filters)
	}

	played := exec.commands("shell am start -d")
	if len(played) != 2 || !strings.Contains(played[0].command, "aaaaaaaaaaa") || !strings.Contains(played[1].command, "bbbbbbbbbbb") {
		t.Errorf("Dispatched %+v, want the channel videos in order", played)
	}
}

func TestPlaylistChannelFailures(t *testing.T) {
	tests := []struct {
		name     string
		channels metadata.ChannelResolver
		message  string
	}{
		{
			name: "nothing found",
			channels: &fakeChannels{fn: func(string) ([]metadata.ChannelVideo, error) {
				return nil, metadata.ErrNoChannelVideos
			}},
			message: "Error: failed to extract shorts from channel: " + metadata.ErrNoChannelVideos.Error(),
		},
		{
			name:    "no resolver",
			message: "Error: channel lookup is not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{}
			manager := NewJobManager(model.NewJobStore())
			automation := NewYouTubeAutomation(exec, loadTestCatalog(t), nil, instantTimings())
			if tt.channels != nil {
				automation.WithChannels(tt.channels)
			}

			job := runToEnd(t, manager, automation.Job(PlaylistRequest{
				Channel: "@someone",
				Filter:  metadata.ContentShorts,
			}), []string{"d1"})

			if job.Status != model.JobStatusError {
				t.Fatalf("Expected error, got %s", job.Status)
			}
			if job.Message != tt.message {
				t.Errorf("Message = %q, want %q", job.Message, tt.message)
			}
			if len(exec.commands("shell am start")) != 0 {
				t.Error("No video should be dispatched")
			}
		})
	}
}
