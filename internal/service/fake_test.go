package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dandantas/adbfleet/internal/model"
	"github.com/dandantas/adbfleet/internal/script"
)

const testCatalog = `
youtube:
  play: "shell am start -d {{quote .URL}}"
  probe:
    command: "shell dumpsys window"
    operator: contains
    expected: youtube
signin:
  preflight:
    - name: browser installed
      command: "shell pm list packages"
      operator: regex
      expected: "chrome"
  steps:
    - name: open sync settings
      command: "shell am start -a android.settings.SYNC_SETTINGS"
      required: true
    - name: add account
      command: "shell input tap 600 300"
    - name: enter email
      command: "shell input text {{text .Email}}"
      required: true
    - name: enter password
      command: "shell input text {{text .Password}}"
      required: true
  verify:
    command: "shell dumpsys account"
    operator: contains
    expected: google
`

func loadTestCatalog(t *testing.T) *script.Catalog {
	t.Helper()
	catalog, err := script.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("Failed to parse test catalog: %v", err)
	}
	return catalog
}

type call struct {
	deviceID string
	command  string
}

// fakeExecutor answers get-state with "device" and everything else with
// success unless respond says otherwise
type fakeExecutor struct {
	mu           sync.Mutex
	calls        []call
	availableErr error
	respond      func(command, deviceID string) (model.CommandResult, bool)
}

func (f *fakeExecutor) Execute(ctx context.Context, command, deviceID string) model.CommandResult {
	f.mu.Lock()
	f.calls = append(f.calls, call{deviceID: deviceID, command: command})
	respond := f.respond
	f.mu.Unlock()

	if respond != nil {
		if result, ok := respond(command, deviceID); ok {
			return result
		}
	}
	switch {
	case command == "get-state":
		return model.CommandResult{Success: true, Output: "device"}
	case strings.HasPrefix(command, "shell pm list packages"):
		return model.CommandResult{Success: true, Output: "package:com.android.chrome"}
	case strings.HasPrefix(command, "shell dumpsys window"):
		return model.CommandResult{Success: true, Output: "mCurrentFocus=com.google.android.youtube"}
	case strings.HasPrefix(command, "shell dumpsys account"):
		return model.CommandResult{Success: true, Output: "Account {name=a@example.com, type=com.google}"}
	}
	return model.CommandResult{Success: true}
}

func (f *fakeExecutor) Available(ctx context.Context) error { return f.availableErr }

func (f *fakeExecutor) commands(prefix string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []call
	for _, c := range f.calls {
		if strings.HasPrefix(c.command, prefix) {
			matched = append(matched, c)
		}
	}
	return matched
}

// fixedResolver answers every lookup through fn
type fixedResolver struct {
	fn func(videoURL string) (time.Duration, error)
}

func (r fixedResolver) Resolve(ctx context.Context, videoURL string) (time.Duration, error) {
	return r.fn(videoURL)
}

func instantTimings() PlaylistTimings {
	return PlaylistTimings{
		DefaultDuration: time.Millisecond,
		Policy:          DurationFallback,
	}
}

// runToEnd submits a runner and waits for its goroutine to exit
func runToEnd(t *testing.T, manager *JobManager, runner JobRunner, devices []string) model.Job {
	t.Helper()

	job, err := manager.Submit(runner, devices)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return waitJob(t, manager, job.ID)
}

// waitJob blocks until the job goroutine exits and returns the final state
func waitJob(t *testing.T, manager *JobManager, jobID string) model.Job {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := manager.Wait(ctx, jobID); err != nil {
		t.Fatalf("Job %s did not finish: %v", jobID, err)
	}

	final, ok := manager.Get(jobID)
	if !ok {
		t.Fatalf("Job %s disappeared", jobID)
	}
	return final
}
