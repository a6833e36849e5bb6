package device

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FrameSource captures one still image of a device screen
type FrameSource interface {
	Capture(ctx context.Context, deviceID string) ([]byte, error)
}

// ScreenCapturer grabs frames with screencap, pulls them to the host and
// cleans up both copies
type ScreenCapturer struct {
	exec      Executor
	tempDir   string
	remoteDir string
}

// NewScreenCapturer creates a capturer writing temporary frames under tempDir
func NewScreenCapturer(exec Executor, tempDir string) *ScreenCapturer {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &ScreenCapturer{
		exec:      exec,
		tempDir:   tempDir,
		remoteDir: "/sdcard",
	}
}

// Capture returns the PNG bytes of the current screen
func (c *ScreenCapturer) Capture(ctx context.Context, deviceID string) ([]byte, error) {
	name := fmt.Sprintf("adbfleet_%s.png", uuid.NewString())
	remote := c.remoteDir + "/" + name
	local := filepath.Join(c.tempDir, sanitize(deviceID)+"_"+name)

	result := c.exec.Execute(ctx, "shell screencap -p "+ShellQuote(remote), deviceID)
	if !result.Success {
		return nil, fmt.Errorf("screencap failed: %s", result.Error)
	}
	defer c.exec.Execute(ctx, "shell rm -f "+ShellQuote(remote), deviceID)

	result = c.exec.Execute(ctx, "pull "+ShellQuote(remote)+" "+ShellQuote(local), deviceID)
	if !result.Success {
		return nil, fmt.Errorf("pull failed: %s", result.Error)
	}
	defer os.Remove(local)

	data, err := os.ReadFile(local)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	return data, nil
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
}
