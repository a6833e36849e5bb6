package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/dandantas/adbfleet/internal/model"
)

// waitDelay bounds how long Execute waits for output pipes after the command
// was killed
const waitDelay = time.Second

// ErrUnavailable means the command-line device tool cannot be run at all
var ErrUnavailable = errors.New("adb is not available")

// Executor runs commands against attached devices.
// Execute never fails: every problem is reported through the CommandResult.
type Executor interface {
	Execute(ctx context.Context, command, deviceID string) model.CommandResult
	Available(ctx context.Context) error
}

// ADBExecutor runs `adb -s <device> <command>` through the shell so that
// host-side pipes in command templates keep working
type ADBExecutor struct {
	adbPath string
	timeout time.Duration
}

// NewADBExecutor creates an executor bounded by timeout per command
func NewADBExecutor(adbPath string, timeout time.Duration) *ADBExecutor {
	if adbPath == "" {
		adbPath = "adb"
	}
	return &ADBExecutor{
		adbPath: adbPath,
		timeout: timeout,
	}
}

// Execute runs one command. An empty deviceID targets the adb server itself.
func (e *ADBExecutor) Execute(ctx context.Context, command, deviceID string) model.CommandResult {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	line := ShellQuote(e.adbPath)
	if deviceID != "" {
		line += " -s " + ShellQuote(deviceID)
	}
	line += " " + command

	cmd := exec.CommandContext(ctx, "sh", "-c", line)
	killProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := model.CommandResult{
		Output:     strings.TrimSpace(stdout.String()),
		DurationMs: time.Since(start).Milliseconds(),
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.ExitCode = -1
		result.Error = fmt.Sprintf("command timed out after %s", e.timeout)
	case err != nil:
		result.ExitCode = exitCode(err)
		result.Error = strings.TrimSpace(stderr.String())
		if result.ExitCode == 127 {
			result.Error = "adb not found. Make sure Android SDK platform-tools are installed and on PATH"
		} else if result.Error == "" {
			result.Error = err.Error()
		}
	default:
		result.Success = true
		result.Error = strings.TrimSpace(stderr.String())
	}

	slog.Debug("Device command executed",
		"device_id", deviceID,
		"command", Redact(ctx, command),
		"success", result.Success,
		"exit_code", result.ExitCode,
		"duration_ms", result.DurationMs,
	)

	return result
}

// Available checks that adb can be started by running `adb version`
func (e *ADBExecutor) Available(ctx context.Context) error {
	if _, err := exec.LookPath(e.adbPath); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	result := e.Execute(ctx, "version", "")
	if !result.Success {
		return fmt.Errorf("%w: %s", ErrUnavailable, result.Error)
	}
	return nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// ShellQuote wraps s in single quotes for sh
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
