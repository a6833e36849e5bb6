package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/dandantas/adbfleet/internal/model"
)

// StateReady is what `adb get-state` prints for a usable device
const StateReady = "device"

// State returns the adb connection state of a device
func State(ctx context.Context, exec Executor, deviceID string) (string, error) {
	result := exec.Execute(ctx, "get-state", deviceID)
	if !result.Success {
		return "", fmt.Errorf("get-state failed for %s: %s", deviceID, result.Error)
	}
	return strings.TrimSpace(result.Output), nil
}

// Ready reports whether the device answers get-state with "device"
func Ready(ctx context.Context, exec Executor, deviceID string) bool {
	state, err := State(ctx, exec, deviceID)
	return err == nil && state == StateReady
}

// List parses `adb devices` into the attached device list, in adb's order
func List(ctx context.Context, exec Executor) ([]model.Device, error) {
	result := exec.Execute(ctx, "devices", "")
	if !result.Success {
		return nil, fmt.Errorf("failed to list devices: %s", result.Error)
	}
	return ParseDeviceList(result.Output), nil
}

// ParseDeviceList parses the output of `adb devices`
func ParseDeviceList(output string) []model.Device {
	devices := make([]model.Device, 0)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		devices = append(devices, model.Device{
			ID:    fields[0],
			State: fields[1],
		})
	}
	return devices
}
