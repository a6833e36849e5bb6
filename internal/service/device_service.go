package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dandantas/adbfleet/internal/device"
	"github.com/dandantas/adbfleet/internal/model"
	"github.com/dandantas/adbfleet/internal/worker"
	"github.com/google/uuid"
)

// MaxDeviceNameLength bounds custom device names
const MaxDeviceNameLength = 50

// ErrInvalidDeviceName is returned for blank or overlong device names
var ErrInvalidDeviceName = fmt.Errorf("device name must be 1 to %d characters", MaxDeviceNameLength)

// NameRepository persists custom device names
type NameRepository interface {
	Get(ctx context.Context, deviceID string) (string, bool, error)
	Set(ctx context.Context, deviceID, name string) error
	All(ctx context.Context) (map[string]string, error)
}

// DeviceService lists devices and runs ad hoc commands on them
type DeviceService struct {
	exec  device.Executor
	names NameRepository
	pool  *worker.WorkerPool
}

// NewDeviceService creates a device service
func NewDeviceService(exec device.Executor, names NameRepository, pool *worker.WorkerPool) *DeviceService {
	return &DeviceService{
		exec:  exec,
		names: names,
		pool:  pool,
	}
}

// ListDevices returns the attached devices with their display names.
// Devices without a custom name are called "Device N" by position.
func (s *DeviceService) ListDevices(ctx context.Context) ([]model.Device, error) {
	if err := s.exec.Available(ctx); err != nil {
		return nil, err
	}

	devices, err := device.List(ctx, s.exec)
	if err != nil {
		return nil, err
	}

	names, err := s.names.All(ctx)
	if err != nil {
		slog.Warn("Failed to load device names", "error", err)
		names = nil
	}

	for i := range devices {
		if name, ok := names[devices[i].ID]; ok {
			devices[i].Name = name
			devices[i].Custom = true
		} else {
			devices[i].Name = fmt.Sprintf("Device %d", i+1)
		}
	}
	return devices, nil
}

// GetName returns the custom name of a device
func (s *DeviceService) GetName(ctx context.Context, deviceID string) (string, bool, error) {
	return s.names.Get(ctx, deviceID)
}

// SetName stores a custom device name
func (s *DeviceService) SetName(ctx context.Context, deviceID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > MaxDeviceNameLength {
		return ErrInvalidDeviceName
	}
	if err := s.names.Set(ctx, deviceID, name); err != nil {
		return err
	}

	slog.Info("Device renamed", "device_id", deviceID, "name", name)
	return nil
}

// RunCommand runs the same command on every listed device concurrently and
// returns the results keyed by device id
func (s *DeviceService) RunCommand(ctx context.Context, devices []string, command string) (map[string]model.CommandResult, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, errors.New("command is required")
	}
	if len(devices) == 0 {
		return nil, errors.New("no devices selected")
	}
	if err := s.exec.Available(ctx); err != nil {
		return nil, err
	}

	devices = slices.Clone(devices)
	slices.Sort(devices)
	devices = slices.Compact(devices)
	correlationID := uuid.NewString()

	slog.Info("Running command on devices",
		"correlation_id", correlationID,
		"devices", len(devices),
	)

	return s.pool.Run(ctx, correlationID, command, devices)
}
