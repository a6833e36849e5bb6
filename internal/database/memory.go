package database

import (
	"context"
	"maps"
	"sync"
)

// MemoryDeviceNameRepository keeps device names in process memory, used when
// MongoDB is disabled
type MemoryDeviceNameRepository struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewMemoryDeviceNameRepository creates an empty in-memory name repository
func NewMemoryDeviceNameRepository() *MemoryDeviceNameRepository {
	return &MemoryDeviceNameRepository{names: make(map[string]string)}
}

// Get returns the custom name of a device
func (r *MemoryDeviceNameRepository) Get(_ context.Context, deviceID string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[deviceID]
	return name, ok, nil
}

// Set stores the custom name of a device
func (r *MemoryDeviceNameRepository) Set(_ context.Context, deviceID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[deviceID] = name
	return nil
}

// All returns a copy of every custom name
func (r *MemoryDeviceNameRepository) All(_ context.Context) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.names), nil
}
