package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dandantas/adbfleet/internal/model"
)

func echoExecutor(calls *atomic.Int32) ExecutorFunc {
	return func(ctx context.Context, command, deviceID string) model.CommandResult {
		calls.Add(1)
		return model.CommandResult{Success: true, Output: deviceID + ":" + command}
	}
}

func TestWorkerPoolRun(t *testing.T) {
	var calls atomic.Int32
	pool := NewWorkerPool(2, 4, echoExecutor(&calls))
	pool.Start()
	defer pool.Stop()

	devices := []string{"a", "b", "c", "d", "e"}
	results, err := pool.Run(context.Background(), "corr-1", "shell echo hi", devices)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(results) != len(devices) {
		t.Fatalf("Expected %d results, got %d", len(devices), len(results))
	}
	for _, id := range devices {
		if got := results[id].Output; got != id+":shell echo hi" {
			t.Errorf("Result for %s = %q", id, got)
		}
	}
	if calls.Load() != int32(len(devices)) {
		t.Errorf("Expected %d executions, got %d", len(devices), calls.Load())
	}
}

func TestWorkerPoolSubmitAfterStop(t *testing.T) {
	var calls atomic.Int32
	pool := NewWorkerPool(1, 1, echoExecutor(&calls))
	pool.Start()
	pool.Stop()
	pool.Stop()

	err := pool.Submit(Job{DeviceID: "a", Command: "get-state", Context: context.Background()})
	if !errors.Is(err, ErrPoolStopped) {
		t.Errorf("Expected ErrPoolStopped, got %v", err)
	}
}

func TestWorkerPoolRunCancelled(t *testing.T) {
	release := make(chan struct{})
	pool := NewWorkerPool(1, 4, func(ctx context.Context, command, deviceID string) model.CommandResult {
		<-release
		return model.CommandResult{Success: true}
	})
	pool.Start()
	defer pool.Stop()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := pool.Run(ctx, "corr-2", "get-state", []string{"a", "b"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
