package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dandantas/adbfleet/internal/config"
	"github.com/dandantas/adbfleet/internal/device"
	"github.com/dandantas/adbfleet/internal/model"
)

// ErrDeviceNotReady is returned when a device is not attached in the device state
var ErrDeviceNotReady = errors.New("device not connected or not ready")

const frameMediaType = "image/png"

// StreamTimings are the pacing parameters of a live stream loop
type StreamTimings struct {
	FrameInterval time.Duration
	RetryDelay    time.Duration
	MaxFailures   int
}

// StreamTimingsFromConfig maps stream configuration onto loop timings
func StreamTimingsFromConfig(cfg config.StreamConfig) StreamTimings {
	return StreamTimings{
		FrameInterval: cfg.FrameInterval,
		RetryDelay:    cfg.RetryDelay,
		MaxFailures:   cfg.MaxFailures,
	}
}

// Stream is the subscriber side of one live stream session. Events is closed
// after exactly one terminal event.
type Stream struct {
	DeviceID string

	events     chan model.StreamEvent
	detached   chan struct{}
	detachOnce sync.Once
	done       chan struct{}
}

func newStream(deviceID string) *Stream {
	return &Stream{
		DeviceID: deviceID,
		events:   make(chan model.StreamEvent, 8),
		detached: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Events delivers stream events in order
func (s *Stream) Events() <-chan model.StreamEvent {
	return s.events
}

// Detach tells the loop nobody is reading anymore. The loop ends on its next
// turn and pending events are dropped.
func (s *Stream) Detach() {
	s.detachOnce.Do(func() { close(s.detached) })
}

func (s *Stream) isDetached() bool {
	select {
	case <-s.detached:
		return true
	default:
		return false
	}
}

// Done is closed once the loop has exited and the session entry is gone
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// LiveStreamEngine runs one capture loop per streamed device
type LiveStreamEngine struct {
	exec     device.Executor
	frames   device.FrameSource
	sessions *model.SessionStore
	timings  StreamTimings

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLiveStreamEngine creates a stream engine
func NewLiveStreamEngine(exec device.Executor, frames device.FrameSource, sessions *model.SessionStore, timings StreamTimings) *LiveStreamEngine {
	if timings.MaxFailures < 1 {
		timings.MaxFailures = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LiveStreamEngine{
		exec:     exec,
		frames:   frames,
		sessions: sessions,
		timings:  timings,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscribe starts streaming deviceID. It fails with ErrUnavailable,
// ErrDeviceNotReady or model.ErrSessionActive.
func (e *LiveStreamEngine) Subscribe(ctx context.Context, deviceID string) (*Stream, error) {
	if e.ctx.Err() != nil {
		return nil, ErrShuttingDown
	}
	if err := e.exec.Available(ctx); err != nil {
		return nil, err
	}
	if !device.Ready(ctx, e.exec, deviceID) {
		return nil, ErrDeviceNotReady
	}

	token, err := e.sessions.Activate(deviceID)
	if err != nil {
		return nil, err
	}

	stream := newStream(deviceID)
	e.wg.Add(1)
	go e.loop(token, stream)

	slog.Info("Live stream started", "device_id", deviceID)
	return stream, nil
}

// Unsubscribe asks the loop streaming deviceID to end. The loop notices on its
// next turn and emits disconnected.
func (e *LiveStreamEngine) Unsubscribe(deviceID string) bool {
	stopped := e.sessions.Deactivate(deviceID)
	if stopped {
		slog.Info("Live stream stop requested", "device_id", deviceID)
	}
	return stopped
}

// ActiveDevices lists devices with an active stream
func (e *LiveStreamEngine) ActiveDevices() []string {
	return e.sessions.ActiveDevices()
}

// Shutdown ends every loop and waits for them until ctx expires
func (e *LiveStreamEngine) Shutdown(ctx context.Context) error {
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *LiveStreamEngine) loop(token string, stream *Stream) {
	deviceID := stream.DeviceID
	terminated := false

	emit := func(ev model.StreamEvent) {
		ev.DeviceID = deviceID
		select {
		case stream.events <- ev:
		case <-stream.detached:
		}
	}
	terminate := func(ev model.StreamEvent) {
		if terminated {
			return
		}
		terminated = true
		emit(ev)
	}

	defer e.wg.Done()
	defer func() {
		e.sessions.Remove(deviceID, token)
		close(stream.events)
		close(stream.done)
		slog.Info("Live stream ended", "device_id", deviceID)
	}()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Live stream panicked",
				"device_id", deviceID,
				"panic", r,
				"stack_trace", string(debug.Stack()),
			)
			terminate(model.StreamEvent{Type: model.StreamEventError, Error: fmt.Sprintf("stream failed: %v", r)})
		}
	}()

	emit(model.StreamEvent{Type: model.StreamEventConnected, Message: "Live stream started"})

	failures := 0
	for {
		if e.ctx.Err() != nil || stream.isDetached() || !e.sessions.IsActive(deviceID, token) {
			terminate(model.StreamEvent{Type: model.StreamEventDisconnected, Message: "Live stream stopped"})
			return
		}
		if err := e.exec.Available(e.ctx); err != nil {
			terminate(model.StreamEvent{Type: model.StreamEventError, Error: err.Error()})
			return
		}
		if !device.Ready(e.ctx, e.exec, deviceID) {
			terminate(model.StreamEvent{Type: model.StreamEventDisconnected, Message: "Device disconnected"})
			return
		}

		frame, err := e.frames.Capture(e.ctx, deviceID)
		if err != nil {
			failures++
			slog.Warn("Frame capture failed",
				"device_id", deviceID,
				"consecutive_failures", failures,
				"error", err,
			)
			if failures >= e.timings.MaxFailures {
				terminate(model.StreamEvent{
					Type:  model.StreamEventError,
					Error: fmt.Sprintf("too many consecutive capture failures (%d): %v", failures, err),
				})
				return
			}
			Sleep(e.ctx, e.timings.RetryDelay, stream.detached)
			continue
		}

		failures = 0
		emit(model.StreamEvent{
			Type:      model.StreamEventFrame,
			Data:      "data:" + frameMediaType + ";base64," + base64.StdEncoding.EncodeToString(frame),
			MediaType: frameMediaType,
			Timestamp: time.Now().UnixMilli(),
		})
		Sleep(e.ctx, e.timings.FrameInterval, stream.detached)
	}
}
