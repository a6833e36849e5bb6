package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
)

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}}); err != nil {
		t.Fatalf("ParseWithOptions() error = %v", err)
	}

	if cfg.ADBCommandTimeout != 30*time.Second {
		t.Errorf("ADBCommandTimeout = %v, want 30s", cfg.ADBCommandTimeout)
	}
	if cfg.Jobs.DurationBuffer != 30*time.Second {
		t.Errorf("Jobs.DurationBuffer = %v, want 30s", cfg.Jobs.DurationBuffer)
	}
	if cfg.Jobs.DefaultDuration != 180*time.Second {
		t.Errorf("Jobs.DefaultDuration = %v, want 180s", cfg.Jobs.DefaultDuration)
	}
	if cfg.Stream.FrameInterval != 2*time.Second || cfg.Stream.RetryDelay != time.Second {
		t.Errorf("Stream timings = %v/%v, want 2s/1s", cfg.Stream.FrameInterval, cfg.Stream.RetryDelay)
	}
	if cfg.Stream.MaxFailures != 5 {
		t.Errorf("Stream.MaxFailures = %d, want 5", cfg.Stream.MaxFailures)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	cfg := &Config{}
	err := env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{
		"JOB_DURATION_POLICY": "report",
		"STREAM_MAX_FAILURES": "3",
		"JOB_PROBE_INTERVAL":  "250ms",
	}})
	if err != nil {
		t.Fatalf("ParseWithOptions() error = %v", err)
	}

	if cfg.Jobs.DurationPolicy != "report" {
		t.Errorf("Jobs.DurationPolicy = %q, want report", cfg.Jobs.DurationPolicy)
	}
	if cfg.Stream.MaxFailures != 3 {
		t.Errorf("Stream.MaxFailures = %d, want 3", cfg.Stream.MaxFailures)
	}
	if cfg.Jobs.ProbeInterval != 250*time.Millisecond {
		t.Errorf("Jobs.ProbeInterval = %v, want 250ms", cfg.Jobs.ProbeInterval)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			ADBCommandTimeout: time.Second,
			WorkerPoolSize:    1,
			Jobs:              JobConfig{DurationPolicy: "fallback"},
			Stream:            StreamConfig{MaxFailures: 5},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown policy", func(c *Config) { c.Jobs.DurationPolicy = "ignore" }, true},
		{"zero failures", func(c *Config) { c.Stream.MaxFailures = 0 }, true},
		{"zero timeout", func(c *Config) { c.ADBCommandTimeout = 0 }, true},
		{"empty pool", func(c *Config) { c.WorkerPoolSize = 0 }, true},
		{"webhook without attempts", func(c *Config) { c.JobWebhookURL = "http://h/x" }, true},
		{"retries ignored without webhook", func(c *Config) { c.WebhookRetries = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{LogLevel: "warn", LogFormat: "json"}, &buf)

	logger.Info("dropped")
	logger.Warn("kept", "device_id", "emulator-5554")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["device_id"] != "emulator-5554" || entry["service"] != "adbfleet" {
		t.Errorf("unexpected log entry: %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
