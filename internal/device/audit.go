package device

import (
	"context"
	"log/slog"
	"time"

	"github.com/dandantas/adbfleet/internal/model"
)

// CommandLogWriter persists command audit records
type CommandLogWriter interface {
	Insert(ctx context.Context, entry *model.CommandLog) error
}

// AuditedExecutor records every device command it forwards.
// Audit failures are logged and never change the command result.
type AuditedExecutor struct {
	next Executor
	logs CommandLogWriter
}

// NewAuditedExecutor wraps next so that results are written to logs
func NewAuditedExecutor(next Executor, logs CommandLogWriter) *AuditedExecutor {
	return &AuditedExecutor{next: next, logs: logs}
}

// Execute forwards to the wrapped executor and audits the result
func (a *AuditedExecutor) Execute(ctx context.Context, command, deviceID string) model.CommandResult {
	result := a.next.Execute(ctx, command, deviceID)

	entry := &model.CommandLog{
		DeviceID:   deviceID,
		Command:    Redact(ctx, command),
		Success:    result.Success,
		ExitCode:   result.ExitCode,
		Error:      Redact(ctx, result.Error),
		DurationMs: result.DurationMs,
		ExecutedAt: time.Now().UTC(),
	}

	// audit even when the caller is already gone
	if err := a.logs.Insert(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("Failed to write command audit log",
			"device_id", deviceID,
			"error", err,
		)
	}

	return result
}

// Available delegates to the wrapped executor
func (a *AuditedExecutor) Available(ctx context.Context) error {
	return a.next.Available(ctx)
}
