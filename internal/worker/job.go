package worker

import (
	"context"

	"github.com/dandantas/adbfleet/internal/model"
)

// Job is one device command waiting for a worker
type Job struct {
	DeviceID      string
	Command       string
	CorrelationID string
	Context       context.Context
	// Reply receives the result; it should be buffered for the whole batch
	Reply chan<- Result
}

// Result is the outcome of one device command
type Result struct {
	DeviceID string
	Result   model.CommandResult
}
