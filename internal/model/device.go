package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommandResult is the outcome of one device command invocation
type CommandResult struct {
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	Error      string `json:"error,omitempty"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
}

// Device is one entry of the attached device list
type Device struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Name   string `json:"name"`
	Custom bool   `json:"custom_name"`
}

// DeviceName is a user-assigned label for a device
type DeviceName struct {
	ID        primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	DeviceID  string             `json:"device_id" bson:"device_id"`
	Name      string             `json:"name" bson:"name"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// CommandLog is the audit record of a device command
type CommandLog struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DeviceID   string             `json:"device_id" bson:"device_id"`
	Command    string             `json:"command" bson:"command"`
	Success    bool               `json:"success" bson:"success"`
	ExitCode   int                `json:"exit_code" bson:"exit_code"`
	Error      string             `json:"error,omitempty" bson:"error,omitempty"`
	DurationMs int64              `json:"duration_ms" bson:"duration_ms"`
	ExecutedAt time.Time          `json:"executed_at" bson:"executed_at"`
}
