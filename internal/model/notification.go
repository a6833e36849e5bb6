package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Delivery statuses
const (
	DeliveryStatusRetrying  = "retrying"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusFailed    = "failed"
)

// DeliveryAttempt represents a single webhook delivery attempt
type DeliveryAttempt struct {
	AttemptNumber int       `json:"attempt_number" bson:"attempt_number"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
	StatusCode    int       `json:"status_code,omitempty" bson:"status_code,omitempty"`
	ResponseBody  string    `json:"response_body,omitempty" bson:"response_body,omitempty"`
	Error         string    `json:"error,omitempty" bson:"error,omitempty"`
	DurationMs    int64     `json:"duration_ms" bson:"duration_ms"`
}

// DeliveryLog records every attempt made to notify about one job
type DeliveryLog struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	JobID       string             `json:"job_id" bson:"job_id"`
	JobStatus   JobStatus          `json:"job_status" bson:"job_status"`
	WebhookURL  string             `json:"webhook_url" bson:"webhook_url"`
	Attempts    []DeliveryAttempt  `json:"attempts" bson:"attempts"`
	FinalStatus string             `json:"final_status" bson:"final_status"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	CompletedAt time.Time          `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}
